package railperf

import (
	"fmt"
	"strings"
	"time"

	"github.com/OpenRailStats/railperf/foundation/database"
	"github.com/jmoiron/sqlx"
)

// ResponsibilityCategory classifies the root cause of a delay per the reporting methodology
type ResponsibilityCategory string

const (
	// CategoryAmtrak covers delays caused by Amtrak operations, equipment and crew
	CategoryAmtrak = ResponsibilityCategory("amtrak")
	// CategoryHost covers delays caused by the host railroad dispatching the territory
	CategoryHost = ResponsibilityCategory("host")
	// CategoryThirdParty covers delays outside the control of Amtrak and the host
	CategoryThirdParty = ResponsibilityCategory("third_party")
)

// StopEvent is one train arrival at a station, the unit record every metric is derived from.
// A run is identified by TrainId and ServiceDate. A nil ActualArrival marks a cancelled or
// annulled stop which is excluded from all aggregates.
type StopEvent struct {
	ReportPeriodId int64  `db:"report_period_id" json:"report_period_id"`
	TrainId        string `db:"train_id" json:"train_id"`
	RouteId        string `db:"route_id" json:"route_id"`
	// HostId is the reporting mark of the railroad dispatching the territory the station sits in
	HostId        string    `db:"host_id" json:"host_id"`
	StationCode   string    `db:"station_code" json:"station_code"`
	ServiceDate   time.Time `db:"service_date" json:"service_date"`
	FiscalYear    int       `db:"fiscal_year" json:"fiscal_year"`
	FiscalQuarter int       `db:"fiscal_quarter" json:"fiscal_quarter"`
	// ScheduledArrival is always present; records without one cannot be measured and are
	// dropped during normalization
	ScheduledArrival time.Time  `db:"scheduled_arrival" json:"scheduled_arrival"`
	ActualArrival    *time.Time `db:"actual_arrival" json:"actual_arrival"`
	DetrainingCount  int        `db:"detraining_count" json:"detraining_count"`

	Delays []DelayRecord `db:"-" json:"delays,omitempty"`
}

// Cancelled reports whether the stop was cancelled or annulled
func (s *StopEvent) Cancelled() bool {
	return s.ActualArrival == nil
}

// ArrivalDeltaMinutes returns the signed actual minus scheduled arrival delta in minutes.
// Returns nil for a cancelled stop. Early arrivals are negative.
func (s *StopEvent) ArrivalDeltaMinutes() *float64 {
	if s.ActualArrival == nil {
		return nil
	}
	delta := s.ActualArrival.Sub(s.ScheduledArrival).Minutes()
	return &delta
}

// RunKey identifies the train-run instance a StopEvent belongs to
func (s *StopEvent) RunKey() string {
	return fmt.Sprintf("%s_%s", s.TrainId, s.ServiceDate.Format("20060102"))
}

// DelayRecord is one delay attribution made at a stop. Minutes are attributed to the
// host-railroad territory of the stop at which the delay occurred.
type DelayRecord struct {
	ReportPeriodId int64     `db:"report_period_id" json:"report_period_id"`
	TrainId        string    `db:"train_id" json:"train_id"`
	ServiceDate    time.Time `db:"service_date" json:"service_date"`
	StationCode    string    `db:"station_code" json:"station_code"`

	DelayCode        string                 `db:"delay_code" json:"delay_code"`
	Category         ResponsibilityCategory `db:"category" json:"category"`
	ResponsibleParty string                 `db:"responsible_party" json:"responsible_party"`
	Minutes          int                    `db:"minutes" json:"minutes"`
	Disputed         bool                   `db:"disputed" json:"disputed"`
	Resolved         bool                   `db:"resolved" json:"resolved"`
}

// EventFilter narrows a stop event query. Zero values leave the dimension unfiltered.
// A Quarters filter requires FiscalYear to be set as well.
type EventFilter struct {
	RouteId    string
	FiscalYear int
	Quarters   []int
}

// validate rejects filter combinations the reporting tables cannot answer
func (f EventFilter) validate() error {
	if len(f.Quarters) > 0 && f.FiscalYear == 0 {
		return fmt.Errorf("quarter filter requires a fiscal year")
	}
	for _, q := range f.Quarters {
		if q < 1 || q > 4 {
			return fmt.Errorf("invalid fiscal quarter %d, only 1-4 can be specified", q)
		}
	}
	return nil
}

// RecordStopEvents saves a slice of StopEvent belonging to a ReportPeriodTransaction
func RecordStopEvents(events []*StopEvent, periodTx *ReportPeriodTransaction) error {
	statementString := "insert into stop_event " +
		"(report_period_id, " +
		"train_id, " +
		"route_id, " +
		"host_id, " +
		"station_code, " +
		"service_date, " +
		"fiscal_year, " +
		"fiscal_quarter, " +
		"scheduled_arrival, " +
		"actual_arrival, " +
		"detraining_count) " +
		"values " +
		"(:report_period_id, " +
		":train_id, " +
		":route_id, " +
		":host_id, " +
		":station_code, " +
		":service_date, " +
		":fiscal_year, " +
		":fiscal_quarter, " +
		":scheduled_arrival, " +
		":actual_arrival, " +
		":detraining_count)"
	statementString = periodTx.Tx.Rebind(statementString)
	for _, event := range events {
		event.ReportPeriodId = periodTx.Period.Id
		if _, err := periodTx.Tx.NamedExec(statementString, event); err != nil {
			return err
		}
		if err := recordDelayRecords(event, periodTx); err != nil {
			return err
		}
	}
	return nil
}

// recordDelayRecords saves the DelayRecords attached to a StopEvent
func recordDelayRecords(event *StopEvent, periodTx *ReportPeriodTransaction) error {
	statementString := "insert into delay_record " +
		"(report_period_id, " +
		"train_id, " +
		"service_date, " +
		"station_code, " +
		"delay_code, " +
		"category, " +
		"responsible_party, " +
		"minutes, " +
		"disputed, " +
		"resolved) " +
		"values " +
		"(:report_period_id, " +
		":train_id, " +
		":service_date, " +
		":station_code, " +
		":delay_code, " +
		":category, " +
		":responsible_party, " +
		":minutes, " +
		":disputed, " +
		":resolved)"
	statementString = periodTx.Tx.Rebind(statementString)
	for i := range event.Delays {
		delay := &event.Delays[i]
		delay.ReportPeriodId = periodTx.Period.Id
		delay.TrainId = event.TrainId
		delay.ServiceDate = event.ServiceDate
		delay.StationCode = event.StationCode
		if _, err := periodTx.Tx.NamedExec(statementString, delay); err != nil {
			return err
		}
	}
	return nil
}

// GetStopEvents retrieves the StopEvents of a ReportPeriod with their DelayRecords attached,
// narrowed by filter
func GetStopEvents(db *sqlx.DB, reportPeriodId int64, filter EventFilter) ([]StopEvent, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}

	statementString := "select * from stop_event where report_period_id = :report_period_id"
	args := map[string]interface{}{
		"report_period_id": reportPeriodId,
	}
	if filter.RouteId != "" {
		statementString += " and route_id = :route_id"
		args["route_id"] = filter.RouteId
	}
	if filter.FiscalYear != 0 {
		statementString += " and fiscal_year = :fiscal_year"
		args["fiscal_year"] = filter.FiscalYear
	}
	if len(filter.Quarters) > 0 {
		statementString += " and fiscal_quarter in (:quarters)"
		args["quarters"] = filter.Quarters
	}
	statementString += " order by route_id, train_id, service_date, scheduled_arrival"

	query, queryArgs, err := database.PrepareNamedQueryFromMap(statementString, db, args)
	if err != nil {
		return nil, err
	}
	var events []StopEvent
	if err = db.Select(&events, query, queryArgs...); err != nil {
		return nil, err
	}

	delays, err := getDelayRecords(db, reportPeriodId)
	if err != nil {
		return nil, err
	}
	attachDelayRecords(events, delays)
	return events, nil
}

// getDelayRecords retrieves all DelayRecords of a ReportPeriod
func getDelayRecords(db *sqlx.DB, reportPeriodId int64) ([]DelayRecord, error) {
	query := "select * from delay_record where report_period_id = $1 " +
		"order by train_id, service_date, station_code, delay_code"
	var delays []DelayRecord
	err := db.Select(&delays, db.Rebind(query), reportPeriodId)
	return delays, err
}

// attachDelayRecords files DelayRecords onto the StopEvents they occurred at
func attachDelayRecords(events []StopEvent, delays []DelayRecord) {
	byStop := make(map[string][]DelayRecord)
	for _, delay := range delays {
		key := delayStopKey(delay.TrainId, delay.ServiceDate, delay.StationCode)
		byStop[key] = append(byStop[key], delay)
	}
	for i := range events {
		key := delayStopKey(events[i].TrainId, events[i].ServiceDate, events[i].StationCode)
		events[i].Delays = byStop[key]
	}
}

func delayStopKey(trainId string, serviceDate time.Time, stationCode string) string {
	return strings.Join([]string{trainId, serviceDate.Format("20060102"), stationCode}, "_")
}
