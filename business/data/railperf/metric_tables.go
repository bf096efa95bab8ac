package railperf

import (
	"github.com/jmoiron/sqlx"
)

// The five statutory output tables. One row per grouping key, recomputed fresh for a
// ReportPeriod on every metrics calculation run. Undefined metrics are nil pointers,
// never zero values.

// OTP is customer on-time performance for a train over a reporting period. TrainId is
// empty on route level rollup rows.
type OTP struct {
	ReportPeriodId int64   `db:"report_period_id" json:"report_period_id"`
	PeriodLabel    string  `db:"period_label" json:"period_label"`
	RouteId        string  `db:"route_id" json:"route_id"`
	TrainId        string  `db:"train_id" json:"train_id"`
	TotalRuns      int     `db:"total_runs" json:"total_runs"`
	OnTimeRuns     int     `db:"on_time_runs" json:"on_time_runs"`
	OTPPercent     float64 `db:"otp_percent" json:"otp_percent"`
}

// StationPerformance aggregates detraining customers and lateness at one station for one
// route and train. AvgMinutesLate is computed over late arrivals only and is nil when the
// group has no late arrivals.
type StationPerformance struct {
	ReportPeriodId      int64    `db:"report_period_id" json:"report_period_id"`
	PeriodLabel         string   `db:"period_label" json:"period_label"`
	RouteId             string   `db:"route_id" json:"route_id"`
	TrainId             string   `db:"train_id" json:"train_id"`
	StationCode         string   `db:"station_code" json:"station_code"`
	Arrivals            int      `db:"arrivals" json:"arrivals"`
	DetrainingTotal     int      `db:"detraining_total" json:"detraining_total"`
	LateArrivals        int      `db:"late_arrivals" json:"late_arrivals"`
	LateDetrainingTotal int      `db:"late_detraining_total" json:"late_detraining_total"`
	AvgMinutesLate      *float64 `db:"avg_minutes_late" json:"avg_minutes_late"`
	LateRatio           *float64 `db:"late_ratio" json:"late_ratio"`
}

// StationSummary is the system level rollup of StationPerformance across all stations in a
// period
type StationSummary struct {
	PeriodLabel           string   `json:"period_label"`
	Arrivals              int      `json:"arrivals"`
	DetrainingTotal       int      `json:"detraining_total"`
	LateDetrainingTotal   int      `json:"late_detraining_total"`
	OnTimeDetrainingTotal int      `json:"on_time_detraining_total"`
	LateRatio             *float64 `json:"late_ratio"`
	MeanAvgMinutesLate    *float64 `json:"mean_avg_minutes_late"`
}

// StationRank is one entry in the busiest-stations ranking by detraining customers
type StationRank struct {
	StationCode     string `json:"station_code"`
	DetrainingTotal int    `json:"detraining_total"`
}

// HostRunningTime reports actual versus scheduled running time across one host railroad's
// territory for a route and train. Deltas are signed minutes, negative when ahead of schedule.
type HostRunningTime struct {
	ReportPeriodId     int64   `db:"report_period_id" json:"report_period_id"`
	PeriodLabel        string  `db:"period_label" json:"period_label"`
	RouteId            string  `db:"route_id" json:"route_id"`
	TrainId            string  `db:"train_id" json:"train_id"`
	HostId             string  `db:"host_id" json:"host_id"`
	Runs               int     `db:"runs" json:"runs"`
	MeanDeltaMinutes   float64 `db:"mean_delta_minutes" json:"mean_delta_minutes"`
	MedianDeltaMinutes float64 `db:"median_delta_minutes" json:"median_delta_minutes"`
}

// DelayBuckets holds delay minutes classified by responsibility for one route and host
// railroad. CombinedMinutes and NonAmtrakHostMinutes are derived sums, the remaining
// root-cause buckets are independently sourced.
type DelayBuckets struct {
	ReportPeriodId int64  `db:"report_period_id" json:"report_period_id"`
	PeriodLabel    string `db:"period_label" json:"period_label"`
	RouteId        string `db:"route_id" json:"route_id"`
	HostId         string `db:"host_id" json:"host_id"`
	TotalMinutes   int    `db:"total_minutes" json:"total_minutes"`
	AmtrakMinutes  int    `db:"amtrak_minutes" json:"amtrak_minutes"`
	HostMinutes    int    `db:"host_minutes" json:"host_minutes"`
	// CombinedMinutes is AmtrakMinutes plus HostMinutes
	CombinedMinutes int `db:"combined_minutes" json:"combined_minutes"`
	// NonAmtrakHostMinutes equals HostMinutes unless Amtrak is itself the host
	NonAmtrakHostMinutes int `db:"non_amtrak_host_minutes" json:"non_amtrak_host_minutes"`
	ThirdPartyMinutes    int `db:"third_party_minutes" json:"third_party_minutes"`
	// DisputedUnresolvedMinutes tracks host-responsible minutes still under an unresolved
	// dispute for non-Amtrak hosts
	DisputedUnresolvedMinutes int `db:"disputed_unresolved_minutes" json:"disputed_unresolved_minutes"`
}

// DelayRate normalizes Amtrak plus host responsible delay minutes per 10,000 train-miles
// operated over a route and host territory. PerTenThousandMiles is nil when no train-miles
// were operated in the period.
type DelayRate struct {
	ReportPeriodId      int64    `db:"report_period_id" json:"report_period_id"`
	PeriodLabel         string   `db:"period_label" json:"period_label"`
	RouteId             string   `db:"route_id" json:"route_id"`
	HostId              string   `db:"host_id" json:"host_id"`
	ResponsibleMinutes  int      `db:"responsible_minutes" json:"responsible_minutes"`
	TrainMiles          float64  `db:"train_miles" json:"train_miles"`
	PerTenThousandMiles *float64 `db:"per_ten_thousand_miles" json:"per_ten_thousand_miles"`
}

// RecordOTP replaces the otp table rows of a ReportPeriod
func RecordOTP(rows []OTP, reportPeriodId int64, db *sqlx.DB) error {
	statementString := "insert into otp " +
		"(report_period_id, period_label, route_id, train_id, total_runs, on_time_runs, otp_percent) " +
		"values " +
		"(:report_period_id, :period_label, :route_id, :train_id, :total_runs, :on_time_runs, :otp_percent)"
	return replaceTableRows(db, "otp", reportPeriodId, statementString, func(i int) interface{} {
		return rows[i]
	}, len(rows))
}

// RecordStationPerformance replaces the station_performance table rows of a ReportPeriod
func RecordStationPerformance(rows []StationPerformance, reportPeriodId int64, db *sqlx.DB) error {
	statementString := "insert into station_performance " +
		"(report_period_id, period_label, route_id, train_id, station_code, arrivals, " +
		"detraining_total, late_arrivals, late_detraining_total, avg_minutes_late, late_ratio) " +
		"values " +
		"(:report_period_id, :period_label, :route_id, :train_id, :station_code, :arrivals, " +
		":detraining_total, :late_arrivals, :late_detraining_total, :avg_minutes_late, :late_ratio)"
	return replaceTableRows(db, "station_performance", reportPeriodId, statementString, func(i int) interface{} {
		return rows[i]
	}, len(rows))
}

// RecordHostRunningTimes replaces the host_running_time table rows of a ReportPeriod
func RecordHostRunningTimes(rows []HostRunningTime, reportPeriodId int64, db *sqlx.DB) error {
	statementString := "insert into host_running_time " +
		"(report_period_id, period_label, route_id, train_id, host_id, runs, " +
		"mean_delta_minutes, median_delta_minutes) " +
		"values " +
		"(:report_period_id, :period_label, :route_id, :train_id, :host_id, :runs, " +
		":mean_delta_minutes, :median_delta_minutes)"
	return replaceTableRows(db, "host_running_time", reportPeriodId, statementString, func(i int) interface{} {
		return rows[i]
	}, len(rows))
}

// RecordDelayBuckets replaces the delay_buckets table rows of a ReportPeriod
func RecordDelayBuckets(rows []DelayBuckets, reportPeriodId int64, db *sqlx.DB) error {
	statementString := "insert into delay_buckets " +
		"(report_period_id, period_label, route_id, host_id, total_minutes, amtrak_minutes, " +
		"host_minutes, combined_minutes, non_amtrak_host_minutes, third_party_minutes, " +
		"disputed_unresolved_minutes) " +
		"values " +
		"(:report_period_id, :period_label, :route_id, :host_id, :total_minutes, :amtrak_minutes, " +
		":host_minutes, :combined_minutes, :non_amtrak_host_minutes, :third_party_minutes, " +
		":disputed_unresolved_minutes)"
	return replaceTableRows(db, "delay_buckets", reportPeriodId, statementString, func(i int) interface{} {
		return rows[i]
	}, len(rows))
}

// RecordDelayRates replaces the delay_rate table rows of a ReportPeriod
func RecordDelayRates(rows []DelayRate, reportPeriodId int64, db *sqlx.DB) error {
	statementString := "insert into delay_rate " +
		"(report_period_id, period_label, route_id, host_id, responsible_minutes, train_miles, " +
		"per_ten_thousand_miles) " +
		"values " +
		"(:report_period_id, :period_label, :route_id, :host_id, :responsible_minutes, :train_miles, " +
		":per_ten_thousand_miles)"
	return replaceTableRows(db, "delay_rate", reportPeriodId, statementString, func(i int) interface{} {
		return rows[i]
	}, len(rows))
}

// replaceTableRows clears a metric table for a period and inserts fresh rows, so a
// recalculation never leaves stale rows behind
func replaceTableRows(db *sqlx.DB, table string, reportPeriodId int64, insertStatement string,
	row func(i int) interface{}, count int) error {

	deleteStatement := db.Rebind("delete from " + table + " where report_period_id = ?")
	if _, err := db.Exec(deleteStatement, reportPeriodId); err != nil {
		return err
	}
	insertStatement = db.Rebind(insertStatement)
	for i := 0; i < count; i++ {
		if _, err := db.NamedExec(insertStatement, row(i)); err != nil {
			return err
		}
	}
	return nil
}

// GetOTP retrieves the otp rows of a ReportPeriod
func GetOTP(db *sqlx.DB, reportPeriodId int64) ([]OTP, error) {
	query := "select * from otp where report_period_id = $1 order by route_id, train_id"
	var results []OTP
	err := db.Select(&results, db.Rebind(query), reportPeriodId)
	return results, err
}

// GetStationPerformance retrieves the station_performance rows of a ReportPeriod
func GetStationPerformance(db *sqlx.DB, reportPeriodId int64) ([]StationPerformance, error) {
	query := "select * from station_performance where report_period_id = $1 " +
		"order by route_id, train_id, station_code"
	var results []StationPerformance
	err := db.Select(&results, db.Rebind(query), reportPeriodId)
	return results, err
}

// GetHostRunningTimes retrieves the host_running_time rows of a ReportPeriod
func GetHostRunningTimes(db *sqlx.DB, reportPeriodId int64) ([]HostRunningTime, error) {
	query := "select * from host_running_time where report_period_id = $1 " +
		"order by route_id, train_id, host_id"
	var results []HostRunningTime
	err := db.Select(&results, db.Rebind(query), reportPeriodId)
	return results, err
}

// GetDelayBuckets retrieves the delay_buckets rows of a ReportPeriod
func GetDelayBuckets(db *sqlx.DB, reportPeriodId int64) ([]DelayBuckets, error) {
	query := "select * from delay_buckets where report_period_id = $1 order by route_id, host_id"
	var results []DelayBuckets
	err := db.Select(&results, db.Rebind(query), reportPeriodId)
	return results, err
}

// GetDelayRates retrieves the delay_rate rows of a ReportPeriod
func GetDelayRates(db *sqlx.DB, reportPeriodId int64) ([]DelayRate, error) {
	query := "select * from delay_rate where report_period_id = $1 order by route_id, host_id"
	var results []DelayRate
	err := db.Select(&results, db.Rebind(query), reportPeriodId)
	return results, err
}
