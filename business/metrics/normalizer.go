package metrics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/OpenRailStats/railperf/business/data/railperf"
)

// RawStopRecord is one already-parsed row of an upstream report file. Rows are denormalized:
// a stop with several delay attributions repeats across rows, one delay per row. Pointer
// fields are nil when the source column was empty.
type RawStopRecord struct {
	TrainId          string
	RouteId          string
	HostId           string
	StationCode      string
	ScheduledArrival *time.Time
	ActualArrival    *time.Time
	DetrainingCount  *int

	DelayCode        string
	ResponsibleParty string
	DelayMinutes     *int
	Disputed         bool
	Resolved         bool
}

// delayCodeCategories maps Amtrak cause codes to the responsibility category they report
// under. Codes not listed fall back to the responsible party column.
var delayCodeCategories = map[string]railperf.ResponsibilityCategory{
	// Amtrak responsible
	"ENG": railperf.CategoryAmtrak, // locomotive failure
	"CAR": railperf.CategoryAmtrak, // car failure
	"SYS": railperf.CategoryAmtrak, // system delay
	"CON": railperf.CategoryAmtrak, // hold for connection
	"HLD": railperf.CategoryAmtrak, // passenger related hold
	"INJ": railperf.CategoryAmtrak, // passenger injury
	"SVS": railperf.CategoryAmtrak, // servicing
	"CCR": railperf.CategoryAmtrak, // crew related
	// host responsible
	"FTI": railperf.CategoryHost, // freight train interference
	"PTI": railperf.CategoryHost, // passenger train interference
	"CTI": railperf.CategoryHost, // commuter train interference
	"DSR": railperf.CategoryHost, // slow orders
	"DCS": railperf.CategoryHost, // signal delays
	"DMW": railperf.CategoryHost, // maintenance of way
	"RTE": railperf.CategoryHost, // routing
	// third party
	"WTR": railperf.CategoryThirdParty, // weather
	"TRS": railperf.CategoryThirdParty, // trespasser
	"POL": railperf.CategoryThirdParty, // police activity
	"DBS": railperf.CategoryThirdParty, // debris strike
	"CUS": railperf.CategoryThirdParty, // customs and immigration
}

var repeatedWhitespace = regexp.MustCompile(`\s+`)

// normalizeIdentifier trims an identifier and collapses repeated whitespace inside it
func normalizeIdentifier(value string) string {
	return strings.TrimSpace(repeatedWhitespace.ReplaceAllString(value, " "))
}

// NormalizeRecords validates and canonicalizes raw report rows into StopEvents, merging the
// delay rows of a stop into that stop's DelayRecord list. Records that cannot be measured
// are dropped with a Warning. Returns a SchemaError when the input holds no rows at all.
func NormalizeRecords(rows []RawStopRecord) ([]railperf.StopEvent, []Warning, error) {
	if len(rows) == 0 {
		return nil, nil, &SchemaError{Reason: "input contains no records"}
	}

	var warnings []Warning
	eventIndex := make(map[string]*railperf.StopEvent)
	var order []string

	for i := range rows {
		row := &rows[i]
		ref := rowRef(i, row)

		trainId := normalizeIdentifier(row.TrainId)
		routeId := normalizeIdentifier(row.RouteId)
		stationCode := normalizeIdentifier(row.StationCode)
		if trainId == "" || routeId == "" || stationCode == "" {
			warnings = append(warnings, Warning{Record: ref, Message: "missing train, route or station identity"})
			continue
		}
		if row.ScheduledArrival == nil {
			warnings = append(warnings, Warning{Record: ref, Message: "missing scheduled arrival, lateness cannot be measured"})
			continue
		}
		detraining := 0
		if row.DetrainingCount != nil {
			if *row.DetrainingCount < 0 {
				warnings = append(warnings, Warning{Record: ref, Message: "negative detraining passenger count"})
				continue
			}
			detraining = *row.DetrainingCount
		}

		serviceDate := truncateToDate(*row.ScheduledArrival)
		key := strings.Join([]string{trainId, serviceDate.Format("20060102"), stationCode}, "_")
		event, ok := eventIndex[key]
		if !ok {
			fiscalYear, fiscalQuarter := FiscalYearQuarter(serviceDate)
			event = &railperf.StopEvent{
				TrainId:          trainId,
				RouteId:          routeId,
				HostId:           normalizeIdentifier(row.HostId),
				StationCode:      stationCode,
				ServiceDate:      serviceDate,
				FiscalYear:       fiscalYear,
				FiscalQuarter:    fiscalQuarter,
				ScheduledArrival: *row.ScheduledArrival,
				ActualArrival:    row.ActualArrival,
				DetrainingCount:  detraining,
			}
			eventIndex[key] = event
			order = append(order, key)
		}

		if delay, delayWarning := buildDelayRecord(ref, event, row); delayWarning != nil {
			warnings = append(warnings, *delayWarning)
		} else if delay != nil {
			event.Delays = append(event.Delays, *delay)
		}
	}

	events := make([]railperf.StopEvent, 0, len(order))
	for _, key := range order {
		events = append(events, *eventIndex[key])
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].RouteId != events[j].RouteId {
			return events[i].RouteId < events[j].RouteId
		}
		if events[i].TrainId != events[j].TrainId {
			return events[i].TrainId < events[j].TrainId
		}
		if !events[i].ServiceDate.Equal(events[j].ServiceDate) {
			return events[i].ServiceDate.Before(events[j].ServiceDate)
		}
		return events[i].ScheduledArrival.Before(events[j].ScheduledArrival)
	})
	return events, warnings, nil
}

// buildDelayRecord extracts the delay attribution of a raw row, if it carries one.
// Returns nil, nil when the row holds no delay.
func buildDelayRecord(ref string, event *railperf.StopEvent, row *RawStopRecord) (*railperf.DelayRecord, *Warning) {
	code := normalizeIdentifier(strings.ToUpper(row.DelayCode))
	if code == "" && row.DelayMinutes == nil {
		return nil, nil
	}
	minutes := 0
	if row.DelayMinutes != nil {
		minutes = *row.DelayMinutes
	}
	if minutes < 0 {
		return nil, &Warning{Record: ref, Message: "negative delay minutes"}
	}

	party := normalizeIdentifier(row.ResponsibleParty)
	category, ok := delayCodeCategories[code]
	if !ok {
		category, ok = categoryFromParty(party, event.HostId)
		if !ok {
			return nil, &Warning{Record: ref,
				Message: fmt.Sprintf("delay code %s is unknown and no responsible party is named", code)}
		}
	}
	if party == "" {
		party = defaultParty(category, event.HostId)
	}

	return &railperf.DelayRecord{
		DelayCode:        code,
		Category:         category,
		ResponsibleParty: party,
		Minutes:          minutes,
		Disputed:         row.Disputed,
		Resolved:         row.Resolved,
	}, nil
}

// categoryFromParty classifies a delay by its responsible party when the code is unknown
func categoryFromParty(party, hostId string) (railperf.ResponsibilityCategory, bool) {
	switch {
	case party == "":
		return "", false
	case strings.EqualFold(party, railperf.AmtrakReportingMark):
		return railperf.CategoryAmtrak, true
	case strings.EqualFold(party, hostId):
		return railperf.CategoryHost, true
	default:
		return railperf.CategoryThirdParty, true
	}
}

// defaultParty names the responsible party implied by a classified code
func defaultParty(category railperf.ResponsibilityCategory, hostId string) string {
	switch category {
	case railperf.CategoryAmtrak:
		return railperf.AmtrakReportingMark
	case railperf.CategoryHost:
		return hostId
	default:
		return "third party"
	}
}

func rowRef(index int, row *RawStopRecord) string {
	return fmt.Sprintf("row %d (train %s station %s)", index, row.TrainId, row.StationCode)
}

func truncateToDate(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
}
