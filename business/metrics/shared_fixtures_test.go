package metrics

import (
	"time"

	"github.com/OpenRailStats/railperf/business/data/railperf"
)

// fixture helpers shared by the metrics tests

// testStop builds a StopEvent scheduled at schedMinute minutes past 8am on serviceDay with
// an actual arrival latenessMinutes later. A negative latenessMinutes is an early arrival.
func testStop(trainId, routeId, hostId, stationCode string, serviceDay int, schedMinute int,
	latenessMinutes float64, detraining int) railperf.StopEvent {

	scheduled := time.Date(2024, 1, serviceDay, 8, 0, 0, 0, time.UTC).
		Add(time.Duration(schedMinute) * time.Minute)
	actual := scheduled.Add(time.Duration(latenessMinutes * float64(time.Minute)))
	fiscalYear, fiscalQuarter := FiscalYearQuarter(scheduled)
	return railperf.StopEvent{
		TrainId:          trainId,
		RouteId:          routeId,
		HostId:           hostId,
		StationCode:      stationCode,
		ServiceDate:      time.Date(2024, 1, serviceDay, 0, 0, 0, 0, time.UTC),
		FiscalYear:       fiscalYear,
		FiscalQuarter:    fiscalQuarter,
		ScheduledArrival: scheduled,
		ActualArrival:    &actual,
		DetrainingCount:  detraining,
	}
}

// testCancelledStop builds a StopEvent with no actual arrival
func testCancelledStop(trainId, routeId, hostId, stationCode string, serviceDay int,
	schedMinute int, detraining int) railperf.StopEvent {

	event := testStop(trainId, routeId, hostId, stationCode, serviceDay, schedMinute, 0, detraining)
	event.ActualArrival = nil
	return event
}

// withDelay attaches a DelayRecord to a StopEvent copy
func withDelay(event railperf.StopEvent, code string, category railperf.ResponsibilityCategory,
	party string, minutes int, disputed, resolved bool) railperf.StopEvent {

	event.Delays = append(event.Delays, railperf.DelayRecord{
		DelayCode:        code,
		Category:         category,
		ResponsibleParty: party,
		Minutes:          minutes,
		Disputed:         disputed,
		Resolved:         resolved,
	})
	return event
}

func floatPointer(value float64) *float64 {
	return &value
}

func intPointer(value int) *int {
	return &value
}

func timePointer(value time.Time) *time.Time {
	return &value
}
