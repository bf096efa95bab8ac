package metrics

import (
	"reflect"
	"testing"

	"github.com/OpenRailStats/railperf/business/data/railperf"
	"github.com/matryer/is"
)

func TestAggregateStationPerformance_avgOverLateSubsetOnly(t *testing.T) {
	cfg := DefaultConfig()

	// five arrivals 26 minutes late and three on time: the average must be 26, computed
	// over the late arrivals only, not dragged down by the on-time ones
	var events []railperf.StopEvent
	for day := 1; day <= 5; day++ {
		events = append(events, testStop("91", "silver-star", "CSX", "RGH", day, 0, 10+16, 20))
	}
	for day := 6; day <= 8; day++ {
		events = append(events, testStop("91", "silver-star", "CSX", "RGH", day, 0, 3, 20))
	}

	got := AggregateStationPerformance(cfg, events)
	want := []railperf.StationPerformance{
		{
			PeriodLabel:         "2024Q2",
			RouteId:             "silver-star",
			TrainId:             "91",
			StationCode:         "RGH",
			Arrivals:            8,
			DetrainingTotal:     160,
			LateArrivals:        5,
			LateDetrainingTotal: 100,
			AvgMinutesLate:      floatPointer(26),
			LateRatio:           floatPointer(0.625),
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateStationPerformance() = %+v, want %+v", got, want)
	}
}

func TestAggregateStationPerformance_noLateArrivalsLeavesAverageUndefined(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()

	events := []railperf.StopEvent{
		testStop("7", "empire-builder", "BNSF", "SPK", 1, 0, 0, 35),
		testStop("7", "empire-builder", "BNSF", "SPK", 2, 0, 12, 35),
	}
	got := AggregateStationPerformance(cfg, events)
	is.Equal(1, len(got))
	is.Equal(0, got[0].LateArrivals)
	// undefined, not zero: on-time customers are excluded from the average entirely
	is.Equal((*float64)(nil), got[0].AvgMinutesLate)
	is.Equal(floatPointer(0.0), got[0].LateRatio)
}

func TestAggregateStationPerformance_cancelledStopsExcluded(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()

	events := []railperf.StopEvent{
		testStop("505", "cascades", "UP", "EUG", 1, 0, 30, 25),
		testCancelledStop("505", "cascades", "UP", "EUG", 2, 0, 25),
	}
	got := AggregateStationPerformance(cfg, events)
	is.Equal(1, len(got))
	is.Equal(1, got[0].Arrivals)
	is.Equal(25, got[0].DetrainingTotal)
	is.Equal(1, got[0].LateArrivals)
}

func TestSummarizeStationPerformance(t *testing.T) {
	cfg := DefaultConfig()

	events := []railperf.StopEvent{
		testStop("91", "silver-star", "CSX", "RGH", 1, 0, 20, 30),
		testStop("91", "silver-star", "CSX", "CLB", 1, 120, 40, 10),
		testStop("92", "silver-star", "CSX", "RGH", 1, 300, 5, 60),
		testCancelledStop("92", "silver-star", "CSX", "CLB", 2, 300, 50),
	}
	got := SummarizeStationPerformance(cfg, events)
	want := railperf.StationSummary{
		PeriodLabel:           "2024Q2",
		Arrivals:              3,
		DetrainingTotal:       100,
		LateDetrainingTotal:   40,
		OnTimeDetrainingTotal: 60,
		LateRatio:             floatPointer(0.4),
		MeanAvgMinutesLate:    floatPointer(30),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SummarizeStationPerformance() = %+v, want %+v", got, want)
	}
}

func TestTopDetrainingStations(t *testing.T) {
	rows := []railperf.StationPerformance{
		{RouteId: "silver-star", TrainId: "91", StationCode: "NYP", DetrainingTotal: 500},
		{RouteId: "silver-star", TrainId: "92", StationCode: "NYP", DetrainingTotal: 450},
		{RouteId: "silver-star", TrainId: "91", StationCode: "WAS", DetrainingTotal: 700},
		{RouteId: "silver-star", TrainId: "91", StationCode: "RGH", DetrainingTotal: 120},
	}

	got := TopDetrainingStations(rows, 2)
	want := []railperf.StationRank{
		{StationCode: "NYP", DetrainingTotal: 950},
		{StationCode: "WAS", DetrainingTotal: 700},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopDetrainingStations() = %+v, want %+v", got, want)
	}

	// asking for more stations than exist returns them all
	got = TopDetrainingStations(rows, 10)
	if len(got) != 3 {
		t.Errorf("TopDetrainingStations() returned %d rows, want 3", len(got))
	}
}
