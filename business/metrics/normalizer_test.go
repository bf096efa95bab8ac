package metrics

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/OpenRailStats/railperf/business/data/railperf"
	"github.com/matryer/is"
)

func testRawRow(trainId, stationCode string, scheduled *time.Time) RawStopRecord {
	return RawStopRecord{
		TrainId:          trainId,
		RouteId:          "cascades",
		HostId:           "BNSF",
		StationCode:      stationCode,
		ScheduledArrival: scheduled,
		ActualArrival:    scheduled,
		DetrainingCount:  intPointer(10),
	}
}

func TestNormalizeRecords_emptyInputIsSchemaError(t *testing.T) {
	_, _, err := NormalizeRecords(nil)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("NormalizeRecords(nil) error = %v, want SchemaError", err)
	}
}

func TestNormalizeRecords_dropsUnmeasurableRecordsWithWarnings(t *testing.T) {
	is := is.New(t)
	scheduled := timePointer(time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC))

	missingSchedule := testRawRow("501", "SEA", nil)
	negativeDetraining := testRawRow("501", "PDX", scheduled)
	negativeDetraining.DetrainingCount = intPointer(-4)
	missingIdentity := testRawRow("", "TAC", scheduled)

	events, warnings, err := NormalizeRecords([]RawStopRecord{
		missingSchedule,
		negativeDetraining,
		missingIdentity,
		testRawRow("501", "SEA", scheduled),
	})
	is.NoErr(err)
	is.Equal(1, len(events))
	is.Equal(3, len(warnings))
	is.Equal("SEA", events[0].StationCode)
}

func TestNormalizeRecords_mergesDelayRowsIntoOneStop(t *testing.T) {
	is := is.New(t)
	scheduled := timePointer(time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC))

	first := testRawRow("501", "SEA", scheduled)
	first.DelayCode = "FTI"
	first.DelayMinutes = intPointer(12)
	first.Disputed = true

	second := testRawRow("501", "SEA", scheduled)
	second.DelayCode = "eng" // codes are case insensitive
	second.DelayMinutes = intPointer(5)

	events, warnings, err := NormalizeRecords([]RawStopRecord{first, second})
	is.NoErr(err)
	is.Equal(0, len(warnings))
	is.Equal(1, len(events))
	is.Equal(2, len(events[0].Delays))
	is.Equal(railperf.CategoryHost, events[0].Delays[0].Category)
	is.Equal("BNSF", events[0].Delays[0].ResponsibleParty)
	is.True(events[0].Delays[0].Disputed)
	is.Equal(railperf.CategoryAmtrak, events[0].Delays[1].Category)
	is.Equal("AMTK", events[0].Delays[1].ResponsibleParty)
}

func TestNormalizeRecords_unknownDelayCodeFallsBackToParty(t *testing.T) {
	is := is.New(t)
	scheduled := timePointer(time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC))

	hostParty := testRawRow("501", "SEA", scheduled)
	hostParty.DelayCode = "XXX"
	hostParty.ResponsibleParty = "bnsf"
	hostParty.DelayMinutes = intPointer(7)

	unnamed := testRawRow("501", "PDX", scheduled)
	unnamed.DelayCode = "XXX"
	unnamed.DelayMinutes = intPointer(3)

	negative := testRawRow("501", "TAC", scheduled)
	negative.DelayCode = "FTI"
	negative.DelayMinutes = intPointer(-1)

	events, warnings, err := NormalizeRecords([]RawStopRecord{hostParty, unnamed, negative})
	is.NoErr(err)
	// the unknown code with no party and the negative minutes each warn; the stops survive
	is.Equal(3, len(events))
	is.Equal(2, len(warnings))

	var seaDelays []railperf.DelayRecord
	for _, event := range events {
		if event.StationCode == "SEA" {
			seaDelays = event.Delays
		}
	}
	is.Equal(1, len(seaDelays))
	is.Equal(railperf.CategoryHost, seaDelays[0].Category)
}

func TestNormalizeRecords_fiscalTaggingAndIdentifierCleanup(t *testing.T) {
	is := is.New(t)
	scheduled := timePointer(time.Date(2023, 11, 20, 14, 30, 0, 0, time.UTC))

	row := testRawRow("  501 ", "SEA", scheduled)
	row.RouteId = "amtrak   cascades"

	events, _, err := NormalizeRecords([]RawStopRecord{row})
	is.NoErr(err)
	is.Equal(1, len(events))
	is.Equal("501", events[0].TrainId)
	is.Equal("amtrak cascades", events[0].RouteId)
	// November 2023 sits in federal fiscal 2024 first quarter
	is.Equal(2024, events[0].FiscalYear)
	is.Equal(1, events[0].FiscalQuarter)
	is.Equal(time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC), events[0].ServiceDate)
}

func TestNormalizeRecords_idempotent(t *testing.T) {
	scheduled := timePointer(time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC))
	rows := []RawStopRecord{
		testRawRow("501", "SEA", scheduled),
		testRawRow("503", "PDX", scheduled),
		testRawRow("501", "TAC", nil),
	}

	firstEvents, firstWarnings, err1 := NormalizeRecords(rows)
	secondEvents, secondWarnings, err2 := NormalizeRecords(rows)
	if err1 != nil || err2 != nil {
		t.Fatalf("NormalizeRecords() errors: %v, %v", err1, err2)
	}
	if !reflect.DeepEqual(firstEvents, secondEvents) {
		t.Errorf("NormalizeRecords() events not idempotent")
	}
	if !reflect.DeepEqual(firstWarnings, secondWarnings) {
		t.Errorf("NormalizeRecords() warnings not idempotent")
	}
}
