package reportmanager

import (
	"io/ioutil"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/OpenRailStats/railperf/business/metrics"
	"github.com/matryer/is"
)

func getTestLogger() *log.Logger {
	return log.New(ioutil.Discard, "TEST : ", log.LstdFlags)
}

const testReportCsv = `train_id,route_id,host_id,station_code,scheduled_arrival,actual_arrival,detraining_count,delay_code,responsible_party,delay_minutes,disputed,resolved
501,cascades,BNSF,SEA,2024-01-05T08:00:00,2024-01-05T08:05:00,120,,,,,
501,cascades,BNSF,TAC,2024-01-05 08:45:00,2024-01-05 09:15:00,40,FTI,BNSF,25,true,false
501,cascades,UP,EUG,2024-01-05T12:00:00,,0,,,,,
`

func TestReadReportRows(t *testing.T) {
	is := is.New(t)

	rows, err := readReportRows(getTestLogger(), strings.NewReader(testReportCsv), "test.csv")
	is.NoErr(err)
	is.Equal(3, len(rows))

	first := rows[0]
	is.Equal("501", first.TrainId)
	is.Equal("cascades", first.RouteId)
	is.Equal("BNSF", first.HostId)
	is.Equal("SEA", first.StationCode)
	is.True(first.ScheduledArrival != nil)
	is.Equal(time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC), *first.ScheduledArrival)
	is.True(first.ActualArrival != nil)
	is.Equal(120, *first.DetrainingCount)
	is.Equal("", first.DelayCode)
	is.True(first.DelayMinutes == nil)

	// second row carries a delay attribution and uses the space separated timestamp layout
	second := rows[1]
	is.Equal(time.Date(2024, 1, 5, 8, 45, 0, 0, time.UTC), *second.ScheduledArrival)
	is.Equal("FTI", second.DelayCode)
	is.Equal("BNSF", second.ResponsibleParty)
	is.Equal(25, *second.DelayMinutes)
	is.True(second.Disputed)
	is.True(!second.Resolved)

	// third row is a cancelled stop, actual arrival stays nil
	is.True(rows[2].ActualArrival == nil)
}

func TestReadReportRows_skipsUnparsableLines(t *testing.T) {
	is := is.New(t)

	csv := "train_id,route_id,station_code,scheduled_arrival,detraining_count\n" +
		"501,cascades,SEA,2024-01-05T08:00:00,120\n" +
		"501,cascades,TAC,not-a-timestamp,40\n" +
		"501,cascades,PDX,2024-01-05T10:00:00,not-a-number\n" +
		"503,cascades,SEA,2024-01-05T16:00:00,80\n"

	rows, err := readReportRows(getTestLogger(), strings.NewReader(csv), "test.csv")
	is.NoErr(err)
	is.Equal(2, len(rows))
	is.Equal("SEA", rows[0].StationCode)
	is.Equal("503", rows[1].TrainId)
}

func TestMakeReportFileParser_requiresColumns(t *testing.T) {
	csv := "train_id,route_id,scheduled_arrival\n501,cascades,2024-01-05T08:00:00\n"

	_, err := makeReportFileParser(strings.NewReader(csv), "test.csv")
	if err == nil || !strings.Contains(err.Error(), "station_code") {
		t.Errorf("makeReportFileParser() error = %v, want missing station_code column error", err)
	}
}

func TestMakeReportFileParser_removesBOM(t *testing.T) {
	is := is.New(t)

	csv := "\uFEFFtrain_id,route_id,station_code,scheduled_arrival\n" +
		"501,cascades,SEA,2024-01-05T08:00:00\n"

	rows, err := readReportRows(getTestLogger(), strings.NewReader(csv), "test.csv")
	is.NoErr(err)
	is.Equal(1, len(rows))
	is.Equal("501", rows[0].TrainId)
}

func TestReadReportRows_boolSpellings(t *testing.T) {
	is := is.New(t)

	csv := "train_id,route_id,station_code,scheduled_arrival,delay_code,delay_minutes,disputed,resolved\n" +
		"501,cascades,SEA,2024-01-05T08:00:00,FTI,10,Y,0\n" +
		"501,cascades,TAC,2024-01-05T09:00:00,FTI,10,1,TRUE\n"

	rows, err := readReportRows(getTestLogger(), strings.NewReader(csv), "test.csv")
	is.NoErr(err)
	is.Equal(2, len(rows))
	is.True(rows[0].Disputed)
	is.True(!rows[0].Resolved)
	is.True(rows[1].Disputed)
	is.True(rows[1].Resolved)
}

func TestSingleFiscalQuarter(t *testing.T) {
	is := is.New(t)

	scheduled := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	rows := []metrics.RawStopRecord{
		{TrainId: "501", RouteId: "cascades", StationCode: "SEA", ScheduledArrival: &scheduled,
			ActualArrival: &scheduled},
	}
	events, _, err := metrics.NormalizeRecords(rows)
	is.NoErr(err)

	fiscalYear, fiscalQuarter, err := singleFiscalQuarter(events)
	is.NoErr(err)
	is.Equal(2024, fiscalYear)
	is.Equal(2, fiscalQuarter)

	_, _, err = singleFiscalQuarter(nil)
	is.True(err != nil)
}
