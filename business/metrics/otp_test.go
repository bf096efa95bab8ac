package metrics

import (
	"errors"
	"reflect"
	"testing"

	"github.com/OpenRailStats/railperf/business/data/railperf"
	"github.com/matryer/is"
)

func TestComputeTrainOTP(t *testing.T) {
	cfg := DefaultConfig()

	// four runs of train 501: on time, 10 late, 20 late, cancelled.
	// each run has an intermediate stop so the terminal stop must be picked out.
	events := []railperf.StopEvent{
		testStop("501", "cascades", "BNSF", "SEA", 1, 0, 0, 40),
		testStop("501", "cascades", "BNSF", "PDX", 1, 200, 0, 90),
		testStop("501", "cascades", "BNSF", "SEA", 2, 0, 25, 40),
		testStop("501", "cascades", "BNSF", "PDX", 2, 200, 10, 90),
		testStop("501", "cascades", "BNSF", "SEA", 3, 0, 0, 40),
		testStop("501", "cascades", "BNSF", "PDX", 3, 200, 20, 90),
		testCancelledStop("501", "cascades", "BNSF", "SEA", 4, 0, 40),
		testCancelledStop("501", "cascades", "BNSF", "PDX", 4, 200, 90),
	}

	got := ComputeTrainOTP(cfg, events)
	want := []railperf.OTP{
		{
			PeriodLabel: "2024Q2",
			RouteId:     "cascades",
			TrainId:     "501",
			TotalRuns:   3,
			OnTimeRuns:  2,
			OTPPercent:  66.7,
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ComputeTrainOTP() = %+v, want %+v", got, want)
	}
}

func TestComputeTrainOTP_earlyArrivalIsOnTime(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()

	events := []railperf.StopEvent{
		testStop("8", "empire-builder", "BNSF", "CHI", 1, 0, -25, 120),
	}
	got := ComputeTrainOTP(cfg, events)
	is.Equal(1, len(got))
	is.Equal(1, got[0].OnTimeRuns)
	is.Equal(100.0, got[0].OTPPercent)
}

func TestComputeRouteOTP_runCountsMatchTrainRollup(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()

	events := []railperf.StopEvent{
		testStop("501", "cascades", "BNSF", "PDX", 1, 200, 0, 90),
		testStop("501", "cascades", "BNSF", "PDX", 2, 200, 30, 90),
		testStop("503", "cascades", "BNSF", "PDX", 1, 260, 5, 70),
		testCancelledStop("505", "cascades", "BNSF", "PDX", 1, 300, 60),
	}

	trainRows := ComputeTrainOTP(cfg, events)
	routeRows := ComputeRouteOTP(cfg, events)
	is.Equal(1, len(routeRows))
	is.Equal("", routeRows[0].TrainId)

	// the route denominator must equal the sum of the per-train denominators
	trainRunTotal := 0
	for _, row := range trainRows {
		trainRunTotal += row.TotalRuns
	}
	is.Equal(trainRunTotal, routeRows[0].TotalRuns)
	is.Equal(3, routeRows[0].TotalRuns)
	is.Equal(round1(2.0/3.0*100), routeRows[0].OTPPercent)
}

func TestComputeTrainOTP_boundsAndPerfection(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()

	var events []railperf.StopEvent
	for day := 1; day <= 5; day++ {
		events = append(events, testStop("42", "wolverine", "AMTK", "DET", day, 0, 15, 10))
	}
	got := ComputeTrainOTP(cfg, events)
	is.Equal(1, len(got))
	// lateness exactly at the threshold is on time
	is.Equal(100.0, got[0].OTPPercent)

	events = append(events, testStop("42", "wolverine", "AMTK", "DET", 6, 0, 16, 10))
	got = ComputeTrainOTP(cfg, events)
	is.True(got[0].OTPPercent >= 0 && got[0].OTPPercent <= 100)
	is.Equal(round1(5.0/6.0*100), got[0].OTPPercent)
}

func TestCheckOTPCompliance(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name         string
		quarterlyOTP []float64
		want         bool
		wantErr      bool
	}{
		{
			name:         "two consecutive quarters below the standard",
			quarterlyOTP: []float64{85, 79, 78},
			want:         false,
		},
		{
			name:         "below quarters never consecutive",
			quarterlyOTP: []float64{79, 85, 79.9, 80},
			want:         true,
		},
		{
			name:         "all above the standard",
			quarterlyOTP: []float64{92.1, 88, 80},
			want:         true,
		},
		{
			name:         "single quarter is not enough history",
			quarterlyOTP: []float64{75},
			wantErr:      true,
		},
		{
			name:         "no history at all",
			quarterlyOTP: nil,
			wantErr:      true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckOTPCompliance(cfg, tt.quarterlyOTP)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckOTPCompliance() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				var insufficient *InsufficientDataError
				if !errors.As(err, &insufficient) {
					t.Errorf("CheckOTPCompliance() error = %v, want InsufficientDataError", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("CheckOTPCompliance() = %v, want %v", got, tt.want)
			}
		})
	}
}
