package metrics

import (
	"math"
	"sort"

	"github.com/OpenRailStats/railperf/business/data/railperf"
)

// Customer on-time performance is measured at detraining points, approximated as each run's
// terminal stop: the stop with the latest scheduled arrival of the run. A run whose terminal
// stop was cancelled never enters the numerator or the denominator.

// runArrival is one run's terminal stop arrival
type runArrival struct {
	routeId       string
	trainId       string
	fiscalYear    int
	fiscalQuarter int
	// latenessMinutes is clamped at zero, an early terminal arrival is fully on time
	latenessMinutes float64
	cancelled       bool
}

// terminalRunArrivals reduces stop events to one terminal arrival per run
func terminalRunArrivals(events []railperf.StopEvent) []runArrival {
	terminals := make(map[string]*railperf.StopEvent)
	var runKeys []string
	for i := range events {
		event := &events[i]
		key := event.RunKey()
		terminal, ok := terminals[key]
		if !ok {
			terminals[key] = event
			runKeys = append(runKeys, key)
			continue
		}
		if event.ScheduledArrival.After(terminal.ScheduledArrival) {
			terminals[key] = event
		}
	}
	sort.Strings(runKeys)

	arrivals := make([]runArrival, 0, len(runKeys))
	for _, key := range runKeys {
		terminal := terminals[key]
		arrival := runArrival{
			routeId:       terminal.RouteId,
			trainId:       terminal.TrainId,
			fiscalYear:    terminal.FiscalYear,
			fiscalQuarter: terminal.FiscalQuarter,
			cancelled:     terminal.Cancelled(),
		}
		if delta := terminal.ArrivalDeltaMinutes(); delta != nil {
			arrival.latenessMinutes = math.Max(0, *delta)
		}
		arrivals = append(arrivals, arrival)
	}
	return arrivals
}

// ComputeTrainOTP computes customer on-time performance per route and train
func ComputeTrainOTP(cfg Config, events []railperf.StopEvent) []railperf.OTP {
	return computeOTP(cfg, terminalRunArrivals(events), func(arrival runArrival) string {
		return arrival.trainId
	})
}

// ComputeRouteOTP computes customer on-time performance rolled up per route
func ComputeRouteOTP(cfg Config, events []railperf.StopEvent) []railperf.OTP {
	return computeOTP(cfg, terminalRunArrivals(events), func(arrival runArrival) string {
		return ""
	})
}

// computeOTP tallies on-time and total runs per route plus trainKey grouping
func computeOTP(cfg Config, arrivals []runArrival, trainKey func(runArrival) string) []railperf.OTP {
	groups := make(map[string]*railperf.OTP)
	var keys []string
	for _, arrival := range arrivals {
		if arrival.cancelled {
			continue
		}
		trainId := trainKey(arrival)
		key := arrival.routeId + "_" + trainId
		row, ok := groups[key]
		if !ok {
			row = &railperf.OTP{
				PeriodLabel: FormatYearQuarter(arrival.fiscalYear, arrival.fiscalQuarter),
				RouteId:     arrival.routeId,
				TrainId:     trainId,
			}
			groups[key] = row
			keys = append(keys, key)
		}
		row.TotalRuns++
		if arrival.latenessMinutes <= cfg.OnTimeThresholdMinutes {
			row.OnTimeRuns++
		}
	}
	sort.Strings(keys)

	results := make([]railperf.OTP, 0, len(keys))
	for _, key := range keys {
		row := groups[key]
		row.OTPPercent = round1(float64(row.OnTimeRuns) / float64(row.TotalRuns) * 100)
		results = append(results, *row)
	}
	return results
}

// CheckOTPCompliance evaluates quarterly OTP percentages supplied in chronological order and
// reports false when any two consecutive quarters fall below the standard. Fewer than two
// quarters returns an InsufficientDataError.
func CheckOTPCompliance(cfg Config, quarterlyOTP []float64) (bool, error) {
	if len(quarterlyOTP) < 2 {
		return false, &InsufficientDataError{Needed: 2, Got: len(quarterlyOTP)}
	}
	for i := 1; i < len(quarterlyOTP); i++ {
		if quarterlyOTP[i-1] < cfg.OTPStandardPercent && quarterlyOTP[i] < cfg.OTPStandardPercent {
			return false, nil
		}
	}
	return true, nil
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
