package metrics

import (
	"sort"
	"strings"

	"github.com/OpenRailStats/railperf/business/data/railperf"
)

// Station performance counts detraining customers per route, train and station. An arrival
// is late when its lateness exceeds the on-time threshold. The average minutes late is
// computed over the late arrivals only; on-time arrivals are excluded from the average
// entirely, not clamped to zero. Cancelled stops never enter any count.

// AggregateStationPerformance produces one StationPerformance row per route, train and
// station group observed in events
func AggregateStationPerformance(cfg Config, events []railperf.StopEvent) []railperf.StationPerformance {
	type lateTally struct {
		row         *railperf.StationPerformance
		lateMinutes float64
	}
	groups := make(map[string]*lateTally)
	var keys []string

	for i := range events {
		event := &events[i]
		delta := event.ArrivalDeltaMinutes()
		if delta == nil {
			continue
		}
		key := strings.Join([]string{event.RouteId, event.TrainId, event.StationCode}, "_")
		tally, ok := groups[key]
		if !ok {
			tally = &lateTally{row: &railperf.StationPerformance{
				PeriodLabel: FormatYearQuarter(event.FiscalYear, event.FiscalQuarter),
				RouteId:     event.RouteId,
				TrainId:     event.TrainId,
				StationCode: event.StationCode,
			}}
			groups[key] = tally
			keys = append(keys, key)
		}
		tally.row.Arrivals++
		tally.row.DetrainingTotal += event.DetrainingCount
		if *delta > cfg.OnTimeThresholdMinutes {
			tally.row.LateArrivals++
			tally.row.LateDetrainingTotal += event.DetrainingCount
			tally.lateMinutes += *delta
		}
	}
	sort.Strings(keys)

	results := make([]railperf.StationPerformance, 0, len(keys))
	for _, key := range keys {
		tally := groups[key]
		row := tally.row
		if row.LateArrivals > 0 {
			avg := round2(tally.lateMinutes / float64(row.LateArrivals))
			row.AvgMinutesLate = &avg
		}
		if row.DetrainingTotal > 0 {
			ratio := round4(float64(row.LateDetrainingTotal) / float64(row.DetrainingTotal))
			row.LateRatio = &ratio
		}
		results = append(results, *row)
	}
	return results
}

// SummarizeStationPerformance rolls station performance up to one system level row for the
// period
func SummarizeStationPerformance(cfg Config, events []railperf.StopEvent) railperf.StationSummary {
	summary := railperf.StationSummary{}
	lateArrivals := 0
	lateMinutes := 0.0

	for i := range events {
		event := &events[i]
		delta := event.ArrivalDeltaMinutes()
		if delta == nil {
			continue
		}
		if summary.PeriodLabel == "" {
			summary.PeriodLabel = FormatYearQuarter(event.FiscalYear, event.FiscalQuarter)
		}
		summary.Arrivals++
		summary.DetrainingTotal += event.DetrainingCount
		if *delta > cfg.OnTimeThresholdMinutes {
			summary.LateDetrainingTotal += event.DetrainingCount
			lateArrivals++
			lateMinutes += *delta
		}
	}

	summary.OnTimeDetrainingTotal = summary.DetrainingTotal - summary.LateDetrainingTotal
	if summary.DetrainingTotal > 0 {
		ratio := round4(float64(summary.LateDetrainingTotal) / float64(summary.DetrainingTotal))
		summary.LateRatio = &ratio
	}
	if lateArrivals > 0 {
		mean := round2(lateMinutes / float64(lateArrivals))
		summary.MeanAvgMinutesLate = &mean
	}
	return summary
}

// TopDetrainingStations ranks the n busiest stations by total detraining customers across
// the supplied StationPerformance rows
func TopDetrainingStations(rows []railperf.StationPerformance, n int) []railperf.StationRank {
	totals := make(map[string]int)
	var codes []string
	for _, row := range rows {
		if _, ok := totals[row.StationCode]; !ok {
			codes = append(codes, row.StationCode)
		}
		totals[row.StationCode] += row.DetrainingTotal
	}
	sort.Slice(codes, func(i, j int) bool {
		if totals[codes[i]] != totals[codes[j]] {
			return totals[codes[i]] > totals[codes[j]]
		}
		return codes[i] < codes[j]
	})

	if n > len(codes) {
		n = len(codes)
	}
	ranks := make([]railperf.StationRank, 0, n)
	for _, code := range codes[:n] {
		ranks = append(ranks, railperf.StationRank{StationCode: code, DetrainingTotal: totals[code]})
	}
	return ranks
}
