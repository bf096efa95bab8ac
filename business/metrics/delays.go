package metrics

import (
	"sort"
	"strings"

	"github.com/OpenRailStats/railperf/business/data/railperf"
	"github.com/OpenRailStats/railperf/business/network"
)

// Delay minutes are attributed to the host-railroad territory of the stop they occurred at.
// Every record counts toward the total and exactly one root-cause bucket; the combined and
// non-Amtrak-host buckets are derived sums.

// SegmentKey identifies a route and host railroad territory
type SegmentKey struct {
	RouteId string
	HostId  string
}

// AggregateDelays buckets delay minutes by responsibility per route and host railroad.
// A host-responsible record under an unresolved dispute still counts in the host bucket and
// is additionally tracked as disputed-unresolved minutes when the host is not Amtrak; once
// resolved it counts in the host bucket alone.
func AggregateDelays(events []railperf.StopEvent) []railperf.DelayBuckets {
	groups := make(map[SegmentKey]*railperf.DelayBuckets)
	var keys []SegmentKey

	for i := range events {
		event := &events[i]
		if len(event.Delays) == 0 {
			continue
		}
		key := SegmentKey{RouteId: event.RouteId, HostId: event.HostId}
		row, ok := groups[key]
		if !ok {
			row = &railperf.DelayBuckets{
				PeriodLabel: FormatYearQuarter(event.FiscalYear, event.FiscalQuarter),
				RouteId:     event.RouteId,
				HostId:      event.HostId,
			}
			groups[key] = row
			keys = append(keys, key)
		}
		amtrakHost := strings.EqualFold(event.HostId, railperf.AmtrakReportingMark)

		for _, delay := range event.Delays {
			row.TotalMinutes += delay.Minutes
			switch delay.Category {
			case railperf.CategoryAmtrak:
				row.AmtrakMinutes += delay.Minutes
			case railperf.CategoryHost:
				row.HostMinutes += delay.Minutes
				if !amtrakHost {
					row.NonAmtrakHostMinutes += delay.Minutes
					if delay.Disputed && !delay.Resolved {
						row.DisputedUnresolvedMinutes += delay.Minutes
					}
				}
			case railperf.CategoryThirdParty:
				row.ThirdPartyMinutes += delay.Minutes
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RouteId != keys[j].RouteId {
			return keys[i].RouteId < keys[j].RouteId
		}
		return keys[i].HostId < keys[j].HostId
	})
	results := make([]railperf.DelayBuckets, 0, len(keys))
	for _, key := range keys {
		row := groups[key]
		row.CombinedMinutes = row.AmtrakMinutes + row.HostMinutes
		results = append(results, *row)
	}
	return results
}

// ComputeDelayRates normalizes Amtrak plus host responsible delay minutes per
// cfg.DelayRateBasisMiles train-miles for each route and host segment. A segment with zero
// train-miles reports an undefined rate rather than failing.
func ComputeDelayRates(cfg Config, buckets []railperf.DelayBuckets,
	trainMiles map[SegmentKey]float64) []railperf.DelayRate {

	results := make([]railperf.DelayRate, 0, len(buckets))
	for _, bucket := range buckets {
		miles := trainMiles[SegmentKey{RouteId: bucket.RouteId, HostId: bucket.HostId}]
		rate := railperf.DelayRate{
			PeriodLabel:        bucket.PeriodLabel,
			RouteId:            bucket.RouteId,
			HostId:             bucket.HostId,
			ResponsibleMinutes: bucket.CombinedMinutes,
			TrainMiles:         miles,
		}
		if miles > 0 {
			perBasis := round2(float64(bucket.CombinedMinutes) * cfg.DelayRateBasisMiles / miles)
			rate.PerTenThousandMiles = &perBasis
		}
		results = append(results, rate)
	}
	return results
}

// TrainMiles estimates train-miles operated per route and line-haul host territory in the
// period: territory miles times the number of runs that operated on the route. A run
// operated when at least one of its stops was not cancelled.
func TrainMiles(net *network.Network, events []railperf.StopEvent) map[SegmentKey]float64 {
	miles := make(map[SegmentKey]float64)
	if net == nil {
		return miles
	}

	operatedRuns := make(map[string]map[string]bool)
	for i := range events {
		event := &events[i]
		if event.Cancelled() {
			continue
		}
		if operatedRuns[event.RouteId] == nil {
			operatedRuns[event.RouteId] = make(map[string]bool)
		}
		operatedRuns[event.RouteId][event.RunKey()] = true
	}

	for routeId, runs := range operatedRuns {
		for hostId, territoryMiles := range net.LineHaulMiles(routeId) {
			key := SegmentKey{RouteId: routeId, HostId: hostId}
			miles[key] = territoryMiles * float64(len(runs))
		}
	}
	return miles
}
