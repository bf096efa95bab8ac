package metrics

import (
	"sort"
	"strings"

	"github.com/OpenRailStats/railperf/business/data/railperf"
	"github.com/OpenRailStats/railperf/business/network"
)

// Running time over a host railroad's territory is bounded by the first and final reporting
// point of a run inside that territory. Switching and terminal railroads are not reported
// on: their stops are reassigned to the adjacent line-haul host of the run.

// ComputeHostRunningTimes reports the mean and median of actual minus scheduled running
// time, in signed minutes, per route, train and host railroad. Groups with no complete run
// are omitted. net may be nil when no network description is available, in which case every
// host is treated as line-haul.
func ComputeHostRunningTimes(net *network.Network, events []railperf.StopEvent) []railperf.HostRunningTime {
	runs := make(map[string][]*railperf.StopEvent)
	var runKeys []string
	for i := range events {
		event := &events[i]
		key := event.RunKey()
		if _, ok := runs[key]; !ok {
			runKeys = append(runKeys, key)
		}
		runs[key] = append(runs[key], event)
	}
	sort.Strings(runKeys)

	type groupTally struct {
		row    *railperf.HostRunningTime
		deltas []float64
	}
	groups := make(map[string]*groupTally)
	var groupKeys []string

	for _, runKey := range runKeys {
		run := runs[runKey]
		sort.Slice(run, func(i, j int) bool {
			return run[i].ScheduledArrival.Before(run[j].ScheduledArrival)
		})
		hosts := effectiveHosts(net, run)

		for hostId, segment := range segmentEvents(run, hosts) {
			delta, ok := runningTimeDelta(segment)
			if !ok {
				continue
			}
			first := segment[0]
			key := strings.Join([]string{first.RouteId, first.TrainId, hostId}, "_")
			tally, found := groups[key]
			if !found {
				tally = &groupTally{row: &railperf.HostRunningTime{
					PeriodLabel: FormatYearQuarter(first.FiscalYear, first.FiscalQuarter),
					RouteId:     first.RouteId,
					TrainId:     first.TrainId,
					HostId:      hostId,
				}}
				groups[key] = tally
				groupKeys = append(groupKeys, key)
			}
			tally.deltas = append(tally.deltas, delta)
		}
	}
	sort.Strings(groupKeys)

	results := make([]railperf.HostRunningTime, 0, len(groupKeys))
	for _, key := range groupKeys {
		tally := groups[key]
		tally.row.Runs = len(tally.deltas)
		tally.row.MeanDeltaMinutes = round2(mean(tally.deltas))
		tally.row.MedianDeltaMinutes = round2(median(tally.deltas))
		results = append(results, *tally.row)
	}
	return results
}

// effectiveHosts resolves the host of each stop of a run, reassigning switching and terminal
// railroads to the nearest preceding line-haul host, or the nearest following one at the
// start of a run
func effectiveHosts(net *network.Network, run []*railperf.StopEvent) []string {
	hosts := make([]string, len(run))
	for i, event := range run {
		hosts[i] = event.HostId
	}
	if net == nil {
		return hosts
	}

	lastLineHaul := ""
	for i, event := range run {
		if net.IsLineHaul(event.RouteId, hosts[i]) {
			lastLineHaul = hosts[i]
			continue
		}
		hosts[i] = lastLineHaul
	}
	// stops before the first line-haul territory inherit the host that follows them
	nextLineHaul := ""
	for i := len(run) - 1; i >= 0; i-- {
		if hosts[i] != "" {
			nextLineHaul = hosts[i]
			continue
		}
		hosts[i] = nextLineHaul
	}
	return hosts
}

// segmentEvents groups a run's stops by effective host, preserving scheduled order inside
// each segment
func segmentEvents(run []*railperf.StopEvent, hosts []string) map[string][]*railperf.StopEvent {
	segments := make(map[string][]*railperf.StopEvent)
	for i, event := range run {
		if hosts[i] == "" {
			continue
		}
		segments[hosts[i]] = append(segments[hosts[i]], event)
	}
	return segments
}

// runningTimeDelta computes actual minus scheduled running time in minutes between the first
// and final reporting point of a segment. Returns false when the segment has fewer than two
// points or either bounding stop was cancelled.
func runningTimeDelta(segment []*railperf.StopEvent) (float64, bool) {
	if len(segment) < 2 {
		return 0, false
	}
	first := segment[0]
	final := segment[len(segment)-1]
	if first.Cancelled() || final.Cancelled() {
		return 0, false
	}
	actual := final.ActualArrival.Sub(*first.ActualArrival).Minutes()
	scheduled := final.ScheduledArrival.Sub(first.ScheduledArrival).Minutes()
	return actual - scheduled, true
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	middle := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[middle]
	}
	return (sorted[middle-1] + sorted[middle]) / 2
}
