// Package calc computes the quarterly performance metric tables from the stop events of a
// report period and delivers the results to their destinations
package calc

import (
	"fmt"
	logger "log"
	"sync"

	"github.com/OpenRailStats/railperf/business/data/railperf"
	"github.com/OpenRailStats/railperf/business/metrics"
	"github.com/OpenRailStats/railperf/business/network"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

// Conf contains all configurable parameters in calc
type Conf struct {
	ReportPeriodId   int64
	RouteId          string
	FiscalYear       int
	Quarters         []int
	MetricsConfig    metrics.Config
	RecordToDatabase bool
	PublishOverNats  bool
}

// MetricsResults holds the five computed metric tables of a report period plus the system
// level station rollup
type MetricsResults struct {
	Period             railperf.ReportPeriod         `json:"period"`
	OTP                []railperf.OTP                `json:"otp"`
	StationPerformance []railperf.StationPerformance `json:"station_performance"`
	StationSummary     railperf.StationSummary       `json:"station_summary"`
	HostRunningTimes   []railperf.HostRunningTime    `json:"host_running_times"`
	DelayBuckets       []railperf.DelayBuckets       `json:"delay_buckets"`
	DelayRates         []railperf.DelayRate          `json:"delay_rates"`
}

// RunMetricsCalculation loads the stop events of a report period, computes all metric tables
// and publishes the results. A zero Conf.ReportPeriodId selects the latest saved period.
func RunMetricsCalculation(log *logger.Logger,
	db *sqlx.DB,
	natsConn *nats.Conn,
	net *network.Network,
	conf Conf) (*MetricsResults, error) {

	period, err := resolvePeriod(db, conf.ReportPeriodId)
	if err != nil {
		return nil, err
	}
	log.Printf("Calculating metrics for %v", period)

	filter := railperf.EventFilter{
		RouteId:    conf.RouteId,
		FiscalYear: conf.FiscalYear,
		Quarters:   conf.Quarters,
	}
	events, err := railperf.GetStopEvents(db, period.Id, filter)
	if err != nil {
		return nil, fmt.Errorf("loading stop events for period %d: %w", period.Id, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no stop events found for period %d with filter %+v", period.Id, filter)
	}
	log.Printf("Loaded %d stop events", len(events))

	results := computeMetricTables(conf.MetricsConfig, net, *period, events)

	logStandardShortfalls(log, conf.MetricsConfig, results.OTP)

	publisher := makeMetricsResultsPublisher(log, db, natsConn, conf.RecordToDatabase, conf.PublishOverNats)
	publisher.publish(results)
	return results, nil
}

// computeMetricTables runs the five metric calculations, each independent of the others, in
// parallel and assembles a MetricsResults stamped with the report period
func computeMetricTables(cfg metrics.Config,
	net *network.Network,
	period railperf.ReportPeriod,
	events []railperf.StopEvent) *MetricsResults {

	results := MetricsResults{Period: period}

	wg := sync.WaitGroup{}
	wg.Add(5)
	go func() {
		defer wg.Done()
		results.OTP = append(metrics.ComputeRouteOTP(cfg, events), metrics.ComputeTrainOTP(cfg, events)...)
	}()
	go func() {
		defer wg.Done()
		results.StationPerformance = metrics.AggregateStationPerformance(cfg, events)
		results.StationSummary = metrics.SummarizeStationPerformance(cfg, events)
	}()
	go func() {
		defer wg.Done()
		results.HostRunningTimes = metrics.ComputeHostRunningTimes(net, events)
	}()
	buckets := make(chan []railperf.DelayBuckets, 1)
	go func() {
		defer wg.Done()
		delayBuckets := metrics.AggregateDelays(events)
		results.DelayBuckets = delayBuckets
		buckets <- delayBuckets
	}()
	go func() {
		defer wg.Done()
		trainMiles := metrics.TrainMiles(net, events)
		results.DelayRates = metrics.ComputeDelayRates(cfg, <-buckets, trainMiles)
	}()
	wg.Wait()

	stampReportPeriodId(&results, period.Id)
	return &results
}

// stampReportPeriodId marks every computed row with the report period it belongs to
func stampReportPeriodId(results *MetricsResults, reportPeriodId int64) {
	for i := range results.OTP {
		results.OTP[i].ReportPeriodId = reportPeriodId
	}
	for i := range results.StationPerformance {
		results.StationPerformance[i].ReportPeriodId = reportPeriodId
	}
	for i := range results.HostRunningTimes {
		results.HostRunningTimes[i].ReportPeriodId = reportPeriodId
	}
	for i := range results.DelayBuckets {
		results.DelayBuckets[i].ReportPeriodId = reportPeriodId
	}
	for i := range results.DelayRates {
		results.DelayRates[i].ReportPeriodId = reportPeriodId
	}
}

// logStandardShortfalls notes route level OTP rows that fall below the on-time standard
func logStandardShortfalls(log *logger.Logger, cfg metrics.Config, otp []railperf.OTP) {
	for _, row := range otp {
		if row.TrainId != "" {
			continue
		}
		if row.OTPPercent < cfg.OTPStandardPercent {
			log.Printf("Route %s OTP %.1f%% is below the %.0f%% standard for %s",
				row.RouteId, row.OTPPercent, cfg.OTPStandardPercent, row.PeriodLabel)
		}
	}
}

// resolvePeriod retrieves the requested ReportPeriod, or the latest saved one when
// reportPeriodId is zero
func resolvePeriod(db *sqlx.DB, reportPeriodId int64) (*railperf.ReportPeriod, error) {
	if reportPeriodId != 0 {
		period, err := railperf.GetReportPeriod(db, reportPeriodId)
		if err != nil {
			return nil, fmt.Errorf("retrieving report period %d: %w", reportPeriodId, err)
		}
		return period, nil
	}
	period, err := railperf.GetLatestSavedReportPeriod(db)
	if err != nil {
		return nil, fmt.Errorf("retrieving latest saved report period: %w", err)
	}
	return period, nil
}
