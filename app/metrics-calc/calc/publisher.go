package calc

import (
	"encoding/json"
	"log"

	"github.com/OpenRailStats/railperf/business/data/railperf"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

// metricsResultsPublisher takes metric tables computed by a calculation run and sends them to
// their destinations (such as database and nats)
type metricsResultsPublisher struct {
	log              *log.Logger
	db               *sqlx.DB
	natsConnection   *nats.Conn
	recordToDatabase bool
	publishOverNats  bool
}

// makeMetricsResultsPublisher creates metricsResultsPublisher
func makeMetricsResultsPublisher(log *log.Logger,
	db *sqlx.DB,
	natsConnection *nats.Conn,
	recordToDatabase bool,
	publishOverNats bool) *metricsResultsPublisher {
	return &metricsResultsPublisher{
		log:              log,
		db:               db,
		natsConnection:   natsConnection,
		recordToDatabase: recordToDatabase,
		publishOverNats:  publishOverNats,
	}
}

// publish sends MetricsResults over NATS and records them to the database according to
// publishOverNats and recordToDatabase
func (p *metricsResultsPublisher) publish(results *MetricsResults) {
	p.log.Printf("Computed %d otp rows, %d station rows, %d running time rows, "+
		"%d delay bucket rows, %d delay rate rows for period %s",
		len(results.OTP), len(results.StationPerformance), len(results.HostRunningTimes),
		len(results.DelayBuckets), len(results.DelayRates), results.Period.Label())
	if p.publishOverNats {
		p.sendOverNats(results)
	}
	if p.recordToDatabase {
		p.record(results)
	}
}

func (p *metricsResultsPublisher) sendOverNats(results *MetricsResults) {
	subjects := []struct {
		subject string
		payload interface{}
	}{
		{subject: "metrics.otp", payload: results.OTP},
		{subject: "metrics.station-performance", payload: results.StationPerformance},
		{subject: "metrics.station-summary", payload: results.StationSummary},
		{subject: "metrics.host-running-times", payload: results.HostRunningTimes},
		{subject: "metrics.delay-buckets", payload: results.DelayBuckets},
		{subject: "metrics.delay-rates", payload: results.DelayRates},
	}
	for _, message := range subjects {
		jsonData, err := json.Marshal(message.payload)
		if err != nil {
			p.log.Printf("failed to marshal results for subject %s in "+
				"metricsResultsPublisher.sendOverNats, error:%v", message.subject, err)
			continue
		}
		err = p.natsConnection.Publish(message.subject, jsonData)
		if err != nil {
			p.log.Printf("failed to send results on subject %s in "+
				"metricsResultsPublisher.sendOverNats, error:%v", message.subject, err)
		}
	}
}

func (p *metricsResultsPublisher) record(results *MetricsResults) {
	reportPeriodId := results.Period.Id
	err := railperf.RecordOTP(results.OTP, reportPeriodId, p.db)
	if err != nil {
		p.log.Printf("failed to record %d otp rows, error:%v", len(results.OTP), err)
	}
	err = railperf.RecordStationPerformance(results.StationPerformance, reportPeriodId, p.db)
	if err != nil {
		p.log.Printf("failed to record %d station performance rows, error:%v",
			len(results.StationPerformance), err)
	}
	err = railperf.RecordHostRunningTimes(results.HostRunningTimes, reportPeriodId, p.db)
	if err != nil {
		p.log.Printf("failed to record %d host running time rows, error:%v",
			len(results.HostRunningTimes), err)
	}
	err = railperf.RecordDelayBuckets(results.DelayBuckets, reportPeriodId, p.db)
	if err != nil {
		p.log.Printf("failed to record %d delay bucket rows, error:%v",
			len(results.DelayBuckets), err)
	}
	err = railperf.RecordDelayRates(results.DelayRates, reportPeriodId, p.db)
	if err != nil {
		p.log.Printf("failed to record %d delay rate rows, error:%v",
			len(results.DelayRates), err)
	}
}
