// Package metricsvc serves the computed quarterly performance metric tables over http
package metricsvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	logger "log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OpenRailStats/railperf/business/data/railperf"
	"github.com/OpenRailStats/railperf/business/metrics"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
)

// defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

// ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

// metricsApi holds data needed to respond and log metric table requests
type metricsApi struct {
	log *logger.Logger
	db  *sqlx.DB
}

// makeMetricsApi creates metricsApi
func makeMetricsApi(log *logger.Logger, db *sqlx.DB) *metricsApi {
	return &metricsApi{
		log: log,
		db:  db,
	}
}

// jsonMetricResponse wraps one metric table with the report period it was computed for
type jsonMetricResponse struct {
	ReportPeriodId int64       `json:"report_period_id"`
	PeriodLabel    string      `json:"period_label"`
	Rows           interface{} `json:"rows"`
}

// resolvePeriod finds the ReportPeriod a request asks for via the period parameter, falling
// back to the latest saved period
func (m *metricsApi) resolvePeriod(r *http.Request) (*railperf.ReportPeriod, error) {
	periodParam := r.FormValue("period")
	if len(periodParam) > 0 {
		reportPeriodId, err := strconv.ParseInt(periodParam, 10, 64)
		if err != nil {
			return nil, err
		}
		return railperf.GetReportPeriod(m.db, reportPeriodId)
	}
	return railperf.GetLatestSavedReportPeriod(m.db)
}

// serveTable responds with one metric table wrapped in a jsonMetricResponse
func (m *metricsApi) serveTable(w http.ResponseWriter, r *http.Request,
	load func(reportPeriodId int64) (interface{}, error)) {

	period, err := m.resolvePeriod(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "no report period found", http.StatusNotFound)
			return
		}
		m.log.Printf("Error resolving report period: %v", err)
		http.Error(w, "Error serving request", http.StatusBadRequest)
		return
	}
	rows, err := load(period.Id)
	if err != nil {
		m.log.Printf("Error loading metric table for period %d: %v", period.Id, err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	m.writeJSON(w, jsonMetricResponse{
		ReportPeriodId: period.Id,
		PeriodLabel:    period.Label(),
		Rows:           rows,
	})
}

func (m *metricsApi) writeJSON(w http.ResponseWriter, payload interface{}) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		m.log.Printf("Error marshaling response to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	byteCount, err := w.Write(jsonData)
	if err != nil {
		m.log.Printf("Error writing json response: %s", err)
		return
	}
	m.log.Printf("wrote %d bytes in json response.", byteCount)
}

func (m *metricsApi) periods(w http.ResponseWriter, _ *http.Request) {
	periods, err := railperf.GetAllReportPeriods(m.db)
	if err != nil {
		m.log.Printf("Error loading report periods: %v", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	m.writeJSON(w, periods)
}

func (m *metricsApi) otp(w http.ResponseWriter, r *http.Request) {
	m.serveTable(w, r, func(reportPeriodId int64) (interface{}, error) {
		return railperf.GetOTP(m.db, reportPeriodId)
	})
}

func (m *metricsApi) stations(w http.ResponseWriter, r *http.Request) {
	m.serveTable(w, r, func(reportPeriodId int64) (interface{}, error) {
		return railperf.GetStationPerformance(m.db, reportPeriodId)
	})
}

// busiestStations ranks stations by detraining customers, limited by the n parameter
func (m *metricsApi) busiestStations(w http.ResponseWriter, r *http.Request) {
	n := 10
	if nParam := r.FormValue("n"); len(nParam) > 0 {
		parsed, err := strconv.Atoi(nParam)
		if err != nil || parsed < 1 {
			http.Error(w, "parameter n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	m.serveTable(w, r, func(reportPeriodId int64) (interface{}, error) {
		rows, err := railperf.GetStationPerformance(m.db, reportPeriodId)
		if err != nil {
			return nil, err
		}
		return metrics.TopDetrainingStations(rows, n), nil
	})
}

// jsonComplianceResponse reports a route's quarterly OTP history against the on-time standard
type jsonComplianceResponse struct {
	RouteId   string             `json:"route_id"`
	Quarters  []jsonQuarterlyOTP `json:"quarters"`
	Compliant bool               `json:"compliant"`
}

type jsonQuarterlyOTP struct {
	PeriodLabel string  `json:"period_label"`
	OTPPercent  float64 `json:"otp_percent"`
}

// otpCompliance evaluates a route's recorded quarterly OTP rollups in chronological order,
// failing when any two consecutive quarters fall below the standard
func (m *metricsApi) otpCompliance(w http.ResponseWriter, r *http.Request) {
	routeId := r.FormValue("route")
	if len(routeId) == 0 {
		http.Error(w, "parameter route is required", http.StatusBadRequest)
		return
	}

	periods, err := railperf.GetAllReportPeriods(m.db)
	if err != nil {
		m.log.Printf("Error loading report periods: %v", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	response := jsonComplianceResponse{RouteId: routeId}
	var quarterlyOTP []float64
	for _, period := range periods {
		if period.SavedAt == nil {
			continue
		}
		rows, err := railperf.GetOTP(m.db, period.Id)
		if err != nil {
			m.log.Printf("Error loading otp rows for period %d: %v", period.Id, err)
			http.Error(w, "Error serving request", http.StatusInternalServerError)
			return
		}
		for _, row := range rows {
			if row.TrainId == "" && row.RouteId == routeId {
				quarterlyOTP = append(quarterlyOTP, row.OTPPercent)
				response.Quarters = append(response.Quarters, jsonQuarterlyOTP{
					PeriodLabel: row.PeriodLabel,
					OTPPercent:  row.OTPPercent,
				})
			}
		}
	}

	compliant, err := metrics.CheckOTPCompliance(metrics.DefaultConfig(), quarterlyOTP)
	if err != nil {
		var insufficient *metrics.InsufficientDataError
		if errors.As(err, &insufficient) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.log.Printf("Error checking otp compliance for route %s: %v", routeId, err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	response.Compliant = compliant
	m.writeJSON(w, response)
}

func (m *metricsApi) runningTimes(w http.ResponseWriter, r *http.Request) {
	m.serveTable(w, r, func(reportPeriodId int64) (interface{}, error) {
		return railperf.GetHostRunningTimes(m.db, reportPeriodId)
	})
}

func (m *metricsApi) delays(w http.ResponseWriter, r *http.Request) {
	m.serveTable(w, r, func(reportPeriodId int64) (interface{}, error) {
		return railperf.GetDelayBuckets(m.db, reportPeriodId)
	})
}

func (m *metricsApi) delayRates(w http.ResponseWriter, r *http.Request) {
	m.serveTable(w, r, func(reportPeriodId int64) (interface{}, error) {
		return railperf.GetDelayRates(m.db, reportPeriodId)
	})
}

// createServer creates configured http.Server for responding to metric table requests
func createServer(log *logger.Logger, db *sqlx.DB, httpPort int) *http.Server {
	api := makeMetricsApi(log, db)

	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.HandleFunc("/periods", api.periods)
	r.HandleFunc("/otp", api.otp)
	r.HandleFunc("/otp/compliance", api.otpCompliance)
	r.HandleFunc("/stations", api.stations)
	r.HandleFunc("/stations/busiest", api.busiestStations)
	r.HandleFunc("/running-times", api.runningTimes)
	r.HandleFunc("/delays", api.delays)
	r.HandleFunc("/delay-rates", api.delayRates)
	srv := &http.Server{
		Addr: strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		// Good practice to set timeouts to avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
	return srv
}

// RunWebService starts up the metric table web service, and terminates on shutdown signal
func RunWebService(log *logger.Logger,
	db *sqlx.DB,
	httpPort int,
	shutdownSignal chan os.Signal) {

	srv := createServer(log, db, httpPort)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()

	select {
	case <-shutdownSignal:
		log.Printf("ending webservice on shutdown signal")
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			log.Printf("error shutting down webservice, error:%s", err)
		}
	}
}
