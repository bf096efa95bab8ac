// Package reportmanager provides support for reading, parsing, deleting and saving quarterly
// performance report files to a database
package reportmanager

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenRailStats/railperf/business/data/railperf"
	"github.com/OpenRailStats/railperf/business/metrics"
	"github.com/jmoiron/sqlx"
)

// LoadReportFile parses the csv report file at reportFilePath and saves its stop events under
// a new ReportPeriod, wrapped inside a single transaction
func LoadReportFile(log *log.Logger, db *sqlx.DB, reportFilePath string) (*railperf.ReportPeriod, error) {
	file, err := os.Open(reportFilePath)
	if err != nil {
		return nil, fmt.Errorf("unable to open report file %s: %w", reportFilePath, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("Unable to close report file %s. error:%v", reportFilePath, closeErr)
		}
	}()

	rows, err := readReportRows(log, file, filepath.Base(reportFilePath))
	if err != nil {
		return nil, err
	}

	events, warnings, err := metrics.NormalizeRecords(rows)
	if err != nil {
		return nil, err
	}
	for _, warning := range warnings {
		log.Printf("Dropped or partial record: %v", warning)
	}

	fiscalYear, fiscalQuarter, err := singleFiscalQuarter(events)
	if err != nil {
		return nil, err
	}

	period := railperf.ReportPeriod{
		FiscalYear:    fiscalYear,
		FiscalQuarter: fiscalQuarter,
		SourceFile:    filepath.Base(reportFilePath),
		LoadedAt:      time.Now(),
	}
	err = transact(log, db, func(tx *sqlx.Tx) error {
		err := railperf.SaveReportPeriod(tx, &period)
		if err != nil {
			return err
		}

		periodTx := railperf.ReportPeriodTransaction{
			Period: period,
			Tx:     tx,
		}

		eventPointers := make([]*railperf.StopEvent, 0, len(events))
		for i := range events {
			eventPointers = append(eventPointers, &events[i])
		}
		err = railperf.RecordStopEvents(eventPointers, &periodTx)
		if err != nil {
			return err
		}

		now := time.Now()
		period.SavedAt = &now
		return railperf.SaveReportPeriod(tx, &period)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Loaded %d stop events into %v", len(events), period)
	log.Printf("Filing deadline for %s is %s",
		period.Label(), metrics.FilingDeadline(fiscalYear, fiscalQuarter).Format("2006-01-02"))
	return &period, nil
}

// readReportRows parses every line of a report file into RawStopRecords. Lines that cannot be
// parsed are skipped with a log line rather than failing the load.
func readReportRows(log *log.Logger, r io.Reader, filename string) ([]metrics.RawStopRecord, error) {
	parser, err := makeReportFileParser(r, filename)
	if err != nil {
		return nil, err
	}
	var rows []metrics.RawStopRecord
	for {
		err = parser.nextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading report file %s at line %d: %w", filename, parser.line, err)
		}
		row := metrics.RawStopRecord{
			TrainId:          parser.getString("train_id", false),
			RouteId:          parser.getString("route_id", false),
			HostId:           parser.getString("host_id", true),
			StationCode:      parser.getString("station_code", false),
			ScheduledArrival: parser.getTimestampPointer("scheduled_arrival", true),
			ActualArrival:    parser.getTimestampPointer("actual_arrival", true),
			DetrainingCount:  parser.getIntPointer("detraining_count", true),
			DelayCode:        parser.getString("delay_code", true),
			ResponsibleParty: parser.getString("responsible_party", true),
			DelayMinutes:     parser.getIntPointer("delay_minutes", true),
			Disputed:         parser.getBool("disputed", true),
			Resolved:         parser.getBool("resolved", true),
		}
		if lineErr := parser.getError(); lineErr != nil {
			log.Printf("Skipping unparsable line: %v", lineErr)
			parser.clearLineErrors()
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// singleFiscalQuarter verifies every stop event of a report file falls in one fiscal quarter,
// the quarter the file reports on
func singleFiscalQuarter(events []railperf.StopEvent) (int, int, error) {
	if len(events) == 0 {
		return 0, 0, fmt.Errorf("report file produced no loadable stop events")
	}
	fiscalYear := events[0].FiscalYear
	fiscalQuarter := events[0].FiscalQuarter
	for _, event := range events {
		if event.FiscalYear != fiscalYear || event.FiscalQuarter != fiscalQuarter {
			return 0, 0, fmt.Errorf("report file spans fiscal quarters %s and %s, expected a single quarter",
				metrics.FormatYearQuarter(fiscalYear, fiscalQuarter),
				metrics.FormatYearQuarter(event.FiscalYear, event.FiscalQuarter))
		}
	}
	return fiscalYear, fiscalQuarter, nil
}

// DeleteReportPeriod deletes all reporting records associated with railperf.ReportPeriod
// with reportPeriodId
func DeleteReportPeriod(log *log.Logger, db *sqlx.DB, reportPeriodId int64) error {
	period, err := railperf.GetReportPeriod(db, reportPeriodId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no ReportPeriod found with id %d", reportPeriodId)
		}
		return err
	}
	err = transact(log, db, func(tx *sqlx.Tx) error {
		log.Printf("Removing reportPeriod %v", period)
		deleteStatements := []struct {
			query string
			name  string
		}{
			{
				name:  "delay_record",
				query: "delete from delay_record where report_period_id = ?",
			},
			{
				name:  "stop_event",
				query: "delete from stop_event where report_period_id = ?",
			},
			{
				name:  "otp",
				query: "delete from otp where report_period_id = ?",
			},
			{
				name:  "station_performance",
				query: "delete from station_performance where report_period_id = ?",
			},
			{
				name:  "host_running_time",
				query: "delete from host_running_time where report_period_id = ?",
			},
			{
				name:  "delay_buckets",
				query: "delete from delay_buckets where report_period_id = ?",
			},
			{
				name:  "delay_rate",
				query: "delete from delay_rate where report_period_id = ?",
			},
			{
				name:  "report_period",
				query: "delete from report_period where id = ?",
			},
		}
		for _, deleteStatement := range deleteStatements {
			stmt, innerErr := tx.Prepare(tx.Rebind(deleteStatement.query))
			if innerErr != nil {
				return fmt.Errorf("error running '%s' error:%w", deleteStatement.query, innerErr)
			}
			result, innerErr := stmt.Exec(period.Id)
			if innerErr != nil {
				return fmt.Errorf("error running '%s' error:%w", deleteStatement.query, innerErr)
			}
			rows, innerErr := result.RowsAffected()
			if innerErr != nil {
				return fmt.Errorf("error retrieving rows affected after '%s' error:%w", deleteStatement.query, innerErr)
			}
			log.Printf("Deleted %d lines from %s\n", rows, deleteStatement.name)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("Deleted ReportPeriod %v", period)
	return nil
}

// ListReportPeriods displays a list of all ReportPeriods
func ListReportPeriods(db *sqlx.DB) error {
	fmt.Println("Loaded ReportPeriods:")
	periods, err := railperf.GetAllReportPeriods(db)
	if err != nil {
		return err
	}
	for _, period := range periods {
		fmt.Println(period)
	}
	return nil
}

/*
transact starts a Transaction on sqlx.DB, calls txFunc and commits or rolls back the transaction
depending on the return code of the txFunc result
*/
func transact(log *log.Logger, db *sqlx.DB, txFunc func(*sqlx.Tx) error) (err error) {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback() // err is non-nil; don't change it
			if rollbackErr != nil {
				log.Printf("Received error while attempting to rollback transaction. error:%v", rollbackErr)
			}
			return
		}
		err = tx.Commit() // err is nil; if Commit returns error update err
	}()
	err = txFunc(tx)
	return err
}
