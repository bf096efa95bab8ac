// Package railperf provides intercity passenger rail performance reporting
// types and related CRUD functionality
package railperf

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// AmtrakReportingMark identifies Amtrak when it appears as the host railroad of a stop,
// as on track segments Amtrak owns and dispatches itself.
const AmtrakReportingMark = "AMTK"

// ReportPeriodTransaction contains required data for recording new reporting records owned
// by a ReportPeriod
type ReportPeriodTransaction struct {
	Period ReportPeriod
	Tx     *sqlx.Tx
}

// ReportPeriod encompasses one quarterly performance report loaded from a source file.
// The same fiscal quarter may be loaded more than once as corrected files arrive.
// Each record loaded from a report file shares the ReportPeriod.Id value as part of its key.
type ReportPeriod struct {
	Id            int64      `db:"id"`
	FiscalYear    int        `db:"fiscal_year"`
	FiscalQuarter int        `db:"fiscal_quarter"`
	SourceFile    string     `db:"source_file"`
	LoadedAt      time.Time  `db:"loaded_at"`
	SavedAt       *time.Time `db:"saved_at"`
}

func (p ReportPeriod) String() string {
	return fmt.Sprintf("ReportPeriod Id:%d, fiscal:%dQ%d, source:%s loaded:%s savedAt:%s",
		p.Id, p.FiscalYear, p.FiscalQuarter, p.SourceFile, formatTime(&p.LoadedAt), formatTime(p.SavedAt))
}

// Label renders the period in the fiscal <year>Q<quarter> reporting format, e.g. 2024Q3
func (p ReportPeriod) Label() string {
	return fmt.Sprintf("%dQ%d", p.FiscalYear, p.FiscalQuarter)
}

func formatTime(time *time.Time) string {
	if time == nil {
		return ""
	}
	return time.Format("2006-01-02T15:04:05")
}

// SaveReportPeriod saves new or updates existing ReportPeriods. Existing records are
// determined by a non-zero ReportPeriod.Id
func SaveReportPeriod(tx *sqlx.Tx, period *ReportPeriod) error {
	statementString := "insert into report_period ( " +
		"fiscal_year, " +
		"fiscal_quarter, " +
		"source_file, " +
		"loaded_at, " +
		"saved_at) " +
		"values (" +
		":fiscal_year, " +
		":fiscal_quarter, " +
		":source_file, " +
		":loaded_at, " +
		":saved_at)"
	if period.Id != 0 {
		statementString = "update report_period set " +
			"fiscal_year = :fiscal_year, " +
			"fiscal_quarter = :fiscal_quarter, " +
			"source_file = :source_file, " +
			"loaded_at = :loaded_at, " +
			"saved_at = :saved_at " +
			" where id = :id"
	}

	statementString = tx.Rebind(statementString)
	_, err := tx.NamedExec(statementString, period)
	if err != nil {
		return err
	}
	// retrieve new id if zero
	if period.Id == 0 {
		statementString = tx.Rebind("SELECT id FROM report_period " +
			"where fiscal_year = ? " +
			"and fiscal_quarter = ? " +
			"and loaded_at = ? limit 1")
		err = tx.Get(&period.Id, statementString, period.FiscalYear, period.FiscalQuarter, period.LoadedAt)
		if err != nil {
			return err
		}
	}

	return err
}

// GetReportPeriod retrieves ReportPeriod with reportPeriodId
func GetReportPeriod(db *sqlx.DB, reportPeriodId int64) (*ReportPeriod, error) {
	query := "select * from report_period where id = $1"
	period := ReportPeriod{}
	err := db.Get(&period, db.Rebind(query), reportPeriodId)
	return &period, err
}

// GetLatestSavedReportPeriod retrieves the latest ReportPeriod with a saved_at date
func GetLatestSavedReportPeriod(db *sqlx.DB) (*ReportPeriod, error) {
	query := "select * from report_period where saved_at is not null " +
		"order by fiscal_year desc, fiscal_quarter desc, loaded_at desc limit 1"
	period := ReportPeriod{}
	err := db.Get(&period, query)
	return &period, err
}

// GetAllReportPeriods retrieves all ReportPeriods currently loaded
func GetAllReportPeriods(db *sqlx.DB) ([]ReportPeriod, error) {
	query := "select * from report_period order by fiscal_year, fiscal_quarter"
	var results []ReportPeriod
	err := db.Select(&results, query)
	return results, err
}
