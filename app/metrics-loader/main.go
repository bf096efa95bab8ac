package main

import (
	"fmt"
	logger "log"
	"os"
	"strconv"

	"github.com/OpenRailStats/railperf/app/metrics-loader/reportmanager"
	"github.com/OpenRailStats/railperf/foundation/database"
	"github.com/ardanlabs/conf"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "METRICS_LOADER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Maintain quarterly rail performance report periods in database"
	if err := conf.Parse(os.Args[1:], "METRICS_LOADER", &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage("METRICS_LOADER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString("METRICS_LOADER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		err = db.Close()
		if err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	switch cfg.Args.Num(0) {
	case "load":
		reportFilePath := cfg.Args.Num(1)
		if len(reportFilePath) < 1 {
			return fmt.Errorf("expected report file path with command load")
		}
		_, err = reportmanager.LoadReportFile(log, db, reportFilePath)
		if err != nil {
			return err
		}
		return reportmanager.ListReportPeriods(db)
	case "delete":
		reportPeriodIdString := cfg.Args.Num(1)
		if len(reportPeriodIdString) < 1 {
			return fmt.Errorf("expected report period id with command delete")
		}
		reportPeriodId, err := strconv.ParseInt(reportPeriodIdString, 10, 64)
		if err != nil {
			return fmt.Errorf("unable to parse report period Id %s, error: %w", reportPeriodIdString, err)
		}
		return reportmanager.DeleteReportPeriod(log, db, reportPeriodId)

	case "list":
		return reportmanager.ListReportPeriods(db)

	default:
		fmt.Println("load: load a quarterly report csv file into a new report period")
		fmt.Println("delete: remove a report period and its records from the database")
		fmt.Println("list: list all report periods in the database")
		usage, err := conf.Usage("METRICS_LOADER", &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		fmt.Println(usage)

	}
	return nil
}
