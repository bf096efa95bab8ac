package main

import (
	"fmt"
	logger "log"
	"os"
	"strconv"

	"github.com/OpenRailStats/railperf/app/metrics-calc/calc"
	"github.com/OpenRailStats/railperf/business/metrics"
	"github.com/OpenRailStats/railperf/business/network"
	"github.com/OpenRailStats/railperf/foundation/database"
	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "METRICS_CALC : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
		NATS struct {
			Url string `conf:"default:nats://localhost:4222"`
		}
		Network struct {
			FilePath string `conf:"default:network.yaml"`
		}
		Metrics struct {
			OnTimeThresholdMinutes float64 `conf:"default:15"`
			OTPStandardPercent     float64 `conf:"default:80"`
			DelayRateBasisMiles    float64 `conf:"default:10000"`
			RouteId                string
			FiscalYear             int
			RecordToDatabase       bool `conf:"default:true"`
			PublishOverNats        bool `conf:"default:true"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Calculate quarterly rail performance metric tables"
	const prefix = "METRICS_CALC"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
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

	// =========================================================================
	// Connect NATS

	var natsConn *nats.Conn
	if cfg.Metrics.PublishOverNats {
		log.Printf("main: Connecting to NATS at %s", cfg.NATS.Url)
		natsConn, err = nats.Connect(cfg.NATS.Url)
		if err != nil {
			return fmt.Errorf("connecting to nats at %s: %w", cfg.NATS.Url, err)
		}
		defer natsConn.Close()
	}

	// =========================================================================
	// Load network description

	log.Printf("main: Loading network description from %s", cfg.Network.FilePath)
	net, err := network.Load(cfg.Network.FilePath)
	if err != nil {
		return fmt.Errorf("loading network description: %w", err)
	}

	// optional report period id argument, defaults to the latest saved period
	var reportPeriodId int64
	if periodIdString := cfg.Args.Num(0); len(periodIdString) > 0 {
		reportPeriodId, err = strconv.ParseInt(periodIdString, 10, 64)
		if err != nil {
			return fmt.Errorf("unable to parse report period Id %s, error: %w", periodIdString, err)
		}
	}

	_, err = calc.RunMetricsCalculation(log, db, natsConn, net, calc.Conf{
		ReportPeriodId: reportPeriodId,
		RouteId:        cfg.Metrics.RouteId,
		FiscalYear:     cfg.Metrics.FiscalYear,
		MetricsConfig: metrics.Config{
			OnTimeThresholdMinutes: cfg.Metrics.OnTimeThresholdMinutes,
			OTPStandardPercent:     cfg.Metrics.OTPStandardPercent,
			DelayRateBasisMiles:    cfg.Metrics.DelayRateBasisMiles,
		},
		RecordToDatabase: cfg.Metrics.RecordToDatabase,
		PublishOverNats:  cfg.Metrics.PublishOverNats,
	})
	return err
}
