package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/dismissal"
	"github.com/trezcool/dismissal/core/metrics"
	"github.com/trezcool/dismissal/services/email"
	logsvc "github.com/trezcool/dismissal/services/logger"
	"github.com/trezcool/dismissal/storage/database"
	sqlxrepos "github.com/trezcool/dismissal/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	if err := core.ValidateThresholds(validate, conf.Quality); err != nil {
		logger.Fatal("invalid quality thresholds", err)
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	eventRepo := sqlxrepos.NewEventRepository(db)
	store := sqlxrepos.NewMetricsStore(db)

	// start CLI
	cli := commandLine{
		conf:         conf,
		db:           db.DB,
		dismissalSvc: dismissal.NewService(eventRepo, conf.Quality, logger, nil),
		metricsSvc: metrics.NewService(
			store,
			metrics.NewAggregator(eventRepo, store, conf.Quality, logger, nil),
			conf.Quality,
			logger,
		),
		mailSvc: mailSvc,
		logger:  logger,
		in:      os.Stdin,
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			log.Printf("\nerror: %s\n", err)
		}
		db.Close()
		os.Exit(1)
	}
}
