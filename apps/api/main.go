package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/seatplan/apps/api/echo"
	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/core/classroom"
	"github.com/trezcool/seatplan/core/ghost"
	"github.com/trezcool/seatplan/core/mailing"
	"github.com/trezcool/seatplan/core/transfer"
	"github.com/trezcool/seatplan/core/user"
	emailsvc "github.com/trezcool/seatplan/services/email"
	logsvc "github.com/trezcool/seatplan/services/logger"
	metricsvc "github.com/trezcool/seatplan/services/metrics"
	"github.com/trezcool/seatplan/storage/database"
	sqlxrepos "github.com/trezcool/seatplan/storage/database/sqlx"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// run returns instead of exiting so the deferred flushes always happen.
func run() error {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up logger
	zapLogger, err := logsvc.NewZapLogger(conf)
	if err != nil {
		return errors.Wrap(err, "creating logger")
	}
	logger := logsvc.NewRollbarLogger(zapLogger.Named("API"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up database: %v", err), err)
		return errors.Wrap(err, "setting up database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	metrics := metricsvc.NewCollector("seatplan")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)
	mailing.InitValidators(validate, translator)
	transfer.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	mailSvc = metrics.CountEmails(mailSvc)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	classSvc := classroom.NewService(sqlxrepos.NewClassroomRepository(db), conf.Canvas)
	actSvc := activity.NewService(sqlxrepos.NewActivityRepository(db))
	transferSvc := transfer.NewService(classSvc, actSvc, validate, logger)
	mailingSvc := mailing.NewService(sqlxrepos.NewMailingRepository(db), transferSvc, mailSvc, logger)
	ghostSvc := ghost.NewService(conf.Ghost, classSvc, actSvc, metrics)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if conf.Scheduler.Enabled {
		go mailing.NewScheduler(mailingSvc, conf.Scheduler, logger).Run(ctx)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan error, 1)
	server := echoapi.NewServer(&echoapi.Options{
		Address:      conf.Server.Host,
		Conf:         conf,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		Metrics:      metrics,
		Shutdown:     shutdown,
		UserSvc:      usrSvc,
		ClassroomSvc: classSvc,
		ActivitySvc:  actSvc,
		MailingSvc:   mailingSvc,
		TransferSvc:  transferSvc,
		GhostSvc:     ghostSvc,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Host))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case err = <-serverErrors:
		if err != nil {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
			return errors.Wrap(err, "server error")
		}
		return nil

	case err = <-shutdown:
		logger.Error(fmt.Sprintf("integrity issue: %v: Start shutdown...", err), err)

	case sig := <-sigs:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	}

	cancel() // stop the scheduler

	// give outstanding requests a deadline for completion
	stopCtx, stopCancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer stopCancel()
	if err = server.Stop(stopCtx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		return errors.Wrap(err, "stopping server")
	}
	return nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
