package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/core/classroom"
	"github.com/trezcool/seatplan/core/ghost"
	"github.com/trezcool/seatplan/core/transfer"
	logsvc "github.com/trezcool/seatplan/services/logger"
	"github.com/trezcool/seatplan/storage/database"
	sqlxrepos "github.com/trezcool/seatplan/storage/database/sqlx"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()

	zapLogger, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zapLogger.Named("ADMIN"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Error(fmt.Sprintf("creating database: %v", err), err)
		return 1
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("opening database: %v", err), err)
		return 1
	}
	defer func() { _ = db.Close() }()

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)
	transfer.InitValidators(validate, translator)

	classSvc := classroom.NewService(sqlxrepos.NewClassroomRepository(db), conf.Canvas)
	actSvc := activity.NewService(sqlxrepos.NewActivityRepository(db))

	// start CLI
	cli := commandLine{
		db:          db,
		usrRepo:     sqlxrepos.NewUserRepository(db),
		transferSvc: transfer.NewService(classSvc, actSvc, validate, logger),
		ghostSvc:    ghost.NewService(conf.Ghost, classSvc, actSvc, nil),
		out:         os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}
