package main

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
	"github.com/educonnectpro/educonnect/storage/database"
	sqlxrepos "github.com/educonnectpro/educonnect/storage/database/sqlx"
	logsvc "github.com/educonnectpro/educonnect/services/logger"
)

var logger *logrus.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewLogrus(conf)

	if conf.Database.InMemory {
		errAndDie(errors.New("admin commands need a persistent database, unset database.inMemory"))
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Ping(ctx, db.DB)
	cancel()
	errAndDie(err)

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:      db.DB,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, nil, nil, nil, conf),
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.WithError(err).Error("command failed")
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
