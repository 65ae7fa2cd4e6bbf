package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/notify"
	emailsvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/email"
	identitysvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/identity"
	logsvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/logger"
	"github.com/malekai-gauntlet/tsa-platform-sub001/storage/database"
	inmemdb "github.com/malekai-gauntlet/tsa-platform-sub001/storage/database/inmem"
	sqlxrepos "github.com/malekai-gauntlet/tsa-platform-sub001/storage/database/sqlx"
)

func main() {
	os.Exit(start())
}

func start() int {
	ctx := context.Background()
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Sync()

	var (
		db   *sqlx.DB
		repo invitation.Repository
	)
	if conf.Database.Host == "" {
		logger.Warn("no database configured, invitations are kept in memory")
		repo = inmemdb.NewInvitationRepository(inmemdb.Open())
	} else {
		if db, err = database.Open(conf); err != nil {
			logger.Error(err.Error(), err)
			return 1
		}
		defer db.Close()
		if err = db.PingContext(ctx); err != nil {
			logger.Error(err.Error(), err)
			return 1
		}
		repo = sqlxrepos.NewInvitationRepository(db)
	}

	templates, err := notify.NewGenerator(conf)
	if err != nil {
		logger.Error(err.Error(), err)
		return 1
	}
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	cli := commandLine{
		invitations: invitation.NewService(
			repo,
			identitysvc.NewLocalProvider(logger),
			syncMailer{EmailService: mailSvc, logger: logger},
			templates,
			logger,
			conf,
		),
		logger: logger,
		db:     db,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		return 1
	}
	return 0
}

// syncMailer delivers before returning so the process does not exit with e-mails in flight.
type syncMailer struct {
	core.EmailService
	logger core.Logger
}

func (m syncMailer) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if res := m.Send(context.Background(), msg); !res.Success {
			m.logger.Error(fmt.Sprintf("sending e-mail %q: %v", msg.Subject, res.Err), res.Err)
		}
	}
}
