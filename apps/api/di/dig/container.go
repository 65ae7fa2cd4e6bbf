package dig_container

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/malekai-gauntlet/tsa-platform-sub001/apps/api/echo"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/notify"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/onboarding"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
	calendarsvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/calendar"
	emailsvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/email"
	identitysvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/identity"
	logsvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/logger"
	"github.com/malekai-gauntlet/tsa-platform-sub001/storage/database"
	gormrepos "github.com/malekai-gauntlet/tsa-platform-sub001/storage/database/gorm"
	inmemdb "github.com/malekai-gauntlet/tsa-platform-sub001/storage/database/inmem"
	sqlxrepos "github.com/malekai-gauntlet/tsa-platform-sub001/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repositories are backed by the configured database, or kept in memory when none is.
type Repositories struct {
	dig.Out
	Users       user.Repository
	Invitations invitation.Repository
	Progress    onboarding.Repository
	Edfi        edfi.Repository
	Events      event.Repository
	DB          io.Closer
}

type ServerParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	Auth          echoapi.Authenticator
	UserSvc       *user.Service
	InvitationSvc *invitation.Service
	OnboardingSvc *onboarding.Service
	EventSvc      *event.Service
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(zl *zap.Logger, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("db"), conf)
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.Host == "" {
		loggerParam.Logger.Warn("no database configured, data is kept in memory")
		mem := inmemdb.Open()
		return Repositories{
			Users:       inmemdb.NewUserRepository(mem),
			Invitations: inmemdb.NewInvitationRepository(mem),
			Progress:    inmemdb.NewProgressRepository(mem),
			Edfi:        inmemdb.NewEdfiRepository(mem),
			Events:      inmemdb.NewEventRepository(mem),
			DB:          nopCloser{},
		}
	}

	ctx := context.Background()
	setUp := func() (Repositories, error) {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return Repositories{}, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return Repositories{}, err
		}
		if err = database.Migrate(ctx, db); err != nil {
			return Repositories{}, err
		}
		gdb, err := gormrepos.Open(db.DB, conf)
		if err != nil {
			return Repositories{}, err
		}
		return Repositories{
			Users:       sqlxrepos.NewUserRepository(db),
			Invitations: sqlxrepos.NewInvitationRepository(db),
			Progress:    sqlxrepos.NewProgressRepository(db),
			Edfi:        sqlxrepos.NewEdfiRepository(db),
			Events:      gormrepos.NewEventRepository(gdb),
			DB:          db,
		}, nil
	}

	repos, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return repos
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newCalendar returns a nil syncer when no Google credentials are configured.
func newCalendar(conf *core.Config, logger core.Logger) (core.CalendarSyncer, error) {
	if conf.Google.CredentialsFile == "" {
		return nil, nil
	}
	return calendarsvc.NewGoogleCalendar(context.Background(), conf, logger)
}

func newIDGenerator(conf *core.Config) (*edfi.IDGenerator, error) {
	return edfi.NewIDGenerator(conf.SnowflakeNode)
}

func newOnboardingService(
	repo onboarding.Repository,
	invSvc *invitation.Service,
	prov onboarding.Provisioner,
	identity core.IdentityProvider,
	mailSvc core.EmailService,
	templates *notify.Generator,
	logger core.Logger,
	conf *core.Config,
) *onboarding.Service {
	return onboarding.NewService(repo, invSvc, prov, identity, mailSvc, templates, logger, conf)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Auth:          p.Auth,
		UserSvc:       p.UserSvc,
		InvitationSvc: p.InvitationSvc,
		OnboardingSvc: p.OnboardingSvc,
		EventSvc:      p.EventSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(logsvc.NewZap))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(identitysvc.NewLocalProvider, dig.As(new(core.IdentityProvider), new(echoapi.Authenticator))))
	must(c.Provide(newCalendar))
	must(c.Provide(notify.NewGenerator))
	must(c.Provide(newIDGenerator))
	must(c.Provide(edfi.NewProvisioner, dig.As(new(onboarding.Provisioner))))
	must(c.Provide(user.NewService))
	must(c.Provide(invitation.NewService))
	must(c.Provide(newOnboardingService))
	must(c.Provide(event.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
