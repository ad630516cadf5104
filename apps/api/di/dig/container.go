package dig_container

import (
	"context"
	"fmt"
	"log"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/educonnectpro/educonnect/apps/api/echo"
	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/ai"
	"github.com/educonnectpro/educonnect/core/booking"
	"github.com/educonnectpro/educonnect/core/classroom"
	"github.com/educonnectpro/educonnect/core/fee"
	"github.com/educonnectpro/educonnect/core/payment"
	"github.com/educonnectpro/educonnect/core/reward"
	"github.com/educonnectpro/educonnect/core/support"
	"github.com/educonnectpro/educonnect/core/user"
	emailsvc "github.com/educonnectpro/educonnect/services/email"
	genaisvc "github.com/educonnectpro/educonnect/services/genai"
	identitysvc "github.com/educonnectpro/educonnect/services/identity"
	logsvc "github.com/educonnectpro/educonnect/services/logger"
	metricsvc "github.com/educonnectpro/educonnect/services/metrics"
	schedulersvc "github.com/educonnectpro/educonnect/services/scheduler"
	smssvc "github.com/educonnectpro/educonnect/services/sms"
	"github.com/educonnectpro/educonnect/storage/database"
	inmemdb "github.com/educonnectpro/educonnect/storage/database/inmem"
	sqlxrepos "github.com/educonnectpro/educonnect/storage/database/sqlx"
)

const setupTimeout = 30 * time.Second

// CloseDB releases the connections of the storage in use.
type CloseDB func() error

// Storage is the set of repositories backed by the configured database.
type Storage struct {
	dig.Out

	Users    user.Repository
	Classes  classroom.Repository
	Fees     fee.Repository
	Bookings booking.Repository
	Tickets  support.Repository
	Close    CloseDB
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(logsvc.NewLogrus(conf), conf)
}

func newStorage(conf *core.Config, logger core.Logger) Storage {
	if conf.Database.InMemory {
		logger.Warn("using the in-memory database, data will not survive a restart")
		db := inmemdb.Open()
		return Storage{
			Users:    inmemdb.NewUserRepository(db),
			Classes:  inmemdb.NewClassroomRepository(db),
			Fees:     inmemdb.NewFeeRepository(db),
			Bookings: inmemdb.NewBookingRepository(db),
			Tickets:  inmemdb.NewTicketRepository(db),
			Close:    func() error { return nil },
		}
	}

	setUp := func() (Storage, error) {
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return Storage{}, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return Storage{}, err
		}
		if err = database.Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return Storage{}, err
		}
		return Storage{
			Users:    sqlxrepos.NewUserRepository(db),
			Classes:  sqlxrepos.NewClassroomRepository(db),
			Fees:     sqlxrepos.NewFeeRepository(db),
			Bookings: sqlxrepos.NewBookingRepository(db),
			Tickets:  sqlxrepos.NewTicketRepository(db),
			Close:    db.Close,
		}, nil
	}

	storage, err := setUp()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return storage
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)
	return validate
}

// newOTPVerifier prefers Twilio Verify, then locally generated codes kept in redis, then in memory.
func newOTPVerifier(conf *core.Config, logger core.Logger) (user.OTPVerifier, error) {
	if conf.Twilio.AccountSID != "" {
		return smssvc.NewTwilioVerifier(conf, logger), nil
	}
	if conf.Redis.Address == "" {
		logger.Warn("no SMS provider nor redis configured, verification codes are kept in memory")
		return smssvc.NewLocalVerifier(smssvc.NewMemoryStore(), conf, logger), nil
	}

	store := smssvc.NewRedisStore(conf)
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return smssvc.NewLocalVerifier(store, conf, logger), nil
}

func newIdentityVerifier(conf *core.Config) user.IdentityVerifier {
	return identitysvc.NewGoogleVerifier(conf)
}

func newAIModel(conf *core.Config, logger core.Logger) ai.Model {
	model, err := genaisvc.NewModel(context.Background(), conf, logger)
	if err != nil {
		if !errors.Is(err, genaisvc.ErrNotConfigured) {
			logger.Error(fmt.Sprintf("setting up the AI model: %v", err), err)
		}
		logger.Warn("AI features are disabled")
		return genaisvc.Disabled{}
	}
	return model
}

func newPaymentSimulator(conf *core.Config, metrics *metricsvc.Metrics) *payment.Simulator {
	return payment.NewSimulator(conf, metrics)
}

func newRewardService(usrSvc *user.Service) *reward.Service {
	return reward.NewService(usrSvc, reward.DefaultTiers)
}

func newClassService(repo classroom.Repository, usrSvc *user.Service) *classroom.Service {
	return classroom.NewService(repo, usrSvc)
}

func newFeeService(repo fee.Repository, classSvc *classroom.Service, payments *payment.Simulator) *fee.Service {
	return fee.NewService(repo, classSvc, payments)
}

func newBookingService(repo booking.Repository, usrSvc *user.Service, payments *payment.Simulator) *booking.Service {
	return booking.NewService(repo, usrSvc, payments)
}

func newAIFlows(model ai.Model, validate *validator.Validate, metrics *metricsvc.Metrics) *ai.Flows {
	return ai.NewFlows(model, validate, metrics)
}

func newScheduler(feeSvc *fee.Service, bookingSvc *booking.Service, metrics *metricsvc.Metrics, logger core.Logger) *schedulersvc.Scheduler {
	return schedulersvc.NewScheduler(feeSvc, bookingSvc, metrics, logger)
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Metrics    *metricsvc.Metrics
	UserSvc    *user.Service
	RewardSvc  *reward.Service
	ClassSvc   *classroom.Service
	FeeSvc     *fee.Service
	BookingSvc *booking.Service
	SupportSvc *support.Service
	AIFlows    *ai.Flows
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		Metrics:    p.Metrics,
		UserSvc:    p.UserSvc,
		RewardSvc:  p.RewardSvc,
		ClassSvc:   p.ClassSvc,
		FeeSvc:     p.FeeSvc,
		BookingSvc: p.BookingSvc,
		SupportSvc: p.SupportSvc,
		AIFlows:    p.AIFlows,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(newOTPVerifier))
	must(c.Provide(newIdentityVerifier))
	must(c.Provide(newAIModel))
	must(c.Provide(metricsvc.NewMetrics))
	must(c.Provide(newPaymentSimulator))
	must(c.Provide(user.NewService))
	must(c.Provide(newRewardService))
	must(c.Provide(newClassService))
	must(c.Provide(newFeeService))
	must(c.Provide(newBookingService))
	must(c.Provide(support.NewService))
	must(c.Provide(newAIFlows))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
