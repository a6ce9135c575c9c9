package app

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/qs-lzh/cinema-booking/config"
	"github.com/qs-lzh/cinema-booking/internal/cache"
	"github.com/qs-lzh/cinema-booking/internal/mq"
	"github.com/qs-lzh/cinema-booking/internal/repository"
	"github.com/qs-lzh/cinema-booking/internal/repository/memory"
	"github.com/qs-lzh/cinema-booking/internal/service/domain"
	"github.com/qs-lzh/cinema-booking/internal/service/workflow"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	Clock  clockwork.Clock

	// DB, Cache and MQConn are nil when the matching backend is not configured
	DB       *gorm.DB
	Cache    *cache.RedisCache
	MQConn   *amqp.Connection
	Producer *mq.Producer

	Store repository.Store

	PricingService     domain.PricingService
	CatalogService     domain.CatalogService
	BookingService     domain.BookingService
	WaitingListService domain.WaitingListService

	BookingWorkflow      *workflow.BookingWorkflow
	NotificationWorkflow *workflow.NotificationWorkflow
	WaitlistWorkflow     *workflow.WaitlistWorkflow
}

// Open connects every backend the config names and builds the App.
func Open(cfg *config.Config, logger *zap.Logger) (*App, error) {
	var (
		db    *gorm.DB
		store repository.Store
		err   error
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if cfg.AutoMigrate {
			if err := repository.AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("migrate database: %w", err)
			}
		}
		store = repository.NewGormStore(db)
	default:
		store = memory.NewStore()
	}

	var redisCache *cache.RedisCache
	if cfg.CacheURL != "" {
		if redisCache, err = cache.NewRedisCache(cfg.CacheURL, cfg.LockTTL, logger); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	var mqConn *amqp.Connection
	if cfg.MQURL != "" {
		if mqConn, err = mq.NewMQConn(cfg.MQURL); err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
	}

	app, err := New(cfg, logger, clockwork.NewRealClock(), store, redisCache, mqConn)
	if err != nil {
		return nil, err
	}
	app.DB = db
	return app, nil
}

func New(cfg *config.Config, logger *zap.Logger, clock clockwork.Clock, store repository.Store,
	redisCache *cache.RedisCache, mqConn *amqp.Connection) (*App, error) {
	var (
		locker domain.ScreenLocker = cache.NewLocalLocker()
		marker workflow.OnceMarker = cache.NewLocalMarker()
	)
	if redisCache != nil {
		locker = redisCache
		marker = redisCache
	}

	var (
		producer  *mq.Producer
		publisher workflow.EventPublisher = workflow.NewLogPublisher(logger)
	)
	if mqConn != nil {
		var err error
		if producer, err = mq.NewProducer(mqConn); err != nil {
			return nil, err
		}
		publisher = producer
	}

	pricingService := domain.NewPricingService(cfg.FoodMenu)
	catalogService := domain.NewCatalogService(store)
	waitingListService := domain.NewWaitingListService(store)
	bookingService := domain.NewBookingService(store, locker, pricingService, clock, cfg.CancelCutoff, logger)

	bookingWorkflow := workflow.NewBookingWorkflow(bookingService, publisher, clock, logger)
	notificationWorkflow := workflow.NewNotificationWorkflow(logger)
	waitlistWorkflow := workflow.NewWaitlistWorkflow(catalogService, waitingListService, marker,
		publisher, clock, cfg.CancelCutoff, logger)

	return &App{
		Config:               cfg,
		Logger:               logger,
		Clock:                clock,
		Cache:                redisCache,
		MQConn:               mqConn,
		Producer:             producer,
		Store:                store,
		PricingService:       pricingService,
		CatalogService:       catalogService,
		BookingService:       bookingService,
		WaitingListService:   waitingListService,
		BookingWorkflow:      bookingWorkflow,
		NotificationWorkflow: notificationWorkflow,
		WaitlistWorkflow:     waitlistWorkflow,
	}, nil
}

func (app *App) Init() error {
	// init rabbit mq
	if app.MQConn != nil {
		if err := mq.InitQueues(app.MQConn); err != nil {
			return err
		}
		if err := app.NotificationWorkflow.Start(app.MQConn); err != nil {
			return err
		}
	}

	return app.WaitlistWorkflow.Start(app.Config.WaitlistSweepSchedule)
}

func (app *App) Close() error {
	app.WaitlistWorkflow.Stop()

	var errs []error
	if app.Producer != nil {
		errs = append(errs, app.Producer.Close())
	}
	if app.MQConn != nil {
		errs = append(errs, app.MQConn.Close())
	}
	if app.Cache != nil {
		errs = append(errs, app.Cache.Close())
	}
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
