package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	server "github.com/gab-cat/tarot-bot/internal/adapters/primary/http"
	adminController "github.com/gab-cat/tarot-bot/internal/adapters/primary/http/controllers/admin"
	healthcheckController "github.com/gab-cat/tarot-bot/internal/adapters/primary/http/controllers/healthcheck"
	messengerController "github.com/gab-cat/tarot-bot/internal/adapters/primary/http/controllers/messenger"
	metricsController "github.com/gab-cat/tarot-bot/internal/adapters/primary/http/controllers/metrics"
	paymentController "github.com/gab-cat/tarot-bot/internal/adapters/primary/http/controllers/payment"
	kafkaConsumerAdapter "github.com/gab-cat/tarot-bot/internal/adapters/primary/kafka"
	kafkaHandlers "github.com/gab-cat/tarot-bot/internal/adapters/primary/kafka/handlers"
	alerterAdapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/alerter"
	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/gemini"
	kafkaAdapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/kafka"
	messengerAdapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/messenger"
	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/payment/xendit"
	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/inmemory"
	"github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/gab-cat/tarot-bot/internal/adapters/secondary/storage/s3"
	"github.com/gab-cat/tarot-bot/internal/pkg/metrics"
	"github.com/gab-cat/tarot-bot/internal/ports/cache"
	"github.com/gab-cat/tarot-bot/internal/ports/messenger"
	"github.com/gab-cat/tarot-bot/internal/ports/repository"
	"github.com/gab-cat/tarot-bot/internal/ports/service"
	"github.com/gab-cat/tarot-bot/internal/ports/storage"
	cardImageRepo "github.com/gab-cat/tarot-bot/internal/repository/cardimage"
	paymentRepo "github.com/gab-cat/tarot-bot/internal/repository/payment"
	readingRepo "github.com/gab-cat/tarot-bot/internal/repository/reading"
	timerRepo "github.com/gab-cat/tarot-bot/internal/repository/timer"
	userRepo "github.com/gab-cat/tarot-bot/internal/repository/user"
	alerterService "github.com/gab-cat/tarot-bot/internal/services/alerter"
	"github.com/gab-cat/tarot-bot/internal/services/cardimages"
	"github.com/gab-cat/tarot-bot/internal/services/ingress"
	"github.com/gab-cat/tarot-bot/internal/services/interpretation"
	jobScheduler "github.com/gab-cat/tarot-bot/internal/services/jobs"
	"github.com/gab-cat/tarot-bot/internal/services/timers"
	paymentUsecase "github.com/gab-cat/tarot-bot/internal/usecases/payment"
	tarotUsecase "github.com/gab-cat/tarot-bot/internal/usecases/tarot"
	"github.com/gab-cat/tarot-bot/internal/usecases/tarot/deck"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Dependencies struct {
	DB              *sqlx.DB // nil при STORAGE_DRIVER=memory
	HTTPServer      *http.Server
	Cache           cache.Cache
	KafkaProducer   *kafkaAdapter.Producer
	KafkaConsumer   *kafkaConsumerAdapter.Consumer
	LocalDispatcher *ingress.LocalDispatcher
	Timers          *timers.Service
	JobScheduler    *jobScheduler.Scheduler
}

// initDependencies инициализирует все зависимости приложения
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	location, err := time.LoadLocation(a.Cfg.Bot.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load bot timezone: %w", err)
	}

	deps := &Dependencies{}
	checks := make(map[string]healthcheckController.Pinger)

	repos, err := a.initRepositories(ctx, deps)
	if err != nil {
		return nil, err
	}
	if deps.DB != nil {
		checks["postgres"] = deps.DB
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	external := a.initExternalServices(checks)
	deps.Cache = external.Cache

	tarotDeck, err := deck.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}

	images := cardimages.New(
		repos.CardImage,
		external.Cache,
		external.Files,
		external.Messenger,
		tarotDeck,
		a.Cfg.CardImages,
		a.Log.With("component", "card_images"),
	)

	deps.Timers = timers.New(repos.Timer, a.Cfg.Timers, collector, a.Log.With("component", "timers"))

	tarotService := tarotUsecase.New(
		repos.User,
		repos.Reading,
		deck.NewDrawer(tarotDeck, nil),
		interpretation.New(external.LLM, location, collector, a.Log.With("component", "interpretation")),
		images,
		external.Messenger,
		deps.Timers,
		location,
		collector,
		a.Log.With("component", "tarot"),
	)
	tarotService.Dedup = external.Cache
	tarotService.DedupTTL = a.Cfg.Bot.DedupTTL
	tarotService.RegisterTimers(deps.Timers)

	paymentService := a.initPayment(repos, external, collector)
	if paymentService != nil {
		tarotService.Checkout = paymentService
	}

	dispatcher, err := a.initIngress(deps, tarotService)
	if err != nil {
		return nil, fmt.Errorf("failed to init ingress: %w", err)
	}

	deps.JobScheduler = jobScheduler.NewScheduler(a.Log.With("component", "jobs"), external.Alerter)
	deps.JobScheduler.Register(jobScheduler.NewPaymentExpirer(
		repos.Payment,
		a.Cfg.Payment.PendingTTL,
		a.Cfg.Payment.ExpireEvery,
		a.Log,
	))
	deps.JobScheduler.Register(jobScheduler.NewCardCacheWarmer(images, location, a.Cfg.Bot.CardWarmHour, a.Log))

	controllers := []server.Controller{
		healthcheckController.New(checks, a.Log),
		metricsController.New(metrics.Handler(registry)),
		messengerController.New(a.Cfg.verifyToken(), dispatcher, a.Log.With("component", "webhook")),
	}
	if paymentService != nil {
		controllers = append(controllers, paymentController.New(paymentService, a.Log.With("component", "payment")))
	}
	if a.Cfg.Bot.AdminToken != "" {
		controllers = append(controllers, adminController.New(a.Cfg.Bot.AdminToken, repos.User, repos.Reading, a.Log))
	} else {
		a.Log.Info("admin token is not set, admin api disabled")
	}

	deps.HTTPServer = server.NewHTTPServer(a.Cfg.Server, a.Log, collector, controllers...)

	return deps, nil
}

// repositories содержит инициализированные репозитории
type repositories struct {
	User      repository.IUserRepo
	Reading   repository.IReadingRepo
	Payment   repository.IPaymentRepo
	Timer     repository.ITimerRepo
	CardImage repository.ICardImageRepo
}

// initRepositories postgres или in-memory хранилище по STORAGE_DRIVER
func (a *App) initRepositories(ctx context.Context, deps *Dependencies) (*repositories, error) {
	if a.Cfg.StorageDriver == StorageDriverMemory {
		a.Log.Warn("using in-memory storage, state is lost on restart")
		return &repositories{
			User:      inmemory.NewUserRepo(),
			Reading:   inmemory.NewReadingRepo(),
			Payment:   inmemory.NewPaymentRepo(),
			Timer:     inmemory.NewTimerRepo(),
			CardImage: inmemory.NewCardImageRepo(),
		}, nil
	}

	db, err := a.initPostgres(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}
	deps.DB = db

	persistenceLayer := pg.NewDB(db)
	return &repositories{
		User:      userRepo.New(persistenceLayer, a.Log),
		Reading:   readingRepo.New(persistenceLayer, a.Log),
		Payment:   paymentRepo.New(persistenceLayer, a.Log),
		Timer:     timerRepo.New(persistenceLayer, a.Log),
		CardImage: cardImageRepo.New(persistenceLayer, a.Log),
	}, nil
}

// externalServices внешние сервисы, для каждого есть локальная замена
type externalServices struct {
	Messenger messenger.IClient
	LLM       service.ILLMProvider // nil: только шаблонные трактовки
	Files     storage.IS3Client
	Cache     cache.Cache
	Alerter   service.IAlerterService
	Payments  *xendit.Provider // nil: оплата выключена
}

// initExternalServices инициализирует внешние сервисы, недоступный опциональный
// сервис заменяется локальной реализацией
func (a *App) initExternalServices(checks map[string]healthcheckController.Pinger) *externalServices {
	services := &externalServices{}

	if a.Cfg.messengerEnabled() {
		services.Messenger = messengerAdapter.NewClient(a.Cfg.Messenger, a.Log)
	} else {
		a.Log.Warn("messenger page token is not set, outgoing messages go to the log")
		services.Messenger = inmemory.NewOutbox(a.Log)
	}

	if a.Cfg.geminiEnabled() {
		services.LLM = gemini.NewClient(a.Cfg.Gemini, a.Log)
	} else {
		a.Log.Warn("gemini api key is not set, interpretations use templates")
	}

	services.Files = inmemory.NewFileStore()
	if a.Cfg.s3Enabled() {
		minioClient, err := a.Cfg.S3.NewClient()
		if err != nil {
			a.Log.Warn("failed to init s3, card images disabled", "error", err)
		} else {
			services.Files = s3Adapter.NewClient(minioClient, a.Cfg.S3.Bucket, a.Cfg.S3.Prefix, a.Log)
			a.Log.Info("s3 connected successfully", "bucket", a.Cfg.S3.Bucket)
		}
	}

	services.Cache = inmemory.NewCache()
	if a.Cfg.redisEnabled() {
		redisClient, err := a.Cfg.Redis.NewConnection()
		if err != nil {
			a.Log.Warn("failed to init redis cache, continuing with in-process cache", "error", err)
		} else {
			client := redisAdapter.NewClient(redisClient, a.Cfg.Redis.KeyPrefix)
			services.Cache = client
			checks["redis"] = client
			a.Log.Info("redis cache connected successfully")
		}
	}

	// без клиента алерты только пишутся в лог
	services.Alerter = alerterService.New(alerterAdapter.NewClient(a.Cfg.Alerter, a.Log), a.Name, a.Log)

	if a.Cfg.xenditEnabled() {
		services.Payments = xendit.NewProvider(a.Cfg.Xendit, a.Log)
	}

	return services
}

// initPayment nil если платёжный провайдер не настроен
func (a *App) initPayment(
	repos *repositories,
	external *externalServices,
	rec metrics.Recorder,
) *paymentUsecase.Service {
	if external.Payments == nil {
		a.Log.Warn("xendit is not configured, payment system disabled")
		return nil
	}

	cfg := a.Cfg.Payment
	cfg.CallbackToken = a.Cfg.Xendit.CallbackToken

	paymentService := paymentUsecase.New(
		repos.Payment,
		repos.User,
		external.Payments,
		external.Messenger,
		external.Alerter,
		cfg,
		rec,
		a.Log.With("component", "payment"),
	)

	a.Log.Info("payment system initialized successfully", "currency", cfg.Currency)
	return paymentService
}

// initIngress local: обработка в процессе, kafka: webhook публикует в топик,
// consumer group обрабатывает
func (a *App) initIngress(deps *Dependencies, events service.IEventHandler) (service.IEventDispatcher, error) {
	if a.Cfg.Bot.IngressMode != IngressModeKafka {
		deps.LocalDispatcher = ingress.NewLocalDispatcher(events, a.Cfg.Bot.MaxInFlight, a.Log.With("component", "ingress"))
		return deps.LocalDispatcher, nil
	}

	producer, err := kafkaAdapter.NewProducer(a.Cfg.Kafka, a.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	deps.KafkaProducer = producer

	consumer, err := kafkaConsumerAdapter.NewConsumer(
		a.Cfg.Kafka,
		kafkaHandlers.NewInboundEventHandler(events, a.Log),
		a.Log,
	)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	deps.KafkaConsumer = consumer

	return ingress.NewKafkaDispatcher(producer, a.Log.With("component", "ingress")), nil
}
