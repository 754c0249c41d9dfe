package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/config"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/mq"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/routes"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/services"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/go-playground/validator/v10"
	"github.com/kataras/golog"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		golog.Fatalf("config: %v", err)
	}
	golog.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := services.InitTracer(ctx, "kenya-dwell-connect", cfg.OTELEndpoint, cfg.Env)
	if err != nil {
		golog.Warnf("tracing disabled: %v", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	db := storage.InitializeDB(cfg.DBConnectionString)
	if err := storage.SeedReferenceData(db); err != nil {
		golog.Errorf("seed reference data: %v", err)
	}
	storage.InitializeRedis(cfg.RedisURL, cfg.RedisPassword)
	utils.InitializeTokens(cfg.AccessTokenSecret, cfg.RefreshTokenSecret)
	routes.SearchCacheTTL = cfg.SearchCacheTTL

	if cfg.RabbitURL != "" {
		publisher, err := mq.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			golog.Errorf("rabbitmq publisher: %v, events disabled", err)
		} else {
			services.Events = publisher
			defer publisher.Close()
			startNotificationWorker(ctx, cfg, db)
		}
	} else {
		golog.Warn("RABBIT_URL not set, domain events are not published")
	}

	services.Payments = services.NewPaymentService(db, services.NewMpesaClient(cfg.Mpesa))
	go services.Payments.RunSweeper(ctx, cfg.SweepInterval, cfg.PendingTimeout)

	app := iris.New()
	app.Logger().SetLevel(cfg.LogLevel)
	app.Validator = validator.New()
	routes.Router(app)

	go func() {
		<-ctx.Done()
		golog.Info("shutting down")
		timeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(timeout); err != nil {
			golog.Errorf("http shutdown: %v", err)
		}
		if err := shutdownTracer(timeout); err != nil {
			golog.Errorf("tracer shutdown: %v", err)
		}
	}()

	if err := app.Listen(cfg.HTTPAddr, iris.WithoutInterruptHandler, iris.WithOptimizations); err != nil && err != iris.ErrServerClosed {
		golog.Fatalf("listen: %v", err)
	}
}

func startNotificationWorker(ctx context.Context, cfg config.App, db *gorm.DB) {
	consumer, err := mq.NewConsumer(cfg.RabbitURL, cfg.EventsExchange, cfg.NotifyQueue, []string{"#"}, 16)
	if err != nil {
		golog.Errorf("notification worker: %v", err)
		return
	}
	deliveries, err := consumer.Deliveries(ctx)
	if err != nil {
		golog.Errorf("notification worker: %v", err)
		_ = consumer.Close()
		return
	}

	worker := services.NewNotificationWorker(db, services.LogNotifier{})
	go func() {
		defer consumer.Close()
		worker.Run(ctx, deliveries)
	}()
	golog.Infof("notification worker consuming %s", cfg.NotifyQueue)
}
