package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"homechef/configs"
	"homechef/pkg/events"
	"homechef/pkg/gateway"
	"homechef/pkg/logging"
	"homechef/pkg/metrics"
	"homechef/repository"
	"homechef/routes"
	"homechef/services"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New("orders", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	if cfg.EnvFileProblem != "" {
		logger.Warn(".env not loaded", zap.String("error", cfg.EnvFileProblem))
	}

	// DB
	db, err := configs.ConnectionDB(cfg)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	if err := configs.SetupDatabase(db); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}
	if cfg.SeedDemo {
		if err := configs.SeedDemoMenu(db, 1, logger); err != nil {
			logger.Fatal("seed demo menu", zap.Error(err))
		}
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics("orders", reg)

	// Events
	var pub events.Publisher = events.Noop{}
	if brokers := events.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		k := events.NewKafka(brokers, cfg.KafkaTopic, func(dropped int, err error) {
			m.EventsDropped.Add(float64(dropped))
			logger.Warn("kafka batch not delivered", zap.Int("events", dropped), zap.Error(err))
		})
		defer k.Close()
		pub = k
		logger.Info("publishing events to kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}

	// Services
	menuRepo := repository.NewMenuRepository(db)
	orderRepo := repository.NewOrderRepository(db, menuRepo)
	pricing := services.NewPricingEngine(cfg.Pricing)
	gw := gateway.NewRazorpay(gateway.Config{
		KeyID:     cfg.Payment.KeyID,
		KeySecret: cfg.Payment.KeySecret,
		BaseURL:   cfg.Payment.BaseURL,
		Timeout:   cfg.Payment.GatewayTimeout,
	}, nil)

	deps := routes.Deps{
		DB:         db,
		Config:     cfg,
		Log:        logger,
		Metrics:    m,
		Orders:     services.NewOrderService(orderRepo, menuRepo, pricing, pub, m, logger),
		Payments:   services.NewPaymentService(orderRepo, gw, pricing, cfg.Payment, m, logger),
		Reconciler: services.NewPaymentReconciler(orderRepo, cfg.Payment, pub, m, logger),
	}

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
