package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/EZGGdotxyz/ezgg-service/internal/app"
	"github.com/EZGGdotxyz/ezgg-service/internal/config"
	"github.com/EZGGdotxyz/ezgg-service/internal/db"
	"github.com/EZGGdotxyz/ezgg-service/internal/handlers"
	"github.com/EZGGdotxyz/ezgg-service/internal/metrics"
	"github.com/EZGGdotxyz/ezgg-service/internal/middleware"
	"github.com/EZGGdotxyz/ezgg-service/internal/router"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	if err := config.LoadConfig(*configPath); err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	db.InitDB()
	metrics.DBConnectionStatus.Set(1)
	if err := db.Seed(db.DB, config.AppConfig.Seed); err != nil {
		logrus.WithError(err).Fatal("failed to seed database")
	}

	container, err := app.InitializeContainer()
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize services")
	}
	defer container.Close()

	if config.AppConfig.ExchangeRates.AppID != "" {
		container.PriceUpdateService.Start()
	}

	auth := middleware.NewAuthMiddleware(config.AppConfig.Auth.JWTSecret, logrus.StandardLogger())
	engine := router.SetupRouter(auth, router.Handlers{
		Chain:       handlers.NewChainHandler(container.ChainService, container.ContractService, container.BalanceService, container.MemberService),
		Transaction: handlers.NewTransactionHandler(container.TransactionService, container.FeeEstimateService, container.MemberService),
		PayLink:     handlers.NewPayLinkHandler(container.PayLinkService),
		Member:      handlers.NewMemberHandler(container.MemberService, container.NotificationService),
	})

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Server.Host, config.AppConfig.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("forced shutdown")
	}
	logrus.Info("server stopped")
}
