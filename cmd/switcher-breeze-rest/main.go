package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/iyuvalk/switcher-breeze-rest/internal/breeze"
	"github.com/iyuvalk/switcher-breeze-rest/internal/config"
	"github.com/iyuvalk/switcher-breeze-rest/internal/discovery"
	"github.com/iyuvalk/switcher-breeze-rest/internal/httpapi"
	"github.com/iyuvalk/switcher-breeze-rest/internal/mqtt"
	"github.com/iyuvalk/switcher-breeze-rest/internal/observability"
	"github.com/iyuvalk/switcher-breeze-rest/internal/switcher"
)

const serviceName = "switcher-breeze-rest"

func main() {
	port := flag.Int("port", 0, "HTTP port (overrides config and environment)")
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config failed", "error", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = strconv.Itoa(*port)
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	shutdownObs, promHandler, tracer := observability.SetupObservability(serviceName)
	defer shutdownObs()

	bridge := switcher.NewBridge(cfg.DiscoveryPorts...)
	scanner := discovery.NewScanner(bridge, cfg.ScanWindow)
	controller := breeze.NewController(cfg.RemoteDBPath, cfg.DefaultBreezeHost, cfg.ControlTimeout)

	var announcer *mqtt.Announcer
	var broker *mqtt.Client
	if cfg.MQTTBrokerURL != "" {
		broker, err = mqtt.New(cfg.MQTTBrokerURL)
		if err != nil {
			slog.Error("mqtt init failed", "broker", cfg.MQTTBrokerURL, "error", err)
			os.Exit(1)
		}
		announcer = mqtt.NewAnnouncer(broker)
		sub := mqtt.NewCommandSubscriber(broker, controller, announcer)
		if err := sub.Start(); err != nil {
			slog.Error("mqtt subscribe failed", "error", err)
			os.Exit(1)
		}
	}

	srv := httpapi.NewServer(scanner, controller, announcer)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(observability.MetricsAndTracingMiddleware(tracer, serviceName))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promHandler)
	srv.RegisterRoutes(r)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: r,
		// Write timeout sits above the discovery window and the control
		// timeout so neither is cut short mid-response.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ControlTimeout + cfg.ScanWindow + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("switcher-breeze-rest started", "addr", cfg.ListenAddr(), "scan_window", cfg.ScanWindow)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down")
	if broker != nil {
		broker.Close()
	}
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
