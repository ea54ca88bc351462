package main

import (
	"context"
	_ "embed"
	"flag"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"zygl/pkg/backend"
	"zygl/pkg/broadcast"
	"zygl/pkg/collector"
	"zygl/pkg/command"
	"zygl/pkg/config"
	"zygl/pkg/journal"
	"zygl/pkg/log"
	"zygl/pkg/models"
	"zygl/pkg/server"
	"zygl/pkg/service"
	"zygl/pkg/store"
	"zygl/pkg/transport"
)

const (
	gracefulShutdownTimeout = 10 * time.Second
)

//go:embed VERSION
var Version string

func main() {
	// Initialize logger first
	_ = log.Logger

	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	backendURL := flag.String("backend", "", "Backend API base URL (overrides backend.api_url)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load config")
	}
	if *backendURL != "" {
		cfg.Backend.APIURL = *backendURL
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("Invalid backend override")
		}
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	if *debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}

	log.Info().
		Str("version", strings.TrimSpace(Version)).
		Str("backend", cfg.Backend.APIURL).
		Str("group", cfg.UDP.MulticastAddress).
		Int("state_port", cfg.UDP.StateBroadcastPort).
		Int("command_port", cfg.UDP.CommandListenerPort).
		Msg("Starting zygld")

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("zygld failed")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	topology := models.NewTopology(models.TopologyOptions{
		IPPattern: cfg.Hardware.IPBasePattern,
		IPOffset:  cfg.Hardware.IPOffset,
	})
	chassisStore := store.NewChassisStore(topology)
	stackStore := store.NewStackStore()
	alertStore := store.NewAlertStore()

	api := backend.NewClient(cfg.Backend.APIURL, backend.Options{
		Timeout:      cfg.Backend.Timeout(),
		RetryMax:     cfg.Backend.RetryMax,
		RetryWaitMin: time.Duration(cfg.Backend.RetryWaitMinMs) * time.Millisecond,
		RetryWaitMax: time.Duration(cfg.Backend.RetryWaitMaxMs) * time.Millisecond,
	})

	commandJournal, err := journal.NewJournal(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer commandJournal.Close()

	if n, err := commandJournal.Prune(ctx, time.Now().Add(-cfg.Alerts.MaxAge())); err != nil {
		log.Warn().Err(err).Msg("Journal prune failed")
	} else if n > 0 {
		log.Info().Int64("removed", n).Msg("Old journal entries pruned")
	}

	alertService := service.NewAlertService(alertStore, chassisStore)
	stackService := service.NewStackControlService(api, stackStore)
	monitoring := service.NewMonitoringService(chassisStore, stackStore, alertStore)

	senderOpts := transport.SenderOptions{
		TTL:       cfg.UDP.TTL,
		Loopback:  cfg.UDP.Loopback,
		Interface: cfg.UDP.Interface,
	}
	stateSender, err := transport.NewSender(cfg.UDP.MulticastAddress, cfg.UDP.StateBroadcastPort, senderOpts)
	if err != nil {
		return err
	}
	defer stateSender.Close()

	receiver, err := transport.NewReceiver(cfg.UDP.MulticastAddress, cfg.UDP.CommandListenerPort, cfg.UDP.Interface)
	if err != nil {
		return err
	}
	defer receiver.Close()
	log.Info().Str("state", stateSender.Destination()).Int("command_port", cfg.UDP.CommandListenerPort).Msg("Multicast sockets ready")

	dataCollector := collector.NewCollector(api, chassisStore, stackStore, cfg.DataCollector.Interval(), cfg.Backend.Timeout())
	broadcaster := broadcast.NewBroadcaster(stateSender, chassisStore, stackStore, alertStore, broadcast.Intervals{
		Chassis: cfg.UDP.ChassisInterval(),
		Alert:   cfg.UDP.AlertInterval(),
		Label:   cfg.UDP.LabelInterval(),
	})
	// Responses share the state channel; front-ends listen on one port.
	listener := command.NewListener(receiver, stateSender, stackService, alertService, command.Options{
		Timeout: cfg.Backend.Timeout(),
		Journal: commandJournal,
	})
	webhook := server.NewServer(alertService, monitoring, server.Options{
		RateLimit: cfg.Webhook.RateLimit,
		Journal:   commandJournal,
		Labels:    stackService,
	})

	dataCollector.Start()
	broadcaster.Start()
	listener.Start()
	alertService.StartSweeper(cfg.Alerts.SweepInterval(), cfg.Alerts.MaxAge())
	webhook.Start(cfg.Webhook.Addr())

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := webhook.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Webhook shutdown failed")
	}
	alertService.StopSweeper()
	listener.Stop()
	broadcaster.Stop()
	dataCollector.Stop()

	log.Info().
		Interface("broadcast", broadcaster.Stats()).
		Interface("commands", listener.Stats()).
		Interface("collector", dataCollector.Stats()).
		Msg("zygld stopped")
	return nil
}
