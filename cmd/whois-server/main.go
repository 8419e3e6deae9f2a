// Command whois-server is the process entry point: it wires every
// component (C1-C11) together per spec.md §2's startup order and runs
// until an interrupt or terminate signal asks it to shut down.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Akaere-NetWorks/whois-server/internal/config"
	"github.com/Akaere-NetWorks/whois-server/internal/dn42"
	"github.com/Akaere-NetWorks/whois-server/internal/handlers"
	"github.com/Akaere-NetWorks/whois-server/internal/httpapi"
	"github.com/Akaere-NetWorks/whois-server/internal/kv"
	"github.com/Akaere-NetWorks/whois-server/internal/metrics"
	"github.com/Akaere-NetWorks/whois-server/internal/patch"
	"github.com/Akaere-NetWorks/whois-server/internal/plugin"
	"github.com/Akaere-NetWorks/whois-server/internal/process"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
	"github.com/Akaere-NetWorks/whois-server/internal/scheduler"
	"github.com/Akaere-NetWorks/whois-server/internal/server"
	"github.com/Akaere-NetWorks/whois-server/internal/stats"
	"github.com/Akaere-NetWorks/whois-server/internal/whoisclient"

	"github.com/Akaere-NetWorks/whois-server/pkg/logger"
)

func main() {
	cfgPath := os.Getenv("WHOIS_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("whois-server: fatal startup error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// --- C1: embedded KV store ---
	store, err := kv.Open(cfg.KV.Path, cfg.KV.SubDBs)
	if err != nil {
		return fmt.Errorf("kv: open: %w", err)
	}
	defer store.Close()

	// --- C10: request stats, restored from the last persisted snapshot ---
	requestStats, err := stats.LoadFrom(store)
	if err != nil {
		log.WithError(err).Warn("stats: starting from an empty snapshot")
		requestStats = stats.New()
	}

	// --- C2: patch engine, seeded from the local patches/ directory, then
	// from whatever UPDATE-PATCH previously persisted to C1 ---
	patchEngine := patch.NewEngine()
	if localFiles, err := patch.LoadLocalDir(cfg.Patch.LocalDir, log.Logger); err != nil {
		log.WithError(err).Warn("patch: failed to load local patches directory")
	} else if len(localFiles) > 0 {
		patchEngine.Swap(localFiles)
		if err := patch.SaveLocalDirToStore(cfg.Patch.LocalDir, store); err != nil {
			log.WithError(err).Warn("patch: failed to seed local patches into the store")
		}
	}
	if storedFiles, err := patch.LoadFromStore(store, log.Logger); err != nil {
		log.WithError(err).Warn("patch: failed to load persisted patches")
	} else if len(storedFiles) > 0 {
		patchEngine.Swap(storedFiles)
	}
	patchUpdater := patch.NewUpdater(store, patchEngine, log.Logger)

	// --- C4: DN42 mirror manager ---
	var dn42Backend dn42.Backend
	if cfg.DN42.Backend == "http" {
		dn42Backend = dn42.NewHTTPBackend(cfg.DN42.HTTPBaseURL, &http.Client{Timeout: 30 * time.Second}, store)
	} else {
		dn42Backend = dn42.NewGitBackend(cfg.DN42.GitURL, cfg.DN42.MirrorPath, log.Logger)
	}
	dn42Manager := dn42.NewManager(dn42Backend, log.Logger)
	if err := dn42Manager.Refresh(ctx); err != nil {
		log.WithError(err).Warn("dn42: initial refresh failed, serving without a mirror until the next scheduled refresh")
	}

	// --- C5: upstream RFC 3912 client ---
	whoisClient := whoisclient.New(cfg.WhoisClient.RootServer, cfg.WhoisClient.Timeout, dn42Manager, log.Logger)

	// --- C7: handler registry, built-ins first, then C3's plugin bundles ---
	reg := registry.New()
	handlerDeps := handlers.NewDeps()
	handlerDeps.WhoisClient = whoisClient
	handlerDeps.DN42 = dn42Manager
	handlerDeps.Patch = patchEngine
	handlerDeps.Updater = patchUpdater
	handlerDeps.PatchDir = cfg.Patch.LocalDir
	handlerDeps.PatchIndex = cfg.Patch.IndexURL
	handlerDeps.Log = log.Logger
	handlerDeps.OMDbAPIKey = os.Getenv("WHOIS_OMDB_API_KEY")
	handlers.RegisterAll(reg, handlerDeps)

	pluginManager, err := plugin.Load(cfg.Plugin.Dir, log.Logger, store)
	if err != nil {
		log.WithError(err).Warn("plugin: failed to load plugin directory")
		pluginManager = nil
	} else {
		pluginManager.RegisterInto(reg)
		defer pluginManager.Shutdown()
	}

	// --- C8: request processor tying everything above together ---
	proc := &process.Processor{
		Registry:    reg,
		DN42:        dn42Manager,
		WhoisClient: whoisClient,
		Patch:       patchEngine,
		Stats:       requestStats,
		Log:         log.Logger,
	}

	// --- C11: scheduled jobs ---
	sched := scheduler.New(log.Logger)
	if cfg.DN42.RefreshEvery > 0 {
		_ = sched.AddJob(ctx, scheduler.Job{
			Name:     "dn42-refresh",
			Interval: cfg.DN42.RefreshEvery,
			Run:      dn42Manager.Refresh,
		})
	}
	_ = sched.AddJob(ctx, scheduler.Job{
		Name:     "stats-snapshot",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			return requestStats.SaveTo(store)
		},
	})
	if cfg.KV.SweepEvery > 0 {
		_ = sched.AddJob(ctx, scheduler.Job{
			Name:     "kv-sweep",
			Interval: cfg.KV.SweepEvery,
			Run: func(ctx context.Context) error {
				_, err := store.SweepExpired(cfg.KV.SubDBs)
				return err
			},
		})
	}
	if cfg.Patch.ReloadEvery > 0 {
		_ = sched.AddJob(ctx, scheduler.Job{
			Name:     "patch-reload",
			Interval: cfg.Patch.ReloadEvery,
			Run: func(ctx context.Context) error {
				_, err := patchUpdater.Update(ctx, cfg.Patch.IndexURL)
				return err
			},
		})
	}
	sched.Start()
	defer sched.Stop()

	// --- C9: primary TCP surface, optional SSH REPL, optional secondary
	// HTTP surface, all run concurrently until ctx is cancelled ---
	errCh := make(chan error, 3)

	tcpServer := server.New(server.Config{
		BindAddr:       cfg.Server.BindAddr,
		MaxConnections: cfg.Server.MaxConnections,
		Timeout:        cfg.Server.Timeout,
		LineCap:        cfg.Server.LineCap,
		DumpDir:        cfg.Server.DumpDir,
	}, proc, log.Logger)
	go func() { errCh <- tcpServer.Run(ctx) }()

	if cfg.SSH.Enabled {
		sshServer, err := server.NewSSHServer(server.SSHConfig{
			BindAddr:    cfg.SSH.BindAddr,
			HostKeyPath: cfg.SSH.HostKeyPath,
			Timeout:     cfg.Server.Timeout,
		}, proc, log.Logger)
		if err != nil {
			log.WithError(err).Warn("ssh: disabled due to host key error")
		} else {
			go func() { errCh <- sshServer.Run(ctx) }()
		}
	}

	if cfg.HTTP.Enabled {
		metricsRegistry := metrics.NewRegistry(requestStats)
		httpServer := httpapi.New(httpapi.Config{
			BindAddr: cfg.HTTP.BindAddr,
			Timeout:  cfg.Server.Timeout,
		}, proc, requestStats, metricsRegistry, log.Logger)
		go func() { errCh <- httpServer.Run(ctx) }()
	}

	log.WithField("bind", cfg.Server.BindAddr).Info("whois-server: ready")

	select {
	case <-ctx.Done():
		log.Info("whois-server: shutting down")
		_ = requestStats.SaveTo(store)
		return nil
	case err := <-errCh:
		cancel()
		_ = requestStats.SaveTo(store)
		return err
	}
}
