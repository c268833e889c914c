package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inspectIT/inspectit-ocelot-sub003/agent"
	"github.com/inspectIT/inspectit-ocelot-sub003/config"
	"github.com/inspectIT/inspectit-ocelot-sub003/selfmon"
	"github.com/inspectIT/inspectit-ocelot-sub003/wasmhost"
)

var (
	configPath  string
	modulesDir  string
	metricsAddr string
	debugLog    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Instrument modules until interrupted",
	Long: `Loads every *.wasm module of --modules, instruments them according to
--config and keeps them in sync with the file until SIGINT or SIGTERM. On
exit every applied modification is removed before the process ends.`,
	RunE: runAgent,
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a settings file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(args[0]); err != nil {
			return err
		}
		cmd.Println("ok")
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "settings file (yaml)")
	runCmd.Flags().StringVar(&modulesDir, "modules", ".", "directory of *.wasm modules")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address")
	runCmd.Flags().BoolVar(&debugLog, "debug", false, "enable debug logging")
	_ = runCmd.MarkFlagRequired("config")
}

func runAgent(cmd *cobra.Command, _ []string) error {
	log, err := newLogger(debugLog)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	installLogger(log)

	raw, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	monitor := selfmon.NewPrometheus(reg)

	host := wasmhost.New(ctx, nil)
	defer func() { _ = host.Close(context.WithoutCancel(ctx)) }()

	a := agent.New(host, raw, &agent.Config{Monitor: monitor})

	units, err := host.LoadDir(ctx, modulesDir)
	if err != nil {
		return err
	}
	log.Info("modules loaded", zap.String("dir", modulesDir), zap.Int("units", len(units)))

	watcher, err := config.NewWatcher(configPath, a.UpdateConfig)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error {
		if err := watcher.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		watcher.Stop()
		return nil
	})
	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
