package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/inspectIT/inspectit-ocelot-sub003/agent"
	"github.com/inspectIT/inspectit-ocelot-sub003/config"
	"github.com/inspectIT/inspectit-ocelot-sub003/hook"
	"github.com/inspectIT/inspectit-ocelot-sub003/reconcile"
	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/scope"
	"github.com/inspectIT/inspectit-ocelot-sub003/transform"
	"github.com/inspectIT/inspectit-ocelot-sub003/wasmhost"
)

// newLogger returns a console logger on a terminal and JSON otherwise.
func newLogger(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if term.IsTerminal(int(os.Stderr.Fd())) {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// installLogger hands log to every package before any component is built.
func installLogger(log *zap.Logger) {
	config.SetLogger(log.Named("config"))
	scope.SetLogger(log.Named("scope"))
	resolve.SetLogger(log.Named("resolve"))
	hook.SetLogger(log.Named("hook"))
	transform.SetLogger(log.Named("transform"))
	reconcile.SetLogger(log.Named("reconcile"))
	wasmhost.SetLogger(log.Named("wasmhost"))
	agent.SetLogger(log.Named("agent"))
}
