// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Command coldmove runs the tiering engine: the scheduled orchestrator,
// the journal maintenance service and the REST API, supervised together.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/thejerf/suture/v4"

	"github.com/coldmove/coldmove/internal/api"
	"github.com/coldmove/coldmove/internal/build"
	"github.com/coldmove/coldmove/internal/config"
	"github.com/coldmove/coldmove/internal/fileservice"
	"github.com/coldmove/coldmove/internal/journal"
	"github.com/coldmove/coldmove/internal/migrate"
	"github.com/coldmove/coldmove/internal/orchestrator"
	"github.com/coldmove/coldmove/internal/slogutil"
	"github.com/coldmove/coldmove/internal/telemetry"
)

type cli struct {
	Config     string        `help:"Path to the settings file" default:"coldmove.json" env:"COLDMOVE_CONFIG"`
	Database   string        `help:"Path to the journal database" default:"coldmove.db" env:"COLDMOVE_DB"`
	Inventory  string        `help:"Path to the share inventory file" default:"shares.json" env:"COLDMOVE_INVENTORY"`
	Root       string        `help:"Local root directory backing the UNC namespace" default:"." env:"COLDMOVE_ROOT"`
	Staging    string        `help:"Staging directory for file transfers" env:"COLDMOVE_STAGING"`
	Listen     string        `help:"HTTP listen address" default:"127.0.0.1:8380" env:"LISTEN_ADDRESS"`
	Interval   time.Duration `help:"Time between scheduled scan passes" default:"24h" env:"COLDMOVE_INTERVAL"`
	MaxWorkers int           `help:"Maximum concurrently processed shares" default:"4" env:"COLDMOVE_MAX_WORKERS"`
	Version    bool          `help:"Print version and exit"`
}

func main() {
	var params cli
	kong.Parse(&params)

	if params.Version {
		fmt.Println(build.LongVersion())
		return
	}

	if err := run(params); err != nil {
		slog.Error("Startup failed", slogutil.Error(err))
		os.Exit(1)
	}
}

func run(params cli) error {
	slog.Info("Starting", slog.String("version", build.LongVersion()))

	cfg, err := config.LoadOrCreate(params.Config)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	provider, err := telemetry.LoadStatic(params.Inventory)
	if err != nil {
		return fmt.Errorf("share inventory: %w", err)
	}

	db, err := journal.Open(params.Database)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer db.Close()

	service := fileservice.NewLocal(params.Root)

	exec, err := migrate.New(service, db, migrate.Options{StagingDir: params.Staging})
	if err != nil {
		return fmt.Errorf("executor: %w", err)
	}

	orch := orchestrator.New(cfg, provider, service, db, exec, orchestrator.Options{
		Interval:   params.Interval,
		MaxWorkers: params.MaxWorkers,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	spv := suture.New("main", suture.Spec{
		PassThroughPanics: true,
	})
	spv.Add(db.Service(0))
	spv.Add(orch)
	spv.Add(api.New(params.Listen, cfg, provider, db, orch))

	err = spv.Serve(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	slog.Info("Exiting")
	return nil
}
