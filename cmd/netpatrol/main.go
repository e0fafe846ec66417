/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/patrolhq/netpatrol/pkg/cache"
	"github.com/patrolhq/netpatrol/pkg/config"
	"github.com/patrolhq/netpatrol/pkg/db"
	"github.com/patrolhq/netpatrol/pkg/engine"
	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/metrics"
	"github.com/patrolhq/netpatrol/pkg/models"
	"github.com/patrolhq/netpatrol/pkg/probe"
	"github.com/patrolhq/netpatrol/pkg/recovery"
	"github.com/patrolhq/netpatrol/pkg/registry"
)

func main() {
	configPath := flag.String("config", "/etc/netpatrol/netpatrol.json", "Path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("netpatrol: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.NewPostgres(ctx, &cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	probes := probe.NewRegistry()
	probes.Register(models.CheckKindPing, probe.NewICMPProbe(appLogger))
	probes.Register(models.CheckKindHTTP, probe.NewHTTPProbe(false, false, appLogger))
	probes.Register(models.CheckKindHTTPS, probe.NewHTTPProbe(true, true, appLogger))
	probes.Register(models.CheckKindSSH, probe.NewSSHProbe(appLogger))
	probes.Register(models.CheckKindDNS, probe.NewDNSProbe(appLogger))
	probes.Register(models.CheckKindSNMP, probe.NewSNMPProbe(appLogger))

	var recoverer recovery.Recoverer
	if cfg.SSH.Enabled {
		recoverer = recovery.NewSSHRecoverer(&cfg.SSH, appLogger)
	}

	cacheTTL := cfg.CacheTTL.Std()
	if cacheTTL == 0 {
		cacheTTL = cache.DefaultTTL
	}

	windowSize := cfg.MetricsWindow
	if windowSize == 0 {
		windowSize = metrics.DefaultWindowSize
	}

	mon, err := engine.New(engine.Options{
		Config:    cfg.Engine,
		Store:     store,
		Probes:    probes,
		Registry:  registry.NewDeviceRegistry(appLogger, registry.ForceSSHPolicy("router", "switch")),
		Writer:    db.NewBatchWriter(store, cfg.Writer, appLogger),
		Cache:     cache.NewDeviceCache(cacheTTL, appLogger),
		Metrics:   metrics.NewCollector(windowSize, appLogger),
		Recoverer: recoverer,
		Logger:    appLogger,
	})
	if err != nil {
		return err
	}

	mon.OnAlert(func(alert models.Alert) {
		appLogger.Info().
			Str("event_id", alert.EventID.String()).
			Str("device", alert.Device.Name).
			Str("old_status", string(alert.OldStatus)).
			Str("new_status", string(alert.NewStatus)).
			Msg("ALERT")
	})

	if err := mon.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	appLogger.Info().Msg("Shutdown signal received")

	return mon.Stop()
}
