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

// Package config loads the application configuration from a JSON file,
// with secrets overridable from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/patrolhq/netpatrol/pkg/db"
	"github.com/patrolhq/netpatrol/pkg/engine"
	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
	"github.com/patrolhq/netpatrol/pkg/recovery"
)

// Config is the top-level application configuration.
type Config struct {
	Logger        *logger.Config     `json:"logger,omitempty"`
	Database      db.Config          `json:"database"`
	Writer        db.WriterConfig    `json:"writer,omitempty"`
	Engine        engine.Config      `json:"engine,omitempty"`
	SSH           recovery.SSHConfig `json:"ssh,omitempty"`
	CacheTTL      models.Duration    `json:"cache_ttl,omitempty"`
	MetricsWindow int                `json:"metrics_window,omitempty"`
}

// Load reads the config file at path. A .env file in the working
// directory is loaded first so the environment overrides below can come
// from it; a missing .env is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()

	if cfg.Logger == nil {
		cfg.Logger = logger.DefaultConfig()
	}

	return &cfg, nil
}

// applyEnv lets credentials live outside the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("NETPATROL_DB_HOST"); v != "" {
		c.Database.Host = v
	}

	if v := os.Getenv("NETPATROL_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}

	if v := os.Getenv("NETPATROL_DB_USER"); v != "" {
		c.Database.Username = v
	}

	if v := os.Getenv("NETPATROL_SSH_USER"); v != "" {
		c.SSH.Username = v
	}

	if v := os.Getenv("NETPATROL_SSH_PASSWORD"); v != "" {
		c.SSH.Password = v
	}
}
