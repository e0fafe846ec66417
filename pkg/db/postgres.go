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

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

const defaultPostgresPort = 5432

// Config describes the Postgres connection used as the system of record.
type Config struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Database        string `json:"database"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	SSLMode         string `json:"ssl_mode"`
	MaxConnections  int32  `json:"max_connections"`
	ApplicationName string `json:"application_name"`
}

// Postgres implements Service on top of a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ Service = (*Postgres)(nil)

// NewPostgres dials the configured database and returns a Service backed by
// a pgx pool.
func NewPostgres(ctx context.Context, cfg *Config, log logger.Logger) (*Postgres, error) {
	c := *cfg
	if c.Port == 0 {
		c.Port = defaultPostgresPort
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}

	if c.Username != "" {
		if c.Password != "" {
			connURL.User = url.UserPassword(c.Username, c.Password)
		} else {
			connURL.User = url.User(c.Username)
		}
	}

	query := connURL.Query()

	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)

	if c.ApplicationName != "" {
		query.Set("application_name", c.ApplicationName)
	}

	connURL.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if c.MaxConnections > 0 {
		poolConfig.MaxConns = c.MaxConnections
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool, logger: log.WithComponent("db")}, nil
}

const loadEnabledDevicesQuery = `
SELECT id, name, ip_address, description, device_type,
       enabled, check_interval, timeout,
       ping_enabled, http_enabled, https_enabled, ssh_enabled, dns_enabled, snmp_enabled,
       http_port, https_port, ssh_port, snmp_port, http_path, http_expected_status,
       snmp_community, snmp_version,
       alert_enabled, alert_on_down, alert_on_up, alert_on_degraded,
       current_status, ping_status, web_status,
       total_checks, successful_checks, failed_checks,
       uptime_percentage, response_time, last_check_time, last_status_change,
       requires_manual_intervention
FROM devices
WHERE enabled = true
ORDER BY id`

func (p *Postgres) LoadEnabledDevices(ctx context.Context) ([]*models.Device, error) {
	rows, err := p.pool.Query(ctx, loadEnabledDevicesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query enabled devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device

	for rows.Next() {
		d := &models.Device{}

		var (
			checkInterval, timeout     int64
			lastCheck, lastChange      *time.Time
			currentStatus              string
			pingStatus, webStatus      *string
			description, deviceType    *string
			httpPath, community, snmpV *string
		)

		err := rows.Scan(
			&d.ID, &d.Name, &d.IPAddress, &description, &deviceType,
			&d.Enabled, &checkInterval, &timeout,
			&d.PingEnabled, &d.HTTPEnabled, &d.HTTPSEnabled, &d.SSHEnabled, &d.DNSEnabled, &d.SNMPEnabled,
			&d.HTTPPort, &d.HTTPSPort, &d.SSHPort, &d.SNMPPort, &httpPath, &d.HTTPExpectedStatus,
			&community, &snmpV,
			&d.AlertEnabled, &d.AlertOnDown, &d.AlertOnUp, &d.AlertOnDegraded,
			&currentStatus, &pingStatus, &webStatus,
			&d.TotalChecks, &d.SuccessfulChecks, &d.FailedChecks,
			&d.UptimePercentage, &d.ResponseTime, &lastCheck, &lastChange,
			&d.RequiresManualIntervention,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}

		d.CheckInterval = models.Duration(time.Duration(checkInterval) * time.Second)
		d.Timeout = models.Duration(time.Duration(timeout) * time.Second)
		d.CurrentStatus = models.DeviceStatus(currentStatus)

		if description != nil {
			d.Description = *description
		}

		if deviceType != nil {
			d.DeviceType = *deviceType
		}

		if httpPath != nil {
			d.HTTPPath = *httpPath
		}

		if community != nil {
			d.SNMPCommunity = *community
		}

		if snmpV != nil {
			d.SNMPVersion = *snmpV
		}

		if pingStatus != nil {
			d.PingStatus = models.CheckStatus(*pingStatus)
		}

		if webStatus != nil {
			d.WebStatus = models.CheckStatus(*webStatus)
		}

		if lastCheck != nil {
			d.LastCheckTime = *lastCheck
		}

		if lastChange != nil {
			d.LastStatusChange = *lastChange
		}

		if d.CurrentStatus == "" {
			d.CurrentStatus = models.StatusUnknown
		}

		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device rows: %w", err)
	}

	return devices, nil
}

const upsertRuntimeFieldsQuery = `
UPDATE devices SET
	current_status = $2,
	ping_status = NULLIF($3, ''),
	web_status = NULLIF($4, ''),
	total_checks = $5,
	successful_checks = $6,
	failed_checks = $7,
	uptime_percentage = $8,
	response_time = $9,
	last_check_time = $10,
	last_status_change = $11,
	requires_manual_intervention = $12
WHERE id = $1`

func (p *Postgres) UpsertDeviceRuntimeFields(ctx context.Context, device *models.Device) error {
	_, err := p.pool.Exec(ctx, upsertRuntimeFieldsQuery,
		device.ID,
		string(device.CurrentStatus),
		string(device.PingStatus),
		string(device.WebStatus),
		device.TotalChecks,
		device.SuccessfulChecks,
		device.FailedChecks,
		device.UptimePercentage,
		device.ResponseTime,
		nullableTime(device.LastCheckTime),
		nullableTime(device.LastStatusChange),
		device.RequiresManualIntervention,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert device runtime fields: %w", err)
	}

	return nil
}

const insertCheckResultQuery = `
INSERT INTO check_results (
	device_id, check_kind, check_time, success,
	response_time, status_code, error_message, check_data
) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`

func (p *Postgres) BulkInsertCheckResults(ctx context.Context, results []*models.CheckResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	for _, r := range results {
		data := []byte("{}")

		if r.Data != nil {
			encoded, err := json.Marshal(r.Data)
			if err != nil {
				p.logger.Warn().
					Err(err).
					Int64("device_id", r.DeviceID).
					Msg("Failed to marshal check data; storing empty object")
			} else {
				data = encoded
			}
		}

		batch.Queue(insertCheckResultQuery,
			r.DeviceID,
			string(r.Kind),
			r.Timestamp,
			r.Success,
			r.ResponseTime,
			nullableInt(r.StatusCode),
			r.Error,
			data,
		)
	}

	br := p.pool.SendBatch(ctx, batch)
	defer func() {
		if err := br.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to close batch results")
		}
	}()

	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert check result batch: %w", err)
		}
	}

	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}

func nullableInt(v int) *int {
	if v == 0 {
		return nil
	}

	return &v
}
