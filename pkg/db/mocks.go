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

	"github.com/stretchr/testify/mock"

	"github.com/patrolhq/netpatrol/pkg/models"
)

// MockService is a testify mock of Service for use in tests across
// packages.
type MockService struct {
	mock.Mock
}

var _ Service = (*MockService)(nil)

func (m *MockService) LoadEnabledDevices(ctx context.Context) ([]*models.Device, error) {
	args := m.Called(ctx)

	devices, _ := args.Get(0).([]*models.Device)

	return devices, args.Error(1)
}

func (m *MockService) UpsertDeviceRuntimeFields(ctx context.Context, device *models.Device) error {
	return m.Called(ctx, device).Error(0)
}

func (m *MockService) BulkInsertCheckResults(ctx context.Context, results []*models.CheckResult) error {
	return m.Called(ctx, results).Error(0)
}

func (m *MockService) Close() error {
	return m.Called().Error(0)
}
