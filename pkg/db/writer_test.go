package db

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patrolhq/netpatrol/pkg/logger"
	"github.com/patrolhq/netpatrol/pkg/models"
)

func pingResult(deviceID int64) *models.CheckResult {
	return &models.CheckResult{
		DeviceID:     deviceID,
		Kind:         models.CheckKindPing,
		Success:      true,
		ResponseTime: 1.5,
		Timestamp:    time.Now(),
	}
}

func TestWriterBelowThresholdDoesNotFlush(t *testing.T) {
	store := &MockService{}
	w := NewBatchWriter(store, WriterConfig{BatchSize: 50}, logger.NewTestLogger())

	for i := 0; i < 49; i++ {
		w.Add(pingResult(int64(i)))
	}

	assert.Equal(t, 49, w.PendingCount())
	assert.Equal(t, int64(0), w.TotalBatches())
	store.AssertNotCalled(t, "BulkInsertCheckResults")
}

func TestWriterSizeTrigger(t *testing.T) {
	store := &MockService{}
	store.On("BulkInsertCheckResults", mock.Anything, mock.MatchedBy(func(batch []*models.CheckResult) bool {
		return len(batch) == 5
	})).Return(nil).Once()

	w := NewBatchWriter(store, WriterConfig{BatchSize: 5}, logger.NewTestLogger())

	for i := 0; i < 5; i++ {
		w.Add(pingResult(int64(i)))
	}

	assert.Equal(t, 0, w.PendingCount())
	assert.Equal(t, int64(1), w.TotalBatches())
	assert.Equal(t, int64(5), w.TotalRecords())
	store.AssertExpectations(t)
}

func TestWriterForceFlush(t *testing.T) {
	store := &MockService{}
	store.On("BulkInsertCheckResults", mock.Anything, mock.Anything).Return(nil).Once()

	w := NewBatchWriter(store, WriterConfig{BatchSize: 50}, logger.NewTestLogger())

	w.Add(pingResult(1))
	w.Add(pingResult(2))
	w.ForceFlush()

	assert.Equal(t, 0, w.PendingCount())
	assert.Equal(t, int64(2), w.TotalRecords())
	store.AssertExpectations(t)
}

func TestWriterForceFlushEmptyBufferNoWrite(t *testing.T) {
	store := &MockService{}
	w := NewBatchWriter(store, WriterConfig{}, logger.NewTestLogger())

	w.ForceFlush()

	store.AssertNotCalled(t, "BulkInsertCheckResults")
}

func TestWriterTimeTrigger(t *testing.T) {
	store := &MockService{}
	store.On("BulkInsertCheckResults", mock.Anything, mock.Anything).Return(nil)

	w := NewBatchWriter(store, WriterConfig{
		BatchSize:     50,
		FlushInterval: models.Duration(10 * time.Millisecond),
	}, logger.NewTestLogger())

	w.Start()
	defer w.Stop()

	w.Add(pingResult(1))

	require.Eventually(t, func() bool {
		return w.TotalRecords() == 1
	}, 5*time.Second, 20*time.Millisecond, "time trigger should flush the partial batch")
}

func TestWriterFlushErrorDropsBatch(t *testing.T) {
	store := &MockService{}
	store.On("BulkInsertCheckResults", mock.Anything, mock.Anything).
		Return(errors.New("connection refused")).Once()

	w := NewBatchWriter(store, WriterConfig{BatchSize: 2}, logger.NewTestLogger())

	w.Add(pingResult(1))
	w.Add(pingResult(2))

	assert.Equal(t, 0, w.PendingCount(), "failed batch is dropped, not requeued")
	assert.Equal(t, int64(0), w.TotalRecords())
	store.AssertExpectations(t)
}

func TestWriterStopDrainsBuffer(t *testing.T) {
	store := &MockService{}
	store.On("BulkInsertCheckResults", mock.Anything, mock.Anything).Return(nil).Once()

	w := NewBatchWriter(store, WriterConfig{BatchSize: 50}, logger.NewTestLogger())

	w.Start()
	w.Add(pingResult(1))
	w.Stop()

	assert.Equal(t, int64(1), w.TotalRecords())
	store.AssertExpectations(t)
}

func TestWriterRestart(t *testing.T) {
	store := &MockService{}
	store.On("BulkInsertCheckResults", mock.Anything, mock.Anything).Return(nil)

	w := NewBatchWriter(store, WriterConfig{BatchSize: 50}, logger.NewTestLogger())

	w.Start()
	w.Stop()

	w.Start()
	w.Add(pingResult(1))
	w.Stop()

	assert.Equal(t, int64(1), w.TotalRecords())
}
