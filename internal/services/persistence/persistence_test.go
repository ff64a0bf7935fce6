package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iyunix/go-chatsync/internal/repository/document"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

type doc struct {
	Items []string `json:"items"`
	N     int      `json:"n"`
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Timeout = time.Second
	cfg.Debounce = 0
	return cfg
}

func stored(t *testing.T, repo document.Repository, key string) doc {
	t.Helper()
	raw, err := repo.Get(context.Background(), key)
	require.NoError(t, err)
	var d doc
	require.NoError(t, json.Unmarshal(raw, &d))
	return d
}

func TestAdapter_LoadSeedsMissingDocument(t *testing.T) {
	repo := document.NewMemoryRepository()
	a := NewAdapter[doc](repo, testConfig(), nopLogger{})

	initial := doc{Items: []string{}, N: 7}
	got, err := a.Load(context.Background(), "k", initial)
	require.NoError(t, err)
	assert.Equal(t, initial, got)

	assert.Equal(t, initial, stored(t, repo, "k"))
	assert.Equal(t, 1, repo.Writes())
}

func TestAdapter_LoadReturnsStoredValue(t *testing.T) {
	repo := document.NewMemoryRepository()
	require.NoError(t, repo.Set(context.Background(), "k", []byte(`{"items":["a"],"n":3}`)))
	a := NewAdapter[doc](repo, testConfig(), nopLogger{})

	got, err := a.Load(context.Background(), "k", doc{})
	require.NoError(t, err)
	assert.Equal(t, doc{Items: []string{"a"}, N: 3}, got)
	assert.Equal(t, 1, repo.Writes())
}

func TestAdapter_LoadFailuresFallBackToInitial(t *testing.T) {
	initial := doc{N: 1}

	t.Run("backend error", func(t *testing.T) {
		repo := document.NewMemoryRepository()
		repo.SetFailures(errors.New("permission denied"), nil)
		a := NewAdapter[doc](repo, testConfig(), nopLogger{})

		got, err := a.Load(context.Background(), "k", initial)
		assert.Equal(t, initial, got)
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, ErrTypeBackend, storeErr.Type)
		assert.Equal(t, "load", storeErr.Operation)
		assert.True(t, IsReadFailure(err))
	})

	t.Run("corrupt document", func(t *testing.T) {
		repo := document.NewMemoryRepository()
		require.NoError(t, repo.Set(context.Background(), "k", []byte(`{not json`)))
		a := NewAdapter[doc](repo, testConfig(), nopLogger{})

		got, err := a.Load(context.Background(), "k", initial)
		assert.Equal(t, initial, got)
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, ErrTypeDecode, storeErr.Type)
		assert.True(t, IsReadFailure(err))
	})

	t.Run("seed write fails", func(t *testing.T) {
		repo := document.NewMemoryRepository()
		repo.SetFailures(nil, errors.New("offline"))
		a := NewAdapter[doc](repo, testConfig(), nopLogger{})

		got, err := a.Load(context.Background(), "k", initial)
		assert.Equal(t, initial, got)
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "save", storeErr.Operation)
		assert.Contains(t, storeErr.Error(), "offline")
		assert.False(t, IsReadFailure(err))
	})
}

func TestWriter_WritesScheduledValue(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := document.NewMemoryRepository()
	cfg := testConfig()
	w := NewWriter(NewAdapter[doc](repo, cfg, nopLogger{}), "k", cfg, nil, nopLogger{})

	w.Schedule(doc{N: 1})
	assert.Eventually(t, func() bool { return repo.Writes() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, stored(t, repo, "k").N)

	require.NoError(t, w.Close(context.Background()))
}

func TestWriter_LatestSnapshotWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := document.NewMemoryRepository()
	cfg := testConfig()
	cfg.Debounce = 50 * time.Millisecond
	w := NewWriter(NewAdapter[doc](repo, cfg, nopLogger{}), "k", cfg, nil, nopLogger{})

	for i := 1; i <= 20; i++ {
		w.Schedule(doc{N: i})
	}
	require.NoError(t, w.Close(context.Background()))

	assert.Equal(t, 20, stored(t, repo, "k").N)
	assert.Less(t, repo.Writes(), 20)
	assert.False(t, w.Pending())
}

func TestWriter_FlushWritesImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := document.NewMemoryRepository()
	cfg := testConfig()
	cfg.Debounce = time.Hour
	w := NewWriter(NewAdapter[doc](repo, cfg, nopLogger{}), "k", cfg, nil, nopLogger{})
	defer w.Close(context.Background())

	w.Schedule(doc{N: 5})
	assert.True(t, w.Pending())
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 5, stored(t, repo, "k").N)

	// nothing pending: no extra write
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 1, repo.Writes())
}

type countingRecorder struct {
	scheduled, superseded, ok, failed int
}

func (c *countingRecorder) WriteScheduled(superseded bool) {
	c.scheduled++
	if superseded {
		c.superseded++
	}
}

func (c *countingRecorder) WriteDone(err error) {
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

func TestWriter_FailureDoesNotStopLaterWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := document.NewMemoryRepository()
	cfg := testConfig()
	cfg.Debounce = time.Hour
	rec := &countingRecorder{}
	w := NewWriter(NewAdapter[doc](repo, cfg, nopLogger{}), "k", cfg, rec, nopLogger{})

	repo.SetFailures(nil, errors.New("network down"))
	w.Schedule(doc{N: 1})
	assert.Error(t, w.Flush(context.Background()))

	repo.SetFailures(nil, nil)
	w.Schedule(doc{N: 2})
	w.Schedule(doc{N: 3})
	require.NoError(t, w.Close(context.Background()))

	assert.Equal(t, 3, stored(t, repo, "k").N)
	assert.Equal(t, 3, rec.scheduled)
	assert.Equal(t, 1, rec.superseded)
	assert.Equal(t, 1, rec.failed)
	assert.Equal(t, 1, rec.ok)
}

func TestWriter_CloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig()
	w := NewWriter(NewAdapter[doc](document.NewMemoryRepository(), cfg, nopLogger{}), "k", cfg, nil, nopLogger{})
	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "chat-state:user-1", cfg.DocumentKey("user-1"))

	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Debounce = -time.Second
	assert.Error(t, cfg.Validate())
}
