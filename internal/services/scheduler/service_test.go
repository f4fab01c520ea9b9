package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marwane019/board-report-generator/internal/common"
)

func schedulerConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Scheduler.MaxRetries = 2
	cfg.Scheduler.RetryDelay = "1ms"
	cfg.Scheduler.HealthPort = 0
	return cfg
}

func TestRunWithRetriesSucceedsAfterFailures(t *testing.T) {
	var calls int32
	svc := NewService(schedulerConfig(), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	})

	err := svc.runWithRetries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRunWithRetriesExhausted(t *testing.T) {
	var calls int32
	svc := NewService(schedulerConfig(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("always failing")
	})

	err := svc.runWithRetries(context.Background())
	require.Error(t, err)
	// One initial attempt plus two retries.
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRunOnceRecoversPanic(t *testing.T) {
	svc := NewService(schedulerConfig(), func(ctx context.Context) error {
		panic("boom")
	})

	err := svc.runOnce(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestTriggerSkipsOverlappingRun(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	cfg := schedulerConfig()
	cfg.Scheduler.MaxRetries = 0
	svc := NewService(cfg, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		svc.trigger(context.Background())
		close(done)
	}()

	// Wait for the first run to be in flight, then trigger again.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, time.Millisecond)

	svc.trigger(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	close(release)
	<-done
}

func TestTriggerRecordsState(t *testing.T) {
	cfg := schedulerConfig()
	cfg.Scheduler.MaxRetries = 0
	svc := NewService(cfg, func(ctx context.Context) error { return nil })

	svc.trigger(context.Background())

	svc.state.mu.RLock()
	defer svc.state.mu.RUnlock()
	assert.Equal(t, "ok", svc.state.lastStatus)
	assert.Equal(t, 1, svc.state.runs)
	assert.False(t, svc.state.lastRun.IsZero())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := schedulerConfig()
	cfg.Scheduler.Schedule = "not a schedule"
	svc := NewService(cfg, func(ctx context.Context) error { return nil })

	err := svc.Start(context.Background())
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	state := &runState{lastStatus: "ok", runs: 3, failures: 1, lastRun: time.Now()}
	h := newHealthServer(port, state)
	h.start()
	defer h.stop()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded healthResponse
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "ok", decoded.Status)
	assert.Equal(t, 3, decoded.Runs)
	assert.Equal(t, 1, decoded.Failures)
	assert.NotEmpty(t, decoded.LastRun)
}
