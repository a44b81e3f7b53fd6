package shutdown

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"slidecast/internal/pkg/logger"
)

func testLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{Level: "error", Format: "json", Output: &buf})
}

func TestShutdownRunsHandlers(t *testing.T) {
	m := NewManager(testLogger(), time.Second)

	var ran int32
	m.Register("one", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	m.RegisterSimple("two", func() {
		atomic.AddInt32(&ran, 1)
	})

	m.Shutdown()

	if atomic.LoadInt32(&ran) != 2 {
		t.Errorf("expected 2 handlers to run, got %d", ran)
	}

	select {
	case <-m.Done():
	default:
		t.Error("expected Done channel to be closed after Shutdown")
	}
}

func TestShutdownContinuesOnHandlerError(t *testing.T) {
	m := NewManager(testLogger(), time.Second)

	var ran int32
	m.Register("failing", func(ctx context.Context) error {
		return errors.New("cleanup failed")
	})
	m.Register("ok", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	m.Shutdown()

	if atomic.LoadInt32(&ran) != 1 {
		t.Error("expected remaining handler to run despite failure")
	}
}

func TestShutdownTimeout(t *testing.T) {
	m := NewManager(testLogger(), 50*time.Millisecond)

	m.Register("slow", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return nil
	})

	start := time.Now()
	m.Shutdown()
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Errorf("expected shutdown to give up around the timeout, took %s", elapsed)
	}
}

func TestDefaultTimeout(t *testing.T) {
	m := NewManager(testLogger(), 0)
	if m.timeout != 30*time.Second {
		t.Errorf("expected default timeout of 30s, got %s", m.timeout)
	}
}
