package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// validManagerConfig returns a ManagerConfig suitable for tests that do not
// exercise timeout behavior.
func validManagerConfig(b Builder) ManagerConfig {
	return ManagerConfig{
		Builder:      b,
		BuildTimeout: 5 * time.Second,
		StopTimeout:  5 * time.Second,
	}
}

// TestNewManagerWithConfigPanicsOnInvalidConfig verifies construction-time
// validation.
func TestNewManagerWithConfigPanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg     ManagerConfig
		wantMsg string
	}{
		"nil builder": {
			cfg: ManagerConfig{
				BuildTimeout: time.Second,
				StopTimeout:  time.Second,
			},
			wantMsg: "builder must not be nil",
		},
		"zero build timeout": {
			cfg: ManagerConfig{
				Builder:     newFakeBuilder(),
				StopTimeout: time.Second,
			},
			wantMsg: "build timeout must be greater than 0",
		},
		"zero stop timeout": {
			cfg: ManagerConfig{
				Builder:      newFakeBuilder(),
				BuildTimeout: time.Second,
			},
			wantMsg: "stop timeout must be greater than 0",
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			requirePanicContains(t, func() {
				NewManagerWithConfig(tc.cfg)
			}, tc.wantMsg)
		})
	}
}

// TestManagerAcquireRelease verifies the manager delegates to the registry
// with the configured builder.
func TestManagerAcquireRelease(t *testing.T) {
	t.Parallel()

	builder := newFakeBuilder()
	mgr := NewManagerWithConfig(validManagerConfig(builder))

	h, err := mgr.Acquire(context.Background(), 2181)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if h.Port() != 2181 {
		t.Errorf("handle port = %d, want 2181", h.Port())
	}
	if got := mgr.Registry().Refs(2181); got != 1 {
		t.Errorf("Refs(2181) = %d, want 1", got)
	}

	if err := mgr.Release(2181); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if got := builder.handle(t, 0).shutdowns.Load(); got != 1 {
		t.Errorf("handle shut down %d times, want 1", got)
	}
}

// TestManagerAcquireAfterShutdown verifies that Acquire refuses work once
// Shutdown has been called.
func TestManagerAcquireAfterShutdown(t *testing.T) {
	t.Parallel()

	mgr := NewManagerWithConfig(validManagerConfig(newFakeBuilder()))

	if err := mgr.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !mgr.IsShuttingDown() {
		t.Error("IsShuttingDown should report true after Shutdown")
	}

	_, err := mgr.Acquire(context.Background(), 2181)
	if !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Acquire after Shutdown error = %v, want ErrShuttingDown", err)
	}
}

// TestManagerShutdownStopsRegisteredServers verifies that Shutdown drains
// the registry, and that calling it twice is safe.
func TestManagerShutdownStopsRegisteredServers(t *testing.T) {
	t.Parallel()

	builder := newFakeBuilder()
	mgr := NewManagerWithConfig(validManagerConfig(builder))

	if _, err := mgr.Acquire(context.Background(), 7001); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if err := mgr.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if got := builder.handle(t, 0).shutdowns.Load(); got != 1 {
		t.Errorf("handle shut down %d times, want 1", got)
	}

	if err := mgr.Shutdown(); err != nil {
		t.Errorf("second Shutdown failed: %v", err)
	}
	if got := builder.handle(t, 0).shutdowns.Load(); got != 1 {
		t.Errorf("handle shut down %d times after second Shutdown, want still 1", got)
	}
}

// TestManagerBuildTimeoutBoundsBuilder verifies that a hanging builder is
// cut off by the configured BuildTimeout.
func TestManagerBuildTimeoutBoundsBuilder(t *testing.T) {
	t.Parallel()

	hanging := BuilderFunc(func(ctx context.Context, _ int) (Handle, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	mgr := NewManagerWithConfig(ManagerConfig{
		Builder:      hanging,
		BuildTimeout: 50 * time.Millisecond,
		StopTimeout:  time.Second,
	})

	start := time.Now()
	_, err := mgr.Acquire(context.Background(), 2181)
	if err == nil {
		t.Fatal("Acquire with hanging builder should fail")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire error = %v, want wrapping context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Acquire took %s, build timeout did not bound the builder", elapsed)
	}
}
