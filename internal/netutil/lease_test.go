package netutil

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestAcquirePortLease verifies basic acquire/release and that the lease
// file is created but left on disk after release.
func TestAcquirePortLease(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	lease, err := AcquirePortLease(context.Background(), dir, 2181, nil)
	if err != nil {
		t.Fatalf("AcquirePortLease failed: %v", err)
	}
	if lease.Port() != 2181 {
		t.Errorf("Port() = %d, want 2181", lease.Port())
	}
	if _, statErr := os.Stat(lease.Path()); statErr != nil {
		t.Errorf("lease file not created: %v", statErr)
	}

	lease.Release()

	// The lease file is intentionally left on disk.
	if _, statErr := os.Stat(lease.Path()); statErr != nil {
		t.Errorf("lease file should remain after release: %v", statErr)
	}
}

// TestAcquirePortLeaseBlocksUntilReleased verifies that a second acquirer of
// the same port waits for the holder to release.
func TestAcquirePortLeaseBlocksUntilReleased(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	first, err := AcquirePortLease(ctx, dir, 2181, nil)
	if err != nil {
		t.Fatalf("first AcquirePortLease failed: %v", err)
	}

	acquired := make(chan *PortLease, 1)
	go func() {
		second, secondErr := AcquirePortLease(ctx, dir, 2181, nil)
		if secondErr != nil {
			t.Errorf("second AcquirePortLease failed: %v", secondErr)
			acquired <- nil
			return
		}
		acquired <- second
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while lease was held")
	case <-time.After(200 * time.Millisecond):
		// Still blocked, as expected.
	}

	first.Release()

	select {
	case second := <-acquired:
		second.Release()
	case <-time.After(5 * time.Second):
		t.Fatal("second acquire did not complete after release")
	}
}

// TestAcquirePortLeaseContextCanceled verifies that a canceled context aborts
// a blocked acquire.
func TestAcquirePortLeaseContextCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	holder, err := AcquirePortLease(context.Background(), dir, 9090, nil)
	if err != nil {
		t.Fatalf("AcquirePortLease failed: %v", err)
	}
	defer holder.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if _, err := AcquirePortLease(ctx, dir, 9090, nil); err == nil {
		t.Fatal("AcquirePortLease with expired context should fail")
	}
}

// TestAcquirePortLeaseDistinctPorts verifies that leases on different ports
// do not contend.
func TestAcquirePortLeaseDistinctPorts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	a, err := AcquirePortLease(ctx, dir, 7001, nil)
	if err != nil {
		t.Fatalf("lease on 7001 failed: %v", err)
	}
	defer a.Release()

	b, err := AcquirePortLease(ctx, dir, 7002, nil)
	if err != nil {
		t.Fatalf("lease on 7002 failed: %v", err)
	}
	defer b.Release()
}

// TestPortLeaseReleaseNil verifies Release is safe on a nil lease.
func TestPortLeaseReleaseNil(t *testing.T) {
	t.Parallel()

	var l *PortLease
	l.Release()
}
