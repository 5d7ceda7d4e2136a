package netutil

import (
	"net"
	"strconv"
	"sync"
	"testing"
)

// TestAllocatePortReturnsBindablePort verifies that an allocated port can
// actually be bound by the caller.
func TestAllocatePortReturnsBindablePort(t *testing.T) {
	t.Parallel()

	reg := NewPortRegistry(nil)

	port, err := reg.AllocatePort()
	if err != nil {
		t.Fatalf("AllocatePort failed: %v", err)
	}
	defer reg.Release(port)

	if port <= 0 || port > 65535 {
		t.Fatalf("AllocatePort returned out-of-range port %d", port)
	}

	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("allocated port %d not bindable: %v", port, err)
	}
	_ = l.Close()
}

// TestAllocatePortDistinctUnderConcurrency verifies that concurrent
// allocations from one registry never return the same port.
func TestAllocatePortDistinctUnderConcurrency(t *testing.T) {
	t.Parallel()

	const n = 16

	reg := NewPortRegistry(nil)

	var (
		mu    sync.Mutex
		ports = make(map[int]int)
		wg    sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			port, err := reg.AllocatePort()
			if err != nil {
				t.Errorf("AllocatePort failed: %v", err)
				return
			}
			mu.Lock()
			ports[port]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for port, count := range ports {
		if count > 1 {
			t.Errorf("port %d allocated %d times", port, count)
		}
		reg.Release(port)
	}
}

// TestReserveReleaseCycle verifies that Release makes a port reservable again.
func TestReserveReleaseCycle(t *testing.T) {
	t.Parallel()

	reg := NewPortRegistry(nil)

	if !reg.reserve(40001) {
		t.Fatal("first reserve of port 40001 should succeed")
	}
	if reg.reserve(40001) {
		t.Fatal("second reserve of port 40001 should fail while held")
	}
	if !reg.Reserved(40001) {
		t.Fatal("Reserved should report the held port")
	}

	reg.Release(40001)

	if reg.Reserved(40001) {
		t.Fatal("Reserved should not report a released port")
	}
	if !reg.reserve(40001) {
		t.Fatal("reserve after Release should succeed")
	}
}
