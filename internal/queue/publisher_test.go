package queue

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

// silentBroker accepts TCP connections and never answers the AMQP
// handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestDial_HandshakeIsBounded(t *testing.T) {
	url := silentBroker(t)
	start := time.Now()
	if _, err := dial(url, 300*time.Millisecond); err == nil {
		t.Fatal("dial to a silent peer succeeded")
	}
	if d := time.Since(start); d > 3*time.Second {
		t.Errorf("dial returned after %s", d)
	}
}

func TestPublish_NeverBlocksOnBroker(t *testing.T) {
	p := newPublisher(silentBroker(t), 4, 300*time.Millisecond)
	defer p.Close()

	start := time.Now()
	var wg sync.WaitGroup
	var mu sync.Mutex
	var dropped int
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Publish(context.Background(), LockAuditEvent{Type: LockVerified})
			if errors.Is(err, ErrAuditDropped) {
				mu.Lock()
				dropped++
				mu.Unlock()
			} else if err != nil {
				t.Errorf("Publish: %v", err)
			}
		}()
	}
	wg.Wait()

	if d := time.Since(start); d > 200*time.Millisecond {
		t.Errorf("20 publishes took %s", d)
	}
	if dropped == 0 {
		t.Error("a full buffer should drop events")
	}
}

func TestPublisher_Close(t *testing.T) {
	p := newPublisher(silentBroker(t), 4, 300*time.Millisecond)
	_ = p.Publish(context.Background(), LockAuditEvent{Type: LockGenerated})

	done := make(chan struct{})
	go func() {
		_ = p.Close()
		_ = p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return")
	}
	if err := p.Publish(context.Background(), LockAuditEvent{Type: LockRevoked}); !errors.Is(err, ErrAuditDropped) {
		t.Errorf("Publish after Close: err = %v", err)
	}
}
