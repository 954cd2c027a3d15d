package concurrency

import (
	"testing"
	"time"
)

func TestSignal_NotifyBeforeWait(t *testing.T) {
	s := NewSignal()
	s.Notify()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("early notification was lost")
	}
}

func TestSignal_SinglePermit(t *testing.T) {
	s := NewSignal()
	s.Notify()
	s.Notify()
	if !s.TryWait() {
		t.Fatal("permit missing")
	}
	if s.TryWait() {
		t.Fatal("second notification produced a second permit")
	}
}
