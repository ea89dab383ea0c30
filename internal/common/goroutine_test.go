package common

import (
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

func TestSafeGo_RunsFunction(t *testing.T) {
	done := make(chan struct{})
	SafeGo(arbor.NewLogger(), "test", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function did not run")
	}
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	after := make(chan struct{})
	SafeGo(arbor.NewLogger(), "panicking", func() {
		defer close(after)
		panic("boom")
	})

	select {
	case <-after:
	case <-time.After(time.Second):
		t.Fatal("function did not run")
	}
}
