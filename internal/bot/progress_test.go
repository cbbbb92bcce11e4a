package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"tubebot/internal/flow"
	"tubebot/internal/log"
)

// withProgress must stop its ticker on every exit path. A panic unwinding out
// of the wrapped work previously left the goroutine posting "still working"
// forever, since the update loop's context outlives the request.
func TestWithProgressStopsTickerOnPanic(t *testing.T) {
	var posts atomic.Int64
	b := &Bot{
		progressInterval: 5 * time.Millisecond,
		post:             func(int64, string) { posts.Add(1) },
		logger:           log.WithComponent("bot"),
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the wrapped work to panic")
			}
		}()
		b.withProgress(context.Background(), 42, func() flow.Reply {
			time.Sleep(15 * time.Millisecond)
			panic("format resolution blew up")
		})
	}()

	after := posts.Load()
	if after == 0 {
		t.Fatal("ticker never fired before the panic")
	}
	time.Sleep(30 * time.Millisecond)
	if got := posts.Load(); got != after {
		t.Errorf("ticker still posting after panic: %d -> %d", after, got)
	}
}

func TestWithProgressStopsTickerOnReturn(t *testing.T) {
	var posts atomic.Int64
	b := &Bot{
		progressInterval: 5 * time.Millisecond,
		post:             func(int64, string) { posts.Add(1) },
		logger:           log.WithComponent("bot"),
	}

	r := b.withProgress(context.Background(), 42, func() flow.Reply {
		time.Sleep(12 * time.Millisecond)
		return flow.Reply{Text: "done"}
	})
	if r.Text != "done" {
		t.Fatalf("reply = %q, want the wrapped result", r.Text)
	}

	after := posts.Load()
	time.Sleep(30 * time.Millisecond)
	if got := posts.Load(); got != after {
		t.Errorf("ticker still posting after return: %d -> %d", after, got)
	}
}
