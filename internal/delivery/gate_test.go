package delivery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newFastGate() *Gate {
	g := NewGate()
	g.SettleDelay = 0
	g.RetryDelay = 0
	return g
}

func tempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.mp3")
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSendAndCleanupRemovesFileOnSuccess(t *testing.T) {
	path := tempFile(t)
	var sentPath string

	err := newFastGate().SendAndCleanup(context.Background(), path, func(_ context.Context, p string) error {
		sentPath = p
		return nil
	})
	if err != nil {
		t.Fatalf("SendAndCleanup: %v", err)
	}
	if sentPath != path {
		t.Errorf("send saw %q, want %q", sentPath, path)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("file survived cleanup")
	}
}

func TestSendAndCleanupRemovesFileOnSendFailure(t *testing.T) {
	path := tempFile(t)
	sendErr := errors.New("request entity too large")

	err := newFastGate().SendAndCleanup(context.Background(), path, func(context.Context, string) error {
		return sendErr
	})
	if !errors.Is(err, sendErr) {
		t.Fatalf("err = %v, want the send error", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("file survived cleanup after failed send")
	}
}

func TestSendAndCleanupRetriesFailedDelete(t *testing.T) {
	path := tempFile(t)
	sendErr := errors.New("request entity too large")

	g := newFastGate()
	attempts := 0
	g.remove = func(p string) error {
		attempts++
		if attempts == 1 {
			return errors.New("text file busy")
		}
		return os.Remove(p)
	}

	err := g.SendAndCleanup(context.Background(), path, func(context.Context, string) error {
		return sendErr
	})
	if !errors.Is(err, sendErr) {
		t.Fatalf("err = %v, want the send error", err)
	}
	if attempts != 2 {
		t.Errorf("remove attempts = %d, want 2", attempts)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("file survived retry cleanup")
	}
}

func TestSendAndCleanupMissingFileIsNotAnError(t *testing.T) {
	err := newFastGate().SendAndCleanup(context.Background(), filepath.Join(t.TempDir(), "gone.mp3"),
		func(context.Context, string) error { return nil })
	if err != nil {
		t.Fatalf("missing file surfaced as error: %v", err)
	}
}
