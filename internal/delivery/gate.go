// Package delivery sends a produced file and guarantees its cleanup.
package delivery

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"tubebot/internal/log"
)

// SendFunc performs the platform-specific send of a local file.
type SendFunc func(ctx context.Context, path string) error

// Gate runs a send action and always deletes the file afterwards. A short
// settle delay precedes the first delete attempt so buffered I/O can drain;
// a failed delete is retried once after RetryDelay. Deletion failures are
// logged and never surfaced as the operation's failure.
type Gate struct {
	SettleDelay time.Duration
	RetryDelay  time.Duration
	remove      func(path string) error
	logger      zerolog.Logger
}

// NewGate returns a Gate with the default delays.
func NewGate() *Gate {
	return &Gate{
		SettleDelay: 500 * time.Millisecond,
		RetryDelay:  2 * time.Second,
		remove:      os.Remove,
		logger:      log.WithComponent("delivery"),
	}
}

// SendAndCleanup invokes send and then removes path. Only the send outcome is
// returned; cleanup proceeds regardless.
func (g *Gate) SendAndCleanup(ctx context.Context, path string, send SendFunc) error {
	sendErr := send(ctx, path)
	if sendErr != nil {
		g.logger.Error().Err(sendErr).Str("path", path).Msg("send failed")
	}

	time.Sleep(g.SettleDelay)
	if err := g.remove(path); err != nil && !os.IsNotExist(err) {
		g.logger.Warn().Err(err).Str("path", path).Msg("delete failed, retrying")
		time.Sleep(g.RetryDelay)
		if err := g.remove(path); err != nil && !os.IsNotExist(err) {
			g.logger.Error().Err(err).Str("path", path).Msg("delete failed after retry")
		}
	}

	return sendErr
}
