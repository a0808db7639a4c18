package game

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/teamoffsite/promptbingo/internal/deck"
	"github.com/teamoffsite/promptbingo/internal/store"
)

// Autoplay drives a session through the same public operations a human host
// would use: it draws a prompt on a fixed cadence and declares the first
// pending claimant the winner. There is no parallel rule implementation; the
// state machine's guards apply to it like any other caller.
type Autoplay struct {
	Service  *Service
	Clock    clockwork.Clock
	Interval time.Duration
	Log      zerolog.Logger
}

// Run loops until the game finishes, the deck runs out with nobody claiming,
// or ctx is cancelled.
func (a *Autoplay) Run(ctx context.Context, code, host string) error {
	interval := a.Interval
	if interval == 0 {
		interval = 2 * time.Second
	}
	ticker := a.Clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}

		sess, err := a.Service.store.GetSession(ctx, NormalizeCode(code))
		if err != nil {
			return err
		}
		if sess.Status == store.StatusFinished {
			return nil
		}
		if len(sess.BingoCallers) > 0 {
			if _, err := a.Service.DeclareWinner(ctx, code, host, sess.BingoCallers[0]); err != nil {
				if errors.Is(err, ErrGameFinished) {
					return nil
				}
				return err
			}
			a.Log.Info().Str("code", code).Str("winner", sess.BingoCallers[0]).Msg("autoplay declared winner")
			return nil
		}

		_, _, err = a.Service.DrawPrompt(ctx, code, host)
		if errors.Is(err, deck.ErrDeckExhausted) {
			a.Log.Warn().Str("code", code).Msg("autoplay exhausted the deck with no claims")
			return err
		}
		if errors.Is(err, ErrGameFinished) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
