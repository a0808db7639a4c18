package game

import (
	"context"

	"github.com/teamoffsite/promptbingo/internal/store"
)

// WatchCard runs the participant side of the sync loop: on every session
// change notification it re-derives the participant's marked set from the
// freshest snapshot and, if a line is complete and the name has not claimed
// yet, appends the claim. Notifications may coalesce several draws; the
// re-derivation does not care. The returned stop function is safe to call
// more than once.
func (s *Service) WatchCard(code, name string) (stop func()) {
	code = NormalizeCode(code)

	check := func(sess store.Session) {
		if sess.Winner != "" || sess.Status != store.StatusPlaying {
			return
		}
		for _, caller := range sess.BingoCallers {
			if caller == name {
				return
			}
		}
		v, err := s.View(context.Background(), code, name)
		if err != nil {
			s.log.Error().Err(err).Str("code", code).Str("name", name).Msg("card watch view failed")
			return
		}
		if !v.HasLine {
			return
		}
		if _, err := s.ClaimBingo(context.Background(), code, name); err != nil {
			s.log.Error().Err(err).Str("code", code).Str("name", name).Msg("auto claim failed")
		}
	}

	unsub := s.store.SubscribeSession(code, check)

	// catch up immediately in case the line completed before we subscribed
	if sess, err := s.store.GetSession(context.Background(), code); err == nil {
		check(sess)
	}

	return unsub
}
