// Package game holds the session state machine: one host advances the game,
// any number of participants observe it and append their own claims. Guards
// are re-checked against a fresh store snapshot immediately before every
// host write, never against a cached copy.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/teamoffsite/promptbingo/internal/deck"
	"github.com/teamoffsite/promptbingo/internal/store"
)

var (
	ErrNotHost             = errors.New("only the host may perform this action")
	ErrNotJoinable         = errors.New("session is not accepting players")
	ErrInsufficientPlayers = errors.New("need at least two participants to start")
	ErrNotPlaying          = errors.New("session is not in play")
	ErrGameFinished        = errors.New("game already finished")
	ErrNotParticipant      = errors.New("not a participant of this session")
)

const codeLength = 4

// Service drives sessions against a store. Safe for concurrent use.
type Service struct {
	store   store.Store
	catalog []string
	log     zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(st store.Store, catalog []string, rng *rand.Rand, log zerolog.Logger) *Service {
	return &Service{store: st, catalog: catalog, rng: rng, log: log}
}

// Store exposes the backing store for layers that subscribe to change
// notifications directly.
func (s *Service) Store() store.Store { return s.store }

// Create opens a session in the lobby and registers the creating participant
// as its host. The host gets no card; cards are dealt at start.
func (s *Service) Create(ctx context.Context, hostName string) (store.Session, error) {
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return store.Session{}, fmt.Errorf("host name is required")
	}

	var sess store.Session
	for {
		sess = store.Session{
			ID:        s.randomCode(codeLength),
			HostName:  hostName,
			Status:    store.StatusLobby,
			CreatedAt: time.Now().UTC(),
		}
		err := s.store.CreateSession(ctx, sess)
		if errors.Is(err, store.ErrDuplicateSession) {
			continue
		}
		if err != nil {
			return store.Session{}, fmt.Errorf("create session: %w", err)
		}
		break
	}

	host := store.Participant{Name: hostName, IsHost: true, JoinedAt: time.Now().UTC()}
	if err := s.store.PutParticipant(ctx, sess.ID, host); err != nil {
		return store.Session{}, fmt.Errorf("register host: %w", err)
	}

	s.log.Info().Str("code", sess.ID).Str("host", hostName).Msg("session created")
	return sess, nil
}

// Join registers a participant. Re-joining with an existing name, the host's
// included, is a no-op that returns the stored participant with its card
// untouched, which is also the reconnection path after a dropped connection.
// Joining after play has begun registers a spectator without a card, since
// cards must be dealt no later than the start transition.
func (s *Service) Join(ctx context.Context, code, name string) (store.Participant, error) {
	code = NormalizeCode(code)
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Participant{}, fmt.Errorf("name is required")
	}

	sess, err := s.store.GetSession(ctx, code)
	if err != nil {
		return store.Participant{}, err
	}

	existing, err := s.store.GetParticipant(ctx, code, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrParticipantNotFound) {
		return store.Participant{}, err
	}

	if sess.Status == store.StatusFinished {
		return store.Participant{}, ErrGameFinished
	}

	p := store.Participant{Name: name, JoinedAt: time.Now().UTC()}
	if err := s.store.PutParticipant(ctx, code, p); err != nil {
		return store.Participant{}, fmt.Errorf("join session: %w", err)
	}
	s.log.Info().Str("code", code).Str("name", name).Str("status", string(sess.Status)).Msg("participant joined")
	return p, nil
}

// Start transitions lobby -> playing: deals a card to every non-host
// participant that has none, then seeds the prompt pool and flips the status
// in one update. Calling it again once playing is a no-op so duplicate host
// clicks are harmless.
func (s *Service) Start(ctx context.Context, code, actor string) (store.Session, error) {
	code = NormalizeCode(code)
	sess, err := s.store.GetSession(ctx, code)
	if err != nil {
		return store.Session{}, err
	}
	if actor != sess.HostName {
		return store.Session{}, ErrNotHost
	}
	switch sess.Status {
	case store.StatusPlaying:
		return sess, nil
	case store.StatusFinished:
		return store.Session{}, ErrGameFinished
	}

	participants, err := s.store.ListParticipants(ctx, code)
	if err != nil {
		return store.Session{}, fmt.Errorf("list participants: %w", err)
	}
	if len(participants) < 2 {
		return store.Session{}, ErrInsufficientPlayers
	}

	for _, p := range participants {
		if p.IsHost || len(p.Card) > 0 {
			continue
		}
		card, err := s.deal()
		if err != nil {
			return store.Session{}, fmt.Errorf("deal card for %s: %w", p.Name, err)
		}
		p.Card = card
		if err := s.store.PutParticipant(ctx, code, p); err != nil {
			return store.Session{}, fmt.Errorf("store card for %s: %w", p.Name, err)
		}
	}

	status := store.StatusPlaying
	available := append([]string(nil), s.catalog...)
	updated, err := s.store.UpdateSession(ctx, code, store.SessionUpdate{
		Status:           &status,
		AvailablePrompts: &available,
	})
	if err != nil {
		return store.Session{}, fmt.Errorf("start session: %w", err)
	}
	s.log.Info().Str("code", code).Int("participants", len(participants)).Msg("session started")
	return updated, nil
}

// DrawPrompt draws the next prompt for the host. Deck exhaustion is reported
// but not fatal; the host may still declare a winner.
func (s *Service) DrawPrompt(ctx context.Context, code, actor string) (string, store.Session, error) {
	code = NormalizeCode(code)
	sess, err := s.store.GetSession(ctx, code)
	if err != nil {
		return "", store.Session{}, err
	}
	if actor != sess.HostName {
		return "", store.Session{}, ErrNotHost
	}
	if sess.Status == store.StatusFinished || sess.Winner != "" {
		return "", store.Session{}, ErrGameFinished
	}
	if sess.Status != store.StatusPlaying {
		return "", store.Session{}, ErrNotPlaying
	}

	s.rngMu.Lock()
	prompt, rest, err := deck.DrawNext(sess.AvailablePrompts, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return "", sess, err
	}

	called := append(append([]string(nil), sess.CalledPrompts...), prompt)
	updated, err := s.store.UpdateSession(ctx, code, store.SessionUpdate{
		CalledPrompts:    &called,
		AvailablePrompts: &rest,
	})
	if err != nil {
		// a dropped write here would desynchronize called from available,
		// so surface it rather than pretending the draw happened
		return "", store.Session{}, fmt.Errorf("persist draw: %w", err)
	}
	s.log.Info().Str("code", code).Str("prompt", prompt).Int("remaining", len(rest)).Msg("prompt drawn")
	return prompt, updated, nil
}

// ClaimBingo appends name to the pending-claims set. Idempotent per name;
// frozen once a winner is declared. The update carries only this claimant's
// name and the store unions it in, so simultaneous claimants cannot
// overwrite each other's entries.
func (s *Service) ClaimBingo(ctx context.Context, code, name string) (store.Session, error) {
	code = NormalizeCode(code)
	sess, err := s.store.GetSession(ctx, code)
	if err != nil {
		return store.Session{}, err
	}
	if sess.Status == store.StatusFinished || sess.Winner != "" {
		return sess, nil
	}
	if _, err := s.store.GetParticipant(ctx, code, name); err != nil {
		if errors.Is(err, store.ErrParticipantNotFound) {
			return store.Session{}, ErrNotParticipant
		}
		return store.Session{}, err
	}
	for _, caller := range sess.BingoCallers {
		if caller == name {
			return sess, nil
		}
	}

	updated, err := s.store.UpdateSession(ctx, code, store.SessionUpdate{BingoCallers: &[]string{name}})
	if err != nil {
		return store.Session{}, fmt.Errorf("record claim: %w", err)
	}
	s.log.Info().Str("code", code).Str("name", name).Msg("bingo claimed")
	return updated, nil
}

// DeclareWinner ends the game. The host is the final arbiter: name must be a
// participant but need not have claimed. Winner and finished status land in a
// single update so no observer sees one without the other.
func (s *Service) DeclareWinner(ctx context.Context, code, actor, name string) (store.Session, error) {
	code = NormalizeCode(code)
	sess, err := s.store.GetSession(ctx, code)
	if err != nil {
		return store.Session{}, err
	}
	if actor != sess.HostName {
		return store.Session{}, ErrNotHost
	}
	if sess.Winner != "" || sess.Status == store.StatusFinished {
		return store.Session{}, ErrGameFinished
	}
	if sess.Status != store.StatusPlaying {
		return store.Session{}, ErrNotPlaying
	}
	if _, err := s.store.GetParticipant(ctx, code, name); err != nil {
		if errors.Is(err, store.ErrParticipantNotFound) {
			return store.Session{}, ErrNotParticipant
		}
		return store.Session{}, err
	}

	status := store.StatusFinished
	updated, err := s.store.UpdateSession(ctx, code, store.SessionUpdate{
		Status: &status,
		Winner: &name,
	})
	if err != nil {
		return store.Session{}, fmt.Errorf("declare winner: %w", err)
	}
	s.log.Info().Str("code", code).Str("winner", name).Msg("winner declared")
	return updated, nil
}

func (s *Service) deal() ([]string, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return deck.DealCard(s.catalog, s.rng)
}

func (s *Service) randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[s.rng.Intn(len(letters))]
	}
	return string(b)
}

// NormalizeCode canonicalizes a hand-typed join code: codes are shared
// verbally, so lookup is case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
