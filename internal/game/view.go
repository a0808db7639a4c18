package game

import (
	"context"
	"errors"

	"github.com/teamoffsite/promptbingo/internal/deck"
	"github.com/teamoffsite/promptbingo/internal/store"
)

// View is the derived, per-participant read model the rendering layer
// consumes. It is recomputed from the authoritative snapshot on every change
// notification; recomputing twice from the same snapshot yields the same view.
type View struct {
	SessionCode   string              `json:"sessionCode"`
	Status        store.Status        `json:"status"`
	HostName      string              `json:"hostName"`
	You           string              `json:"you"`
	IsHost        bool                `json:"isHost"`
	Card          []string            `json:"card,omitempty"`
	Marked        [deck.Size]bool     `json:"marked"`
	Line          deck.Line           `json:"-"`
	HasLine       bool                `json:"hasLine"`
	CurrentPrompt string              `json:"currentPrompt,omitempty"`
	CalledPrompts []string            `json:"calledPrompts"`
	Roster        []store.Participant `json:"roster"`
	BingoCallers  []string            `json:"bingoCallers"`
	Winner        string              `json:"winner,omitempty"`
}

// View builds the derived state for one participant from fresh snapshots.
func (s *Service) View(ctx context.Context, code, name string) (View, error) {
	code = NormalizeCode(code)
	sess, err := s.store.GetSession(ctx, code)
	if err != nil {
		return View{}, err
	}
	p, err := s.store.GetParticipant(ctx, code, name)
	if err != nil {
		if errors.Is(err, store.ErrParticipantNotFound) {
			return View{}, ErrNotParticipant
		}
		return View{}, err
	}
	roster, err := s.store.ListParticipants(ctx, code)
	if err != nil {
		return View{}, err
	}
	// rosters are rendered without cards; each participant sees only their own
	for i := range roster {
		roster[i].Card = nil
	}

	v := View{
		SessionCode:   code,
		Status:        sess.Status,
		HostName:      sess.HostName,
		You:           p.Name,
		IsHost:        p.IsHost,
		Card:          p.Card,
		CalledPrompts: sess.CalledPrompts,
		Roster:        roster,
		BingoCallers:  sess.BingoCallers,
		Winner:        sess.Winner,
	}
	if len(sess.CalledPrompts) > 0 {
		v.CurrentPrompt = sess.CalledPrompts[len(sess.CalledPrompts)-1]
	}
	if len(p.Card) == deck.Size {
		v.Marked = deck.MarkCard(p.Card, sess.CalledPrompts)
		v.Line = deck.EvaluateLines(v.Marked)
		v.HasLine = v.Line != deck.LineNone
	}
	return v, nil
}

// Snapshot returns the session plus roster for fan-out to a whole room.
func (s *Service) Snapshot(ctx context.Context, code string) (store.Session, []store.Participant, error) {
	code = NormalizeCode(code)
	sess, err := s.store.GetSession(ctx, code)
	if err != nil {
		return store.Session{}, nil, err
	}
	roster, err := s.store.ListParticipants(ctx, code)
	if err != nil {
		return store.Session{}, nil, err
	}
	return sess, roster, nil
}
