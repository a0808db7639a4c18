// Package board manages the collaborative wish/worry note boards: append-only
// short text submissions shared under a board code, with on-demand theme
// consolidation through the summarizer.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teamoffsite/promptbingo/internal/ai"
	"github.com/teamoffsite/promptbingo/internal/game"
	"github.com/teamoffsite/promptbingo/internal/store"
)

var ErrInvalidNote = errors.New("note needs a type, text and author")

// Service appends and lists notes. Notes are never edited or removed.
type Service struct {
	store      store.Store
	summarizer *ai.Summarizer
	log        zerolog.Logger
}

func NewService(st store.Store, summarizer *ai.Summarizer, log zerolog.Logger) *Service {
	return &Service{store: st, summarizer: summarizer, log: log}
}

// NoteInput is a submission before the server assigns id and timestamp.
type NoteInput struct {
	Type        store.NoteType `json:"type"`
	Text        string         `json:"text"`
	Author      string         `json:"author"`
	AuthorTitle string         `json:"authorTitle"`
}

func (s *Service) AddNote(ctx context.Context, boardID string, in NoteInput) (store.Note, error) {
	boardID = game.NormalizeCode(boardID)
	in.Text = strings.TrimSpace(in.Text)
	in.Author = strings.TrimSpace(in.Author)
	if in.Text == "" || in.Author == "" || (in.Type != store.NoteWish && in.Type != store.NoteWorry) {
		return store.Note{}, ErrInvalidNote
	}

	n := store.Note{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Text:        in.Text,
		Author:      in.Author,
		AuthorTitle: strings.TrimSpace(in.AuthorTitle),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.AppendNote(ctx, boardID, n); err != nil {
		return store.Note{}, fmt.Errorf("append note: %w", err)
	}
	s.log.Info().Str("board", boardID).Str("type", string(n.Type)).Str("author", n.Author).Msg("note added")
	return n, nil
}

// Notes returns the board newest first.
func (s *Service) Notes(ctx context.Context, boardID string) ([]store.Note, error) {
	return s.store.ListNotes(ctx, game.NormalizeCode(boardID))
}

// Subscribe delivers the full note list on every append.
func (s *Service) Subscribe(boardID string, fn func([]store.Note)) (unsubscribe func()) {
	return s.store.SubscribeBoard(game.NormalizeCode(boardID), fn)
}

// Consolidate summarizes the board's current notes. The summary is derived
// state, recomputed per request; a summarizer failure degrades to raw counts
// and is reported through Insights.FromFallback, never as an error.
func (s *Service) Consolidate(ctx context.Context, boardID string) (ai.Insights, error) {
	notes, err := s.store.ListNotes(ctx, game.NormalizeCode(boardID))
	if err != nil {
		return ai.Insights{}, err
	}
	var wishes, worries []string
	for _, n := range notes {
		switch n.Type {
		case store.NoteWish:
			wishes = append(wishes, n.Text)
		case store.NoteWorry:
			worries = append(worries, n.Text)
		}
	}
	return s.summarizer.Consolidate(ctx, wishes, worries), nil
}
