// Package store persists session, participant and note-board records and
// notifies subscribers on every write. It makes no multi-record transaction
// guarantee; composite operations are sequenced by the caller.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrDuplicateSession    = errors.New("session id already exists")
	ErrParticipantNotFound = errors.New("participant not found")
)

// Status is the session lifecycle state. Transitions are forward-only:
// lobby -> playing -> finished.
type Status string

const (
	StatusLobby    Status = "lobby"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Session is the single source of truth for one game. The host owns Status,
// CalledPrompts, AvailablePrompts and Winner; BingoCallers is append-only and
// idempotent per name.
type Session struct {
	ID               string    `json:"id"`
	HostName         string    `json:"hostName"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	CalledPrompts    []string  `json:"calledPrompts"`
	AvailablePrompts []string  `json:"availablePrompts"`
	BingoCallers     []string  `json:"bingoCallers"`
	Winner           string    `json:"winner,omitempty"`
}

// SessionUpdate merges into an existing session. Nil fields are left
// untouched; non-nil fields replace the stored value wholesale, except
// BingoCallers, whose entries are unioned in per name. Claims come from many
// writers at once, so the append must happen inside the store's update path
// rather than in the caller, or two claimants reading the same snapshot
// would overwrite each other.
type SessionUpdate struct {
	Status           *Status
	CalledPrompts    *[]string
	AvailablePrompts *[]string
	BingoCallers     *[]string
	Winner           *string
}

// Participant is one joined player, keyed by display name within a session.
// The card is dealt once and stable across rejoins.
type Participant struct {
	Name     string    `json:"name"`
	IsHost   bool      `json:"isHost"`
	Card     []string  `json:"card,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Note is one wish or worry. Notes are append-only.
type Note struct {
	ID          string    `json:"id"`
	Type        NoteType  `json:"type"`
	Text        string    `json:"text"`
	Author      string    `json:"author"`
	AuthorTitle string    `json:"authorTitle"`
	CreatedAt   time.Time `json:"createdAt"`
}

type NoteType string

const (
	NoteWish  NoteType = "wish"
	NoteWorry NoteType = "worry"
)

// Store is the persistence contract. Every successful write publishes exactly
// one change notification for its scope, observable by all current
// subscribers including the writer's own; idempotence is the observer's job.
// Writes are immediately visible to subsequent reads by the same caller.
type Store interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSession(ctx context.Context, id string, u SessionUpdate) (Session, error)

	PutParticipant(ctx context.Context, sessionID string, p Participant) error
	GetParticipant(ctx context.Context, sessionID, name string) (Participant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]Participant, error)

	AppendNote(ctx context.Context, boardID string, n Note) error
	ListNotes(ctx context.Context, boardID string) ([]Note, error)

	// Subscriptions deliver at-least-once per write to their scope; callbacks
	// receive the freshest state and may see coalesced updates.
	SubscribeSession(id string, fn func(Session)) (unsubscribe func())
	SubscribeParticipants(sessionID string, fn func([]Participant)) (unsubscribe func())
	SubscribeBoard(boardID string, fn func([]Note)) (unsubscribe func())

	Close() error
}

// Scope names shared by implementations so notifier backends can be swapped.
func sessionScope(id string) string      { return "session:" + id }
func participantsScope(id string) string { return "participants:" + id }
func boardScope(id string) string        { return "board:" + id }

func (u SessionUpdate) apply(s *Session) {
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.CalledPrompts != nil {
		s.CalledPrompts = append([]string(nil), *u.CalledPrompts...)
	}
	if u.AvailablePrompts != nil {
		s.AvailablePrompts = append([]string(nil), *u.AvailablePrompts...)
	}
	if u.BingoCallers != nil {
	merge:
		for _, name := range *u.BingoCallers {
			for _, existing := range s.BingoCallers {
				if existing == name {
					continue merge
				}
			}
			s.BingoCallers = append(s.BingoCallers, name)
		}
	}
	if u.Winner != nil {
		s.Winner = *u.Winner
	}
}
