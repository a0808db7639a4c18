package store

import (
	"context"
	"sort"
	"sync"

	"github.com/teamoffsite/promptbingo/internal/notify"
)

// Memory keeps all records in process, the reference single-device
// persistence. Change notification rides the injected notifier so the same
// subscription semantics hold whether observers share the process or not.
type Memory struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	participants map[string]map[string]*Participant // sessionID -> name -> participant
	joinOrder    map[string][]string                // sessionID -> names in join order
	boards       map[string][]Note

	notifier notify.Notifier
}

func NewMemory(n notify.Notifier) *Memory {
	return &Memory{
		sessions:     make(map[string]*Session),
		participants: make(map[string]map[string]*Participant),
		joinOrder:    make(map[string][]string),
		boards:       make(map[string][]Note),
		notifier:     n,
	}
}

func (m *Memory) CreateSession(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, exists := m.sessions[s.ID]; exists {
		m.mu.Unlock()
		return ErrDuplicateSession
	}
	copied := cloneSession(s)
	m.sessions[s.ID] = &copied
	m.mu.Unlock()

	m.notifier.Publish(sessionScope(s.ID))
	return nil
}

func (m *Memory) GetSession(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return cloneSession(*s), nil
}

func (m *Memory) UpdateSession(ctx context.Context, id string, u SessionUpdate) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	u.apply(s)
	out := cloneSession(*s)
	m.mu.Unlock()

	m.notifier.Publish(sessionScope(id))
	return out, nil
}

func (m *Memory) PutParticipant(ctx context.Context, sessionID string, p Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.sessions[sessionID]; !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	if m.participants[sessionID] == nil {
		m.participants[sessionID] = make(map[string]*Participant)
	}
	if _, seen := m.participants[sessionID][p.Name]; !seen {
		m.joinOrder[sessionID] = append(m.joinOrder[sessionID], p.Name)
	}
	copied := cloneParticipant(p)
	m.participants[sessionID][p.Name] = &copied
	m.mu.Unlock()

	m.notifier.Publish(participantsScope(sessionID))
	return nil
}

func (m *Memory) GetParticipant(ctx context.Context, sessionID, name string) (Participant, error) {
	if err := ctx.Err(); err != nil {
		return Participant{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[sessionID][name]
	if !ok {
		return Participant{}, ErrParticipantNotFound
	}
	return cloneParticipant(*p), nil
}

func (m *Memory) ListParticipants(ctx context.Context, sessionID string) ([]Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := m.joinOrder[sessionID]
	out := make([]Participant, 0, len(names))
	for _, name := range names {
		if p, ok := m.participants[sessionID][name]; ok {
			out = append(out, cloneParticipant(*p))
		}
	}
	return out, nil
}

func (m *Memory) AppendNote(ctx context.Context, boardID string, n Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.boards[boardID] = append(m.boards[boardID], n)
	m.mu.Unlock()

	m.notifier.Publish(boardScope(boardID))
	return nil
}

func (m *Memory) ListNotes(ctx context.Context, boardID string) ([]Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	notes := append([]Note(nil), m.boards[boardID]...)
	m.mu.RUnlock()

	// newest first for display
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

func (m *Memory) SubscribeSession(id string, fn func(Session)) func() {
	return m.notifier.Subscribe(sessionScope(id), func() {
		if s, err := m.GetSession(context.Background(), id); err == nil {
			fn(s)
		}
	})
}

func (m *Memory) SubscribeParticipants(sessionID string, fn func([]Participant)) func() {
	return m.notifier.Subscribe(participantsScope(sessionID), func() {
		if ps, err := m.ListParticipants(context.Background(), sessionID); err == nil {
			fn(ps)
		}
	})
}

func (m *Memory) SubscribeBoard(boardID string, fn func([]Note)) func() {
	return m.notifier.Subscribe(boardScope(boardID), func() {
		if notes, err := m.ListNotes(context.Background(), boardID); err == nil {
			fn(notes)
		}
	})
}

func (m *Memory) Close() error { return nil }

func cloneSession(s Session) Session {
	s.CalledPrompts = append([]string(nil), s.CalledPrompts...)
	s.AvailablePrompts = append([]string(nil), s.AvailablePrompts...)
	s.BingoCallers = append([]string(nil), s.BingoCallers...)
	return s
}

func cloneParticipant(p Participant) Participant {
	p.Card = append([]string(nil), p.Card...)
	return p
}
