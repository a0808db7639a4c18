package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/teamoffsite/promptbingo/internal/notify"
)

// SQLite persists records durably on the current device. Prompt lists and
// cards are stored as JSON columns; the session row is the unit of update so
// a winner declaration lands atomically with the status change.
type SQLite struct {
	db       *sql.DB
	notifier notify.Notifier
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                TEXT PRIMARY KEY,
	host_name         TEXT NOT NULL,
	status            TEXT NOT NULL,
	created_at        INTEGER NOT NULL,
	called_prompts    TEXT NOT NULL,
	available_prompts TEXT NOT NULL,
	bingo_callers     TEXT NOT NULL,
	winner            TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS participants (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	name       TEXT NOT NULL,
	is_host    INTEGER NOT NULL,
	card       TEXT NOT NULL,
	joined_at  INTEGER NOT NULL,
	PRIMARY KEY (session_id, name)
);
CREATE TABLE IF NOT EXISTS notes (
	id          TEXT PRIMARY KEY,
	board_id    TEXT NOT NULL,
	type        TEXT NOT NULL,
	text        TEXT NOT NULL,
	author      TEXT NOT NULL,
	author_title TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS notes_board_ix ON notes(board_id, created_at DESC);
`

// OpenSQLite opens (creating if necessary) the store at path.
func OpenSQLite(path string, n notify.Notifier) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite store path is required")
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db, notifier: n}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func toMillis(t time.Time) int64   { return t.UTC().UnixMilli() }
func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeList(raw string) []string {
	var out []string
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

// CreateSession relies on the primary key for duplicate detection: a single
// INSERT leaves no window for a concurrent create to slip between a check
// and the write.
func (s *SQLite) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, host_name, status, created_at, called_prompts, available_prompts, bingo_callers, winner)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.HostName, string(sess.Status), toMillis(sess.CreatedAt),
		encodeList(sess.CalledPrompts), encodeList(sess.AvailablePrompts),
		encodeList(sess.BingoCallers), sess.Winner,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateSession
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.notifier.Publish(sessionScope(sess.ID))
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func (s *SQLite) GetSession(ctx context.Context, id string) (Session, error) {
	var (
		sess                   Session
		status                 string
		createdAt              int64
		called, avail, callers string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, host_name, status, created_at, called_prompts, available_prompts, bingo_callers, winner
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.HostName, &status, &createdAt, &called, &avail, &callers, &sess.Winner)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("select session: %w", err)
	}
	sess.Status = Status(status)
	sess.CreatedAt = fromMillis(createdAt)
	sess.CalledPrompts = decodeList(called)
	sess.AvailablePrompts = decodeList(avail)
	sess.BingoCallers = decodeList(callers)
	return sess, nil
}

func (s *SQLite) UpdateSession(ctx context.Context, id string, u SessionUpdate) (Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		sess                   Session
		status                 string
		createdAt              int64
		called, avail, callers string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, host_name, status, created_at, called_prompts, available_prompts, bingo_callers, winner
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.HostName, &status, &createdAt, &called, &avail, &callers, &sess.Winner)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("select session: %w", err)
	}
	sess.Status = Status(status)
	sess.CreatedAt = fromMillis(createdAt)
	sess.CalledPrompts = decodeList(called)
	sess.AvailablePrompts = decodeList(avail)
	sess.BingoCallers = decodeList(callers)

	u.apply(&sess)

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET status = ?, called_prompts = ?, available_prompts = ?, bingo_callers = ?, winner = ?
		 WHERE id = ?`,
		string(sess.Status), encodeList(sess.CalledPrompts), encodeList(sess.AvailablePrompts),
		encodeList(sess.BingoCallers), sess.Winner, id,
	)
	if err != nil {
		return Session{}, fmt.Errorf("update session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("commit update: %w", err)
	}
	s.notifier.Publish(sessionScope(id))
	return sess, nil
}

func (s *SQLite) PutParticipant(ctx context.Context, sessionID string, p Participant) error {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (session_id, name, is_host, card, joined_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (session_id, name) DO UPDATE SET is_host = excluded.is_host, card = excluded.card`,
		sessionID, p.Name, boolInt(p.IsHost), encodeList(p.Card), toMillis(p.JoinedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	s.notifier.Publish(participantsScope(sessionID))
	return nil
}

func (s *SQLite) GetParticipant(ctx context.Context, sessionID, name string) (Participant, error) {
	var (
		p        Participant
		isHost   int
		card     string
		joinedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, is_host, card, joined_at FROM participants WHERE session_id = ? AND name = ?`,
		sessionID, name,
	).Scan(&p.Name, &isHost, &card, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Participant{}, ErrParticipantNotFound
	}
	if err != nil {
		return Participant{}, fmt.Errorf("select participant: %w", err)
	}
	p.IsHost = isHost != 0
	p.Card = decodeList(card)
	p.JoinedAt = fromMillis(joinedAt)
	return p, nil
}

func (s *SQLite) ListParticipants(ctx context.Context, sessionID string) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, is_host, card, joined_at FROM participants WHERE session_id = ? ORDER BY joined_at, name`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var (
			p        Participant
			isHost   int
			card     string
			joinedAt int64
		)
		if err := rows.Scan(&p.Name, &isHost, &card, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.IsHost = isHost != 0
		p.Card = decodeList(card)
		p.JoinedAt = fromMillis(joinedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) AppendNote(ctx context.Context, boardID string, n Note) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, board_id, type, text, author, author_title, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, boardID, string(n.Type), n.Text, n.Author, n.AuthorTitle, toMillis(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	s.notifier.Publish(boardScope(boardID))
	return nil
}

func (s *SQLite) ListNotes(ctx context.Context, boardID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, text, author, author_title, created_at
		 FROM notes WHERE board_id = ? ORDER BY created_at DESC, id`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("select notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var (
			n         Note
			noteType  string
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &noteType, &n.Text, &n.Author, &n.AuthorTitle, &createdAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.Type = NoteType(noteType)
		n.CreatedAt = fromMillis(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) SubscribeSession(id string, fn func(Session)) func() {
	return s.notifier.Subscribe(sessionScope(id), func() {
		if sess, err := s.GetSession(context.Background(), id); err == nil {
			fn(sess)
		}
	})
}

func (s *SQLite) SubscribeParticipants(sessionID string, fn func([]Participant)) func() {
	return s.notifier.Subscribe(participantsScope(sessionID), func() {
		if ps, err := s.ListParticipants(context.Background(), sessionID); err == nil {
			fn(ps)
		}
	})
}

func (s *SQLite) SubscribeBoard(boardID string, fn func([]Note)) func() {
	return s.notifier.Subscribe(boardScope(boardID), func() {
		if notes, err := s.ListNotes(context.Background(), boardID); err == nil {
			fn(notes)
		}
	})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
