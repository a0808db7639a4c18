// Package ws is the Socket.IO surface. Connections join a room per session
// code; personalized game:state frames are re-derived and pushed on every
// store change notification, so REST writes reach socket clients the same way
// socket writes do.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/teamoffsite/promptbingo/internal/board"
	"github.com/teamoffsite/promptbingo/internal/game"
	"github.com/teamoffsite/promptbingo/internal/store"
)

type ConnCtx struct {
	Code string
	Name string
	Role string // "host" | "player"

	stopWatch func()
}

type Server struct {
	Games  *game.Service
	Boards *board.Service

	mu      sync.Mutex
	members map[string]map[string]socketio.Conn // sessionCode -> socketID -> Conn
	rooms   map[string]func()                   // sessionCode -> store unsubscribe
}

func New(games *game.Service, boards *board.Service) *Server {
	return &Server{
		Games:   games,
		Boards:  boards,
		members: make(map[string]map[string]socketio.Conn),
		rooms:   make(map[string]func()),
	}
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// game:create
	io.OnEvent("/", "game:create", func(s socketio.Conn, payload struct {
		HostName string `json:"hostName"`
	}) map[string]any {
		sess, err := srv.Games.Create(context.Background(), payload.HostName)
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		srv.enter(s, sess.ID, payload.HostName, "host")
		log.Info().Str("sid", s.ID()).Str("code", sess.ID).Msg("game:create")
		srv.emitStateTo(sess.ID)
		return map[string]any{"sessionCode": sess.ID}
	})

	// game:join
	io.OnEvent("/", "game:join", func(s socketio.Conn, payload struct {
		SessionCode string `json:"sessionCode"`
		Name        string `json:"name"`
	}) map[string]any {
		p, err := srv.Games.Join(context.Background(), payload.SessionCode, payload.Name)
		if err != nil {
			return srv.joinErr(s, err)
		}
		code := game.NormalizeCode(payload.SessionCode)
		role := "player"
		if p.IsHost {
			role = "host"
		}
		srv.enter(s, code, p.Name, role)
		log.Info().Str("sid", s.ID()).Str("code", code).Str("name", p.Name).Msg("game:join")
		srv.emitStateTo(code)
		return map[string]any{"name": p.Name, "isHost": p.IsHost}
	})

	// game:start (host)
	io.OnEvent("/", "game:start", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		if _, err := srv.Games.Start(context.Background(), ctx.Code, ctx.Name); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("code", ctx.Code).Msg("game:start")
		return map[string]any{"ok": true}
	})

	// game:draw (host)
	io.OnEvent("/", "game:draw", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		prompt, sess, err := srv.Games.DrawPrompt(context.Background(), ctx.Code, ctx.Name)
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("code", ctx.Code).Str("prompt", prompt).Msg("game:draw")
		return map[string]any{"prompt": prompt, "remaining": len(sess.AvailablePrompts)}
	})

	// game:claim
	io.OnEvent("/", "game:claim", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		sess, err := srv.Games.ClaimBingo(context.Background(), ctx.Code, ctx.Name)
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("code", ctx.Code).Str("name", ctx.Name).Msg("game:claim")
		return map[string]any{"bingoCallers": sess.BingoCallers}
	})

	// game:declareWinner (host)
	io.OnEvent("/", "game:declareWinner", func(s socketio.Conn, payload struct {
		Winner string `json:"winner"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		sess, err := srv.Games.DeclareWinner(context.Background(), ctx.Code, ctx.Name, payload.Winner)
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("code", ctx.Code).Str("winner", sess.Winner).Msg("game:declareWinner")
		return map[string]any{"winner": sess.Winner}
	})

	// board:note
	io.OnEvent("/", "board:note", func(s socketio.Conn, payload struct {
		BoardID string          `json:"boardId"`
		Note    board.NoteInput `json:"note"`
	}) map[string]any {
		n, err := srv.Boards.AddNote(context.Background(), payload.BoardID, payload.Note)
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return map[string]any{"id": n.ID}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok {
			if ctx.stopWatch != nil {
				ctx.stopWatch()
			}
			if ctx.Code != "" {
				srv.removeMember(ctx.Code, s)
			}
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// enter binds a connection to a room and, for players, starts the card watch
// that auto-claims when a line completes.
func (srv *Server) enter(s socketio.Conn, code, name, role string) {
	ctx := &ConnCtx{Code: code, Name: name, Role: role}
	if role == "player" {
		ctx.stopWatch = srv.Games.WatchCard(code, name)
	}
	s.SetContext(ctx)
	s.Join(code)
	srv.addMember(code, s)
}

// addMember registers the connection and, for a room's first member, opens
// the store subscriptions that drive state fan-out.
func (srv *Server) addMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[code] == nil {
		srv.members[code] = make(map[string]socketio.Conn)
	}
	srv.members[code][c.ID()] = c
	if _, ok := srv.rooms[code]; !ok {
		unsubSess := srv.Games.Store().SubscribeSession(code, func(store.Session) {
			srv.emitStateTo(code)
		})
		unsubRoster := srv.Games.Store().SubscribeParticipants(code, func([]store.Participant) {
			srv.emitStateTo(code)
		})
		srv.rooms[code] = func() {
			unsubSess()
			unsubRoster()
		}
	}
}

func (srv *Server) removeMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[code]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, code)
			if unsub := srv.rooms[code]; unsub != nil {
				delete(srv.rooms, code)
				unsub()
			}
		}
	}
}

// emitStateTo pushes a personalized game:state to every member of the room.
// Each frame is re-derived from the freshest snapshot, so coalesced or
// repeated notifications produce the same output.
func (srv *Server) emitStateTo(code string) {
	srv.mu.Lock()
	conns := make([]socketio.Conn, 0, len(srv.members[code]))
	for _, c := range srv.members[code] {
		conns = append(conns, c)
	}
	srv.mu.Unlock()

	for _, c := range conns {
		ctx, _ := c.Context().(*ConnCtx)
		if ctx == nil || ctx.Name == "" {
			continue
		}
		v, err := srv.Games.View(context.Background(), code, ctx.Name)
		if err != nil {
			log.Error().Err(err).Str("code", code).Str("name", ctx.Name).Msg("state derivation failed")
			continue
		}
		c.Emit("game:state", v)
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

func (srv *Server) joinErr(s socketio.Conn, err error) map[string]any {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return srv.err(s, "session_not_found", "Session not found")
	case errors.Is(err, game.ErrGameFinished):
		return srv.err(s, "game_finished", "Game already finished")
	default:
		return srv.err(s, "bad_request", err.Error())
	}
}
