// Package api exposes the REST surface. Handlers are thin: they decode,
// delegate to the services, and map sentinel errors to status codes. Writes
// fan out to socket clients through the store's change notifications, so the
// handlers never talk to the socket layer directly.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/teamoffsite/promptbingo/internal/ai"
	"github.com/teamoffsite/promptbingo/internal/board"
	"github.com/teamoffsite/promptbingo/internal/deck"
	"github.com/teamoffsite/promptbingo/internal/game"
	"github.com/teamoffsite/promptbingo/internal/ratelimit"
	"github.com/teamoffsite/promptbingo/internal/store"
)

type Server struct {
	Games     *game.Service
	Boards    *board.Service
	Validator *ai.Validator
	Limiter   *ratelimit.Limiter
	Autoplay  *game.Autoplay
	Log       zerolog.Logger
}

// Register mounts all /api routes on r.
func (s *Server) Register(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:code", s.getSession)
	api.GET("/sessions/:code/view", s.getView)
	api.POST("/sessions/:code/join", s.join)
	api.POST("/sessions/:code/start", s.start)
	api.POST("/sessions/:code/draw", s.draw)
	api.POST("/sessions/:code/claim", s.claim)
	api.POST("/sessions/:code/winner", s.declareWinner)
	api.POST("/sessions/:code/autoplay", s.startAutoplay)

	api.GET("/boards/:code/notes", s.listNotes)
	api.POST("/boards/:code/notes", s.addNote)

	// External-service endpoints sit behind the per-caller quota.
	api.GET("/boards/:code/insights", s.rateLimited, s.insights)
	api.POST("/validate-bingo", s.rateLimited, s.validateBingo)
}

func (s *Server) createSession(c *gin.Context) {
	var req struct {
		HostName string `json:"hostName"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	sess, err := s.Games.Create(c.Request.Context(), req.HostName)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sessionCode": sess.ID, "status": sess.Status})
}

func (s *Server) getSession(c *gin.Context) {
	sess, roster, err := s.Games.Snapshot(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	for i := range roster {
		roster[i].Card = nil
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionCode":   sess.ID,
		"status":        sess.Status,
		"hostName":      sess.HostName,
		"calledPrompts": sess.CalledPrompts,
		"bingoCallers":  sess.BingoCallers,
		"winner":        sess.Winner,
		"roster":        roster,
	})
}

func (s *Server) getView(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name_required"})
		return
	}
	v, err := s.Games.View(c.Request.Context(), c.Param("code"), name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) join(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	p, err := s.Games.Join(c.Request.Context(), c.Param("code"), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": p.Name, "isHost": p.IsHost, "card": p.Card})
}

func (s *Server) start(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	sess, err := s.Games.Start(c.Request.Context(), c.Param("code"), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": sess.Status})
}

func (s *Server) draw(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	prompt, sess, err := s.Games.DrawPrompt(c.Request.Context(), c.Param("code"), req.Name)
	if errors.Is(err, deck.ErrDeckExhausted) {
		c.JSON(http.StatusConflict, gin.H{"error": "deck_exhausted"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"prompt":    prompt,
		"called":    len(sess.CalledPrompts),
		"remaining": len(sess.AvailablePrompts),
	})
}

func (s *Server) claim(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	sess, err := s.Games.ClaimBingo(c.Request.Context(), c.Param("code"), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bingoCallers": sess.BingoCallers, "winner": sess.Winner})
}

func (s *Server) declareWinner(c *gin.Context) {
	var req struct {
		Name   string `json:"name"`
		Winner string `json:"winner"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	sess, err := s.Games.DeclareWinner(c.Request.Context(), c.Param("code"), req.Name, req.Winner)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": sess.Status, "winner": sess.Winner})
}

// startAutoplay launches the host's timed draw loop in the background. Host
// and phase are checked up front so the caller gets a synchronous rejection;
// the loop itself re-checks on every tick.
func (s *Server) startAutoplay(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if s.Autoplay == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "autoplay_disabled"})
		return
	}
	sess, _, err := s.Games.Snapshot(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if req.Name != sess.HostName {
		s.fail(c, game.ErrNotHost)
		return
	}
	if sess.Status != store.StatusPlaying {
		c.JSON(http.StatusConflict, gin.H{"error": "wrong_phase"})
		return
	}
	code := sess.ID
	go func() {
		if err := s.Autoplay.Run(context.Background(), code, req.Name); err != nil {
			s.Log.Warn().Err(err).Str("code", code).Msg("autoplay stopped")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

func (s *Server) listNotes(c *gin.Context) {
	notes, err := s.Boards.Notes(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (s *Server) addNote(c *gin.Context) {
	var req board.NoteInput
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	n, err := s.Boards.AddNote(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (s *Server) insights(c *gin.Context) {
	out, err := s.Boards.Consolidate(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) validateBingo(c *gin.Context) {
	var req struct {
		Card   []string        `json:"card"`
		Marked [deck.Size]bool `json:"marked"`
	}
	if err := c.BindJSON(&req); err != nil || len(req.Card) != deck.Size {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	c.JSON(http.StatusOK, s.Validator.Validate(c.Request.Context(), req.Card, req.Marked))
}

// rateLimited applies the fixed-window quota per client IP. The 429 body is
// distinct from validation failures so clients can tell throttling apart
// from a rejected claim.
func (s *Server) rateLimited(c *gin.Context) {
	if s.Limiter == nil {
		return
	}
	res := s.Limiter.Check(c.ClientIP())
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.Allowed {
		c.Header("Retry-After", res.ResetAt.UTC().Format(http.TimeFormat))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		return
	}
	c.Next()
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
	case errors.Is(err, game.ErrNotParticipant), errors.Is(err, store.ErrParticipantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "participant_not_found"})
	case errors.Is(err, game.ErrNotHost):
		c.JSON(http.StatusForbidden, gin.H{"error": "not_host"})
	case errors.Is(err, game.ErrGameFinished):
		c.JSON(http.StatusConflict, gin.H{"error": "game_finished"})
	case errors.Is(err, game.ErrNotPlaying), errors.Is(err, game.ErrNotJoinable):
		c.JSON(http.StatusConflict, gin.H{"error": "wrong_phase"})
	case errors.Is(err, game.ErrInsufficientPlayers):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient_players"})
	case errors.Is(err, board.ErrInvalidNote):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note"})
	default:
		s.Log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
