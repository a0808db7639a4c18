package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/teamoffsite/promptbingo/internal/ai"
	"github.com/teamoffsite/promptbingo/internal/board"
	"github.com/teamoffsite/promptbingo/internal/deck"
	"github.com/teamoffsite/promptbingo/internal/game"
	"github.com/teamoffsite/promptbingo/internal/notify"
	"github.com/teamoffsite/promptbingo/internal/ratelimit"
	"github.com/teamoffsite/promptbingo/internal/store"
)

func newTestServer(t *testing.T) (*gin.Engine, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemory(notify.NewHub())
	log := zerolog.Nop()
	games := game.NewService(st, deck.Catalog, rand.New(rand.NewSource(7)), log)
	summarizer := &ai.Summarizer{Log: log}
	boards := board.NewService(st, summarizer, log)

	srv := &Server{
		Games:     games,
		Boards:    boards,
		Validator: &ai.Validator{Log: log},
		Limiter:   ratelimit.New(2, time.Minute, clockwork.NewFakeClock()),
		Log:       log,
	}
	r := gin.New()
	srv.Register(r)
	return r, srv
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func TestSessionLifecycleOverREST(t *testing.T) {
	r, _ := newTestServer(t)

	w, out := doJSON(t, r, http.MethodPost, "/api/sessions", map[string]string{"hostName": "Host"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	code, _ := out["sessionCode"].(string)
	if len(code) != 4 {
		t.Fatalf("sessionCode = %q", code)
	}

	for _, name := range []string{"Amy", "Sam"} {
		w, _ = doJSON(t, r, http.MethodPost, "/api/sessions/"+code+"/join", map[string]string{"name": name})
		if w.Code != http.StatusOK {
			t.Fatalf("join %s status = %d, body %s", name, w.Code, w.Body.String())
		}
	}

	// only the host may start
	w, out = doJSON(t, r, http.MethodPost, "/api/sessions/"+code+"/start", map[string]string{"name": "Amy"})
	if w.Code != http.StatusForbidden || out["error"] != "not_host" {
		t.Fatalf("non-host start: status %d body %s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, r, http.MethodPost, "/api/sessions/"+code+"/start", map[string]string{"name": "Host"})
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", w.Code, w.Body.String())
	}

	w, out = doJSON(t, r, http.MethodPost, "/api/sessions/"+code+"/draw", map[string]string{"name": "Host"})
	if w.Code != http.StatusOK {
		t.Fatalf("draw status = %d, body %s", w.Code, w.Body.String())
	}
	if out["prompt"] == "" {
		t.Fatal("draw returned empty prompt")
	}

	w, _ = doJSON(t, r, http.MethodPost, "/api/sessions/"+code+"/claim", map[string]string{"name": "Amy"})
	if w.Code != http.StatusOK {
		t.Fatalf("claim status = %d, body %s", w.Code, w.Body.String())
	}

	w, out = doJSON(t, r, http.MethodPost, "/api/sessions/"+code+"/winner", map[string]string{"name": "Host", "winner": "Amy"})
	if w.Code != http.StatusOK {
		t.Fatalf("winner status = %d, body %s", w.Code, w.Body.String())
	}
	if out["winner"] != "Amy" || out["status"] != "finished" {
		t.Fatalf("winner response = %v", out)
	}

	// terminal state rejects further host actions
	w, _ = doJSON(t, r, http.MethodPost, "/api/sessions/"+code+"/draw", map[string]string{"name": "Host"})
	if w.Code != http.StatusConflict {
		t.Fatalf("draw after finish status = %d", w.Code)
	}
}

func TestViewHidesOtherCards(t *testing.T) {
	r, _ := newTestServer(t)

	_, out := doJSON(t, r, http.MethodPost, "/api/sessions", map[string]string{"hostName": "Host"})
	code := out["sessionCode"].(string)
	doJSON(t, r, http.MethodPost, "/api/sessions/"+code+"/join", map[string]string{"name": "Amy"})
	doJSON(t, r, http.MethodPost, "/api/sessions/"+code+"/join", map[string]string{"name": "Sam"})
	doJSON(t, r, http.MethodPost, "/api/sessions/"+code+"/start", map[string]string{"name": "Host"})

	w, out := doJSON(t, r, http.MethodGet, "/api/sessions/"+code+"/view?name=Amy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("view status = %d, body %s", w.Code, w.Body.String())
	}
	card, _ := out["card"].([]any)
	if len(card) != deck.Size {
		t.Fatalf("own card length = %d, want %d", len(card), deck.Size)
	}
	roster, _ := out["roster"].([]any)
	for _, entry := range roster {
		m := entry.(map[string]any)
		if c, ok := m["card"].([]any); ok && len(c) > 0 {
			t.Fatalf("roster entry %v leaked a card", m["name"])
		}
	}

	w, _ = doJSON(t, r, http.MethodGet, "/api/sessions/"+code+"/view", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("view without name status = %d", w.Code)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	r, _ := newTestServer(t)
	w, out := doJSON(t, r, http.MethodPost, "/api/sessions/ZZZZ/join", map[string]string{"name": "Amy"})
	if w.Code != http.StatusNotFound || out["error"] != "session_not_found" {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
}

func TestBoardNotesOverREST(t *testing.T) {
	r, _ := newTestServer(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/boards/team1/notes", map[string]string{
		"type": "wish", "text": "More automation", "author": "Amy",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add note status = %d, body %s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, r, http.MethodPost, "/api/boards/team1/notes", map[string]string{
		"type": "sigh", "text": "x", "author": "Amy",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid note status = %d", w.Code)
	}

	w, out := doJSON(t, r, http.MethodGet, "/api/boards/team1/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	notes, _ := out["notes"].([]any)
	if len(notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(notes))
	}
}

func TestInsightsFallBackWithoutProvider(t *testing.T) {
	r, _ := newTestServer(t)

	doJSON(t, r, http.MethodPost, "/api/boards/team1/notes", map[string]string{
		"type": "worry", "text": "Job displacement", "author": "Sam",
	})
	w, out := doJSON(t, r, http.MethodGet, "/api/boards/team1/insights", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("insights status = %d, body %s", w.Code, w.Body.String())
	}
	if out["worriesSummary"] != "Various Concerns (1)" || out["wishesSummary"] != "No wishes yet" {
		t.Fatalf("insights = %v", out)
	}
}

func TestValidateBingoUsesLocalEvaluation(t *testing.T) {
	r, _ := newTestServer(t)

	card := make([]string, deck.Size)
	for i := range card {
		card[i] = fmt.Sprintf("cell %d", i)
	}
	var marked [deck.Size]bool
	for col := 0; col < 5; col++ {
		marked[2*5+col] = true
	}

	w, out := doJSON(t, r, http.MethodPost, "/api/validate-bingo", map[string]any{"card": card, "marked": marked})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if out["isValidBingo"] != true || out["winningPattern"] != "Row 3 (horizontal)" {
		t.Fatalf("validation = %v", out)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	r, _ := newTestServer(t)

	for i := 0; i < 2; i++ {
		w, _ := doJSON(t, r, http.MethodGet, "/api/boards/team1/insights", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}
	w, out := doJSON(t, r, http.MethodGet, "/api/boards/team1/insights", nil)
	if w.Code != http.StatusTooManyRequests || out["error"] != "rate_limited" {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}
