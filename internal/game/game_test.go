package game

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/teamoffsite/promptbingo/internal/deck"
	"github.com/teamoffsite/promptbingo/internal/notify"
	"github.com/teamoffsite/promptbingo/internal/store"
)

func newTestService(seed int64) (*Service, *store.Memory) {
	st := store.NewMemory(notify.NewHub())
	svc := NewService(st, deck.Catalog, rand.New(rand.NewSource(seed)), zerolog.Nop())
	return svc, st
}

// startedSession creates a session with two joined players and starts it.
func startedSession(t *testing.T, svc *Service) (code string, host string) {
	t.Helper()
	ctx := context.Background()
	sess, err := svc.Create(ctx, "Host")
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	for _, name := range []string{"Amy", "Sam"} {
		if _, err := svc.Join(ctx, sess.ID, name); err != nil {
			t.Fatalf("%s should be able to join: %v", name, err)
		}
	}
	if _, err := svc.Start(ctx, sess.ID, "Host"); err != nil {
		t.Fatalf("should be able to start: %v", err)
	}
	return sess.ID, "Host"
}

func TestCreateSession(t *testing.T) {
	svc, st := newTestService(1)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "Host")
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	if len(sess.ID) != codeLength {
		t.Fatalf("expected %d-char code, got %q", codeLength, sess.ID)
	}
	if sess.Status != store.StatusLobby {
		t.Fatalf("expected lobby status, got %s", sess.Status)
	}

	host, err := st.GetParticipant(ctx, sess.ID, "Host")
	if err != nil {
		t.Fatalf("host participant should exist: %v", err)
	}
	if !host.IsHost {
		t.Fatal("creator should be marked as host")
	}
	if len(host.Card) != 0 {
		t.Fatal("host should not be dealt a card at creation")
	}
}

func TestJoinLobby(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "Host")

	p, err := svc.Join(ctx, sess.ID, "Amy")
	if err != nil {
		t.Fatalf("should be able to join: %v", err)
	}
	if p.IsHost {
		t.Fatal("joiner should not be host")
	}
	if len(p.Card) != 0 {
		t.Fatal("cards are dealt at start, not at join")
	}

	// joining as the host's name is the host's reconnection path
	rejoined, err := svc.Join(ctx, sess.ID, "Host")
	if err != nil {
		t.Fatalf("host rejoin should work: %v", err)
	}
	if !rejoined.IsHost {
		t.Fatal("host rejoin should return the stored host participant")
	}

	if _, err := svc.Join(ctx, "ZZZZ", "Amy"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestJoinIsCaseInsensitiveOnCode(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "Host")

	lower := []rune(sess.ID)
	for i, r := range lower {
		if r >= 'A' && r <= 'Z' {
			lower[i] = r + ('a' - 'A')
		}
	}
	if _, err := svc.Join(ctx, string(lower), "Amy"); err != nil {
		t.Fatalf("join with lowercased code should work: %v", err)
	}
}

func TestStartRequiresTwoParticipants(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "Host")

	if _, err := svc.Start(ctx, sess.ID, "Host"); err != ErrInsufficientPlayers {
		t.Fatalf("solo start should fail with ErrInsufficientPlayers, got %v", err)
	}
}

func TestStartDealsCardsAndIsIdempotent(t *testing.T) {
	svc, st := newTestService(1)
	ctx := context.Background()
	code, host := startedSession(t, svc)

	sess, err := st.GetSession(ctx, code)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if sess.Status != store.StatusPlaying {
		t.Fatalf("expected playing, got %s", sess.Status)
	}
	if len(sess.AvailablePrompts) != len(deck.Catalog) {
		t.Fatalf("available pool should seed from the catalog, got %d", len(sess.AvailablePrompts))
	}

	amy, _ := st.GetParticipant(ctx, code, "Amy")
	if len(amy.Card) != deck.Size {
		t.Fatalf("Amy should hold a %d-cell card, got %d", deck.Size, len(amy.Card))
	}
	hostP, _ := st.GetParticipant(ctx, code, host)
	if len(hostP.Card) != 0 {
		t.Fatal("host should not be dealt a card")
	}

	// duplicate start clicks are a no-op, and cards stay put
	if _, err := svc.Start(ctx, code, host); err != nil {
		t.Fatalf("second start should be a no-op, got %v", err)
	}
	amyAgain, _ := st.GetParticipant(ctx, code, "Amy")
	if !reflect.DeepEqual(amy.Card, amyAgain.Card) {
		t.Fatal("restart must not redeal cards")
	}
}

func TestStartOnlyHost(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "Host")
	svc.Join(ctx, sess.ID, "Amy")

	if _, err := svc.Start(ctx, sess.ID, "Amy"); err != ErrNotHost {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestDrawPromptNoRepeats(t *testing.T) {
	svc, _ := newTestService(2)
	ctx := context.Background()
	code, host := startedSession(t, svc)

	seen := make(map[string]bool)
	var last store.Session
	for i := 0; i < 40; i++ {
		prompt, sess, err := svc.DrawPrompt(ctx, code, host)
		if err != nil {
			t.Fatalf("draw %d failed: %v", i, err)
		}
		if seen[prompt] {
			t.Fatalf("prompt %q drawn twice", prompt)
		}
		seen[prompt] = true
		// called and available partition the catalog at all times
		if len(sess.CalledPrompts)+len(sess.AvailablePrompts) != len(deck.Catalog) {
			t.Fatalf("called+available should cover the catalog, got %d+%d",
				len(sess.CalledPrompts), len(sess.AvailablePrompts))
		}
		for _, a := range sess.AvailablePrompts {
			if seen[a] {
				t.Fatalf("prompt %q present in both lists", a)
			}
		}
		last = sess
	}
	if last.CalledPrompts[len(last.CalledPrompts)-1] == "" {
		t.Fatal("current prompt should be the last called entry")
	}
}

func TestDrawPromptDeckExhaustion(t *testing.T) {
	svc, st := newTestService(3)
	ctx := context.Background()
	code, host := startedSession(t, svc)

	for i := 0; i < len(deck.Catalog); i++ {
		if _, _, err := svc.DrawPrompt(ctx, code, host); err != nil {
			t.Fatalf("draw %d failed: %v", i, err)
		}
	}

	before, _ := st.GetSession(ctx, code)
	if _, _, err := svc.DrawPrompt(ctx, code, host); !errors.Is(err, deck.ErrDeckExhausted) {
		t.Fatalf("expected ErrDeckExhausted, got %v", err)
	}
	after, _ := st.GetSession(ctx, code)
	if !reflect.DeepEqual(before.CalledPrompts, after.CalledPrompts) ||
		len(after.AvailablePrompts) != 0 {
		t.Fatal("failed draw must not change either list")
	}
	// exhaustion does not finish the game
	if after.Status != store.StatusPlaying {
		t.Fatalf("deck exhaustion should not end the game, got %s", after.Status)
	}
}

func TestDrawPromptGuards(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "Host")
	svc.Join(ctx, sess.ID, "Amy")

	if _, _, err := svc.DrawPrompt(ctx, sess.ID, "Host"); err != ErrNotPlaying {
		t.Fatalf("drawing in lobby should fail with ErrNotPlaying, got %v", err)
	}
	if _, _, err := svc.DrawPrompt(ctx, sess.ID, "Amy"); err != ErrNotHost {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestClaimBingoIdempotent(t *testing.T) {
	svc, _ := newTestService(4)
	ctx := context.Background()
	code, _ := startedSession(t, svc)

	for i := 0; i < 2; i++ {
		if _, err := svc.ClaimBingo(ctx, code, "Amy"); err != nil {
			t.Fatalf("claim %d failed: %v", i, err)
		}
	}
	sess, err := svc.ClaimBingo(ctx, code, "Amy")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	count := 0
	for _, c := range sess.BingoCallers {
		if c == "Amy" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one Amy entry, got %d", count)
	}

	if _, err := svc.ClaimBingo(ctx, code, "Nobody"); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

// staleSessionStore serves every session read from a frozen snapshot while
// writes go through to the real store, the interleaving two claimants in
// separate processes produce when both read before either write lands.
type staleSessionStore struct {
	store.Store
	sess store.Session
}

func (s *staleSessionStore) GetSession(ctx context.Context, id string) (store.Session, error) {
	return s.sess, nil
}

func TestClaimBingoKeepsConcurrentClaims(t *testing.T) {
	svc, st := newTestService(11)
	ctx := context.Background()
	code, _ := startedSession(t, svc)

	preClaim, err := st.GetSession(ctx, code)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	stale := NewService(&staleSessionStore{Store: st, sess: preClaim}, deck.Catalog, rand.New(rand.NewSource(11)), zerolog.Nop())

	if _, err := stale.ClaimBingo(ctx, code, "Amy"); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	// Sam claims from the same pre-claim snapshot Amy did
	if _, err := stale.ClaimBingo(ctx, code, "Sam"); err != nil {
		t.Fatalf("second claim failed: %v", err)
	}

	sess, err := st.GetSession(ctx, code)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !reflect.DeepEqual(sess.BingoCallers, []string{"Amy", "Sam"}) {
		t.Fatalf("a successful claim was lost: bingoCallers=%v", sess.BingoCallers)
	}
}

func TestDeclareWinnerFinishesAtomically(t *testing.T) {
	svc, st := newTestService(5)
	ctx := context.Background()
	code, host := startedSession(t, svc)

	// the host may override: Sam never claimed
	sess, err := svc.DeclareWinner(ctx, code, host, "Sam")
	if err != nil {
		t.Fatalf("declare failed: %v", err)
	}
	if sess.Winner != "Sam" || sess.Status != store.StatusFinished {
		t.Fatalf("winner and finished status must land together, got %+v", sess)
	}

	// terminal: no further host or participant mutations
	if _, _, err := svc.DrawPrompt(ctx, code, host); err != ErrGameFinished {
		t.Fatalf("draw after finish should fail with ErrGameFinished, got %v", err)
	}
	if _, err := svc.DeclareWinner(ctx, code, host, "Amy"); err != ErrGameFinished {
		t.Fatalf("second declare should fail with ErrGameFinished, got %v", err)
	}
	got, _ := st.GetSession(ctx, code)
	if got.Winner != "Sam" {
		t.Fatal("winner is immutable once set")
	}

	// claims after finish are no-ops, the set is frozen
	before := len(got.BingoCallers)
	after, err := svc.ClaimBingo(ctx, code, "Amy")
	if err != nil {
		t.Fatalf("claim after finish should be a no-op, got %v", err)
	}
	if len(after.BingoCallers) != before {
		t.Fatal("bingoCallers must not grow after the winner is set")
	}
}

func TestDeclareWinnerGuards(t *testing.T) {
	svc, _ := newTestService(6)
	ctx := context.Background()
	code, host := startedSession(t, svc)

	if _, err := svc.DeclareWinner(ctx, code, "Amy", "Amy"); err != ErrNotHost {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if _, err := svc.DeclareWinner(ctx, code, host, "Nobody"); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestCardStableAcrossRejoin(t *testing.T) {
	svc, _ := newTestService(7)
	ctx := context.Background()
	code, host := startedSession(t, svc)

	first, err := svc.Join(ctx, code, "Sam")
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if len(first.Card) != deck.Size {
		t.Fatalf("Sam should already hold a card, got %d cells", len(first.Card))
	}

	// draw a few prompts, then rejoin again mid-game
	for i := 0; i < 5; i++ {
		if _, _, err := svc.DrawPrompt(ctx, code, host); err != nil {
			t.Fatalf("draw failed: %v", err)
		}
	}
	second, err := svc.Join(ctx, code, "Sam")
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if !reflect.DeepEqual(first.Card, second.Card) {
		t.Fatal("rejoin must return the identical card")
	}
}

func TestHostRejoinAfterDisconnect(t *testing.T) {
	svc, _ := newTestService(12)
	ctx := context.Background()
	code, host := startedSession(t, svc)

	// a host whose connection dropped rejoins mid-game by name
	p, err := svc.Join(ctx, code, host)
	if err != nil {
		t.Fatalf("host rejoin failed: %v", err)
	}
	if !p.IsHost {
		t.Fatal("rejoin should return the stored host participant")
	}

	// the rejoined host still drives the game
	if _, _, err := svc.DrawPrompt(ctx, code, host); err != nil {
		t.Fatalf("host should still be able to draw after rejoin: %v", err)
	}
}

func TestSpectatorJoinAfterStartGetsNoCard(t *testing.T) {
	svc, _ := newTestService(8)
	ctx := context.Background()
	code, _ := startedSession(t, svc)

	p, err := svc.Join(ctx, code, "Late")
	if err != nil {
		t.Fatalf("mid-game join should be allowed: %v", err)
	}
	if len(p.Card) != 0 {
		t.Fatal("a card must never be dealt after play has begun")
	}
}

func TestStatusIsMonotonic(t *testing.T) {
	svc, st := newTestService(9)
	ctx := context.Background()
	code, host := startedSession(t, svc)

	if _, err := svc.DeclareWinner(ctx, code, host, "Amy"); err != nil {
		t.Fatalf("declare failed: %v", err)
	}
	if _, err := svc.Start(ctx, code, host); err != ErrGameFinished {
		t.Fatalf("start after finish should fail, got %v", err)
	}
	sess, _ := st.GetSession(ctx, code)
	if sess.Status != store.StatusFinished || sess.Winner == "" {
		t.Fatal("winner set implies finished status, permanently")
	}
}

func TestViewDerivation(t *testing.T) {
	svc, st := newTestService(10)
	ctx := context.Background()
	code, host := startedSession(t, svc)

	amy, _ := st.GetParticipant(ctx, code, "Amy")

	// force Amy's first row to be called
	called := append([]string(nil), amy.Card[:5]...)
	if _, err := st.UpdateSession(ctx, code, store.SessionUpdate{CalledPrompts: &called}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	v, err := svc.View(ctx, code, "Amy")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if !v.HasLine || v.Line != deck.LineRow1 {
		t.Fatalf("expected row 1 line, got %v", v.Line)
	}
	if v.CurrentPrompt != called[len(called)-1] {
		t.Fatalf("current prompt should be the last called, got %q", v.CurrentPrompt)
	}
	if len(v.Roster) != 3 {
		t.Fatalf("expected 3 roster entries, got %d", len(v.Roster))
	}
	for _, p := range v.Roster {
		if len(p.Card) != 0 {
			t.Fatal("roster entries must not leak other cards")
		}
	}

	hv, err := svc.View(ctx, code, host)
	if err != nil {
		t.Fatalf("host view failed: %v", err)
	}
	if hv.HasLine || len(hv.Card) != 0 {
		t.Fatal("host has no card and therefore no line")
	}
}

// full Scenario walk: create, join, start, draw, claim, declare, reject
func TestGameScenario(t *testing.T) {
	svc, st := newTestService(11)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "Host")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	code := sess.ID
	for _, name := range []string{"Amy", "Sam"} {
		if _, err := svc.Join(ctx, code, name); err != nil {
			t.Fatalf("join %s failed: %v", name, err)
		}
	}
	if _, err := svc.Start(ctx, code, "Host"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, _, err := svc.DrawPrompt(ctx, code, "Host"); err != nil {
			t.Fatalf("draw failed: %v", err)
		}
	}

	if _, err := svc.ClaimBingo(ctx, code, "Amy"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	got, _ := st.GetSession(ctx, code)
	if len(got.BingoCallers) != 1 || got.BingoCallers[0] != "Amy" {
		t.Fatalf("expected [Amy], got %v", got.BingoCallers)
	}

	final, err := svc.DeclareWinner(ctx, code, "Host", "Amy")
	if err != nil {
		t.Fatalf("declare failed: %v", err)
	}
	if final.Winner != "Amy" || final.Status != store.StatusFinished {
		t.Fatalf("expected Amy to win a finished game, got %+v", final)
	}
	if _, _, err := svc.DrawPrompt(ctx, code, "Host"); err != ErrGameFinished {
		t.Fatalf("draw after finish should be rejected, got %v", err)
	}
}

func TestWatchCardAutoClaims(t *testing.T) {
	svc, st := newTestService(12)
	ctx := context.Background()
	code, _ := startedSession(t, svc)

	stop := svc.WatchCard(code, "Amy")
	defer stop()

	amy, _ := st.GetParticipant(ctx, code, "Amy")
	called := append([]string(nil), amy.Card[:5]...)
	if _, err := st.UpdateSession(ctx, code, store.SessionUpdate{CalledPrompts: &called}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sess, _ := st.GetSession(ctx, code)
		if len(sess.BingoCallers) == 1 && sess.BingoCallers[0] == "Amy" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("watcher should have claimed bingo for Amy")
}

func TestWatchCardClaimsAtMostOnce(t *testing.T) {
	svc, st := newTestService(13)
	ctx := context.Background()
	code, host := startedSession(t, svc)

	stop := svc.WatchCard(code, "Amy")
	defer stop()

	amy, _ := st.GetParticipant(ctx, code, "Amy")
	called := append([]string(nil), amy.Card[:5]...)
	if _, err := st.UpdateSession(ctx, code, store.SessionUpdate{CalledPrompts: &called}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// further draws re-trigger the watcher; the claim must not duplicate
	for i := 0; i < 3; i++ {
		if _, _, err := svc.DrawPrompt(ctx, code, host); err != nil {
			t.Fatalf("draw failed: %v", err)
		}
	}
	time.Sleep(100 * time.Millisecond)

	sess, _ := st.GetSession(ctx, code)
	count := 0
	for _, c := range sess.BingoCallers {
		if c == "Amy" {
			count++
		}
	}
	if count > 1 {
		t.Fatalf("expected at most one Amy claim, got %d", count)
	}
}
