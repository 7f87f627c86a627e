package game

import (
	"context"
	"errors"
	"testing"

	"github.com/kapu/messenger-chess-bot/internal/domain"
	"github.com/kapu/messenger-chess-bot/internal/movecodec"
	"github.com/kapu/messenger-chess-bot/internal/rules"
	"github.com/kapu/messenger-chess-bot/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Memory) {
	t.Helper()
	repo := store.NewMemory()
	ctx := context.Background()
	if err := repo.CreatePlayer(ctx, 1, "Nate"); err != nil {
		t.Fatalf("create player: %v", err)
	}
	if err := repo.CreatePlayer(ctx, 2, "Chad"); err != nil {
		t.Fatalf("create player: %v", err)
	}
	if err := repo.SetOpponentContext(ctx, 1, 2); err != nil {
		t.Fatalf("set context: %v", err)
	}
	if err := repo.SetOpponentContext(ctx, 2, 1); err != nil {
		t.Fatalf("set context: %v", err)
	}
	return NewManager(repo), repo
}

func startGame(t *testing.T, m *Manager, callerColor domain.Color) Session {
	t.Helper()
	ctx := context.Background()
	sess, err := m.Session(ctx, 1)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if _, err := m.NewGame(ctx, sess, callerColor); err != nil {
		t.Fatalf("new game: %v", err)
	}
	sess, err = m.Session(ctx, 1)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.Game == nil {
		t.Fatal("expected an active game in the session")
	}
	return sess
}

func sessionFor(t *testing.T, m *Manager, playerID int64) Session {
	t.Helper()
	sess, err := m.Session(context.Background(), playerID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return sess
}

func TestNewGameColorAssignment(t *testing.T) {
	m, _ := newTestManager(t)
	sess := startGame(t, m, domain.Black)
	if sess.Game.WhitePlayer != 2 || sess.Game.BlackPlayer != 1 {
		t.Fatalf("colors wrong: white=%d black=%d", sess.Game.WhitePlayer, sess.Game.BlackPlayer)
	}
	if !sess.Game.WhiteToPlay {
		t.Fatal("a fresh game starts with white to play")
	}
	if sess.Game.LastMovedAt != nil {
		t.Fatal("no move yet, LastMovedAt must be nil")
	}
}

func TestNewGameRejectsSecondActive(t *testing.T) {
	m, _ := newTestManager(t)
	sess := startGame(t, m, domain.White)
	if _, err := m.NewGame(context.Background(), sess, domain.White); !errors.Is(err, ErrGameExists) {
		t.Fatalf("got %v, want ErrGameExists", err)
	}
}

func TestMoveFlow(t *testing.T) {
	m, _ := newTestManager(t)
	startGame(t, m, domain.White)
	ctx := context.Background()

	// Black cannot open.
	if _, err := m.Move(ctx, sessionFor(t, m, 2), "e5"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("got %v, want ErrNotYourTurn", err)
	}

	out, err := m.Move(ctx, sessionFor(t, m, 1), "e4")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if out.SAN != "e4" {
		t.Fatalf("san = %q, want e4", out.SAN)
	}
	if out.Check || out.Checkmate {
		t.Fatal("e4 is neither check nor mate")
	}
	if out.Game.WhiteToPlay {
		t.Fatal("after white's move it is black to play")
	}
	if out.Game.LastMovedAt == nil {
		t.Fatal("LastMovedAt must be set after a move")
	}

	// White cannot move twice.
	if _, err := m.Move(ctx, sessionFor(t, m, 1), "d4"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("got %v, want ErrNotYourTurn", err)
	}

	if _, err := m.Move(ctx, sessionFor(t, m, 2), "zzz"); !errors.Is(err, rules.ErrInvalidMove) {
		t.Fatalf("got %v, want ErrInvalidMove", err)
	}
}

func TestMovePersistsHistory(t *testing.T) {
	m, repo := newTestManager(t)
	startGame(t, m, domain.White)
	ctx := context.Background()

	if _, err := m.Move(ctx, sessionFor(t, m, 1), "e4"); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := m.Move(ctx, sessionFor(t, m, 2), "e5"); err != nil {
		t.Fatalf("move: %v", err)
	}

	g, err := repo.GetActiveGameBetween(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	n, err := movecodec.MoveCount(g.BoardData)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("stored history holds %d moves, want 2", n)
	}
}

func TestCheckAndMate(t *testing.T) {
	m, repo := newTestManager(t)
	startGame(t, m, domain.White)
	ctx := context.Background()

	moves := []struct {
		player int64
		san    string
	}{
		{1, "f3"}, {2, "e5"}, {1, "g4"},
	}
	for _, mv := range moves {
		if _, err := m.Move(ctx, sessionFor(t, m, mv.player), mv.san); err != nil {
			t.Fatalf("move %s: %v", mv.san, err)
		}
	}
	out, err := m.Move(ctx, sessionFor(t, m, 2), "Qh4")
	if err != nil {
		t.Fatalf("mating move: %v", err)
	}
	if !out.Checkmate {
		t.Fatal("Qh4 ends the fool's mate")
	}
	if out.Game.Outcome != domain.OutcomeBlackWins {
		t.Fatalf("outcome = %v, want black wins", out.Game.Outcome)
	}

	g, err := repo.GetActiveGameBetween(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if g != nil {
		t.Fatal("a mated game must no longer be active")
	}
}

func TestUndoHandshake(t *testing.T) {
	m, _ := newTestManager(t)
	startGame(t, m, domain.White)
	ctx := context.Background()

	// Undo before any move: the off-turn player has nothing to take back.
	status, err := m.Undo(ctx, sessionFor(t, m, 2))
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if status != UndoNoMoves {
		t.Fatalf("status = %v, want no-moves", status)
	}

	// On-turn player cannot request.
	status, err = m.Undo(ctx, sessionFor(t, m, 1))
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if status != UndoYourTurn {
		t.Fatalf("status = %v, want your-turn", status)
	}

	if _, err := m.Move(ctx, sessionFor(t, m, 1), "e4"); err != nil {
		t.Fatalf("move: %v", err)
	}

	// White regrets e4 and asks.
	status, err = m.Undo(ctx, sessionFor(t, m, 1))
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if status != UndoRequested {
		t.Fatalf("status = %v, want requested", status)
	}

	// Asking again is flagged.
	status, err = m.Undo(ctx, sessionFor(t, m, 1))
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if status != UndoAlreadyAsked {
		t.Fatalf("status = %v, want already-asked", status)
	}

	// Black grants: the history shrinks by one and white is to move.
	status, err = m.Undo(ctx, sessionFor(t, m, 2))
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if status != UndoAccepted {
		t.Fatalf("status = %v, want accepted", status)
	}
	sess := sessionFor(t, m, 1)
	n, err := movecodec.MoveCount(sess.Game.BoardData)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("history holds %d moves after undo, want 0", n)
	}
	if !sess.Game.WhiteToPlay {
		t.Fatal("white to play again after the undo")
	}
	if sess.Game.Undo {
		t.Fatal("undo flag must be cleared")
	}
}

func TestMoveClearsPendingUndo(t *testing.T) {
	m, _ := newTestManager(t)
	startGame(t, m, domain.White)
	ctx := context.Background()

	if _, err := m.Move(ctx, sessionFor(t, m, 1), "e4"); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := m.Undo(ctx, sessionFor(t, m, 1)); err != nil {
		t.Fatalf("undo: %v", err)
	}
	// Black moves on instead of granting.
	if _, err := m.Move(ctx, sessionFor(t, m, 2), "e5"); err != nil {
		t.Fatalf("move: %v", err)
	}
	if sessionFor(t, m, 1).Game.Undo {
		t.Fatal("a played move drops the pending undo request")
	}
}

func TestResign(t *testing.T) {
	m, repo := newTestManager(t)
	startGame(t, m, domain.White)
	ctx := context.Background()

	winner, err := m.Resign(ctx, sessionFor(t, m, 1))
	if err != nil {
		t.Fatalf("resign: %v", err)
	}
	if winner != domain.OutcomeBlackWins {
		t.Fatalf("winner = %v, want black wins", winner)
	}
	g, err := repo.GetActiveGameBetween(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if g != nil {
		t.Fatal("resigned game must be inactive")
	}
}

func TestPGN(t *testing.T) {
	m, _ := newTestManager(t)
	startGame(t, m, domain.White)
	ctx := context.Background()

	for _, mv := range []struct {
		player int64
		san    string
	}{{1, "e4"}, {2, "e5"}, {1, "Nf3"}} {
		if _, err := m.Move(ctx, sessionFor(t, m, mv.player), mv.san); err != nil {
			t.Fatalf("move %s: %v", mv.san, err)
		}
	}
	pgn, err := PGN(sessionFor(t, m, 1).Game)
	if err != nil {
		t.Fatalf("pgn: %v", err)
	}
	if pgn != "1. e4 e5 2. Nf3 *" {
		t.Fatalf("pgn = %q", pgn)
	}
}

func TestSessionShapes(t *testing.T) {
	m, repo := newTestManager(t)
	ctx := context.Background()

	sess := sessionFor(t, m, 1)
	if sess.Player == nil || sess.Opponent == nil {
		t.Fatal("both players are registered and linked")
	}
	if sess.Game != nil {
		t.Fatal("no game started yet")
	}

	if err := repo.SetOpponentContext(ctx, 1, 0); err != nil {
		t.Fatalf("clear context: %v", err)
	}
	sess = sessionFor(t, m, 1)
	if sess.Opponent != nil {
		t.Fatal("opponent must be nil without a context")
	}
}
