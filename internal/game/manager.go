// Package game runs the match lifecycle: creation, move application, undo
// negotiation, and resignation. The encoded move history is the single
// source of truth for the position; row fields like WhiteToPlay are kept in
// sync for cheap queries only.
package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kapu/messenger-chess-bot/internal/domain"
	"github.com/kapu/messenger-chess-bot/internal/movecodec"
	"github.com/kapu/messenger-chess-bot/internal/rules"
	"github.com/kapu/messenger-chess-bot/internal/store"
)

var (
	ErrNotYourTurn = errors.New("game: not your turn")
	ErrGameExists  = errors.New("game: active game already exists")
)

// Manager mediates all game mutations through the repository.
type Manager struct {
	repo store.Repository
	now  func() time.Time
}

func NewManager(repo store.Repository) *Manager {
	return &Manager{repo: repo, now: time.Now}
}

// RandomColor flips a fair coin for "new game random".
func RandomColor() domain.Color {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return domain.White
	}
	if b[0]&1 == 0 {
		return domain.White
	}
	return domain.Black
}

// Session is the caller's standing in the graph: who they are, who their
// opponent context points at, and the active game between the two if any.
// Opponent and Game may each be nil.
type Session struct {
	Player   *domain.Player
	Opponent *domain.Player
	Game     *domain.Game
}

// Session loads the caller's context in one round trip.
func (m *Manager) Session(ctx context.Context, playerID int64) (Session, error) {
	player, opponent, g, err := m.repo.GetGameContext(ctx, playerID)
	if err != nil {
		return Session{}, fmt.Errorf("game: load session: %w", err)
	}
	return Session{Player: player, Opponent: opponent, Game: g}, nil
}

// NewGame starts a fresh game between the session pair with the caller
// taking the given side. Fails with ErrGameExists when one is already
// running.
func (m *Manager) NewGame(ctx context.Context, sess Session, callerColor domain.Color) (*domain.Game, error) {
	if sess.Game != nil {
		return nil, ErrGameExists
	}
	data, err := movecodec.Encode(rules.StartFEN, nil)
	if err != nil {
		return nil, fmt.Errorf("game: encode start position: %w", err)
	}
	g := &domain.Game{
		BoardData:   data,
		Active:      true,
		WhitePlayer: sess.Player.ID,
		BlackPlayer: sess.Opponent.ID,
		WhiteToPlay: true,
		CreatedAt:   m.now().UTC(),
	}
	if callerColor == domain.Black {
		g.WhitePlayer, g.BlackPlayer = g.BlackPlayer, g.WhitePlayer
	}
	id, err := m.repo.CreateGame(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("game: create: %w", err)
	}
	g.ID = id
	return g, nil
}

// MoveOutcome describes an applied move and everything the caller needs to
// phrase replies: the canonical SAN, check status, and the winner on mate.
type MoveOutcome struct {
	SAN       string
	Check     bool
	Checkmate bool
	Game      *domain.Game
}

// Move parses text against the current position and applies it. Returns
// rules.ErrInvalidMove, rules.ErrAmbiguousMove, or ErrNotYourTurn for the
// user-level failures. A successful move drops any pending undo request.
func (m *Manager) Move(ctx context.Context, sess Session, text string) (MoveOutcome, error) {
	g := sess.Game
	board, err := replay(g.BoardData)
	if err != nil {
		return MoveOutcome{}, err
	}

	color := g.PlayerColor(sess.Player.ID)
	if (color == domain.White) != board.WhiteToMove() {
		return MoveOutcome{}, ErrNotYourTurn
	}

	san, err := board.ParseMove(text)
	if err != nil {
		return MoveOutcome{}, err
	}
	data, err := movecodec.AppendMove(g.BoardData, san)
	if err != nil {
		return MoveOutcome{}, fmt.Errorf("game: append move: %w", err)
	}
	if err := board.PushSAN(san); err != nil {
		return MoveOutcome{}, fmt.Errorf("game: apply move: %w", err)
	}

	moved := m.now().UTC()
	g.BoardData = data
	g.WhiteToPlay = board.WhiteToMove()
	g.Undo = false
	g.LastMovedAt = &moved
	if err := m.repo.SaveGame(ctx, g); err != nil {
		return MoveOutcome{}, fmt.Errorf("game: save: %w", err)
	}

	out := MoveOutcome{SAN: san, Game: g}
	if board.IsCheckmate() {
		out.Checkmate = true
		g.Outcome = domain.WinnerOf(color)
		g.Active = false
		if err := m.repo.SetOutcome(ctx, g.ID, g.Outcome); err != nil {
			return MoveOutcome{}, fmt.Errorf("game: record mate: %w", err)
		}
	} else {
		out.Check = board.IsCheck()
	}
	return out, nil
}

// UndoStatus is the result classification of an undo command.
type UndoStatus int

const (
	UndoRequested UndoStatus = iota // caller is off turn, request now pending
	UndoAccepted                    // caller was to move, last move rolled back
	UndoYourTurn                    // to-move caller with nothing pending
	UndoNoMoves                     // caller has not moved yet
	UndoAlreadyAsked
)

// Undo implements both halves of the undo handshake. A player who just moved
// asks for an undo; the side to move grants it by issuing the same command,
// which rolls the history back by one move.
func (m *Manager) Undo(ctx context.Context, sess Session) (UndoStatus, error) {
	g := sess.Game
	board, err := replay(g.BoardData)
	if err != nil {
		return 0, err
	}

	color := g.PlayerColor(sess.Player.ID)
	toMove := (color == domain.White) == board.WhiteToMove()

	if toMove {
		if !g.Undo {
			return UndoYourTurn, nil
		}
		data, err := movecodec.TrimLastMove(g.BoardData)
		if err != nil {
			return 0, fmt.Errorf("game: trim move: %w", err)
		}
		g.BoardData = data
		g.WhiteToPlay = !g.WhiteToPlay
		g.Undo = false
		if err := m.repo.SaveGame(ctx, g); err != nil {
			return 0, fmt.Errorf("game: save undo: %w", err)
		}
		return UndoAccepted, nil
	}

	if board.MoveCount() == 0 {
		return UndoNoMoves, nil
	}
	if g.Undo {
		return UndoAlreadyAsked, nil
	}
	if err := m.repo.SetUndoFlag(ctx, g.ID, true); err != nil {
		return 0, fmt.Errorf("game: flag undo: %w", err)
	}
	g.Undo = true
	return UndoRequested, nil
}

// Resign concedes the session game. The opponent's side wins.
func (m *Manager) Resign(ctx context.Context, sess Session) (domain.Outcome, error) {
	winner := domain.WinnerOf(sess.Game.PlayerColor(sess.Player.ID).Other())
	if err := m.repo.SetOutcome(ctx, sess.Game.ID, winner); err != nil {
		return domain.OutcomeNone, fmt.Errorf("game: resign: %w", err)
	}
	sess.Game.Outcome = winner
	sess.Game.Active = false
	return winner, nil
}

// CurrentFEN reconstructs the game's present position.
func CurrentFEN(g *domain.Game) (string, error) {
	_, _, fen, err := movecodec.Decode(g.BoardData)
	if err != nil {
		return "", fmt.Errorf("game: decode history: %w", err)
	}
	return fen, nil
}

// PGN renders the game's move history as standard movetext.
func PGN(g *domain.Game) (string, error) {
	_, sans, _, err := movecodec.Decode(g.BoardData)
	if err != nil {
		return "", fmt.Errorf("game: decode history: %w", err)
	}
	var b strings.Builder
	for i, san := range sans {
		if i%2 == 0 {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d.", i/2+1)
		}
		b.WriteByte(' ')
		b.WriteString(san)
	}
	result := "*"
	switch g.Outcome {
	case domain.OutcomeWhiteWins:
		result = "1-0"
	case domain.OutcomeBlackWins:
		result = "0-1"
	case domain.OutcomeDraw:
		result = "1/2-1/2"
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(result)
	return b.String(), nil
}

func replay(data []byte) (*rules.Game, error) {
	initial, sans, _, err := movecodec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("game: decode history: %w", err)
	}
	board, err := rules.Replay(initial, sans)
	if err != nil {
		return nil, fmt.Errorf("game: replay history: %w", err)
	}
	return board, nil
}
