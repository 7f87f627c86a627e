package domain

import "time"

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposing side.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Outcome is the terminal result of a game. Zero value means the game is
// still undecided.
type Outcome int

const (
	OutcomeNone      Outcome = 0
	OutcomeWhiteWins Outcome = 1
	OutcomeBlackWins Outcome = 2
	OutcomeDraw      Outcome = 3
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWhiteWins:
		return "White wins"
	case OutcomeBlackWins:
		return "Black wins"
	case OutcomeDraw:
		return "Draw"
	default:
		return "Undecided"
	}
}

// WinnerOf maps a color to its winning outcome.
func WinnerOf(c Color) Outcome {
	if c == White {
		return OutcomeWhiteWins
	}
	return OutcomeBlackWins
}

// Player is a registered messenger identity. OpponentContext points at the
// player they currently intend to play against; it is independent of whether
// a game actually exists between the two.
type Player struct {
	ID              int64
	Nickname        string
	OpponentContext int64 // 0 when unset
	Active          bool
	SendReminders   bool
}

// Game is one match between two players. BoardData is the move-history codec
// blob; everything about the position is reconstructed from it on demand.
type Game struct {
	ID          int64
	BoardData   []byte
	Active      bool
	WhitePlayer int64
	BlackPlayer int64
	WhiteToPlay bool
	Undo        bool
	Outcome     Outcome
	CreatedAt   time.Time
	LastMovedAt *time.Time // nil until the first move
}

// PlayerColor returns the side the given player occupies, or "" if they are
// not a participant.
func (g *Game) PlayerColor(playerID int64) Color {
	switch playerID {
	case g.WhitePlayer:
		return White
	case g.BlackPlayer:
		return Black
	default:
		return ""
	}
}

// OpponentOf returns the other participant's id, or 0 for a non-participant.
func (g *Game) OpponentOf(playerID int64) int64 {
	switch playerID {
	case g.WhitePlayer:
		return g.BlackPlayer
	case g.BlackPlayer:
		return g.WhitePlayer
	default:
		return 0
	}
}

// IdleSince is the reference time for inactivity: last move when one exists,
// game creation otherwise.
func (g *Game) IdleSince() time.Time {
	if g.LastMovedAt != nil {
		return *g.LastMovedAt
	}
	return g.CreatedAt
}

// GameSnapshot is the read-only projection the reminder sweep works from.
type GameSnapshot struct {
	GameID        int64
	WhitePlayer   int64
	WhiteNickname string
	BlackPlayer   int64
	BlackNickname string
	WhiteToPlay   bool
	WhiteReminds  bool
	BlackReminds  bool
	IdleSince     time.Time
}
