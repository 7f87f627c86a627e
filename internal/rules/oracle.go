package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Errors surfaced to players. Ambiguity is reported distinctly from plain
// illegality so the reply can tell the sender how to fix their notation.
var (
	ErrInvalidMove   = errors.New("invalid move")
	ErrAmbiguousMove = errors.New("ambiguous move")
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Game wraps the third-party rules library behind the narrow surface the
// codec, state machine and router actually consume: enumerate legal moves,
// parse notation, apply, inspect check/checkmate and side to move.
type Game struct {
	inner *nchess.Game
}

// NewGame starts from the standard position.
func NewGame() *Game {
	return &Game{inner: nchess.NewGame()}
}

// FromFEN reconstructs a position from a FEN string.
func FromFEN(fen string) (*Game, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Game{inner: nchess.NewGame(opt)}, nil
}

// Replay rebuilds a game by applying SAN moves in order from initialFEN.
func Replay(initialFEN string, sans []string) (*Game, error) {
	g, err := FromFEN(initialFEN)
	if err != nil {
		return nil, err
	}
	for i, san := range sans {
		if err := g.PushSAN(san); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, san, err)
		}
	}
	return g, nil
}

// FEN returns the full position description for the current position.
func (g *Game) FEN() string { return g.inner.FEN() }

// BoardFEN returns only the piece-placement field of the FEN, which is what
// board renderers key on.
func (g *Game) BoardFEN() string {
	return strings.Fields(g.inner.FEN())[0]
}

// WhiteToMove reports whose turn it is.
func (g *Game) WhiteToMove() bool {
	return g.inner.Position().Turn() == nchess.White
}

// MoveCount is the number of half-moves played so far.
func (g *Game) MoveCount() int { return len(g.inner.Moves()) }

// LegalSAN enumerates every legal move from the current position, rendered
// in algebraic notation. Order follows the library's generator; callers that
// need determinism sort the strings themselves.
func (g *Game) LegalSAN() []string {
	pos := g.inner.Position()
	moves := g.inner.ValidMoves()
	sans := make([]string, 0, len(moves))
	for i := range moves {
		sans = append(sans, nchess.AlgebraicNotation{}.Encode(pos, &moves[i]))
	}
	return sans
}

// PushSAN applies one move given in exact algebraic notation.
func (g *Game) PushSAN(san string) error {
	if err := g.inner.PushNotationMove(san, nchess.AlgebraicNotation{}, nil); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMove, san)
	}
	return nil
}

// ParseMove resolves free-form move text against the current position and
// returns the canonical SAN for the unique legal move it denotes. The
// matching is deliberately forgiving: case-insensitive, capture/check/mate
// marks optional, '=' in promotions optional, a leading P accepted on pawn
// moves, and zeros accepted in castling. Returns ErrInvalidMove when nothing
// matches and ErrAmbiguousMove when two or more legal moves do.
func (g *Game) ParseMove(text string) (string, error) {
	stripped := stripMove(text)
	if stripped == "" {
		return "", ErrInvalidMove
	}
	legal := g.LegalSAN()

	// Case-preserving SAN match first, so "bc3" stays the pawn capture
	// while "Bc3" stays the bishop move.
	var exact []string
	for _, san := range legal {
		if stripMove(san) == stripped {
			exact = append(exact, san)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(exact) > 1 {
		return "", ErrAmbiguousMove
	}

	// Try UCI coordinates next (e2e4, g7g8q).
	if san, ok := g.sanFromUCI(text); ok {
		return san, nil
	}

	want := strings.ToLower(stripped)
	var matches []string
	for _, san := range legal {
		for _, v := range spellings(san) {
			if v == want {
				matches = append(matches, san)
				break
			}
		}
	}
	switch len(matches) {
	case 0:
		return "", ErrInvalidMove
	case 1:
		return matches[0], nil
	default:
		return "", ErrAmbiguousMove
	}
}

func (g *Game) sanFromUCI(text string) (string, bool) {
	uci := strings.ToLower(strings.TrimSpace(text))
	if len(uci) < 4 || len(uci) > 5 {
		return "", false
	}
	pos := g.inner.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return "", false
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	for _, legal := range g.LegalSAN() {
		if legal == san {
			return san, true
		}
	}
	return "", false
}

// IsCheckmate reports whether the game has ended by checkmate.
func (g *Game) IsCheckmate() bool {
	return g.inner.Outcome() != nchess.NoOutcome && g.inner.Method() == nchess.Checkmate
}

// IsCheck reports whether the side to move is currently in check. Derived
// from the algebraic rendering of the last move, which carries the + / #
// suffix.
func (g *Game) IsCheck() bool {
	moves := g.inner.Moves()
	positions := g.inner.Positions()
	if len(moves) == 0 || len(positions) < 2 {
		return false
	}
	san := nchess.AlgebraicNotation{}.Encode(positions[len(positions)-2], moves[len(moves)-1])
	return strings.ContainsAny(san, "+#")
}

// Winner returns "white" or "black" for a checkmated game, "" otherwise.
func (g *Game) Winner() string {
	switch g.inner.Outcome() {
	case nchess.WhiteWon:
		return "white"
	case nchess.BlackWon:
		return "black"
	default:
		return ""
	}
}

// SANGivesCheck reports whether a SAN string carries a check or mate mark.
func SANGivesCheck(san string) bool {
	return strings.ContainsAny(san, "+#")
}

// stripMove removes the decorations players leave out or add freely:
// capture marks, check/mate suffixes, promotion '=', whitespace. Castling
// zeros are folded to letter O spelling. Case is preserved.
func stripMove(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch r {
		case 'x', '+', '#', '=', ' ', '\t':
			continue
		case '0':
			b.WriteRune('O')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeMove(s string) string {
	return strings.ToLower(stripMove(s))
}

// spellings returns alternate normalized inputs accepted for a SAN move:
// a leading P on pawn moves, and the bare destination square for pawn
// captures (which keeps "d5" ambiguous when two pawns can take on d5).
func spellings(san string) []string {
	norm := normalizeMove(san)
	out := []string{norm}
	if san == "" {
		return out
	}
	first := san[0]
	switch {
	case first >= 'a' && first <= 'h': // pawn move
		out = append(out, "p"+norm)
		if strings.Contains(san, "x") {
			if dest := destinationSquare(san); dest != "" {
				out = append(out, dest)
			}
		}
	case strings.ContainsRune("KQRBN", rune(first)):
		// Accept the undisambiguated form: Nbd2 also answers to Nd2,
		// which is what surfaces ambiguity as such instead of failure.
		if dest := destinationSquare(san); dest != "" {
			if v := strings.ToLower(string(first)) + dest; v != norm {
				out = append(out, v)
			}
		}
	}
	return out
}

func destinationSquare(san string) string {
	for i := len(san) - 2; i >= 0; i-- {
		f, r := san[i], san[i+1]
		if f >= 'a' && f <= 'h' && r >= '1' && r <= '8' {
			return string([]byte{f, r})
		}
	}
	return ""
}
