// Package movecodec persists a game's move history as the initial position
// description followed by one byte per move. Each byte is the move's rank in
// the canonical ordering of all legal moves at that point in the replay:
// render every legal move to algebraic notation, sort the strings ascending,
// and the rank is the 0-based index. The ordering is a pure function of the
// position, which is what makes the single-byte indices reproducible across
// processes and library versions.
package movecodec

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/kapu/messenger-chess-bot/internal/rules"
)

// Separator terminates the ASCII position description. 0xFF never occurs in
// a FEN string, and doubles as the ceiling on encodable ranks.
const Separator byte = 0xFF

var (
	ErrNoSeparator  = errors.New("movecodec: missing separator byte")
	ErrBadRank      = errors.New("movecodec: move rank out of range for position")
	ErrTooManyMoves = errors.New("movecodec: position offers too many legal moves to encode")
	ErrEmptyHistory = errors.New("movecodec: no moves to trim")
)

// Encode serializes an initial position plus an in-order SAN move list.
func Encode(initialFEN string, sans []string) ([]byte, error) {
	game, err := rules.FromFEN(initialFEN)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(initialFEN)+1+len(sans))
	buf = append(buf, []byte(initialFEN)...)
	buf = append(buf, Separator)
	for i, san := range sans {
		rank, canonical, err := rankOf(game, san)
		if err != nil {
			return nil, fmt.Errorf("move %d (%s): %w", i+1, san, err)
		}
		buf = append(buf, rank)
		if err := game.PushSAN(canonical); err != nil {
			return nil, fmt.Errorf("move %d (%s): %w", i+1, san, err)
		}
	}
	return buf, nil
}

// Decode reconstructs the initial position, the SAN move list and the final
// position from an encoded history.
func Decode(data []byte) (initialFEN string, sans []string, finalFEN string, err error) {
	idx := bytes.IndexByte(data, Separator)
	if idx < 0 {
		return "", nil, "", ErrNoSeparator
	}
	initialFEN = string(data[:idx])
	game, err := rules.FromFEN(initialFEN)
	if err != nil {
		return "", nil, "", err
	}
	for i, rank := range data[idx+1:] {
		ordered := canonicalOrder(game)
		if int(rank) >= len(ordered) {
			return "", nil, "", fmt.Errorf("byte %d: %w", i, ErrBadRank)
		}
		san := ordered[rank]
		if err := game.PushSAN(san); err != nil {
			return "", nil, "", fmt.Errorf("byte %d (%s): %w", i, san, err)
		}
		sans = append(sans, san)
	}
	return initialFEN, sans, game.FEN(), nil
}

// AppendMove re-encodes data with one more move on the end. The existing
// prefix is untouched; only the new move's rank byte is computed.
func AppendMove(data []byte, san string) ([]byte, error) {
	initialFEN, sans, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	game, err := rules.Replay(initialFEN, sans)
	if err != nil {
		return nil, err
	}
	rank, canonical, err := rankOf(game, san)
	if err != nil {
		return nil, fmt.Errorf("move %s: %w", canonical, err)
	}
	out := make([]byte, len(data)+1)
	copy(out, data)
	out[len(data)] = rank
	return out, nil
}

// TrimLastMove drops the most recent move. Because ranks are a pure function
// of the replayed position, an encoding is prefix-stable and the trim is a
// one-byte truncation.
func TrimLastMove(data []byte) ([]byte, error) {
	idx := bytes.IndexByte(data, Separator)
	if idx < 0 {
		return nil, ErrNoSeparator
	}
	if idx == len(data)-1 {
		return nil, ErrEmptyHistory
	}
	out := make([]byte, len(data)-1)
	copy(out, data[:len(data)-1])
	return out, nil
}

// MoveCount reports how many moves an encoding holds without replaying it.
func MoveCount(data []byte) (int, error) {
	idx := bytes.IndexByte(data, Separator)
	if idx < 0 {
		return 0, ErrNoSeparator
	}
	return len(data) - idx - 1, nil
}

// canonicalOrder lists the legal moves of the current position sorted by
// their algebraic rendering.
func canonicalOrder(game *rules.Game) []string {
	sans := game.LegalSAN()
	sort.Strings(sans)
	return sans
}

func rankOf(game *rules.Game, san string) (byte, string, error) {
	canonical, err := game.ParseMove(san)
	if err != nil {
		return 0, san, err
	}
	ordered := canonicalOrder(game)
	for i, s := range ordered {
		if s == canonical {
			if i >= int(Separator) {
				return 0, canonical, ErrTooManyMoves
			}
			return byte(i), canonical, nil
		}
	}
	return 0, canonical, rules.ErrInvalidMove
}
