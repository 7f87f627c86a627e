// Package reminder computes and delivers inactivity nudges. Compute is pure
// so the selection rules are testable without a clock or a database.
package reminder

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/messenger-chess-bot/internal/domain"
	"github.com/kapu/messenger-chess-bot/internal/msgcat"
	"github.com/kapu/messenger-chess-bot/internal/obslog"
	"github.com/kapu/messenger-chess-bot/internal/store"
)

// Digest is every stale game one player should be nudged about, grouped so a
// player with several idle games receives a single message.
type Digest struct {
	PlayerID int64
	Lines    []Line
}

// Line is one idle game from the recipient's point of view.
type Line struct {
	OpponentNickname string
	ElapsedDays      float64
}

// Compute selects reminders from a snapshot of active games. A game
// qualifies when the side to move has reminders enabled and the game has
// been idle at least threshold. Lines within a digest are ordered by
// opponent nickname and digests by player id, so output is deterministic.
func Compute(snaps []domain.GameSnapshot, now time.Time, threshold time.Duration) []Digest {
	byPlayer := make(map[int64][]Line)
	for _, s := range snaps {
		idle := now.Sub(s.IdleSince)
		if idle < threshold {
			continue
		}
		waiterID, waiterReminds := s.BlackPlayer, s.BlackReminds
		opponent := s.WhiteNickname
		if s.WhiteToPlay {
			waiterID, waiterReminds = s.WhitePlayer, s.WhiteReminds
			opponent = s.BlackNickname
		}
		if !waiterReminds {
			continue
		}
		days := math.Round(idle.Hours()/24*10) / 10
		byPlayer[waiterID] = append(byPlayer[waiterID], Line{OpponentNickname: opponent, ElapsedDays: days})
	}

	digests := make([]Digest, 0, len(byPlayer))
	for id, lines := range byPlayer {
		sort.Slice(lines, func(i, j int) bool { return lines[i].OpponentNickname < lines[j].OpponentNickname })
		digests = append(digests, Digest{PlayerID: id, Lines: lines})
	}
	sort.Slice(digests, func(i, j int) bool { return digests[i].PlayerID < digests[j].PlayerID })
	return digests
}

// FormatDays renders elapsed days the way replies expect: one decimal kept
// even when whole, e.g. "2.0".
func FormatDays(days float64) string {
	s := strconv.FormatFloat(days, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Sender delivers one text message to a player.
type Sender interface {
	SendText(ctx context.Context, playerID int64, text string) error
}

// Sweeper runs the periodic reminder pass end to end.
type Sweeper struct {
	repo      store.Repository
	cat       *msgcat.Catalog
	sender    Sender
	threshold time.Duration
}

func NewSweeper(repo store.Repository, cat *msgcat.Catalog, sender Sender, threshold time.Duration) *Sweeper {
	return &Sweeper{repo: repo, cat: cat, sender: sender, threshold: threshold}
}

// Sweep computes and sends all due reminders. Delivery failures are logged
// per recipient and do not stop the pass.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) error {
	snaps, err := s.repo.GetActiveGamesSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("reminder: snapshot: %w", err)
	}
	digests := Compute(snaps, now, s.threshold)
	for _, d := range digests {
		lines := make([]string, 0, len(d.Lines))
		for _, l := range d.Lines {
			lines = append(lines, s.cat.Line("reminders.line", map[string]any{
				"Name": l.OpponentNickname,
				"Days": FormatDays(l.ElapsedDays),
			}))
		}
		if err := s.sender.SendText(ctx, d.PlayerID, strings.Join(lines, "\n")); err != nil {
			obslog.L().Warn("reminder delivery failed",
				zap.Int64("player_id", d.PlayerID), zap.Error(err))
		}
	}
	obslog.L().Info("reminder sweep complete",
		zap.Int("games", len(snaps)), zap.Int("recipients", len(digests)))
	return nil
}
