package reminder

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kapu/messenger-chess-bot/internal/domain"
	"github.com/kapu/messenger-chess-bot/internal/msgcat"
	"github.com/kapu/messenger-chess-bot/internal/store"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func snap(gameID int64, whiteToPlay bool, idle time.Duration) domain.GameSnapshot {
	return domain.GameSnapshot{
		GameID:        gameID,
		WhitePlayer:   1,
		WhiteNickname: "Nate",
		WhiteReminds:  true,
		BlackPlayer:   2,
		BlackNickname: "Chad",
		BlackReminds:  true,
		WhiteToPlay:   whiteToPlay,
		IdleSince:     baseTime.Add(-idle),
	}
}

func TestComputeThreshold(t *testing.T) {
	snaps := []domain.GameSnapshot{
		snap(1, true, 12*time.Hour),
		snap(2, true, 36*time.Hour),
	}
	digests := Compute(snaps, baseTime, 24*time.Hour)
	if len(digests) != 1 {
		t.Fatalf("digests = %d, want 1", len(digests))
	}
	if digests[0].PlayerID != 1 {
		t.Fatalf("recipient = %d, want the waiting white player", digests[0].PlayerID)
	}
	if days := digests[0].Lines[0].ElapsedDays; days != 1.5 {
		t.Fatalf("elapsed = %v, want 1.5", days)
	}
}

func TestComputeTargetsSideToMove(t *testing.T) {
	digests := Compute([]domain.GameSnapshot{snap(1, false, 48 * time.Hour)}, baseTime, 24*time.Hour)
	if len(digests) != 1 || digests[0].PlayerID != 2 {
		t.Fatalf("digests = %+v, want one for black (id 2)", digests)
	}
}

func TestComputeHonorsOptOut(t *testing.T) {
	s := snap(1, true, 48*time.Hour)
	s.WhiteReminds = false
	if digests := Compute([]domain.GameSnapshot{s}, baseTime, 24*time.Hour); len(digests) != 0 {
		t.Fatalf("digests = %+v, want none for an opted-out player", digests)
	}
}

func TestComputeGroupsAndSorts(t *testing.T) {
	a := snap(1, true, 48*time.Hour)
	a.BlackNickname = "Zoe"
	b := snap(2, true, 72*time.Hour)
	b.BlackNickname = "Abe"
	digests := Compute([]domain.GameSnapshot{a, b}, baseTime, 24*time.Hour)
	if len(digests) != 1 {
		t.Fatalf("digests = %d, want one grouped digest", len(digests))
	}
	lines := digests[0].Lines
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[0].OpponentNickname != "Abe" || lines[1].OpponentNickname != "Zoe" {
		t.Fatalf("lines not sorted by nickname: %+v", lines)
	}
}

func TestFormatDays(t *testing.T) {
	cases := map[float64]string{
		1.5: "1.5",
		2:   "2.0",
		0.5: "0.5",
		10:  "10.0",
	}
	for in, want := range cases {
		if got := FormatDays(in); got != want {
			t.Fatalf("FormatDays(%v) = %q, want %q", in, got, want)
		}
	}
}

type captureSender struct {
	sent map[int64][]string
}

func (c *captureSender) SendText(_ context.Context, playerID int64, text string) error {
	c.sent[playerID] = append(c.sent[playerID], text)
	return nil
}

func TestSweepEndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	for id, name := range map[int64]string{1: "Nate", 2: "Chad"} {
		if err := repo.CreatePlayer(ctx, id, name); err != nil {
			t.Fatalf("create player: %v", err)
		}
		if err := repo.SetSendReminders(ctx, id, true); err != nil {
			t.Fatalf("set reminders: %v", err)
		}
	}
	created := baseTime.Add(-5 * 24 * time.Hour)
	if _, err := repo.CreateGame(ctx, &domain.Game{
		WhitePlayer: 1, BlackPlayer: 2, WhiteToPlay: true, CreatedAt: created,
	}); err != nil {
		t.Fatalf("create game: %v", err)
	}

	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	sender := &captureSender{sent: make(map[int64][]string)}
	sweeper := NewSweeper(repo, cat, sender, 24*time.Hour)
	if err := sweeper.Sweep(ctx, baseTime); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	msgs := sender.sent[1]
	if len(msgs) != 1 {
		t.Fatalf("messages to white = %d, want 1", len(msgs))
	}
	if want := "Game with Chad inactive for 5.0 days"; msgs[0] != want {
		t.Fatalf("got %q, want %q", msgs[0], want)
	}
	if len(sender.sent[2]) != 0 {
		t.Fatal("the player who is not on turn gets nothing")
	}
	if strings.Contains(msgs[0], "\n") {
		t.Fatal("single line expected for a single idle game")
	}
}
