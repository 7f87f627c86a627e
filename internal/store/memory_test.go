package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kapu/messenger-chess-bot/internal/domain"
)

func TestMemoryPlayerLookups(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p, err := m.GetPlayer(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p != nil {
		t.Fatal("absent player must be nil, nil")
	}

	if err := m.CreatePlayer(ctx, 1, "Nate"); err != nil {
		t.Fatalf("create: %v", err)
	}
	id, err := m.IDFromNickname(ctx, "NATE")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if id != 1 {
		t.Fatalf("id = %d, want 1 via case-insensitive lookup", id)
	}
	id, err = m.IDFromNickname(ctx, "nobody")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if id != 0 {
		t.Fatalf("id = %d, want 0 for unknown nickname", id)
	}
}

func TestMemoryCopyOnRead(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.CreatePlayer(ctx, 1, "Nate"); err != nil {
		t.Fatalf("create: %v", err)
	}

	p, _ := m.GetPlayer(ctx, 1)
	p.Nickname = "Mangled"
	again, _ := m.GetPlayer(ctx, 1)
	if again.Nickname != "Nate" {
		t.Fatal("mutating a returned player must not touch the store")
	}
}

func TestMemorySaveGameUnknown(t *testing.T) {
	m := NewMemory()
	err := m.SaveGame(context.Background(), &domain.Game{ID: 99})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMemoryActiveGameSelection(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id1, err := m.CreateGame(ctx, &domain.Game{WhitePlayer: 1, BlackPlayer: 2, WhiteToPlay: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.SetOutcome(ctx, id1, domain.OutcomeWhiteWins); err != nil {
		t.Fatalf("outcome: %v", err)
	}
	id2, err := m.CreateGame(ctx, &domain.Game{WhitePlayer: 2, BlackPlayer: 1, WhiteToPlay: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	g, err := m.GetActiveGameBetween(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g == nil || g.ID != id2 {
		t.Fatalf("got %+v, want the live game %d either way around", g, id2)
	}
}

func TestMemorySnapshotOrderAndFields(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.CreatePlayer(ctx, 1, "Nate"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.CreatePlayer(ctx, 2, "Chad"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.SetSendReminders(ctx, 2, true); err != nil {
		t.Fatalf("set reminders: %v", err)
	}

	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := m.CreateGame(ctx, &domain.Game{
		WhitePlayer: 1, BlackPlayer: 2, WhiteToPlay: true, CreatedAt: created,
	}); err != nil {
		t.Fatalf("create game: %v", err)
	}

	snaps, err := m.GetActiveGamesSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snaps))
	}
	s := snaps[0]
	if s.WhiteNickname != "Nate" || s.BlackNickname != "Chad" {
		t.Fatalf("nicknames wrong: %+v", s)
	}
	if s.WhiteReminds || !s.BlackReminds {
		t.Fatalf("reminder flags wrong: %+v", s)
	}
	if !s.IdleSince.Equal(created) {
		t.Fatalf("idle since = %v, want creation time before any move", s.IdleSince)
	}
}

func TestMemoryCreateGameRetiresStalePair(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.CreatePlayer(ctx, 1, "Nate"); err != nil {
		t.Fatalf("create player: %v", err)
	}
	if err := m.CreatePlayer(ctx, 2, "Chad"); err != nil {
		t.Fatalf("create player: %v", err)
	}

	id1, err := m.CreateGame(ctx, &domain.Game{WhitePlayer: 1, BlackPlayer: 2, WhiteToPlay: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id2, err := m.CreateGame(ctx, &domain.Game{WhitePlayer: 2, BlackPlayer: 1, WhiteToPlay: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	snaps, err := m.GetActiveGamesSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("active games for the pair = %d, want 1", len(snaps))
	}
	g, err := m.GetActiveGameBetween(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g == nil || g.ID != id2 {
		t.Fatalf("got %+v, want only game %d live", g, id2)
	}
	if id1 == id2 {
		t.Fatalf("ids must differ, got %d twice", id1)
	}
}
