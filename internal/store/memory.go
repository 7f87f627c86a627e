package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kapu/messenger-chess-bot/internal/domain"
)

// Memory is an in-memory Repository for tests and local development without
// a database.
type Memory struct {
	mu sync.RWMutex

	nextGameID int64
	players    map[int64]*domain.Player
	games      map[int64]*domain.Game
	blocks     map[[2]int64]struct{} // [blocker, blocked]
}

func NewMemory() *Memory {
	return &Memory{
		players: make(map[int64]*domain.Player),
		games:   make(map[int64]*domain.Game),
		blocks:  make(map[[2]int64]struct{}),
	}
}

func (m *Memory) GetPlayer(_ context.Context, id int64) (*domain.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) CreatePlayer(_ context.Context, id int64, nickname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[id] = &domain.Player{ID: id, Nickname: nickname, Active: true}
	return nil
}

func (m *Memory) SetNickname(_ context.Context, id int64, nickname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[id]; ok {
		p.Nickname = nickname
	}
	return nil
}

func (m *Memory) IDFromNickname(_ context.Context, nickname string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.players {
		if strings.EqualFold(p.Nickname, nickname) {
			return p.ID, nil
		}
	}
	return 0, nil
}

func (m *Memory) SetOpponentContext(_ context.Context, playerID, opponentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[playerID]; ok {
		p.OpponentContext = opponentID
	}
	return nil
}

func (m *Memory) GetOpponentContext(_ context.Context, playerID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.players[playerID]; ok {
		return p.OpponentContext, nil
	}
	return 0, nil
}

func (m *Memory) SetPlayerActivation(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[id]; ok {
		p.Active = active
	}
	return nil
}

func (m *Memory) SetSendReminders(_ context.Context, id int64, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[id]; ok {
		p.SendReminders = on
	}
	return nil
}

func (m *Memory) BlockPlayer(_ context.Context, blocker, blocked int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[[2]int64{blocker, blocked}] = struct{}{}
	return nil
}

func (m *Memory) UnblockPlayer(_ context.Context, blocker, blocked int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, [2]int64{blocker, blocked})
	return nil
}

func (m *Memory) IsBlocked(_ context.Context, blocker, blocked int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blocks[[2]int64{blocker, blocked}]
	return ok, nil
}

func (m *Memory) CreateGame(_ context.Context, game *domain.Game) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.Active && samePair(g, game.WhitePlayer, game.BlackPlayer) {
			g.Active = false
		}
	}
	m.nextGameID++
	cp := *game
	cp.ID = m.nextGameID
	cp.Active = true
	m.games[cp.ID] = &cp
	return cp.ID, nil
}

func (m *Memory) GetActiveGameBetween(_ context.Context, a, b int64) (*domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Game
	for _, g := range m.games {
		if g.Active && samePair(g, a, b) {
			if latest == nil || g.ID > latest.ID {
				latest = g
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	cp.BoardData = append([]byte(nil), latest.BoardData...)
	return &cp, nil
}

func (m *Memory) SaveGame(_ context.Context, game *domain.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[game.ID]
	if !ok {
		return ErrNotFound
	}
	g.BoardData = append([]byte(nil), game.BoardData...)
	g.WhiteToPlay = game.WhiteToPlay
	g.Undo = game.Undo
	g.LastMovedAt = game.LastMovedAt
	return nil
}

func (m *Memory) SetUndoFlag(_ context.Context, gameID int64, flag bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[gameID]; ok {
		g.Undo = flag
	}
	return nil
}

func (m *Memory) SetOutcome(_ context.Context, gameID int64, outcome domain.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[gameID]; ok {
		g.Outcome = outcome
		g.Active = false
	}
	return nil
}

func (m *Memory) GetGameContext(ctx context.Context, playerID int64) (*domain.Player, *domain.Player, *domain.Game, error) {
	player, err := m.GetPlayer(ctx, playerID)
	if err != nil || player == nil {
		return nil, nil, nil, err
	}
	if player.OpponentContext == 0 {
		return player, nil, nil, nil
	}
	opponent, err := m.GetPlayer(ctx, player.OpponentContext)
	if err != nil || opponent == nil {
		return player, nil, nil, err
	}
	game, err := m.GetActiveGameBetween(ctx, player.ID, opponent.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return player, opponent, game, nil
}

func (m *Memory) GetActiveGamesSnapshot(_ context.Context) ([]domain.GameSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.GameSnapshot
	for _, g := range m.games {
		if !g.Active {
			continue
		}
		white, black := m.players[g.WhitePlayer], m.players[g.BlackPlayer]
		if white == nil || black == nil {
			continue
		}
		out = append(out, domain.GameSnapshot{
			GameID:        g.ID,
			WhitePlayer:   white.ID,
			WhiteNickname: white.Nickname,
			WhiteReminds:  white.SendReminders,
			BlackPlayer:   black.ID,
			BlackNickname: black.Nickname,
			BlackReminds:  black.SendReminders,
			WhiteToPlay:   g.WhiteToPlay,
			IdleSince:     g.IdleSince(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

func samePair(g *domain.Game, a, b int64) bool {
	return (g.WhitePlayer == a && g.BlackPlayer == b) ||
		(g.WhitePlayer == b && g.BlackPlayer == a)
}
