// Package store owns the backing relational state: players, the block
// graph, and games. It is the single source of truth; handlers re-read
// context at the start of every event and write back before returning, so
// nothing authoritative lives in process memory.
package store

import (
	"context"
	"errors"

	"github.com/kapu/messenger-chess-bot/internal/domain"
)

var ErrNotFound = errors.New("store: not found")

// Repository is the persistence surface the social graph, state machine,
// router and reminder sweep consume. Postgres is the production
// implementation; Memory backs tests and local development.
type Repository interface {
	// Players.
	GetPlayer(ctx context.Context, id int64) (*domain.Player, error) // nil, nil when absent
	CreatePlayer(ctx context.Context, id int64, nickname string) error
	SetNickname(ctx context.Context, id int64, nickname string) error
	IDFromNickname(ctx context.Context, nickname string) (int64, error) // 0 when absent, case-insensitive
	SetOpponentContext(ctx context.Context, playerID, opponentID int64) error // opponentID 0 clears
	GetOpponentContext(ctx context.Context, playerID int64) (int64, error)
	SetPlayerActivation(ctx context.Context, id int64, active bool) error
	SetSendReminders(ctx context.Context, id int64, on bool) error

	// Block relationships. Each direction is an independent fact.
	BlockPlayer(ctx context.Context, blocker, blocked int64) error
	UnblockPlayer(ctx context.Context, blocker, blocked int64) error
	IsBlocked(ctx context.Context, blocker, blocked int64) (bool, error)

	// Games.
	CreateGame(ctx context.Context, game *domain.Game) (int64, error)
	GetActiveGameBetween(ctx context.Context, a, b int64) (*domain.Game, error) // nil, nil when absent
	SaveGame(ctx context.Context, game *domain.Game) error
	SetUndoFlag(ctx context.Context, gameID int64, flag bool) error
	SetOutcome(ctx context.Context, gameID int64, outcome domain.Outcome) error // also deactivates

	// GetGameContext resolves (player, opponent, active game) for a sender.
	// Any of the three may be nil: unregistered sender, no opponent
	// context, or no active game with that opponent.
	GetGameContext(ctx context.Context, playerID int64) (*domain.Player, *domain.Player, *domain.Game, error)

	// GetActiveGamesSnapshot feeds the reminder sweep. Read-only.
	GetActiveGamesSnapshot(ctx context.Context) ([]domain.GameSnapshot, error)
}
