// Package social maintains the player graph: registration, nicknames,
// opponent context, blocking, and per-player settings.
package social

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kapu/messenger-chess-bot/internal/domain"
	"github.com/kapu/messenger-chess-bot/internal/store"
)

var nicknameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

const maxNicknameLen = 32

// WellFormedNickname reports whether a string could ever name a registered
// player. Callers use it to short-circuit lookups for junk input.
func WellFormedNickname(name string) bool {
	return nicknameRe.MatchString(name) && len(name) <= maxNicknameLen
}

// Service wraps the repository with the social-graph rules.
type Service struct {
	repo store.Repository
}

func New(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// RegisterStatus tells the caller which reply a registration deserves.
type RegisterStatus int

const (
	RegisterWelcome RegisterStatus = iota // brand-new player
	RegisterRenamed
	RegisterUnchanged
	RegisterTaken
	RegisterBadFormat
	RegisterTooLong
)

// Register creates or renames a player. Format is checked before length so a
// name that fails both gets the format complaint.
func (s *Service) Register(ctx context.Context, playerID int64, nickname string) (RegisterStatus, error) {
	if !nicknameRe.MatchString(nickname) {
		return RegisterBadFormat, nil
	}
	if len(nickname) > maxNicknameLen {
		return RegisterTooLong, nil
	}

	holder, err := s.repo.IDFromNickname(ctx, nickname)
	if err != nil {
		return 0, fmt.Errorf("social: lookup nickname: %w", err)
	}
	if holder != 0 && holder != playerID {
		return RegisterTaken, nil
	}

	existing, err := s.repo.GetPlayer(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("social: get player: %w", err)
	}
	if existing == nil {
		if err := s.repo.CreatePlayer(ctx, playerID, nickname); err != nil {
			return 0, fmt.Errorf("social: create player: %w", err)
		}
		return RegisterWelcome, nil
	}
	if existing.Nickname == nickname {
		return RegisterUnchanged, nil
	}
	if err := s.repo.SetNickname(ctx, playerID, nickname); err != nil {
		return 0, fmt.Errorf("social: set nickname: %w", err)
	}
	return RegisterRenamed, nil
}

// Player fetches a registered player, nil when unknown.
func (s *Service) Player(ctx context.Context, playerID int64) (*domain.Player, error) {
	return s.repo.GetPlayer(ctx, playerID)
}

// Resolve maps a nickname (any capitalization) to the registered player,
// nil when no such player exists.
func (s *Service) Resolve(ctx context.Context, nickname string) (*domain.Player, error) {
	id, err := s.repo.IDFromNickname(ctx, nickname)
	if err != nil || id == 0 {
		return nil, err
	}
	return s.repo.GetPlayer(ctx, id)
}

// OpponentStatus classifies the outcome of a "play against" request.
type OpponentStatus int

const (
	OpponentSet OpponentStatus = iota
	OpponentAlready
	OpponentUnknown
	OpponentLeft      // target deactivated their account
	OpponentBlocked   // caller has blocked the target
	OpponentBlockedBy // target has blocked the caller
)

// OpponentResult carries the resolved target alongside the status. Target is
// nil for OpponentUnknown.
type OpponentResult struct {
	Status     OpponentStatus
	Target     *domain.Player
	AutoLinked bool // target had no context of their own and now points back
}

// SetOpponent points the caller's opponent context at the named player. When
// the target has no context of their own it is set back to the caller, so a
// later "new game" from either side lands on the same pair.
func (s *Service) SetOpponent(ctx context.Context, playerID int64, targetName string) (OpponentResult, error) {
	target, err := s.Resolve(ctx, targetName)
	if err != nil {
		return OpponentResult{}, fmt.Errorf("social: resolve %q: %w", targetName, err)
	}
	if target == nil {
		return OpponentResult{Status: OpponentUnknown}, nil
	}

	// Own block wins over being blocked when both hold.
	if blocked, err := s.repo.IsBlocked(ctx, playerID, target.ID); err != nil {
		return OpponentResult{}, fmt.Errorf("social: blocked check: %w", err)
	} else if blocked {
		return OpponentResult{Status: OpponentBlocked, Target: target}, nil
	}
	if blocked, err := s.repo.IsBlocked(ctx, target.ID, playerID); err != nil {
		return OpponentResult{}, fmt.Errorf("social: blocked-by check: %w", err)
	} else if blocked {
		return OpponentResult{Status: OpponentBlockedBy, Target: target}, nil
	}
	if !target.Active {
		return OpponentResult{Status: OpponentLeft, Target: target}, nil
	}

	current, err := s.repo.GetOpponentContext(ctx, playerID)
	if err != nil {
		return OpponentResult{}, fmt.Errorf("social: get context: %w", err)
	}
	if current == target.ID {
		return OpponentResult{Status: OpponentAlready, Target: target}, nil
	}
	if err := s.repo.SetOpponentContext(ctx, playerID, target.ID); err != nil {
		return OpponentResult{}, fmt.Errorf("social: set context: %w", err)
	}

	auto := false
	if target.OpponentContext == 0 {
		if err := s.repo.SetOpponentContext(ctx, target.ID, playerID); err != nil {
			return OpponentResult{}, fmt.Errorf("social: set reverse context: %w", err)
		}
		auto = true
	}
	return OpponentResult{Status: OpponentSet, Target: target, AutoLinked: auto}, nil
}

// BlockStatus classifies block/unblock outcomes.
type BlockStatus int

const (
	BlockDone BlockStatus = iota
	BlockAlready
	BlockUnknown
)

// BlockResult carries the resolved target; nil for BlockUnknown.
type BlockResult struct {
	Status BlockStatus
	Target *domain.Player
}

// Block records that the caller no longer wants contact from the named
// player. The blocked player's opponent context is cleared only when it
// points at the blocker; the blocker keeps their own context untouched.
func (s *Service) Block(ctx context.Context, playerID int64, targetName string) (BlockResult, error) {
	target, err := s.Resolve(ctx, targetName)
	if err != nil {
		return BlockResult{}, fmt.Errorf("social: resolve %q: %w", targetName, err)
	}
	if target == nil {
		return BlockResult{Status: BlockUnknown}, nil
	}
	already, err := s.repo.IsBlocked(ctx, playerID, target.ID)
	if err != nil {
		return BlockResult{}, fmt.Errorf("social: blocked check: %w", err)
	}
	if already {
		return BlockResult{Status: BlockAlready, Target: target}, nil
	}
	if err := s.repo.BlockPlayer(ctx, playerID, target.ID); err != nil {
		return BlockResult{}, fmt.Errorf("social: block: %w", err)
	}
	if target.OpponentContext == playerID {
		if err := s.repo.SetOpponentContext(ctx, target.ID, 0); err != nil {
			return BlockResult{}, fmt.Errorf("social: clear context: %w", err)
		}
	}
	return BlockResult{Status: BlockDone, Target: target}, nil
}

// Unblock lifts a block. Unblocking someone who was never blocked is treated
// as success.
func (s *Service) Unblock(ctx context.Context, playerID int64, targetName string) (BlockResult, error) {
	target, err := s.Resolve(ctx, targetName)
	if err != nil {
		return BlockResult{}, fmt.Errorf("social: resolve %q: %w", targetName, err)
	}
	if target == nil {
		return BlockResult{Status: BlockUnknown}, nil
	}
	if err := s.repo.UnblockPlayer(ctx, playerID, target.ID); err != nil {
		return BlockResult{}, fmt.Errorf("social: unblock: %w", err)
	}
	return BlockResult{Status: BlockDone, Target: target}, nil
}

// SetActivation toggles whether the player is visible to others. A
// deactivated player cannot be chosen as an opponent.
func (s *Service) SetActivation(ctx context.Context, playerID int64, active bool) error {
	if err := s.repo.SetPlayerActivation(ctx, playerID, active); err != nil {
		return fmt.Errorf("social: set activation: %w", err)
	}
	return nil
}

// SetReminders toggles inactivity reminders for the player.
func (s *Service) SetReminders(ctx context.Context, playerID int64, on bool) error {
	if err := s.repo.SetSendReminders(ctx, playerID, on); err != nil {
		return fmt.Errorf("social: set reminders: %w", err)
	}
	return nil
}
