package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kapu/messenger-chess-bot/internal/domain"
)

// Postgres implements Repository over database/sql. Every mutation is a
// single statement, which is what carries the atomicity contract for
// concurrent senders.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// EnsureSchema creates the tables when they do not exist yet. Collapsed from
// the incremental migrations the bot accumulated over time.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS player (
			id BIGINT PRIMARY KEY,
			nickname VARCHAR(32) NOT NULL,
			opponent_context BIGINT REFERENCES player(id),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			send_reminders BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS player_nickname_lower ON player (LOWER(nickname))`,
		`CREATE TABLE IF NOT EXISTS games (
			id SERIAL PRIMARY KEY,
			board BYTEA NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			whiteplayer BIGINT NOT NULL REFERENCES player(id),
			blackplayer BIGINT NOT NULL REFERENCES player(id),
			white_to_play BOOLEAN NOT NULL DEFAULT TRUE,
			undo BOOLEAN NOT NULL DEFAULT FALSE,
			outcome INT,
			created_at_utc TIMESTAMP NOT NULL,
			last_moved_at_utc TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS blocked_player (
			blocker BIGINT NOT NULL REFERENCES player(id),
			blocked BIGINT NOT NULL REFERENCES player(id),
			PRIMARY KEY (blocker, blocked)
		)`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) GetPlayer(ctx context.Context, id int64) (*domain.Player, error) {
	const q = `
		SELECT id, nickname, COALESCE(opponent_context, 0), active, send_reminders
		FROM player WHERE id = $1`
	var pl domain.Player
	err := p.db.QueryRowContext(ctx, q, id).Scan(
		&pl.ID, &pl.Nickname, &pl.OpponentContext, &pl.Active, &pl.SendReminders,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select player: %w", err)
	}
	return &pl, nil
}

func (p *Postgres) CreatePlayer(ctx context.Context, id int64, nickname string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO player (id, nickname) VALUES ($1, $2)`, id, nickname)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (p *Postgres) SetNickname(ctx context.Context, id int64, nickname string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE player SET nickname = $1 WHERE id = $2`, nickname, id)
	if err != nil {
		return fmt.Errorf("update nickname: %w", err)
	}
	return nil
}

func (p *Postgres) IDFromNickname(ctx context.Context, nickname string) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx,
		`SELECT id FROM player WHERE LOWER(nickname) = LOWER($1)`, nickname).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select id from nickname: %w", err)
	}
	return id, nil
}

func (p *Postgres) SetOpponentContext(ctx context.Context, playerID, opponentID int64) error {
	var arg any
	if opponentID != 0 {
		arg = opponentID
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE player SET opponent_context = $1 WHERE id = $2`, arg, playerID)
	if err != nil {
		return fmt.Errorf("update opponent context: %w", err)
	}
	return nil
}

func (p *Postgres) GetOpponentContext(ctx context.Context, playerID int64) (int64, error) {
	var opp int64
	err := p.db.QueryRowContext(ctx,
		`SELECT COALESCE(opponent_context, 0) FROM player WHERE id = $1`, playerID).Scan(&opp)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select opponent context: %w", err)
	}
	return opp, nil
}

func (p *Postgres) SetPlayerActivation(ctx context.Context, id int64, active bool) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE player SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("update activation: %w", err)
	}
	return nil
}

func (p *Postgres) SetSendReminders(ctx context.Context, id int64, on bool) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE player SET send_reminders = $1 WHERE id = $2`, on, id)
	if err != nil {
		return fmt.Errorf("update send_reminders: %w", err)
	}
	return nil
}

func (p *Postgres) BlockPlayer(ctx context.Context, blocker, blocked int64) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO blocked_player (blocker, blocked) VALUES ($1, $2)
		 ON CONFLICT (blocker, blocked) DO NOTHING`, blocker, blocked)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

func (p *Postgres) UnblockPlayer(ctx context.Context, blocker, blocked int64) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM blocked_player WHERE blocker = $1 AND blocked = $2`, blocker, blocked)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

func (p *Postgres) IsBlocked(ctx context.Context, blocker, blocked int64) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM blocked_player WHERE blocker = $1 AND blocked = $2)`,
		blocker, blocked).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select block: %w", err)
	}
	return exists, nil
}

func (p *Postgres) CreateGame(ctx context.Context, game *domain.Game) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil game payload")
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create game: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// A stale active row for the pair would shadow the new game forever,
	// so retire anything still marked active before inserting.
	const retire = `
		UPDATE games SET active = FALSE
		WHERE active
		  AND ((whiteplayer = $1 AND blackplayer = $2) OR (whiteplayer = $2 AND blackplayer = $1))`
	if _, err := tx.ExecContext(ctx, retire, game.WhitePlayer, game.BlackPlayer); err != nil {
		return 0, fmt.Errorf("retire stale games: %w", err)
	}

	const q = `
		INSERT INTO games (board, active, whiteplayer, blackplayer, white_to_play, undo, created_at_utc)
		VALUES ($1, TRUE, $2, $3, $4, FALSE, $5)
		RETURNING id`
	var id int64
	err = tx.QueryRowContext(ctx, q,
		game.BoardData, game.WhitePlayer, game.BlackPlayer, game.WhiteToPlay, game.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create game: %w", err)
	}
	return id, nil
}

const gameColumns = `id, board, active, whiteplayer, blackplayer, white_to_play, undo,
	COALESCE(outcome, 0), created_at_utc, last_moved_at_utc`

func scanGame(row *sql.Row) (*domain.Game, error) {
	var (
		g         domain.Game
		outcome   int
		lastMoved sql.NullTime
	)
	err := row.Scan(
		&g.ID, &g.BoardData, &g.Active, &g.WhitePlayer, &g.BlackPlayer,
		&g.WhiteToPlay, &g.Undo, &outcome, &g.CreatedAt, &lastMoved,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan game: %w", err)
	}
	g.Outcome = domain.Outcome(outcome)
	if lastMoved.Valid {
		t := lastMoved.Time
		g.LastMovedAt = &t
	}
	return &g, nil
}

func (p *Postgres) GetActiveGameBetween(ctx context.Context, a, b int64) (*domain.Game, error) {
	q := `
		SELECT ` + gameColumns + `
		FROM games WHERE active = TRUE AND (
			(whiteplayer = $1 AND blackplayer = $2)
			OR
			(whiteplayer = $2 AND blackplayer = $1)
		)
		ORDER BY id DESC LIMIT 1`
	return scanGame(p.db.QueryRowContext(ctx, q, a, b))
}

func (p *Postgres) SaveGame(ctx context.Context, game *domain.Game) error {
	if game == nil {
		return fmt.Errorf("nil game payload")
	}
	_, err := p.db.ExecContext(ctx, `
		UPDATE games SET board = $1, white_to_play = $2, undo = $3, last_moved_at_utc = $4
		WHERE id = $5`,
		game.BoardData, game.WhiteToPlay, game.Undo, game.LastMovedAt, game.ID)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}

func (p *Postgres) SetUndoFlag(ctx context.Context, gameID int64, flag bool) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE games SET undo = $1 WHERE id = $2`, flag, gameID)
	if err != nil {
		return fmt.Errorf("update undo flag: %w", err)
	}
	return nil
}

func (p *Postgres) SetOutcome(ctx context.Context, gameID int64, outcome domain.Outcome) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE games SET outcome = $1, active = FALSE WHERE id = $2`, int(outcome), gameID)
	if err != nil {
		return fmt.Errorf("update outcome: %w", err)
	}
	return nil
}

func (p *Postgres) GetGameContext(ctx context.Context, playerID int64) (*domain.Player, *domain.Player, *domain.Game, error) {
	player, err := p.GetPlayer(ctx, playerID)
	if err != nil || player == nil {
		return nil, nil, nil, err
	}
	if player.OpponentContext == 0 {
		return player, nil, nil, nil
	}
	opponent, err := p.GetPlayer(ctx, player.OpponentContext)
	if err != nil {
		return nil, nil, nil, err
	}
	if opponent == nil {
		return player, nil, nil, nil
	}
	game, err := p.GetActiveGameBetween(ctx, player.ID, opponent.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return player, opponent, game, nil
}

func (p *Postgres) GetActiveGamesSnapshot(ctx context.Context) ([]domain.GameSnapshot, error) {
	const q = `
		SELECT g.id,
			g.whiteplayer, w.nickname, w.send_reminders,
			g.blackplayer, b.nickname, b.send_reminders,
			g.white_to_play,
			COALESCE(g.last_moved_at_utc, g.created_at_utc)
		FROM games g
		JOIN player w ON w.id = g.whiteplayer
		JOIN player b ON b.id = g.blackplayer
		WHERE g.active = TRUE`
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select active games: %w", err)
	}
	defer rows.Close()

	var out []domain.GameSnapshot
	for rows.Next() {
		var s domain.GameSnapshot
		if err := rows.Scan(
			&s.GameID,
			&s.WhitePlayer, &s.WhiteNickname, &s.WhiteReminds,
			&s.BlackPlayer, &s.BlackNickname, &s.BlackReminds,
			&s.WhiteToPlay,
			&s.IdleSince,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
