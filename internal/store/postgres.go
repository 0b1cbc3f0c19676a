package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spellstone/spellstone-server-go/internal/game"
)

// ErrConflict is returned when an optimistic update keeps losing the race
// after exhausting its retries.
var ErrConflict = errors.New("concurrent update conflict")

const applyRetries = 5

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id       TEXT PRIMARY KEY,
	state    JSONB NOT NULL,
	version  BIGINT NOT NULL DEFAULT 1,
	checksum TEXT NOT NULL
)`

// Postgres stores game documents as JSONB rows with an optimistic version
// column. Apply loads the row, runs the mutation, and writes back guarded
// by the version it read; a lost race reloads and retries. The checksum
// column carries the deterministic state digest for divergence checks.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres connects to the database and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() { p.pool.Close() }

// Create persists a new game document.
func (p *Postgres) Create(ctx context.Context, state *game.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal game %s: %w", state.ID, err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO games (id, state, checksum) VALUES ($1, $2, $3)`,
		state.ID, raw, game.Checksum(state))
	if err != nil {
		return fmt.Errorf("insert game %s: %w", state.ID, err)
	}
	return nil
}

// Load returns a snapshot of the current document.
func (p *Postgres) Load(ctx context.Context, gameID string) (*game.GameState, error) {
	state, _, err := p.load(ctx, gameID)
	return state, err
}

func (p *Postgres) load(ctx context.Context, gameID string) (*game.GameState, int64, error) {
	var raw []byte
	var version int64
	err := p.pool.QueryRow(ctx,
		`SELECT state, version FROM games WHERE id = $1`, gameID).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load game %s: %w", gameID, err)
	}
	var state game.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, 0, fmt.Errorf("unmarshal game %s: %w", gameID, err)
	}
	return &state, version, nil
}

// Apply runs mutate against the latest row and writes it back with an
// optimistic version guard, retrying on lost races.
func (p *Postgres) Apply(ctx context.Context, gameID string, mutate func(*game.GameState) error) (*game.GameState, error) {
	for attempt := 0; attempt < applyRetries; attempt++ {
		state, version, err := p.load(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if err := mutate(state); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(state)
		if err != nil {
			return nil, fmt.Errorf("marshal game %s: %w", gameID, err)
		}
		tag, err := p.pool.Exec(ctx,
			`UPDATE games SET state = $1, version = version + 1, checksum = $2
			 WHERE id = $3 AND version = $4`,
			raw, game.Checksum(state), gameID, version)
		if err != nil {
			return nil, fmt.Errorf("update game %s: %w", gameID, err)
		}
		if tag.RowsAffected() == 1 {
			return state, nil
		}
		p.logger.Debug("optimistic update lost race, retrying",
			zap.String("game_id", gameID),
			zap.Int64("version", version),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, fmt.Errorf("%w: game %s", ErrConflict, gameID)
}
