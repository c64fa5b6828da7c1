package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/khaugen/fragstats/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db          *sql.DB
	mapStats    repository.MapStatRepository
	playerStats repository.PlayerStatRepository
	gateLogs    repository.GateLogRepository
}

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:          db,
		mapStats:    &mapStatRepo{db: db},
		playerStats: &playerStatRepo{db: db},
		gateLogs:    &gateLogRepo{db: db},
	}
}

func (s *Store) MapStats() repository.MapStatRepository {
	return s.mapStats
}

func (s *Store) PlayerStats() repository.PlayerStatRepository {
	return s.playerStats
}

func (s *Store) GateLogs() repository.GateLogRepository {
	return s.gateLogs
}

// InsertMatch writes the map row and all player lines in one transaction,
// so a failed player insert never leaves a half-stored match behind.
func (s *Store) InsertMatch(ctx context.Context, match repository.MapStatRecord, players []repository.PlayerStatRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin match insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertMapStatStmt,
		match.MatchID,
		match.MapName,
		match.DateTime,
		match.Won,
		match.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert map stat: %w", err)
	}

	for _, p := range players {
		if _, err := tx.ExecContext(ctx, insertPlayerStatStmt,
			p.MatchID,
			p.Name,
			p.Kills,
			p.Deaths,
			p.Damage,
			p.UtilityDamage,
			p.HeadshotKills,
			p.AceRounds,
			p.QuadRounds,
			p.TripleRounds,
			p.MVPs,
			p.ChickenKills,
			p.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert player stat for %q: %w", p.Name, err)
		}
	}

	return tx.Commit()
}
