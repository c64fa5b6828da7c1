package sqlite

import (
	"context"
	"database/sql"

	"github.com/khaugen/fragstats/internal/repository"
)

type playerStatRepo struct {
	db *sql.DB
}

const playerStatColumns = `id, match_id, name, kills, deaths, dmg, utility_dmg,
	headshot_kills, ace_rounds, quad_rounds, triple_rounds, mvps, chicken_kills, created_at`

const insertPlayerStatStmt = `INSERT INTO player_stats(match_id, name, kills, deaths, dmg, utility_dmg,
	headshot_kills, ace_rounds, quad_rounds, triple_rounds, mvps, chicken_kills, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (r *playerStatRepo) Insert(ctx context.Context, record repository.PlayerStatRecord) error {
	_, err := r.db.ExecContext(ctx, insertPlayerStatStmt,
		record.MatchID,
		record.Name,
		record.Kills,
		record.Deaths,
		record.Damage,
		record.UtilityDamage,
		record.HeadshotKills,
		record.AceRounds,
		record.QuadRounds,
		record.TripleRounds,
		record.MVPs,
		record.ChickenKills,
		record.CreatedAt,
	)
	return err
}

func (r *playerStatRepo) List(ctx context.Context, limit int) ([]repository.PlayerStatRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	query := `SELECT ` + playerStatColumns + `
	          FROM player_stats
	          ORDER BY created_at DESC
	          LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayerStats(rows)
}

func (r *playerStatRepo) ListByMatch(ctx context.Context, matchID string) ([]repository.PlayerStatRecord, error) {
	query := `SELECT ` + playerStatColumns + `
	          FROM player_stats
	          WHERE match_id = ?
	          ORDER BY kills DESC`
	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayerStats(rows)
}

func (r *playerStatRepo) KDTotals(ctx context.Context) ([]repository.PlayerKD, error) {
	const query = `SELECT name, COALESCE(SUM(kills), 0), COALESCE(SUM(deaths), 0)
	               FROM player_stats
	               GROUP BY name
	               ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []repository.PlayerKD
	for rows.Next() {
		var kd repository.PlayerKD
		if err := rows.Scan(&kd.Name, &kd.Kills, &kd.Deaths); err != nil {
			return nil, err
		}
		totals = append(totals, kd)
	}
	return totals, rows.Err()
}

func (r *playerStatRepo) ChickenTotals(ctx context.Context) ([]repository.PlayerChicken, error) {
	const query = `SELECT name, COALESCE(SUM(chicken_kills), 0) AS chicken
	               FROM player_stats
	               GROUP BY name
	               ORDER BY chicken DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []repository.PlayerChicken
	for rows.Next() {
		var pc repository.PlayerChicken
		if err := rows.Scan(&pc.Name, &pc.Chicken); err != nil {
			return nil, err
		}
		totals = append(totals, pc)
	}
	return totals, rows.Err()
}

func (r *playerStatRepo) MultiKillTotals(ctx context.Context) ([]repository.PlayerMultiKills, error) {
	const query = `SELECT name,
	                      COALESCE(SUM(ace_rounds), 0) AS aces,
	                      COALESCE(SUM(quad_rounds), 0) AS quads,
	                      COALESCE(SUM(triple_rounds), 0) AS triples
	               FROM player_stats
	               GROUP BY name
	               ORDER BY aces DESC, quads DESC, triples DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []repository.PlayerMultiKills
	for rows.Next() {
		var mk repository.PlayerMultiKills
		if err := rows.Scan(&mk.Name, &mk.Aces, &mk.Quads, &mk.Triples); err != nil {
			return nil, err
		}
		totals = append(totals, mk)
	}
	return totals, rows.Err()
}

func (r *playerStatRepo) UtilityDamageTotals(ctx context.Context) ([]repository.PlayerUtility, error) {
	const query = `SELECT name, COALESCE(SUM(utility_dmg), 0) AS utility
	               FROM player_stats
	               GROUP BY name
	               ORDER BY utility DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []repository.PlayerUtility
	for rows.Next() {
		var pu repository.PlayerUtility
		if err := rows.Scan(&pu.Name, &pu.Utility); err != nil {
			return nil, err
		}
		totals = append(totals, pu)
	}
	return totals, rows.Err()
}

func scanPlayerStats(rows *sql.Rows) ([]repository.PlayerStatRecord, error) {
	var records []repository.PlayerStatRecord
	for rows.Next() {
		var record repository.PlayerStatRecord
		if err := rows.Scan(
			&record.ID,
			&record.MatchID,
			&record.Name,
			&record.Kills,
			&record.Deaths,
			&record.Damage,
			&record.UtilityDamage,
			&record.HeadshotKills,
			&record.AceRounds,
			&record.QuadRounds,
			&record.TripleRounds,
			&record.MVPs,
			&record.ChickenKills,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
