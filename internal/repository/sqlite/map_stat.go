package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/khaugen/fragstats/internal/repository"
)

type mapStatRepo struct {
	db *sql.DB
}

const insertMapStatStmt = `INSERT INTO map_stats(match_id, map_name, date_time, won, created_at)
	VALUES(?, ?, ?, ?, ?)`

func (r *mapStatRepo) Insert(ctx context.Context, record repository.MapStatRecord) error {
	_, err := r.db.ExecContext(ctx, insertMapStatStmt,
		record.MatchID,
		record.MapName,
		record.DateTime,
		record.Won,
		record.CreatedAt,
	)
	return err
}

func (r *mapStatRepo) List(ctx context.Context, limit int) ([]repository.MapStatRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	const query = `SELECT id, match_id, map_name, date_time, won, created_at
	               FROM map_stats
	               ORDER BY date_time DESC
	               LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]repository.MapStatRecord, 0, limit)
	for rows.Next() {
		var record repository.MapStatRecord
		if err := rows.Scan(
			&record.ID,
			&record.MatchID,
			&record.MapName,
			&record.DateTime,
			&record.Won,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *mapStatRepo) Last(ctx context.Context) (repository.MapStatRecord, error) {
	const query = `SELECT id, match_id, map_name, date_time, won, created_at
	               FROM map_stats
	               ORDER BY date_time DESC
	               LIMIT 1`
	var record repository.MapStatRecord
	err := r.db.QueryRowContext(ctx, query).Scan(
		&record.ID,
		&record.MatchID,
		&record.MapName,
		&record.DateTime,
		&record.Won,
		&record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.MapStatRecord{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.MapStatRecord{}, err
	}
	return record, nil
}

func (r *mapStatRepo) WinRates(ctx context.Context) ([]repository.MapWinRate, error) {
	const query = `SELECT map_name, COUNT(*) AS total, COALESCE(SUM(won), 0) AS wins
	               FROM map_stats
	               GROUP BY map_name
	               ORDER BY total DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []repository.MapWinRate
	for rows.Next() {
		var rate repository.MapWinRate
		if err := rows.Scan(&rate.MapName, &rate.TotalMatches, &rate.TotalWins); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

func (r *mapStatRepo) ExistsMatch(ctx context.Context, matchID string) (bool, error) {
	const query = `SELECT 1 FROM map_stats WHERE match_id = ? LIMIT 1`
	var one int
	err := r.db.QueryRowContext(ctx, query, matchID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
