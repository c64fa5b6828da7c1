package sqlite

import (
	"context"
	"database/sql"

	"github.com/khaugen/fragstats/internal/repository"
)

type gateLogRepo struct {
	db *sql.DB
}

func (r *gateLogRepo) Insert(ctx context.Context, record repository.GateLogRecord) error {
	const stmt = `INSERT INTO gate_logs(reason, method, path, address, country, user_agent, occurred_at)
	              VALUES(?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, stmt,
		record.Reason,
		record.Method,
		record.Path,
		record.Address,
		record.Country,
		record.UserAgent,
		record.OccurredAt,
	)
	return err
}

func (r *gateLogRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	const stmt = `DELETE FROM gate_logs WHERE occurred_at < ?`
	result, err := r.db.ExecContext(ctx, stmt, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
