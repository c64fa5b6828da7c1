package repository

import "context"

// MapStatRepository persists per-match map outcomes.
type MapStatRepository interface {
	Insert(ctx context.Context, record MapStatRecord) error
	List(ctx context.Context, limit int) ([]MapStatRecord, error)
	Last(ctx context.Context) (MapStatRecord, error)
	WinRates(ctx context.Context) ([]MapWinRate, error)
	ExistsMatch(ctx context.Context, matchID string) (bool, error)
}

// PlayerStatRepository persists per-match player lines.
type PlayerStatRepository interface {
	Insert(ctx context.Context, record PlayerStatRecord) error
	List(ctx context.Context, limit int) ([]PlayerStatRecord, error)
	ListByMatch(ctx context.Context, matchID string) ([]PlayerStatRecord, error)
	KDTotals(ctx context.Context) ([]PlayerKD, error)
	ChickenTotals(ctx context.Context) ([]PlayerChicken, error)
	MultiKillTotals(ctx context.Context) ([]PlayerMultiKills, error)
	UtilityDamageTotals(ctx context.Context) ([]PlayerUtility, error)
}

// MatchWriter stores a match and its player lines atomically.
type MatchWriter interface {
	InsertMatch(ctx context.Context, match MapStatRecord, players []PlayerStatRecord) error
}

// GateLogRepository persists gate denial events.
type GateLogRepository interface {
	Insert(ctx context.Context, record GateLogRecord) error
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}
