package repository

// MapStatRecord is one played match on one map.
type MapStatRecord struct {
	ID        int64
	MatchID   string
	MapName   string
	DateTime  string
	Won       int
	CreatedAt int64
}

// PlayerStatRecord is one player's line for one match.
type PlayerStatRecord struct {
	ID            int64
	MatchID       string
	Name          string
	Kills         int
	Deaths        int
	Damage        int
	UtilityDamage int
	HeadshotKills int
	AceRounds     int
	QuadRounds    int
	TripleRounds  int
	MVPs          int
	ChickenKills  int
	CreatedAt     int64
}

// MapWinRate aggregates match outcomes per map.
type MapWinRate struct {
	MapName      string
	TotalMatches int64
	TotalWins    int64
}

// PlayerKD aggregates kills and deaths per player across all matches.
type PlayerKD struct {
	Name   string
	Kills  int64
	Deaths int64
}

// PlayerChicken aggregates chicken kills per player.
type PlayerChicken struct {
	Name    string
	Chicken int64
}

// PlayerMultiKills aggregates multi-kill rounds per player.
type PlayerMultiKills struct {
	Name    string
	Aces    int64
	Quads   int64
	Triples int64
}

// PlayerUtility aggregates utility damage per player.
type PlayerUtility struct {
	Name    string
	Utility int64
}

// GateLogRecord is one persisted gate denial.
type GateLogRecord struct {
	ID         int64
	Reason     string
	Method     string
	Path       string
	Address    string
	Country    string
	UserAgent  string
	OccurredAt int64
}
