package service

import (
	"context"
	"errors"
	"math"

	"github.com/khaugen/fragstats/internal/repository"
)

// MatchSummary is one played match as returned by the API.
type MatchSummary struct {
	MatchID  string `json:"match_id"`
	MapName  string `json:"map_name"`
	DateTime string `json:"date_time"`
	Won      bool   `json:"won"`
}

// PlayerLine is one player's scoreboard line for one match.
type PlayerLine struct {
	MatchID       string `json:"match_id"`
	Name          string `json:"name"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	Damage        int    `json:"damage"`
	UtilityDamage int    `json:"utility_damage"`
	HeadshotKills int    `json:"headshot_kills"`
	AceRounds     int    `json:"ace_rounds"`
	QuadRounds    int    `json:"quad_rounds"`
	TripleRounds  int    `json:"triple_rounds"`
	MVPs          int    `json:"mvps"`
	ChickenKills  int    `json:"chicken_kills"`
}

// MapWinRate is the aggregated outcome for one map.
type MapWinRate struct {
	MapName      string  `json:"map_name"`
	TotalMatches int64   `json:"total_matches"`
	TotalWins    int64   `json:"total_wins"`
	WinRatio     float64 `json:"win_ratio"`
}

// KDRatio is a player's all-time kill/death summary.
type KDRatio struct {
	Name   string  `json:"name"`
	Kills  int64   `json:"kills"`
	Deaths int64   `json:"deaths"`
	Ratio  float64 `json:"ratio"`
}

// ChickenKills is a player's all-time chicken tally.
type ChickenKills struct {
	Name    string `json:"name"`
	Chicken int64  `json:"chicken"`
}

// MultiKills is a player's all-time multi-kill round tally.
type MultiKills struct {
	Name    string `json:"name"`
	Aces    int64  `json:"aces"`
	Quads   int64  `json:"quads"`
	Triples int64  `json:"triples"`
}

// UtilityDamage is a player's all-time utility damage total.
type UtilityDamage struct {
	Name    string `json:"name"`
	Utility int64  `json:"utility_damage"`
}

// LastMatch is the most recent match with its player lines.
type LastMatch struct {
	Match   MatchSummary `json:"match"`
	Players []PlayerLine `json:"players"`
}

// StatsService serves the read side of the stats API.
type StatsService interface {
	PlayerStats(ctx context.Context, limit int) ([]PlayerLine, error)
	MapStats(ctx context.Context, limit int) ([]MatchSummary, error)
	MapWinRates(ctx context.Context) ([]MapWinRate, error)
	KDRatios(ctx context.Context) ([]KDRatio, error)
	ChickenKills(ctx context.Context) ([]ChickenKills, error)
	MultiKills(ctx context.Context) ([]MultiKills, error)
	UtilityDamage(ctx context.Context) ([]UtilityDamage, error)
	LastMatch(ctx context.Context) (LastMatch, error)
}

type statsService struct {
	maps    repository.MapStatRepository
	players repository.PlayerStatRepository
}

// NewStatsService constructs the read-side stats service.
func NewStatsService(maps repository.MapStatRepository, players repository.PlayerStatRepository) StatsService {
	return &statsService{maps: maps, players: players}
}

func (s *statsService) PlayerStats(ctx context.Context, limit int) ([]PlayerLine, error) {
	records, err := s.players.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]PlayerLine, 0, len(records))
	for _, rec := range records {
		out = append(out, toPlayerLine(rec))
	}
	return out, nil
}

func (s *statsService) MapStats(ctx context.Context, limit int) ([]MatchSummary, error) {
	records, err := s.maps.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]MatchSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, toMatchSummary(rec))
	}
	return out, nil
}

func (s *statsService) MapWinRates(ctx context.Context) ([]MapWinRate, error) {
	rates, err := s.maps.WinRates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MapWinRate, 0, len(rates))
	for _, rate := range rates {
		ratio := 0.0
		if rate.TotalMatches > 0 {
			ratio = roundTo(float64(rate.TotalWins)/float64(rate.TotalMatches), 3)
		}
		out = append(out, MapWinRate{
			MapName:      rate.MapName,
			TotalMatches: rate.TotalMatches,
			TotalWins:    rate.TotalWins,
			WinRatio:     ratio,
		})
	}
	return out, nil
}

func (s *statsService) KDRatios(ctx context.Context) ([]KDRatio, error) {
	totals, err := s.players.KDTotals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]KDRatio, 0, len(totals))
	for _, kd := range totals {
		// A flawless run divides by one death rather than blowing up.
		deaths := kd.Deaths
		if deaths == 0 {
			deaths = 1
		}
		out = append(out, KDRatio{
			Name:   kd.Name,
			Kills:  kd.Kills,
			Deaths: kd.Deaths,
			Ratio:  roundTo(float64(kd.Kills)/float64(deaths), 2),
		})
	}
	return out, nil
}

func (s *statsService) ChickenKills(ctx context.Context) ([]ChickenKills, error) {
	totals, err := s.players.ChickenTotals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ChickenKills, 0, len(totals))
	for _, pc := range totals {
		out = append(out, ChickenKills{Name: pc.Name, Chicken: pc.Chicken})
	}
	return out, nil
}

func (s *statsService) MultiKills(ctx context.Context) ([]MultiKills, error) {
	totals, err := s.players.MultiKillTotals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MultiKills, 0, len(totals))
	for _, mk := range totals {
		out = append(out, MultiKills{Name: mk.Name, Aces: mk.Aces, Quads: mk.Quads, Triples: mk.Triples})
	}
	return out, nil
}

func (s *statsService) UtilityDamage(ctx context.Context) ([]UtilityDamage, error) {
	totals, err := s.players.UtilityDamageTotals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UtilityDamage, 0, len(totals))
	for _, pu := range totals {
		out = append(out, UtilityDamage{Name: pu.Name, Utility: pu.Utility})
	}
	return out, nil
}

func (s *statsService) LastMatch(ctx context.Context) (LastMatch, error) {
	match, err := s.maps.Last(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LastMatch{}, ErrNotFound
		}
		return LastMatch{}, err
	}
	records, err := s.players.ListByMatch(ctx, match.MatchID)
	if err != nil {
		return LastMatch{}, err
	}
	players := make([]PlayerLine, 0, len(records))
	for _, rec := range records {
		players = append(players, toPlayerLine(rec))
	}
	return LastMatch{Match: toMatchSummary(match), Players: players}, nil
}

func toMatchSummary(rec repository.MapStatRecord) MatchSummary {
	return MatchSummary{
		MatchID:  rec.MatchID,
		MapName:  rec.MapName,
		DateTime: rec.DateTime,
		Won:      rec.Won != 0,
	}
}

func toPlayerLine(rec repository.PlayerStatRecord) PlayerLine {
	return PlayerLine{
		MatchID:       rec.MatchID,
		Name:          rec.Name,
		Kills:         rec.Kills,
		Deaths:        rec.Deaths,
		Damage:        rec.Damage,
		UtilityDamage: rec.UtilityDamage,
		HeadshotKills: rec.HeadshotKills,
		AceRounds:     rec.AceRounds,
		QuadRounds:    rec.QuadRounds,
		TripleRounds:  rec.TripleRounds,
		MVPs:          rec.MVPs,
		ChickenKills:  rec.ChickenKills,
	}
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
