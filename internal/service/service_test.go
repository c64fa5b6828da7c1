package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaugen/fragstats/internal/repository"
	"github.com/khaugen/fragstats/internal/security"
)

type fakeMapStats struct {
	records  []repository.MapStatRecord
	winRates []repository.MapWinRate
}

func (f *fakeMapStats) Insert(_ context.Context, record repository.MapStatRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeMapStats) List(_ context.Context, limit int) ([]repository.MapStatRecord, error) {
	if limit > len(f.records) {
		limit = len(f.records)
	}
	return f.records[:limit], nil
}

func (f *fakeMapStats) Last(_ context.Context) (repository.MapStatRecord, error) {
	if len(f.records) == 0 {
		return repository.MapStatRecord{}, repository.ErrNotFound
	}
	return f.records[len(f.records)-1], nil
}

func (f *fakeMapStats) WinRates(_ context.Context) ([]repository.MapWinRate, error) {
	return f.winRates, nil
}

func (f *fakeMapStats) ExistsMatch(_ context.Context, matchID string) (bool, error) {
	for _, r := range f.records {
		if r.MatchID == matchID {
			return true, nil
		}
	}
	return false, nil
}

type fakePlayerStats struct {
	records    []repository.PlayerStatRecord
	kd         []repository.PlayerKD
	chickens   []repository.PlayerChicken
	multiKills []repository.PlayerMultiKills
	utility    []repository.PlayerUtility
}

func (f *fakePlayerStats) Insert(_ context.Context, record repository.PlayerStatRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakePlayerStats) List(_ context.Context, limit int) ([]repository.PlayerStatRecord, error) {
	if limit > len(f.records) {
		limit = len(f.records)
	}
	return f.records[:limit], nil
}

func (f *fakePlayerStats) ListByMatch(_ context.Context, matchID string) ([]repository.PlayerStatRecord, error) {
	var out []repository.PlayerStatRecord
	for _, r := range f.records {
		if r.MatchID == matchID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakePlayerStats) KDTotals(_ context.Context) ([]repository.PlayerKD, error) {
	return f.kd, nil
}

func (f *fakePlayerStats) ChickenTotals(_ context.Context) ([]repository.PlayerChicken, error) {
	return f.chickens, nil
}

func (f *fakePlayerStats) MultiKillTotals(_ context.Context) ([]repository.PlayerMultiKills, error) {
	return f.multiKills, nil
}

func (f *fakePlayerStats) UtilityDamageTotals(_ context.Context) ([]repository.PlayerUtility, error) {
	return f.utility, nil
}

type fakeMatchWriter struct {
	maps     *fakeMapStats
	players  *fakePlayerStats
	failures int
}

func (f *fakeMatchWriter) InsertMatch(_ context.Context, match repository.MapStatRecord, players []repository.PlayerStatRecord) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("disk I/O error")
	}
	f.maps.records = append(f.maps.records, match)
	f.players.records = append(f.players.records, players...)
	return nil
}

type fakeGateLogs struct {
	records []repository.GateLogRecord
	deleted int64
}

func (f *fakeGateLogs) Insert(_ context.Context, record repository.GateLogRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeGateLogs) DeleteBefore(_ context.Context, cutoff int64) (int64, error) {
	var kept []repository.GateLogRecord
	for _, r := range f.records {
		if r.OccurredAt >= cutoff {
			kept = append(kept, r)
		} else {
			f.deleted++
		}
	}
	f.records = kept
	return f.deleted, nil
}

func TestMapWinRatesComputesRatio(t *testing.T) {
	maps := &fakeMapStats{winRates: []repository.MapWinRate{
		{MapName: "de_mirage", TotalMatches: 4, TotalWins: 3},
		{MapName: "de_nuke", TotalMatches: 3, TotalWins: 1},
		{MapName: "de_anubis", TotalMatches: 0, TotalWins: 0},
	}}
	svc := NewStatsService(maps, &fakePlayerStats{})

	rates, err := svc.MapWinRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 3)
	assert.Equal(t, 0.75, rates[0].WinRatio)
	assert.Equal(t, 0.333, rates[1].WinRatio)
	assert.Equal(t, 0.0, rates[2].WinRatio)
}

func TestKDRatiosHandleZeroDeaths(t *testing.T) {
	players := &fakePlayerStats{kd: []repository.PlayerKD{
		{Name: "kjell", Kills: 30, Deaths: 20},
		{Name: "arne", Kills: 12, Deaths: 0},
	}}
	svc := NewStatsService(&fakeMapStats{}, players)

	ratios, err := svc.KDRatios(context.Background())
	require.NoError(t, err)
	require.Len(t, ratios, 2)
	assert.Equal(t, 1.5, ratios[0].Ratio)
	assert.Equal(t, 12.0, ratios[1].Ratio)
	assert.Equal(t, int64(0), ratios[1].Deaths)
}

func TestLastMatchNotFound(t *testing.T) {
	svc := NewStatsService(&fakeMapStats{}, &fakePlayerStats{})

	_, err := svc.LastMatch(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLastMatchReturnsPlayers(t *testing.T) {
	maps := &fakeMapStats{records: []repository.MapStatRecord{
		{MatchID: "m1", MapName: "de_inferno", Won: 1},
		{MatchID: "m2", MapName: "de_mirage", Won: 0},
	}}
	players := &fakePlayerStats{records: []repository.PlayerStatRecord{
		{MatchID: "m1", Name: "kjell"},
		{MatchID: "m2", Name: "kjell", Kills: 22},
		{MatchID: "m2", Name: "arne", Kills: 17},
	}}
	svc := NewStatsService(maps, players)

	last, err := svc.LastMatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m2", last.Match.MatchID)
	assert.Equal(t, "de_mirage", last.Match.MapName)
	assert.False(t, last.Match.Won)
	require.Len(t, last.Players, 2)
	assert.Equal(t, 22, last.Players[0].Kills)
}

func TestUploadStoresMatchAndPlayers(t *testing.T) {
	maps := &fakeMapStats{}
	players := &fakePlayerStats{}
	svc := NewMatchService(maps, &fakeMatchWriter{maps: maps, players: players}, nil)

	result, err := svc.Upload(context.Background(), MatchUpload{
		MatchID:  "m1",
		MapName:  "de_dust2",
		DateTime: "2025-06-01 20:00",
		Won:      true,
		Players: []PlayerUpload{
			{Name: "kjell", Kills: 25, Deaths: 14, ChickenKills: 2},
			{Name: "arne", Kills: 18, Deaths: 20},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", result.MatchID)
	assert.Equal(t, 2, result.Players)

	require.Len(t, maps.records, 1)
	assert.Equal(t, 1, maps.records[0].Won)
	require.Len(t, players.records, 2)
	assert.Equal(t, "m1", players.records[0].MatchID)
	assert.Equal(t, 2, players.records[0].ChickenKills)
}

func TestUploadGeneratesMatchID(t *testing.T) {
	maps := &fakeMapStats{}
	svc := NewMatchService(maps, &fakeMatchWriter{maps: maps, players: &fakePlayerStats{}}, nil)

	result, err := svc.Upload(context.Background(), MatchUpload{
		MapName: "de_dust2",
		Players: []PlayerUpload{{Name: "kjell"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.MatchID)
}

func TestUploadRejectsDuplicate(t *testing.T) {
	maps := &fakeMapStats{records: []repository.MapStatRecord{{MatchID: "m1"}}}
	svc := NewMatchService(maps, &fakeMatchWriter{maps: maps, players: &fakePlayerStats{}}, nil)

	_, err := svc.Upload(context.Background(), MatchUpload{
		MatchID: "m1",
		MapName: "de_dust2",
		Players: []PlayerUpload{{Name: "kjell"}},
	})
	assert.ErrorIs(t, err, ErrDuplicateMatch)
}

func TestUploadValidation(t *testing.T) {
	maps := &fakeMapStats{}
	svc := NewMatchService(maps, &fakeMatchWriter{maps: maps, players: &fakePlayerStats{}}, nil)

	_, err := svc.Upload(context.Background(), MatchUpload{Players: []PlayerUpload{{Name: "kjell"}}})
	assert.ErrorIs(t, err, ErrInvalidUpload)

	_, err = svc.Upload(context.Background(), MatchUpload{MapName: "de_dust2"})
	assert.ErrorIs(t, err, ErrInvalidUpload)

	_, err = svc.Upload(context.Background(), MatchUpload{
		MapName: "de_dust2",
		Players: []PlayerUpload{{Name: "  "}},
	})
	assert.ErrorIs(t, err, ErrInvalidUpload)

	_, err = svc.Upload(context.Background(), MatchUpload{
		MapName: "de_dust2",
		Players: []PlayerUpload{{Name: "kjell", Kills: -1}},
	})
	assert.ErrorIs(t, err, ErrInvalidUpload)

	_, err = svc.Upload(context.Background(), MatchUpload{
		MapName: "de_dust2",
		Players: []PlayerUpload{{Name: "kjell"}, {Name: "kjell "}},
	})
	assert.ErrorIs(t, err, ErrInvalidUpload)
}

func TestUploadRetriesAfterFailedWrite(t *testing.T) {
	maps := &fakeMapStats{}
	svc := NewMatchService(maps, &fakeMatchWriter{maps: maps, players: &fakePlayerStats{}, failures: 1}, nil)

	upload := MatchUpload{
		MatchID: "m1",
		MapName: "de_dust2",
		Players: []PlayerUpload{{Name: "kjell"}},
	}

	_, err := svc.Upload(context.Background(), upload)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateMatch)

	// A failed write stores nothing, so the same match ID goes through on retry.
	result, err := svc.Upload(context.Background(), upload)
	require.NoError(t, err)
	assert.Equal(t, "m1", result.MatchID)
	require.Len(t, maps.records, 1)
}

func TestMultiKillsAggregates(t *testing.T) {
	players := &fakePlayerStats{multiKills: []repository.PlayerMultiKills{
		{Name: "kjell", Aces: 2, Quads: 5, Triples: 11},
		{Name: "arne", Aces: 0, Quads: 1, Triples: 4},
	}}
	svc := NewStatsService(&fakeMapStats{}, players)

	totals, err := svc.MultiKills(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, int64(2), totals[0].Aces)
	assert.Equal(t, int64(4), totals[1].Triples)
}

func TestUtilityDamageAggregates(t *testing.T) {
	players := &fakePlayerStats{utility: []repository.PlayerUtility{
		{Name: "kjell", Utility: 1420},
	}}
	svc := NewStatsService(&fakeMapStats{}, players)

	totals, err := svc.UtilityDamage(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(1420), totals[0].Utility)
}

func TestGateLogServiceRecordAndCleanup(t *testing.T) {
	repo := &fakeGateLogs{}
	svc := NewGateLogService(repo, nil)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	svc.Record(context.Background(), security.Event{
		Reason:  "invalid_credential",
		Method:  "GET",
		Path:    "/api/last-match",
		Address: "203.0.113.7",
	})
	require.Len(t, repo.records, 1)
	assert.Equal(t, now.Unix(), repo.records[0].OccurredAt)

	// An event from well before retention gets pruned.
	svc.Record(context.Background(), security.Event{
		Reason:   "rate_limited",
		Occurred: now.Add(-48 * time.Hour),
	})
	require.Len(t, repo.records, 2)

	deleted, err := svc.CleanupOldLogs(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	require.Len(t, repo.records, 1)
	assert.Equal(t, "invalid_credential", repo.records[0].Reason)
}
