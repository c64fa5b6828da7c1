package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khaugen/fragstats/internal/repository"
)

// MatchUpload is one match as submitted by the demo parser.
type MatchUpload struct {
	MatchID  string         `json:"match_id"`
	MapName  string         `json:"map_name"`
	DateTime string         `json:"date_time"`
	Won      bool           `json:"won"`
	Players  []PlayerUpload `json:"players"`
}

// PlayerUpload is one player's scoreboard line in an upload.
type PlayerUpload struct {
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

// UploadResult reports the stored match identifier.
type UploadResult struct {
	MatchID string `json:"match_id"`
	Players int    `json:"players"`
}

// MatchService handles match ingestion.
type MatchService interface {
	Upload(ctx context.Context, upload MatchUpload) (UploadResult, error)
}

type matchService struct {
	maps   repository.MapStatRepository
	writer repository.MatchWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewMatchService constructs the ingestion service.
func NewMatchService(maps repository.MapStatRepository, writer repository.MatchWriter, logger *slog.Logger) MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &matchService{maps: maps, writer: writer, logger: logger, now: time.Now}
}

func (s *matchService) Upload(ctx context.Context, upload MatchUpload) (UploadResult, error) {
	if err := validateUpload(upload); err != nil {
		return UploadResult{}, err
	}

	matchID := strings.TrimSpace(upload.MatchID)
	if matchID == "" {
		matchID = uuid.NewString()
	}

	exists, err := s.maps.ExistsMatch(ctx, matchID)
	if err != nil {
		return UploadResult{}, fmt.Errorf("check existing match: %w", err)
	}
	if exists {
		return UploadResult{}, ErrDuplicateMatch
	}

	now := s.now().Unix()
	won := 0
	if upload.Won {
		won = 1
	}
	match := repository.MapStatRecord{
		MatchID:   matchID,
		MapName:   strings.TrimSpace(upload.MapName),
		DateTime:  strings.TrimSpace(upload.DateTime),
		Won:       won,
		CreatedAt: now,
	}
	players := make([]repository.PlayerStatRecord, 0, len(upload.Players))
	for _, p := range upload.Players {
		players = append(players, repository.PlayerStatRecord{
			MatchID:       matchID,
			Name:          strings.TrimSpace(p.Name),
			Kills:         p.Kills,
			Deaths:        p.Deaths,
			Damage:        p.Damage,
			UtilityDamage: p.UtilityDamage,
			HeadshotKills: p.HeadshotKills,
			AceRounds:     p.AceRounds,
			QuadRounds:    p.QuadRounds,
			TripleRounds:  p.TripleRounds,
			MVPs:          p.MVPs,
			ChickenKills:  p.ChickenKills,
			CreatedAt:     now,
		})
	}

	// The writer commits the match row and every player line together. A
	// failed upload leaves no trace, so the same match ID can be retried.
	if err := s.writer.InsertMatch(ctx, match, players); err != nil {
		return UploadResult{}, fmt.Errorf("store match: %w", err)
	}

	s.logger.Info("match uploaded",
		slog.String("match_id", matchID),
		slog.String("map", upload.MapName),
		slog.Int("players", len(upload.Players)))

	return UploadResult{MatchID: matchID, Players: len(upload.Players)}, nil
}

func validateUpload(upload MatchUpload) error {
	if strings.TrimSpace(upload.MapName) == "" {
		return fmt.Errorf("%w: map_name is required", ErrInvalidUpload)
	}
	if len(upload.Players) == 0 {
		return fmt.Errorf("%w: at least one player line is required", ErrInvalidUpload)
	}
	seen := make(map[string]struct{}, len(upload.Players))
	for i, p := range upload.Players {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("%w: players[%d].name is required", ErrInvalidUpload, i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: players[%d] repeats name %q", ErrInvalidUpload, i, name)
		}
		seen[name] = struct{}{}
		if p.Kills < 0 || p.Deaths < 0 || p.Damage < 0 {
			return fmt.Errorf("%w: players[%d] has negative counters", ErrInvalidUpload, i)
		}
	}
	return nil
}
