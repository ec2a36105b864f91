package score

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "scramble:leaderboard"

// Service keeps a per-player count of completed matches in a redis sorted
// set. A nil *Service means the leaderboard is disabled; all methods are
// nil-safe.
type Service struct {
	rdb *redis.Client
}

type Entry struct {
	Player  string `json:"player"`
	Matches int64  `json:"matches"`
}

func NewService(rdb *redis.Client) *Service {
	if rdb == nil {
		return nil
	}
	return &Service{rdb: rdb}
}

// AddMatch credits player with one completed match.
func (s *Service) AddMatch(ctx context.Context, player string) error {
	if s == nil {
		return nil
	}
	return s.rdb.ZIncrBy(ctx, leaderboardKey, 1, player).Err()
}

// Top returns up to n players ordered by match count, best first.
func (s *Service) Top(ctx context.Context, n int64) ([]Entry, error) {
	if s == nil {
		return nil, nil
	}
	if n <= 0 {
		n = 10
	}

	rows, err := s.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		player, ok := row.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, Entry{Player: player, Matches: int64(row.Score)})
	}
	return entries, nil
}
