package game

import (
	"context"
	"time"

	"scramble-service/internal/board"
	"scramble-service/internal/model"
	"scramble-service/internal/service/history"
	"scramble-service/internal/service/score"
	"scramble-service/pkg/logger"

	"go.uber.org/zap"
)

// Service owns the single long-lived board and forwards the four board
// operations to it unchanged. Its only addition is fanning finalized
// matches out to the history and leaderboard stores, both optional.
type Service struct {
	board   *board.Board
	history *history.Service
	score   *score.Service
}

func NewService(b *board.Board, h *history.Service, s *score.Service) *Service {
	svc := &Service{board: b, history: h, score: s}
	b.OnMatch(svc.handleMatch)
	return svc
}

func (s *Service) Board() *board.Board { return s.board }

func (s *Service) Look(player string) (string, error) {
	return s.board.Look(player)
}

func (s *Service) Flip(ctx context.Context, player string, row, col int) (string, error) {
	return s.board.Flip(ctx, player, row, col)
}

func (s *Service) Watch(ctx context.Context, player string) (string, error) {
	return s.board.Watch(ctx, player)
}

func (s *Service) Map(ctx context.Context, player string, transform board.Transform) (string, error) {
	return s.board.Map(ctx, player, transform)
}

// handleMatch runs outside the board lock, once per finalized pair.
func (s *Service) handleMatch(m board.Match) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.history.Record(ctx, model.MatchRecord{
		Player:    m.Player,
		Label:     m.Label,
		FirstRow:  m.First.Row,
		FirstCol:  m.First.Col,
		SecondRow: m.Second.Row,
		SecondCol: m.Second.Col,
	}); err != nil {
		logger.Log.Error("failed to record match",
			zap.String("player", m.Player),
			zap.String("label", m.Label),
			zap.Error(err),
		)
	}

	if err := s.score.AddMatch(ctx, m.Player); err != nil {
		logger.Log.Error("failed to update leaderboard",
			zap.String("player", m.Player),
			zap.Error(err),
		)
	}
}
