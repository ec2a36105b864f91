package service

import (
	"scramble-service/internal/board"
	"scramble-service/internal/service/game"
	"scramble-service/internal/service/history"
	"scramble-service/internal/service/score"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Game    *game.Service
	History *history.Service
	Score   *score.Service
}

// NewContainer wires the services around the shared board. db and rdb may
// be nil; the corresponding services stay disabled.
func NewContainer(b *board.Board, db *gorm.DB, rdb *redis.Client) *Container {
	h := history.NewService(db)
	s := score.NewService(rdb)
	return &Container{
		Game:    game.NewService(b, h, s),
		History: h,
		Score:   s,
	}
}
