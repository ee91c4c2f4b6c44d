package service

import (
	"tichu-service/internal/service/auth"
	"tichu-service/internal/service/match"
	"tichu-service/internal/service/tournament"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Tournament *tournament.Service
	Match      *match.Service
	Auth       *auth.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	tournaments := tournament.NewService(db)
	return &Container{
		Tournament: tournaments,
		Match:      match.NewService(db, rdb, tournaments),
		Auth:       auth.NewService(db, rdb),
	}
}
