package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrGameNotFound = errors.New("game not found")

type GameRepository interface {
	GetByID(ctx context.Context, gameID string) (*Game, error)
	List(ctx context.Context) ([]Game, error)
	Create(ctx context.Context, g *Game) error
}

type GameRepositoryImpl struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepositoryImpl {
	return &GameRepositoryImpl{db: db}
}

func (r *GameRepositoryImpl) GetByID(ctx context.Context, gameID string) (*Game, error) {
	var g Game
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &g, nil
}

func (r *GameRepositoryImpl) List(ctx context.Context) ([]Game, error) {
	var games []Game
	if err := r.db.WithContext(ctx).Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (r *GameRepositoryImpl) Create(ctx context.Context, g *Game) error {
	if g.GameID == "" {
		g.GameID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}
