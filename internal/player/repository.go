package player

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidSegment = errors.New("invalid player segment")
	ErrNegativeAmount = errors.New("amount must be positive")
	ErrOptimisticLock = errors.New("optimistic lock error")
)

type PlayerRepository interface {
	GetByID(ctx context.Context, playerID string) (*Player, error)
	List(ctx context.Context) ([]Player, error)
	ListBySegment(ctx context.Context, segment string) ([]Player, error)
	Create(ctx context.Context, tx *gorm.DB, p *Player) error
	RecordLogin(ctx context.Context, playerID string, at time.Time) error
	AddDeposit(ctx context.Context, playerID string, amount decimal.Decimal) error
	AddWithdrawal(ctx context.Context, playerID string, amount decimal.Decimal) error
}

type PlayerRepositoryImpl struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) *PlayerRepositoryImpl {
	return &PlayerRepositoryImpl{db: db}
}

func (r *PlayerRepositoryImpl) GetByID(ctx context.Context, playerID string) (*Player, error) {
	var p Player
	err := r.db.WithContext(ctx).Where("player_id = ?", playerID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PlayerRepositoryImpl) List(ctx context.Context) ([]Player, error) {
	var players []Player
	if err := r.db.WithContext(ctx).Find(&players).Error; err != nil {
		return nil, err
	}
	return players, nil
}

func (r *PlayerRepositoryImpl) ListBySegment(ctx context.Context, segment string) ([]Player, error) {
	var players []Player
	err := r.db.WithContext(ctx).Where("segment = ?", segment).Find(&players).Error
	if err != nil {
		return nil, err
	}
	return players, nil
}

// Create inserts the player inside the caller's transaction when tx is
// non-nil, so registration and its outbox row commit atomically.
func (r *PlayerRepositoryImpl) Create(ctx context.Context, tx *gorm.DB, p *Player) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	if p.PlayerID == "" {
		p.PlayerID = uuid.New().String()
	}
	return db.WithContext(ctx).Create(p).Error
}

func (r *PlayerRepositoryImpl) RecordLogin(ctx context.Context, playerID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&Player{}).
		Where("player_id = ?", playerID).
		Updates(map[string]interface{}{
			"last_login_date": at,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (r *PlayerRepositoryImpl) AddDeposit(ctx context.Context, playerID string, amount decimal.Decimal) error {
	return r.addToTotal(ctx, playerID, amount, "total_deposits")
}

func (r *PlayerRepositoryImpl) AddWithdrawal(ctx context.Context, playerID string, amount decimal.Decimal) error {
	return r.addToTotal(ctx, playerID, amount, "total_withdrawals")
}

func (r *PlayerRepositoryImpl) addToTotal(ctx context.Context, playerID string, amount decimal.Decimal, column string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNegativeAmount
	}
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var p Player
		if err := dbtx.Where("player_id = ?", playerID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}

		result := dbtx.Model(&Player{}).Where("player_id = ? AND version = ?", p.PlayerID, p.Version).
			Updates(map[string]interface{}{
				column:       gorm.Expr(column+" + ?", amount),
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOptimisticLock
		}
		return nil
	})
}
