package bonus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrBonusNotFound         = errors.New("bonus not found")
	ErrBonusNotActive        = errors.New("bonus is not active")
	ErrBonusNotStarted       = errors.New("bonus validity window has not started")
	ErrBonusExpired          = errors.New("bonus validity window has passed")
	ErrSegmentMismatch       = errors.New("player segment not eligible for bonus")
	ErrClaimNotFound         = errors.New("bonus claim not found")
	ErrClaimNotActive        = errors.New("bonus claim is not active")
	ErrInvalidTransition     = errors.New("invalid claim status transition")
	ErrInvalidValidity       = errors.New("valid_from must not be after valid_to")
	ErrTargetSegmentRequired = errors.New("target segment required for non-global bonus")
	ErrWageringEventNotFound = errors.New("wagering event not found")
	ErrDuplicateBet          = errors.New("bet already counted for wagering")
)

type BonusRepository interface {
	GetByID(ctx context.Context, bonusID string) (*Bonus, error)
	List(ctx context.Context) ([]Bonus, error)
	ListActive(ctx context.Context, at time.Time) ([]Bonus, error)
	Create(ctx context.Context, b *Bonus) error
	SetActive(ctx context.Context, bonusID string, active bool) error
}

type BonusClaimRepository interface {
	GetByID(ctx context.Context, claimID string) (*BonusClaim, error)
	GetForUpdate(ctx context.Context, tx *gorm.DB, claimID string) (*BonusClaim, error)
	GetActiveByPlayer(ctx context.Context, playerID string) (*BonusClaim, error)
	ListByPlayer(ctx context.Context, playerID string) ([]BonusClaim, error)
	ListOverdue(ctx context.Context, at time.Time) ([]BonusClaim, error)
	Create(ctx context.Context, tx *gorm.DB, claim *BonusClaim) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, claimID string, status string) error
	UpdateWageringProgress(ctx context.Context, tx *gorm.DB, claimID string, newProgress decimal.Decimal) error
	GetEventByBetID(ctx context.Context, betID string) (*WageringEvent, error)
	CreateWageringEvent(ctx context.Context, tx *gorm.DB, event *WageringEvent) error
}

type BonusRepositoryImpl struct {
	db *gorm.DB
}

func NewBonusRepository(db *gorm.DB) *BonusRepositoryImpl {
	return &BonusRepositoryImpl{db: db}
}

func (r *BonusRepositoryImpl) GetByID(ctx context.Context, bonusID string) (*Bonus, error) {
	var b Bonus
	err := r.db.WithContext(ctx).
		Where("bonus_id = ?", bonusID).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBonusNotFound
		}
		return nil, fmt.Errorf("failed to get bonus: %w", err)
	}
	return &b, nil
}

func (r *BonusRepositoryImpl) List(ctx context.Context) ([]Bonus, error) {
	var bonuses []Bonus
	if err := r.db.WithContext(ctx).Find(&bonuses).Error; err != nil {
		return nil, fmt.Errorf("failed to list bonuses: %w", err)
	}
	return bonuses, nil
}

func (r *BonusRepositoryImpl) ListActive(ctx context.Context, at time.Time) ([]Bonus, error) {
	var bonuses []Bonus
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND valid_from <= ? AND valid_to >= ?", true, at, at).
		Find(&bonuses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active bonuses: %w", err)
	}
	return bonuses, nil
}

func (r *BonusRepositoryImpl) Create(ctx context.Context, b *Bonus) error {
	if b.ValidFrom.After(b.ValidTo) {
		return ErrInvalidValidity
	}
	if !b.IsGlobal && b.TargetSegment == "" {
		return ErrTargetSegmentRequired
	}
	if b.BonusID == "" {
		b.BonusID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create bonus: %w", err)
	}
	return nil
}

func (r *BonusRepositoryImpl) SetActive(ctx context.Context, bonusID string, active bool) error {
	result := r.db.WithContext(ctx).Model(&Bonus{}).
		Where("bonus_id = ?", bonusID).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update bonus: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBonusNotFound
	}
	return nil
}

type BonusClaimRepositoryImpl struct {
	db *gorm.DB
}

func NewBonusClaimRepository(db *gorm.DB) *BonusClaimRepositoryImpl {
	return &BonusClaimRepositoryImpl{db: db}
}

func (r *BonusClaimRepositoryImpl) GetByID(ctx context.Context, claimID string) (*BonusClaim, error) {
	var claim BonusClaim
	err := r.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		First(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return &claim, nil
}

func (r *BonusClaimRepositoryImpl) GetForUpdate(ctx context.Context, tx *gorm.DB, claimID string) (*BonusClaim, error) {
	var claim BonusClaim
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("claim_id = ?", claimID).
		First(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to lock claim: %w", err)
	}
	return &claim, nil
}

func (r *BonusClaimRepositoryImpl) GetActiveByPlayer(ctx context.Context, playerID string) (*BonusClaim, error) {
	var claim BonusClaim
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND status = ?", playerID, ClaimStatusActive).
		First(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get active claim: %w", err)
	}
	return &claim, nil
}

func (r *BonusClaimRepositoryImpl) ListByPlayer(ctx context.Context, playerID string) ([]BonusClaim, error) {
	var claims []BonusClaim
	err := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("claim_date DESC").
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return claims, nil
}

func (r *BonusClaimRepositoryImpl) ListOverdue(ctx context.Context, at time.Time) ([]BonusClaim, error) {
	var claims []BonusClaim
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expiry_date < ?", []string{ClaimStatusClaimed, ClaimStatusActive}, at).
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue claims: %w", err)
	}
	return claims, nil
}

func (r *BonusClaimRepositoryImpl) Create(ctx context.Context, tx *gorm.DB, claim *BonusClaim) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	if claim.ClaimID == "" {
		claim.ClaimID = uuid.New().String()
	}
	if err := db.WithContext(ctx).Create(claim).Error; err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

func (r *BonusClaimRepositoryImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, claimID string, status string) error {
	result := tx.WithContext(ctx).
		Model(&BonusClaim{}).
		Where("claim_id = ?", claimID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update claim status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrClaimNotFound
	}
	return nil
}

func (r *BonusClaimRepositoryImpl) UpdateWageringProgress(ctx context.Context, tx *gorm.DB, claimID string, newProgress decimal.Decimal) error {
	result := tx.WithContext(ctx).
		Model(&BonusClaim{}).
		Where("claim_id = ?", claimID).
		Updates(map[string]interface{}{
			"wagering_progress": newProgress,
			"updated_at":        gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update wagering progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrClaimNotFound
	}
	return nil
}

func (r *BonusClaimRepositoryImpl) GetEventByBetID(ctx context.Context, betID string) (*WageringEvent, error) {
	var event WageringEvent
	err := r.db.WithContext(ctx).
		Where("bet_id = ?", betID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWageringEventNotFound
		}
		return nil, fmt.Errorf("failed to get wagering event: %w", err)
	}
	return &event, nil
}

// CreateWageringEvent inserts the bet record. The unique bet_id column is
// the idempotency guard: losing a race to another replay of the same bet
// surfaces as ErrDuplicateBet, not an infrastructure failure.
func (r *BonusClaimRepositoryImpl) CreateWageringEvent(ctx context.Context, tx *gorm.DB, event *WageringEvent) error {
	if err := tx.WithContext(ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateBet
		}
		return fmt.Errorf("failed to create wagering event: %w", err)
	}
	return nil
}
