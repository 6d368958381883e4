package bonus

import (
	"time"

	"github.com/shopspring/decimal"
)

type Bonus struct {
	BonusID            string          `gorm:"column:bonus_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	BonusType          string          `gorm:"column:bonus_type;type:varchar(50);not null"` // "deposit_match", "free_spins", "cashback"
	Value              decimal.Decimal `gorm:"column:value;type:numeric(20,2);not null"`
	WageringMultiplier decimal.Decimal `gorm:"column:wagering_multiplier;type:numeric(10,2);not null;default:1"`
	ValidFrom          time.Time       `gorm:"column:valid_from;not null"`
	ValidTo            time.Time       `gorm:"column:valid_to;not null"`
	IsActive           bool            `gorm:"column:is_active;not null;default:true"`
	IsGlobal           bool            `gorm:"column:is_global;not null;default:false"`
	TargetSegment      string          `gorm:"column:target_segment;type:varchar(20)"`
	ExpiryDays         int             `gorm:"column:expiry_days;not null;default:30"`
	CreatedAt          time.Time       `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;not null;default:now()"`
}

// BonusClaim references its player and bonus by id only; claims are closed,
// never deleted.
type BonusClaim struct {
	ClaimID             string          `gorm:"column:claim_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	PlayerID            string          `gorm:"column:player_id;type:uuid;not null"`
	BonusID             string          `gorm:"column:bonus_id;type:uuid;not null"`
	Status              string          `gorm:"column:status;type:varchar(20);not null;default:'claimed'"`
	ClaimDate           time.Time       `gorm:"column:claim_date;not null"`
	WageringRequirement decimal.Decimal `gorm:"column:wagering_requirement;type:numeric(20,2);not null"`
	WageringProgress    decimal.Decimal `gorm:"column:wagering_progress;type:numeric(20,2);not null;default:0"`
	ExpiryDate          time.Time       `gorm:"column:expiry_date;not null"`
	CreatedAt           time.Time       `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;not null;default:now()"`
}

// WageringEvent records each counted bet, keyed unique by bet id so replays
// of the same bet never count twice.
type WageringEvent struct {
	EventID                string          `gorm:"column:event_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	ClaimID                string          `gorm:"column:claim_id;type:uuid;not null"`
	BetID                  string          `gorm:"column:bet_id;type:varchar(255);not null;unique"`
	GameID                 string          `gorm:"column:game_id;type:uuid;not null"`
	BetAmount              decimal.Decimal `gorm:"column:bet_amount;type:numeric(20,2);not null"`
	ContributionPercentage decimal.Decimal `gorm:"column:contribution_percentage;type:numeric(5,4);not null"`
	WageringContribution   decimal.Decimal `gorm:"column:wagering_contribution;type:numeric(20,2);not null"`
	CreatedAt              time.Time       `gorm:"column:created_at;not null;default:now()"`
}

type BetEvent struct {
	BetID     string          `json:"bet_id"`
	PlayerID  string          `json:"player_id"`
	GameID    string          `json:"game_id"`
	BetAmount decimal.Decimal `json:"bet_amount"`
	Timestamp time.Time       `json:"timestamp"`
}

type WageringProgress struct {
	ClaimID             string          `json:"claim_id"`
	WageringRequirement decimal.Decimal `json:"wagering_requirement"`
	WageringProgress    decimal.Decimal `json:"wagering_progress"`
	PercentageComplete  float64         `json:"percentage_complete"`
	Completed           bool            `json:"completed"`
}

const (
	BonusTypeDepositMatch = "deposit_match"
	BonusTypeFreeSpins    = "free_spins"
	BonusTypeCashback     = "cashback"
)

const (
	ClaimStatusPending   = "pending"
	ClaimStatusClaimed   = "claimed"
	ClaimStatusActive    = "active"
	ClaimStatusCompleted = "completed"
	ClaimStatusExpired   = "expired"
	ClaimStatusCancelled = "cancelled"
	ClaimStatusForfeited = "forfeited"
)

// claimTransitions fixes the claim lifecycle:
// pending -> claimed -> {active -> {completed, expired, forfeited}, cancelled}.
var claimTransitions = map[string][]string{
	ClaimStatusPending: {ClaimStatusClaimed},
	ClaimStatusClaimed: {ClaimStatusActive, ClaimStatusCancelled},
	ClaimStatusActive:  {ClaimStatusCompleted, ClaimStatusExpired, ClaimStatusForfeited},
}

func CanTransition(from string, to string) bool {
	for _, next := range claimTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func TerminalStatus(status string) bool {
	return len(claimTransitions[status]) == 0
}
