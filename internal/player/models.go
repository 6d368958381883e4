package player

import (
	"time"

	"github.com/shopspring/decimal"
)

type Player struct {
	PlayerID         string          `gorm:"column:player_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	Username         string          `gorm:"column:username;type:varchar(100);not null"`
	Email            string          `gorm:"column:email;type:varchar(255);not null"`
	Segment          string          `gorm:"column:segment;type:varchar(20);not null;default:'standard'"` // "standard", "premium", "vip"
	TotalDeposits    decimal.Decimal `gorm:"column:total_deposits;type:numeric(20,2);not null;default:0"`
	TotalWithdrawals decimal.Decimal `gorm:"column:total_withdrawals;type:numeric(20,2);not null;default:0"`
	Version          int             `gorm:"column:version;not null;default:1"`
	RegistrationDate time.Time       `gorm:"column:registration_date;not null;default:now()"`
	LastLoginDate    *time.Time      `gorm:"column:last_login_date"`
	CreatedAt        time.Time       `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;not null;default:now()"`
}

const (
	SegmentStandard = "standard"
	SegmentPremium  = "premium"
	SegmentVIP      = "vip"
)

func ValidSegment(segment string) bool {
	switch segment {
	case SegmentStandard, SegmentPremium, SegmentVIP:
		return true
	}
	return false
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Segment  string `json:"segment"`
}

type LedgerRequest struct {
	PlayerID    string          `json:"player_id"`
	Amount      decimal.Decimal `json:"amount"`
	ReferenceID string          `json:"reference_id"`
}
