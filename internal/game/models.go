package game

import (
	"time"

	"github.com/shopspring/decimal"
)

type Game struct {
	GameID       string          `gorm:"column:game_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	GameName     string          `gorm:"column:game_name;type:varchar(100);not null"`
	GameType     string          `gorm:"column:game_type;type:varchar(50);not null"`     // "slots", "table_games", "live_casino"
	Contribution decimal.Decimal `gorm:"column:contribution;type:numeric(5,4);not null"` // 0.0000 to 1.0000 (100%)
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;not null;default:now()"`
}

const (
	GameTypeSlots      = "slots"
	GameTypeTableGames = "table_games"
	GameTypeLiveCasino = "live_casino"
)
