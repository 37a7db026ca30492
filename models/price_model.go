package models

import "time"

const (
	LevelEntry        = "entry"
	LevelIntermediate = "intermediate"
	LevelSenior       = "senior"
	LevelExpert       = "expert"
)

// Price bounds the session price a counselor of Level may charge, in minor units.
type Price struct {
	Level     string    `gorm:"size:20;primaryKey" json:"level"`
	MinPrice  int64     `gorm:"not null" json:"min_price"`
	MaxPrice  int64     `gorm:"not null" json:"max_price"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Price) Contains(amount int64) bool {
	return amount >= p.MinPrice && amount <= p.MaxPrice
}
