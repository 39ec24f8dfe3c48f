package model

import "time"

// CurrentTokenID is the primary key of the only row of the tokens table.
const CurrentTokenID int64 = 1

// Token is the latest bearer token POSTed by the userscript.
type Token struct {
	ID        int64     `gorm:"primaryKey"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
