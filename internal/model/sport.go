package model

import "time"

// Sport is a sport name push subscribers can follow.
type Sport struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:128;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
