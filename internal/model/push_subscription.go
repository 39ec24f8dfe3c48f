package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Sports []*Sport `gorm:"many2many:subscription_sports;"`
}

// SportNames returns the names of the followed sports.
func (p *PushSubscription) SportNames() []string {
	names := make([]string, 0, len(p.Sports))
	for _, s := range p.Sports {
		names = append(names, s.Name)
	}
	return names
}
