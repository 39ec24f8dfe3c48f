package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"novasport-checker/internal/model"
)

// Store defines the interface for all database operations of the relay.
type Store interface {
	SaveToken(ctx context.Context, value string) error
	LatestToken(ctx context.Context) (string, error)

	PutSubscription(ctx context.Context, sub *model.PushSubscription, sports []string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForSport(ctx context.Context, sport string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

// SaveToken replaces the stored token.
func (s *gormStore) SaveToken(ctx context.Context, value string) error {
	tok := model.Token{ID: model.CurrentTokenID, Value: value, UpdatedAt: s.now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&tok).Error
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// LatestToken returns the stored token or ErrNoToken.
func (s *gormStore) LatestToken(ctx context.Context) (string, error) {
	var tok model.Token
	err := s.db.WithContext(ctx).First(&tok, model.CurrentTokenID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", ErrNoToken
	case err != nil:
		return "", fmt.Errorf("load token: %w", err)
	case tok.Value == "":
		return "", ErrNoToken
	}
	return tok.Value, nil
}

// PutSubscription creates or replaces a subscription and the sports it follows.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription, sports []string) error {
	names := cleanNames(sports)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}

		var followed []model.Sport
		if len(names) > 0 {
			rows := make([]model.Sport, 0, len(names))
			for _, n := range names {
				rows = append(rows, model.Sport{Name: n})
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("upsert sports: %w", err)
			}
			if err := tx.Where("name IN ?", names).Find(&followed).Error; err != nil {
				return fmt.Errorf("load sports: %w", err)
			}
		}

		if err := tx.Model(sub).Association("Sports").Replace(&followed); err != nil {
			return fmt.Errorf("replace followed sports: %w", err)
		}
		return nil
	})
}

// GetSubscription returns a subscription with its sports, or ErrNotFound.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Sports").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription and its sport links.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	err := s.db.WithContext(ctx).Select("Sports").Delete(&model.PushSubscription{Endpoint: endpoint}).Error
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// SubscriptionsForSport lists the subscriptions following sport.
func (s *gormStore) SubscriptionsForSport(ctx context.Context, sport string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_sports ss ON ss.push_subscription_endpoint = push_subscriptions.endpoint").
		Joins("JOIN sports ON sports.id = ss.sport_id").
		Where("sports.name = ?", sport).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("load subscriptions for %s: %w", sport, err)
	}
	return subs, nil
}

func cleanNames(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
