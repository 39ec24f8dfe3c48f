package api

import (
	"context"

	"novasport-checker/internal/model"
	"novasport-checker/internal/store"
)

// mockStore is a mock implementation of store.Store. Unset funcs behave like an empty store.
type mockStore struct {
	SaveTokenFunc             func(ctx context.Context, value string) error
	LatestTokenFunc           func(ctx context.Context) (string, error)
	PutSubscriptionFunc       func(ctx context.Context, sub *model.PushSubscription, sports []string) error
	GetSubscriptionFunc       func(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscriptionFunc    func(ctx context.Context, endpoint string) error
	SubscriptionsForSportFunc func(ctx context.Context, sport string) ([]model.PushSubscription, error)
}

func (m *mockStore) SaveToken(ctx context.Context, value string) error {
	if m.SaveTokenFunc == nil {
		return nil
	}
	return m.SaveTokenFunc(ctx, value)
}

func (m *mockStore) LatestToken(ctx context.Context) (string, error) {
	if m.LatestTokenFunc == nil {
		return "", store.ErrNoToken
	}
	return m.LatestTokenFunc(ctx)
}

func (m *mockStore) PutSubscription(ctx context.Context, sub *model.PushSubscription, sports []string) error {
	if m.PutSubscriptionFunc == nil {
		return nil
	}
	return m.PutSubscriptionFunc(ctx, sub, sports)
}

func (m *mockStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	if m.GetSubscriptionFunc == nil {
		return nil, store.ErrNotFound
	}
	return m.GetSubscriptionFunc(ctx, endpoint)
}

func (m *mockStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if m.DeleteSubscriptionFunc == nil {
		return nil
	}
	return m.DeleteSubscriptionFunc(ctx, endpoint)
}

func (m *mockStore) SubscriptionsForSport(ctx context.Context, sport string) ([]model.PushSubscription, error) {
	if m.SubscriptionsForSportFunc == nil {
		return nil, nil
	}
	return m.SubscriptionsForSportFunc(ctx, sport)
}
