// Package mocks provides testify mocks for the persistence and event bus interfaces.
package mocks

import (
	"context"

	"github.com/dukex/campaignflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Campaigns(ctx context.Context) ([]*models.CampaignFlow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.CampaignFlow), args.Error(1)
}

func (m *MockPersistence) CampaignByID(ctx context.Context, id string) (*models.CampaignFlow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.CampaignFlow), args.Error(1)
}

func (m *MockPersistence) SaveCampaign(ctx context.Context, flow *models.CampaignFlow) error {
	args := m.Called(ctx, flow)

	return args.Error(0)
}

func (m *MockPersistence) DeleteCampaign(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) RenameCampaign(ctx context.Context, id, name string) error {
	args := m.Called(ctx, id, name)

	return args.Error(0)
}

func (m *MockPersistence) UpdateCampaign(
	ctx context.Context,
	id string,
	mutate func(flow *models.CampaignFlow) error,
) (*models.CampaignFlow, error) {
	args := m.Called(ctx, id, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.CampaignFlow), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
