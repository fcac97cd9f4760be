package ui

import (
	"context"

	"github.com/fuelcast/fuelcast/internal/forecast"
)

// Backend is everything the controllers need from the forecast service. It
// is satisfied by the in-process service adapter and by odata.Client.
type Backend interface {
	ListPointsOfSale(ctx context.Context) ([]forecast.PointOfSale, error)
	GetPointOfSale(ctx context.Context, uuid string) (forecast.PointOfSale, error)
	History(ctx context.Context, uuid string) ([]forecast.PriceRecord, error)
	Models(ctx context.Context, groupID string) ([]forecast.ModelArtifact, error)
	CallAction(ctx context.Context, action string) (bool, error)
}

// LocalBackend adapts the in-process service.
type LocalBackend struct {
	*forecast.Service
}

// NewLocalBackend wraps svc.
func NewLocalBackend(svc *forecast.Service) LocalBackend {
	return LocalBackend{Service: svc}
}

// CallAction runs the action in process. It never fails at the transport level.
func (b LocalBackend) CallAction(ctx context.Context, action string) (bool, error) {
	return b.Service.Call(ctx, action), nil
}
