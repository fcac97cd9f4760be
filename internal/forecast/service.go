package forecast

import (
	"context"
	"log/slog"
)

// ActionRunner executes the stored procedure bound to an action.
type ActionRunner interface {
	Run(ctx context.Context, action string) bool
}

// Service serves entity reads through the cache and runs the two actions.
type Service struct {
	repo   Repository
	cache  *Cache
	runner ActionRunner
	logger *slog.Logger
}

// NewService wires the repository, cache and procedure runner.
func NewService(repo Repository, cache *Cache, runner ActionRunner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, runner: runner, logger: logger}
}

// ListPointsOfSale returns every point of sale.
func (s *Service) ListPointsOfSale(ctx context.Context) ([]PointOfSale, error) {
	return fetch(ctx, s.cache, "pos", "all", s.repo.ListPointsOfSale)
}

// GetPointOfSale returns a single point of sale or ErrNotFound.
func (s *Service) GetPointOfSale(ctx context.Context, uuid string) (PointOfSale, error) {
	return fetch(ctx, s.cache, "pos", uuid, func(ctx context.Context) (PointOfSale, error) {
		return s.repo.GetPointOfSale(ctx, uuid)
	})
}

// History returns the History_Forecast rows for a point of sale.
func (s *Service) History(ctx context.Context, uuid string) ([]PriceRecord, error) {
	return fetch(ctx, s.cache, "history", uuid, func(ctx context.Context) ([]PriceRecord, error) {
		return s.repo.HistoryByUUID(ctx, uuid)
	})
}

// Models returns the trained model artifacts for a group.
func (s *Service) Models(ctx context.Context, groupID string) ([]ModelArtifact, error) {
	return fetch(ctx, s.cache, "model", groupID, func(ctx context.Context) ([]ModelArtifact, error) {
		return s.repo.ModelsByGroupID(ctx, groupID)
	})
}

// Call runs an action and reports its boolean outcome. A successful run
// invalidates cached reads, since the procedures rewrite forecast and model
// tables.
func (s *Service) Call(ctx context.Context, action string) bool {
	if !IsAction(action) || s.runner == nil {
		s.logger.Error("action rejected", slog.String("action", action))
		return false
	}
	ok := s.runner.Run(ctx, action)
	if ok {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("bump forecast cache", slog.Any("error", err))
		}
	}
	return ok
}

// Predict runs Prices_Predict.
func (s *Service) Predict(ctx context.Context) bool {
	return s.Call(ctx, ActionPredict)
}

// Train runs Model_Train.
func (s *Service) Train(ctx context.Context) bool {
	return s.Call(ctx, ActionTrain)
}
