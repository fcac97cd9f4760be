package ui

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fuelcast/fuelcast/internal/forecast"
)

type stubBackend struct {
	mu         sync.Mutex
	points     []forecast.PointOfSale
	history    []forecast.PriceRecord
	historyErr error
	models     []forecast.ModelArtifact
	modelsErr  error
	actionOK   bool
	actionErr  error
	calls      []string
	onCall     func()
}

func (s *stubBackend) ListPointsOfSale(context.Context) ([]forecast.PointOfSale, error) {
	return s.points, nil
}

func (s *stubBackend) GetPointOfSale(_ context.Context, uuid string) (forecast.PointOfSale, error) {
	for _, pos := range s.points {
		if pos.UUID == uuid {
			return pos, nil
		}
	}
	return forecast.PointOfSale{}, forecast.ErrNotFound
}

func (s *stubBackend) History(context.Context, string) ([]forecast.PriceRecord, error) {
	return s.history, s.historyErr
}

func (s *stubBackend) Models(context.Context, string) ([]forecast.ModelArtifact, error) {
	return s.models, s.modelsErr
}

func (s *stubBackend) CallAction(_ context.Context, action string) (bool, error) {
	s.mu.Lock()
	s.calls = append(s.calls, action)
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall()
	}
	return s.actionOK, s.actionErr
}

var errBackend = errors.New("backend unavailable")

func price(v float64) *float64 { return &v }

func sampleBackend() *stubBackend {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &stubBackend{
		points: []forecast.PointOfSale{
			{UUID: "abc-123", Name: "Aral Mitte", Brand: "ARAL", City: "Berlin"},
			{UUID: "def-456", Name: "Shell Nord", Brand: "SHELL", City: "Hamburg"},
		},
		history: []forecast.PriceRecord{
			{UUID: "abc-123", Date: day, Price: price(1.79)},
			{UUID: "abc-123", Date: day.AddDate(0, 0, 1), Price: price(1.81), PredictedPrice: price(1.80)},
			{UUID: "abc-123", Date: day.AddDate(0, 0, 2), PredictedPrice: price(1.83)},
		},
	}
}
