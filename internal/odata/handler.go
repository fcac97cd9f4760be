package odata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/fuelcast/fuelcast/internal/forecast"
	"github.com/fuelcast/fuelcast/internal/platform/httpx"
)

// Entity set names exposed by the service.
const (
	EntityPointsOfSale = "POINTS_OF_SALES"
	EntityHistory      = "History_Forecast"
	EntityModel        = "ModelHanaMlConsPalMassiveAdditiveModelAnalysis"
)

// Service is the backend contract served over OData.
type Service interface {
	ListPointsOfSale(ctx context.Context) ([]forecast.PointOfSale, error)
	GetPointOfSale(ctx context.Context, uuid string) (forecast.PointOfSale, error)
	History(ctx context.Context, uuid string) ([]forecast.PriceRecord, error)
	Models(ctx context.Context, groupID string) ([]forecast.ModelArtifact, error)
	Call(ctx context.Context, action string) bool
}

// Handler serves the entity sets and actions.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// NewHandler constructs the OData handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the service under the current router prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleServiceDocument)
	r.Get("/{entity}", h.handleEntity)
	r.Group(func(gr chi.Router) {
		gr.Use(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		gr.Post("/"+forecast.ActionPredict, h.handleAction(forecast.ActionPredict))
		gr.Post("/"+forecast.ActionTrain, h.handleAction(forecast.ActionTrain))
	})
}

type collection[T any] struct {
	Results []T `json:"results"`
}

type envelope struct {
	D any `json:"d"`
}

func (h *Handler) handleServiceDocument(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, envelope{D: map[string][]string{
		"EntitySets": {EntityPointsOfSale, EntityHistory, EntityModel},
	}})
}

func (h *Handler) handleEntity(w http.ResponseWriter, r *http.Request) {
	segment, err := url.PathUnescape(chi.URLParam(r, "entity"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed resource path")
		return
	}
	ctx := r.Context()

	switch segment {
	case EntityPointsOfSale:
		points, err := h.service.ListPointsOfSale(ctx)
		if err != nil {
			h.respondError(w, "list points of sale", err)
			return
		}
		httpx.JSON(w, http.StatusOK, envelope{D: collection[forecast.PointOfSale]{Results: nonNil(points)}})
	case EntityHistory:
		filter, err := h.requireFilter(r, "uuid")
		if err != nil {
			h.respondError(w, "history filter", err)
			return
		}
		records, err := h.service.History(ctx, filter.Value)
		if err != nil {
			h.respondError(w, "read history", err)
			return
		}
		httpx.JSON(w, http.StatusOK, envelope{D: collection[forecast.PriceRecord]{Results: nonNil(records)}})
	case EntityModel:
		filter, err := h.requireFilter(r, "group_id")
		if err != nil {
			h.respondError(w, "model filter", err)
			return
		}
		models, err := h.service.Models(ctx, filter.Value)
		if err != nil {
			h.respondError(w, "read models", err)
			return
		}
		httpx.JSON(w, http.StatusOK, envelope{D: collection[forecast.ModelArtifact]{Results: nonNil(models)}})
	default:
		id, ok := parseKey(segment, EntityPointsOfSale)
		if !ok {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown resource "+segment)
			return
		}
		pos, err := h.service.GetPointOfSale(ctx, id)
		if err != nil {
			h.respondError(w, "get point of sale", err)
			return
		}
		httpx.JSON(w, http.StatusOK, envelope{D: pos})
	}
}

func (h *Handler) handleAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok := h.service.Call(r.Context(), action)
		httpx.JSON(w, http.StatusOK, map[string]bool{action: ok})
	}
}

func (h *Handler) requireFilter(r *http.Request, field string) (Filter, error) {
	filter, err := ParseFilter(r.URL.Query().Get("$filter"))
	if err != nil {
		return Filter{}, err
	}
	if filter.Field != field {
		return Filter{}, errors.Join(ErrInvalidFilter, errors.New("unsupported filter field "+filter.Field))
	}
	return filter, nil
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	matched := httpx.RespondError(w, err,
		httpx.ErrorMapping{Target: ErrInvalidFilter, Status: http.StatusBadRequest, Title: "Invalid Filter", Detail: true},
		httpx.ErrorMapping{Target: forecast.ErrNotFound, Status: http.StatusNotFound, Title: "Not Found"},
	)
	if !matched {
		h.logger.Error(op, slog.Any("error", err))
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
