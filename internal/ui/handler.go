package ui

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/fuelcast/fuelcast/internal/forecast"
	"github.com/fuelcast/fuelcast/internal/shared"
	"github.com/fuelcast/fuelcast/internal/view"
)

const pageTemplate = "pages/pos.html"

// Renderer renders a named template.
type Renderer interface {
	Render(w http.ResponseWriter, name string, data view.TemplateData) error
}

// Row is one entry of the master list.
type Row struct {
	PointOfSale forecast.PointOfSale
	URL         string
	Selected    bool
}

// Page is the data handed to the shell template.
type Page struct {
	Layout        Layout
	Rows          []Row
	Busy          bool
	Detail        *DetailView
	CloseURL      string
	ToggleURL     string
	DetailMissing bool
	Locale        string
}

// Handler serves the master/detail pages.
type Handler struct {
	logger    *slog.Logger
	templates Renderer
	csrf      *shared.CSRFManager
	master    *MasterController
	detail    *DetailController
	validate  *validator.Validate
	locale    language.Tag
}

// NewHandler builds the UI handler.
func NewHandler(logger *slog.Logger, templates Renderer, csrf *shared.CSRFManager, master *MasterController, detail *DetailController, locale language.Tag) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		templates: templates,
		csrf:      csrf,
		master:    master,
		detail:    detail,
		validate:  validator.New(),
		locale:    locale,
	}
}

// MountRoutes registers the UI routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showMain)
	r.Get("/pos/{pointofsale}", h.showDetail)
	r.Post("/pos/{pointofsale}/feeds/predicted", h.togglePredicted)
	r.Post("/pos/{pointofsale}/close", h.closeDetail)
	r.Post("/actions/{action}", h.triggerAction)
}

type posParam struct {
	ID string `validate:"required,max=128,printascii"`
}

func (h *Handler) showMain(w http.ResponseWriter, r *http.Request) {
	model := ModelFor(shared.SessionFromContext(r.Context()))
	model.OnRouteMatched(RouteMain)
	page := h.page(r, model, "")
	h.render(w, r, page, http.StatusOK)
}

func (h *Handler) showDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pointOfSale(w, r)
	if !ok {
		return
	}
	model := ModelFor(shared.SessionFromContext(r.Context()))
	model.OnRouteMatched(RouteDetail)
	page := h.page(r, model, id)

	detail, err := h.detail.Load(r.Context(), id, model.PredictedFeed())
	switch {
	case errors.Is(err, forecast.ErrNotFound):
		model.OnRouteMatched(RouteMain)
		page.Layout = model.Layout()
		page.DetailMissing = true
		h.render(w, r, page, http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("load detail", slog.String("pointofsale", id), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	page.Detail = &detail
	if base, err := NavTo(RouteDetail, map[string]string{ParamPointOfSale: id}); err == nil {
		page.CloseURL = base + "/close"
		page.ToggleURL = base + "/feeds/predicted"
	}
	h.render(w, r, page, http.StatusOK)
}

func (h *Handler) togglePredicted(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pointOfSale(w, r)
	if !ok {
		return
	}
	model := ModelFor(shared.SessionFromContext(r.Context()))
	feeds := NewFeedSet()
	feeds.SetPredicted(model.PredictedFeed())
	feeds.TogglePredicted()
	model.SetPredictedFeed(feeds.PredictedShown())
	h.redirectTo(w, r, RouteDetail, map[string]string{ParamPointOfSale: id})
}

func (h *Handler) closeDetail(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.pointOfSale(w, r); !ok {
		return
	}
	h.redirectTo(w, r, RouteMain, nil)
}

func (h *Handler) triggerAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if !forecast.IsAction(action) {
		http.NotFound(w, r)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	busyKey := "anonymous"
	if sess != nil && sess.ID != "" {
		busyKey = sess.ID
	}
	toast := h.master.Trigger(r.Context(), busyKey, action, h.language(r))
	if sess != nil {
		sess.AddFlash(toast)
	}
	http.Redirect(w, r, localReturn(r.PostFormValue("return")), http.StatusSeeOther)
}

func (h *Handler) pointOfSale(w http.ResponseWriter, r *http.Request) (string, bool) {
	param := posParam{ID: chi.URLParam(r, ParamPointOfSale)}
	if err := h.validate.Struct(param); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return "", false
	}
	return param.ID, true
}

func (h *Handler) page(r *http.Request, model *Model, selected string) Page {
	ctx := r.Context()
	items := h.master.List(ctx)
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		url, err := h.master.Select(item)
		if err != nil {
			h.logger.Warn("skip point of sale without id", slog.String("name", item.Name))
			continue
		}
		rows = append(rows, Row{PointOfSale: item, URL: url, Selected: item.UUID == selected})
	}
	busyKey := "anonymous"
	if sess := shared.SessionFromContext(ctx); sess != nil && sess.ID != "" {
		busyKey = sess.ID
	}
	return Page{
		Layout: model.Layout(),
		Rows:   rows,
		Busy:   h.master.Busy(ctx, busyKey),
		Locale: h.language(r).String(),
	}
}

func (h *Handler) language(r *http.Request) language.Tag {
	return MatchLanguage(r.Header.Get("Accept-Language"), h.locale)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page Page, status int) {
	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	if h.csrf != nil && sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	title := "Fuel prices"
	if page.Detail != nil {
		title = page.Detail.PointOfSale.Name
	}
	data := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: page}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, pageTemplate, data); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectTo(w http.ResponseWriter, r *http.Request, route string, params map[string]string) {
	location, err := NavTo(route, params)
	if err != nil {
		h.logger.Error("build route", slog.String("route", route), slog.Any("error", err))
		location = "/"
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// localReturn only allows same-site absolute paths.
func localReturn(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
