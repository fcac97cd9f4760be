package app

import (
	"io/fs"
	"log"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fuelcast/fuelcast/internal/forecast"
	"github.com/fuelcast/fuelcast/internal/observability"
	"github.com/fuelcast/fuelcast/internal/odata"
	"github.com/fuelcast/fuelcast/internal/shared"
	"github.com/fuelcast/fuelcast/internal/ui"
	"github.com/fuelcast/fuelcast/jobs"
	"github.com/fuelcast/fuelcast/web"
)

// Path prefixes of the HTTP surface.
const (
	ODataPrefix  = "/odata/v2"
	JobsPrefix   = "/jobs"
	StaticPrefix = "/static/"
)

func init() {
	ensureMimeType(".css", "text/css; charset=utf-8")
	ensureMimeType(".js", "text/javascript; charset=utf-8")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	UIHandler      *ui.Handler
	ODataHandler   *odata.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with fuelcast defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:            params.Logger,
		Config:            params.Config,
		SessionManager:    params.SessionManager,
		CSRFManager:       params.CSRFManager,
		Metrics:           params.Metrics,
		StatelessPrefixes: []string{ODataPrefix + "/", JobsPrefix + "/", StaticPrefix, "/healthz", "/metrics"},
		UntimedPrefixes: []string{
			"/actions/",
			ODataPrefix + "/" + forecast.ActionPredict,
			ODataPrefix + "/" + forecast.ActionTrain,
		},
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.UIHandler != nil {
		params.UIHandler.MountRoutes(r)
	}
	if params.ODataHandler != nil {
		r.Route(ODataPrefix, params.ODataHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route(JobsPrefix, params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix(StaticPrefix, http.FileServer(http.FS(staticFS)))
		r.Handle(StaticPrefix+"*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
