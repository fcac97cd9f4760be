package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/fuelcast/fuelcast/internal/forecast"
	"github.com/fuelcast/fuelcast/internal/observability"
	"github.com/fuelcast/fuelcast/internal/odata"
	"github.com/fuelcast/fuelcast/internal/shared"
	"github.com/fuelcast/fuelcast/internal/ui"
	"github.com/fuelcast/fuelcast/internal/view"
)

type memoryRepo struct {
	points []forecast.PointOfSale
}

func (m memoryRepo) ListPointsOfSale(context.Context) ([]forecast.PointOfSale, error) {
	return m.points, nil
}

func (m memoryRepo) GetPointOfSale(_ context.Context, uuid string) (forecast.PointOfSale, error) {
	for _, pos := range m.points {
		if pos.UUID == uuid {
			return pos, nil
		}
	}
	return forecast.PointOfSale{}, forecast.ErrNotFound
}

func (m memoryRepo) HistoryByUUID(context.Context, string) ([]forecast.PriceRecord, error) {
	return nil, nil
}

func (m memoryRepo) ModelsByGroupID(context.Context, string) ([]forecast.ModelArtifact, error) {
	return nil, nil
}

type fixedRunner bool

func (f fixedRunner) Run(context.Context, string) bool { return bool(f) }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := forecast.NewService(
		memoryRepo{points: []forecast.PointOfSale{{UUID: "abc-123", Name: "Aral Mitte"}}},
		forecast.NewCache(client, time.Minute),
		fixedRunner(true),
		logger,
	)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	cfg := &Config{AppRequestTimeout: 5 * time.Second}
	csrf := shared.NewCSRFManager("csrf-secret")
	backend := ui.NewLocalBackend(service)
	router := NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: shared.NewSessionManager(client, "fuelcast_session", "secret", time.Hour, false),
		CSRFManager:    csrf,
		UIHandler: ui.NewHandler(logger, templates, csrf,
			ui.NewMasterController(backend, ui.NewRedisBusy(client, 0), logger),
			ui.NewDetailController(backend, logger), language.English),
		ODataHandler: odata.NewHandler(logger, service),
		Metrics:      observability.NewMetrics(),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func TestActionRoundTripShowsToast(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)

	resp, err := client.Get(server.URL + "/")
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Aral Mitte")
	match := csrfField.FindStringSubmatch(body)
	require.Len(t, match, 2)

	form := url.Values{"csrf_token": {match[1]}, "return": {"/"}}
	resp, err = client.PostForm(server.URL+"/actions/Model_Train", form)
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Model training finished successfully")

	resp, err = client.Get(server.URL + "/")
	require.NoError(t, err)
	assert.NotContains(t, readBody(t, resp), "finished successfully", "toast is shown once")
}

func TestActionWithoutCSRFIsForbidden(t *testing.T) {
	server := newTestServer(t)
	client := newClient(t)

	resp, err := client.PostForm(server.URL+"/actions/Prices_Predict", url.Values{})
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestODataActionIsStateless(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/odata/v2/Prices_Predict", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"Prices_Predict":true}`, body)
	assert.Empty(t, resp.Cookies())
}

func TestHealthzStaticAndMetrics(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, readBody(t, resp))

	resp, err = http.Get(server.URL + "/static/css/app.css")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), "fuelcast_http_requests_total")
}
