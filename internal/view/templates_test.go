package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelcast/fuelcast/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderShellWithFlash(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/pos.html", TemplateData{
		Title: "Fuel prices",
		Flash: &shared.FlashMessage{Kind: "success", Message: "Price prediction finished successfully"},
		Data:  map[string]any{"Layout": "OneColumn", "Locale": "en"},
	})
	require.NoError(t, err)
	body := rec.Body.String()
	assert.Contains(t, body, "toast-success")
	assert.Contains(t, body, "fcl-OneColumn")
	assert.Contains(t, body, "No points of sale.")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestFormatPrice(t *testing.T) {
	format := Funcs()["formatPrice"].(func(*float64) string)
	price := 1.789
	assert.Equal(t, "1.789", format(&price))
	assert.Equal(t, "–", format(nil))
}

func TestRenderUnknownTemplateWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/missing.html", TemplateData{})
	assert.Error(t, err)
	assert.Zero(t, rec.Body.Len())
}
