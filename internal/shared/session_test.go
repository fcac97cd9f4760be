package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "fuelcast_session", "secret", time.Hour, false), srv
}

func TestSessionRoundTripKeepsFlashUntilPopped(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodPost, "/actions/Model_Train", nil))
	require.NoError(t, err)
	sess.Set("ui.layout", "TwoColumnsMidExpanded")
	sess.AddFlash(FlashMessage{Kind: "success", Message: "done"})

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, strings.HasPrefix(cookies[0].Value, sess.ID+"."))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "TwoColumnsMidExpanded", loaded.Get("ui.layout"))

	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "done", flash.Message)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), loaded))

	again, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, again.PopFlash())
}

func TestSessionCommitMergesConcurrentRequests(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	first, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	first.Set("ui.layout", "OneColumn")
	first.AddFlash(FlashMessage{Kind: "info", Message: "earlier"})
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, first))
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	action, err := sm.Load(ctx, req)
	require.NoError(t, err)
	toggle, err := sm.Load(ctx, req)
	require.NoError(t, err)

	// Another tab pops the old toast and flips the feed while the action runs.
	require.NotNil(t, toggle.PopFlash())
	toggle.Set("ui.feed.predicted", "false")
	toggle.Delete("ui.layout")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), toggle))

	action.AddFlash(FlashMessage{Kind: "success", Message: "trained"})
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), action))

	merged, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "false", merged.Get("ui.feed.predicted"))
	assert.Empty(t, merged.Get("ui.layout"))
	flash := merged.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "trained", flash.Message)
	assert.Nil(t, merged.PopFlash())
}

func TestSessionPopOfFlashAddedInSameRequest(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Message: "one"})
	sess.AddFlash(FlashMessage{Message: "two"})
	assert.Equal(t, "one", sess.PopFlash().Message)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "two", loaded.PopFlash().Message)
	assert.Nil(t, loaded.PopFlash())
}

func TestSessionUnknownCookieGetsFreshID(t *testing.T) {
	sm, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "fuelcast_session", Value: "chosen-by-client"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "chosen-by-client", sess.ID)
}

func TestSessionRejectsForgedSignature(t *testing.T) {
	sm, srv := newTestManager(t)
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	assert.True(t, srv.Exists("fuelcast:session:"+sess.ID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "fuelcast_session", Value: sess.ID + ".forged"})
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, loaded.ID)
}

func TestSessionSkipsSaveWhenUnchanged(t *testing.T) {
	sm, srv := newTestManager(t)
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Set("ui.layout", "OneColumn")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	srv.Del("fuelcast:session:" + sess.ID)

	sess.Set("ui.layout", "OneColumn")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	assert.False(t, srv.Exists("fuelcast:session:"+sess.ID))
}

func TestCSRFTokenLifecycle(t *testing.T) {
	csrf := NewCSRFManager("csrf-secret")
	sess := &Session{ID: "sess-1"}

	token, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)
}
