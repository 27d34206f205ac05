package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/monitop/monitop/testing"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", time.Hour, false)
}

func requestWithCookie(name, value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return r
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie("test_session", ""))
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	sess.SetUser(42)
	sess.Set("theme", "dark")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWithCookie("test_session", ""), sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test_session", cookies[0].Name)
	assert.Equal(t, sess.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	reloaded, err := sm.Load(ctx, requestWithCookie("test_session", sess.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(42), reloaded.User())
	assert.Equal(t, "dark", reloaded.Get("theme"))
}

func TestSessionFlashPopsOnce(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie("test_session", ""))
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Usuario creado exitosamente."})

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWithCookie("test_session", ""), sess))

	reloaded, err := sm.Load(ctx, requestWithCookie("test_session", sess.ID))
	require.NoError(t, err)

	flash := reloaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "success", flash.Kind)
	assert.Nil(t, reloaded.PopFlash())
}

func TestSessionDestroy(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie("test_session", ""))
	require.NoError(t, err)
	sess.SetUser(7)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWithCookie("test_session", ""), sess))

	sm.Destroy(sess)
	rec = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWithCookie("test_session", sess.ID), sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	reloaded, err := sm.Load(ctx, requestWithCookie("test_session", sess.ID))
	require.NoError(t, err)
	assert.Zero(t, reloaded.User())
}

func TestSessionClearUserKeepsValues(t *testing.T) {
	sess := newSession()
	sess.SetUser(9)
	sess.Set("theme", "dark")

	sess.ClearUser()
	assert.Zero(t, sess.User())
	assert.Equal(t, "dark", sess.Get("theme"))
}
