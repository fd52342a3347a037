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
)

func newTestSessions(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "fp_session", "secret", time.Hour, false), mr
}

func TestSessionRoundTrip(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("user-42")
	sess.Set("draft", "abc")

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))
	assert.True(t, mr.Exists("facturapro:session:"+sess.ID))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "user-42", loaded.User())
	assert.Equal(t, "abc", loaded.Get("draft"))
	assert.Equal(t, "user-42", IdentityFromSession(loaded).UserID)
}

func TestSessionDestroyClearsStore(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))
	require.True(t, mr.Exists("facturapro:session:"+sess.ID))

	sm.Destroy(sess)
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))
	assert.False(t, mr.Exists("facturapro:session:"+sess.ID))
	assert.Contains(t, rr.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestCSRFTokenBoundToSession(t *testing.T) {
	csrf := NewCSRFManager("csrf-secret")
	sess := &Session{ID: "abc", values: map[string]string{}}

	token, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)

	_, err = csrf.EnsureToken(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionMissing)
}

func TestSessionRenewMovesData(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.Set("draft_id", "d-1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	oldID := loaded.ID

	sm.Renew(loaded)
	require.NotEqual(t, oldID, loaded.ID)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), next, loaded))

	assert.False(t, mr.Exists("facturapro:session:"+oldID))
	assert.True(t, mr.Exists("facturapro:session:"+loaded.ID))
	assert.Equal(t, "d-1", loaded.Get("draft_id"))
}

func TestFlashSurvivesRedirect(t *testing.T) {
	sm, _ := newTestSessions(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/editor/save", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Factura guardada"})
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))

	next := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Factura guardada", flash.Message)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), next, loaded))

	again, err := sm.Load(ctx, next)
	require.NoError(t, err)
	assert.Nil(t, again.PopFlash())
}
