package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/glide/pkg/registry"
	"github.com/marmos91/glide/pkg/staging"
)

func testRouter(t *testing.T) (http.Handler, *registry.Registry) {
	t.Helper()
	store, err := staging.New(filepath.Join(t.TempDir(), "glides"))
	require.NoError(t, err)
	reg := registry.New()
	return NewRouter(reg, store), reg
}

func doGet(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 && rec.Code != http.StatusTemporaryRedirect {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestLiveness(t *testing.T) {
	h, _ := testRouter(t)

	rec, body := doGet(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadiness(t *testing.T) {
	h, reg := testRouter(t)
	require.NoError(t, reg.Add("alice", "10.0.0.1:50000"))

	rec, body := doGet(t, h, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["connected_users"])
}

func TestReadinessWithoutRegistry(t *testing.T) {
	store, err := staging.New(filepath.Join(t.TempDir(), "glides"))
	require.NoError(t, err)
	h := NewRouter(nil, store)

	rec, body := doGet(t, h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestUsersList(t *testing.T) {
	h, reg := testRouter(t)
	require.NoError(t, reg.Add("bob", "10.0.0.2:50001"))
	require.NoError(t, reg.Add("alice", "10.0.0.1:50000"))
	require.NoError(t, reg.AddOffer("alice", "bob", "notes.txt"))

	rec, body := doGet(t, h, "/api/v1/users")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["count"])

	users := data["users"].([]any)
	require.Len(t, users, 2)
	first := users[0].(map[string]any)
	assert.Equal(t, "alice", first["handle"])
	second := users[1].(map[string]any)
	assert.Equal(t, "bob", second["handle"])
	assert.Equal(t, float64(1), second["pending_offers"])
}

func TestOffersList(t *testing.T) {
	h, reg := testRouter(t)
	require.NoError(t, reg.Add("alice", "a"))
	require.NoError(t, reg.Add("bob", "b"))
	require.NoError(t, reg.AddOffer("alice", "bob", "one.txt"))
	require.NoError(t, reg.AddOffer("alice", "bob", "two.txt"))

	rec, body := doGet(t, h, "/api/v1/offers")
	assert.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["count"])

	offers := data["offers"].([]any)
	require.Len(t, offers, 2)
	offer := offers[0].(map[string]any)
	assert.Equal(t, "bob", offer["recipient"])
	assert.Equal(t, "alice", offer["sender"])
	assert.Equal(t, "one.txt", offer["filename"])
}

func TestRootRedirectsToHealth(t *testing.T) {
	h, _ := testRouter(t)

	rec, _ := doGet(t, h, "/")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/health", rec.Header().Get("Location"))
}
