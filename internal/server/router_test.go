package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"parkease/internal/config"
	"parkease/internal/database"
	"parkease/internal/domain"
	"parkease/internal/geocode"
	"parkease/internal/mailer"
	jwtsvc "parkease/internal/pkg/jwt"
	"parkease/internal/repository"
	"parkease/internal/upload"
)

type fakeGeocoder struct{}

func (fakeGeocoder) Search(_ context.Context, q string) ([]geocode.Place, error) {
	return []geocode.Place{{Lat: 27.7, Lon: 85.3, Label: q}}, nil
}

type TestResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error,omitempty"`
}

type suite struct {
	t      *testing.T
	router *gin.Engine
}

func setupSuite(t *testing.T) *suite {
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:", database.Options{Silent: true})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), &domain.User{
		Username: "admin", Email: "admin@parkease.local", PasswordHash: string(hash), Role: domain.RoleAdmin,
	}))

	cfg := &config.Config{
		PasswordResetTTL:   15 * time.Minute,
		PasswordResetURL:   "http://localhost:3000/reset-password",
		UploadDir:          t.TempDir(),
		UploadURLBase:      "/static/uploads",
		SupportEmail:       "support@parkease.local",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}

	r := NewRouter(Deps{
		Config:   cfg,
		DB:       db,
		JWT:      jwtsvc.New("test_secret_key_32_characters_min", 24*time.Hour),
		Mailer:   mailer.NewConsoleSender(),
		Uploads:  upload.NewDiskStore(cfg.UploadDir, cfg.UploadURLBase),
		Geocoder: fakeGeocoder{},
	})
	return &suite{t: t, router: r}
}

func (s *suite) request(method, path, token string, body any) (int, TestResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp TestResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

func (s *suite) login(email, password string) string {
	code, resp := s.request(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, code)
	return resp.Data["token"].(string)
}

func (s *suite) signup(username string) string {
	code, resp := s.request(http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"username": username, "email": username + "@example.com", "password": "secret1",
	})
	require.Equal(s.t, http.StatusCreated, code)
	return resp.Data["token"].(string)
}

func nested(m map[string]interface{}, key string) map[string]interface{} {
	v, _ := m[key].(map[string]interface{})
	return v
}

func TestHealth(t *testing.T) {
	s := setupSuite(t)
	code, resp := s.request(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Data["status"])
}

func TestParkingFlow(t *testing.T) {
	s := setupSuite(t)
	admin := s.login("admin@parkease.local", "adminpass")
	alice := s.signup("alice")
	bob := s.signup("bob")

	// drivers cannot manage lots
	code, _ := s.request(http.MethodPost, "/api/v1/admin/lots", alice, gin.H{"name": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := s.request(http.MethodPost, "/api/v1/admin/lots", admin, gin.H{
		"name": "New Road", "lat": 27.7041, "lon": 85.3075, "price_per_hour": 25, "total_spots": 1, "vehicle_type": "both",
	})
	require.Equal(t, http.StatusCreated, code)
	lotID := int64(nested(resp.Data, "lot")["id"].(float64))

	code, resp = s.request(http.MethodPost, "/api/v1/sessions", alice, gin.H{"lot_id": lotID, "vehicle_type": "car"})
	require.Equal(t, http.StatusCreated, code)
	sessionID := int64(nested(resp.Data, "session")["id"].(float64))

	code, resp = s.request(http.MethodPost, "/api/v1/sessions", bob, gin.H{"lot_id": lotID, "vehicle_type": "bike"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "LOT_FULL", resp.Error.Code)

	code, resp = s.request(http.MethodGet, fmt.Sprintf("/api/v1/lots/%d", lotID), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "full", nested(resp.Data, "lot")["status"])

	code, resp = s.request(http.MethodGet, "/api/v1/sessions/active", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotNil(t, resp.Data["quote"])

	// admin delete is refused while the lot is occupied
	code, resp = s.request(http.MethodDelete, fmt.Sprintf("/api/v1/admin/lots/%d", lotID), admin, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "LOT_IN_USE", resp.Error.Code)

	// bob cannot check out alice's session
	code, _ = s.request(http.MethodPost, fmt.Sprintf("/api/v1/sessions/%d/checkout", sessionID), bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.request(http.MethodPost, fmt.Sprintf("/api/v1/sessions/%d/checkout", sessionID), alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", nested(resp.Data, "session")["status"])

	code, resp = s.request(http.MethodPost, fmt.Sprintf("/api/v1/sessions/%d/checkout", sessionID), alice, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SESSION_ALREADY_COMPLETED", resp.Error.Code)

	code, _ = s.request(http.MethodPost, "/api/v1/sessions", bob, gin.H{"lot_id": lotID, "vehicle_type": "bike"})
	assert.Equal(t, http.StatusCreated, code)

	code, resp = s.request(http.MethodGet, "/api/v1/sessions", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Data["sessions"], 1)

	code, resp = s.request(http.MethodGet, "/api/v1/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp.Data["active_sessions"])
	assert.Equal(t, float64(2), resp.Data["total_drivers"])
	assert.Equal(t, float64(100), resp.Data["occupancy_rate"])

	code, resp = s.request(http.MethodGet, "/api/v1/admin/recent-activity?limit=5", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Data["activity"], 2)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := setupSuite(t)

	code, resp := s.request(http.MethodGet, "/api/v1/sessions/active", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_HEADER_MISSING", resp.Error.Code)

	code, _ = s.request(http.MethodGet, "/api/v1/admin/stats", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminGeocode(t *testing.T) {
	s := setupSuite(t)
	admin := s.login("admin@parkease.local", "adminpass")

	code, resp := s.request(http.MethodGet, "/api/v1/admin/geocode?q=patan", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Data["results"], 1)
}
