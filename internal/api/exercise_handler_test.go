package api

import (
	"alcyxob/exercise-curator/internal/repository/file"
	"alcyxob/exercise-curator/internal/schema"
	"alcyxob/exercise-curator/internal/service"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDataset = `[
  {"id": "squat", "name": "Squat", "mechanic": "compound", "equipment_tier": "gym", "primary_muscle": "quadriceps",
   "secondary_muscles": ["glutes"], "body_part": "legs", "difficulty": 2, "gif": "Squat.gif"},
  {"id": "plank", "name": "Plank", "mechanic": "isolation", "primary_muscle": "abs", "body_part": "core", "difficulty": 1, "gif": ""},
  {"id": "curl", "name": "Curl", "equipment_tier": "dumbbell", "primary_muscle": "biceps", "gif": "curl.gif"},
  {"id": "curl", "name": "Curl copy"}
]`

type fakeSigner struct{ err error }

func (f fakeSigner) GeneratePresignedDownloadURL(_ context.Context, filename string, expires time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://media.example/" + filename + "?expires=" + expires.String(), nil
}

func setupRouter(t *testing.T, secret string, signer fakeSigner) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "exercises.json")
	require.NoError(t, os.WriteFile(path, []byte(testDataset), 0o644))
	svc := service.NewCuratorService(
		file.NewFileDatasetStore(path),
		service.NewValidator(schema.MustNew(schema.DefaultOptions())),
		zap.NewNop(),
	)

	router := gin.New()
	SetupRoutes(router, secret, NewExerciseHandler(svc, signer, zap.NewNop()))
	return router, path
}

func get(t *testing.T, router *gin.Engine, url, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	router, _ := setupRouter(t, "secret", fakeSigner{})
	w := get(t, router, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestListExercises(t *testing.T) {
	router, _ := setupRouter(t, "", fakeSigner{})

	var resp struct {
		Count     int `json:"count"`
		Exercises []struct {
			ID string `json:"id"`
		} `json:"exercises"`
	}

	w := get(t, router, "/api/v1/exercises", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Count)

	w = get(t, router, "/api/v1/exercises?tier=UNKNOWN", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "plank", resp.Exercises[0].ID)

	w = get(t, router, "/api/v1/exercises?muscle=glutes&tier=gym", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "squat", resp.Exercises[0].ID)
}

func TestGetExercise(t *testing.T) {
	router, _ := setupRouter(t, "", fakeSigner{})

	w := get(t, router, "/api/v1/exercises/plank", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"plank","name":"Plank","mechanic":"isolation","primary_muscle":"abs","body_part":"core","difficulty":1,"gif":""}`, w.Body.String())

	w = get(t, router, "/api/v1/exercises/lunge", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, router, "/api/v1/exercises/curl", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetExerciseMedia(t *testing.T) {
	router, _ := setupRouter(t, "", fakeSigner{})

	w := get(t, router, "/api/v1/exercises/squat/media", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp MediaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, MediaResponse{ID: "squat", Gif: "Squat.gif", URL: "https://media.example/Squat.gif?expires=15m0s"}, resp)

	w = get(t, router, "/api/v1/exercises/plank/media", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "unresolved media")

	failing, _ := setupRouter(t, "", fakeSigner{err: errors.New("no bucket")})
	w = get(t, failing, "/api/v1/exercises/squat/media", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetExerciseMedia_WithoutSigner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "exercises.json")
	require.NoError(t, os.WriteFile(path, []byte(testDataset), 0o644))
	svc := service.NewCuratorService(file.NewFileDatasetStore(path),
		service.NewValidator(schema.MustNew(schema.DefaultOptions())), nil)
	router := gin.New()
	SetupRoutes(router, "", NewExerciseHandler(svc, nil, zap.NewNop()))

	w := get(t, router, "/api/v1/exercises/squat/media", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"squat","gif":"Squat.gif"}`, w.Body.String())
}

func TestGetReport(t *testing.T) {
	router, path := setupRouter(t, "", fakeSigner{})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	w := get(t, router, "/api/v1/report", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Valid  bool           `json:"valid"`
		Report service.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.Equal(t, 4, resp.Report.Records)
	assert.Equal(t, []service.Collision{{ID: "curl", Positions: []int{2, 3}}}, resp.Report.Collisions)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "the API never writes the dataset")
}

func TestGetReport_BrokenDataset(t *testing.T) {
	router, path := setupRouter(t, "", fakeSigner{})
	require.NoError(t, os.WriteFile(path, []byte(`[{`), 0o644))

	w := get(t, router, "/api/v1/report", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "curator",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	router, _ := setupRouter(t, "s3cret", fakeSigner{})
	valid := signToken(t, "s3cret", jwt.SigningMethodHS256, time.Now().Add(time.Hour))

	assert.Equal(t, http.StatusOK, get(t, router, "/api/v1/report", valid).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, router, "/api/v1/report", "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		get(t, router, "/api/v1/report", signToken(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour))).Code)

	w := get(t, router, "/api/v1/report", signToken(t, "s3cret", jwt.SigningMethodHS256, time.Now().Add(-time.Minute)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.Header.Set("Authorization", "Token "+valid)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
