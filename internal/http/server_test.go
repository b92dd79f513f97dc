package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"little-stars/internal/domain"
	"little-stars/internal/repository/sqlite"
	"little-stars/internal/service"
	"little-stars/internal/storage"
)

type testServer struct {
	*httptest.Server
	auth    service.AuthService
	storage *memoryStorage
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStorage) PutObject(_ context.Context, bucket, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	return storage.Location(bucket, key), nil
}

func (m *memoryStorage) GetObjectURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.example.test/%s", bucket, key), nil
}

func (m *memoryStorage) DeleteObject(_ context.Context, _ string, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func newTestServer(t *testing.T, withPhotos bool) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	students := sqlite.NewStudentRepository(db)
	sessions := sqlite.NewSessionRepository(db)
	require.NoError(t, students.Init(ctx))
	require.NoError(t, sessions.Init(ctx))
	require.NoError(t, service.SeedStudents(ctx, students, domain.DemoStudent()))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	authSvc, err := service.NewAuthService(students, sessions, nil, service.AuthConfig{
		JWTSecret: "test-secret",
		Issuer:    "test-issuer",
		TokenTTL:  time.Hour,
		DemoCode:  "1234",
		CodeCost:  bcrypt.MinCost,
	}, logger)
	require.NoError(t, err)

	store := &memoryStorage{}
	var photos service.PhotoService
	if withPhotos {
		photos = service.NewPhotoService(students, store, service.PhotoConfig{Bucket: "photos", KeyPrefix: "students"}, logger)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(authSvc, photos, logger).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, auth: authSvc, storage: store}
}

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func doReq(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, srv *testServer) LoginResponse {
	t.Helper()
	resp := doReq(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{"mobile": "9876543210", "otp": "1234"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLoginMeLogout(t *testing.T) {
	srv := newTestServer(t, false)

	out := login(t, srv)
	require.Equal(t, "Aarav Patel", out.User.Name)
	require.Equal(t, "12", out.User.RollNumber)
	require.NotEmpty(t, out.Token)
	_, err := time.Parse(time.RFC3339, out.ExpiresAt)
	require.NoError(t, err)

	resp := doReq(t, http.MethodGet, srv.URL+"/api/me", out.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	require.Equal(t, "STU12345", me.ID)

	resp = doReq(t, http.MethodPost, srv.URL+"/api/auth/logout", out.Token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doReq(t, http.MethodGet, srv.URL+"/api/me", out.Token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// logout stays idempotent for revoked, garbage and missing tokens
	for _, token := range []string{out.Token, "garbage", ""} {
		resp = doReq(t, http.MethodPost, srv.URL+"/api/auth/logout", token, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
}

func TestLoginRejections(t *testing.T) {
	srv := newTestServer(t, false)

	resp := doReq(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{"mobile": "9876543210", "otp": "0000"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doReq(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{"mobile": "9876543210"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMeRequiresToken(t *testing.T) {
	srv := newTestServer(t, false)

	resp := doReq(t, http.MethodGet, srv.URL+"/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doReq(t, http.MethodGet, srv.URL+"/api/me", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthAndCORS(t *testing.T) {
	srv := newTestServer(t, false)

	resp := doReq(t, http.MethodGet, srv.URL+"/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = doReq(t, http.MethodOptions, srv.URL+"/api/auth/login", "", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestPhotoRoutesWithoutStorage(t *testing.T) {
	srv := newTestServer(t, false)
	out := login(t, srv)

	resp := doReq(t, http.MethodGet, srv.URL+"/api/students/STU12345/photo", out.Token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func uploadPhoto(t *testing.T, url, token, contentType string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="me.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPut, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPhotoUploadAndRedirect(t *testing.T) {
	srv := newTestServer(t, true)
	out := login(t, srv)

	// seeded profile points at an external avatar
	resp := doReq(t, http.MethodGet, srv.URL+"/api/students/STU12345/photo", out.Token, nil)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	require.Equal(t, domain.DemoStudent().PhotoURL, resp.Header.Get("Location"))

	resp = uploadPhoto(t, srv.URL+"/api/students/STU12345/photo", out.Token, "image/png", []byte("png"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, srv.storage.objects, 1)

	resp = doReq(t, http.MethodGet, srv.URL+"/api/students/STU12345/photo", out.Token, nil)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Location"), "https://photos.example.test/students/STU12345/")

	resp = doReq(t, http.MethodGet, srv.URL+"/api/me", out.Token, nil)
	var me UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	require.Equal(t, "/api/students/STU12345/photo", me.PhotoURL)

	resp = uploadPhoto(t, srv.URL+"/api/students/STU12345/photo", out.Token, "image/gif", []byte("gif"))
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp = uploadPhoto(t, srv.URL+"/api/students/OTHER/photo", out.Token, "image/png", []byte("png"))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", bearerToken("Bearer abc"))
	require.Equal(t, "abc", bearerToken("bearer  abc "))
	require.Empty(t, bearerToken("Basic abc"))
	require.Empty(t, bearerToken("Bearer "))
	require.Empty(t, bearerToken(""))
}
