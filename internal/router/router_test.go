package router

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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-portal-go/internal/config"
	"resource-portal-go/internal/repository"
	"resource-portal-go/internal/service"
	"resource-portal-go/pkg/database"
	"resource-portal-go/pkg/kafka"
	"resource-portal-go/pkg/storage"
	"resource-portal-go/pkg/token"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, folder, fileName string, r io.Reader, _ int64, _ string) (*storage.StoredObject, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	key := storage.ObjectKey(folder, fileName)
	m.mu.Lock()
	m.objects[key] = body
	m.mu.Unlock()
	return &storage.StoredObject{Key: key, URL: "http://files.test/" + key}, nil
}

func (m *memoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "http://signed.test/" + key, nil
}

func (m *memoryStore) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, LastModified: time.Now()})
		}
	}
	return out, nil
}

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
	users  service.UserService
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQL(config.SQLConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "portal.db")})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, repository.Migrate(context.Background(), db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{MaxMultipartMemoryMB: 8},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://portal.test"}},
	}

	repos := repository.New(db)
	unread := repository.NewUnreadCountCache(rdb)
	store := &memoryStore{objects: map[string][]byte{}}
	queue := kafka.DiscardQueue{}
	jwtManager := token.NewJWTManager("router-test-secret", 1, 1)

	users := service.NewUserService(repos.Users, repository.NewTokenBlacklist(rdb), jwtManager)
	svc := Services{
		Users: users,
		Resources: service.NewResourceService(repos, store, queue, unread, service.ResourceOptions{
			MaxUploadBytes: 10 << 20,
			Folder:         "college-resources",
			PresignExpiry:  time.Hour,
			PDFViewerURL:   "https://viewer.test/?url=%s",
		}),
		Ratings:       service.NewRatingService(repos, unread),
		Favorites:     service.NewFavoriteService(repos),
		Notifications: service.NewNotificationService(repos.Notifications, unread, 50, time.Minute),
		Tags:          service.NewTagService(repos),
		Admin:         service.NewAdminService(repos, store, queue, unread, "college-resources"),
	}
	return &apiClient{t: t, engine: New(cfg, svc), users: users}
}

func (a *apiClient) do(method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *apiClient) login(email, password string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func (a *apiClient) registerAndLogin(email string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": "secret1", "full_name": "Student " + email})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return a.login(email, "secret1")
}

func (a *apiClient) adminToken() string {
	a.t.Helper()
	_, err := a.users.CreateAdmin(context.Background(), "admin@college.edu", "adminpass", "Admin")
	require.NoError(a.t, err)
	return a.login("admin@college.edu", "adminpass")
}

func (a *apiClient) upload(tok, title, contentType string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(a.t, mw.WriteField("title", title))
	require.NoError(a.t, mw.WriteField("description", "notes"))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="notes.pdf"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(a.t, err)
	_, err = part.Write([]byte("%PDF-1.4 test"))
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/resources/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAuthFlow(t *testing.T) {
	api := newAPI(t)

	w := api.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@college.edu", "password": "123", "full_name": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	tok := api.registerAndLogin("a@college.edu")

	w = api.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@college.edu", "password": "secret1", "full_name": "A"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@college.edu", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodGet, "/api/auth/profile", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@college.edu", decode(t, w)["user"].(map[string]interface{})["email"])
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(http.MethodPost, "/api/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/api/auth/profile", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutEndsRefreshToken(t *testing.T) {
	api := newAPI(t)
	api.registerAndLogin("b@college.edu")

	w := api.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "b@college.edu", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	access := body["token"].(string)
	refresh := body["refresh_token"].(string)

	w = api.do(http.MethodPost, "/api/auth/refresh-token", "", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, "/api/auth/refresh-token", "", gin.H{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResourceLifecycle(t *testing.T) {
	api := newAPI(t)
	student := api.registerAndLogin("owner@college.edu")
	other := api.registerAndLogin("other@college.edu")
	admin := api.adminToken()

	w := api.upload(student, "Calculus notes", "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.upload(admin, "Admin file", "application/pdf")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.upload(student, "Calculus notes", "application/pdf")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode(t, w)["resource"].(map[string]interface{})
	id := res["id"].(string)
	assert.Equal(t, "pending", res["status"])
	assert.Equal(t, "pdf", res["file_type"])

	// Pending resources are hidden from other students.
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/resources/"+id, other, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/resources/"+id, student, nil).Code)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/resources/%s/rate", id), other, gin.H{"rating": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, "/api/resources/"+id+"/approve", student, nil).Code)
	w = api.do(http.MethodPut, "/api/resources/"+id+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/resources/notifications/unread-count", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = api.do(http.MethodPut, "/api/resources/"+id+"/reject", admin, gin.H{"reason": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodGet, "/api/resources/approved", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["resources"], 1)

	w = api.do(http.MethodGet, "/api/resources/search?q=calc&fileType=pdf", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["resources"], 1)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/resources/search?q=", other, nil).Code)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/resources/%s/rate", id), student, gin.H{"rating": 5})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = api.do(http.MethodPost, fmt.Sprintf("/api/resources/%s/rate", id), other, gin.H{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(http.MethodPost, fmt.Sprintf("/api/resources/%s/rate", id), other, gin.H{"rating": 4, "review": "Clear"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/resources/"+id+"/ratings", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ratings := decode(t, w)["ratings"].([]interface{})
	require.Len(t, ratings, 1)
	assert.Equal(t, "Student other@college.edu", ratings[0].(map[string]interface{})["user_name"])

	w = api.do(http.MethodPost, "/api/resources/"+id+"/favorite", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["is_favorite"])
	w = api.do(http.MethodGet, "/api/resources/favorites/my-favorites", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["resources"], 1)

	w = api.do(http.MethodGet, "/api/resources/"+id+"/view", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://viewer.test/?url="))

	w = api.do(http.MethodPost, "/api/resources/"+id+"/download", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["download_url"])

	w = api.do(http.MethodGet, "/api/resources/"+id, other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)["resource"].(map[string]interface{})
	assert.EqualValues(t, 1, got["view_count"])
	assert.EqualValues(t, 1, got["download_count"])
	assert.EqualValues(t, 4, got["average_rating"])

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/resources/"+id, student, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/resources/"+id, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/resources/"+id, admin, nil).Code)
}

func TestTagsAndAdmin(t *testing.T) {
	api := newAPI(t)
	student := api.registerAndLogin("s@college.edu")
	admin := api.adminToken()

	w := api.do(http.MethodGet, "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["tags"], len(repository.DefaultTags))

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/tags", student, gin.H{"name": "Robotics"}).Code)
	w = api.do(http.MethodPost, "/api/tags", admin, gin.H{"name": "Robotics", "color": "#aabbcc"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tag := decode(t, w)["tag"].(map[string]interface{})
	assert.Equal(t, "robotics", tag["slug"])
	assert.Equal(t, "#AABBCC", tag["color"])
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/tags", admin, gin.H{"name": "Robotics"}).Code)

	w = api.do(http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["stats"].(map[string]interface{})
	assert.EqualValues(t, 2, stats["total_users"])

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/admin/users", student, nil).Code)
	w = api.do(http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode(t, w)["users"].([]interface{})
	require.Len(t, users, 2)

	var studentID string
	for _, u := range users {
		if m := u.(map[string]interface{}); m["email"] == "s@college.edu" {
			studentID = m["id"].(string)
		}
	}
	require.NotEmpty(t, studentID)
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/admin/users/"+studentID, admin, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/auth/profile", student, nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	api := newAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/tags", nil)
	req.Header.Set("Origin", "http://portal.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)

	assert.Equal(t, "http://portal.test", w.Header().Get("Access-Control-Allow-Origin"))
}
