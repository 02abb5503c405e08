package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/database"
	"resource-portal-go/pkg/hash"
	"resource-portal-go/pkg/storage"
	"resource-portal-go/pkg/tasks"
	"resource-portal-go/pkg/token"
)

type fakeStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	modified   map[string]time.Time
	failPut    bool
	failRemove bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, modified: map[string]time.Time{}}
}

// add stores key as if it had been written age ago.
func (f *fakeStore) add(key string, age time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = []byte("x")
	f.modified[key] = time.Now().Add(-age)
}

func (f *fakeStore) Put(_ context.Context, folder, fileName string, r io.Reader, _ int64, _ string) (*storage.StoredObject, error) {
	if f.failPut {
		return nil, errors.New("storage down")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	key := storage.ObjectKey(folder, fileName)
	f.mu.Lock()
	f.objects[key] = body
	f.modified[key] = time.Now()
	f.mu.Unlock()
	return &storage.StoredObject{Key: key, URL: "http://files.test/" + key}, nil
}

func (f *fakeStore) Remove(_ context.Context, key string) error {
	if f.failRemove {
		return errors.New("storage down")
	}
	f.mu.Lock()
	delete(f.objects, key)
	delete(f.modified, key)
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "http://signed.test/" + key, nil
}

func (f *fakeStore) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ObjectInfo
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, LastModified: f.modified[k]})
		}
	}
	return out, nil
}

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []tasks.StorageCleanupTask
}

func (q *fakeQueue) EnqueueCleanup(_ context.Context, task tasks.StorageCleanupTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

type testEnv struct {
	db     *gorm.DB
	repos  *repository.Repositories
	store  *fakeStore
	queue  *fakeQueue
	jwt    *token.JWTManager
	unread repository.UnreadCountCache

	users         UserService
	resources     ResourceService
	ratings       RatingService
	favorites     FavoriteService
	notifications NotificationService
	tags          TagService
	admin         AdminService
}

const testFolder = "college-resources"

// newTestEnv builds the services on a single-connection SQLite database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithPool(t, filepath.Join(t.TempDir(), "portal.db"), 1)
}

// newConcurrentTestEnv uses a connection pool so goroutines really run side by
// side. Transactions begin IMMEDIATE and wait on the write lock instead of
// failing with "database is locked".
func newConcurrentTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithPool(t, database.SQLiteDSN(filepath.Join(t.TempDir(), "portal.db")), 8)
}

func newTestEnvWithPool(t *testing.T, dsn string, maxOpen int) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(maxOpen)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repos := repository.New(db)
	unread := repository.NewUnreadCountCache(rdb)
	env := &testEnv{
		db:     db,
		repos:  repos,
		store:  newFakeStore(),
		queue:  &fakeQueue{},
		jwt:    token.NewJWTManager("test-secret", 1, 7),
		unread: unread,
	}
	env.users = NewUserService(repos.Users, repository.NewTokenBlacklist(rdb), env.jwt)
	env.resources = NewResourceService(repos, env.store, env.queue, unread, ResourceOptions{
		MaxUploadBytes: 10 << 20,
		Folder:         testFolder,
		PresignExpiry:  time.Hour,
		PDFViewerURL:   "https://viewer.test/?url=%s",
	})
	env.ratings = NewRatingService(repos, unread)
	env.favorites = NewFavoriteService(repos)
	env.notifications = NewNotificationService(repos.Notifications, unread, 50, time.Minute)
	env.tags = NewTagService(repos)
	env.admin = NewAdminService(repos, env.store, env.queue, unread, testFolder)
	return env
}

func (e *testEnv) user(t *testing.T, name string, role model.Role) *model.User {
	t.Helper()
	hashed, err := hash.HashPassword("password")
	require.NoError(t, err)
	u := &model.User{Email: name + "@college.edu", Password: hashed, FullName: name, Role: role}
	require.NoError(t, e.repos.Users.Create(context.Background(), u))
	return u
}

func pdfUpload(title string) UploadInput {
	body := []byte("%PDF-1.4 test")
	return UploadInput{
		Title:       title,
		Description: "lecture notes",
		FileName:    strings.ReplaceAll(title, " ", "_") + ".pdf",
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	}
}

func (e *testEnv) upload(t *testing.T, owner *model.User, title string) *model.Resource {
	t.Helper()
	res, err := e.resources.Upload(context.Background(), owner, pdfUpload(title))
	require.NoError(t, err)
	return res
}

func (e *testEnv) approved(t *testing.T, owner, admin *model.User, title string) *model.Resource {
	t.Helper()
	res := e.upload(t, owner, title)
	res, err := e.resources.Approve(context.Background(), admin, res.ID)
	require.NoError(t, err)
	return res
}

func (e *testEnv) notificationsOf(t *testing.T, u *model.User) []model.Notification {
	t.Helper()
	list, err := e.notifications.List(context.Background(), u, false)
	require.NoError(t, err)
	return list
}

func (e *testEnv) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}
