package pipeline

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/storage"
	"resource-portal-go/pkg/tasks"
)

type memoryStore struct {
	removed []string
	fail    bool
}

func (m *memoryStore) Put(context.Context, string, string, io.Reader, int64, string) (*storage.StoredObject, error) {
	return nil, errors.New("not used")
}

func (m *memoryStore) Remove(_ context.Context, key string) error {
	if m.fail {
		return errors.New("storage down")
	}
	m.removed = append(m.removed, key)
	return nil
}

func (m *memoryStore) PresignedURL(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

func (m *memoryStore) ListObjects(context.Context, string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func newRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "portal.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db))
	return repository.New(db)
}

func TestJanitor_RemovesUnreferencedObject(t *testing.T) {
	store := &memoryStore{}
	j := NewJanitor(store, newRepos(t).Resources)

	err := j.Process(context.Background(), tasks.StorageCleanupTask{ObjectKey: "college-resources/a.pdf", Reason: tasks.ReasonUploadRollback})
	require.NoError(t, err)
	assert.Equal(t, []string{"college-resources/a.pdf"}, store.removed)
}

func TestJanitor_KeepsReferencedObject(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := &model.User{Email: "a@college.edu", Password: "x", FullName: "A", Role: model.RoleStudent}
	require.NoError(t, repos.Users.Create(ctx, owner))
	require.NoError(t, repos.Resources.Create(ctx, &model.Resource{
		Title: "A", FileURL: "http://x", StorageKey: "college-resources/live.pdf",
		FileType: model.FileTypePDF, UploadedBy: owner.ID, Status: model.StatusPending,
	}))

	store := &memoryStore{}
	j := NewJanitor(store, repos.Resources)
	require.NoError(t, j.Process(ctx, tasks.StorageCleanupTask{ObjectKey: "college-resources/live.pdf"}))
	assert.Empty(t, store.removed)
}

func TestJanitor_PropagatesStorageErrors(t *testing.T) {
	j := NewJanitor(&memoryStore{fail: true}, newRepos(t).Resources)
	err := j.Process(context.Background(), tasks.StorageCleanupTask{ObjectKey: "k"})
	assert.Error(t, err)
}
