package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/storage"
)

// faultyStore wraps a real store and fails selected operations.
type faultyStore struct {
	storage.Store
	copyErr   map[string]error
	deleteErr map[string]error
	listErr   error
	// onDelete runs after every successful Delete.
	onDelete func()
}

func (f *faultyStore) Copy(ctx context.Context, src, dst string) error {
	if err := f.copyErr[src]; err != nil {
		return err
	}
	return f.Store.Copy(ctx, src, dst)
}

func (f *faultyStore) Delete(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if err := f.deleteErr[p]; err != nil {
			return err
		}
	}
	if err := f.Store.Delete(ctx, paths); err != nil {
		return err
	}
	if f.onDelete != nil {
		f.onDelete()
	}
	return nil
}

func (f *faultyStore) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.List(ctx, prefix)
}

func newFaultyStore(t *testing.T) (*faultyStore, *storage.LocalStore) {
	t.Helper()
	local, err := storage.NewLocalStore(t.TempDir(), "/static/uploads")
	require.NoError(t, err)
	return &faultyStore{Store: local, copyErr: map[string]error{}, deleteErr: map[string]error{}}, local
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Post{}, &models.Hashtag{}, &models.Comment{},
		&models.Like{}, &models.UploadedFile{},
	))
	return db
}

// putTemp stores a temp image and its bookkeeping row, returning path and URL.
func putTemp(t *testing.T, store storage.Store, uploads repository.UploadRepository, session string) (string, string) {
	t.Helper()
	path := storage.NewTempImagePath(session, "png")
	require.NoError(t, store.Put(context.Background(), path, strings.NewReader("png"), 3, "image/png"))
	if uploads != nil {
		require.NoError(t, uploads.Create(context.Background(), &models.UploadedFile{
			ID: uuid.NewString(), SessionID: session, Name: filepath.Base(path), Path: path,
			URL: store.PublicURL(path), Size: 3, UploadedAt: time.Now(), IsTemporary: true,
		}))
	}
	return path, store.PublicURL(path)
}

func exists(t *testing.T, local *storage.LocalStore, path string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(local.Root(), filepath.FromSlash(path)))
	return err == nil
}

func permanentOf(t *testing.T, path string) string {
	t.Helper()
	p, ok := storage.PermanentPathFor(path)
	require.True(t, ok)
	return p
}
