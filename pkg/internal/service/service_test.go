package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opshub/opsvault/pkg/configs"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/storage/db"
)

func TestMain(m *testing.M) {
	if err := configs.InitConfig(os.TempDir()); err != nil {
		fmt.Println("init config:", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// newTestDB 打开独立的内存数据库并建表.
func newTestDB(t *testing.T) *db.Client {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// 内存库只允许单连接，避免连接池拿到空库
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return &db.Client{DB: gdb}
}

// fakeBlob 内存实现的对象存储，可按键注入删除失败.
type fakeBlob struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failDelete map[string]bool
	deleted    []string
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{
		objects:    make(map[string][]byte),
		failDelete: make(map[string]bool),
	}
}

func (b *fakeBlob) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data

	return nil
}

func (b *fakeBlob) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failDelete[key] {
		return fmt.Errorf("simulated delete failure for %s", key)
	}

	delete(b.objects, key)
	b.deleted = append(b.deleted, key)

	return nil
}

func (b *fakeBlob) SignDownload(ctx context.Context, key string, expiry time.Duration, filename string) (string, error) {
	return fmt.Sprintf("https://blobs.example/%s?expires=%d&filename=%s",
		key, int(expiry.Seconds()), url.QueryEscape(filename)), nil
}

func (b *fakeBlob) HealthCheck(ctx context.Context) error { return nil }

func (b *fakeBlob) Close() error { return nil }

func (b *fakeBlob) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]

	return ok
}

func (b *fakeBlob) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.objects)
}

// mustUser 往用户表写一个用户.
func mustUser(t *testing.T, dbc *db.Client, email, name string) {
	t.Helper()

	if err := dbc.GetDB().Create(&model.User{Email: email, DisplayName: name}).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
}

// uploadTestFile 上传一段内容并返回文件信息.
func uploadTestFile(t *testing.T, svc *FileService, owner, name string, folderID *string, content string) string {
	t.Helper()

	info, err := svc.Upload(context.Background(), owner, &UploadInput{
		Name:        name,
		FolderID:    folderID,
		Size:        int64(len(content)),
		ContentType: "text/plain",
		Reader:      strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}

	return info.ID
}
