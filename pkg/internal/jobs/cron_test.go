package jobs

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opshub/opsvault/pkg/configs"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/storage"
	"github.com/opshub/opsvault/pkg/internal/storage/db"
	"github.com/opshub/opsvault/pkg/metrics"
	"github.com/opshub/opsvault/pkg/scheduler"
)

func TestMain(m *testing.M) {
	if err := configs.InitConfig(os.TempDir()); err != nil {
		fmt.Println("init config:", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// newTestManager 构造只带数据库的存储管理器.
func newTestManager(t *testing.T) *storage.Manager {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
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

	return storage.NewManager(&db.Client{DB: gdb}, nil, nil, nil)
}

func strPtr(s string) *string { return &s }

func TestRegisterCronJobs(t *testing.T) {
	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	t.Cleanup(func() { _ = sched.Shutdown() })

	if err := RegisterCronJobs(sched, newTestManager(t)); err != nil {
		t.Fatalf("register jobs: %v", err)
	}

	if err := RegisterCronJobs(nil, nil); err == nil {
		t.Fatal("nil scheduler must be rejected")
	}
}

func TestExpiredLinkSweep(t *testing.T) {
	mgr := newTestManager(t)
	gdb := mgr.GetDBClient().GetDB()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	rows := []model.File{
		{ID: "fl_expired", Name: "a.txt", OwnerID: "alice@example.com", BlobKey: "k1",
			IsPublic: true, PublicToken: strPtr("tok-expired"), PublicExpiresAt: &past},
		{ID: "fl_active", Name: "b.txt", OwnerID: "alice@example.com", BlobKey: "k2",
			IsPublic: true, PublicToken: strPtr("tok-active"), PublicExpiresAt: &future},
		{ID: "fl_private", Name: "c.txt", OwnerID: "alice@example.com", BlobKey: "k3"},
	}
	for i := range rows {
		if err := gdb.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed %s: %v", rows[i].ID, err)
		}
	}

	runExpiredLinkSweep(context.Background(), mgr)

	var swept model.File
	if err := gdb.Where("id = ?", "fl_expired").First(&swept).Error; err != nil {
		t.Fatalf("load swept: %v", err)
	}

	if swept.IsPublic || swept.PublicToken != nil || swept.PublicExpiresAt != nil {
		t.Fatalf("expired link not cleaned: %+v", swept)
	}

	var active model.File
	if err := gdb.Where("id = ?", "fl_active").First(&active).Error; err != nil {
		t.Fatalf("load active: %v", err)
	}

	if !active.IsPublic || active.PublicToken == nil {
		t.Fatalf("active link must survive the sweep: %+v", active)
	}
}

func TestUsageSnapshot(t *testing.T) {
	mgr := newTestManager(t)
	gdb := mgr.GetDBClient().GetDB()

	rows := []model.File{
		{ID: "fl_1", Name: "a.txt", OwnerID: "alice@example.com", BlobKey: "s1", BlobSize: 10,
			IsPublic: true, PublicToken: strPtr("tok-1")},
		{ID: "fl_2", Name: "b.txt", OwnerID: "alice@example.com", BlobKey: "s2", BlobSize: 5},
	}
	for i := range rows {
		if err := gdb.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed %s: %v", rows[i].ID, err)
		}
	}

	runUsageSnapshot(context.Background(), mgr)

	if got := testutil.ToFloat64(metrics.VaultBytesStored); got != 15 {
		t.Fatalf("bytes stored = %v, want 15", got)
	}

	if got := testutil.ToFloat64(metrics.VaultFilesTotal); got != 2 {
		t.Fatalf("files total = %v, want 2", got)
	}

	if got := testutil.ToFloat64(metrics.VaultPublicLinksActive); got != 1 {
		t.Fatalf("active links = %v, want 1", got)
	}
}
