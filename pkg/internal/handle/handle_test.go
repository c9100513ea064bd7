package handle_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opshub/opsvault/pkg/configs"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/router"
	"github.com/opshub/opsvault/pkg/internal/storage"
	"github.com/opshub/opsvault/pkg/internal/storage/db"
	"github.com/opshub/opsvault/pkg/middleware"
)

const (
	testOwner    = "alice@example.com"
	testStranger = "eve@example.com"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if err := configs.InitConfig(os.TempDir()); err != nil {
		fmt.Println("init config:", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// memBlob 内存对象存储.
type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memBlob) Put(ctx context.Context, key string, r io.Reader, size int64, ct string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data

	return nil
}

func (b *memBlob) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)

	return nil
}

func (b *memBlob) SignDownload(ctx context.Context, key string, expiry time.Duration, filename string) (string, error) {
	return "https://blobs.example/" + key, nil
}

func (b *memBlob) HealthCheck(ctx context.Context) error { return nil }

func (b *memBlob) Close() error { return nil }

// newTestServer 组装带存储中间件和全部路由的引擎.
func newTestServer(t *testing.T) (*gin.Engine, *db.Client) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	dbc := &db.Client{DB: gdb}

	for _, u := range []model.User{
		{Email: testOwner, DisplayName: "Alice"},
		{Email: testStranger, DisplayName: "Eve"},
	} {
		if err := gdb.Create(&u).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	manager := storage.NewManager(dbc, &memBlob{objects: make(map[string][]byte)}, nil, nil)

	e := gin.New()
	e.Use(middleware.StorageMiddleware(manager))

	apiGroup := e.Group("/api/v1")
	router.RegisterAPIRoutes(apiGroup)
	router.RegisterPublicRoutes(apiGroup)

	return e, dbc
}

// doJSON 发送 JSON 请求并解析 {success, data/message} 信封.
func doJSON(t *testing.T, e *gin.Engine, user, method, path string, body any) (int, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}

		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if user != "" {
		req.Header.Set("X-User", user)
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}

	return w.Code, envelope
}

// uploadMultipart 发送 multipart 上传请求.
func uploadMultipart(t *testing.T, e *gin.Engine, user, name, folderID, content string) (int, map[string]json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if folderID != "" {
		_ = mw.WriteField("folder_id", folderID)
	}

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}

	if _, err := io.Copy(fw, strings.NewReader(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}

	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User", user)

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}

	return w.Code, envelope
}

func dataField(t *testing.T, envelope map[string]json.RawMessage, field string) string {
	t.Helper()

	var data map[string]json.RawMessage
	if err := json.Unmarshal(envelope["data"], &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}

	var v string
	if err := json.Unmarshal(data[field], &v); err != nil {
		t.Fatalf("decode field %s: %v", field, err)
	}

	return v
}

func TestFolderEndpoints(t *testing.T) {
	e, _ := newTestServer(t)

	code, envelope := doJSON(t, e, testOwner, http.MethodPost, "/api/v1/folders", gin.H{"name": "ops"})
	if code != http.StatusCreated {
		t.Fatalf("create code = %d, body %v", code, envelope)
	}

	folderID := dataField(t, envelope, "id")

	// 同级重名 409，错误体为 {success:false, message}
	code, envelope = doJSON(t, e, testOwner, http.MethodPost, "/api/v1/folders", gin.H{"name": "ops"})
	if code != http.StatusConflict {
		t.Fatalf("duplicate code = %d", code)
	}

	if string(envelope["success"]) != "false" || len(envelope["message"]) == 0 {
		t.Fatalf("error envelope = %v", envelope)
	}

	// 重命名
	code, _ = doJSON(t, e, testOwner, http.MethodPatch, "/api/v1/folders/"+folderID, gin.H{"name": "platform"})
	if code != http.StatusOK {
		t.Fatalf("rename code = %d", code)
	}

	// 详情带面包屑
	code, envelope = doJSON(t, e, testOwner, http.MethodGet, "/api/v1/folders/"+folderID, nil)
	if code != http.StatusOK {
		t.Fatalf("get code = %d", code)
	}

	if !strings.Contains(string(envelope["data"]), `"/platform"`) {
		t.Fatalf("get body = %s", envelope["data"])
	}

	// 陌生人不可见
	code, _ = doJSON(t, e, testStranger, http.MethodGet, "/api/v1/folders/"+folderID, nil)
	if code != http.StatusNotFound {
		t.Fatalf("stranger get code = %d", code)
	}

	code, _ = doJSON(t, e, testOwner, http.MethodDelete, "/api/v1/folders/"+folderID, nil)
	if code != http.StatusOK {
		t.Fatalf("delete code = %d", code)
	}
}

func TestUploadDownloadEndpoints(t *testing.T) {
	e, _ := newTestServer(t)

	code, envelope := uploadMultipart(t, e, testOwner, "notes.txt", "", "hello")
	if code != http.StatusCreated {
		t.Fatalf("upload code = %d, body %v", code, envelope)
	}

	fileID := dataField(t, envelope, "id")

	// 所有者可解析下载地址
	code, envelope = doJSON(t, e, testOwner, http.MethodGet, "/api/v1/files/"+fileID+"/download", nil)
	if code != http.StatusOK {
		t.Fatalf("download code = %d", code)
	}

	if !strings.Contains(string(envelope["data"]), "https://blobs.example/") {
		t.Fatalf("download body = %s", envelope["data"])
	}

	// 未授权用户 403
	code, _ = doJSON(t, e, testStranger, http.MethodGet, "/api/v1/files/"+fileID+"/download", nil)
	if code != http.StatusForbidden {
		t.Fatalf("stranger download code = %d", code)
	}

	// 不存在 404
	code, _ = doJSON(t, e, testOwner, http.MethodGet, "/api/v1/files/fl_missing/download", nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing download code = %d", code)
	}
}

func TestUploadOversizeReturns413(t *testing.T) {
	e, _ := newTestServer(t)

	saved := configs.GetConfig().Vault.MaxUploadSizeMB
	configs.GetConfig().Vault.MaxUploadSizeMB = 0

	t.Cleanup(func() { configs.GetConfig().Vault.MaxUploadSizeMB = saved })

	code, envelope := uploadMultipart(t, e, testOwner, "big.bin", "", "some content")
	if code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversize code = %d, body %v", code, envelope)
	}
}

func TestShareEndpoints(t *testing.T) {
	e, _ := newTestServer(t)

	_, envelope := uploadMultipart(t, e, testOwner, "a.txt", "", "x")
	fileID := dataField(t, envelope, "id")

	code, envelope := doJSON(t, e, testOwner, http.MethodPost, "/api/v1/share",
		gin.H{"file_id": fileID, "shared_with": testStranger, "permission": "view"})
	if code != http.StatusCreated {
		t.Fatalf("grant code = %d, body %v", code, envelope)
	}

	shareID := dataField(t, envelope, "id")

	// 被授权人可下载
	code, _ = doJSON(t, e, testStranger, http.MethodGet, "/api/v1/files/"+fileID+"/download", nil)
	if code != http.StatusOK {
		t.Fatalf("grantee download code = %d", code)
	}

	// shared-with-me 列表
	code, envelope = doJSON(t, e, testStranger, http.MethodGet, "/api/v1/shared-with-me", nil)
	if code != http.StatusOK || !strings.Contains(string(envelope["data"]), "a.txt") {
		t.Fatalf("shared-with-me = %d %s", code, envelope["data"])
	}

	// 非授权人撤销 404
	code, _ = doJSON(t, e, testStranger, http.MethodDelete, "/api/v1/share/"+shareID, nil)
	if code != http.StatusNotFound {
		t.Fatalf("grantee revoke code = %d", code)
	}

	code, _ = doJSON(t, e, testOwner, http.MethodDelete, "/api/v1/share/"+shareID, nil)
	if code != http.StatusOK {
		t.Fatalf("revoke code = %d", code)
	}

	// 撤销后下载回到 403
	code, _ = doJSON(t, e, testStranger, http.MethodGet, "/api/v1/files/"+fileID+"/download", nil)
	if code != http.StatusForbidden {
		t.Fatalf("post-revoke download code = %d", code)
	}
}

func TestPublicEndpoints(t *testing.T) {
	e, dbc := newTestServer(t)

	_, envelope := uploadMultipart(t, e, testOwner, "report.pdf", "", "pdf")
	fileID := dataField(t, envelope, "id")

	code, envelope := doJSON(t, e, testOwner, http.MethodPost, "/api/v1/files/"+fileID+"/public", gin.H{"ttl_hours": 24})
	if code != http.StatusCreated {
		t.Fatalf("issue code = %d, body %v", code, envelope)
	}

	token := dataField(t, envelope, "token")

	// 签发响应带可直接访问的链接地址
	if url := dataField(t, envelope, "url"); url != "/api/v1/public/"+token+"/info" {
		t.Fatalf("issue url = %q", url)
	}

	// 公共接口无需用户
	code, envelope = doJSON(t, e, "", http.MethodGet, "/api/v1/public/"+token+"/info", nil)
	if code != http.StatusOK {
		t.Fatalf("info code = %d", code)
	}

	if !strings.Contains(string(envelope["data"]), "report.pdf") || strings.Contains(string(envelope["data"]), "blob") {
		t.Fatalf("info body = %s", envelope["data"])
	}

	code, _ = doJSON(t, e, "", http.MethodGet, "/api/v1/public/"+token+"/download", nil)
	if code != http.StatusOK {
		t.Fatalf("public download code = %d", code)
	}

	// 过期后 410
	past := time.Now().UTC().Add(-time.Hour)
	dbc.GetDB().Model(&model.File{}).Where("id = ?", fileID).Update("public_expires_at", past)

	code, _ = doJSON(t, e, "", http.MethodGet, "/api/v1/public/"+token+"/info", nil)
	if code != http.StatusGone {
		t.Fatalf("expired code = %d", code)
	}

	// 撤销后 404
	dbc.GetDB().Model(&model.File{}).Where("id = ?", fileID).Update("public_expires_at", nil)

	code, _ = doJSON(t, e, testOwner, http.MethodDelete, "/api/v1/files/"+fileID+"/public", nil)
	if code != http.StatusOK {
		t.Fatalf("revoke code = %d", code)
	}

	code, _ = doJSON(t, e, "", http.MethodGet, "/api/v1/public/"+token+"/info", nil)
	if code != http.StatusNotFound {
		t.Fatalf("revoked info code = %d", code)
	}
}
