package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/configs"
)

func TestInitMetricsAndServe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := configs.MetricsConfig{
		Enabled:        true,
		RuntimeMetrics: true,
		CustomMetrics:  []string{"placeholder_metric"},
		Pprof:          true,
	}

	if err := InitMetrics(cfg); err != nil {
		t.Fatalf("init metrics: %v", err)
	}

	VaultFilesTotal.Set(3)

	engine := gin.New()
	if err := StartMetricsServer(cfg, engine); err != nil {
		t.Fatalf("start metrics server: %v", err)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("metrics code = %d", w.Code)
	}

	if !strings.Contains(w.Body.String(), "vault_files_total 3") {
		t.Fatalf("metrics body missing domain gauge:\n%s", w.Body.String())
	}

	// pprof 开关打开时注册调试端点
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("pprof code = %d", w.Code)
	}
}

func TestInitMetricsDisabledIsNoop(t *testing.T) {
	if err := InitMetrics(configs.MetricsConfig{Enabled: false}); err != nil {
		t.Fatalf("disabled init: %v", err)
	}

	engine := gin.New()
	if err := StartMetricsServer(configs.MetricsConfig{Enabled: false}, engine); err != nil {
		t.Fatalf("disabled serve: %v", err)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("disabled metrics route code = %d, want 404", w.Code)
	}
}
