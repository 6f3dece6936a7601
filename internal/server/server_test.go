package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/hostsnap/internal/plugin"
	"github.com/HerbHall/hostsnap/internal/testutil"
)

type echoPlugin struct{}

func (echoPlugin) Name() string                         { return "echo" }
func (echoPlugin) Version() string                      { return "1.0.0" }
func (echoPlugin) Init(*viper.Viper, *zap.Logger) error { return nil }
func (echoPlugin) Start(context.Context) error          { return nil }
func (echoPlugin) Stop() error                          { return nil }
func (echoPlugin) Routes() []plugin.Route {
	return []plugin.Route{{
		Method: http.MethodGet,
		Path:   "/id",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			WriteJSON(w, http.StatusOK, map[string]string{"id": RequestIDFrom(r.Context())})
		},
	}}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := plugin.NewRegistry(testutil.Logger())
	if err := reg.Register(echoPlugin{}); err != nil {
		t.Fatal(err)
	}
	v := viper.New()
	v.Set("plugins.echo.enabled", true)
	if err := reg.InitAll(v); err != nil {
		t.Fatal(err)
	}

	promReg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "hostsnap_test_total", Help: "test"})
	promReg.MustRegister(c)
	c.Inc()

	return New("127.0.0.1:0", reg, promReg, testutil.Logger())
}

func TestWriteTimeout(t *testing.T) {
	reg := plugin.NewRegistry(testutil.Logger())
	tests := []struct {
		name string
		opts []Option
		want time.Duration
	}{
		{name: "default", want: DefaultWriteTimeout},
		{name: "configured", opts: []Option{WithWriteTimeout(10 * time.Minute)}, want: 10 * time.Minute},
		{name: "zero keeps default", opts: []Option{WithWriteTimeout(0)}, want: DefaultWriteTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("127.0.0.1:0", reg, nil, testutil.Logger(), tt.opts...)
			if got := s.WriteTimeout(); got != tt.want {
				t.Errorf("WriteTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get(VersionHeader) == "" {
		t.Error("missing version header")
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["service"] != "hostsnap" {
		t.Errorf("service = %v, want hostsnap", body["service"])
	}
}

func TestPlugins(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plugins", nil))

	var infos []plugin.Info
	if err := json.NewDecoder(w.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "echo" || !infos[0].Enabled {
		t.Errorf("plugins = %+v, want one enabled echo plugin", infos)
	}
}

func TestPluginRouteAndRequestID(t *testing.T) {
	srv := newTestServer(t)

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/echo/id", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		id := w.Header().Get(RequestIDHeader)
		if len(id) != 36 {
			t.Errorf("generated request id = %q, want a UUID", id)
		}
		var body map[string]string
		_ = json.NewDecoder(w.Body).Decode(&body)
		if body["id"] != id {
			t.Errorf("handler saw id %q, header has %q", body["id"], id)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/echo/id", nil)
		r.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, r)
		if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("request id = %q, want abc-123", got)
		}
	})
}

func TestUnknownRouteIsProblem(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q, want application/problem+json", ct)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("problem responses should carry a request id")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "hostsnap_test_total 1") {
		t.Errorf("metrics body missing test counter:\n%s", w.Body.String())
	}
}

func TestRequestIDFromEmptyContext(t *testing.T) {
	if got := RequestIDFrom(context.Background()); got != "" {
		t.Errorf("RequestIDFrom() = %q, want empty", got)
	}
}
