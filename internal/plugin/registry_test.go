package plugin

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/hostsnap/internal/testutil"
)

type stubPlugin struct {
	name    string
	initErr error
	calls   *[]string
	cfg     *viper.Viper
}

func (p *stubPlugin) Name() string        { return p.name }
func (p *stubPlugin) Version() string     { return "0.1.0" }
func (p *stubPlugin) Description() string { return p.name + " stub" }

func (p *stubPlugin) Init(cfg *viper.Viper, _ *zap.Logger) error {
	p.cfg = cfg
	*p.calls = append(*p.calls, "init "+p.name)
	return p.initErr
}

func (p *stubPlugin) Start(context.Context) error {
	*p.calls = append(*p.calls, "start "+p.name)
	return nil
}

func (p *stubPlugin) Stop() error {
	*p.calls = append(*p.calls, "stop "+p.name)
	return nil
}

func (p *stubPlugin) Routes() []Route {
	return []Route{{Method: http.MethodGet, Path: "/ping", Handler: func(http.ResponseWriter, *http.Request) {}}}
}

func TestRegisterDuplicate(t *testing.T) {
	var calls []string
	r := NewRegistry(testutil.Logger())
	if err := r.Register(&stubPlugin{name: "a", calls: &calls}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(&stubPlugin{name: "a", calls: &calls}); err == nil {
		t.Error("Register() duplicate should fail")
	}
}

func TestLifecycleSkipsDisabled(t *testing.T) {
	var calls []string
	r := NewRegistry(testutil.Logger())
	_ = r.Register(&stubPlugin{name: "a", calls: &calls})
	_ = r.Register(&stubPlugin{name: "b", calls: &calls})

	v := viper.New()
	v.Set("plugins.a.enabled", true)
	v.Set("plugins.a.limit", 3)
	v.Set("plugins.b.enabled", false)

	if err := r.InitAll(v); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	r.StopAll()

	want := []string{"init a", "start a", "stop a"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}

	p, _ := r.Get("a")
	if got := p.(*stubPlugin).cfg.GetInt("limit"); got != 3 {
		t.Errorf("plugin config limit = %d, want 3", got)
	}

	routes := r.AllRoutes()
	if _, ok := routes["b"]; ok {
		t.Error("AllRoutes() includes disabled plugin b")
	}
	if len(routes["a"]) != 1 {
		t.Errorf("AllRoutes()[a] = %d routes, want 1", len(routes["a"]))
	}

	infos := r.Infos()
	if len(infos) != 2 || !infos[0].Enabled || infos[1].Enabled {
		t.Errorf("Infos() = %+v, want a enabled and b disabled", infos)
	}
	if infos[0].Description != "a stub" {
		t.Errorf("Description = %q, want %q", infos[0].Description, "a stub")
	}
}

func TestInitAllError(t *testing.T) {
	var calls []string
	initErr := errors.New("bad settings")
	r := NewRegistry(testutil.Logger())
	_ = r.Register(&stubPlugin{name: "a", calls: &calls, initErr: initErr})

	v := viper.New()
	v.Set("plugins.a.enabled", true)
	if err := r.InitAll(v); !errors.Is(err, initErr) {
		t.Errorf("InitAll() error = %v, want %v", err, initErr)
	}
}

func TestAllPreservesOrder(t *testing.T) {
	var calls []string
	r := NewRegistry(nil)
	for _, n := range []string{"c", "a", "b"} {
		_ = r.Register(&stubPlugin{name: n, calls: &calls})
	}
	all := r.All()
	for i, want := range []string{"c", "a", "b"} {
		if all[i].Name() != want {
			t.Errorf("All()[%d] = %q, want %q", i, all[i].Name(), want)
		}
	}
}
