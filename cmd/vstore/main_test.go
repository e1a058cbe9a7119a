package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/vango-dev/store/internal/config"
	"github.com/vango-dev/store/internal/errors"
	"github.com/vango-dev/store/pkg/persist"
	"github.com/vango-dev/store/pkg/store"
)

func codeOf(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		arg  string
		raw  bool
		want any
	}{
		{"42", false, float64(42)},
		{`"hi"`, false, "hi"},
		{"true", false, true},
		{"null", false, nil},
		{"hello", false, "hello"},
		{"42", true, "42"},
	}

	for _, tt := range tests {
		if got := parseValue(tt.arg, tt.raw); got != tt.want {
			t.Errorf("parseValue(%q, %v) = %#v, want %#v", tt.arg, tt.raw, got, tt.want)
		}
	}

	obj, ok := parseValue(`{"items":1}`, false).(map[string]any)
	if !ok || obj["items"] != float64(1) {
		t.Errorf("parseValue(object) = %#v", obj)
	}
}

func TestOpenBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name   string
		driver func(*config.Config)
	}{
		{"memory", func(cfg *config.Config) {}},
		{"sqlite", func(cfg *config.Config) {
			cfg.Backend.Driver = "sqlite"
			cfg.Backend.SQLite.Path = filepath.Join(t.TempDir(), "data", "vstore.db")
		}},
		{"redis", func(cfg *config.Config) {
			cfg.Backend.Driver = "redis"
			cfg.Backend.Redis.URL = "redis://" + mr.Addr()
			cfg.Backend.Redis.Prefix = "test:"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			tt.driver(cfg)

			ctx := context.Background()
			b, err := openBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("openBackend error: %v", err)
			}
			defer closeBackend(b)

			if err := b.SetItem(ctx, "k", []byte(`1`)); err != nil {
				t.Fatalf("SetItem error: %v", err)
			}
			keys, err := listKeys(ctx, b)
			if err != nil {
				t.Fatalf("listKeys error: %v", err)
			}
			if strings.Join(keys, ",") != "k" {
				t.Fatalf("keys = %v, want [k]", keys)
			}
		})
	}
}

func TestOpenBackendUnknownDriver(t *testing.T) {
	cfg := config.New()
	cfg.Backend.Driver = "mongo"
	if _, err := openBackend(context.Background(), cfg); codeOf(err) != "C002" {
		t.Fatalf("openBackend error = %v, want C002", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("stores:\n  - name: cart\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c := &cli{configPath: path, driver: "sqlite"}
	cfg, err := c.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if cfg.Backend.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite override", cfg.Backend.Driver)
	}
	if _, ok := cfg.Store("cart"); !ok {
		t.Error("cart store not loaded")
	}

	c.driver = "mongo"
	if _, err := c.loadConfig(); codeOf(err) != "C002" {
		t.Fatalf("bad override error = %v, want C002", err)
	}
}

func TestNewLogger(t *testing.T) {
	saved := slog.Default()
	defer slog.SetDefault(saved)

	cfg := config.New()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "warn"

	var buf bytes.Buffer
	logger := newLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("output = %s, want JSON warn record", out)
	}
}

const registryYAML = `
stores:
  - name: cart
    initial:
      items: 2
  - name: theme
    kind: session
    initial: dark
derived:
  - name: total
    sources: [cart]
    expr: cart.items * 10
  - name: broken
    sources: [theme]
    expr: theme * 2
    initial: none
`

func TestBuildRegistry(t *testing.T) {
	cfg, err := config.Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	local := persist.NewMemoryBackend()
	host := persist.NewHost(persist.NewMemoryBackend(), local)
	reg, err := buildRegistry(cfg, host, quietLogger(), nil)
	if err != nil {
		t.Fatalf("buildRegistry error: %v", err)
	}

	if got := strings.Join(reg.Names(), ","); got != "broken,cart,theme,total" {
		t.Fatalf("Names() = %q", got)
	}

	cart, _ := reg.Lookup("cart")
	totalEntry, _ := reg.Lookup("total")
	if !cart.Writable() || totalEntry.Writable() {
		t.Fatal("cart should be writable and total read-only")
	}
	total := totalEntry.Source.(*store.Derived[any])

	if got := total.Resolve(); got != 20 {
		t.Fatalf("total = %#v, want 20", got)
	}

	// The local store was persisted on construction.
	if keys := local.Keys(); strings.Join(keys, ",") != "cart" {
		t.Fatalf("local keys = %v, want [cart]", keys)
	}

	writable := cart.Source.(interface{ SetJSON([]byte) error })
	if err := writable.SetJSON([]byte(`{"items":3}`)); err != nil {
		t.Fatalf("SetJSON error: %v", err)
	}
	if got := total.Resolve(); got != 30.0 {
		t.Fatalf("total after set = %#v, want 30", got)
	}

	saved, ok := persist.New[map[string]int](host, "cart", persist.KindLocal).Get()
	if !ok || saved["items"] != 3 {
		t.Fatalf("persisted cart = %v, %v", saved, ok)
	}

	// A failing expression keeps the previous value.
	broken, _ := reg.Lookup("broken")
	if got := broken.Source.(*store.Derived[any]).Resolve(); got != "none" {
		t.Fatalf("broken = %#v, want initial value", got)
	}
}

func TestBuildRegistrySeedsFromBackend(t *testing.T) {
	cfg, err := config.Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	local := persist.NewMemoryBackend()
	if err := local.SetItem(context.Background(), "cart", []byte(`{"items":7}`)); err != nil {
		t.Fatal(err)
	}
	reg, err := buildRegistry(cfg, persist.NewHost(nil, local), quietLogger(), nil)
	if err != nil {
		t.Fatalf("buildRegistry error: %v", err)
	}

	total, _ := reg.Lookup("total")
	if got := total.Source.(*store.Derived[any]).Resolve(); got != 70.0 {
		t.Fatalf("total = %#v, want 70", got)
	}
}
