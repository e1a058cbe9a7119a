package persist

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	vserrors "github.com/vango-dev/store/internal/errors"
)

type cart struct {
	Items []string `json:"items" yaml:"items"`
	Total int      `json:"total" yaml:"total"`
}

type savedEvent struct {
	key  string
	kind Kind
	err  error
}

type loadedEvent struct {
	key   string
	found bool
	err   error
}

type recordingObserver struct {
	saved  []savedEvent
	loaded []loadedEvent
}

func (r *recordingObserver) PersistSaved(key string, kind Kind, err error) {
	r.saved = append(r.saved, savedEvent{key, kind, err})
}

func (r *recordingObserver) PersistLoaded(key string, kind Kind, found bool, err error) {
	r.loaded = append(r.loaded, loadedEvent{key, found, err})
}

// failingBackend fails every call with err.
type failingBackend struct{ err error }

func (f failingBackend) GetItem(context.Context, string) ([]byte, bool, error) {
	return nil, false, f.err
}

func (f failingBackend) SetItem(context.Context, string, []byte) error { return f.err }
func (f failingBackend) RemoveItem(context.Context, string) error      { return f.err }
func (f failingBackend) Clear(context.Context) error                   { return f.err }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestPersistorRoundTrip(t *testing.T) {
	host := NewHost(NewMemoryBackend(), NewMemoryBackend())

	for _, kind := range []Kind{KindSession, KindLocal, KindMemory} {
		t.Run(string(kind), func(t *testing.T) {
			p := New[cart](host, "cart", kind)
			want := cart{Items: []string{"apple"}, Total: 3}

			p.Set(want)
			got, ok := p.Get()
			if !ok {
				t.Fatal("Get() found = false after Set")
			}
			if got.Total != want.Total || len(got.Items) != 1 || got.Items[0] != "apple" {
				t.Fatalf("Get() = %+v, want %+v", got, want)
			}

			p.Remove()
			if _, ok := p.Get(); ok {
				t.Fatal("Get() found = true after Remove")
			}
		})
	}
}

func TestPersistorMissingKey(t *testing.T) {
	obs := &recordingObserver{}
	p := New[int](NewHost(nil, nil), "missing", KindMemory, WithObserver(obs))

	v, ok := p.Get()
	if ok || v != 0 {
		t.Fatalf("Get() = (%d, %v), want (0, false)", v, ok)
	}
	if len(obs.loaded) != 1 || obs.loaded[0].found || obs.loaded[0].err != nil {
		t.Fatalf("loaded events = %+v", obs.loaded)
	}
}

func TestPersistorDecodeFailure(t *testing.T) {
	host := NewHost(nil, nil)
	host.Memory.SetItem(context.Background(), "n", []byte("{not json"))

	obs := &recordingObserver{}
	p := New[int](host, "n", KindMemory, WithObserver(obs), WithLogger(quietLogger()))

	if v, ok := p.Get(); ok || v != 0 {
		t.Fatalf("Get() = (%d, %v), want (0, false)", v, ok)
	}
	if len(obs.loaded) != 1 {
		t.Fatalf("loaded events = %d, want 1", len(obs.loaded))
	}
	var verr *vserrors.Error
	if !errors.As(obs.loaded[0].err, &verr) || verr.Code != "P002" {
		t.Fatalf("load error = %v, want P002", obs.loaded[0].err)
	}
}

func TestPersistorNoBackend(t *testing.T) {
	host := NewHost(nil, nil)
	obs := &recordingObserver{}

	for _, kind := range []Kind{KindSession, KindLocal} {
		p := New[string](host, "k", kind, WithObserver(obs))
		if p.Enabled() {
			t.Fatalf("%s persistor enabled without a backend", kind)
		}
		p.Set("x")
		p.Remove()
		p.Clear()
		if _, ok := p.Get(); ok {
			t.Fatalf("%s Get() found = true without a backend", kind)
		}
	}

	var nilHost *Host
	if New[string](nilHost, "k", KindMemory).Enabled() {
		t.Fatal("persistor on a nil host should be disabled")
	}
	if len(obs.saved) != 0 || len(obs.loaded) != 0 {
		t.Fatalf("observer saw events without a backend: %+v %+v", obs.saved, obs.loaded)
	}
}

func TestPersistorEncodeFailureKeepsPriorValue(t *testing.T) {
	host := NewHost(nil, nil)
	obs := &recordingObserver{}
	var buf bytes.Buffer
	p := New[any](host, "v", KindMemory,
		WithObserver(obs),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	p.Set("ok")
	p.Set(make(chan int))

	got, ok := p.Get()
	if !ok || got != "ok" {
		t.Fatalf("Get() = (%v, %v), want (ok, true)", got, ok)
	}
	if len(obs.saved) != 2 || obs.saved[0].err != nil {
		t.Fatalf("saved events = %+v", obs.saved)
	}
	var verr *vserrors.Error
	if !errors.As(obs.saved[1].err, &verr) || verr.Code != "P001" {
		t.Fatalf("save error = %v, want P001", obs.saved[1].err)
	}
	if !strings.Contains(buf.String(), "failed to persist value") {
		t.Fatalf("log output = %q, want failure message", buf.String())
	}
}

func TestPersistorBackendFailure(t *testing.T) {
	boom := errors.New("connection refused")
	host := &Host{Local: failingBackend{err: boom}}
	obs := &recordingObserver{}
	p := New[int](host, "n", KindLocal, WithObserver(obs), WithLogger(quietLogger()))

	p.Set(1)
	if _, ok := p.Get(); ok {
		t.Fatal("Get() found = true on a failing backend")
	}
	p.Remove()
	p.Clear()

	if len(obs.saved) != 1 || !errors.Is(obs.saved[0].err, boom) {
		t.Fatalf("saved events = %+v, want one wrapping %v", obs.saved, boom)
	}
	if len(obs.loaded) != 1 || !errors.Is(obs.loaded[0].err, boom) {
		t.Fatalf("loaded events = %+v, want one wrapping %v", obs.loaded, boom)
	}
	if !vserrors.HasCategory(obs.saved[0].err, vserrors.CategoryPersistence) {
		t.Fatal("backend failure should carry the persistence category")
	}
}

func TestPersistorClearIsBackendWide(t *testing.T) {
	host := NewHost(nil, nil)
	a := New[int](host, "a", KindMemory)
	b := New[int](host, "b", KindMemory)
	a.Set(1)
	b.Set(2)

	a.Clear()

	if _, ok := b.Get(); ok {
		t.Fatal("Clear should remove keys written by other persistors")
	}
}

func TestPersistorYAMLCodec(t *testing.T) {
	host := NewHost(nil, nil)
	p := New[cart](host, "cart", KindMemory, WithCodec(YAMLCodec{}))
	p.Set(cart{Items: []string{"pear"}, Total: 2})

	raw, _, _ := host.Memory.GetItem(context.Background(), "cart")
	if !strings.Contains(string(raw), "total: 2") {
		t.Fatalf("stored %q, want YAML", raw)
	}
	got, ok := p.Get()
	if !ok || got.Total != 2 || got.Items[0] != "pear" {
		t.Fatalf("Get() = (%+v, %v)", got, ok)
	}
}

func TestHostsDoNotShareMemory(t *testing.T) {
	h1 := NewHost(nil, nil)
	h2 := NewHost(nil, nil)

	New[string](h1, "k", KindMemory).Set("one")
	if _, ok := New[string](h2, "k", KindMemory).Get(); ok {
		t.Fatal("memory backends leaked between hosts")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"session", KindSession, false},
		{"LOCAL", KindLocal, false},
		{" memory ", KindMemory, false},
		{"cookie", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if err != nil {
			var verr *vserrors.Error
			if !errors.As(err, &verr) || verr.Code != "P004" {
				t.Fatalf("ParseKind(%q) error = %v, want P004", tt.in, err)
			}
		}
	}
}

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]string{"": "json", "json": "json", "yaml": "yaml", "yml": "yaml"} {
		c, ok := CodecByName(name)
		if !ok || c.Name() != want {
			t.Fatalf("CodecByName(%q) = %v, %v", name, c, ok)
		}
	}
	if _, ok := CodecByName("xml"); ok {
		t.Fatal("CodecByName(xml) should fail")
	}
}
