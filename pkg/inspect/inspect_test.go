package inspect

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/store/pkg/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type cart struct {
	Items int `json:"items"`
}

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *store.Store[cart], *store.Derived[int]) {
	t.Helper()

	c := store.New(cart{Items: 1}, store.WithName[cart]("cart"))
	total := store.Derive1[cart](c, func(v cart) int { return v.Items * 10 }, store.WithName[int]("total"))

	reg := NewRegistry()
	reg.MustRegister("cart", c)
	reg.MustRegister("total", total)

	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	srv := httptest.NewServer(Handler(reg, opts...))
	t.Cleanup(srv.Close)
	return srv, c, total
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	s := store.New(1)
	d := store.Derive1[int](s, func(v int) int { return v })

	if err := reg.Register("b", s); err != nil {
		t.Fatalf("Register(b) error: %v", err)
	}
	if err := reg.Register("a", d); err != nil {
		t.Fatalf("Register(a) error: %v", err)
	}
	if err := reg.Register("a", s); err == nil {
		t.Fatal("duplicate Register should fail")
	}
	if err := reg.Register("", s); err == nil {
		t.Fatal("empty name should fail")
	}
	if err := reg.Register("nil", nil); err == nil {
		t.Fatal("nil source should fail")
	}

	if got := strings.Join(reg.Names(), ","); got != "a,b" {
		t.Fatalf("Names() = %q, want %q", got, "a,b")
	}

	a, _ := reg.Lookup("a")
	b, _ := reg.Lookup("b")
	if a.Writable() {
		t.Error("derived entry should be read-only")
	}
	if !b.Writable() {
		t.Error("store entry should be writable")
	}

	reg.Unregister("a")
	if _, ok := reg.Lookup("a"); ok {
		t.Fatal("Lookup after Unregister should fail")
	}
}

func TestHandlerList(t *testing.T) {
	srv, _, _ := newTestServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/stores", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	var got []struct {
		Name     string          `json:"name"`
		Writable bool            `json:"writable"`
		Value    json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, body)
	}
	if len(got) != 2 {
		t.Fatalf("got %d stores, want 2", len(got))
	}
	if got[0].Name != "cart" || !got[0].Writable || string(got[0].Value) != `{"items":1}` {
		t.Errorf("stores[0] = %+v", got[0])
	}
	// Listing reads passively, so the cold derived store still shows its
	// initial value.
	if got[1].Name != "total" || got[1].Writable || string(got[1].Value) != "0" {
		t.Errorf("stores[1] = %+v (%s)", got[1], got[1].Value)
	}
}

func TestHandlerGetAndPut(t *testing.T) {
	srv, c, _ := newTestServer(t)

	status, body := do(t, http.MethodPut, srv.URL+"/stores/cart", `{"items":4}`)
	if status != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200 (%s)", status, body)
	}
	if c.Get().Items != 4 {
		t.Fatalf("cart.Items = %d, want 4", c.Get().Items)
	}

	status, body = do(t, http.MethodGet, srv.URL+"/stores/cart", "")
	if status != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", status)
	}
	if !strings.Contains(string(body), `"value":{"items":4}`) {
		t.Fatalf("GET body = %s", body)
	}
}

func TestHandlerErrors(t *testing.T) {
	srv, c, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown store", http.MethodGet, "/stores/missing", "", http.StatusNotFound, "I001"},
		{"put unknown", http.MethodPut, "/stores/missing", "{}", http.StatusNotFound, "I001"},
		{"put derived", http.MethodPut, "/stores/total", "5", http.StatusMethodNotAllowed, "I002"},
		{"put bad json", http.MethodPut, "/stores/cart", "{", http.StatusBadRequest, "P002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, tt.method, srv.URL+tt.path, tt.body)
			if status != tt.status {
				t.Fatalf("status = %d, want %d (%s)", status, tt.status, body)
			}
			var got map[string]any
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("error body is not JSON: %s", body)
			}
			if got["code"] != tt.code {
				t.Fatalf("code = %v, want %s", got["code"], tt.code)
			}
		})
	}

	if c.Get().Items != 1 {
		t.Fatalf("failed PUT changed cart to %+v", c.Get())
	}
}

func dialWatch(t *testing.T, srv *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stores/" + name + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestWatchStore(t *testing.T) {
	srv, c, _ := newTestServer(t)
	conn := dialWatch(t, srv, "cart")

	first := readMessage(t, conn)
	if first.Name != "cart" || first.Seq != 1 || string(first.Value) != `{"items":1}` {
		t.Fatalf("first message = %+v (%s)", first, first.Value)
	}

	c.Set(cart{Items: 2})
	next := readMessage(t, conn)
	if next.Seq != 2 || string(next.Value) != `{"items":2}` {
		t.Fatalf("second message = %+v (%s)", next, next.Value)
	}
}

func TestWatchDerivedKeepsItHot(t *testing.T) {
	srv, c, total := newTestServer(t)
	conn := dialWatch(t, srv, "total")

	first := readMessage(t, conn)
	if string(first.Value) != "10" {
		t.Fatalf("first value = %s, want 10", first.Value)
	}
	if !total.IsHot() {
		t.Fatal("derived store should be hot while watched")
	}

	c.Set(cart{Items: 3})
	if msg := readMessage(t, conn); string(msg.Value) != "30" {
		t.Fatalf("value = %s, want 30", msg.Value)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for total.IsHot() {
		if time.Now().After(deadline) {
			t.Fatal("derived store still hot after the watcher left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchUnknownStore(t *testing.T) {
	srv, _, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stores/missing/watch"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial should fail for an unknown store")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("response = %v, want 404", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	promReg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "inspect_test_total", Help: "test"})
	promReg.MustRegister(counter)
	counter.Inc()

	srv, _, _ := newTestServer(t, WithGatherer(promReg))
	status, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if !strings.Contains(string(body), "inspect_test_total 1") {
		t.Fatalf("metrics body missing counter:\n%s", body)
	}
}

func TestMetricsDisabledByDefault(t *testing.T) {
	srv, _, _ := newTestServer(t)
	status, _ := do(t, http.MethodGet, srv.URL+"/metrics", "")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
}
