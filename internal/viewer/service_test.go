package viewer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stagehand/internal/timetable"
	logx "stagehand/pkg/logx"
)

func testStore(t *testing.T) *timetable.Store {
	t.Helper()
	s, err := timetable.Open(context.Background(), nil, nil, logx.Nop(), timetable.Defaults{})
	if err != nil {
		t.Fatalf("timetable.Open: %v", err)
	}
	st, err := s.AddStage(context.Background(), "Main")
	if err != nil {
		t.Fatalf("AddStage: %v", err)
	}
	if _, err := s.AddAct(context.Background(), timetable.ActInput{
		StageID: st.ID, Name: "Opener", Start: "10:00", End: "11:00",
	}); err != nil {
		t.Fatalf("AddAct: %v", err)
	}
	return s
}

func testHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	svc := New(cfg, testStore(t), logx.Nop())
	return svc.Handler(cfg)
}

func get(t *testing.T, h http.Handler, path string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestScheduleSVG(t *testing.T) {
	h := testHandler(t, Config{Enabled: true, Title: "Test Fest"})

	w := get(t, h, "/schedule.svg", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "image/svg+xml") {
		t.Fatalf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<svg") || !strings.Contains(body, "Test Fest") {
		t.Fatalf("unexpected body: %.120s", body)
	}
	if !strings.Contains(body, "Opener") {
		t.Fatalf("act missing from render")
	}
}

func TestScheduleJSON(t *testing.T) {
	h := testHandler(t, Config{Enabled: true})

	w := get(t, h, "/schedule.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"Opener"`) || !strings.Contains(body, `"10:00"`) {
		t.Fatalf("unexpected body: %.200s", body)
	}
}

func TestHealthzUnauthenticated(t *testing.T) {
	h := testHandler(t, Config{Enabled: true, Token: "sekrit"})
	if w := get(t, h, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz should not require auth, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	h := testHandler(t, Config{Enabled: true, Token: "sekrit"})

	if w := get(t, h, "/schedule.svg", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", w.Code)
	}
	if w := get(t, h, "/schedule.svg?token=wrong", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong query token: status = %d", w.Code)
	}
	if w := get(t, h, "/schedule.svg?token=sekrit", nil); w.Code != http.StatusOK {
		t.Fatalf("query token: status = %d", w.Code)
	}
	if w := get(t, h, "/schedule.svg", map[string]string{"Authorization": "Bearer sekrit"}); w.Code != http.StatusOK {
		t.Fatalf("bearer token: status = %d", w.Code)
	}
	if w := get(t, h, "/schedule.svg", map[string]string{"Authorization": "Bearer nope"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad bearer: status = %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := Config{Enabled: true, RatePerSec: 1}
	svc := New(cfg, testStore(t), logx.Nop())
	h := svc.Handler(cfg)

	// burst is 2*rate; the third immediate request must be rejected.
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(t, h, "/schedule.json", nil).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %v", codes)
	}
}

func TestRootRedirectsAndUnknown404(t *testing.T) {
	h := testHandler(t, Config{Enabled: true})

	if w := get(t, h, "/", nil); w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("root: status = %d", w.Code)
	}
	if w := get(t, h, "/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown path: status = %d", w.Code)
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:8090": true,
		"localhost:8090": true,
		"[::1]:8090":     true,
		"0.0.0.0:8090":   false,
		":8090":          false,
		"192.168.1.5:80": false,
		"bogus":          false,
	}
	for addr, want := range cases {
		if got := isLoopbackAddr(addr); got != want {
			t.Errorf("isLoopbackAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}
