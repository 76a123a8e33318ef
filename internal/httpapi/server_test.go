package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inferd/internal/adapters"
	"inferd/internal/handler"
)

type mockService struct {
	ready    bool
	err      error
	partials []string
	final    string
	gotRctx  *handler.RequestContext
}

func (m *mockService) Ready() bool { return m.ready }

func (m *mockService) Handle(_ context.Context, payloads [][]byte, rctxs []*handler.RequestContext) ([]string, error) {
	if len(rctxs) > 0 {
		m.gotRctx = rctxs[0]
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(rctxs) > 0 && rctxs[0].Sink != nil {
		if err := rctxs[0].Sink.Send(m.partials, []string{rctxs[0].RequestID}, "Result", 200); err != nil {
			return nil, err
		}
	}
	return []string{m.final}, nil
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPredictionsNonStreaming(t *testing.T) {
	svc := &mockService{ready: true, final: `{"text":"Hello!","tokens":[1,2,3]}`}
	mux := NewMux(svc, "test-model")
	w := postJSON(t, mux, "/predictions", `{"prompt":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/x-ndjson") {
		t.Fatalf("content-type=%s", ct)
	}
	if w.Body.String() != svc.final+"\n" {
		t.Fatalf("body=%q", w.Body.String())
	}
	if svc.gotRctx.Format != handler.FormatMinimal {
		t.Fatalf("format=%v", svc.gotRctx.Format)
	}
	if svc.gotRctx.Sink != nil {
		t.Fatalf("non-streaming request must not carry a sink")
	}
}

func TestPredictionsStreaming(t *testing.T) {
	svc := &mockService{
		ready:    true,
		partials: []string{`{"text":"Hel","tokens":1}`, `{"text":"lo","tokens":2}`},
		final:    `{"text":"!","tokens":3}`,
	}
	mux := NewMux(svc, "test-model")
	w := postJSON(t, mux, "/predictions", `{"prompt":"hi","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines=%v", lines)
	}
	if lines[0] != svc.partials[0] || lines[2] != svc.final {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestCompletionsStreaming(t *testing.T) {
	svc := &mockService{
		ready:    true,
		partials: []string{"data: {\"id\":\"r\"}\n\n"},
		final:    "data: {\"id\":\"r\",\"choices\":[{\"finish_reason\":\"stop\"}]}\n\n",
	}
	mux := NewMux(svc, "test-model")
	w := postJSON(t, mux, "/v1/completions", `{"prompt":"hi","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Fatalf("content-type=%s", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "data: ") || !strings.Contains(body, "finish_reason") {
		t.Fatalf("body=%q", body)
	}
	if svc.gotRctx.Format != handler.FormatCompletion {
		t.Fatalf("format=%v", svc.gotRctx.Format)
	}
}

func TestCompletionsNonStreaming(t *testing.T) {
	svc := &mockService{ready: true, final: `{"id":"r","object":"text_completion"}`}
	mux := NewMux(svc, "test-model")
	w := postJSON(t, mux, "/v1/completions", `{"prompt":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	if w.Body.String() != svc.final {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestContentTypeRequired(t *testing.T) {
	mux := NewMux(&mockService{ready: true}, "m")
	req := httptest.NewRequest(http.MethodPost, "/predictions", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{handler.ErrInvalidBatchSize(2), http.StatusBadRequest},
		{handler.ErrDecode("bad payload"), http.StatusBadRequest},
		{adapters.ErrUnknownAdapter("nope"), http.StatusNotFound},
		{handler.ErrEngineFailure(errors.New("cuda died")), http.StatusBadGateway},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		svc := &mockService{ready: true, err: c.err}
		mux := NewMux(svc, "m")
		w := postJSON(t, mux, "/predictions", `{"prompt":"hi"}`)
		if w.Code != c.want {
			t.Fatalf("err=%v status=%d want %d", c.err, w.Code, c.want)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("error body not JSON: %v", err)
		}
	}
}

func TestModelsEndpoint(t *testing.T) {
	mux := NewMux(&mockService{ready: true}, "test-model")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "test-model") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	mux := NewMux(&mockService{ready: false}, "m")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", w.Code)
	}
	mux = NewMux(&mockService{ready: true}, "m")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := NewMux(&mockService{ready: true}, "m")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}
