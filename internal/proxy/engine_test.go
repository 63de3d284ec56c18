package proxy_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelgate/modelgate/internal/proxy"
)

func TestDo_TargetComposition(t *testing.T) {
	var gotMethod, gotPath, gotQuery, gotRequestID, gotConnection string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotRequestID = r.Header.Get("X-Request-Id")
		gotConnection = r.Header.Get("Connection")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	e := proxy.New(0)
	header := http.Header{
		"Content-Type": []string{"application/json"},
		"Connection":   []string{"keep-alive"},
	}
	resp, err := e.Do(context.Background(), "req-1", http.MethodPost, srv.URL, "/v1/chat/completions", "a=b",
		header, strings.NewReader(`{"model":"x"}`))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	if gotMethod != http.MethodPost || gotPath != "/v1/chat/completions" || gotQuery != "a=b" {
		t.Errorf("forwarded %s %s?%s, want POST /v1/chat/completions?a=b", gotMethod, gotPath, gotQuery)
	}
	if gotRequestID != "req-1" {
		t.Errorf("X-Request-Id = %q, want req-1", gotRequestID)
	}
	if gotConnection != "" {
		t.Errorf("hop-by-hop Connection header leaked: %q", gotConnection)
	}
	if string(gotBody) != `{"model":"x"}` {
		t.Errorf("forwarded body = %q, want unchanged", gotBody)
	}
}

func TestDo_ConnectFailure(t *testing.T) {
	e := proxy.New(0)
	_, err := e.Do(context.Background(), "req-1", http.MethodPost, "http://127.0.0.1:1", "/v1/embeddings", "",
		http.Header{}, nil)
	if err == nil {
		t.Fatal("Do() to a closed port expected error, got nil")
	}
	if !strings.Contains(err.Error(), "Failed to forward the request to the downstream server") {
		t.Errorf("Do() error = %q, want downstream forwarding failure", err)
	}
}

func relay(t *testing.T, backendCT, body string, status int, policy proxy.ContentType) *httptest.ResponseRecorder {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if backendCT != "" {
			w.Header().Set("Content-Type", backendCT)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	e := proxy.New(0)
	resp, err := e.Do(context.Background(), "req-1", http.MethodPost, srv.URL, "/", "", http.Header{}, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	rec := httptest.NewRecorder()
	gotStatus, err := e.Relay(rec, resp, policy)
	if err != nil {
		t.Fatalf("Relay() error = %v", err)
	}
	if gotStatus != status {
		t.Errorf("Relay() status = %d, want %d", gotStatus, status)
	}
	return rec
}

func TestRelay_ContentTypePolicy(t *testing.T) {
	tests := []struct {
		name      string
		backendCT string
		policy    proxy.ContentType
		wantCT    string
	}{
		{"json normalized", "text/plain", proxy.ContentTypeJSON, "application/json"},
		{"stream forced", "application/json", proxy.ContentTypeEventStream, "text/event-stream"},
		{"echo preserves audio", "audio/wav", proxy.ContentTypeEcho, "audio/wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := relay(t, tt.backendCT, "payload", http.StatusOK, tt.policy)
			if got := rec.Header().Get("Content-Type"); got != tt.wantCT {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantCT)
			}
			if got := rec.Body.String(); got != "payload" {
				t.Errorf("relayed body = %q, want %q", got, "payload")
			}
		})
	}
}

func TestRelay_PreservesBackendStatus(t *testing.T) {
	rec := relay(t, "application/json", `{"error":"overloaded"}`, http.StatusTooManyRequests, proxy.ContentTypeJSON)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("relayed status = %d, want 429", rec.Code)
	}
}

func TestRelay_StreamedBytesIdentical(t *testing.T) {
	chunks := []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n",
		"data: [DONE]\n\n",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := w.(http.Flusher)
		for _, c := range chunks {
			io.WriteString(w, c)
			f.Flush()
		}
	}))
	t.Cleanup(srv.Close)

	e := proxy.New(0)
	resp, err := e.Do(context.Background(), "req-1", http.MethodPost, srv.URL, "/", "", http.Header{}, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	rec := httptest.NewRecorder()
	if _, err := e.Relay(rec, resp, proxy.ContentTypeEventStream); err != nil {
		t.Fatalf("Relay() error = %v", err)
	}

	if got, want := rec.Body.String(), strings.Join(chunks, ""); got != want {
		t.Errorf("streamed body = %q, want %q", got, want)
	}
	if !rec.Flushed {
		t.Error("Relay() never flushed the response writer")
	}
}
