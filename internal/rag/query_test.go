package rag

import (
	"errors"
	"testing"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/httperr"
)

func wantBadRequest(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var e *httperr.Error
	if !errors.As(err, &e) || e.Kind != httperr.KindBadRequest {
		t.Fatalf("error = %v, want BadRequest", err)
	}
}

func TestResolveTargets_Defaults(t *testing.T) {
	defaults := config.VectorDBConfig{
		URL:            "http://vdb:6333",
		CollectionName: []string{"a", "b"},
		Limit:          5,
		ScoreThreshold: 0.5,
	}

	targets, err := resolveTargets([]byte(`{"messages":[]}`), defaults)
	if err != nil {
		t.Fatalf("resolveTargets() error = %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("resolveTargets() returned %d targets, want 2", len(targets))
	}
	if targets[1].URL != "http://vdb:6333" || targets[1].Collection != "b" || targets[1].Limit != 5 || targets[1].ScoreThreshold != 0.5 {
		t.Errorf("targets[1] = %+v, want defaults applied", targets[1])
	}
}

func TestResolveTargets_PerRequest(t *testing.T) {
	body := []byte(`{
		"vdb_server_url": "http://other:6333",
		"vdb_collection_name": ["x", "y"],
		"limit": [3, 7],
		"score_threshold": [0.1, 0.9]
	}`)

	targets, err := resolveTargets(body, config.VectorDBConfig{})
	if err != nil {
		t.Fatalf("resolveTargets() error = %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("resolveTargets() returned %d targets, want 2", len(targets))
	}
	want := Target{URL: "http://other:6333", Collection: "y", Limit: 7, ScoreThreshold: 0.9}
	if targets[1] != want {
		t.Errorf("targets[1] = %+v, want %+v", targets[1], want)
	}
}

func TestResolveTargets_MismatchedLengths(t *testing.T) {
	body := []byte(`{
		"vdb_server_url": "http://other:6333",
		"vdb_collection_name": ["x", "y"],
		"limit": [3],
		"score_threshold": [0.1, 0.9]
	}`)
	_, err := resolveTargets(body, config.VectorDBConfig{})
	wantBadRequest(t, err)
}

func TestResolveTargets_PartialQuadruple(t *testing.T) {
	body := []byte(`{"vdb_server_url": "http://other:6333"}`)
	_, err := resolveTargets(body, config.VectorDBConfig{})
	wantBadRequest(t, err)
}

func TestDeriveQuery_Window(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"user","content":"first"},
		{"role":"assistant","content":"reply"},
		{"role":"user","content":"second"},
		{"role":"user","content":"third"}
	]}`)

	got, err := deriveQuery(body, 2)
	if err != nil {
		t.Fatalf("deriveQuery() error = %v", err)
	}
	if want := "second\nthird"; got != want {
		t.Errorf("deriveQuery() = %q, want %q", got, want)
	}

	got, err = deriveQuery(body, 10)
	if err != nil {
		t.Fatalf("deriveQuery() error = %v", err)
	}
	if want := "first\nsecond\nthird"; got != want {
		t.Errorf("deriveQuery() = %q, want %q", got, want)
	}
}

func TestDeriveQuery_SentinelLatest(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"user","content":"earlier"},
		{"role":"user","content":"ping<server-health>"}
	]}`)

	// The sentinel message is the most recent: stripped, included, and the
	// walk stops there even though the window allows more.
	got, err := deriveQuery(body, 5)
	if err != nil {
		t.Fatalf("deriveQuery() error = %v", err)
	}
	if want := "ping"; got != want {
		t.Errorf("deriveQuery() = %q, want %q", got, want)
	}
}

func TestDeriveQuery_SentinelNotLatest(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"user","content":"probe<server-health>"},
		{"role":"user","content":"real question"}
	]}`)

	got, err := deriveQuery(body, 5)
	if err != nil {
		t.Fatalf("deriveQuery() error = %v", err)
	}
	if want := "real question"; got != want {
		t.Errorf("deriveQuery() = %q, want %q (stale sentinel skipped)", got, want)
	}
}

func TestDeriveQuery_EmptyMessages(t *testing.T) {
	_, err := deriveQuery([]byte(`{"messages":[]}`), 1)
	wantBadRequest(t, err)
}

func TestDeriveQuery_NoUserMessages(t *testing.T) {
	body := []byte(`{"messages":[{"role":"system","content":"be nice"}]}`)
	_, err := deriveQuery(body, 1)
	wantBadRequest(t, err)
	if want := "Bad request: No user messages found"; err.Error() != want {
		t.Errorf("deriveQuery() error = %q, want %q", err.Error(), want)
	}
}
