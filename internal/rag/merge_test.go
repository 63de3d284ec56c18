package rag

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/modelgate/modelgate/internal/config"
)

func TestMergeContext_LastUserMessage(t *testing.T) {
	body := []byte(`{"model":"m","stream":false,"messages":[{"role":"user","content":"what is X?"}]}`)

	out, err := mergeContext(body, "doc-1\n\n", config.PolicyLastUserMessage, "", true, "test")
	if err != nil {
		t.Fatalf("mergeContext() error = %v", err)
	}

	got := gjson.GetBytes(out, "messages.0.content").String()
	want := "doc-1\nAnswer the question based on the pieces of context above. The question is:\nwhat is X?"
	if got != want {
		t.Errorf("rewritten content = %q, want %q", got, want)
	}
	// Untouched fields survive the rewrite.
	if gjson.GetBytes(out, "model").String() != "m" {
		t.Error("model field was disturbed by the rewrite")
	}
	if gjson.GetBytes(out, "stream").Exists() != true {
		t.Error("stream field was dropped by the rewrite")
	}
}

func TestMergeContext_LastMessageNotUser(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"user","content":"q"},
		{"role":"assistant","content":"a"}
	]}`)
	_, err := mergeContext(body, "ctx", config.PolicyLastUserMessage, "", true, "test")
	wantBadRequest(t, err)
}

func TestMergeContext_SystemMessageExisting(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"system","content":"be nice"},
		{"role":"user","content":"q"}
	]}`)

	out, err := mergeContext(body, "doc-1", config.PolicySystemMessage, "Use the context.", true, "test")
	if err != nil {
		t.Fatalf("mergeContext() error = %v", err)
	}

	got := gjson.GetBytes(out, "messages.0.content").String()
	want := "be nice\nUse the context.\ndoc-1"
	if got != want {
		t.Errorf("system content = %q, want %q", got, want)
	}
	if n := len(gjson.GetBytes(out, "messages").Array()); n != 2 {
		t.Errorf("message count = %d, want 2", n)
	}
}

func TestMergeContext_SystemMessageInserted(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"q"}]}`)

	out, err := mergeContext(body, "doc-1", config.PolicySystemMessage, "", true, "test")
	if err != nil {
		t.Fatalf("mergeContext() error = %v", err)
	}

	msgs := gjson.GetBytes(out, "messages").Array()
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2", len(msgs))
	}
	if role := msgs[0].Get("role").String(); role != "system" {
		t.Errorf("messages[0].role = %q, want system", role)
	}
	if content := msgs[0].Get("content").String(); content != "doc-1" {
		t.Errorf("messages[0].content = %q, want doc-1", content)
	}
	if role := msgs[1].Get("role").String(); role != "user" {
		t.Errorf("messages[1].role = %q, want user", role)
	}
}

func TestMergeContext_PolicyDemotion(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"q"}]}`)

	// system-message policy without system-prompt support behaves exactly
	// like last-user-message.
	out, err := mergeContext(body, "doc-1", config.PolicySystemMessage, "", false, "test")
	if err != nil {
		t.Fatalf("mergeContext() error = %v", err)
	}

	msgs := gjson.GetBytes(out, "messages").Array()
	if len(msgs) != 1 {
		t.Fatalf("message count = %d, want 1 (no system message inserted)", len(msgs))
	}
	got := msgs[0].Get("content").String()
	want := "doc-1\nAnswer the question based on the pieces of context above. The question is:\nq"
	if got != want {
		t.Errorf("demoted rewrite = %q, want %q", got, want)
	}
}

func TestHasSystemPrompt(t *testing.T) {
	if hasSystemPrompt("mistral-instruct") {
		t.Error("hasSystemPrompt(mistral-instruct) = true, want false")
	}
	if !hasSystemPrompt("llama-3-chat") {
		t.Error("hasSystemPrompt(llama-3-chat) = false, want true")
	}
	if !hasSystemPrompt("some-unknown-template") {
		t.Error("hasSystemPrompt(unknown) = false, want true (default)")
	}
}
