package handler

import (
	"context"
	"strings"
	"testing"

	"inferd/internal/adapters"
)

func TestBatchSizeEnforcement(t *testing.T) {
	h := newTestHandler(t, &fakeEngine{})
	for _, payloads := range [][][]byte{
		nil,
		{},
		{[]byte(`{"prompt":"a"}`), []byte(`{"prompt":"b"}`)},
	} {
		_, err := h.Handle(context.Background(), payloads, &RequestContext{})
		if !IsInvalidBatchSize(err) {
			t.Fatalf("payloads len=%d: expected invalid batch size, got %v", len(payloads), err)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	h := newTestHandler(t, &fakeEngine{})
	if _, err := h.Handle(context.Background(), [][]byte{{0xff, 0xfe, 0xfd}}, &RequestContext{}); !IsDecode(err) {
		t.Fatalf("expected decode error for invalid UTF-8, got %v", err)
	}
	if _, err := h.Handle(context.Background(), [][]byte{[]byte(`{"prompt":`)}, &RequestContext{}); !IsDecode(err) {
		t.Fatalf("expected decode error for invalid JSON, got %v", err)
	}
}

func TestNormalizeOverlaysSamplingParams(t *testing.T) {
	eng := &fakeEngine{steps: helloSteps()}
	h := newTestHandler(t, eng)
	payload := []byte(`{"prompt":"hi","temperature":0.5,"max_tokens":64,"unknown_field":99}`)
	if _, err := h.Handle(context.Background(), [][]byte{payload}, &RequestContext{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if eng.got.Prompt != "hi" {
		t.Fatalf("prompt=%q", eng.got.Prompt)
	}
	if eng.got.Params.Temperature != 0.5 || eng.got.Params.MaxTokens != 64 {
		t.Fatalf("params: %+v", eng.got.Params)
	}
	if eng.got.Params.TopP != 1.0 {
		t.Fatalf("top_p=%v must keep default", eng.got.Params.TopP)
	}
}

func TestNormalizeResolvesAdapter(t *testing.T) {
	eng := &fakeEngine{steps: helloSteps()}
	h := newTestHandler(t, eng)
	payload := []byte(`{"prompt":"hi","lora_adapter":"french"}`)
	if _, err := h.Handle(context.Background(), [][]byte{payload}, &RequestContext{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if eng.got.Adapter == nil || eng.got.Adapter.Name != "french" || eng.got.Adapter.ID != 1 {
		t.Fatalf("adapter: %+v", eng.got.Adapter)
	}
	if !strings.HasPrefix(eng.got.Adapter.Path, "/models") {
		t.Fatalf("adapter path=%q", eng.got.Adapter.Path)
	}
	// Same name on a later request keeps its id.
	if _, err := h.Handle(context.Background(), [][]byte{payload}, &RequestContext{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if eng.got.Adapter.ID != 1 {
		t.Fatalf("adapter id changed: %+v", eng.got.Adapter)
	}
}

func TestNormalizeUnknownAdapter(t *testing.T) {
	h := newTestHandler(t, &fakeEngine{})
	_, err := h.Handle(context.Background(), [][]byte{[]byte(`{"prompt":"hi","lora_adapter":"nope"}`)}, &RequestContext{})
	if !adapters.IsUnknownAdapter(err) {
		t.Fatalf("expected unknown adapter error, got %v", err)
	}
}

func TestNormalizeNoAdapter(t *testing.T) {
	eng := &fakeEngine{steps: helloSteps()}
	h := newTestHandler(t, eng)
	if _, err := h.Handle(context.Background(), [][]byte{[]byte(`{"prompt":"hi"}`)}, &RequestContext{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if eng.got.Adapter != nil {
		t.Fatalf("expected no adapter, got %+v", eng.got.Adapter)
	}
}

func TestRequestIDAssignment(t *testing.T) {
	eng := &fakeEngine{steps: helloSteps()}
	h := newTestHandler(t, eng)
	if _, err := h.Handle(context.Background(), [][]byte{[]byte(`{"prompt":"hi"}`)}, &RequestContext{RequestID: "given"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if eng.got.RequestID != "given" {
		t.Fatalf("request id=%q", eng.got.RequestID)
	}
	if _, err := h.Handle(context.Background(), [][]byte{[]byte(`{"prompt":"hi"}`)}, &RequestContext{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.HasPrefix(eng.got.RequestID, "cmpl-") {
		t.Fatalf("minted request id=%q", eng.got.RequestID)
	}
}
