package ipc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte(`{"op":"list_themes"}`)
	if err := writeFrame(&buf, body); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	got, err := readFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("expected %s, got %s", body, got)
	}
}

func TestHandlerFuncDispatch(t *testing.T) {
	var gotOp string
	h := HandlerFunc(func(req Request) Response {
		gotOp = req.Op
		return Response{OK: true, Result: json.RawMessage(`{"count":2}`)}
	})

	resp := h.Handle(Request{Op: "list_themes"})
	if gotOp != "list_themes" {
		t.Fatalf("expected op to reach handler, got %q", gotOp)
	}
	if !resp.OK {
		t.Fatal("expected OK response")
	}
}
