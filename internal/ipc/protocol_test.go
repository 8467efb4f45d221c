package ipc

import (
	"encoding/json"
	"testing"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"command":"SET_OPACITY","payload":{"opacity":0.5,"monitor":"HDMI-1"}}` + "\n"))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Command != CommandSetOpacity {
		t.Errorf("command = %q, want %q", req.Command, CommandSetOpacity)
	}

	var p SetOpacityPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		t.Fatalf("payload unmarshal: %v", err)
	}
	if p.Opacity != 0.5 || p.Monitor != "HDMI-1" {
		t.Errorf("payload = %+v", p)
	}
}

func TestParseRequestRejectsGarbage(t *testing.T) {
	if _, err := ParseRequest([]byte("not json\n")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResponseMarshalOmitsEmpty(t *testing.T) {
	resp, err := NewOKResponse(nil)
	if err != nil {
		t.Fatalf("NewOKResponse: %v", err)
	}
	data, err := resp.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"status":"OK"}` {
		t.Errorf("marshalled = %s", data)
	}
}

func TestErrorResponse(t *testing.T) {
	resp := NewErrorResponse("boom")
	if resp.Status != "ERROR" || resp.Error != "boom" {
		t.Errorf("response = %+v", resp)
	}
}
