package server

import (
	"encoding/json"
	"testing"
)

func TestMoneyValueAcceptsDecimalComma(t *testing.T) {
	var req CreateLeadRequest
	if err := json.Unmarshal([]byte(`{"title":"Acme","pipeline_id":"1","value":"1250,50"}`), &req); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got := req.Value.toFloat(); got == nil || *got != 1250.50 {
		t.Fatalf("expected 1250.50, got %v", got)
	}

	if err := json.Unmarshal([]byte(`{"title":"Acme","pipeline_id":"1","value":99.9}`), &req); err != nil {
		t.Fatalf("failed to decode numeric value: %v", err)
	}
	if got := req.Value.toFloat(); got == nil || *got != 99.9 {
		t.Fatalf("expected 99.9, got %v", got)
	}

	if err := json.Unmarshal([]byte(`{"title":"Acme","pipeline_id":"1","value":"not a number"}`), &req); err == nil {
		t.Fatal("expected an error for a junk value")
	}

	req = CreateLeadRequest{}
	if err := json.Unmarshal([]byte(`{"title":"Acme","pipeline_id":"1"}`), &req); err != nil {
		t.Fatalf("failed to decode without value: %v", err)
	}
	if req.Value.toFloat() != nil {
		t.Fatal("expected a nil value when absent")
	}
}
