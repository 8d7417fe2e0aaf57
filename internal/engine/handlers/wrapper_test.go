package handlers

import (
	"encoding/json"
	"errors"
	"testing"

	"tactics-sim/pkg/api"
)

func TestWithPayload(t *testing.T) {
	var got api.DirectionPayload
	h := WithPayload(func(_ Context, p api.DirectionPayload) (Result, error) {
		got = p
		return Result{Msg: "ok"}, nil
	})

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"Valid", `{"dx":1,"dy":-1}`, nil},
		{"Malformed", `{"dx":`, ErrBadPayload},
		{"ZeroVector", `{"dx":0,"dy":0}`, ErrInvalidPayload},
		{"TooLarge", `{"dx":2,"dy":0}`, ErrInvalidPayload},
		{"Missing", ``, ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h(Context{}, json.RawMessage(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if res.Msg != "ok" || got.Dx != 1 || got.Dy != -1 {
				t.Errorf("Expected payload {1 -1}, got %+v", got)
			}
		})
	}
}

func TestWithEmptyPayload(t *testing.T) {
	called := false
	h := WithEmptyPayload(func(Context) (Result, error) {
		called = true
		return EmptyResult(), nil
	})
	if _, err := h(Context{}, json.RawMessage(`garbage`)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !called {
		t.Error("Expected handler to be called")
	}
}

func TestParseEntityID(t *testing.T) {
	id, err := ParseEntityID("4294967297")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id.Index() != 1 || id.Generation() != 1 {
		t.Errorf("Expected gen 1 index 1, got %v", id)
	}
	if _, err := ParseEntityID("abc"); err == nil {
		t.Error("Expected error for non-numeric id")
	}
}
