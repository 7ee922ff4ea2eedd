package validation

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/opd-ai/go-isonav/pkg/physics"
	"github.com/opd-ai/go-isonav/pkg/terrain"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string
		wantErr     bool
		errContains string
	}{
		{name: "simple", input: "corridor", want: "corridor"},
		{name: "spaces_trimmed", input: "  grunt 2 ", want: "grunt 2"},
		{name: "punctuation", input: "map-1_(b).v2", want: "map-1_(b).v2"},
		{name: "empty", input: "", wantErr: true, errContains: "empty"},
		{name: "whitespace_only", input: "   ", wantErr: true, errContains: "whitespace"},
		{name: "too_long", input: strings.Repeat("a", MaxNameLen+1), wantErr: true, errContains: "too long"},
		{name: "control_char", input: "bad\x07name", wantErr: true, errContains: "control"},
		{name: "invalid_utf8", input: "bad\xffname", wantErr: true, errContains: "UTF-8"},
		{name: "markup", input: "<b>boss</b>", wantErr: true, errContains: "invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ValidateName() error = %v, should contain %q", err, tt.errContains)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ValidateName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidatePosition(t *testing.T) {
	tests := []struct {
		name    string
		pos     physics.Vector2D
		wantErr error
	}{
		{"origin", physics.Vector2D{}, nil},
		{"typical", physics.Vector2D{X: -640, Y: 1200.5}, nil},
		{"nan", physics.Vector2D{X: math.NaN()}, ErrNonFinite},
		{"inf", physics.Vector2D{Y: math.Inf(-1)}, ErrNonFinite},
		{"far", physics.Vector2D{X: 2 * MaxCoordinate}, ErrOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePosition(tt.pos)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePosition() unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePosition() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCells(t *testing.T) {
	ok := []terrain.Cell{{X: 0, Y: 0}, {X: 64, Y: 32}}
	if err := ValidateCells(ok); err != nil {
		t.Errorf("ValidateCells() unexpected error %v", err)
	}
	if err := ValidateCells(nil); err != nil {
		t.Errorf("empty cell list must be valid, got %v", err)
	}

	bad := []terrain.Cell{{X: 0, Y: 0}, {X: math.NaN(), Y: 3}}
	err := ValidateCells(bad)
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("ValidateCells() error = %v, want ErrNonFinite", err)
	}
	if !strings.Contains(err.Error(), "cell 1") {
		t.Errorf("error %q should name the offending cell", err)
	}
}

func TestValidateShape(t *testing.T) {
	tests := []struct {
		name    string
		shape   terrain.Shape
		wantErr bool
	}{
		{"isometric", terrain.Shape{HalfWidth: 32, HalfHeight: 16}, false},
		{"zero_width", terrain.Shape{HalfWidth: 0, HalfHeight: 16}, true},
		{"negative_height", terrain.Shape{HalfWidth: 32, HalfHeight: -1}, true},
		{"nan", terrain.Shape{HalfWidth: math.NaN(), HalfHeight: 16}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateShape(tt.shape); (err != nil) != tt.wantErr {
				t.Errorf("ValidateShape() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRadiusAndSpeed(t *testing.T) {
	if err := ValidateRadius(10); err != nil {
		t.Errorf("ValidateRadius(10) = %v", err)
	}
	if err := ValidateRadius(0); err != nil {
		t.Errorf("a point agent is valid, got %v", err)
	}
	if err := ValidateRadius(-1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("ValidateRadius(-1) = %v", err)
	}
	if err := ValidateSpeed(120); err != nil {
		t.Errorf("ValidateSpeed(120) = %v", err)
	}
	if err := ValidateSpeed(0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("ValidateSpeed(0) = %v", err)
	}
	if err := ValidateSpeed(math.Inf(1)); !errors.Is(err, ErrNonFinite) {
		t.Errorf("ValidateSpeed(+Inf) = %v", err)
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		isJSON      bool
		errContains string
	}{
		{name: "valid_json", data: []byte(`{"cells":[{"x":0,"y":0}]}`), isJSON: true},
		{name: "yaml_not_parsed", data: []byte("cells: [\n"), isJSON: false},
		{name: "invalid_json", data: []byte(`{"cells": [`), isJSON: true, errContains: "invalid JSON"},
		{name: "too_large", data: make([]byte, MaxDocumentSize+1), errContains: "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.data, tt.isJSON)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidateDocument() error = %v, should contain %q", err, tt.errContains)
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(5, 60)

	for i := 0; i < 5; i++ {
		if !rl.Allow(1) {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow(1) {
		t.Error("6th request in the same tick should be denied")
	}
	if !rl.Allow(2) {
		t.Error("a different agent should be allowed")
	}
}

func TestRateLimiter_RefillsWithTicks(t *testing.T) {
	rl := NewRateLimiter(2, 10)

	rl.Allow(7)
	rl.Allow(7)
	if rl.Allow(7) {
		t.Fatal("request should be denied after consuming all tokens")
	}

	for i := 0; i < 4; i++ {
		rl.Advance()
	}
	if rl.Allow(7) {
		t.Error("4 ticks of a 10 tick window refill no whole token for a 2 token bucket")
	}

	rl.Advance()
	if !rl.Allow(7) {
		t.Error("half a window should refill one token")
	}
	if rl.Allow(7) {
		t.Error("only one token should have been refilled")
	}
}

func TestRateLimiter_IdleAgentGetsOneBurst(t *testing.T) {
	rl := NewRateLimiter(2, 10)
	rl.Allow(3)

	for i := 0; i < 100; i++ {
		rl.Advance()
	}
	allowed := 0
	for rl.Allow(3) {
		allowed++
	}
	if allowed != 2 {
		t.Errorf("after a long idle period %d requests were allowed, want one burst of 2", allowed)
	}

	rl.Advance()
	if rl.Allow(3) {
		t.Error("the idle time was already spent on the burst")
	}
	for i := 0; i < 4; i++ {
		rl.Advance()
	}
	if !rl.Allow(3) {
		t.Error("half a window after the burst should refill one token")
	}
	if rl.Allow(3) {
		t.Error("only one token should have been refilled")
	}
}

func TestRateLimiter_ForgetAndCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 5)
	rl.Allow(1)
	rl.Allow(2)
	if rl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rl.Len())
	}

	rl.Forget(2)
	if rl.Len() != 1 {
		t.Errorf("Len() after Forget = %d, want 1", rl.Len())
	}

	for i := 0; i < 15; i++ {
		rl.Advance()
	}
	if rl.Len() != 0 {
		t.Errorf("idle agent should have been dropped, Len() = %d", rl.Len())
	}
	if rl.Tick() != 15 {
		t.Errorf("Tick() = %d, want 15", rl.Tick())
	}
	if !rl.Allow(1) {
		t.Error("dropped agent starts with a full bucket")
	}
}
