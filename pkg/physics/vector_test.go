// pkg/physics/vector_test.go
package physics

import (
	"math"
	"testing"
)

func TestVector2D_Arithmetic(t *testing.T) {
	tests := []struct {
		name     string
		got      Vector2D
		expected Vector2D
	}{
		{"add", Vector2D{X: 3, Y: 4}.Add(Vector2D{X: 1, Y: 2}), Vector2D{X: 4, Y: 6}},
		{"add_negative", Vector2D{X: -3, Y: -4}.Add(Vector2D{X: -1, Y: -2}), Vector2D{X: -4, Y: -6}},
		{"sub", Vector2D{X: 5, Y: 7}.Sub(Vector2D{X: 2, Y: 3}), Vector2D{X: 3, Y: 4}},
		{"sub_self", Vector2D{X: 4, Y: 6}.Sub(Vector2D{X: 4, Y: 6}), Vector2D{}},
		{"scale", Vector2D{X: 2, Y: -3}.Scale(2), Vector2D{X: 4, Y: -6}},
		{"scale_zero", Vector2D{X: 2, Y: -3}.Scale(0), Vector2D{}},
		{"perp", Vector2D{X: 1, Y: 0}.Perp(), Vector2D{X: 0, Y: 1}},
		{"lerp_mid", Vector2D{X: 0, Y: 0}.Lerp(Vector2D{X: 10, Y: -4}, 0.5), Vector2D{X: 5, Y: -2}},
		{"lerp_end", Vector2D{X: 1, Y: 1}.Lerp(Vector2D{X: 3, Y: 3}, 1), Vector2D{X: 3, Y: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, expected %v", tt.got, tt.expected)
			}
		})
	}
}

func TestVector2D_Length(t *testing.T) {
	v := Vector2D{X: 3, Y: 4}
	if v.Length() != 5 {
		t.Errorf("Length() = %v, expected 5", v.Length())
	}
	if v.LengthSquared() != 25 {
		t.Errorf("LengthSquared() = %v, expected 25", v.LengthSquared())
	}
	if d := v.Distance(Vector2D{}); d != 5 {
		t.Errorf("Distance() = %v, expected 5", d)
	}
	if d := v.DistanceSquared(Vector2D{X: 3, Y: 0}); d != 16 {
		t.Errorf("DistanceSquared() = %v, expected 16", d)
	}
}

func TestVector2D_Normalize(t *testing.T) {
	tests := []struct {
		name string
		v    Vector2D
	}{
		{"axis", Vector2D{X: 10, Y: 0}},
		{"diagonal", Vector2D{X: 3, Y: 4}},
		{"negative", Vector2D{X: -7, Y: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.v.Normalize()
			if math.Abs(n.Length()-1) > 1e-12 {
				t.Errorf("Normalize() length = %v, expected 1", n.Length())
			}
			if n.Dot(tt.v) <= 0 {
				t.Errorf("Normalize() flipped direction: %v", n)
			}
		})
	}

	t.Run("zero_vector", func(t *testing.T) {
		if n := (Vector2D{}).Normalize(); !n.IsZero() {
			t.Errorf("Normalize() of zero = %v, expected zero", n)
		}
	})
}

func TestVector2D_Dot(t *testing.T) {
	if d := (Vector2D{X: 1, Y: 0}).Dot(Vector2D{X: 0, Y: 1}); d != 0 {
		t.Errorf("perpendicular Dot() = %v, expected 0", d)
	}
	if d := (Vector2D{X: 2, Y: 3}).Dot(Vector2D{X: 4, Y: -1}); d != 5 {
		t.Errorf("Dot() = %v, expected 5", d)
	}
	v := Vector2D{X: 5, Y: -2}
	if d := v.Dot(v.Perp()); d != 0 {
		t.Errorf("Dot() with Perp() = %v, expected 0", d)
	}
}

func TestVector2D_NearlyEqual(t *testing.T) {
	a := Vector2D{X: 1, Y: 1}
	if !a.NearlyEqual(Vector2D{X: 1.05, Y: 1}, 0.1) {
		t.Error("expected vectors within tolerance to be nearly equal")
	}
	if a.NearlyEqual(Vector2D{X: 1.5, Y: 1}, 0.1) {
		t.Error("expected vectors outside tolerance to differ")
	}
}

func TestVector2D_IsFinite(t *testing.T) {
	if !(Vector2D{X: 1, Y: -1}).IsFinite() {
		t.Error("expected finite vector")
	}
	if (Vector2D{X: math.NaN(), Y: 0}).IsFinite() {
		t.Error("expected NaN vector to be non-finite")
	}
	if (Vector2D{X: 0, Y: math.Inf(-1)}).IsFinite() {
		t.Error("expected Inf vector to be non-finite")
	}
}

func TestFromAngle(t *testing.T) {
	v := FromAngle(math.Pi/2, 2)
	if math.Abs(v.X) > 1e-12 || math.Abs(v.Y-2) > 1e-12 {
		t.Errorf("FromAngle() = %v, expected (0, 2)", v)
	}
	if a := v.Angle(); math.Abs(a-math.Pi/2) > 1e-12 {
		t.Errorf("Angle() = %v, expected pi/2", a)
	}
}
