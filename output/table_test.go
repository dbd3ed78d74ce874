package output

import (
	"testing"

	"osnma/crypto"
)

func TestCurveName(t *testing.T) {
	tests := []struct {
		curve crypto.Curve
		want  string
	}{
		{crypto.CurveP256, "P-256"},
		{crypto.CurveP521, "P-521"},
		{crypto.Curve(99), "unknown"},
	}
	for _, tc := range tests {
		if got := curveName(tc.curve); got != tc.want {
			t.Errorf("curveName(%v) = %q, want %q", tc.curve, got, tc.want)
		}
	}
}
