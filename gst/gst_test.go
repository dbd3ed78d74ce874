package gst

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		wn, tow uint32
		wantErr bool
	}{
		{"zero", 0, 0, false},
		{"subframe boundary", 1234, 60, false},
		{"not a boundary", 1234, 31, true},
		{"tow too large", 1234, secondsPerWeek, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.wn, tt.tow)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d,%d): err=%v, wantErr=%v", tt.wn, tt.tow, err, tt.wantErr)
			}
		})
	}
}

func TestAddWithinWeek(t *testing.T) {
	start, err := New(100, 0)
	if err != nil {
		t.Fatal(err)
	}
	got := start.Add(2)
	want, _ := New(100, 60)
	if !got.Equal(want) {
		t.Errorf("Add(2): got %v, want %v", got, want)
	}
}

func TestAddAcrossWeekRollover(t *testing.T) {
	subframesPerWeek := int64(secondsPerWeek / SubframeSeconds)
	start, _ := New(100, secondsPerWeek-SubframeSeconds)
	got := start.Add(1)
	if got.WN != 101 || got.TOW != 0 {
		t.Errorf("Add across rollover: got %v, want WN=101 TOW=0", got)
	}
	if start.Add(subframesPerWeek).WN != 101 {
		t.Errorf("Add(subframesPerWeek) should advance exactly one week")
	}
}

func TestAddNegativeClampsAtZero(t *testing.T) {
	start, _ := New(0, 0)
	got := start.Add(-5)
	want, _ := New(0, 0)
	if !got.Equal(want) {
		t.Errorf("Add(-5) from zero: got %v, want clamped to zero", got)
	}
}

func TestSubframesAndOrdering(t *testing.T) {
	a, _ := New(10, 300)
	b, _ := New(10, 360)
	if a.Subframes(b) != -2 {
		t.Errorf("a.Subframes(b): got %d, want -2", a.Subframes(b))
	}
	if b.Subframes(a) != 2 {
		t.Errorf("b.Subframes(a): got %d, want 2", b.Subframes(a))
	}
	if !a.Before(b) {
		t.Error("a should be before b")
	}
	if !b.After(a) {
		t.Error("b should be after a")
	}
	if a.Equal(b) {
		t.Error("a and b should not be equal")
	}
}

func TestString(t *testing.T) {
	tm, _ := New(1250, 90)
	if got, want := tm.String(), "1250:00090"; got != want {
		t.Errorf("String(): got %q, want %q", got, want)
	}
}
