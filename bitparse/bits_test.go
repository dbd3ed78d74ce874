package bitparse

import (
	"reflect"
	"testing"
)

func TestFromBytes(t *testing.T) {
	b, err := FromBytes([]byte{0xB4}, 8) // 1011 0100
	if err != nil {
		t.Fatal(err)
	}
	want := Bits{true, false, true, true, false, true, false, false}
	if !reflect.DeepEqual(b, want) {
		t.Errorf("FromBytes: got %v, want %v", b, want)
	}
}

func TestFromBytesWrongLength(t *testing.T) {
	if _, err := FromBytes([]byte{0x00}, 16); err == nil {
		t.Error("expected error for mismatched byte length")
	}
}

func TestUint(t *testing.T) {
	b, _ := FromBytes([]byte{0xB4}, 8)
	if got := b.Uint(0, 4); got != 0xB {
		t.Errorf("Uint(0,4): got %d, want 11", got)
	}
	if got := b.Uint(4, 4); got != 0x4 {
		t.Errorf("Uint(4,4): got %d, want 4", got)
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		bits  Bits
		width int
		want  int64
	}{
		{Bits{false, true, true}, 3, 3},
		{Bits{true, false, false}, 3, -4},
		{Bits{true, true, true}, 3, -1},
	}
	for _, tt := range tests {
		if got := tt.bits.Int(0, tt.width); got != tt.want {
			t.Errorf("Int(%v): got %d, want %d", tt.bits, got, tt.want)
		}
	}
}

func TestSlice(t *testing.T) {
	b, _ := FromBytes([]byte{0xB4}, 8)
	s := b.Slice(2, 4)
	want := Bits{true, true, false, true}
	if !reflect.DeepEqual(s, want) {
		t.Errorf("Slice: got %v, want %v", s, want)
	}
}

func TestPackRoundTrip(t *testing.T) {
	orig := []byte{0xB4, 0x7F}
	b, err := FromBytes(orig, 16)
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Pack(); !reflect.DeepEqual(got, orig) {
		t.Errorf("Pack round-trip: got %v, want %v", got, orig)
	}
}

func TestPackPadsFinalByte(t *testing.T) {
	b := Bits{true, false, true}
	got := b.Pack()
	want := []byte{0xA0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Pack padding: got %v, want %v", got, want)
	}
}
