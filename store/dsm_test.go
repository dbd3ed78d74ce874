package store

import (
	"reflect"
	"testing"
)

func TestDSMBufferCompleteness(t *testing.T) {
	buf := &DSMBuffer{Key: DSMKey{SVN: 3, DSMID: 1}}
	if buf.Complete() {
		t.Error("empty buffer should not be complete")
	}

	buf.NumBlocks = 2
	buf.Blocks[0] = []byte{0xAA}
	buf.Have[0] = true
	if buf.Complete() {
		t.Error("buffer missing block 1 should not be complete")
	}

	buf.Blocks[1] = []byte{0xBB}
	buf.Have[1] = true
	if !buf.Complete() {
		t.Error("buffer with both blocks should be complete")
	}
}

func TestDSMBufferAssemble(t *testing.T) {
	buf := &DSMBuffer{Key: DSMKey{SVN: 3, DSMID: 1}, NumBlocks: 3}
	buf.Blocks[0] = []byte{0x01}
	buf.Blocks[1] = []byte{0x02}
	buf.Blocks[2] = []byte{0x03}

	got := buf.Assemble()
	want := []byte{0x01, 0x02, 0x03}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Assemble: got %v, want %v", got, want)
	}
}

func TestDSMBufferReset(t *testing.T) {
	key := DSMKey{SVN: 7, DSMID: 2}
	buf := &DSMBuffer{Key: key, NumBlocks: 4, LastProgress: 99}
	buf.Blocks[0] = []byte{0x01}
	buf.Have[0] = true

	buf.Reset()
	if buf.Key != key {
		t.Error("Reset should preserve Key")
	}
	if buf.NumBlocks != 0 || buf.LastProgress != 0 || buf.Have[0] {
		t.Error("Reset should clear every other field")
	}
}
