package crypto

import (
	"crypto/sha256"
	"testing"
)

func TestLeafHash(t *testing.T) {
	leaf := LeafHash(PKTypeP256, 1, []byte("uncompressed point bytes"))
	if leaf == ([32]byte{}) {
		t.Error("LeafHash should not produce a zero digest for non-empty input")
	}
	again := LeafHash(PKTypeP256, 1, []byte("uncompressed point bytes"))
	if leaf != again {
		t.Error("LeafHash should be deterministic")
	}
}

func TestVerifyMerklePathValid(t *testing.T) {
	leaf := LeafHash(PKTypeP256, 2, []byte("new public key"))
	sibling1 := sha256.Sum256([]byte("sibling-1"))
	sibling2 := sha256.Sum256([]byte("sibling-2"))

	level1 := sha256.Sum256(append(append([]byte{}, leaf[:]...), sibling1[:]...))
	root := sha256.Sum256(append(append([]byte{}, sibling2[:]...), level1[:]...))

	path := [][32]byte{sibling1, sibling2}
	siblingOnRight := []bool{true, false}

	if err := VerifyMerklePath(leaf, path, siblingOnRight, root); err != nil {
		t.Errorf("VerifyMerklePath: unexpected error: %v", err)
	}
}

func TestVerifyMerklePathMismatch(t *testing.T) {
	leaf := LeafHash(PKTypeP256, 2, []byte("new public key"))
	sibling := sha256.Sum256([]byte("sibling"))
	var wrongRoot [32]byte

	err := VerifyMerklePath(leaf, [][32]byte{sibling}, []bool{true}, wrongRoot)
	if err != ErrMerkleMismatch {
		t.Errorf("got %v, want ErrMerkleMismatch", err)
	}
}

func TestVerifyMerklePathLengthMismatch(t *testing.T) {
	leaf := LeafHash(PKTypeP256, 2, []byte("key"))
	sibling := sha256.Sum256([]byte("sibling"))
	err := VerifyMerklePath(leaf, [][32]byte{sibling}, []bool{true, false}, [32]byte{})
	if err == nil {
		t.Error("expected error for mismatched path/orientation lengths")
	}
}
