package crypto

import "testing"

func TestComputeAndVerifyMACHMAC(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	msg := []byte("GST || NavBlock bits")

	tag, err := ComputeMAC(MACHMACSHA256, key, msg, 40)
	if err != nil {
		t.Fatal(err)
	}
	if len(tag) != 5 {
		t.Errorf("40-bit tag should be 5 bytes, got %d", len(tag))
	}

	ok, err := VerifyMAC(MACHMACSHA256, key, msg, tag)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("VerifyMAC should accept a freshly computed tag")
	}
}

func TestVerifyMACRejectsTamperedTag(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	msg := []byte("message")
	tag, _ := ComputeMAC(MACHMACSHA256, key, msg, 40)
	tag[0] ^= 0xFF

	ok, err := VerifyMAC(MACHMACSHA256, key, msg, tag)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("VerifyMAC should reject a tampered tag")
	}
}

func TestComputeMACCMACAES(t *testing.T) {
	key := make([]byte, 16) // AES-128 key
	msg := []byte("0123456789abcdef")

	tag, err := ComputeMAC(MACCMACAES, key, msg, 40)
	if err != nil {
		t.Fatal(err)
	}
	if len(tag) != 5 {
		t.Errorf("40-bit tag should be 5 bytes, got %d", len(tag))
	}

	ok, err := VerifyMAC(MACCMACAES, key, msg, tag)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("VerifyMAC should accept a freshly computed CMAC tag")
	}
}

func TestComputeMACUnsupportedFunc(t *testing.T) {
	if _, err := ComputeMAC(MACFunc(99), []byte("k"), []byte("m"), 40); err != ErrUnsupportedMAC {
		t.Errorf("got %v, want ErrUnsupportedMAC", err)
	}
}

func TestVerifyMACRejectsWrongTag(t *testing.T) {
	ok, err := VerifyMAC(MACHMACSHA256, []byte("key"), []byte("msg"), []byte{0x01})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("VerifyMAC should reject an arbitrary short tag that doesn't match")
	}
}
