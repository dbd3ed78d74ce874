package store

import (
	"testing"

	"osnma/crypto"
)

func TestSetCurrentAndNext(t *testing.T) {
	var set PublicKeySet
	set.SetCurrent(PublicKeyEntry{PKID: 1})
	set.SetNext(PublicKeyEntry{PKID: 2})

	if set.Current.Status != KeyStatusCurrent {
		t.Error("SetCurrent should stamp KeyStatusCurrent")
	}
	if set.Next.Status != KeyStatusNext {
		t.Error("SetNext should stamp KeyStatusNext")
	}
}

func TestSetNextReplacesPriorNext(t *testing.T) {
	var set PublicKeySet
	set.SetNext(PublicKeyEntry{PKID: 2})
	set.SetNext(PublicKeyEntry{PKID: 3})
	if set.Next.PKID != 3 {
		t.Errorf("SetNext should replace the prior next, got PKID %d", set.Next.PKID)
	}
}

func TestPromote(t *testing.T) {
	var set PublicKeySet
	set.SetCurrent(PublicKeyEntry{PKID: 1})
	set.SetNext(PublicKeyEntry{PKID: 2})

	set.Promote()
	if set.Current == nil || set.Current.PKID != 2 {
		t.Fatal("Promote should move Next into Current")
	}
	if set.Current.Status != KeyStatusCurrent {
		t.Error("promoted entry should be stamped KeyStatusCurrent")
	}
	if set.Next != nil {
		t.Error("Promote should clear Next")
	}
}

func TestPromoteNoopWithoutNext(t *testing.T) {
	var set PublicKeySet
	set.SetCurrent(PublicKeyEntry{PKID: 1})
	set.Promote()
	if set.Current.PKID != 1 {
		t.Error("Promote with no Next should leave Current unchanged")
	}
}

func TestByPKID(t *testing.T) {
	var set PublicKeySet
	set.SetCurrent(PublicKeyEntry{PKID: 1, Point: crypto.PublicKey{Curve: crypto.CurveP256}})
	set.SetNext(PublicKeyEntry{PKID: 2})

	if _, ok := set.ByPKID(1); !ok {
		t.Error("ByPKID should find the current key")
	}
	if _, ok := set.ByPKID(2); !ok {
		t.Error("ByPKID should find the next key")
	}
	if _, ok := set.ByPKID(99); ok {
		t.Error("ByPKID should not find an unknown PKID")
	}
}

func TestWipe(t *testing.T) {
	var set PublicKeySet
	set.SetCurrent(PublicKeyEntry{PKID: 1})
	set.SetNext(PublicKeyEntry{PKID: 2})
	set.Wipe()
	if set.Current != nil || set.Next != nil {
		t.Error("Wipe should clear both slots")
	}
}
