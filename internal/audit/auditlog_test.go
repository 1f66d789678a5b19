package audit

import "testing"

func TestChainVerifies(t *testing.T) {
	l := New()
	l.Append("u1", "login")
	l.Append("u1", "export")
	l.Append("u2", "delete-account")
	if err := l.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestTamperBreaksChain(t *testing.T) {
	l := New()
	l.Append("u1", "login")
	l.Append("u1", "logout")
	l.entries[0].Action = "export"
	if err := l.Verify(); err == nil {
		t.Fatal("edited entry should break verification")
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	l := New()
	l.Append("u1", "login")
	got := l.Entries()
	got[0].Action = "mutated"
	if l.Entries()[0].Action != "login" {
		t.Fatal("callers must not be able to mutate the trail")
	}
}
