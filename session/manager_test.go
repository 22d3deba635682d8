package session

import (
	"net"
	"testing"
)

func newManagerSession(t *testing.T, id uint64, name string) *Session {
	t.Helper()
	_, server := net.Pipe()
	t.Cleanup(func() { server.Close() })
	s := newSession(server)
	s.PlayerID = id
	s.Name = name
	return s
}

func TestManagerAddGetRemove(t *testing.T) {
	mgr := NewManager()
	s := newManagerSession(t, 1, "alice")

	mgr.Add(s)
	if mgr.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", mgr.Count())
	}
	got, ok := mgr.Get(1)
	if !ok || got != s {
		t.Fatal("expected to get back the added session")
	}

	mgr.Remove(s)
	if mgr.Count() != 0 {
		t.Fatalf("expected 0 sessions after remove, got %d", mgr.Count())
	}
	if _, ok := mgr.Get(1); ok {
		t.Fatal("expected Get to fail after Remove")
	}
}

func TestManagerRangeSeesEverySession(t *testing.T) {
	mgr := NewManager()
	mgr.Add(newManagerSession(t, 1, "alice"))
	mgr.Add(newManagerSession(t, 2, "bob"))
	mgr.Add(newManagerSession(t, 3, "carol"))

	seen := make(map[uint64]bool)
	mgr.Range(func(s *Session) { seen[s.PlayerID] = true })

	for _, id := range []uint64{1, 2, 3} {
		if !seen[id] {
			t.Fatalf("expected Range to visit player %d", id)
		}
	}
}
