package convo

import "testing"

func TestAppendWithoutCreateFails(t *testing.T) {
	s := NewStore()
	if err := s.Append("nobody", Turn{Role: RoleUser, Content: "hi"}); err != ErrNotFound {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestCreateResetsHistory(t *testing.T) {
	s := NewStore()
	s.Create("c1")
	if err := s.Append("c1", Turn{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	s.Create("c1")
	turns, err := s.Snapshot("c1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("len=%d, want 0 after re-create", len(turns))
	}
}

func TestPopLastIf(t *testing.T) {
	s := NewStore()
	s.Create("c1")
	s.Append("c1", Turn{Role: RoleUser, Content: "q1"})
	s.Append("c1", Turn{Role: RoleAssistant, Content: "a1"})

	// Predicate rejects: no-op.
	if _, ok := s.PopLastIf("c1", func(t Turn) bool { return t.Role == RoleUser }); ok {
		t.Fatalf("expected predicate to reject assistant turn")
	}
	turns, _ := s.Snapshot("c1")
	if len(turns) != 2 {
		t.Fatalf("len=%d, want 2", len(turns))
	}

	// Predicate accepts: removes and returns the turn.
	got, ok := s.PopLastIf("c1", func(t Turn) bool { return t.Role == RoleAssistant })
	if !ok || got.Content != "a1" {
		t.Fatalf("got=%+v ok=%v, want a1 removed", got, ok)
	}
	turns, _ = s.Snapshot("c1")
	if len(turns) != 1 || turns[0].Content != "q1" {
		t.Fatalf("turns=%+v, want only q1", turns)
	}

	// Unknown client: no-op, no panic.
	if _, ok := s.PopLastIf("nobody", func(Turn) bool { return true }); ok {
		t.Fatalf("expected no-op for unknown client")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Create("c1")
	s.Append("c1", Turn{Role: RoleUser, Content: "original"})

	turns, _ := s.Snapshot("c1")
	turns[0].Content = "mutated"

	again, _ := s.Snapshot("c1")
	if again[0].Content != "original" {
		t.Fatalf("store observed caller mutation: %q", again[0].Content)
	}
}

func TestDestroy(t *testing.T) {
	s := NewStore()
	s.Create("c1")
	s.Destroy("c1")
	if _, err := s.Snapshot("c1"); err != ErrNotFound {
		t.Fatalf("err=%v, want ErrNotFound after destroy", err)
	}
	// Destroying twice is harmless.
	s.Destroy("c1")
}
