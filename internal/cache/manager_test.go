package cache

import (
	"context"
	"testing"
	"time"
)

func TestManagerReusesNamespaceInstances(t *testing.T) {
	m := NewManager(newTestStore(t), time.Hour)
	t.Cleanup(func() { m.Close() })

	a := m.Cache("classic")
	b := m.Cache("classic")
	if a != b {
		t.Fatal("same namespace must yield the same cache instance")
	}
	if c := m.Cache("agentic"); c == a {
		t.Fatal("distinct namespaces must not share an instance")
	}
	if d := m.Cache(""); d.Namespace() != DefaultNamespace {
		t.Fatalf("empty namespace resolved to %q", d.Namespace())
	}
}

func TestManagerCloseReleasesCaches(t *testing.T) {
	m := NewManager(newTestStore(t), time.Hour)
	c := m.Cache("classic")
	if err := c.Set(context.Background(), "q", "a", ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// A fresh handle reconnects against the same database.
	c2 := m.Cache("classic")
	got, err := c2.Get(context.Background(), "q")
	if err != nil {
		t.Fatalf("get after close: %v", err)
	}
	if got == nil {
		t.Fatal("entry must survive a manager close")
	}
}
