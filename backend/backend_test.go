package backend

import "testing"

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("fake", 10, func() (GraphicsBackend, error) { return nil, nil }, nil)

	if !contains(r.List(), "fake") {
		t.Fatal("List() does not contain registered backend")
	}
	if _, err := r.NewBackendByName("fake"); err != nil {
		t.Fatalf("NewBackendByName(fake) error = %v", err)
	}
}

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.NewBackendByName("missing")
	var notFound *BackendNotFoundError
	if err == nil {
		t.Fatal("expected error for unregistered backend")
	}
	if !isBackendNotFound(err, &notFound) {
		t.Fatalf("error = %v, want *BackendNotFoundError", err)
	}
}

func TestRegistry_Unavailable(t *testing.T) {
	r := NewRegistry()
	r.Register("gpu", 5, func() (GraphicsBackend, error) { return nil, nil }, func() bool { return false })

	if got := r.Available(); len(got) != 0 {
		t.Fatalf("Available() = %v, want empty", got)
	}
	_, err := r.NewBackendByName("gpu")
	var unavailable *BackendUnavailableError
	if !isBackendUnavailable(err, &unavailable) {
		t.Fatalf("error = %v, want *BackendUnavailableError", err)
	}
}

func TestRegistry_PriorityOrdering(t *testing.T) {
	r := NewRegistry()
	r.Register("low", 1, func() (GraphicsBackend, error) { return nil, nil }, nil)
	r.Register("high", 10, func() (GraphicsBackend, error) { return nil, nil }, nil)
	r.Register("mid", 5, func() (GraphicsBackend, error) { return nil, nil }, nil)

	got := r.Available()
	want := []string{"high", "mid", "low"}
	if len(got) != len(want) {
		t.Fatalf("Available() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Available()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	r.Register("temp", 1, func() (GraphicsBackend, error) { return nil, nil }, nil)
	r.Unregister("temp")

	if contains(r.List(), "temp") {
		t.Fatal("List() still contains unregistered backend")
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func isBackendNotFound(err error, target **BackendNotFoundError) bool {
	e, ok := err.(*BackendNotFoundError)
	if ok {
		*target = e
	}
	return ok
}

func isBackendUnavailable(err error, target **BackendUnavailableError) bool {
	e, ok := err.(*BackendUnavailableError)
	if ok {
		*target = e
	}
	return ok
}
