package runtime

import "testing"

func TestDefaultThreadsPositive(t *testing.T) {
	if n := DefaultThreads(); n < 1 {
		t.Fatalf("DefaultThreads() = %d, want >= 1", n)
	}
}
