package version

import "testing"

func TestString(t *testing.T) {
	Version, Commit, BuildDate = "1.2.0", "abc123", "2024-03-01"
	t.Cleanup(func() { Version, Commit, BuildDate = "dev", "unknown", "unknown" })

	want := "callreminder 1.2.0 (commit abc123, built 2024-03-01)"
	if got := String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
