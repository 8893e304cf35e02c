package version

import "testing"

func TestString(t *testing.T) {
	oldVersion, oldSHA := Version, GitSHA
	t.Cleanup(func() { Version, GitSHA = oldVersion, oldSHA })

	tests := []struct {
		version, sha, want string
	}{
		{"dev", "unknown", "dev (unknown)"},
		{"0.3.1", "0123456789abcdef", "0.3.1 (0123456)"},
		{"0.3.1", "abc", "0.3.1 (abc)"},
	}
	for _, tt := range tests {
		Version, GitSHA = tt.version, tt.sha
		if got := String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
