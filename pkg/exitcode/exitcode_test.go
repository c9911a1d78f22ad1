package exitcode

import "testing"

func TestExitCodeStrings(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{Success, "Success"},
		{GeneralError, "General error"},
		{ConfigError, "Configuration error"},
		{ScanError, "Workspace scan failed"},
		{FileSystemError, "File system error"},
		{NoProjectFound, "No project found"},
		{UsageError, "Usage error"},
		{999, "Unknown error"},
	}

	for _, tt := range tests {
		if got := String(tt.code); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestExitCodesAreDistinct(t *testing.T) {
	seen := map[int]bool{}
	for _, c := range []int{Success, GeneralError, ConfigError, ScanError, FileSystemError, NoProjectFound, UsageError} {
		if seen[c] {
			t.Fatalf("duplicate exit code %d", c)
		}
		seen[c] = true
	}
}
