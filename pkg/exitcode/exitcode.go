// Package exitcode provides standardized exit codes for twproj
package exitcode

// Exit codes for twproj CLI
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	ScanError       = 3
	FileSystemError = 4
	NoProjectFound  = 5
	UsageError      = 64
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case ScanError:
		return "Workspace scan failed"
	case FileSystemError:
		return "File system error"
	case NoProjectFound:
		return "No project found"
	case UsageError:
		return "Usage error"
	default:
		return "Unknown error"
	}
}
