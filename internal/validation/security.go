// Package validation provides the input checks shared by configuration
// loading and the watch command's --exec hook: command allowlists,
// shell metacharacters and path traversal.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// argumentDangerousChars are rejected anywhere in a command argument.
var argumentDangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "[", "]", "<", ">", "\"", "'", "\\"}

// pathDangerousChars are rejected in configured directories.
var pathDangerousChars = []string{";", "&", "|", "$", "`", "<", ">", "\"", "'"}

// ValidateArgument validates a command line argument to prevent injection attacks.
// Absolute paths are only accepted under /tmp/.
func ValidateArgument(arg string) error {
	for _, char := range argumentDangerousChars {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if strings.Contains(arg, "..") {
		return fmt.Errorf("path traversal attempt detected")
	}

	if strings.HasPrefix(arg, "/") && !strings.HasPrefix(arg, "/tmp/") {
		return fmt.Errorf("absolute path not allowed: %s", arg)
	}

	return nil
}

// ValidateArguments validates a slice of arguments
func ValidateArguments(args []string) error {
	for _, arg := range args {
		if err := ValidateArgument(arg); err != nil {
			return fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}
	return nil
}

// ValidateCommand validates a command name against an allowlist
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}
	if !allowedCommands[command] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}
	return nil
}

// ValidatePath rejects a directory that escapes its base once cleaned or
// that carries shell metacharacters.
func ValidatePath(p string) error {
	cleanPath := filepath.Clean(p)

	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", p)
		}
	}

	for _, char := range pathDangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
