package cmd

import "github.com/conneroisu/bindery/internal/validation"

// allowedExecCommands lists the site generators and build tools watch may
// run after a successful rebuild.
var allowedExecCommands = map[string]bool{
	"make":   true,
	"jekyll": true,
	"bundle": true,
	"hugo":   true,
	"mdbook": true,
	"pandoc": true,
	"npm":    true,
	"npx":    true,
	"echo":   true,
	"true":   true,
}

// validateExecCommand checks a --exec command line before it is run.
func validateExecCommand(command string, args []string) error {
	if err := validation.ValidateCommand(command, allowedExecCommands); err != nil {
		return err
	}
	return validation.ValidateArguments(args)
}
