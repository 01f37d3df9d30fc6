package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const starterWorkflow = `# My Workflow

## Agent: Bot
- Step: Hello
  artifact: hello.txt
  retry: 2
  timeout: 30
`

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "init [path]",
		Short:         "Write a starter workflow file",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "workflow.sf.md"
			if len(args) == 1 {
				path = args[0]
			}
			return runInit(rootOpts, path, cmd)
		},
	}
}

func runInit(rootOpts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	if _, err := os.Stat(path); err == nil {
		msg := fmt.Sprintf("%s already exists, not overwriting", path)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	if err := os.WriteFile(path, []byte(starterWorkflow), 0o644); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "write starter workflow", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"created": path})
	}
	fmt.Fprintf(formatter.Writer, "✓ created %s\n", path)
	return nil
}
