package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/StanzaFlow/StanzaFlow/internal/diagram"
)

// GraphResult is the success payload of the graph command.
type GraphResult struct {
	Mermaid string `json:"mermaid"`
	Output  string `json:"output,omitempty"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:           "graph <workflow.sf.md>",
		Short:         "Render the workflow as a Mermaid flowchart",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(rootOpts, output, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write diagram to file instead of stdout")

	return cmd
}

func runGraph(rootOpts *RootOptions, output, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	doc, err := loadDocument(path, snapshotEnviron())
	if err != nil {
		return reportLoadError(formatter, err)
	}

	mermaid := diagram.Mermaid(doc)

	if output != "" {
		if err := os.WriteFile(output, []byte(mermaid), 0o644); err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "write diagram", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(GraphResult{Output: output})
		}
		fmt.Fprintf(formatter.Writer, "✓ diagram written to %s\n", output)
		return nil
	}

	if formatter.Format == "json" {
		return formatter.Success(GraphResult{Mermaid: mermaid})
	}
	fmt.Fprint(formatter.Writer, mermaid)
	return nil
}
