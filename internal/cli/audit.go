package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/StanzaFlow/StanzaFlow/internal/adapter"
	"github.com/StanzaFlow/StanzaFlow/internal/audit"
)

// AuditOptions holds audit-specific flags.
type AuditOptions struct {
	Target    string
	Threshold float64
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{}

	cmd := &cobra.Command{
		Use:   "audit <workflow.sf.md>",
		Short: "Report marker density and workflow statistics",
		Long: `Generate code without escape resolution and measure how much of the
workflow the target could express natively. Fails when the marker
density exceeds the threshold.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "go", "target runtime")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "marker density threshold (0 uses config)")

	return cmd
}

func runAudit(rootOpts *RootOptions, opts *AuditOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	cfg, err := LoadConfig(rootOpts.ConfigPath)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load config", err)
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = cfg.Audit.Threshold
	}

	env := snapshotEnviron()
	doc, err := loadDocument(path, env)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	a, err := adapter.Default().Lookup(opts.Target)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "resolve target", err)
	}

	// Audit looks at raw generation: what the target itself can express,
	// before any synthesized code papers over the gaps.
	out, err := a.Generate(doc)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "generate", err)
	}

	report := audit.Scan(doc, out.Code, env, threshold)

	if formatter.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, report.Summary())
		for name, masked := range report.SecretsSummary {
			fmt.Fprintf(formatter.Writer, "  secret %s = %s\n", name, masked)
		}
	}

	if !report.Passed {
		return NewExitError(ExitFailure,
			fmt.Sprintf("marker density %.2f exceeds threshold %.2f", report.MarkerDensity, report.Threshold))
	}
	return nil
}
