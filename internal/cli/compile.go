package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/StanzaFlow/StanzaFlow/internal/adapter"
	"github.com/StanzaFlow/StanzaFlow/internal/escape"
	"github.com/StanzaFlow/StanzaFlow/internal/safety"
	"github.com/StanzaFlow/StanzaFlow/internal/secrets"
	"github.com/StanzaFlow/StanzaFlow/internal/store"
)

// CompileOptions holds compile-specific flags.
type CompileOptions struct {
	Target    string
	Output    string
	Escapes   bool
	Strict    bool
	CachePath string // overrides config; "off" keeps the cache in memory
	Model     string
}

// CompileResult is the success payload of the compile command.
type CompileResult struct {
	Target      string                       `json:"target"`
	Output      string                       `json:"output,omitempty"`
	Code        string                       `json:"code,omitempty"`
	Unsupported []adapter.UnsupportedPattern `json:"unsupported,omitempty"`
	Resolutions []escape.Resolution          `json:"resolutions,omitempty"`
	Session     string                       `json:"session,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{}

	cmd := &cobra.Command{
		Use:   "compile <workflow.sf.md>",
		Short: "Compile a workflow into target-runtime source",
		Long: `Compile a .sf.md workflow into runnable source for a target runtime.

Constructs the target cannot express natively become marker comments.
With escapes enabled, markers are resolved through the cache and, on a
miss, synthesized, validated and cached. Unresolved markers stay in the
output; they never fail the compile unless --strict is set.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "go", "target runtime")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write generated code to file instead of stdout")
	cmd.Flags().BoolVar(&opts.Escapes, "escapes", true, "resolve unsupported patterns through the escape subsystem")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail if any unsupported pattern remains unresolved")
	cmd.Flags().StringVar(&opts.CachePath, "cache", "", "escape cache path (\"off\" for in-memory)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "oracle model override")

	return cmd
}

func runCompile(rootOpts *RootOptions, opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	cfg, err := LoadConfig(rootOpts.ConfigPath)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load config", err)
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

	// With escapes off there is no path from a capability gap to working
	// output, so fail before generating anything.
	if !opts.Escapes {
		if gaps := adapter.Gaps(a, doc); len(gaps) > 0 {
			if formatter.Format == "json" {
				_ = formatter.Error(ErrCodeGeneric,
					fmt.Sprintf("target %q cannot express %d pattern(s) and escapes are disabled",
						opts.Target, len(gaps)), gaps)
			} else {
				fmt.Fprintf(formatter.Writer, "✗ target %q cannot express %d pattern(s):\n",
					opts.Target, len(gaps))
				for _, gap := range gaps {
					fmt.Fprintf(formatter.Writer, "  %s: %s\n", gap.IRPath, gap.Reason)
				}
				fmt.Fprintln(formatter.Writer, "re-run with --escapes, or rewrite the workflow with native constructs")
			}
			return NewExitError(ExitCommandError, "unsupported patterns with escapes disabled")
		}
	}

	out, err := a.Generate(doc)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "generate", err)
	}
	formatter.VerboseLog("generated %d bytes for target %q, %d unsupported pattern(s)",
		len(out.Code), opts.Target, len(out.Unsupported))

	code := out.Code
	var resolutions []escape.Resolution
	var session string
	if opts.Escapes && len(out.Unsupported) > 0 {
		engine, cleanup, err := buildEngine(cfg, opts, env, formatter)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "set up escape engine", err)
		}
		defer cleanup()

		res := engine.Resolve(cmd.Context(), doc, out)
		code = res.Code
		resolutions = res.Resolutions
		session = res.Session.String()
		formatter.VerboseLog("escape resolution %s: %d/%d injected",
			session, res.Injected(), len(out.Unsupported))
	}

	if opts.Strict {
		if remaining := adapter.ScanMarkers(code); len(remaining) > 0 {
			_ = formatter.Error(ErrCodeGeneric,
				fmt.Sprintf("%d unsupported pattern(s) remain unresolved", len(remaining)), remaining)
			return NewExitError(ExitCommandError, "unresolved patterns in strict mode")
		}
	}

	result := CompileResult{
		Target:      opts.Target,
		Unsupported: out.Unsupported,
		Resolutions: resolutions,
		Session:     session,
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(code), 0o644); err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "write output", err)
		}
		result.Output = opts.Output
	} else {
		result.Code = code
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "✓ compiled %s -> %s (%d marker(s) remaining)\n",
			path, opts.Output, len(adapter.ScanMarkers(code)))
		return nil
	}
	fmt.Fprint(formatter.Writer, code)
	return nil
}

// buildEngine assembles the escape engine from config and flags. The
// returned cleanup closes the cache store.
func buildEngine(cfg *Config, opts *CompileOptions, env secrets.Snapshot, formatter *OutputFormatter) (*escape.Engine, func(), error) {
	cleanup := func() {}

	cachePath := cfg.Cache.Path
	if opts.CachePath != "" {
		cachePath = opts.CachePath
	}

	var cache escape.Cache
	if cachePath == "off" {
		cache = escape.NewMemoryCache()
	} else {
		if dir := filepath.Dir(cachePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create cache dir: %w", err)
			}
		}
		st, err := store.Open(cachePath)
		if err != nil {
			return nil, nil, err
		}
		cache = st
		cleanup = func() { st.Close() }
	}

	var oracle escape.Oracle
	if cfg.Oracle.URL != "" {
		model := cfg.Oracle.Model
		if opts.Model != "" {
			model = opts.Model
		}
		oracle = escape.NewHTTPOracle(cfg.Oracle.URL, model,
			env[cfg.Oracle.APIKeyEnv],
			time.Duration(cfg.Oracle.TimeoutSeconds)*time.Second)
	} else {
		formatter.VerboseLog("no oracle configured, resolving from cache only")
	}

	var sandbox safety.Sandbox
	if len(cfg.Sandbox.Command) > 0 {
		sandbox = safety.NewExecSandbox(cfg.Sandbox.Command)
	}
	validator := safety.NewValidator(sandbox,
		safety.Limits{Timeout: time.Duration(cfg.Sandbox.TimeoutSeconds) * time.Second})

	return escape.New(escape.Options{
		Oracle:    oracle,
		Cache:     cache,
		Validator: validator,
	}), cleanup, nil
}
