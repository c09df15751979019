package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hbnb/internal/config"
	"github.com/roach88/hbnb/internal/harness"
	"github.com/roach88/hbnb/internal/storage"
)

// Scratch backends the scenario command can run against.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendAll    = "all"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Backend string // file | sqlite | all
	Filter  string // glob on the scenario file name
	Trace   bool   // print the rendered trace of every run
}

// ScenarioRun is the outcome of one scenario on one backend.
type ScenarioRun struct {
	Name    string   `json:"name"`
	Backend string   `json:"backend"`
	Pass    bool     `json:"pass"`
	Errors  []string `json:"errors,omitempty"`
	Trace   string   `json:"trace,omitempty"`
}

// ScenarioReport is the overall result of the scenario command.
type ScenarioReport struct {
	Runs   []ScenarioRun `json:"runs"`
	Passed int           `json:"passed"`
	Failed int           `json:"failed"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file.yaml|dir>...",
		Short: "Run storage scenarios",
		Long: `Run YAML storage scenarios against scratch storage.

Each scenario runs on a fresh temporary store, never the configured one.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (unreadable or invalid scenario, bad flags)

Examples:
  hbnb scenario ./scenarios
  hbnb scenario ./scenarios/california.yaml --backend sqlite --trace
  hbnb scenario ./scenarios --filter "state_*" --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", BackendAll, "scratch backend (file|sqlite|all)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenario files by glob pattern")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print the trace of every run")

	return cmd
}

func runScenarios(opts *ScenarioOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	backends, err := scratchBackends(opts.Backend)
	if err != nil {
		return usage(out, err.Error())
	}

	var files []string
	for _, arg := range args {
		found, err := findScenarioFiles(arg, opts.Filter)
		if err != nil {
			_ = out.Error("SCENARIO", "cannot read scenarios", err.Error())
			return WrapExitError(ExitCommandError, "find scenarios", err)
		}
		files = append(files, found...)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report := ScenarioReport{Runs: []ScenarioRun{}}
	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			_ = out.Error("SCENARIO", fmt.Sprintf("invalid scenario %s", file), err.Error())
			return WrapExitError(ExitCommandError, "load scenario", err)
		}
		for _, backend := range backends {
			run := runOnScratch(ctx, scenario, backend)
			if !opts.Trace {
				run.Trace = ""
			}
			report.Runs = append(report.Runs, run)
			if run.Pass {
				report.Passed++
			} else {
				report.Failed++
			}
		}
	}

	if opts.Format == "json" {
		if err := out.Success(report); err != nil {
			return err
		}
	} else {
		if err := out.Success(reportLines(report)); err != nil {
			return err
		}
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario run(s) failed", report.Failed))
	}
	return nil
}

func scratchBackends(name string) ([]string, error) {
	switch name {
	case BackendFile, BackendSQLite:
		return []string{name}, nil
	case BackendAll:
		return []string{BackendFile, BackendSQLite}, nil
	}
	return nil, fmt.Errorf("invalid backend %q: must be one of file, sqlite, all", name)
}

// runOnScratch runs scenario on a new store in a temporary directory that is
// removed afterwards.
func runOnScratch(ctx context.Context, scenario *harness.Scenario, backend string) ScenarioRun {
	run := ScenarioRun{Name: scenario.Name, Backend: backend}

	dir, err := os.MkdirTemp("", "hbnb-scenario-")
	if err != nil {
		run.Errors = []string{err.Error()}
		return run
	}
	defer os.RemoveAll(dir)

	cfg := config.Default()
	cfg.Env = "test"
	if backend == BackendSQLite {
		cfg.Storage = config.StorageDB
		cfg.DB.DSN = filepath.Join(dir, "hbnb.db")
	} else {
		cfg.Storage = config.StorageFile
		cfg.File.Path = filepath.Join(dir, "file.json")
	}

	result, err := harness.Run(ctx, scenario, func() (storage.Backend, error) {
		eng, err := storage.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return eng.Backend(), nil
	})
	if err != nil {
		run.Errors = []string{err.Error()}
		return run
	}

	run.Pass = result.Pass
	run.Errors = result.Errors
	run.Trace = string(harness.Render(scenario.Name, result))
	return run
}

func reportLines(report ScenarioReport) []string {
	var lines []string
	for _, run := range report.Runs {
		status := "PASS"
		if !run.Pass {
			status = "FAIL"
		}
		lines = append(lines, fmt.Sprintf("%s %s [%s]", status, run.Name, run.Backend))
		for _, e := range run.Errors {
			lines = append(lines, "  - "+e)
		}
		if run.Trace != "" {
			for _, l := range strings.Split(strings.TrimRight(run.Trace, "\n"), "\n") {
				lines = append(lines, "    "+l)
			}
		}
	}
	lines = append(lines, fmt.Sprintf("%d passed, %d failed", report.Passed, report.Failed))
	return lines
}

// findScenarioFiles returns path itself when it is a file, or every .yaml
// and .yml file below it, sorted.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(p); ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, d.Name())
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
