package module

import (
	"fmt"
	"os"
	"time"

	"github.com/antibyte/kscr/pkg/eval"
	"github.com/antibyte/kscr/pkg/logger"
	"github.com/antibyte/kscr/pkg/script"
)

// FileResult is the outcome of one source file.
type FileResult struct {
	Path     string
	Result   eval.Result
	Err      error
	ExitCode int
	Duration time.Duration
}

// Report is the outcome of a module run.
type Report struct {
	Module string
	Files  []FileResult
}

// ExitCode is the first non-zero file exit code, or 0.
func (r *Report) ExitCode() int {
	for _, f := range r.Files {
		if f.ExitCode != 0 {
			return f.ExitCode
		}
	}
	return 0
}

// Run executes every source of m in order. Every file gets its own
// environment; a failing file does not stop the following ones.
func Run(m *Manifest, runner *script.Runner) (*Report, error) {
	report := &Report{Module: m.Project.Name()}
	logger.Info(logger.AreaModule, "Running module %s (%d sources)", report.Module, len(m.Sources))

	for _, path := range m.Sources {
		src, err := os.ReadFile(path)
		if err != nil {
			return report, fmt.Errorf("module %s: %w", report.Module, err)
		}

		start := time.Now()
		res, runErr := runner.Run(src)
		fr := FileResult{
			Path:     path,
			Result:   res,
			Err:      runErr,
			ExitCode: script.ExitCode(res, runErr),
			Duration: time.Since(start),
		}
		if runErr != nil {
			logger.Warn(logger.AreaModule, "%s: %v", path, runErr)
		} else {
			logger.Debug(logger.AreaModule, "%s: exit code %d", path, fr.ExitCode)
		}
		report.Files = append(report.Files, fr)
	}
	return report, nil
}
