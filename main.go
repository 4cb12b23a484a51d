package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/antibyte/kscr/pkg/configuration"
	"github.com/antibyte/kscr/pkg/eval"
	"github.com/antibyte/kscr/pkg/logger"
	"github.com/antibyte/kscr/pkg/module"
	"github.com/antibyte/kscr/pkg/script"
	"github.com/antibyte/kscr/pkg/store"
	"github.com/antibyte/kscr/pkg/terminal"
	tlsmanager "github.com/antibyte/kscr/pkg/tls"
	"github.com/antibyte/kscr/pkg/value"
)

const version = "kscr 0.1.0"

const defaultConfigPath = "settings.cfg"

var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	configPath, args, err := parseGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		printUsage(stderr)
		return script.ExitFailure
	}
	if len(args) == 0 {
		printUsage(stderr)
		return script.ExitFailure
	}

	switch args[0] {
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	case "version", "--version":
		fmt.Fprintln(stdout, version)
		return 0
	}

	// Konfiguration vor allen anderen Initialisierungen
	if err := configuration.Initialize(configPath); err != nil {
		fmt.Fprintf(stderr, "Error initializing configuration: %v\n", err)
		return script.ExitFailure
	}
	if err := logger.Initialize(); err != nil {
		fmt.Fprintf(stderr, "Error initializing logger: %v\n", err)
		return script.ExitFailure
	}
	defer logger.Close()
	logger.Info(logger.AreaConfig, "Configuration loaded from %s", configPath)

	rest := args[1:]
	switch args[0] {
	case "run":
		return runFile(rest, stdout, stderr)
	case "disasm":
		return disassemble(rest, stdout, stderr)
	case "module":
		return runModule(rest, stdout, stderr)
	case "history":
		return showHistory(rest, stdout, stderr)
	case "serve":
		return serve(stderr)
	}
	fmt.Fprintf(stderr, "unknown command %q\n", args[0])
	printUsage(stderr)
	return script.ExitFailure
}

// parseGlobalFlags strips --config from the front of args.
func parseGlobalFlags(args []string) (string, []string, error) {
	configPath := defaultConfigPath
	if env := os.Getenv("KSCR_CONFIG"); env != "" {
		configPath = env
	}
	for len(args) > 0 && (args[0] == "--config" || args[0] == "-c") {
		if len(args) < 2 {
			return "", nil, fmt.Errorf("%w: %s needs a path", errUsage, args[0])
		}
		configPath = args[1]
		args = args[2:]
	}
	return configPath, args, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `usage: kscr [--config settings.cfg] <command> [args]

commands:
  run <file>        execute a script, its result is the exit code
  disasm <file>     print the compiled instructions of a script
  module [path]     run the sources listed in kscr.yaml
  history [n]       show the last n journaled server runs
  serve             start the evaluation server
  version           print the version`)
}

func runFile(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "run expects exactly one file")
		return script.ExitFailure
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return script.ExitFailure
	}

	res, err := script.NewRunner(script.DefaultOptions()).Run(src)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return script.ExitCode(res, err)
	}
	if res.NoExitValue {
		fmt.Fprintf(stderr, "%s: %s\n", args[0], res.Diagnostic)
	}
	fmt.Fprintln(stdout, value.Describe(res.Value))
	return res.ExitCode
}

func disassemble(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "disasm expects exactly one file")
		return script.ExitFailure
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return script.ExitFailure
	}
	prog, err := script.NewRunner(script.DefaultOptions()).Compile(src)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return script.ExitCode(eval.Result{}, err)
	}
	fmt.Fprint(stdout, prog.Disassemble())
	return 0
}

func runModule(args []string, stdout, stderr io.Writer) int {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	m, err := module.Load(path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return script.ExitFailure
	}

	report, err := module.Run(m, script.NewRunner(script.DefaultOptions()))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return script.ExitFailure
	}
	for _, f := range report.Files {
		if f.Err != nil {
			fmt.Fprintf(stdout, "%-40s %3d  %v\n", f.Path, f.ExitCode, f.Err)
			continue
		}
		fmt.Fprintf(stdout, "%-40s %3d  %s\n", f.Path, f.ExitCode, value.Describe(f.Result.Value))
	}
	return report.ExitCode()
}

func showHistory(args []string, stdout, stderr io.Writer) int {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintf(stderr, "invalid count %q\n", args[0])
			return script.ExitFailure
		}
		limit = n
	}

	st, err := store.Open(configuration.GetString("Store", "db_path", "kscr.db"))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return script.ExitFailure
	}
	defer st.Close()

	runs, err := st.RecentRuns(limit)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return script.ExitFailure
	}
	for _, r := range runs {
		name := r.ScriptName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(stdout, "%s  %s  %-20s %3d  %v  %s\n",
			r.StartedAt.Format(time.RFC3339), r.ID, name, r.ExitCode, r.Duration, r.Error)
	}
	return 0
}

func serve(stderr io.Writer) int {
	st, err := store.Open(configuration.GetString("Store", "db_path", "kscr.db"))
	if err != nil {
		logger.Error(logger.AreaStore, "Database initialization failed: %v", err)
		fmt.Fprintln(stderr, err)
		return script.ExitFailure
	}
	defer st.Close()

	tm, err := tlsmanager.NewManager(tlsmanager.ConfigFromSettings())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return script.ExitFailure
	}

	srv := terminal.NewServer(script.NewRunner(script.DefaultOptions()), st, terminal.OptionsFromConfig())
	defer srv.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := configuration.GetString("Server", "listen_addr", ":8080")
	if err := tm.Serve(ctx, addr, srv.Handler()); err != nil {
		logger.ServerError("Server failed: %v", err)
		fmt.Fprintln(stderr, err)
		return script.ExitFailure
	}
	return 0
}
