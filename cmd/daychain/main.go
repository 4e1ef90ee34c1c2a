package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hpungsan/daychain/internal/clock"
	"github.com/hpungsan/daychain/internal/config"
	"github.com/hpungsan/daychain/internal/db"
	"github.com/hpungsan/daychain/internal/logging"
	"github.com/hpungsan/daychain/internal/mcp"
	"github.com/hpungsan/daychain/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"start": true, "stop": true, "interrupt": true, "break": true,
	"note": true, "status": true,
	"plan": true, "template": true, "log": true,
	"today": true, "capacity": true, "notify": true,
	"review": true, "report": true,
	"calendar-import": true, "export": true, "import": true,
	"web":  true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	return isHelpOrVersion(args)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	switch args[1] {
	case "--help", "-h", "--version", "-v", "help":
		return true
	}
	return false
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
      _             _           _
   __| | __ _ _   _| |__   __ _(_)_ __
  / _' |/ _' | | | | '_ \ / _' | | '_ \
 | (_| | (_| | |_| | | | | (_| | | | | |
  \__,_|\__,_|\__, |_| |_|\__,_|_|_| |_|
              |___/

  Daily plan, timer and chained schedule

  Usage: daychain <command> [options]
         daychain --help

  MCP server mode requires piped input.`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	cliMode := isCLIMode(os.Args)
	if !cliMode && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'daychain --help' for usage.\n")
		os.Exit(1)
	}

	env, closeDB, err := setup()
	if err != nil {
		fail("%v", err)
	}
	defer closeDB()

	if cliMode {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			closeDB()
			fail("%v", err)
		}
		return
	}

	// MCP server mode (default)
	if err := mcp.Run(env, Version); err != nil {
		closeDB()
		fail("%v", err)
	}
}

// setup loads configuration, the logger and the database.
func setup() (*ops.Env, func(), error) {
	baseDir, err := config.BaseDir()
	if err != nil {
		return nil, nil, err
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, wd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		return nil, nil, fmt.Errorf("unknown disabled_tools: %s", strings.Join(unknown, ", "))
	}

	logger := logging.Setup(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	env := &ops.Env{
		DB:      database,
		Config:  cfg,
		Clock:   clock.System{Loc: loc},
		Logger:  logger,
		BaseDir: baseDir,
	}
	closed := false
	closeDB := func() {
		if !closed {
			closed = true
			database.Close()
		}
	}
	return env, closeDB, nil
}
