package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rendis/edgraph/internal/logging"
	"github.com/rendis/edgraph/internal/store"
)

const usage = `usage: edgraph <command> [flags] [args]

commands:
  compile FILE           validate, prune and schedule a graph document
  diff OLD NEW           compare two graph documents
  pins FILE NODE         export the pins of one node
  render FILE            draw a graph as mermaid, ascii, svg, dot or png
  save FILE              store a document as a new revision
  history GRAPH_ID       list stored revisions of a graph
  prune                  delete old revisions now
  serve                  run the MCP server on stdio
  init                   write ~/.edgraph/settings.json
  version                print the version
`

// exitCode ends the process with a status and no message.
type exitCode int

func (c exitCode) Error() string { return fmt.Sprintf("exit status %d", int(c)) }

// app carries what every command needs.
type app struct {
	cfg    Config
	level  *slog.LevelVar
	logger *slog.Logger
	stdout io.Writer
}

func newApp(cfg Config, stdout, stderr io.Writer) *app {
	level := new(slog.LevelVar)
	level.Set(cfg.slogLevel())
	handler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	return &app{
		cfg:    cfg,
		level:  level,
		logger: slog.New(logging.NewCorrelationHandler(handler)),
		stdout: stdout,
	}
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	if a.cfg.DBDriver != store.DriverPostgres {
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return store.Open(ctx, a.cfg.DBDriver, a.cfg.storeDSN())
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "compile":
		return a.runCompile(ctx, args)
	case "diff":
		return a.runDiff(ctx, args)
	case "pins":
		return a.runPins(args)
	case "render":
		return a.runRender(ctx, args)
	case "save":
		return a.runSave(ctx, args)
	case "history":
		return a.runHistory(ctx, args)
	case "prune":
		return a.runPrune(ctx, args)
	case "serve":
		return a.runServe(ctx, args)
	case "init":
		return a.runInit(args)
	case "version", "-v", "--version":
		printVersion(a.stdout)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(loadConfig(), os.Stdout, os.Stderr)
	err := a.run(ctx, os.Args[1], os.Args[2:])

	var code exitCode
	switch {
	case err == nil:
	case errors.As(err, &code):
		stop()
		os.Exit(int(code))
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
