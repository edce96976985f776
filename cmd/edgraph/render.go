package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/internal/diagram"
	"github.com/rendis/edgraph/internal/diff"
	"github.com/rendis/edgraph/internal/logging"
)

func (a *app) runRender(ctx context.Context, args []string) error {
	fs := a.flagSet("render")
	format := fs.String("format", "ascii", "mermaid, ascii, svg, dot or png")
	base := fs.String("base", "", "color differences from this older document instead of compile status")
	plain := fs.Bool("plain", false, "no overlay")
	outPath := fs.String("o", "", "write to a file instead of stdout")
	pos, err := parseArgs(fs, args, 1, "FILE")
	if err != nil {
		return err
	}

	doc, g, err := loadGraph(pos[0])
	if err != nil {
		return err
	}
	ctx = logging.WithPass(logging.WithGraphID(ctx, graphKey(doc)), "render")
	logger := logging.LogWith(ctx, a.logger)
	model := diagram.Build(g)

	switch {
	case *plain:
	case *base != "":
		_, old, err := loadGraph(*base)
		if err != nil {
			return err
		}
		flags, err := diff.ParseFlags(a.cfg.DiffFlags)
		if err != nil {
			return err
		}
		results := diff.NewResults()
		diff.NewControl(flags, diff.Additive, logger).DiffGraphs(old, g, results)
		diagram.ApplyDiff(model, results.Records())
	default:
		log := compiler.NewMessageLog(logger)
		res := compiler.NewContext(log, logger, a.options()).Compile(g.Clone(), nil)
		diagram.ApplyCompile(model, res, log)
	}

	out, err := diagram.Render(ctx, model, *format)
	if err != nil {
		return err
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", *outPath, err)
		}
		return nil
	}
	_, err = a.stdout.Write(out)
	return err
}
