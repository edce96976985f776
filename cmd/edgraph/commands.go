package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/rendis/edgraph/internal/compiler"
	"github.com/rendis/edgraph/internal/diff"
	"github.com/rendis/edgraph/internal/expressions"
	"github.com/rendis/edgraph/internal/logging"
	"github.com/rendis/edgraph/internal/nodes"
	"github.com/rendis/edgraph/internal/retention"
	"github.com/rendis/edgraph/internal/store"
	"github.com/rendis/edgraph/pkg/document"
	"github.com/rendis/edgraph/pkg/edgraph"
)

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseArgs parses fs and checks the positional argument count.
func parseArgs(fs *flag.FlagSet, args []string, want int, names string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%s: %w", fs.Name(), err)
	}
	if fs.NArg() != want {
		return nil, fmt.Errorf("usage: edgraph %s [flags] %s", fs.Name(), names)
	}
	return fs.Args(), nil
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) options() compiler.Options {
	return compiler.Options{
		SaveIntermediateProducts: a.cfg.SaveIntermediateProducts,
		MaxTraversalDepth:        a.cfg.MaxTraversalDepth,
	}
}

func loadGraph(path string) (*document.Document, *edgraph.Graph, error) {
	doc, err := document.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	g, err := document.Build(doc, nodes.DefaultRegistry())
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, g, nil
}

func graphKey(doc *document.Document) string {
	if doc.ID != "" {
		return doc.ID
	}
	return doc.Name
}

func (a *app) runCompile(ctx context.Context, args []string) error {
	fs := a.flagSet("compile")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	keep := fs.Bool("save-intermediate", a.cfg.SaveIntermediateProducts, "keep comment nodes through pruning")
	pos, err := parseArgs(fs, args, 1, "FILE")
	if err != nil {
		return err
	}

	doc, g, err := loadGraph(pos[0])
	if err != nil {
		return err
	}
	ctx = logging.WithPass(logging.WithGraphID(ctx, graphKey(doc)), "compile")
	logger := logging.LogWith(ctx, a.logger)

	opts := a.options()
	opts.SaveIntermediateProducts = *keep
	log := compiler.NewMessageLog(logger)
	res := compiler.NewContext(log, logger, opts).Compile(g, nil)

	if *asJSON {
		levels := make([][]string, len(res.Levels))
		for i, lvl := range res.Levels {
			levels[i] = names(lvl)
		}
		if err := a.writeJSON(map[string]any{
			"success":  res.Success,
			"schedule": names(res.Schedule),
			"levels":   levels,
			"pruned":   names(res.Pruned),
			"messages": log.Messages(),
		}); err != nil {
			return err
		}
	} else {
		for _, m := range log.Messages() {
			fmt.Fprintf(a.stdout, "%s %s: %s\n", m.Severity, m.Code, m.Text)
		}
		for i, lvl := range res.Levels {
			fmt.Fprintf(a.stdout, "level %d: %s\n", i, strings.Join(names(lvl), ", "))
		}
		if len(res.Pruned) > 0 {
			fmt.Fprintf(a.stdout, "pruned: %s\n", strings.Join(names(res.Pruned), ", "))
		}
		fmt.Fprintf(a.stdout, "%d error(s), %d warning(s)\n", log.NumErrors(), log.NumWarnings())
	}
	if !res.Success {
		return exitCode(1)
	}
	return nil
}

func names(ns []*edgraph.Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Name
	}
	return out
}

func (a *app) runDiff(ctx context.Context, args []string) error {
	fs := a.flagSet("diff")
	flagsArg := fs.String("flags", a.cfg.DiffFlags, "comma-separated categories to compare")
	subtractive := fs.Bool("subtractive", false, "phrase records from the newer side")
	filterArg := fs.String("filter", "", "CEL expression over each record")
	quiet := fs.Bool("q", false, "print nothing, exit 1 when the graphs differ")
	asJSON := fs.Bool("json", false, "print records as JSON")
	pos, err := parseArgs(fs, args, 2, "OLD NEW")
	if err != nil {
		return err
	}

	flags, err := diff.ParseFlags(*flagsArg)
	if err != nil {
		return err
	}
	mode := diff.Additive
	if *subtractive {
		mode = diff.Subtractive
	}
	var filter *diff.RecordFilter
	if *filterArg != "" {
		if filter, err = diff.NewRecordFilter(expressions.Default().CEL, *filterArg); err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}
	}

	_, lhs, err := loadGraph(pos[0])
	if err != nil {
		return err
	}
	rhsDoc, rhs, err := loadGraph(pos[1])
	if err != nil {
		return err
	}

	ctx = logging.WithPass(logging.WithGraphID(ctx, graphKey(rhsDoc)), "diff")
	control := diff.NewControl(flags, mode, logging.LogWith(ctx, a.logger))

	if *quiet && filter == nil {
		if control.DiffGraphs(lhs, rhs, diff.NewBooleanResults()) {
			return exitCode(1)
		}
		return nil
	}

	results := diff.NewResults()
	control.DiffGraphs(lhs, rhs, results)
	recs := results.Records()
	if filter != nil {
		if recs, err = filter.Apply(ctx, recs); err != nil {
			return err
		}
	}

	switch {
	case *quiet:
	case *asJSON:
		views := make([]diff.RecordView, len(recs))
		for i, r := range recs {
			views[i] = r.View()
		}
		if err := a.writeJSON(views); err != nil {
			return err
		}
	default:
		for _, r := range recs {
			fmt.Fprintln(a.stdout, r.String())
		}
	}
	if len(recs) > 0 {
		return exitCode(1)
	}
	return nil
}

func (a *app) runPins(args []string) error {
	fs := a.flagSet("pins")
	pos, err := parseArgs(fs, args, 2, "FILE NODE")
	if err != nil {
		return err
	}
	_, g, err := loadGraph(pos[0])
	if err != nil {
		return err
	}
	n := g.FindNodeByName(pos[1])
	if n == nil {
		if id, perr := uuid.Parse(pos[1]); perr == nil {
			n = g.FindNode(id)
		}
	}
	if n == nil {
		return edgraph.NewErrorf(edgraph.ErrCodeNotFound, "node %q not found", pos[1])
	}
	fmt.Fprintln(a.stdout, edgraph.ExportNodePins(n))
	return nil
}

func (a *app) runSave(ctx context.Context, args []string) error {
	fs := a.flagSet("save")
	pos, err := parseArgs(fs, args, 1, "FILE")
	if err != nil {
		return err
	}
	doc, _, err := loadGraph(pos[0])
	if err != nil {
		return err
	}
	canonical, err := document.Canonical(doc)
	if err != nil {
		return err
	}
	hash, err := document.Hash(doc)
	if err != nil {
		return err
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	rev := &store.Revision{
		GraphID:   graphKey(doc),
		GraphName: doc.Name,
		Hash:      hash,
		Document:  canonical,
	}
	if err := st.SaveRevision(ctx, rev); err != nil {
		return fmt.Errorf("save revision: %w", err)
	}
	fmt.Fprintf(a.stdout, "%s revision %d (%s)\n", rev.GraphID, rev.Number, shortHash(rev.Hash))
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func (a *app) runHistory(ctx context.Context, args []string) error {
	fs := a.flagSet("history")
	limit := fs.Int("limit", 20, "maximum revisions to list")
	asJSON := fs.Bool("json", false, "print revisions as JSON")
	pos, err := parseArgs(fs, args, 1, "GRAPH_ID")
	if err != nil {
		return err
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	revs, err := st.ListRevisions(ctx, store.RevisionFilter{GraphID: pos[0], Limit: *limit})
	if err != nil {
		return err
	}
	if *asJSON {
		for _, r := range revs {
			r.Document = nil
		}
		return a.writeJSON(revs)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REV\tHASH\tCREATED\tNAME")
	for _, r := range revs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Number, shortHash(r.Hash), r.CreatedAt.Format("2006-01-02 15:04:05"), r.GraphName)
	}
	return tw.Flush()
}

func (a *app) runPrune(ctx context.Context, args []string) error {
	fs := a.flagSet("prune")
	keep := fs.Int("keep", a.cfg.RetentionKeep, "revisions to keep per graph")
	vacuum := fs.Bool("vacuum", true, "compact the database after deleting")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sched, err := retention.New(st, retention.Config{
		Schedule: a.cfg.RetentionSchedule,
		Keep:     *keep,
		Vacuum:   *vacuum,
	}, a.logger)
	if err != nil {
		return err
	}
	n, err := sched.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "deleted %d revision(s)\n", n)
	return nil
}
