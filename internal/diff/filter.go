package diff

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rendis/edgraph/internal/expressions"
	"github.com/rendis/edgraph/pkg/edgraph"
)

// RecordFilter selects records with a CEL condition. The condition sees the
// record's RecordView as the map variable `record`, keyed by its JSON names.
type RecordFilter struct {
	expr string
	cel  *expressions.CELEngine
}

// NewRecordFilter checks expr and returns a filter for it. A nil engine
// selects the shared default.
func NewRecordFilter(cel *expressions.CELEngine, expr string) (*RecordFilter, error) {
	if cel == nil {
		cel = expressions.Default().CEL
	}
	if err := cel.CheckBool(expr, []string{"record"}); err != nil {
		return nil, err
	}
	return &RecordFilter{expr: expr, cel: cel}, nil
}

// Match reports whether rec satisfies the condition.
func (f *RecordFilter) Match(ctx context.Context, rec Record) (bool, error) {
	data, err := json.Marshal(rec.View())
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return false, fmt.Errorf("decode record: %w", err)
	}
	ok, err := f.cel.EvaluateBool(ctx, f.expr, map[string]any{"record": record})
	if err != nil {
		return false, edgraph.NewErrorf(edgraph.ErrCodeEvaluation, "filter on %s: %v", rec.Kind, err).WithCause(err)
	}
	return ok, nil
}

// Apply returns the records that match, in order.
func (f *RecordFilter) Apply(ctx context.Context, recs []Record) ([]Record, error) {
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		ok, err := f.Match(ctx, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}
