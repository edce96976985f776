package diff

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/edgraph/pkg/edgraph"
)

func TestRecordFilter(t *testing.T) {
	recs := []Record{
		{Kind: NodeAdded, GraphName: "main", DisplayString: "Added Node: Print"},
		{Kind: NodeMoved, GraphName: "main", DisplayString: "Moved Node: Print"},
		{Kind: PinDefaultValue, GraphName: "inner", DisplayString: "Pin Value default value changed"},
	}

	tests := []struct {
		expr string
		want []Kind
	}{
		{`record.kind == "node_added"`, []Kind{NodeAdded}},
		{`record.kind != "node_moved"`, []Kind{NodeAdded, PinDefaultValue}},
		{`record.graph == "inner"`, []Kind{PinDefaultValue}},
		{`record.display.startsWith("Moved")`, []Kind{NodeMoved}},
		{`record.kind.startsWith("pin_") || record.kind == "node_added"`, []Kind{NodeAdded, PinDefaultValue}},
		{`false`, []Kind{}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := NewRecordFilter(nil, tt.expr)
			require.NoError(t, err)
			got, err := f.Apply(context.Background(), recs)
			require.NoError(t, err)
			kinds := make([]Kind, len(got))
			for i, r := range got {
				kinds[i] = r.Kind
			}
			assert.Equal(t, tt.want, kinds)
		})
	}
}

func TestRecordFilter_Invalid(t *testing.T) {
	for _, expr := range []string{"", "record.kind ==", `"node_added"`, "other == 1"} {
		_, err := NewRecordFilter(nil, expr)
		assert.Error(t, err, expr)
	}
}

func TestRecordFilter_RuntimeError(t *testing.T) {
	f, err := NewRecordFilter(nil, `record.missing == "x"`)
	require.NoError(t, err)

	_, err = f.Match(context.Background(), Record{Kind: NodeAdded})
	require.Error(t, err)
	var e *edgraph.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, edgraph.ErrCodeEvaluation, e.Code)
}
