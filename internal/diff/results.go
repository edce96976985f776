package diff

// Results collects records. A boolean-only collector stores nothing and
// stops the comparison at the first difference.
type Results struct {
	records     []Record
	booleanOnly bool
	total       int
}

// NewResults returns a collector that keeps every record.
func NewResults() *Results {
	return &Results{}
}

// NewBooleanResults returns a collector that only answers whether anything differs.
func NewBooleanResults() *Results {
	return &Results{booleanOnly: true}
}

// Add records a difference.
func (r *Results) Add(rec Record) {
	r.total++
	if r.booleanOnly {
		return
	}
	if rec.Color == "" {
		rec.Color = rec.Kind.Color()
	}
	r.records = append(r.records, rec)
}

// HasFoundDiffs reports whether any difference was added.
func (r *Results) HasFoundDiffs() bool {
	return r.total > 0
}

// CanStoreResults is false for boolean-only collectors.
func (r *Results) CanStoreResults() bool {
	return !r.booleanOnly
}

// done reports whether the comparison may stop early.
func (r *Results) done() bool {
	return r.booleanOnly && r.total > 0
}

// Len returns the number of stored records.
func (r *Results) Len() int {
	return len(r.records)
}

// Records returns the stored records in discovery order.
func (r *Results) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Filter returns the stored records pred accepts.
func (r *Results) Filter(pred func(Record) bool) []Record {
	var out []Record
	for _, rec := range r.records {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// OfKind returns the stored records of kind k.
func (r *Results) OfKind(k Kind) []Record {
	return r.Filter(func(rec Record) bool { return rec.Kind == k })
}

// Summary counts stored records by kind.
func (r *Results) Summary() map[Kind]int {
	out := make(map[Kind]int)
	for _, rec := range r.records {
		out[rec.Kind]++
	}
	return out
}

func (r *Results) stampGraph(from int, name string) {
	for i := from; i < len(r.records); i++ {
		if r.records[i].GraphName == "" {
			r.records[i].GraphName = name
		}
	}
}
