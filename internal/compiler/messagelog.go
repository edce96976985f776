package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// Severity of a compiler message.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Ref points a message at a graph element so a UI can navigate to it.
type Ref struct {
	NodeID uuid.UUID `json:"node_id,omitempty"`
	PinID  uuid.UUID `json:"pin_id,omitempty"`
	Label  string    `json:"label"`
}

// Message is one logged diagnostic.
type Message struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Text     string   `json:"text"`
	Refs     []Ref    `json:"refs,omitempty"`
}

func (m Message) Error() string {
	return fmt.Sprintf("[%s] %s", m.Code, m.Text)
}

// MessageLog collects diagnostics for a compilation pass. Message templates
// use @@ placeholders: the Nth @@ is replaced by the label of the Nth ref.
type MessageLog struct {
	messages    []Message
	numErrors   int
	numWarnings int
	logger      *slog.Logger
}

// NewMessageLog returns an empty log. A nil logger discards debug output.
func NewMessageLog(logger *slog.Logger) *MessageLog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MessageLog{logger: logger}
}

// Error logs a validation error.
func (l *MessageLog) Error(format string, refs ...any) {
	l.add(SeverityError, edgraph.ErrCodeValidation, format, refs)
}

// Warning logs a validation warning.
func (l *MessageLog) Warning(format string, refs ...any) {
	l.add(SeverityWarning, edgraph.ErrCodeValidation, format, refs)
}

// Note logs an informational message.
func (l *MessageLog) Note(format string, refs ...any) {
	l.add(SeverityNote, edgraph.ErrCodeValidation, format, refs)
}

// ErrorCode logs an error carrying a specific code.
func (l *MessageLog) ErrorCode(code, format string, refs ...any) {
	l.add(SeverityError, code, format, refs)
}

// WarningCode logs a warning carrying a specific code.
func (l *MessageLog) WarningCode(code, format string, refs ...any) {
	l.add(SeverityWarning, code, format, refs)
}

// NoteCode logs a note carrying a specific code.
func (l *MessageLog) NoteCode(code, format string, refs ...any) {
	l.add(SeverityNote, code, format, refs)
}

func (l *MessageLog) add(sev Severity, code, format string, args []any) {
	refs := make([]Ref, len(args))
	for i, a := range args {
		refs[i] = makeRef(a)
	}
	msg := Message{Severity: sev, Code: code, Text: substitute(format, refs), Refs: refs}
	l.messages = append(l.messages, msg)
	switch sev {
	case SeverityError:
		l.numErrors++
	case SeverityWarning:
		l.numWarnings++
	}
	l.logger.Debug("compiler message", "severity", string(sev), "code", code, "text", msg.Text)
}

func substitute(format string, refs []Ref) string {
	var b strings.Builder
	next := 0
	for {
		i := strings.Index(format, "@@")
		if i < 0 || next >= len(refs) {
			b.WriteString(format)
			return b.String()
		}
		b.WriteString(format[:i])
		b.WriteString(refs[next].Label)
		next++
		format = format[i+2:]
	}
}

func makeRef(v any) Ref {
	switch x := v.(type) {
	case *edgraph.Node:
		if x == nil {
			return Ref{Label: "<none>"}
		}
		return Ref{NodeID: x.ID, Label: x.Title()}
	case *edgraph.Pin:
		if x == nil {
			return Ref{Label: "<none>"}
		}
		ref := Ref{PinID: x.ID, Label: x.String()}
		if n := x.OwningNode(); n != nil {
			ref.NodeID = n.ID
		}
		return ref
	case string:
		return Ref{Label: x}
	case fmt.Stringer:
		return Ref{Label: x.String()}
	default:
		return Ref{Label: fmt.Sprint(v)}
	}
}

// NumErrors returns the number of errors logged so far.
func (l *MessageLog) NumErrors() int { return l.numErrors }

// NumWarnings returns the number of warnings logged so far.
func (l *MessageLog) NumWarnings() int { return l.numWarnings }

// Messages returns every message in log order.
func (l *MessageLog) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// WithCode returns the messages carrying code.
func (l *MessageLog) WithCode(code string) []Message {
	var out []Message
	for _, m := range l.messages {
		if m.Code == code {
			out = append(out, m)
		}
	}
	return out
}

// Err aggregates every logged error, or returns nil when there is none.
func (l *MessageLog) Err() error {
	var result *multierror.Error
	for _, m := range l.messages {
		if m.Severity == SeverityError {
			result = multierror.Append(result, m)
		}
	}
	return result.ErrorOrNil()
}
