package edgraph

import (
	"strings"

	"github.com/google/uuid"
)

// PinTextTag prefixes every exported pin line.
const PinTextTag = "CustomProperties Pin"

// PinRecord is one parsed pin line.
type PinRecord struct {
	ID           uuid.UUID
	Name         string
	FriendlyName string
	ToolTip      string
	Direction    Direction
	Type         PinType

	DefaultValue              string
	DefaultObject             string
	DefaultTextValue          string
	AutogeneratedDefaultValue string

	Hidden                 bool
	NotConnectable         bool
	DefaultValueIsReadOnly bool
	DefaultValueIsIgnored  bool
	AdvancedView           bool
	Orphaned               bool

	LinkedTo  []uuid.UUID
	ParentPin uuid.UUID

	// UnknownKeys lists keys that were skipped during import.
	UnknownKeys []string
}

// ExportPinText renders p as a single pin line.
func ExportPinText(p *Pin) string {
	var b strings.Builder
	b.WriteString(PinTextTag)
	kv := func(key, value string, quote bool) {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(formatPinValue(value, quote))
	}
	flag := func(key string, v bool) {
		kv(key, formatPinBool(v), false)
	}
	optFlag := func(key string, v bool) {
		if v {
			flag(key, v)
		}
	}
	optString := func(key, v string) {
		if v != "" {
			kv(key, v, true)
		}
	}

	kv("Name", p.Name, true)
	kv("PinId", p.ID.String(), false)
	optString("PinFriendlyName", p.FriendlyName)
	optString("PinToolTip", p.ToolTip)
	kv("PinDir", p.Direction.String(), true)
	kv("Category", p.Type.Category, false)
	kv("SubCategory", p.Type.SubCategory, true)
	kv("SubCategoryObject", objectName(p.Type.SubCategoryObject), p.Type.SubCategoryObject == noObject)
	kv("PinContainerType", p.Type.ContainerType.String(), true)
	if vt := p.Type.ValueType; vt != nil {
		kv("ValueCategory", vt.Category, false)
		kv("ValueSubCategory", vt.SubCategory, true)
		kv("ValueSubCategoryObject", objectName(vt.SubCategoryObject), vt.SubCategoryObject == noObject)
		flag("ValueIsConst", vt.IsConst)
		flag("ValueIsWeakPointer", vt.IsWeakPointer)
	}
	flag("IsReference", p.Type.IsReference)
	flag("IsConst", p.Type.IsConst)
	optFlag("IsWeakPointer", p.Type.IsWeakPointer)
	kv("DefaultValue", p.DefaultValue, true)
	optString("DefaultObject", p.DefaultObject)
	optString("DefaultTextValue", p.DefaultTextValue)
	optString("AutogeneratedDefaultValue", p.AutogeneratedDefaultValue)
	if linked := linkIDs(p); len(linked) > 0 {
		kv("LinkedTo", "("+strings.Join(linked, ",")+",)", false)
	}
	if p.ParentPin != nil {
		kv("ParentPin", p.ParentPin.ID.String(), false)
	}
	optFlag("bHidden", p.Hidden)
	optFlag("bNotConnectable", p.NotConnectable)
	optFlag("bDefaultValueIsReadOnly", p.DefaultValueIsReadOnly)
	optFlag("bDefaultValueIsIgnored", p.DefaultValueIsIgnored)
	optFlag("bAdvancedView", p.AdvancedView)
	optFlag("bOrphanedPin", p.Orphaned)
	return b.String()
}

// ExportNodePins renders every pin of n, one line each.
func ExportNodePins(n *Node) string {
	lines := make([]string, 0, len(n.Pins))
	for _, p := range n.Pins {
		if p != nil {
			lines = append(lines, ExportPinText(p))
		}
	}
	return strings.Join(lines, "\n")
}

func linkIDs(p *Pin) []string {
	g := p.Graph()
	if g == nil {
		return nil
	}
	ids := g.linkedIDs(p.ID)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// noObject is the bare token for an empty object reference. An object that
// is really named None is written quoted.
const noObject = "None"

func objectName(s string) string {
	if s == "" {
		return noObject
	}
	return s
}

func formatPinBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

var pinEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

func formatPinValue(s string, quote bool) string {
	if !quote && s != "" && !strings.ContainsAny(s, " \t\n\"\\=") {
		return s
	}
	return `"` + pinEscaper.Replace(s) + `"`
}

// ImportPinText parses one pin line produced by ExportPinText.
func ImportPinText(line string) (*PinRecord, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), PinTextTag)
	if !ok {
		return nil, NewErrorf(ErrCodeParse, "pin line must start with %q", PinTextTag)
	}
	pairs, err := scanPinPairs(rest)
	if err != nil {
		return nil, err
	}

	rec := &PinRecord{}
	for _, kv := range pairs {
		if err := rec.set(kv); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (r *PinRecord) set(kv pinPair) error {
	key, value := kv.key, kv.value
	var err error
	switch key {
	case "Name":
		r.Name = value
	case "PinId":
		r.ID, err = parsePinUUID(key, value)
	case "PinFriendlyName":
		r.FriendlyName = value
	case "PinToolTip":
		r.ToolTip = value
	case "PinDir":
		r.Direction, err = ParseDirection(value)
	case "Category":
		r.Type.Category = value
	case "SubCategory":
		r.Type.SubCategory = value
	case "SubCategoryObject":
		r.Type.SubCategoryObject = objectFromName(kv)
	case "PinContainerType":
		r.Type.ContainerType, err = ParseContainerType(value)
	case "ValueCategory":
		r.valueType().Category = value
	case "ValueSubCategory":
		r.valueType().SubCategory = value
	case "ValueSubCategoryObject":
		r.valueType().SubCategoryObject = objectFromName(kv)
	case "ValueIsConst":
		r.valueType().IsConst, err = parsePinBool(key, value)
	case "ValueIsWeakPointer":
		r.valueType().IsWeakPointer, err = parsePinBool(key, value)
	case "IsReference":
		r.Type.IsReference, err = parsePinBool(key, value)
	case "IsConst":
		r.Type.IsConst, err = parsePinBool(key, value)
	case "IsWeakPointer":
		r.Type.IsWeakPointer, err = parsePinBool(key, value)
	case "DefaultValue":
		r.DefaultValue = value
	case "DefaultObject":
		r.DefaultObject = value
	case "DefaultTextValue":
		r.DefaultTextValue = value
	case "AutogeneratedDefaultValue":
		r.AutogeneratedDefaultValue = value
	case "LinkedTo":
		r.LinkedTo, err = parseLinkList(value)
	case "ParentPin":
		r.ParentPin, err = parsePinUUID(key, value)
	case "bHidden":
		r.Hidden, err = parsePinBool(key, value)
	case "bNotConnectable":
		r.NotConnectable, err = parsePinBool(key, value)
	case "bDefaultValueIsReadOnly":
		r.DefaultValueIsReadOnly, err = parsePinBool(key, value)
	case "bDefaultValueIsIgnored":
		r.DefaultValueIsIgnored, err = parsePinBool(key, value)
	case "bAdvancedView":
		r.AdvancedView, err = parsePinBool(key, value)
	case "bOrphanedPin":
		r.Orphaned, err = parsePinBool(key, value)
	default:
		r.UnknownKeys = append(r.UnknownKeys, key)
	}
	return err
}

func (r *PinRecord) valueType() *TerminalType {
	if r.Type.ValueType == nil {
		r.Type.ValueType = &TerminalType{}
	}
	return r.Type.ValueType
}

// Apply copies the record's persistent state onto p. Links and parentage are
// resolved by ImportNodePins.
func (r *PinRecord) Apply(p *Pin) {
	if r.ID != uuid.Nil {
		p.ID = r.ID
	}
	p.Name = r.Name
	p.FriendlyName = r.FriendlyName
	p.ToolTip = r.ToolTip
	p.Direction = r.Direction
	p.Type = r.Type
	p.DefaultValue = r.DefaultValue
	p.DefaultObject = r.DefaultObject
	p.DefaultTextValue = r.DefaultTextValue
	p.AutogeneratedDefaultValue = r.AutogeneratedDefaultValue
	p.Hidden = r.Hidden
	p.NotConnectable = r.NotConnectable
	p.DefaultValueIsReadOnly = r.DefaultValueIsReadOnly
	p.DefaultValueIsIgnored = r.DefaultValueIsIgnored
	p.AdvancedView = r.AdvancedView
	p.Orphaned = r.Orphaned
}

// ImportNodePins creates (or updates, matched by ID) one pin per line of text
// on n, then restores parentage and links. It returns the imported pins and
// the keys that were skipped.
func ImportNodePins(n *Node, text string) ([]*Pin, []string, error) {
	var (
		pins    []*Pin
		records []*PinRecord
		skipped []string
	)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ImportPinText(line)
		if err != nil {
			return nil, nil, err
		}
		skipped = append(skipped, rec.UnknownKeys...)

		p := n.FindPinByID(rec.ID)
		if p == nil || rec.ID == uuid.Nil {
			p = n.CreatePin(rec.Direction, rec.Type, rec.Name, WithPinID(rec.ID))
		}
		if n.graph != nil {
			n.graph.unregisterPin(p)
		}
		rec.Apply(p)
		if n.graph != nil {
			n.graph.registerPin(p)
		}
		pins = append(pins, p)
		records = append(records, rec)
	}

	for i, rec := range records {
		if rec.ParentPin == uuid.Nil {
			continue
		}
		if parent := n.FindPinByID(rec.ParentPin); parent != nil {
			pins[i].ParentPin = parent
			if !containsPin(parent.SubPins, pins[i]) {
				parent.SubPins = append(parent.SubPins, pins[i])
			}
		}
	}
	if g := n.graph; g != nil {
		for i, rec := range records {
			for _, other := range rec.LinkedTo {
				g.RestoreLink(pins[i].ID, other)
			}
		}
	}
	return pins, skipped, nil
}

func containsPin(pins []*Pin, p *Pin) bool {
	for _, q := range pins {
		if q == p {
			return true
		}
	}
	return false
}

func objectFromName(kv pinPair) string {
	if !kv.quoted && kv.value == noObject {
		return ""
	}
	return kv.value
}

func parsePinBool(key, value string) (bool, error) {
	switch value {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	}
	return false, NewErrorf(ErrCodeParse, "%s: invalid boolean %q", key, value)
}

func parsePinUUID(key, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, NewErrorf(ErrCodeParse, "%s: invalid id %q", key, value).WithCause(err)
	}
	return id, nil
}

func parseLinkList(value string) ([]uuid.UUID, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(value, "("), ")")
	var ids []uuid.UUID
	for _, part := range strings.Split(inner, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		id, err := parsePinUUID("LinkedTo", part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type pinPair struct {
	key, value string
	quoted     bool
}

// scanPinPairs splits `Key=Value Key="quoted value"` into ordered pairs.
func scanPinPairs(s string) ([]pinPair, error) {
	var pairs []pinPair
	i := 0
	for {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			return pairs, nil
		}
		eq := strings.IndexByte(s[i:], '=')
		if eq <= 0 {
			return nil, NewErrorf(ErrCodeParse, "expected key=value at offset %d", i)
		}
		key := s[i : i+eq]
		if strings.ContainsAny(key, " \t\"") {
			return nil, NewErrorf(ErrCodeParse, "malformed key %q", key)
		}
		i += eq + 1

		var value string
		quoted := i < len(s) && s[i] == '"'
		if quoted {
			var b strings.Builder
			i++
			closed := false
			for i < len(s) {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					switch s[i+1] {
					case 'n':
						b.WriteByte('\n')
					case 't':
						b.WriteByte('\t')
					default:
						b.WriteByte(s[i+1])
					}
					i += 2
					continue
				}
				if c == '"' {
					closed = true
					i++
					break
				}
				b.WriteByte(c)
				i++
			}
			if !closed {
				return nil, NewErrorf(ErrCodeParse, "unterminated quoted value for %s", key)
			}
			value = b.String()
		} else {
			start := i
			for i < len(s) && s[i] != ' ' && s[i] != '\t' {
				i++
			}
			value = s[start:i]
		}
		pairs = append(pairs, pinPair{key: key, value: value, quoted: quoted})
	}
}
