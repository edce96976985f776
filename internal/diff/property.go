package diff

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// editTag marks behaviour fields that users edit and diffs compare:
//
//	FunctionName string `json:"function_name" edgraph:"edit"`
const editTag = "edgraph"

// DefaultPropertyDiff compares the editable fields of two behaviours of the
// same type. Function and channel fields are never compared. Floats compare
// as numbers and print in their shortest form.
func DefaultPropertyDiff(lhs, rhs *edgraph.Node, results *Results) bool {
	lv, rv := behaviorValue(lhs), behaviorValue(rhs)
	if !lv.IsValid() || !rv.IsValid() || lv.Type() != rv.Type() {
		return false
	}
	before := results.total

	for _, f := range reflect.VisibleFields(lv.Type()) {
		if results.done() {
			break
		}
		if f.Anonymous || !f.IsExported() || !isEditable(f) {
			continue
		}
		if k := f.Type.Kind(); k == reflect.Func || k == reflect.Chan {
			continue
		}
		a, errA := lv.FieldByIndexErr(f.Index)
		b, errB := rv.FieldByIndexErr(f.Index)
		if errA != nil || errB != nil || propertiesEqual(a, b) {
			continue
		}
		from, to := FormatProperty(a), FormatProperty(b)
		results.Add(Record{
			Kind:          NodeProperty,
			Node1:         lhs,
			Node2:         rhs,
			DisplayString: "Property Changed: " + f.Name,
			ToolTip:       fmt.Sprintf("Property '%s' on '%s' changed from '%s' to '%s'", f.Name, rhs.Title(), from, to),
		})
	}
	return results.total > before
}

func behaviorValue(n *edgraph.Node) reflect.Value {
	if n == nil || n.Behavior == nil {
		return reflect.Value{}
	}
	v := reflect.ValueOf(n.Behavior)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return v
}

func isEditable(f reflect.StructField) bool {
	for _, opt := range strings.Split(f.Tag.Get(editTag), ",") {
		if opt == "edit" {
			return true
		}
	}
	return false
}

func propertiesEqual(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Float32, reflect.Float64:
		return a.Float() == b.Float()
	default:
		return reflect.DeepEqual(a.Interface(), b.Interface())
	}
}

// FormatProperty renders a property value for display. Floats use the
// shortest representation that round-trips, so 0.5 and 0.50 print alike.
func FormatProperty(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprint(v.Interface())
		}
		return string(data)
	default:
		return fmt.Sprint(v.Interface())
	}
}
