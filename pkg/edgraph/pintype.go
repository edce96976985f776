package edgraph

import "fmt"

// Direction is the flow direction of a pin.
type Direction int

const (
	Input Direction = iota
	Output
	// DirectionAny matches either direction in lookups. It is never stored on a pin.
	DirectionAny
)

// String returns the symbolic name used by the pin text format.
func (d Direction) String() string {
	switch d {
	case Input:
		return "EGPD_Input"
	case Output:
		return "EGPD_Output"
	case DirectionAny:
		return "EGPD_MAX"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Opposite returns the direction a compatible partner pin must have.
func (d Direction) Opposite() Direction {
	switch d {
	case Input:
		return Output
	case Output:
		return Input
	default:
		return d
	}
}

// Matches reports whether d satisfies the lookup direction want.
func (d Direction) Matches(want Direction) bool {
	return want == DirectionAny || d == want
}

// ParseDirection parses a symbolic direction name.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "EGPD_Input", "input", "Input":
		return Input, nil
	case "EGPD_Output", "output", "Output":
		return Output, nil
	}
	return 0, NewErrorf(ErrCodeParse, "unknown pin direction %q", s)
}

// ContainerType is the container kind wrapping a pin's terminal type.
type ContainerType int

const (
	ContainerNone ContainerType = iota
	ContainerArray
	ContainerSet
	ContainerMap
)

var containerNames = [...]string{"None", "Array", "Set", "Map"}

func (c ContainerType) String() string {
	if c < 0 || int(c) >= len(containerNames) {
		return fmt.Sprintf("ContainerType(%d)", int(c))
	}
	return containerNames[c]
}

// ParseContainerType parses a symbolic container kind. The empty string is None.
func ParseContainerType(s string) (ContainerType, error) {
	if s == "" {
		return ContainerNone, nil
	}
	for i, name := range containerNames {
		if name == s {
			return ContainerType(i), nil
		}
	}
	return 0, NewErrorf(ErrCodeParse, "unknown container type %q", s)
}

// Well-known pin categories.
const (
	CategoryExec     = "exec"
	CategoryBool     = "bool"
	CategoryInt      = "int"
	CategoryFloat    = "float"
	CategoryString   = "string"
	CategoryName     = "name"
	CategoryObject   = "object"
	CategoryStruct   = "struct"
	CategoryDelegate = "delegate"
	CategoryWildcard = "wildcard"
)

// TerminalType describes the value side of a map container.
type TerminalType struct {
	Category          string
	SubCategory       string
	SubCategoryObject string
	IsConst           bool
	IsWeakPointer     bool
}

// PinType is the type descriptor carried by every pin.
type PinType struct {
	Category          string
	SubCategory       string
	SubCategoryObject string
	ContainerType     ContainerType
	ValueType         *TerminalType
	IsReference       bool
	IsConst           bool
	IsWeakPointer     bool
}

// TypeOf is shorthand for a non-container pin type of the given category.
func TypeOf(category string) PinType {
	return PinType{Category: category}
}

// IsContainer reports whether the type is an array, set or map.
func (t PinType) IsContainer() bool {
	return t.ContainerType != ContainerNone
}

// IsExec reports whether the type is an execution-flow type.
func (t PinType) IsExec() bool {
	return t.Category == CategoryExec
}

// Equal compares two type descriptors field by field.
func (t PinType) Equal(o PinType) bool {
	if t.Category != o.Category || t.SubCategory != o.SubCategory ||
		t.SubCategoryObject != o.SubCategoryObject || t.ContainerType != o.ContainerType ||
		t.IsReference != o.IsReference || t.IsConst != o.IsConst || t.IsWeakPointer != o.IsWeakPointer {
		return false
	}
	switch {
	case t.ValueType == nil && o.ValueType == nil:
		return true
	case t.ValueType == nil || o.ValueType == nil:
		return false
	default:
		return *t.ValueType == *o.ValueType
	}
}

func (t PinType) String() string {
	s := t.Category
	if t.SubCategory != "" {
		s += ":" + t.SubCategory
	}
	if t.SubCategoryObject != "" {
		s += "<" + t.SubCategoryObject + ">"
	}
	switch t.ContainerType {
	case ContainerArray:
		s = "array<" + s + ">"
	case ContainerSet:
		s = "set<" + s + ">"
	case ContainerMap:
		v := "?"
		if t.ValueType != nil {
			v = t.ValueType.Category
		}
		s = "map<" + s + "," + v + ">"
	}
	if t.IsReference {
		s += "&"
	}
	return s
}
