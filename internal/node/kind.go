// Kind constants and tag names for heap nodes.
package node

import "fmt"

// Kind identifies one of the twelve node layouts.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindDouble
	KindChar
	KindBool
	KindConstructor
	KindCons
	KindNull
	KindLambda
	KindIndirection
	KindVariable
	KindType
	KindWeak

	numKinds
)

var kindNames = [numKinds]string{
	KindInvalid:     "INVALID",
	KindInt:         "INT",
	KindDouble:      "DOUBLE",
	KindChar:        "CHAR",
	KindBool:        "BOOL",
	KindConstructor: "CONSTR",
	KindCons:        "CONS",
	KindNull:        "NULL",
	KindLambda:      "LAMBDA",
	KindIndirection: "IND",
	KindVariable:    "VAR",
	KindType:        "TYPE",
	KindWeak:        "WEAK",
}

// fixedSizes holds header+field cell counts. Zero means variable size.
var fixedSizes = [numKinds]int{
	KindInt:         2,
	KindDouble:      2,
	KindChar:        2,
	KindBool:        2,
	KindCons:        3,
	KindNull:        1,
	KindIndirection: 2,
	KindVariable:    2,
	KindType:        3,
	KindWeak:        2,
}

// MaxFixedSize is the largest fixed node size. Pages must hold at least this
// many cells.
const MaxFixedSize = 3

// Valid reports whether k is one of the twelve recognized kinds.
func (k Kind) Valid() bool {
	return k > KindInvalid && k < numKinds
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// MarshalText writes the kind by name, so reports carry "CONS" and not 6.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Variable reports whether the node size is read from a Count field.
func (k Kind) Variable() bool {
	return k == KindConstructor || k == KindLambda
}

// ParseKind maps a tag name (INT, CONS, ...) back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k := KindInt; k < numKinds; k++ {
		if kindNames[k] == s {
			return k, true
		}
	}
	return KindInvalid, false
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds-1)
	for k := KindInt; k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}
