package console

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"semispace/internal/node"
)

// ParseNode builds a node from a kind name and its arguments, e.g.
//
//	int 5
//	cons 0 2
//	constr pair 4 6
//	type 3 aType
func ParseNode(args []string) (node.Node, error) {
	if len(args) == 0 {
		return node.Node{}, fmt.Errorf("missing kind (one of %s)", kindList())
	}
	kind, ok := node.ParseKind(strings.ToUpper(args[0]))
	if !ok {
		return node.Node{}, fmt.Errorf("unknown kind %q (one of %s)", args[0], kindList())
	}
	rest := args[1:]
	need := func(n int) error {
		if len(rest) != n {
			return fmt.Errorf("%s takes %d argument(s), got %d", kind, n, len(rest))
		}
		return nil
	}

	switch kind {
	case node.KindInt:
		if err := need(1); err != nil {
			return node.Node{}, err
		}
		v, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return node.Node{}, fmt.Errorf("INT value: %w", err)
		}
		return node.NewInt(v), nil
	case node.KindDouble:
		if err := need(1); err != nil {
			return node.Node{}, err
		}
		v, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return node.Node{}, fmt.Errorf("DOUBLE value: %w", err)
		}
		return node.NewDouble(v), nil
	case node.KindChar:
		if err := need(1); err != nil {
			return node.Node{}, err
		}
		r, size := utf8.DecodeRuneInString(rest[0])
		if size != len(rest[0]) || r == utf8.RuneError {
			return node.Node{}, fmt.Errorf("CHAR value %q is not one character", rest[0])
		}
		return node.NewChar(r), nil
	case node.KindBool:
		if err := need(1); err != nil {
			return node.Node{}, err
		}
		v, err := strconv.ParseBool(rest[0])
		if err != nil {
			return node.Node{}, fmt.Errorf("BOOL value: %w", err)
		}
		return node.NewBool(v), nil
	case node.KindNull:
		if err := need(0); err != nil {
			return node.Node{}, err
		}
		return node.NewNull(), nil
	case node.KindVariable:
		if err := need(1); err != nil {
			return node.Node{}, err
		}
		return node.NewVariable(rest[0]), nil
	case node.KindIndirection, node.KindWeak:
		if err := need(1); err != nil {
			return node.Node{}, err
		}
		p, err := parseAddrs(rest)
		if err != nil {
			return node.Node{}, err
		}
		if kind == node.KindWeak {
			return node.NewWeak(p[0]), nil
		}
		return node.NewIndirection(p[0]), nil
	case node.KindCons:
		if err := need(2); err != nil {
			return node.Node{}, err
		}
		p, err := parseAddrs(rest)
		if err != nil {
			return node.Node{}, err
		}
		return node.NewCons(p[0], p[1]), nil
	case node.KindType:
		if err := need(2); err != nil {
			return node.Node{}, err
		}
		p, err := parseAddrs(rest[:1])
		if err != nil {
			return node.Node{}, err
		}
		return node.NewType(p[0], rest[1]), nil
	case node.KindConstructor, node.KindLambda:
		if len(rest) < 1 {
			return node.Node{}, fmt.Errorf("%s needs a name", kind)
		}
		p, err := parseAddrs(rest[1:])
		if err != nil {
			return node.Node{}, err
		}
		if kind == node.KindLambda {
			return node.NewLambda(rest[0], p...), nil
		}
		return node.NewConstructor(rest[0], p...), nil
	}
	return node.Node{}, fmt.Errorf("cannot build %s", kind)
}

func parseAddrs(args []string) ([]node.Addr, error) {
	out := make([]node.Addr, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", a, err)
		}
		out[i] = node.Addr(v)
	}
	return out, nil
}

func kindList() string {
	var names []string
	for _, k := range node.Kinds() {
		names = append(names, strings.ToLower(k.String()))
	}
	return strings.Join(names, ", ")
}
