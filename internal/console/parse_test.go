package console

import (
	"testing"

	"semispace/internal/node"
)

func TestParseNode(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"int", "-5"}, "INT -5"},
		{[]string{"DOUBLE", "7.1"}, node.NewDouble(7.1).String()},
		{[]string{"char", "c"}, node.NewChar('c').String()},
		{[]string{"bool", "true"}, node.NewBool(true).String()},
		{[]string{"null"}, "NULL"},
		{[]string{"var", "x"}, node.NewVariable("x").String()},
		{[]string{"ind", "4"}, node.NewIndirection(4).String()},
		{[]string{"weak", "2"}, node.NewWeak(2).String()},
		{[]string{"cons", "0", "7"}, node.NewCons(0, 7).String()},
		{[]string{"type", "3", "aType"}, node.NewType(3, "aType").String()},
		{[]string{"constr", "pair", "4", "6"}, node.NewConstructor("pair", 4, 6).String()},
		{[]string{"lambda", "f"}, node.NewLambda("f").String()},
	}
	for _, tt := range tests {
		n, err := ParseNode(tt.args)
		if err != nil {
			t.Errorf("ParseNode(%v): %v", tt.args, err)
			continue
		}
		if n.String() != tt.want {
			t.Errorf("ParseNode(%v) = %s, want %s", tt.args, n, tt.want)
		}
	}
}

func TestParseNodeErrors(t *testing.T) {
	bad := [][]string{
		nil,
		{"frob"},
		{"int"},
		{"int", "x"},
		{"char", "ab"},
		{"bool", "maybe"},
		{"null", "1"},
		{"cons", "1"},
		{"cons", "1", "y"},
		{"type", "z", "t"},
		{"constr"},
	}
	for _, args := range bad {
		if n, err := ParseNode(args); err == nil {
			t.Errorf("ParseNode(%v) = %s, want error", args, n)
		}
	}
}
