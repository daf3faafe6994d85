package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// AsBool accepts HCL booleans, 0/1 and the usual textual spellings.
func AsBool(v cty.Value) (bool, error) {
	if v.IsNull() || !v.IsKnown() {
		return false, fmt.Errorf("value is not set")
	}
	switch v.Type() {
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		switch {
		case bf.Cmp(big.NewFloat(0)) == 0:
			return false, nil
		case bf.Cmp(big.NewFloat(1)) == 0:
			return true, nil
		}
	case cty.String:
		switch strings.ToLower(strings.TrimSpace(v.AsString())) {
		case "1", "yes", "on", "true", "enabled":
			return true, nil
		case "0", "no", "off", "false", "disabled":
			return false, nil
		}
	}
	return false, fmt.Errorf("not a boolean: %s", Describe(v))
}

// AsString converts a primitive value to a string.
func AsString(v cty.Value) (string, error) {
	if v.IsNull() || !v.IsKnown() {
		return "", fmt.Errorf("value is not set")
	}
	if !v.Type().IsPrimitiveType() {
		return "", fmt.Errorf("not a string: %s", Describe(v))
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}

// AsStringList accepts a list, tuple or set of primitives, or a single
// string holding whitespace-separated words.
func AsStringList(v cty.Value) ([]string, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, fmt.Errorf("value is not set")
	}
	t := v.Type()
	if t.IsPrimitiveType() {
		s, err := AsString(v)
		if err != nil {
			return nil, err
		}
		return strings.Fields(s), nil
	}
	if !t.IsListType() && !t.IsTupleType() && !t.IsSetType() {
		return nil, fmt.Errorf("not a list: %s", Describe(v))
	}

	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		s, err := AsString(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// AsDuration accepts a Go duration string or a number of seconds.
func AsDuration(v cty.Value) (time.Duration, error) {
	if v.IsNull() || !v.IsKnown() {
		return 0, fmt.Errorf("value is not set")
	}
	if v.Type() == cty.Number {
		f, _ := v.AsBigFloat().Float64()
		return time.Duration(f * float64(time.Second)), nil
	}
	s, err := AsString(v)
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(s)
}

// Describe renders a value the way it would be written in a config file.
func Describe(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	if !v.IsKnown() {
		return "(unknown)"
	}
	t := v.Type()
	switch {
	case t.IsPrimitiveType():
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return v.GoString()
		}
		return s.AsString()
	case t.IsListType() || t.IsTupleType() || t.IsSetType():
		var parts []string
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			parts = append(parts, Describe(ev))
		}
		return strings.Join(parts, " ")
	default:
		return t.FriendlyName()
	}
}
