package agent

import (
	"fmt"
	"reflect"
)

// Comparison operators accepted in state patterns.
const (
	opGTE = "$gte"
	opGT  = "$gt"
	opLTE = "$lte"
	opLT  = "$lt"
	opNE  = "$ne"
)

// matchValue compares a stored value against a pattern value. A map
// with a single $-prefixed key is an operator comparison; anything else
// is an equality check.
func matchValue(got, want any) (bool, error) {
	if op, operand, ok := asOperator(want); ok {
		return compare(got, op, operand)
	}
	return reflect.DeepEqual(normalize(got), normalize(want)), nil
}

func asOperator(want any) (string, any, bool) {
	m, ok := want.(map[string]any)
	if !ok || len(m) != 1 {
		return "", nil, false
	}
	for key, value := range m {
		switch key {
		case opGTE, opGT, opLTE, opLT, opNE:
			return key, value, true
		}
	}
	return "", nil, false
}

func compare(got any, op string, operand any) (bool, error) {
	if op == opNE {
		return !reflect.DeepEqual(normalize(got), normalize(operand)), nil
	}

	a, err := asFloat(got)
	if err != nil {
		return false, err
	}
	b, err := asFloat(operand)
	if err != nil {
		return false, err
	}
	switch op {
	case opGTE:
		return a >= b, nil
	case opGT:
		return a > b, nil
	case opLTE:
		return a <= b, nil
	case opLT:
		return a < b, nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

// normalize folds numeric types so values that round-tripped through
// JSON compare equal to their in-memory originals.
func normalize(v any) any {
	if f, err := asFloat(v); err == nil {
		return f
	}
	return v
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
