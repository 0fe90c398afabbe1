// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// valueToString renders a cty value as the raw text form stored in a
// Configuration. Primitives go through the cty string conversion; lists,
// sets and tuples become a comma separated sequence of their elements.
func valueToString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("value is null")
	}
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("value is not known")
	}

	ty := v.Type()
	switch {
	case ty.IsPrimitiveType():
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return "", err
		}
		return s.AsString(), nil
	case ty.IsListType(), ty.IsSetType(), ty.IsTupleType():
		parts := make([]string, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if !elem.Type().IsPrimitiveType() {
				return "", fmt.Errorf("nested %s values are not supported", elem.Type().FriendlyName())
			}
			s, err := valueToString(elem)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), nil
	default:
		return "", fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
