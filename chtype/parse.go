package chtype

import (
	"strconv"
	"strings"
	"time"

	"github.com/mickamy/chnative/cherr"
)

// Parse parses a type descriptor string, e.g. "Array(Nullable(String))" or
// "DateTime('UTC')". The grammar is: an identifier, then an optional
// parenthesized, comma-separated argument list, with nested parens tracked
// so arguments may themselves be types. Identifiers are matched
// case-sensitively against a fixed vocabulary; unsupported constructs
// (`Nested`, enums parsed with literal variants) are rejected with a typed
// error, since the server never sends them over this protocol in practice.
func Parse(s string) (*Type, error) {
	ident, rest := eatIdentifier(s)
	if ident == "" {
		return nil, cherr.NewTypeParse("empty type identifier in %q", s)
	}
	rest = strings.TrimSpace(rest)

	var args []string
	if strings.HasPrefix(rest, "(") {
		closeIdx := matchingParen(rest)
		if closeIdx < 0 {
			return nil, cherr.NewTypeParse("unbalanced parens in %q", s)
		}
		args = splitArgs(rest[1:closeIdx])
		rest = rest[closeIdx+1:]
	}
	if strings.TrimSpace(rest) != "" {
		return nil, cherr.NewTypeParse("trailing input %q after type", rest)
	}

	return buildType(ident, args)
}

func eatIdentifier(s string) (ident, rest string) {
	i := 0
	for i < len(s) {
		c := s[i]
		isFirst := i == 0
		ok := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '$' ||
			(!isFirst && c >= '0' && c <= '9')
		if !ok {
			break
		}
		i++
	}
	return s[:i], s[i:]
}

// matchingParen returns the index of the ")" matching the "(" at index 0,
// tracking nesting depth so constructor arguments may contain further
// parenthesized types.
func matchingParen(s string) int {
	depth := 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitArgs splits a constructor's argument list on top-level commas,
// respecting paren depth and single-quoted strings, and trims whitespace
// from each argument.
func splitArgs(s string) []string {
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && !inQuote:
			inQuote = true
		case c == '\'' && inQuote:
			inQuote = false
		case inQuote:
			// inside quotes, ignore structural characters
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if start <= len(s) {
		tail := strings.TrimSpace(s[start:])
		if tail != "" || len(out) > 0 {
			out = append(out, tail)
		}
	}
	return out
}

func buildType(ident string, args []string) (*Type, error) {
	switch ident {
	case "Int8":
		return Int8, nil
	case "Int16":
		return Int16, nil
	case "Int32":
		return Int32, nil
	case "Int64":
		return Int64, nil
	case "Int128":
		return Int128, nil
	case "Int256":
		return Int256, nil
	case "Bool", "UInt8":
		return UInt8, nil
	case "UInt16":
		return UInt16, nil
	case "UInt32":
		return UInt32, nil
	case "UInt64":
		return UInt64, nil
	case "UInt128":
		return UInt128, nil
	case "UInt256":
		return UInt256, nil
	case "Float32":
		return Float32, nil
	case "Float64":
		return Float64, nil
	case "String":
		return String, nil
	case "FixedString":
		n, err := parseArgInt(args, 0, "FixedString")
		if err != nil {
			return nil, err
		}
		return FixedString(n), nil
	case "UUID":
		return UUID, nil
	case "Date":
		return Date, nil
	case "DateTime":
		if len(args) == 0 {
			return DateTime(time.UTC), nil
		}
		loc, err := parseQuotedTz(args[0])
		if err != nil {
			return nil, err
		}
		return DateTime(loc), nil
	case "DateTime64":
		if len(args) == 0 {
			return nil, cherr.NewTypeParse("DateTime64 requires a precision argument")
		}
		precision, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, cherr.NewTypeParse("DateTime64 precision: %v", err)
		}
		loc := time.UTC
		if len(args) > 1 {
			loc, err = parseQuotedTz(args[1])
			if err != nil {
				return nil, err
			}
		}
		return DateTime64(precision, loc), nil
	case "IPv4":
		return Ipv4, nil
	case "IPv6":
		return Ipv6, nil
	case "Point":
		return Point, nil
	case "Ring":
		return Ring(), nil
	case "Polygon":
		return Polygon(), nil
	case "MultiPolygon":
		return MultiPolygon(), nil
	case "LowCardinality":
		inner, err := parseArgType(args, 0, "LowCardinality")
		if err != nil {
			return nil, err
		}
		return LowCardinality(inner), nil
	case "Array":
		inner, err := parseArgType(args, 0, "Array")
		if err != nil {
			return nil, err
		}
		return Array(inner), nil
	case "Nullable":
		inner, err := parseArgType(args, 0, "Nullable")
		if err != nil {
			return nil, err
		}
		return Nullable(inner), nil
	case "Map":
		if len(args) != 2 {
			return nil, cherr.NewTypeParse("Map requires exactly 2 arguments, got %d", len(args))
		}
		key, err := Parse(args[0])
		if err != nil {
			return nil, err
		}
		val, err := Parse(args[1])
		if err != nil {
			return nil, err
		}
		return Map(key, val), nil
	case "Tuple":
		elems := make([]*Type, 0, len(args))
		for _, a := range args {
			e, err := Parse(a)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return Tuple(elems...), nil
	case "Decimal32", "Decimal64", "Decimal128", "Decimal256":
		if len(args) != 1 {
			return nil, cherr.NewTypeParse("%s requires exactly 1 argument", ident)
		}
		scale, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, cherr.NewTypeParse("%s scale: %v", ident, err)
		}
		switch ident {
		case "Decimal32":
			return Decimal32(scale), nil
		case "Decimal64":
			return Decimal64(scale), nil
		case "Decimal128":
			return Decimal128(scale), nil
		default:
			return Decimal256(scale), nil
		}
	case "Decimal":
		if len(args) != 2 {
			return nil, cherr.NewTypeParse("Decimal requires precision and scale arguments")
		}
		precision, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, cherr.NewTypeParse("Decimal precision: %v", err)
		}
		scale, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, cherr.NewTypeParse("Decimal scale: %v", err)
		}
		switch {
		case precision <= 9:
			return Decimal32(scale), nil
		case precision <= 18:
			return Decimal64(scale), nil
		case precision <= 38:
			return Decimal128(scale), nil
		case precision <= 76:
			return Decimal256(scale), nil
		default:
			return nil, cherr.NewTypeParse("Decimal precision cannot exceed 76, got %d", precision)
		}
	case "Enum8", "Enum16":
		// The server never sends literal enum variants over this protocol;
		// Enum8/Enum16 values are constructed programmatically via
		// NewEnum8/NewEnum16, never parsed from a type string.
		return nil, cherr.NewTypeParse("%s is not parseable from a type string", ident)
	case "Nested":
		return nil, cherr.NewTypeParse("Nested is not supported")
	default:
		return nil, cherr.NewTypeParse("unknown type identifier %q", ident)
	}
}

func parseArgInt(args []string, idx int, ctx string) (int, error) {
	if idx >= len(args) {
		return 0, cherr.NewTypeParse("%s requires an argument", ctx)
	}
	n, err := strconv.Atoi(args[idx])
	if err != nil {
		return 0, cherr.NewTypeParse("%s argument: %v", ctx, err)
	}
	return n, nil
}

func parseArgType(args []string, idx int, ctx string) (*Type, error) {
	if idx >= len(args) {
		return nil, cherr.NewTypeParse("%s requires a type argument", ctx)
	}
	return Parse(args[idx])
}

func parseQuotedTz(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return nil, cherr.NewTypeParse("timezone argument %q must be quoted", s)
	}
	name := s[1 : len(s)-1]
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, cherr.NewTypeParse("unknown timezone %q: %v", name, err)
	}
	return loc, nil
}
