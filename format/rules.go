package format

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/auditmos/actionkit/event"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	CodeType     = "type"
	CodeRequired = "required"
	CodeEmpty    = "empty"
	CodeTooShort = "too_short"
	CodeTooLong  = "too_long"
	CodePattern  = "pattern"
	CodeChoice   = "choice"
	CodeRange    = "range"
	CodeNoMatch  = "no_match"
	CodeInvalid  = "invalid"
)

// Problem is what a failing test reports. It becomes an error event at the
// extraction path.
type Problem struct {
	Code    string
	Message string
	Details map[string]any
}

func (p *Problem) Event() event.Event {
	return event.Event{Type: event.TypeError, Code: p.Code, Message: p.Message, Details: p.Details}
}

// Rule is one step of a Format. The test, if any, runs first and may stop the
// chain; the filter, if any, then rewrites the value.
type Rule struct {
	test   func(any) *Problem
	filter func(any) any
}

// Test builds a rule from a predicate.
func Test(fn func(any) *Problem) Rule {
	return Rule{test: fn}
}

// Filter builds a rule that rewrites the value and cannot fail.
func Filter(fn func(any) any) Rule {
	return Rule{filter: fn}
}

// Check fails with code and message whenever ok returns false.
func Check(code, message string, ok func(any) bool) Rule {
	return Test(func(v any) *Problem {
		if ok(v) {
			return nil
		}
		return &Problem{Code: code, Message: message}
	})
}

func typeProblem(want string) *Problem {
	return &Problem{Code: CodeType, Message: "expected " + want}
}

// Stringify accepts strings and scalars and turns scalars into strings.
func Stringify() Rule {
	return Rule{
		test: func(v any) *Problem {
			if _, ok := scalarString(v); ok {
				return nil
			}
			return typeProblem("a string")
		},
		filter: func(v any) any {
			s, _ := scalarString(v)
			return s
		},
	}
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	if n, ok := asInt64(v); ok {
		return strconv.FormatInt(n, 10), true
	}
	switch u := v.(type) {
	case uint:
		return strconv.FormatUint(uint64(u), 10), true
	case uint64:
		return strconv.FormatUint(u, 10), true
	}
	return "", false
}

// Trim strips leading and trailing Unicode white space.
func Trim() Rule {
	return stringFilter(func(s string) string {
		return strings.TrimFunc(s, unicode.IsSpace)
	})
}

// CollapseSpace replaces every run of Unicode white space with one ASCII
// space.
func CollapseSpace() Rule {
	return stringFilter(func(s string) string {
		return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
	})
}

func Lower() Rule {
	return stringFilter(strings.ToLower)
}

func Upper() Rule {
	return stringFilter(strings.ToUpper)
}

// Normalize rewrites strings to Unicode normalization form C.
func Normalize() Rule {
	return stringFilter(norm.NFC.String)
}

// Fold applies Unicode case folding, for case-insensitive keys.
func Fold() Rule {
	return stringFilter(func(s string) string {
		return cases.Fold().String(s)
	})
}

func stringFilter(fn func(string) string) Rule {
	return Filter(func(v any) any {
		if s, ok := v.(string); ok {
			return fn(s)
		}
		return v
	})
}

// Default replaces a nil value.
func Default(value any) Rule {
	return Filter(func(v any) any {
		if v == nil {
			return value
		}
		return v
	})
}

func Required() Rule {
	return Test(func(v any) *Problem {
		if v == nil {
			return &Problem{Code: CodeRequired, Message: "value is required"}
		}
		return nil
	})
}

// NotEmpty rejects nil, "" and empty slices and maps.
func NotEmpty() Rule {
	return Test(func(v any) *Problem {
		if n, ok := length(v); v == nil || (ok && n == 0) {
			return &Problem{Code: CodeEmpty, Message: "must not be empty"}
		}
		return nil
	})
}

// MinLength counts code points for strings and elements for slices and maps.
func MinLength(n int) Rule {
	return Test(func(v any) *Problem {
		l, ok := length(v)
		if !ok {
			return typeProblem("a string or collection")
		}
		if l < n {
			return &Problem{
				Code:    CodeTooShort,
				Message: fmt.Sprintf("must be at least %d characters", n),
				Details: map[string]any{"min": n, "length": l},
			}
		}
		return nil
	})
}

func MaxLength(n int) Rule {
	return Test(func(v any) *Problem {
		l, ok := length(v)
		if !ok {
			return typeProblem("a string or collection")
		}
		if l > n {
			return &Problem{
				Code:    CodeTooLong,
				Message: fmt.Sprintf("must be at most %d characters", n),
				Details: map[string]any{"max": n, "length": l},
			}
		}
		return nil
	})
}

func length(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// Match requires a string matching pattern. An invalid pattern panics.
func Match(pattern string) Rule {
	re := regexp.MustCompile(pattern)
	return Test(func(v any) *Problem {
		s, ok := v.(string)
		if !ok {
			return typeProblem("a string")
		}
		if !re.MatchString(s) {
			return &Problem{Code: CodePattern, Message: "has an invalid format", Details: map[string]any{"pattern": pattern}}
		}
		return nil
	})
}

// OneOf accepts only the given values.
func OneOf(values ...any) Rule {
	allowed := append([]any(nil), values...)
	return Test(func(v any) *Problem {
		if v != nil && reflect.TypeOf(v).Comparable() {
			for _, a := range allowed {
				if a != nil && reflect.TypeOf(a) == reflect.TypeOf(v) && a == v {
					return nil
				}
			}
		}
		return &Problem{Code: CodeChoice, Message: "is not an allowed value", Details: map[string]any{"allowed": allowed}}
	})
}

// Integer accepts integers, integral floats and decimal integer strings and
// produces an int.
func Integer() Rule {
	return Rule{
		test: func(v any) *Problem {
			if _, ok := toInt(v); ok {
				return nil
			}
			return typeProblem("an integer")
		},
		filter: func(v any) any {
			n, _ := toInt(v)
			return n
		},
	}
}

// Number accepts any numeric value or numeric string and produces a float64.
func Number() Rule {
	return Rule{
		test: func(v any) *Problem {
			if _, ok := toFloat(v); ok {
				return nil
			}
			return typeProblem("a number")
		},
		filter: func(v any) any {
			f, _ := toFloat(v)
			return f
		},
	}
}

// Boolean accepts bools, 0 and 1, and the strings true/false, yes/no, on/off,
// 1/0 in any case.
func Boolean() Rule {
	return Rule{
		test: func(v any) *Problem {
			if _, ok := toBool(v); ok {
				return nil
			}
			return typeProblem("a boolean")
		},
		filter: func(v any) any {
			b, _ := toBool(v)
			return b
		},
	}
}

func Min(min float64) Rule {
	return Test(func(v any) *Problem {
		f, ok := toFloat(v)
		if !ok {
			return typeProblem("a number")
		}
		if f < min {
			return &Problem{Code: CodeRange, Message: "must be at least " + formatNumber(min), Details: map[string]any{"min": min}}
		}
		return nil
	})
}

func Max(max float64) Rule {
	return Test(func(v any) *Problem {
		f, ok := toFloat(v)
		if !ok {
			return typeProblem("a number")
		}
		if f > max {
			return &Problem{Code: CodeRange, Message: "must be at most " + formatNumber(max), Details: map[string]any{"max": max}}
		}
		return nil
	})
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), x <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	if n, ok := asInt64(v); ok {
		return int(n), n >= math.MinInt && n <= math.MaxInt
	}
	switch x := v.(type) {
	case float32:
		return toInt(float64(x))
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) || x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	if n, ok := asInt64(v); ok {
		return float64(n), true
	}
	switch x := v.(type) {
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return toFloat(float64(x))
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "on", "1":
			return true, true
		case "false", "no", "off", "0":
			return false, true
		}
		return false, false
	}
	if n, ok := asInt64(v); ok && (n == 0 || n == 1) {
		return n == 1, true
	}
	return false, false
}
