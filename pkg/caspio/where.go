package caspio

import (
	"fmt"
	"strconv"
	"strings"
)

// Where is a composable predicate for q.where filters. Predicates are built
// from typed constructors so callers never assemble filter strings from
// unescaped input.
type Where struct {
	expr string
}

// Empty reports whether the predicate has no clauses.
func (w Where) Empty() bool { return w.expr == "" }

// String renders the predicate as a q.where expression.
func (w Where) String() string { return w.expr }

// Eq matches rows where field equals value.
func Eq(field string, value any) Where {
	return Where{expr: fmt.Sprintf("%s=%s", field, formatValue(value))}
}

// Ne matches rows where field differs from value.
func Ne(field string, value any) Where {
	return Where{expr: fmt.Sprintf("%s<>%s", field, formatValue(value))}
}

// Gt matches rows where field exceeds value.
func Gt(field string, value any) Where {
	return Where{expr: fmt.Sprintf("%s>%s", field, formatValue(value))}
}

// IsNull matches rows where field is NULL.
func IsNull(field string) Where {
	return Where{expr: field + " IS NULL"}
}

// IsBlank matches rows where field is NULL or the empty string.
func IsBlank(field string) Where {
	return Where{expr: fmt.Sprintf("(%s IS NULL OR %s='')", field, field)}
}

// Like matches rows where field matches the given pattern ("%" wildcards).
func Like(field, pattern string) Where {
	return Where{expr: fmt.Sprintf("%s LIKE %s", field, formatValue(pattern))}
}

// Contains matches rows where field contains the given substring.
func Contains(field, substr string) Where {
	return Like(field, "%"+substr+"%")
}

// In matches rows where field is one of the given ids.
func In(field string, ids []int64) Where {
	if len(ids) == 0 {
		return Where{}
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return Where{expr: fmt.Sprintf("%s IN (%s)", field, strings.Join(parts, ","))}
}

// And combines predicates conjunctively, skipping empty ones.
func And(ws ...Where) Where {
	return combine(ws, " AND ")
}

// Or combines predicates disjunctively, skipping empty ones.
func Or(ws ...Where) Where {
	return combine(ws, " OR ")
}

func combine(ws []Where, sep string) Where {
	var parts []string
	for _, w := range ws {
		if !w.Empty() {
			parts = append(parts, w.expr)
		}
	}
	switch len(parts) {
	case 0:
		return Where{}
	case 1:
		return Where{expr: parts[0]}
	default:
		return Where{expr: "(" + strings.Join(parts, sep) + ")"}
	}
}

// formatValue renders a literal for a q.where expression. String literals
// have embedded quotes doubled, which is the only escape the store accepts.
func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	case bool:
		if t {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(t), "'", "''") + "'"
	}
}
