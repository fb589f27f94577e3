package present

import (
	"fmt"
	"strings"
	"sync"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/target/snowdash/internal/domain/record"
)

// Display renders a field value as text. Reference objects unwrap to their
// display_value, then their value; nil renders as "".
func Display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case record.Value:
		return x.Text()
	case *record.Value:
		if x == nil {
			return ""
		}
		return x.Text()
	case record.Reference:
		return record.Ref(x).Text()
	case map[string]any:
		if s := Display(x["display_value"]); s != "" {
			return s
		}
		return Display(x["value"])
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Field renders rec[name], or "" when absent.
func Field(rec record.Record, name string) string {
	return rec.Text(name)
}

// FieldOr renders rec[name], or fallback when the field is empty.
func FieldOr(rec record.Record, name, fallback string) string {
	if s := rec.Text(name); s != "" {
		return s
	}
	return fallback
}

// compiled caches parsed expressions. Invalid ones are cached with a nil query.
var compiled sync.Map // expression -> compiledExpr

type compiledExpr struct {
	query jmespath.JMESPath
}

func compileLookup(expr string) jmespath.JMESPath {
	if c, ok := compiled.Load(expr); ok {
		return c.(compiledExpr).query
	}
	query, _ := jmespath.Compile(expr)
	c, _ := compiled.LoadOrStore(expr, compiledExpr{query: query})
	return c.(compiledExpr).query
}

// Lookup resolves a JMESPath expression such as "requested_for.display_value"
// against a record and renders the result. Invalid expressions and missing
// paths render as "".
func Lookup(rec record.Record, expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" || rec == nil {
		return ""
	}

	query := compileLookup(expr)
	if query == nil {
		return ""
	}
	out, err := query.Search(rec.Interface())
	if err != nil {
		return ""
	}
	return Display(out)
}

// FullName is "first last" when both are set, else the username, else "Unknown User".
func FullName(rec record.Record) string {
	first, last := rec.Text("first_name"), rec.Text("last_name")
	if first != "" && last != "" {
		return first + " " + last
	}
	return FieldOr(rec, "user_name", "Unknown User")
}

// Initials takes the first letters of first and last name, falling back to
// the username's first letter, then "U".
func Initials(rec record.Record) string {
	initials := firstRune(rec.Text("first_name")) + firstRune(rec.Text("last_name"))
	if initials != "" {
		return strings.ToUpper(initials)
	}
	if u := firstRune(rec.Text("user_name")); u != "" {
		return strings.ToUpper(u)
	}
	return "U"
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// IsActive accepts the boolean true and the string "true".
func IsActive(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case record.Value:
		if x.Kind() == record.KindBool || x.Kind() == record.KindString {
			return x.Text() == "true"
		}
		return false
	case string:
		return x == "true"
	default:
		return false
	}
}
