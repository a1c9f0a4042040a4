package utils

import (
	"fmt"
	"reflect"
	"strings"
)

// GetTypeName receives any value and returns the name of its type without the package prefix.
func GetTypeName(v interface{}) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}

	typeName := t.String()
	parts := strings.Split(typeName, ".")
	return parts[len(parts)-1]
}

// TruncateString returns a truncated string with the informed length, suffixed with "...".
func TruncateString(str string, borderSizeToKeep int) string {
	if len(str) <= 2*borderSizeToKeep {
		return str
	}
	return str[:borderSizeToKeep] + "..." + str[len(str)-borderSizeToKeep:]
}

// Humanize converts a snake_case or CamelCase identifier into a lower-case phrase.
func Humanize(str string) string {
	str = strings.ReplaceAll(str, "_", " ")
	return strings.ToLower(strings.TrimSpace(str))
}

// FirstNonEmpty returns the first string in values that is not empty after trimming.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// MapSlice applies f to every element of a and returns the resulting slice.
func MapSlice[T any, M any](a []T, f func(T) M) []M {
	n := make([]M, len(a))
	for i, e := range a {
		n[i] = f(e)
	}
	return n
}

// VisualizeError returns a string representation of an error suited for logs.
func VisualizeError(err error) string {
	if err == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", err)
}
