package utils

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

func SQLNullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

func SQLNullTime(t time.Time) pq.NullTime {
	return pq.NullTime{
		Time:  t,
		Valid: !t.IsZero(),
	}
}

// StringOrNil returns a pointer to s, or nil when s is empty. Useful for JSON payloads
// where absent optional fields must serialize as null.
func StringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
