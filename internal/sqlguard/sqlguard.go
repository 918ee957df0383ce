// Package sqlguard is the safety gate every piece of SQL passes before
// execution, whether it came from the oracle or straight from the user.
package sqlguard

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Distinguishable rejection reasons.
var (
	ErrNotSelect      = errors.New("only SELECT/WITH statements are allowed")
	ErrMultiStatement = errors.New("semicolons are not allowed")
	ErrBannedKeyword  = errors.New("write operations are not allowed")
)

// bannedRegex matches whole-word occurrences of operations that mutate or
// reconfigure the store.
var bannedRegex = regexp.MustCompile(`\b(insert|update|delete|drop|alter|create|attach|pragma|vacuum|reindex)\b`)

var limitRegex = regexp.MustCompile(`(?i)\blimit\s+(\d+)\b`)

// unboundedMarkers signal that the user explicitly wants the complete
// result set; limit enforcement steps aside for those questions.
var unboundedMarkers = []string{"all rows", "everything", "complete"}

// Validate checks sql against the read-only contract and returns the
// trimmed statement. allowWrite disables the banned-keyword check only;
// SELECT/WITH and single-statement rules always hold.
func Validate(sql string, allowWrite bool) (string, error) {
	s := strings.TrimSpace(sql)
	low := strings.ToLower(s)

	if !strings.HasPrefix(low, "select") && !strings.HasPrefix(low, "with") {
		return "", ErrNotSelect
	}
	if strings.Contains(s, ";") {
		return "", ErrMultiStatement
	}
	if !allowWrite {
		if kw := bannedRegex.FindString(low); kw != "" {
			return "", fmt.Errorf("%w: %s", ErrBannedKeyword, kw)
		}
	}
	return s, nil
}

// EnforceLimit bounds the statement's output. Questions carrying an
// unbounded marker pass through untouched. An existing LIMIT is clamped
// down to hardCap when it exceeds it; otherwise the default limit is
// appended. Applied after Validate, always.
func EnforceLimit(sql, question string, defaultLimit, hardCap int) string {
	ql := strings.ToLower(question)
	for _, marker := range unboundedMarkers {
		if strings.Contains(ql, marker) {
			return sql
		}
	}

	if m := limitRegex.FindStringSubmatch(sql); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > hardCap {
			return limitRegex.ReplaceAllString(sql, fmt.Sprintf("LIMIT %d", hardCap))
		}
		return sql
	}

	return fmt.Sprintf("%s LIMIT %d", sql, defaultLimit)
}
