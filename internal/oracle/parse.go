package oracle

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Every oracle response is free text; these parsers turn it into a tagged
// result. None of them returns an error: a malformed response parses to
// ok=false and the call site falls back to "unresolved".

var (
	fencedSQLRegex = regexp.MustCompile(`(?is)` + "```sql\\s*(.*?)\\s*```")
	sqlStartRegex  = regexp.MustCompile(`(?is)\b(select|with)\b`)
	wsRegex        = regexp.MustCompile(`\s+`)
)

// ExtractSQL pulls a query out of a raw response: a fenced sql block wins,
// otherwise everything from the first select/with keyword on. A trailing
// semicolon is stripped. Returns "" when no query-shaped text is found.
func ExtractSQL(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}
	if m := fencedSQLRegex.FindStringSubmatch(t); m != nil {
		t = strings.TrimSpace(m[1])
	}
	if loc := sqlStartRegex.FindStringIndex(t); loc != nil {
		t = strings.TrimSpace(t[loc[0]:])
	}
	t = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), ";"))
	return t
}

// NormalizeSQL collapses whitespace and lowercases, for de-duplication keys.
func NormalizeSQL(sql string) string {
	return wsRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(sql)), " ")
}

// RouterDecision is the oracle's answer to a top-K routing prompt.
type RouterDecision struct {
	DBID       string  `json:"db_id"`
	Confidence float64 `json:"confidence"`
}

// ParseRouterDecision decodes a routing response. ok is false when the
// response is not valid JSON or names no store.
func ParseRouterDecision(text string) (RouterDecision, bool) {
	var d RouterDecision
	if err := json.Unmarshal([]byte(stripFences(text)), &d); err != nil {
		return RouterDecision{}, false
	}
	if strings.TrimSpace(d.DBID) == "" {
		return RouterDecision{}, false
	}
	return d, true
}

// Clarification is the oracle's ambiguity verdict for a question.
type Clarification struct {
	NeedsClarification bool   `json:"needs_clarification"`
	QuestionToUser     string `json:"question_to_user"`
	WhyAmbiguous       string `json:"why_ambiguous"`
}

// ParseClarification decodes a clarify response. Malformed output means
// "no clarification needed" and never raises.
func ParseClarification(text string) (Clarification, bool) {
	var c Clarification
	if err := json.Unmarshal([]byte(stripFences(text)), &c); err != nil {
		return Clarification{}, false
	}
	return c, true
}

// stripFences removes a surrounding markdown code fence, which smaller
// models like to add around JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
