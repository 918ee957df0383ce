package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	questionBlockRegex = regexp.MustCompile(`(?i)\b(frage|question)\s*:\s*`)
	noiseLineRegex     = regexp.MustCompile(`(?im)^\s*(TIMING\b|INFO:|DEBUG:|WARNING:|ERROR:).*$`)
	pastedDBRegex      = regexp.MustCompile(`(?is)\*\*DB:\*\*.*?(?:\n\s*\*\*SQL\*\*|\z)`)
	pastedSQLRegex     = regexp.MustCompile(`(?is)\*\*SQL\*\*.*?` + "```sql.*?```")
	pastedResultRegex  = regexp.MustCompile(`(?is)\*\*Result.*`)
	fencedBlockRegex   = regexp.MustCompile("(?is)```.*?```")
	whitespaceRegex    = regexp.MustCompile(`\s+`)
	directSQLRegex     = regexp.MustCompile(`(?i)\bsql:\s*`)
)

// listCommands are the literal tokens that list all stores without ever
// invoking the oracle.
var listCommands = map[string]bool{
	"dbs":            true,
	"list dbs":       true,
	"databases":      true,
	"list databases": true,
	"datenbanken":    true,
}

// effectiveQuestion merges a pending clarification round: the original
// question plus the user's answer form the question that is reprocessed
// from the top.
func (p *Pipeline) effectiveQuestion(req Request) string {
	q := strings.TrimSpace(req.Question)
	if req.Pending == nil {
		return q
	}
	original := strings.TrimSpace(req.Pending.OriginalQuestion)
	if original == "" || q == "" {
		return q
	}
	return fmt.Sprintf("Original question: %s\n\nUser clarification: %s", original, q)
}

// sanitizeQuestion cleans pasted chat noise out of the question: keeps only
// the last "question:" block, strips log lines and previous pipeline output,
// drops fenced code blocks, collapses whitespace, and tail-truncates
// oversized input (the end of a pasted blob is where the actual question
// usually lives).
func (p *Pipeline) sanitizeQuestion(q string) string {
	orig := q
	s := q

	if questionBlockRegex.MatchString(s) {
		parts := questionBlockRegex.Split(s, -1)
		if len(parts) >= 2 {
			s = strings.TrimSpace(parts[len(parts)-1])
		}
	}

	if p.cfg.StripOutputNoise {
		s = noiseLineRegex.ReplaceAllString(s, " ")
		s = pastedDBRegex.ReplaceAllString(s, " ")
		s = pastedSQLRegex.ReplaceAllString(s, " ")
		s = pastedResultRegex.ReplaceAllString(s, " ")
	}

	s = fencedBlockRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))

	maxChars := p.cfg.QuestionMaxChars
	if maxChars < 200 {
		maxChars = 200
	}
	keepLines := p.cfg.QuestionKeepLastLines
	if keepLines < 3 {
		keepLines = 3
	}

	if len(s) > maxChars {
		var lines []string
		for _, ln := range strings.Split(orig, "\n") {
			if t := strings.TrimSpace(ln); t != "" {
				lines = append(lines, t)
			}
		}
		if len(lines) > 0 {
			if len(lines) > keepLines {
				lines = lines[len(lines)-keepLines:]
			}
			tail := strings.Join(lines, " ")
			tail = fencedBlockRegex.ReplaceAllString(tail, " ")
			s = strings.TrimSpace(whitespaceRegex.ReplaceAllString(tail, " "))
		}
		if len(s) > maxChars {
			s = strings.TrimSpace(s[len(s)-maxChars:])
		}
	}

	return s
}

// isListCommand reports whether the question is a literal store-listing
// command (any casing).
func isListCommand(q string) bool {
	return listCommands[strings.ToLower(strings.TrimSpace(q))]
}

// directSQL detects `sql:` mode and returns the verbatim remainder.
func directSQL(q string) (string, bool) {
	loc := directSQLRegex.FindStringIndex(q)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(q[loc[1]:]), true
}
