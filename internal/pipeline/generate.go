package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"askdb/internal/oracle"
	"askdb/internal/sqlguard"
)

const generatorSystemPrompt = `You produce ONLY syntactically correct SQLite SQL.
Rules:
- Reply with the SQL query only (no prose).
- SELECT or WITH (CTE) only.
- No semicolon.
- Use only tables and columns from the supplied schema.
- For JSON-typed text columns use json_extract(col, '$.path') where needed.
- When sensible, use LIMIT <= 100.`

const fixerSystemPrompt = `You are a SQL fixer. You get a SQLite query that fails at execution time.
Return ONLY the corrected SQL query (no prose, no semicolon).
Rules:
- SELECT/WITH only.
- Use only tables and columns from the supplied schema.`

const clarifySystemPrompt = `You are an assistant for database questions. Decide whether the user question is unambiguous enough to answer without asking back.
Reply with JSON only:
{"needs_clarification":true/false,"question_to_user":"...","why_ambiguous":"..."}
Rules:
- needs_clarification=true only when truly necessary.
- Ask exactly ONE short follow-up question.`

// buildUserPrompt assembles the shared user content: schema, optional
// column meanings, optional knowledge snippets, then the question.
func buildUserPrompt(schemaText, colMeanings, kb, question string) string {
	parts := []string{"Schema:\n" + schemaText}
	if colMeanings != "" {
		parts = append(parts, "Column meanings:\n"+colMeanings)
	}
	if kb != "" {
		parts = append(parts, "Knowledge snippets:\n"+kb)
	}
	parts = append(parts, "Question:\n"+question+"\n\nSQL:")
	return strings.Join(parts, "\n\n")
}

// generateCandidates requests N independent translations with a shared
// contract, extracts SQL from each, and de-duplicates by normalized text
// while keeping the first occurrence's casing. Candidates that fail
// validation are kept raw: they still seed the correction loop.
func (p *Pipeline) generateCandidates(ctx context.Context, log *zap.Logger, schemaText, colMeanings, kb, question string) []string {
	n := p.cfg.NumCandidates
	if n < 1 {
		n = 1
	}
	user := buildUserPrompt(schemaText, colMeanings, kb, question)

	var raw []string
	for i := 0; i < n; i++ {
		out, err := p.oracle.Chat(ctx, oracle.ChatRequest{
			Span:        fmt.Sprintf("nl2sql_%d", i+1),
			System:      generatorSystemPrompt,
			User:        user,
			Temperature: p.cfg.TempSQL,
			NumPredict:  p.cfg.SQLNumPredict,
		})
		if err != nil {
			log.Warn("candidate generation failed", zap.Int("candidate", i+1), zap.Error(err))
			continue
		}
		sql := oracle.ExtractSQL(out)
		if validated, err := sqlguard.Validate(sql, p.cfg.AllowWriteSQL); err == nil {
			raw = append(raw, sqlguard.EnforceLimit(validated, question, p.cfg.MaxRowsDefault, p.cfg.MaxRowsHard))
		} else {
			raw = append(raw, strings.TrimSpace(sql))
		}
	}

	seen := make(map[string]bool, len(raw))
	var uniq []string
	for _, s := range raw {
		key := oracle.NormalizeSQL(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, strings.TrimSpace(s))
	}
	if len(uniq) > n {
		uniq = uniq[:n]
	}
	return uniq
}

// maybeClarify asks the oracle whether the question is ambiguous. Any
// oracle failure or unparseable output means "no clarification needed".
func (p *Pipeline) maybeClarify(ctx context.Context, storeID, question, schemaText string) string {
	if !p.cfg.EnableClarify || p.oracle == nil {
		return ""
	}

	hint := schemaText
	if len(hint) > 1200 {
		hint = hint[:1200]
	}
	model := strings.TrimSpace(p.cfg.ClarifyModel)
	if model == "" {
		model = strings.TrimSpace(p.cfg.RouterModel)
	}

	out, err := p.oracle.Chat(ctx, oracle.ChatRequest{
		Span:        "clarify",
		System:      clarifySystemPrompt,
		User:        fmt.Sprintf("DB: %s\nSchema hint (truncated):\n%s\n\nUser question:\n%s\n\nJSON:", storeID, hint, question),
		Model:       model,
		Temperature: 0,
		NumPredict:  p.cfg.ClarifyNumPredict,
	})
	if err != nil {
		return ""
	}

	c, ok := oracle.ParseClarification(out)
	if !ok || !c.NeedsClarification {
		return ""
	}
	return strings.TrimSpace(c.QuestionToUser)
}

// fixSQL issues one fixer call: schema context, the question, the verbatim
// engine error, and the broken query. The correction is validated and
// limit-enforced like any generated candidate; a correction that fails
// validation is returned alongside its error so the loop can carry it into
// the next iteration.
func (p *Pipeline) fixSQL(ctx context.Context, in correctionInput) (string, error) {
	parts := []string{"Schema:\n" + in.schemaText}
	if in.colMeanings != "" {
		parts = append(parts, "Column meanings:\n"+in.colMeanings)
	}
	if in.kb != "" {
		parts = append(parts, "Knowledge snippets:\n"+in.kb)
	}
	parts = append(parts,
		"User question:\n"+in.question,
		"Error:\n"+in.lastError,
		"Query:\n"+in.brokenSQL,
		"Corrected SQL:")

	model := strings.TrimSpace(p.cfg.RouterModel)
	out, err := p.oracle.Chat(ctx, oracle.ChatRequest{
		Span:        "fix",
		System:      fixerSystemPrompt,
		User:        strings.Join(parts, "\n\n"),
		Model:       model,
		Temperature: p.cfg.TempFix,
		NumPredict:  p.cfg.SQLNumPredict,
	})
	if err != nil {
		return "", err
	}

	sql := oracle.ExtractSQL(out)
	validated, err := sqlguard.Validate(sql, p.cfg.AllowWriteSQL)
	if err != nil {
		return strings.TrimSpace(sql), err
	}
	return sqlguard.EnforceLimit(validated, in.question, p.cfg.MaxRowsDefault, p.cfg.MaxRowsHard), nil
}
