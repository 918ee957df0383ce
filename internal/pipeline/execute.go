package pipeline

import (
	"context"

	"go.uber.org/zap"

	"askdb/internal/sqlguard"
	"askdb/internal/store"
)

// selectByExecution tries the candidates in generation order and stops at
// the first one the engine executes without error; later candidates are
// never tried. Candidates failing re-validation are executed as-is, so a
// raw repair seed still produces a useful engine error. Returns ("", nil,
// lastError) when none succeed.
func (p *Pipeline) selectByExecution(log *zap.Logger, desc store.Descriptor, candidates []string, question string) (string, *store.ResultSet, string) {
	lastErr := ""
	for i, cand := range candidates {
		sql := cand
		if validated, err := sqlguard.Validate(cand, p.cfg.AllowWriteSQL); err == nil {
			sql = sqlguard.EnforceLimit(validated, question, p.cfg.MaxRowsDefault, p.cfg.MaxRowsHard)
		}

		rows, err := store.Execute(desc.Path, sql, p.cfg.MaxRowsHard)
		if err == nil {
			log.Debug("candidate selected", zap.Int("candidate", i+1), zap.Int("rows", len(rows.Rows)))
			return sql, rows, ""
		}
		lastErr = err.Error()
		log.Debug("candidate failed", zap.Int("candidate", i+1), zap.String("error", lastErr))
	}
	return "", nil, lastErr
}

// correctionInput carries the evolving context of the repair loop.
type correctionInput struct {
	question    string
	brokenSQL   string
	lastError   string
	schemaText  string
	colMeanings string
	kb          string
	topTables   int
}

// correctionLoop repairs a failing candidate for up to MaxFixIters
// iterations. Each iteration may first broaden the schema context (more
// tables, capped), then asks the fixer for a corrected query and executes
// it. Exhausting the iterations is terminal for the request.
func (p *Pipeline) correctionLoop(ctx context.Context, log *zap.Logger, desc store.Descriptor, in correctionInput) (string, *store.ResultSet, string) {
	if in.lastError == "" {
		in.lastError = "unknown SQL error"
	}

	for iter := 1; iter <= p.cfg.MaxFixIters; iter++ {
		if p.cfg.ExpandOnFix {
			step := p.cfg.SchemaTopTablesBase / 2
			if step < 3 {
				step = 3
			}
			in.topTables += step
			if in.topTables > p.cfg.SchemaTopTablesMax {
				in.topTables = p.cfg.SchemaTopTablesMax
			}
			packet, err := p.assembler.RenderForQuestion(desc.ID, in.question, in.topTables)
			if err == nil {
				in.schemaText = packet.Schema
				in.colMeanings = p.sidecars.RenderMeanings(desc.ID, packet.Tables, packet.ColsByTable)
			}
		}

		fixed, err := p.fixSQL(ctx, in)
		if err != nil {
			log.Warn("fix iteration failed", zap.Int("iter", iter), zap.Error(err))
			// a correction rejected by validation still becomes the next
			// broken query
			if fixed != "" {
				in.brokenSQL = fixed
				in.lastError = err.Error()
			}
			continue
		}

		rows, execErr := store.Execute(desc.Path, fixed, p.cfg.MaxRowsHard)
		if execErr == nil {
			log.Debug("correction succeeded", zap.Int("iter", iter))
			return fixed, rows, ""
		}

		in.brokenSQL = fixed
		in.lastError = execErr.Error()
		log.Debug("correction failed", zap.Int("iter", iter), zap.String("error", in.lastError))
	}

	return "", nil, in.lastError
}
