// Package pipeline orchestrates one question end to end: store choice,
// schema assembly, optional clarification, retrieval augmentation, candidate
// generation, execution-based selection, and the bounded correction loop.
// Each request runs synchronously on one logical worker; the only shared
// state is the read-mostly TTL caches underneath.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"askdb/internal/config"
	"askdb/internal/oracle"
	"askdb/internal/route"
	"askdb/internal/schema"
	"askdb/internal/sidecar"
	"askdb/internal/sqlguard"
	"askdb/internal/store"
)

// Kind tags the three possible outcomes of a request.
type Kind string

const (
	// KindAnswer is a formatted success blob.
	KindAnswer Kind = "answer"
	// KindClarification asks the user a follow-up question instead of SQL.
	KindClarification Kind = "clarification"
	// KindGuidance is a plain-text guidance or error message.
	KindGuidance Kind = "guidance"
)

// PendingClarification is the explicit multi-turn state: when the previous
// reply was a clarification request, the host hands back the question that
// triggered it. Precondition: the host supplies it exactly in that case and
// with the verbatim original question.
type PendingClarification struct {
	OriginalQuestion string `json:"original_question"`
}

// Request is one question from the host (HTTP handler or CLI).
type Request struct {
	Question string                `json:"question"`
	Pending  *PendingClarification `json:"pending_clarification,omitempty"`
}

// Response is the pipeline's reply. For KindClarification, Text carries the
// follow-up question to show the user.
type Response struct {
	Kind    Kind   `json:"kind"`
	Text    string `json:"text"`
	StoreID string `json:"store_id,omitempty"`
	SQL     string `json:"sql,omitempty"`
}

// Pipeline owns the per-process components and caches.
type Pipeline struct {
	cfg       config.Settings
	registry  *store.Registry
	chooser   *route.Chooser
	assembler *schema.Assembler
	sidecars  *sidecar.Library
	oracle    *oracle.Client
	logger    *zap.Logger
}

// New scans nothing itself: the caller provides the registry built at
// startup. The routing index is built here, once.
func New(cfg config.Settings, reg *store.Registry, oracleClient *oracle.Client, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	idx := route.BuildIndex(reg.All(), cfg, func(d store.Descriptor) []string {
		return route.SampleColumns(d, cfg.RouteSampleTables, cfg.RouteSampleCols)
	})
	logger.Info("routing index built",
		zap.Int("stores", reg.Len()),
		zap.Int("tokens", idx.Tokens()),
		zap.Duration("elapsed", time.Since(start)))

	sidecars := sidecar.NewLibrary(cfg, reg)
	return &Pipeline{
		cfg:       cfg,
		registry:  reg,
		chooser:   route.NewChooser(cfg, reg, idx, oracleClient, logger),
		assembler: schema.New(cfg, reg, sidecars),
		sidecars:  sidecars,
		oracle:    oracleClient,
		logger:    logger,
	}
}

// Registry exposes the store registry for listings.
func (p *Pipeline) Registry() *store.Registry {
	return p.registry
}

// Answer processes one request. It never returns an error and never
// panics outward: every failure becomes a guidance response.
func (p *Pipeline) Answer(ctx context.Context, req Request) (resp Response) {
	rid := uuid.New().String()[:8]
	log := p.logger.With(zap.String("rid", rid))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			resp = Response{Kind: KindGuidance, Text: fmt.Sprintf("Error: %v", r)}
		}
		log.Info("request finished",
			zap.String("kind", string(resp.Kind)),
			zap.String("store", resp.StoreID),
			zap.Duration("elapsed", time.Since(start)))
	}()

	out, err := p.answer(ctx, log, req)
	if err != nil {
		return Response{Kind: KindGuidance, Text: "Error: " + err.Error()}
	}
	return out
}

func (p *Pipeline) answer(ctx context.Context, log *zap.Logger, req Request) (Response, error) {
	question := p.effectiveQuestion(req)
	question = p.sanitizeQuestion(question)

	if isListCommand(question) {
		return Response{Kind: KindAnswer, Text: p.listStores()}, nil
	}

	if sqlText, ok := directSQL(question); ok {
		return p.answerDirectSQL(ctx, log, question, sqlText)
	}

	storeID, err := p.chooser.Choose(ctx, question)
	if err != nil {
		// a dead oracle is terminal, not a routing miss
		if errors.Is(err, oracle.ErrUnavailable) {
			return Response{}, err
		}
		return Response{
			Kind: KindGuidance,
			Text: "I could not confidently pick a store for that question. Hint: force one with `DB=<id> ...` or list them with `dbs`.",
		}, nil
	}

	topTables := p.cfg.SchemaTopTablesBase
	if topTables < 3 {
		topTables = 3
	}
	packet, err := p.assembler.RenderForQuestion(storeID, question, topTables)
	if err != nil {
		return Response{}, err
	}

	if followUp := p.maybeClarify(ctx, storeID, question, packet.Schema); followUp != "" {
		return Response{Kind: KindClarification, Text: followUp, StoreID: storeID}, nil
	}

	kb := p.sidecars.RetrieveKB(storeID, question)
	colMeanings := p.sidecars.RenderMeanings(storeID, packet.Tables, packet.ColsByTable)

	candidates := p.generateCandidates(ctx, log, packet.Schema, colMeanings, kb, question)
	if len(candidates) == 0 {
		return Response{Kind: KindGuidance, Text: "Could not generate any SQL candidates."}, nil
	}

	desc, _ := p.registry.Get(storeID)

	sql, rows, lastErr := p.selectByExecution(log, desc, candidates, question)
	if sql == "" {
		sql, rows, lastErr = p.correctionLoop(ctx, log, desc, correctionInput{
			question:    question,
			brokenSQL:   candidates[0],
			lastError:   lastErr,
			schemaText:  packet.Schema,
			colMeanings: colMeanings,
			kb:          kb,
			topTables:   topTables,
		})
	}

	if sql == "" {
		return Response{
			Kind:    KindGuidance,
			StoreID: storeID,
			Text: fmt.Sprintf(
				"**DB:** `%s`  _(%s)_\n**No executable SQL found. Last error:** %s\n\n**Last candidate:**\n```sql\n%s\n```",
				storeID, desc.Rel, lastErr, candidates[len(candidates)-1]),
		}, nil
	}

	return Response{
		Kind:    KindAnswer,
		StoreID: storeID,
		SQL:     sql,
		Text:    p.formatAnswer(desc, sql, rows),
	}, nil
}

// answerDirectSQL handles `sql:` mode: the remainder is taken verbatim,
// still validated and limit-enforced, then executed without generation.
func (p *Pipeline) answerDirectSQL(ctx context.Context, log *zap.Logger, question, sqlText string) (Response, error) {
	storeID, err := p.chooser.Choose(ctx, question)
	if err != nil {
		if errors.Is(err, oracle.ErrUnavailable) {
			return Response{}, err
		}
		return Response{
			Kind: KindGuidance,
			Text: "I see SQL but no store to run it on. Use e.g. `DB=credit SQL: SELECT ...`",
		}, nil
	}

	validated, err := sqlguard.Validate(sqlText, p.cfg.AllowWriteSQL)
	if err != nil {
		return Response{Kind: KindGuidance, StoreID: storeID, Text: "Rejected SQL: " + err.Error()}, nil
	}
	validated = sqlguard.EnforceLimit(validated, question, p.cfg.MaxRowsDefault, p.cfg.MaxRowsHard)

	desc, _ := p.registry.Get(storeID)
	rows, execErr := store.Execute(desc.Path, validated, p.cfg.MaxRowsHard)
	if execErr != nil {
		return Response{
			Kind:    KindGuidance,
			StoreID: storeID,
			Text:    fmt.Sprintf("**DB:** `%s`\n\n**SQL error:** %s\n\n```sql\n%s\n```", storeID, execErr, validated),
		}, nil
	}

	log.Debug("direct sql executed", zap.String("store", storeID), zap.Int("rows", len(rows.Rows)))
	return Response{
		Kind:    KindAnswer,
		StoreID: storeID,
		SQL:     validated,
		Text:    p.formatAnswer(desc, validated, rows),
	}, nil
}
