package route

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"askdb/internal/config"
	"askdb/internal/lexical"
	"askdb/internal/oracle"
	"askdb/internal/store"
)

// ErrUnresolved means no store could be chosen, confidently or otherwise.
var ErrUnresolved = errors.New("no matching store found")

var overrideRegex = regexp.MustCompile(`\bDB\s*=\s*([a-zA-Z0-9_./-]+)`)

// Chooser resolves a question to one store id.
type Chooser struct {
	cfg      config.Settings
	registry *store.Registry
	index    *Index
	oracle   *oracle.Client
	logger   *zap.Logger
}

// NewChooser wires a chooser. oracleClient may be nil when oracle-assisted
// routing is disabled.
func NewChooser(cfg config.Settings, reg *store.Registry, idx *Index, oracleClient *oracle.Client, logger *zap.Logger) *Chooser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chooser{cfg: cfg, registry: reg, index: idx, oracle: oracleClient, logger: logger}
}

// Choose resolves the question to a store id. Resolution order: explicit
// DB=<id> override, confident index score, low-confidence best pick (when
// oracle routing is off), oracle top-K fallback. The index path is fully
// deterministic for a fixed registry and question.
func (c *Chooser) Choose(ctx context.Context, question string) (string, error) {
	q := strings.TrimSpace(question)

	if m := overrideRegex.FindStringSubmatch(q); m != nil {
		forced := lexical.Slug(m[1])
		if _, ok := c.registry.Get(forced); ok {
			c.logger.Debug("route choice", zap.String("method", "override"), zap.String("db_id", forced))
			return forced, nil
		}
	}

	scores := c.index.Score(q)
	if len(scores) == 0 {
		return "", ErrUnresolved
	}

	ranked := Rank(scores)
	best := ranked[0]
	second := 0
	if len(ranked) > 1 {
		second = ranked[1].Score
	}

	if c.confident(best.Score, second) {
		c.logger.Debug("route choice",
			zap.String("method", "index"),
			zap.String("db_id", best.ID),
			zap.Int("score", best.Score),
			zap.Int("second", second))
		return best.ID, nil
	}

	if !c.cfg.AllowOracleRouter || c.oracle == nil {
		// latency over precision: take the best guess anyway
		c.logger.Debug("route choice",
			zap.String("method", "index_low_confidence"),
			zap.String("db_id", best.ID),
			zap.Int("score", best.Score))
		return best.ID, nil
	}

	topK := c.cfg.RouterTopK
	if topK < 3 {
		topK = 3
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return c.oracleFallback(ctx, q, ranked)
}

// confident applies the routing confidence predicate: the best score clears
// the minimum and either stands alone, wins by the absolute margin, or wins
// by the relative ratio.
func (c *Chooser) confident(best, second int) bool {
	if best < c.cfg.HeuristicMinScore {
		return false
	}
	if second <= 0 {
		return true
	}
	if best >= second+c.cfg.HeuristicMargin {
		return true
	}
	return float64(best) >= c.cfg.HeuristicRatio*float64(second)
}

const routerSystemPrompt = `You are a router. Pick the SQLite store that best answers the user question.
Reply with JSON only, in this exact form:
{"db_id":"...","confidence":0.0}
Rules:
- db_id MUST be one of the candidate ids, verbatim.
- If unsure, give your best guess with a low confidence.`

// oracleFallback presents the ranked candidates to the oracle and accepts
// its pick only when it names one of them.
func (c *Chooser) oracleFallback(ctx context.Context, question string, candidates []Scored) (string, error) {
	var b strings.Builder
	allowed := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		allowed[cand.ID] = true
		desc, _ := c.registry.Get(cand.ID)
		preview := desc.TablesPreview
		if len(preview) > 12 {
			preview = preview[:12]
		}
		fmt.Fprintf(&b, "- %s: %s | tables: %s\n", cand.ID, desc.Name, strings.Join(preview, ", "))
	}

	model := strings.TrimSpace(c.cfg.RouterModel)
	out, err := c.oracle.Chat(ctx, oracle.ChatRequest{
		Span:        "route",
		System:      routerSystemPrompt,
		User:        fmt.Sprintf("Candidates:\n%s\nQuestion:\n%s\n\nJSON:", b.String(), question),
		Model:       model,
		Temperature: 0,
		NumPredict:  128,
		Stop:        []string{"```", "\n\n"},
	})
	if err != nil {
		return "", fmt.Errorf("router fallback failed: %w", err)
	}

	decision, ok := oracle.ParseRouterDecision(out)
	if !ok || !allowed[decision.DBID] {
		c.logger.Debug("route failed", zap.String("oracle_out", truncate(out, 200)))
		return "", ErrUnresolved
	}

	c.logger.Debug("route choice",
		zap.String("method", "oracle_topk"),
		zap.String("db_id", decision.DBID),
		zap.Float64("confidence", decision.Confidence))
	return decision.DBID, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
