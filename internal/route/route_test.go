package route

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdb/internal/config"
	"askdb/internal/oracle"
	"askdb/internal/store"
)

func testStores() []store.Descriptor {
	return []store.Descriptor{
		{ID: "alien", Name: "alien", TablesPreview: []string{"signals", "observers"}},
		{ID: "credit", Name: "credit", TablesPreview: []string{"accounts", "transactions"}},
		{ID: "movies", Name: "movies", TablesPreview: []string{"films", "ratings"}},
	}
}

func testIndex(cfg config.Settings) *Index {
	cols := map[string][]string{
		"alien":  {"freq", "signal_strength"},
		"credit": {"balance", "account_id"},
		"movies": {"title", "rating"},
	}
	return BuildIndex(testStores(), cfg, func(d store.Descriptor) []string {
		return cols[d.ID]
	})
}

func TestBuildIndexWeights(t *testing.T) {
	cfg := config.Default()
	idx := testIndex(cfg)

	sig := idx.Signature("alien")
	require.NotNil(t, sig)

	// name tokens carry the strongest weight
	assert.Equal(t, cfg.RouteWeightName, sig["alien"])
	assert.Equal(t, cfg.RouteWeightTable, sig["signals"])
	assert.Equal(t, cfg.RouteWeightColumn, sig["freq"])
	assert.Positive(t, idx.Tokens())

	t.Run("overlapping signals take the max, not the sum", func(t *testing.T) {
		d := store.Descriptor{ID: "signals", Name: "signals", TablesPreview: []string{"signals"}}
		one := BuildIndex([]store.Descriptor{d}, cfg, func(store.Descriptor) []string {
			return []string{"signals"}
		})
		assert.Equal(t, cfg.RouteWeightName, one.Signature("signals")["signals"])
	})
}

func TestScoreAndRank(t *testing.T) {
	cfg := config.Default()
	idx := testIndex(cfg)

	t.Run("scores add up across question tokens", func(t *testing.T) {
		scores := idx.Score("alien signals")
		assert.Equal(t, cfg.RouteWeightName+cfg.RouteWeightTable, scores["alien"])
		assert.Zero(t, scores["credit"])
	})

	t.Run("rank is descending with lexicographic tie-break", func(t *testing.T) {
		ranked := Rank(map[string]int{"movies": 3, "alien": 7, "credit": 3})
		require.Len(t, ranked, 3)
		assert.Equal(t, "alien", ranked[0].ID)
		assert.Equal(t, "credit", ranked[1].ID)
		assert.Equal(t, "movies", ranked[2].ID)
	})
}

func TestChooserOverride(t *testing.T) {
	cfg := config.Default()
	reg := store.NewRegistry(testStores())
	c := NewChooser(cfg, reg, testIndex(cfg), nil, nil)

	id, err := c.Choose(context.Background(), "DB=credit what movies scored well?")
	require.NoError(t, err)
	assert.Equal(t, "credit", id)

	t.Run("unknown override falls through to the index", func(t *testing.T) {
		id, err := c.Choose(context.Background(), "DB=nope alien signals")
		require.NoError(t, err)
		assert.Equal(t, "alien", id)
	})
}

func TestChooserConfidentPath(t *testing.T) {
	cfg := config.Default()
	reg := store.NewRegistry(testStores())
	// nil oracle: any fallback attempt would nil-deref, proving the index
	// path never reaches the oracle on a confident score
	c := NewChooser(cfg, reg, testIndex(cfg), nil, nil)

	id, err := c.Choose(context.Background(), "show the strongest alien signals")
	require.NoError(t, err)
	assert.Equal(t, "alien", id)

	t.Run("no token overlap at all is unresolved", func(t *testing.T) {
		_, err := c.Choose(context.Background(), "quarterly weather forecast")
		assert.ErrorIs(t, err, ErrUnresolved)
	})
}

func TestChooserLowConfidenceWithoutOracle(t *testing.T) {
	cfg := config.Default()
	cfg.AllowOracleRouter = false
	cfg.HeuristicMinScore = 100 // no score can clear the gate
	reg := store.NewRegistry(testStores())
	c := NewChooser(cfg, reg, testIndex(cfg), nil, nil)

	id, err := c.Choose(context.Background(), "alien signals")
	require.NoError(t, err)
	assert.Equal(t, "alien", id, "with oracle routing off the best guess is taken")
}

// fakeRouter serves /api/chat and always answers with the given body.
func fakeRouter(t *testing.T, reply string) (*oracle.Client, *int) {
	t.Helper()
	calls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		require.Equal(t, "/api/chat", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"content": reply},
		})
	}))
	t.Cleanup(srv.Close)
	return oracle.NewClient(oracle.Config{BaseURL: srv.URL, Model: "test"}, nil), calls
}

func TestChooserOracleFallback(t *testing.T) {
	reg := store.NewRegistry(testStores())

	// force the gate to fail so every choice goes through the oracle
	cfg := config.Default()
	cfg.HeuristicMinScore = 100

	// "signals and accounts" hits alien and credit with equal table weight,
	// so both are candidates
	const ambiguous = "signals and accounts"

	t.Run("accepts a candidate id", func(t *testing.T) {
		client, calls := fakeRouter(t, `{"db_id":"credit","confidence":0.9}`)
		c := NewChooser(cfg, reg, testIndex(cfg), client, nil)

		id, err := c.Choose(context.Background(), ambiguous)
		require.NoError(t, err)
		assert.Equal(t, "credit", id)
		assert.Equal(t, 1, *calls)
	})

	t.Run("rejects an id outside the candidate set", func(t *testing.T) {
		client, _ := fakeRouter(t, `{"db_id":"payroll","confidence":0.9}`)
		c := NewChooser(cfg, reg, testIndex(cfg), client, nil)

		_, err := c.Choose(context.Background(), ambiguous)
		assert.ErrorIs(t, err, ErrUnresolved)
	})

	t.Run("rejects unparseable output", func(t *testing.T) {
		client, _ := fakeRouter(t, "definitely the alien one")
		c := NewChooser(cfg, reg, testIndex(cfg), client, nil)

		_, err := c.Choose(context.Background(), ambiguous)
		assert.ErrorIs(t, err, ErrUnresolved)
	})
}
