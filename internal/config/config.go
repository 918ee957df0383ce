// Package config holds every tunable of the router in one Settings struct.
// Values resolve in three layers: baked defaults, an optional JSON settings
// file, then environment variable overrides. The heuristic constants
// (routing weights, confidence thresholds, relevance weights) live here on
// purpose so they never appear as magic numbers at call sites.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings is the full configuration of the service.
type Settings struct {
	// Oracle (Ollama-compatible chat endpoint)
	OracleBaseURL   string `json:"oracle_base_url"`
	OracleModel     string `json:"oracle_model"`
	RouterModel     string `json:"router_model"`  // optional separate model for routing/clarify/fix
	ClarifyModel    string `json:"clarify_model"` // optional; falls back to RouterModel, then OracleModel
	OracleKeepAlive string `json:"oracle_keep_alive"`
	OracleTimeoutS  int    `json:"oracle_timeout_s"`

	// Store corpus
	StoresRoot       string   `json:"stores_root"`
	CacheTTLSeconds  int      `json:"cache_ttl_seconds"`
	StoreExtensions  []string `json:"store_extensions"`
	TemplateSuffixes []string `json:"template_suffixes"`
	TablePreviewMax  int      `json:"table_preview_max"`

	// Output limits
	MaxRowsDefault int `json:"max_rows_default"`
	MaxRowsHard    int `json:"max_rows_hard"`

	// Routing
	RouterTopK        int     `json:"router_top_k"`
	HeuristicMinScore int     `json:"heuristic_min_score"`
	HeuristicRatio    float64 `json:"heuristic_ratio"`
	HeuristicMargin   int     `json:"heuristic_margin"`
	AllowOracleRouter bool    `json:"allow_oracle_router"`

	// Routing index weight tiers
	RouteWeightName   int `json:"route_weight_name"`
	RouteWeightTable  int `json:"route_weight_table"`
	RouteWeightColumn int `json:"route_weight_column"`
	RouteSampleTables int `json:"route_sample_tables"`
	RouteSampleCols   int `json:"route_sample_cols"`

	// Question handling
	QuestionMaxChars      int  `json:"question_max_chars"`
	QuestionKeepLastLines int  `json:"question_keep_last_lines"`
	StripOutputNoise      bool `json:"strip_output_noise"`

	// Schema strategy
	FullSchemaIfFits    bool `json:"full_schema_if_fits"`
	FullSchemaMaxChars  int  `json:"full_schema_max_chars"`
	SchemaTopTablesBase int  `json:"schema_top_tables_base"`
	SchemaTopTablesMax  int  `json:"schema_top_tables_max"`
	SchemaMaxColsTable  int  `json:"schema_max_cols_per_table"`
	SchemaAddRelated    bool `json:"schema_add_related_tables"`
	SchemaMaxRelated    int  `json:"schema_max_related_tables"`

	// Table relevance weight tiers
	RelevanceWeightTable    float64 `json:"relevance_weight_table"`
	RelevanceWeightColumns  float64 `json:"relevance_weight_columns"`
	RelevanceWeightMeanings float64 `json:"relevance_weight_meanings"`

	// Sidecar augmentation
	EnableColumnMeanings bool `json:"enable_column_meanings"`
	ColumnMeaningsChars  int  `json:"column_meanings_max_chars"`
	EnableKB             bool `json:"enable_kb"`
	KBTopK               int  `json:"kb_top_k"`
	KBMaxChars           int  `json:"kb_max_chars"`

	// Generation / selection / correction
	NumCandidates int     `json:"num_candidates"`
	SQLNumPredict int     `json:"sql_num_predict"`
	TempSQL       float64 `json:"temp_sql"`
	TempFix       float64 `json:"temp_fix"`
	MaxFixIters   int     `json:"max_fix_iters"`
	ExpandOnFix   bool    `json:"expand_schema_on_fix"`

	// Clarification
	EnableClarify     bool `json:"enable_clarify"`
	ClarifyNumPredict int  `json:"clarify_num_predict"`

	// Safety
	AllowWriteSQL bool `json:"allow_write_sql"`

	// HTTP server
	ListenAddr string `json:"listen_addr"`
}

// Default returns the baked-in settings. The numbers mirror the values the
// heuristics were tuned with; change them here, not inline.
func Default() Settings {
	return Settings{
		OracleBaseURL:   "http://localhost:11434",
		OracleModel:     "llama3.1:latest",
		OracleKeepAlive: "",
		OracleTimeoutS:  180,

		StoresRoot:       "/data",
		CacheTTLSeconds:  3600,
		StoreExtensions:  []string{".sqlite", ".db", ".sqlite3"},
		TemplateSuffixes: []string{"_template.sqlite", "_template.db", "_template.sqlite3"},
		TablePreviewMax:  20,

		MaxRowsDefault: 50,
		MaxRowsHard:    500,

		RouterTopK:        10,
		HeuristicMinScore: 2,
		HeuristicRatio:    1.4,
		HeuristicMargin:   2,
		AllowOracleRouter: true,

		RouteWeightName:   4,
		RouteWeightTable:  3,
		RouteWeightColumn: 1,
		RouteSampleTables: 10,
		RouteSampleCols:   16,

		QuestionMaxChars:      1600,
		QuestionKeepLastLines: 16,
		StripOutputNoise:      true,

		FullSchemaIfFits:    true,
		FullSchemaMaxChars:  14000,
		SchemaTopTablesBase: 10,
		SchemaTopTablesMax:  30,
		SchemaMaxColsTable:  80,
		SchemaAddRelated:    true,
		SchemaMaxRelated:    10,

		RelevanceWeightTable:    5.0,
		RelevanceWeightColumns:  1.0,
		RelevanceWeightMeanings: 0.6,

		EnableColumnMeanings: true,
		ColumnMeaningsChars:  3500,
		EnableKB:             true,
		KBTopK:               6,
		KBMaxChars:           2500,

		NumCandidates: 3,
		SQLNumPredict: 256,
		TempSQL:       0.2,
		TempFix:       0.1,
		MaxFixIters:   2,
		ExpandOnFix:   true,

		EnableClarify:     true,
		ClarifyNumPredict: 128,

		AllowWriteSQL: false,

		ListenAddr: ":8080",
	}
}

// Load reads settings from a JSON file layered over the defaults.
// A missing file is not an error; a malformed one is.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		s.ApplyEnv()
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.ApplyEnv()
			return s, nil
		}
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings: %w", err)
	}
	s.ApplyEnv()
	return s, nil
}

// CacheTTL returns the sidecar/schema cache lifetime as a duration.
func (s Settings) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// OracleTimeout returns the per-call oracle timeout as a duration.
func (s Settings) OracleTimeout() time.Duration {
	return time.Duration(s.OracleTimeoutS) * time.Second
}

// ApplyEnv overrides the most deployment-relevant settings from the
// environment. Parse failures leave the current value untouched.
func (s *Settings) ApplyEnv() {
	envString(&s.OracleBaseURL, "ASKDB_ORACLE_BASE_URL")
	envString(&s.OracleModel, "ASKDB_ORACLE_MODEL")
	envString(&s.RouterModel, "ASKDB_ROUTER_MODEL")
	envString(&s.ClarifyModel, "ASKDB_CLARIFY_MODEL")
	envString(&s.OracleKeepAlive, "ASKDB_ORACLE_KEEP_ALIVE")
	envInt(&s.OracleTimeoutS, "ASKDB_ORACLE_TIMEOUT_S")
	envString(&s.StoresRoot, "ASKDB_STORES_ROOT")
	envInt(&s.CacheTTLSeconds, "ASKDB_CACHE_TTL_SECONDS")
	envInt(&s.MaxRowsDefault, "ASKDB_MAX_ROWS_DEFAULT")
	envInt(&s.MaxRowsHard, "ASKDB_MAX_ROWS_HARD")
	envBool(&s.AllowOracleRouter, "ASKDB_ALLOW_ORACLE_ROUTER")
	envBool(&s.EnableClarify, "ASKDB_ENABLE_CLARIFY")
	envBool(&s.AllowWriteSQL, "ASKDB_ALLOW_WRITE_SQL")
	envInt(&s.NumCandidates, "ASKDB_NUM_CANDIDATES")
	envInt(&s.MaxFixIters, "ASKDB_MAX_FIX_ITERS")
	envString(&s.ListenAddr, "ASKDB_LISTEN_ADDR")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off", "":
			*dst = false
		}
	}
}
