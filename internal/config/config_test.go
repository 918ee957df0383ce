package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, 50, s.MaxRowsDefault)
	assert.Equal(t, 500, s.MaxRowsHard)
	assert.Equal(t, 3, s.NumCandidates)
	assert.Equal(t, 2, s.MaxFixIters)
	assert.True(t, s.AllowOracleRouter)
	assert.False(t, s.AllowWriteSQL)
	assert.Equal(t, time.Hour, s.CacheTTL())
	assert.Equal(t, 180*time.Second, s.OracleTimeout())
}

func TestLoad(t *testing.T) {
	t.Run("missing file keeps defaults", func(t *testing.T) {
		s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.NoError(t, err)
		assert.Equal(t, Default().MaxRowsDefault, s.MaxRowsDefault)
	})

	t.Run("file layers over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"max_rows_default":10,"oracle_model":"qwen2.5:7b"}`), 0o644))

		s, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 10, s.MaxRowsDefault)
		assert.Equal(t, "qwen2.5:7b", s.OracleModel)
		assert.Equal(t, 500, s.MaxRowsHard, "untouched keys keep their defaults")
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.json")
		require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ASKDB_ORACLE_MODEL", "llama3.2:3b")
	t.Setenv("ASKDB_MAX_ROWS_DEFAULT", "25")
	t.Setenv("ASKDB_ALLOW_ORACLE_ROUTER", "off")
	t.Setenv("ASKDB_MAX_FIX_ITERS", "not a number")

	s := Default()
	s.ApplyEnv()

	assert.Equal(t, "llama3.2:3b", s.OracleModel)
	assert.Equal(t, 25, s.MaxRowsDefault)
	assert.False(t, s.AllowOracleRouter)
	assert.Equal(t, 2, s.MaxFixIters, "unparseable values are ignored")
}
