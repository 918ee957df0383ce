package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("accepts select and with", func(t *testing.T) {
		for _, sql := range []string{
			"SELECT * FROM signals",
			"  select 1 ",
			"WITH x AS (SELECT 1) SELECT * FROM x",
			"with x as (select 1) select * from x",
		} {
			out, err := Validate(sql, false)
			require.NoError(t, err, sql)
			assert.NotEmpty(t, out)
		}
	})

	t.Run("rejects non-select statements", func(t *testing.T) {
		_, err := Validate("UPDATE t SET a=1", false)
		assert.ErrorIs(t, err, ErrNotSelect)

		_, err = Validate("", false)
		assert.ErrorIs(t, err, ErrNotSelect)
	})

	t.Run("rejects semicolons", func(t *testing.T) {
		_, err := Validate("SELECT 1;", false)
		assert.ErrorIs(t, err, ErrMultiStatement)
	})

	t.Run("rejects banned keywords", func(t *testing.T) {
		_, err := Validate("SELECT * FROM t WHERE x IN (DELETE FROM t)", false)
		assert.ErrorIs(t, err, ErrBannedKeyword)

		// substring inside an identifier is fine, only whole words ban
		_, err = Validate("SELECT created_at FROM updates_log", false)
		assert.NoError(t, err)
	})

	t.Run("multi-statement injection is doubly disqualified", func(t *testing.T) {
		// the semicolon check fires first, the banned keyword would too
		_, err := Validate("SELECT 1; DROP TABLE x", false)
		assert.ErrorIs(t, err, ErrMultiStatement)

		_, err = Validate("SELECT 1 DROP TABLE x", false)
		assert.ErrorIs(t, err, ErrBannedKeyword)
	})

	t.Run("write-allow flag disables only the keyword check", func(t *testing.T) {
		_, err := Validate("SELECT * FROM t WHERE x = 'insert'", true)
		assert.NoError(t, err)

		_, err = Validate("DELETE FROM t", true)
		assert.ErrorIs(t, err, ErrNotSelect)

		_, err = Validate("SELECT 1; SELECT 2", true)
		assert.ErrorIs(t, err, ErrMultiStatement)
	})
}

func TestEnforceLimit(t *testing.T) {
	const (
		def  = 50
		hard = 500
	)

	t.Run("appends the default limit", func(t *testing.T) {
		out := EnforceLimit("SELECT * FROM signals", "how many signals", def, hard)
		assert.Equal(t, "SELECT * FROM signals LIMIT 50", out)
	})

	t.Run("clamps an oversized limit to the hard cap", func(t *testing.T) {
		out := EnforceLimit("SELECT * FROM signals LIMIT 9000", "signals", def, hard)
		assert.Equal(t, "SELECT * FROM signals LIMIT 500", out)
	})

	t.Run("leaves a limit at or below the cap unchanged", func(t *testing.T) {
		assert.Equal(t, "SELECT * FROM t LIMIT 500",
			EnforceLimit("SELECT * FROM t LIMIT 500", "q", def, hard))
		assert.Equal(t, "SELECT * FROM t limit 7",
			EnforceLimit("SELECT * FROM t limit 7", "q", def, hard))
	})

	t.Run("unbounded markers disable enforcement", func(t *testing.T) {
		for _, q := range []string{
			"show me all rows of signals",
			"dump EVERYTHING",
			"the complete signal list",
		} {
			sql := "SELECT * FROM signals"
			assert.Equal(t, sql, EnforceLimit(sql, q, def, hard), q)
		}
	})
}
