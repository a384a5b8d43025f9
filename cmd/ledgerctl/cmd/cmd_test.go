package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/api"
)

// execute runs ledgerctl with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	// flag variables outlive a single Execute
	repair, accountID, dbPath, subject, role = false, "", "", "", "user"
	periodType, periodDate, fiscalStart = "month", "", 1

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append(args, "--env="))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSeedThenReconcile(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := execute(t, "seed")
	require.NoError(t, err)
	for _, sc := range api.Scenarios {
		assert.Contains(t, out, sc.ID)
	}

	_, err = execute(t, "seed", "small-business", "--db", db)
	require.NoError(t, err)

	out, err = execute(t, "reconcile", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "0 inconsistent")
	assert.NotContains(t, out, "DRIFT")

	out, err = execute(t, "statement", "--db", db, "--period", "year")
	require.NoError(t, err)
	assert.Contains(t, out, "opening=")

	_, err = execute(t, "statement", "--db", db, "--period", "week")
	assert.Error(t, err)

	_, err = execute(t, "seed", "bogus", "--db", db)
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret-0123")

	out, err := execute(t, "token", "--sub", "alice", "--role", "admin", "--ttl", "1h")
	require.NoError(t, err)

	actor, err := api.NewAuthenticator("cli-test-secret-0123").Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", actor.ID)
	assert.True(t, actor.IsAdmin)
}

func TestToken_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := execute(t, "token", "--sub", "alice")
	assert.Error(t, err)
}
