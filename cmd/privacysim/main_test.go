package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "privacysim version "+version+"\n", out)

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"`+version+`"}`, out)
}

func TestLocationsCmd(t *testing.T) {
	out, err := execute(t, "locations", "--json")
	require.NoError(t, err)

	var locs []struct {
		ID         int               `json:"id"`
		Name       string            `json:"name"`
		Attributes [4]float64        `json:"attributes"`
		Best       map[string]string `json:"best"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &locs))
	require.Len(t, locs, 9)
	assert.Equal(t, "BEACH", locs[0].Name)
	assert.Equal(t, [4]float64{2, 2, -1, -1}, locs[0].Attributes)
	assert.Equal(t, "SHARE_PUBLIC", locs[0].Best["CAUTIOUS"])
	assert.Equal(t, "SHARE_NO", locs[3].Best["CASUAL"])

	out, err = execute(t, "locations")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ID"))
	assert.Contains(t, out, "SPEED_TICKET")
}

func TestRunCmdJSON(t *testing.T) {
	out, err := execute(t, "run", "--agents", "10", "--steps", "5", "--seed", "3", "--json")
	require.NoError(t, err)

	var res struct {
		Seed   int64  `json:"seed"`
		Policy string `json:"policy"`
		Steps  uint64 `json:"steps"`
		Stats  struct {
			Agents  int    `json:"agents"`
			Actions [3]int `json:"actions"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, int64(3), res.Seed)
	assert.Equal(t, uint64(5), res.Steps)
	assert.Equal(t, 10, res.Stats.Agents)
	assert.Equal(t, 10, res.Stats.Actions[0]+res.Stats.Actions[1]+res.Stats.Actions[2])
}

func TestRunCmdIsReproducible(t *testing.T) {
	args := []string{"run", "--agents", "12", "--steps", "8", "--seed", "21", "--policy", "epsilon", "--explore", "3", "--json"}
	first, err := execute(t, args...)
	require.NoError(t, err)
	second, err := execute(t, args...)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunThenListRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	_, err := execute(t, "run", "--agents", "8", "--steps", "4", "--seed", "9", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "runs", "--db", db, "--json")
	require.NoError(t, err)

	var runs []struct {
		ID     string `json:"id"`
		Seed   int64  `json:"seed"`
		Steps  uint64 `json:"steps"`
		Agents int    `json:"agents"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].ID)
	assert.Equal(t, int64(9), runs[0].Seed)
	assert.Equal(t, uint64(4), runs[0].Steps)
	assert.Equal(t, 8, runs[0].Agents)
}

func TestRunsCmdNeedsDatabase(t *testing.T) {
	t.Setenv("PRIVSIM_DB_PATH", "")
	_, err := execute(t, "runs")
	assert.ErrorContains(t, err, "no database")
}

func TestRunCmdRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--policy", "altruist", "--steps", "1")
	require.Error(t, err)

	_, err = execute(t, "run", "--rewire", "1.5", "--steps", "1")
	assert.ErrorContains(t, err, "population.rewire")
}
