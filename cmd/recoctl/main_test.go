package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-reco-engine/internal/domain"
)

const fixture = "../../internal/repository/testdata/clinic.json"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DRUG_RECO_DATASTORE_FEEDBACK_PATH", filepath.Join(t.TempDir(), "feedback.db"))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	out, err := execute(t, "--fixture", fixture, "stats", "--diagnosis", "URTI")
	require.NoError(t, err)

	var stats []domain.DiagnosisDrugStat
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.NotEmpty(t, stats)
	for _, s := range stats {
		assert.Equal(t, "URTI", s.Diagnosis)
	}
}

func TestDosesCommand_FilterByDrug(t *testing.T) {
	out, err := execute(t, "--fixture", fixture, "doses", "--drug", "Amoxicillin")
	require.NoError(t, err)

	var doses []domain.DoseStat
	require.NoError(t, json.Unmarshal([]byte(out), &doses))
	require.Len(t, doses, 1)
	assert.Equal(t, "mg", doses[0].DoseUnit)
	assert.Equal(t, 250.0, doses[0].AvgDose)
}

func TestHistoryCommand(t *testing.T) {
	out, err := execute(t, "--fixture", fixture, "history", "P001")
	require.NoError(t, err)

	var history domain.PatientHistory
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	assert.Equal(t, "P001", history.PatientID)
	assert.NotEmpty(t, history.Worked)

	_, err = execute(t, "--fixture", fixture, "history", "P404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecommendCommand(t *testing.T) {
	out, err := execute(t, "--fixture", fixture, "recommend",
		"--patient", "P001", "--diagnosis", "URTI", "--age", "24", "--weight", "12", "--k", "1")
	require.NoError(t, err)

	var rec domain.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, 1, rec.K)
	assert.Len(t, rec.Final, 1)

	_, err = execute(t, "--fixture", fixture, "recommend", "--diagnosis", "URTI")
	assert.Error(t, err, "patient flag is required")
}

func TestQualityCommand(t *testing.T) {
	out, err := execute(t, "--fixture", fixture, "quality")
	require.NoError(t, err)
	assert.Contains(t, out, "missing")
}

func TestImportCommand_SQLite(t *testing.T) {
	t.Setenv("DRUG_RECO_DATASTORE_DRIVER", "sqlite")
	t.Setenv("DRUG_RECO_DATASTORE_SQLITE_PATH", filepath.Join(t.TempDir(), "clinic.db"))

	out, err := execute(t, "import", fixture)
	require.NoError(t, err)
	assert.Equal(t, "imported 2 patients, 3 visits, 3 visit drugs\n", out)

	out, err = execute(t, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, `"visits": 3`)
}

func TestImportCommand_RejectsFixtureDriver(t *testing.T) {
	_, err := execute(t, "--fixture", fixture, "import", fixture)
	assert.Error(t, err)
}

func TestFeedbackExport_Empty(t *testing.T) {
	out, err := execute(t, "--fixture", fixture, "feedback", "export")
	require.NoError(t, err)
	assert.Contains(t, out, `"feedback": []`)
}

func TestSetupCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claude_desktop_config.json")

	out, err := execute(t, "setup", "claude-desktop", "--client-config", path, "--binary", "/opt/reco/mcp-server")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	out, err = execute(t, "setup", "status", "--client-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"registered": true`)
}
