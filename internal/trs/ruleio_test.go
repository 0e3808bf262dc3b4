package trs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule.yaml")

	rule := DefaultRule().WithCutpoints(map[Component]float64{MELD: 18, Age: 55})
	require.NoError(t, SaveRule(path, rule))

	loaded, err := LoadRule(path)
	require.NoError(t, err)
	assert.Equal(t, rule, loaded)
}

func TestLoadRuleRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule.yaml")

	// Points summing past the maximum must fail validation on load.
	bad := []byte(`continuous:
  MELD:
    cutpoint: 20
    direction: above
    points: 7
`)
	require.NoError(t, os.WriteFile(path, bad, 0644))

	_, err := LoadRule(path)
	assert.Error(t, err)
}

func TestLoadRuleMissingFile(t *testing.T) {
	_, err := LoadRule(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSaveRuleRefusesInvalidRule(t *testing.T) {
	rule := DefaultRule()
	rule.Flags[HCC] = 3

	err := SaveRule(filepath.Join(t.TempDir(), "rule.yaml"), rule)
	assert.Error(t, err)
}
