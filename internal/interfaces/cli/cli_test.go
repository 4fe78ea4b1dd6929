package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemClassify/pkg/types/classify"
)

const testRules = `
ontology:
  classes:
    - id: root
      name: chemical entity
    - id: acid
      name: acid
      parents: [root]
    - id: carboxylic_acid
      name: carboxylic acid
      parents: [acid]
rules:
  - id: carboxylic-motif
    kind: substructure
    classes: [carboxylic_acid]
    pattern: "C(=O)O"
`

func writeRules(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRules), 0o600))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := runCommand(t, "validate", "--rules", writeRules(t))
	require.NoError(t, err)
	assert.Contains(t, out, "rule set OK: 3 classes, 1 rules")
}

func TestValidateCommand_BadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: [unclosed"), 0o600))

	_, err := runCommand(t, "validate", "--rules", path)
	assert.Error(t, err)
}

func TestClassifyCommand_SingleSMILES(t *testing.T) {
	out, err := runCommand(t,
		"classify", "--rules", writeRules(t), "--name", "acetic acid", "CC(=O)O")
	require.NoError(t, err)

	var dto classify.ClassificationResultDTO
	require.NoError(t, json.Unmarshal([]byte(out), &dto))
	assert.Equal(t, "acetic acid", dto.StructureName)
	require.NotEmpty(t, dto.Assignments)
	assert.Equal(t, "carboxylic_acid", dto.Assignments[0].ClassID)
	assert.True(t, dto.Assignments[0].Direct)
}

func TestClassifyCommand_InputFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "mols.txt")
	require.NoError(t, os.WriteFile(input, []byte(
		"# test set\nCC(=O)O acetic acid\nCCO ethanol\n"), 0o600))

	out, err := runCommand(t,
		"classify", "--rules", writeRules(t), "--input", input)
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader([]byte(out)))
	var results []classify.ClassificationResultDTO
	for dec.More() {
		var dto classify.ClassificationResultDTO
		require.NoError(t, dec.Decode(&dto))
		results = append(results, dto)
	}
	require.Len(t, results, 2)
	assert.Equal(t, "acetic acid", results[0].StructureName)
	assert.Equal(t, "ethanol", results[1].StructureName)
	assert.Empty(t, results[1].Assignments)
}

func TestClassifyCommand_IsolatesBadLine(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "mols.txt")
	require.NoError(t, os.WriteFile(input, []byte("CC(=O)O ok\nC( broken\n"), 0o600))

	out, err := runCommand(t,
		"classify", "--rules", writeRules(t), "--input", input)
	assert.Error(t, err, "a failed line is reported after the good results")
	assert.Contains(t, out, "carboxylic_acid")
}

func TestClassifyCommand_NoStructures(t *testing.T) {
	_, err := runCommand(t, "classify", "--rules", writeRules(t))
	assert.Error(t, err)
}

func TestClassifyCommand_MissingRules(t *testing.T) {
	_, err := runCommand(t, "classify", "CC(=O)O")
	assert.Error(t, err)
}
