package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pumpProject = `{
  "name": "Pump",
  "settings": {"author": "ops"},
  "rungs": [
    {"id": "r1", "segments": [], "components": [
      {"id": "c1", "type": "CONTACT_NO", "position": 1, "variables": {"address": "Start"}},
      {"id": "c2", "type": "COIL", "position": 2, "variables": {"address": "Pump"}}
    ]},
    {"id": "r2", "segments": [{"id": "s1", "type": "horizontal", "position": 3, "row": 0}], "components": []}
  ],
  "verticalLinks": [{"id": "v1", "fromRung": 0, "toRung": 1, "fromPosition": 3, "toPosition": 3}]
}`

const overlappingProject = `{
  "name": "Broken",
  "rungs": [{"id": "r1", "components": [
    {"type": "TON", "position": 1, "width": 3},
    {"type": "COIL", "position": 2}
  ]}]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	path := writeFile(t, "pump.json", pumpProject)

	out, err := run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Project:        Pump")
	assert.Contains(t, out, "Author:         ops")
	assert.Contains(t, out, "Rungs:          2")
	assert.Contains(t, out, "Components:     2")
	assert.Contains(t, out, "Vertical links: 1")

	out, err = run(t, "info", "--json", path)
	require.NoError(t, err)
	var info projectInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, projectInfo{Name: "Pump", Author: "ops", Rungs: 2, Components: 2, Segments: 1, VerticalLinks: 1}, info)
}

func TestInfoErrors(t *testing.T) {
	_, err := run(t, "info", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = run(t, "info", writeFile(t, "notes.txt", "hello"))
	assert.Error(t, err)

	_, err = run(t, "info")
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	src := writeFile(t, "pump.json", pumpProject)
	dir := t.TempDir()

	llPath := filepath.Join(dir, "pump.ll")
	out, err := run(t, "convert", src, llPath)
	require.NoError(t, err)
	assert.Contains(t, out, "(ll,")

	data, err := os.ReadFile(llPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "PROJECT: Pump\n"))
	assert.Contains(t, string(data), "COIL 2")

	// The listing reads back with the same components.
	out, err = run(t, "info", "--json", llPath)
	require.NoError(t, err)
	var info projectInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "Pump", info.Name)
	assert.Equal(t, 2, info.Rungs)
	assert.Equal(t, 2, info.Components)

	stPath := filepath.Join(dir, "pump.out")
	_, err = run(t, "convert", "--format", "st", src, stPath)
	require.NoError(t, err)
	data, err = os.ReadFile(stPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PROGRAM Pump")

	_, err = run(t, "convert", src, filepath.Join(dir, "pump.pdf"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", writeFile(t, "pump.json", pumpProject))
	require.NoError(t, err)
	assert.Contains(t, out, "pump.json: valid")

	out, err = run(t, "validate", writeFile(t, "broken.json", overlappingProject))
	var invalid *invalidProjectError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 1, invalid.errors)
	assert.Contains(t, out, "ERROR   Rung 1, Component 2")

	out, err = run(t, "validate", "--json", writeFile(t, "broken.json", overlappingProject))
	require.Error(t, err)
	assert.Contains(t, out, `"valid": false`)
}

func TestCatalog(t *testing.T) {
	out, err := run(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "Basic\n")
	assert.Contains(t, out, "TON")

	custom := writeFile(t, "palette.yaml", "categories:\n  - name: Custom\n    tools:\n      - type: PID\n        width: 4\n")
	out, err = run(t, "catalog", "--file", custom)
	require.NoError(t, err)
	assert.Contains(t, out, "Custom\n")
	assert.Contains(t, out, "width 4")
	assert.NotContains(t, out, "CONTACT_NO")

	_, err = run(t, "catalog", "--file", writeFile(t, "bad.yaml", "categories:\n  - tools:\n      - label: x\n"))
	assert.Error(t, err)
}
