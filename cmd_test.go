package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunSuggest_DryRun(t *testing.T) {
	fc := &fakeCompleter{}
	a := NewAdvisor(fc, wordCounter{}, 0, "", zap.NewNop())
	path := writeCSV(t, "export.csv", sampleCSV)

	var out bytes.Buffer
	err := runSuggest(context.Background(), &out, a, "", path, nil, true)
	require.NoError(t, err)

	assert.Contains(t, out.String(), contextPreamble)
	assert.Contains(t, out.String(), "- d: 03/02/23, c: Salary, a: 3200, t: c")
	assert.Contains(t, out.String(), "3 of 3 transactions included")
	assert.Empty(t, fc.calls)
}

func TestRunSuggest_WithQuestions(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"###Cook at home ###Cancel subscriptions", "###Plan meals"}}
	a := NewAdvisor(fc, wordCounter{}, 0, "", zap.NewNop())
	path := writeCSV(t, "export.csv", sampleCSV)

	var out bytes.Buffer
	err := runSuggest(context.Background(), &out, a, "sk-test", path, []string{"What about food?"}, false)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "1. Cook at home\n2. Cancel subscriptions\n")
	assert.Contains(t, out.String(), "Q: What about food?\nA: Plan meals\n")
	assert.Equal(t, []string{"sk-test", "sk-test"}, fc.keys)
}

func TestRunSuggest_Errors(t *testing.T) {
	a := NewAdvisor(&fakeCompleter{}, wordCounter{}, 0, "", zap.NewNop())
	var out bytes.Buffer

	err := runSuggest(context.Background(), &out, a, "k", writeCSV(t, "export.txt", sampleCSV), nil, false)
	assert.ErrorContains(t, err, "not a .csv file")

	err = runSuggest(context.Background(), &out, a, "k", filepath.Join(t.TempDir(), "missing.csv"), nil, false)
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = runSuggest(context.Background(), &out, a, "", writeCSV(t, "export.csv", sampleCSV), nil, false)
	assert.ErrorContains(t, err, "no API key")
}

func TestRootCommand_Flags(t *testing.T) {
	root := newRootCommand()

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("port"))

	suggest, _, err := root.Find([]string{"suggest"})
	require.NoError(t, err)
	assert.NotNil(t, suggest.Flags().Lookup("dry-run"))
	assert.NotNil(t, suggest.Flags().ShorthandLookup("q"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
