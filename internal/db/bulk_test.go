package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(nil, nil, "tribunal_cases_raw", []string{"id"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInsertSkipConflicts_EmptyRows(t *testing.T) {
	n, err := InsertSkipConflicts(nil, nil, "tribunal_cases_raw",
		[]string{"id", "source_url"}, []string{"source_url"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInsertSkipConflicts_NoColumns(t *testing.T) {
	_, err := InsertSkipConflicts(nil, nil, "tribunal_cases_raw",
		nil, []string{"source_url"}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestInsertSkipConflicts_NoConflictKeys(t *testing.T) {
	_, err := InsertSkipConflicts(nil, nil, "tribunal_cases_raw",
		[]string{"id", "source_url"}, nil, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "source_url", "combined_confidence"})
	assert.Equal(t, `"id", "source_url", "combined_confidence"`, result)
}
