package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

func backfillCase(sourceURL string, confidence float64) model.TribunalCase {
	return *apiCase(sourceURL, confidence, false)
}

func TestRunBackfill_StoresCases(t *testing.T) {
	st := newTestStore(t)

	cases := []model.TribunalCase{
		backfillCase("https://example.org/1", 0.9),
		backfillCase("https://example.org/2", 0.6),
	}

	job, err := runBackfill(context.Background(), st, cases, false)
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, model.JobTypeBackfill, job.JobType)
	assert.Equal(t, "canlii_hrto", job.SourceSystem)
	assert.Equal(t, 2, job.CasesDiscovered)
	assert.Equal(t, 2, job.CasesStored)
	assert.Equal(t, 0, job.CasesFailed)
	assert.Equal(t, 1, job.HighConfidenceCount)
	assert.Equal(t, 1, job.MediumConfidenceCount)
}

func TestRunBackfill_SkipsDuplicates(t *testing.T) {
	st := newTestStore(t)

	first := backfillCase("https://example.org/1", 0.9)
	_, _, err := st.InsertCase(context.Background(), &first)
	require.NoError(t, err)

	cases := []model.TribunalCase{
		backfillCase("https://example.org/1", 0.9),
		backfillCase("https://example.org/2", 0.6),
	}

	job, err := runBackfill(context.Background(), st, cases, false)
	require.NoError(t, err)

	// The duplicate resolves to the existing row; only the new case counts.
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.CasesStored)
	assert.Equal(t, 0, job.CasesFailed)
}

func TestRunBackfill_BulkUnsupported(t *testing.T) {
	st := newTestStore(t)

	cases := []model.TribunalCase{backfillCase("https://example.org/1", 0.9)}

	_, err := runBackfill(context.Background(), st, cases, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support bulk insert")
}
