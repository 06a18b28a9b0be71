package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionFollowsPipeline(t *testing.T) {
	t.Parallel()

	allowed := [][2]Status{
		{StatusPreSaved, StatusFileDownloaded},
		{StatusPreSaved, StatusDownloadError},
		{StatusFileDownloaded, StatusSummarized},
		{StatusSummarized, StatusPublished},
		{StatusDownloadError, StatusFileDownloaded},
	}
	for _, edge := range allowed {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}

	rejected := [][2]Status{
		{StatusFileDownloaded, StatusPreSaved},
		{StatusSummarized, StatusFileDownloaded},
		{StatusPublished, StatusSummarized},
		{StatusPublished, StatusPreSaved},
		{StatusTickerNotFound, StatusPreSaved},
		{StatusTickerNotFound, StatusFileDownloaded},
		{StatusPreSaved, StatusSummarized},
		{StatusPreSaved, StatusPublished},
		{StatusDownloadError, StatusPreSaved},
	}
	for _, edge := range rejected {
		assert.False(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}
}

func TestTerminalStatusesHaveNoEdges(t *testing.T) {
	t.Parallel()

	for _, to := range AllStatuses {
		assert.False(t, CanTransition(StatusPublished, to))
		assert.False(t, CanTransition(StatusTickerNotFound, to))
	}
}

func TestValidateTransitionRequiresData(t *testing.T) {
	t.Parallel()

	err := ValidateTransition(StatusPreSaved, StatusFileDownloaded, DocumentPatch{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))

	require.NoError(t, ValidateTransition(StatusPreSaved, StatusFileDownloaded, DocumentPatch{FileExtension: "pdf"}))

	err = ValidateTransition(StatusFileDownloaded, StatusSummarized, DocumentPatch{})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	require.NoError(t, ValidateTransition(StatusSummarized, StatusPublished, DocumentPatch{}))
	assert.ErrorIs(t, ValidateTransition(StatusPublished, StatusSummarized, DocumentPatch{Content: "x"}), ErrIllegalTransition)
}

func TestInitialStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusPreSaved, InitialStatus("LIFE11"))
	assert.Equal(t, StatusTickerNotFound, InitialStatus(""))
	assert.True(t, StatusPreSaved.Initial())
	assert.True(t, StatusTickerNotFound.Initial())
	assert.False(t, StatusSummarized.Initial())
	assert.False(t, Status("ARCHIVED").Valid())
}

func TestHasFile(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusPreSaved.HasFile())
	assert.False(t, StatusDownloadError.HasFile())
	assert.True(t, StatusFileDownloaded.HasFile())
	assert.True(t, StatusSummarized.HasFile())
	assert.True(t, StatusPublished.HasFile())
}
