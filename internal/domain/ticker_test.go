package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTicker(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "LIFE11", NormalizeTicker("LIFE", "11"))
	assert.Equal(t, "LIFE11", NormalizeTicker("LIFE11", "11"))
	assert.Equal(t, "VCRA11", NormalizeTicker(" vcra ", "11"))
	assert.Equal(t, "", NormalizeTicker("", "11"))
}

func TestWatchlisted(t *testing.T) {
	t.Parallel()

	watchlist := []string{"LIFE11", "NAUI11"}
	assert.True(t, Watchlisted("LIFE", watchlist))
	assert.True(t, Watchlisted("LIFE11", watchlist))
	assert.False(t, Watchlisted("TOPP", watchlist))
	assert.False(t, Watchlisted("", watchlist))
	assert.False(t, Watchlisted("LIFE", nil))
}
