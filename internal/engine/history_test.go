package engine

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soltrader/internal/domain"
)

func TestHistoryAppendAndRecent(t *testing.T) {
	h := NewHistory(5)

	h.Append(domain.TradeResult{Signature: "a"})
	h.Append(domain.TradeResult{Signature: "b"})

	recent := h.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "a", recent[0].Signature)
	assert.Equal(t, "b", recent[1].Signature)
}

func TestHistoryEvictsOldestAtCapacity(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(domain.TradeResult{Signature: "sig" + strconv.Itoa(i)})
	}

	recent := h.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "sig2", recent[0].Signature)
	assert.Equal(t, "sig4", recent[2].Signature)
	assert.Equal(t, 3, h.Len())
}

func TestHistoryRecentReturnsCopy(t *testing.T) {
	h := NewHistory(3)
	h.Append(domain.TradeResult{Signature: "a"})

	recent := h.Recent()
	recent[0].Signature = "mutated"

	assert.Equal(t, "a", h.Recent()[0].Signature)
}
