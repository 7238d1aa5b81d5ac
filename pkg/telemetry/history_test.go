package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentHistory(t *testing.T) {
	h := NewCurrentHistory(3)

	_, ok := h.Average()
	assert.False(t, ok)

	h.Add(-100)
	h.Add(200)
	assert.Equal(t, []int{100, 200}, h.Samples())

	h.Add(301)
	h.Add(400)
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []int{200, 301, 400}, h.Samples())

	avg, ok := h.Average()
	assert.True(t, ok)
	// 901 / 3 truncates.
	assert.Equal(t, 300, avg)

	h.Clear()
	assert.Zero(t, h.Len())
	h.Add(5)
	assert.Equal(t, []int{5}, h.Samples())
}

func TestCurrentHistorySamplesIsCopy(t *testing.T) {
	h := NewCurrentHistory(2)
	h.Add(10)

	s := h.Samples()
	s[0] = 99
	assert.Equal(t, []int{10}, h.Samples())
}

func TestCurrentHistoryDefaultSize(t *testing.T) {
	h := NewCurrentHistory(0)
	for i := 0; i < 25; i++ {
		h.Add(i)
	}
	assert.Equal(t, DefaultTuning().HistorySize, h.Len())
}
