package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRunShortRunUntouched(t *testing.T) {
	run := NewRun("hello world")
	out := SplitRun(run)
	require.Len(t, out, 1)
	assert.Equal(t, "hello world", out[0].Content)
}

func TestSplitRunAtLimit(t *testing.T) {
	run := NewRun(strings.Repeat("a", MaxRunLength))
	out := SplitRun(run)
	require.Len(t, out, 1)
}

func TestSplitRunOverLimit(t *testing.T) {
	run := NewRun(strings.Repeat("a", MaxRunLength*2+10))
	run.Annotations.Bold = true
	run.Href = "https://example.com"

	out := SplitRun(run)
	require.Len(t, out, 3)

	total := 0
	for _, piece := range out {
		runes := []rune(piece.Content)
		assert.LessOrEqual(t, len(runes), MaxRunLength)
		assert.True(t, piece.Annotations.Bold, "annotations must survive the split")
		assert.Equal(t, "https://example.com", piece.Href)
		total += len(runes)
	}
	assert.Equal(t, MaxRunLength*2+10, total)
}

func TestSplitRunKeepsCombiningMarkWithBase(t *testing.T) {
	// Position a combining acute accent (U+0301) exactly at the cut point.
	content := strings.Repeat("x", MaxRunLength-1) + "e\u0301tail"
	out := SplitRun(NewRun(content))
	require.Len(t, out, 2)

	first := []rune(out[0].Content)
	second := []rune(out[1].Content)
	assert.Equal(t, 'x', first[len(first)-1], "base and mark move together into the next piece")
	assert.Equal(t, 'e', second[0])
	assert.Equal(t, '\u0301', second[1])
	assert.Equal(t, content, out[0].Content+out[1].Content)
}

func TestSplitRunsFlattens(t *testing.T) {
	runs := []RichText{
		NewRun("short"),
		NewRun(strings.Repeat("b", MaxRunLength+1)),
	}
	out := SplitRuns(runs)
	assert.Len(t, out, 3)
}

func TestAnnotationsIsZero(t *testing.T) {
	assert.True(t, Annotations{}.IsZero())
	assert.False(t, Annotations{Italic: true}.IsZero())
	assert.False(t, Annotations{Color: "red"}.IsZero())
}
