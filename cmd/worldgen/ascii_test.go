package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annelo/go-tile-server/internal/generator"
	"github.com/annelo/go-tile-server/internal/item"
)

func TestASCII(t *testing.T) {
	w, err := generator.Generate("PREVIEW", generator.Options{Width: 30, Height: 20, Seed: 7}, item.Default())
	require.NoError(t, err)

	out := ascii(w)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 20)
	for _, l := range lines {
		assert.Len(t, l, 30)
	}

	// Верхняя строка - воздух, нижняя - бедрок, дверь ровно одна
	assert.Equal(t, strings.Repeat(" ", 30), lines[0])
	assert.Equal(t, strings.Repeat("=", 30), lines[19])
	assert.Equal(t, 1, strings.Count(out, "D"))
}
