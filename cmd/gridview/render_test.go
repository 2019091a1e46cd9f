package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annelo/go-tile-server/internal/actor"
	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/lock"
	"github.com/annelo/go-tile-server/internal/world"
)

func TestTileSymbol(t *testing.T) {
	w, err := world.New("VIEW", 20, 10, item.Default())
	require.NoError(t, err)
	a := actor.New(1, "a", actor.RolePlayer, 1)

	for _, p := range []struct {
		x, y int
		id   uint16
	}{{1, 1, item.Dirt}, {2, 1, item.Bedrock}, {3, 1, item.Vent}, {4, 1, item.MainDoor}} {
		_, err := w.Place(a, p.x, p.y, p.id)
		require.NoError(t, err)
	}
	_, err = lock.Apply(w, a, 10, 5, item.SmallLock)
	require.NoError(t, err)

	symbol := func(x, y int) rune {
		tl, ok := w.Get(x, y)
		require.True(t, ok)
		ch, _, _ := tileSymbol(w, tl)
		return ch
	}
	assert.Equal(t, ' ', symbol(0, 0))
	assert.Equal(t, '#', symbol(1, 1))
	assert.Equal(t, '=', symbol(2, 1))
	assert.Equal(t, 'o', symbol(3, 1))
	assert.Equal(t, 'D', symbol(4, 1))
	assert.Equal(t, 'L', symbol(10, 5))

	assert.Contains(t, describe(w, 1, 1), "fg=Dirt")
	assert.Contains(t, describe(w, 10, 5), "владелец=1")
	assert.Contains(t, describe(w, 11, 5), "замок=(10,5)")
	assert.Contains(t, describe(w, 50, 5), "вне мира")
}
