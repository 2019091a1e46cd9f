package item

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoreItems(t *testing.T) {
	reg := Default()

	m, ok := reg.Lookup(SmallLock)
	require.True(t, ok)
	assert.Equal(t, KindLock, m.Kind)
	assert.Equal(t, TierSmall, m.LockTier)

	m, ok = reg.Lookup(Bedrock)
	require.True(t, ok)
	assert.True(t, m.Has(FlagPermanent))

	_, ok = reg.Lookup(65000)
	assert.False(t, ok, "неизвестный id не должен находиться")
}

func TestKind_Classes(t *testing.T) {
	assert.True(t, KindCrossover.IsNetwork())
	assert.False(t, KindVent.IsNetwork())
	assert.True(t, KindVent.IsActuator())
	assert.True(t, KindWorldLock.IsLock())
	assert.Equal(t, "side_funnel", KindSideFunnel.String())

	k, err := ParseKind("circuit_door")
	require.NoError(t, err)
	assert.Equal(t, KindCircuitDoor, k)

	_, err = ParseKind("teleporter")
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yaml")
	doc := `
include_defaults: true
items:
  - id: 9000
    name: Glass Pane
    kind: block
    collision: solid
    break_hits: 1
  - id: 9002
    name: Owner Lock
    kind: lock
    lock_tier: 2
    flags: [mirror_owner, untradeable]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	reg, err := LoadYAML(path)
	require.NoError(t, err)

	glass, ok := reg.Lookup(9000)
	require.True(t, ok)
	assert.Equal(t, CollisionSolid, glass.Collision)

	lock, ok := reg.Lookup(9002)
	require.True(t, ok)
	assert.True(t, lock.Has(FlagMirrorOwner))
	assert.True(t, lock.Has(FlagUntradeable))
	assert.Equal(t, TierMedium, lock.LockTier)

	_, ok = reg.Lookup(Dirt)
	assert.True(t, ok, "include_defaults должен подтянуть встроенный каталог")
}

func TestParseYAML_Errors(t *testing.T) {
	_, err := ParseYAML([]byte("items:\n  - id: 1\n    kind: lock\n"))
	assert.Error(t, err, "замок без уровня")

	_, err = ParseYAML([]byte("items:\n  - id: 1\n    kind: block\n    collision: sticky\n"))
	assert.Error(t, err)
}
