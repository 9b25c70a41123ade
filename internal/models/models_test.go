package models

import (
	"testing"

	"github.com/gork-labs/gork/pkg/gorkson"
	"github.com/gork-labs/gork/pkg/polymorph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)

	item, ok := reg.Lookup(ItemType)
	require.True(t, ok)
	assert.Equal(t, "Item.Item", item.QualifiedName())
	assert.True(t, item.Abstract())
	assert.Equal(t, Key, item.Key())

	assert.Equal(t, ItemAType, reg.DiscriminatorFor(ItemAGoType))
	assert.Equal(t, ItemBType, reg.DiscriminatorFor(ItemBGoType))

	b, ok := reg.LookupName("Item.ItemB")
	require.True(t, ok)
	assert.Same(t, item, b.Parent())
}

func TestSeed_RoundTrip(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)
	c := polymorph.NewCodec(reg)

	data, err := c.Marshal(Seed(), nil, gorkson.JSON)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"@odata.type":"#Item.ItemA","Id":0,"Name":"A"},
		{"@odata.type":"#Item.ItemB","Id":0,"Name":"B"}
	]`, string(data))

	var items []Item
	require.NoError(t, c.UnmarshalInto(data, &items, gorkson.JSON))
	require.Len(t, items, 2)
	assert.Equal(t, &ItemA{ItemBase{Name: "A"}}, items[0])
	assert.Equal(t, &ItemB{ItemBase{Name: "B"}}, items[1])
}

func TestItemBase_Accessors(t *testing.T) {
	a := ItemA{ItemBase{ID: 7, Name: "seven"}}
	assert.Equal(t, 7, a.GetID())
	assert.Equal(t, "seven", a.GetName())
	assert.Len(t, SeedA(), 1)
	assert.Equal(t, "B", SeedB()[0].Name)
}

func TestItemBase_SetID(t *testing.T) {
	b := &ItemB{}
	b.SetID(3)
	assert.Equal(t, 3, b.GetID())
}
