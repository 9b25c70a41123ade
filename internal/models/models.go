// Package models holds the sample Item family served by the gork server.
package models

import (
	"reflect"

	"github.com/gork-labs/gork/pkg/polymorph"
)

// Namespace is the schema namespace shared by the Item family.
const Namespace = "Item"

// Key is the document field carrying the Item discriminator.
const Key = "@odata.type"

// Discriminator values written for the concrete items.
const (
	ItemAType = "#Item.ItemA"
	ItemBType = "#Item.ItemB"
)

// Item is the abstract base of the family.
type Item interface {
	GetID() int
	GetName() string
}

// ItemBase carries the fields every Item has.
type ItemBase struct {
	ID   int    `json:"Id"`
	Name string `json:"Name" validate:"required,min=1,max=50"`
}

func (b ItemBase) GetID() int      { return b.ID }
func (b ItemBase) GetName() string { return b.Name }

// SetID assigns the item identifier.
func (b *ItemBase) SetID(id int) { b.ID = id }

// ItemA is an Item.
type ItemA struct {
	ItemBase
}

// ItemB is an Item.
type ItemB struct {
	ItemBase
}

var (
	ItemType    = polymorph.TypeOf[Item]()
	ItemAGoType = reflect.TypeOf(ItemA{})
	ItemBGoType = reflect.TypeOf(ItemB{})
)

// Registry builds the variant registry for the Item family.
func Registry() (*polymorph.Registry, error) {
	return polymorph.NewBuilder().
		Register(ItemType,
			polymorph.WithName("Item"),
			polymorph.WithNamespace(Namespace),
			polymorph.WithKey(Key),
			polymorph.WithVariant(ItemAType, ItemAGoType),
			polymorph.WithVariant(ItemBType, ItemBGoType),
		).
		Register(ItemAGoType, polymorph.WithNamespace(Namespace)).
		Register(ItemBGoType, polymorph.WithNamespace(Namespace)).
		Build()
}

// Seed returns the sample items listed by the Items collection.
func Seed() []Item {
	return []Item{
		ItemA{ItemBase{Name: "A"}},
		ItemB{ItemBase{Name: "B"}},
	}
}

// SeedA returns the sample items listed by the ItemAs collection.
func SeedA() []ItemA {
	return []ItemA{{ItemBase{Name: "A"}}}
}

// SeedB returns the sample ItemB values.
func SeedB() []ItemB {
	return []ItemB{{ItemBase{Name: "B"}}}
}
