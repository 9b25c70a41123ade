package api

import (
	"reflect"
	"testing"

	"github.com/gork-labs/gork/pkg/polymorph"
	"github.com/stretchr/testify/require"
)

type Item interface {
	GetID() int
}

type ItemBase struct {
	ID   int    `json:"Id"`
	Name string `json:"Name" validate:"required,min=1,max=50"`
}

func (b ItemBase) GetID() int { return b.ID }

type ItemA struct {
	ItemBase
}

type ItemB struct {
	ItemBase
	Tags []string `json:"Tags,omitempty" validate:"max=3"`
}

type Animal struct {
	Name string `json:"name" validate:"required"`
}

type Dog struct {
	Name  string `json:"name"`
	Breed string `json:"breed,omitempty" validate:"omitempty,oneof=lab pug"`
}

type Address struct {
	Street string `json:"street" validate:"required"`
}

type Owner struct {
	Pets    []Item         `json:"pets"`
	Address Address        `json:"address"`
	Meta    map[string]int `json:"meta,omitempty"`
	Photo   []byte         `json:"photo,omitempty"`
}

var (
	itemType   = polymorph.TypeOf[Item]()
	itemAType  = reflect.TypeOf(ItemA{})
	itemBType  = reflect.TypeOf(ItemB{})
	animalType = reflect.TypeOf(Animal{})
	dogType    = reflect.TypeOf(Dog{})
)

func testRegistry(t *testing.T) *polymorph.Registry {
	t.Helper()
	reg, err := polymorph.NewBuilder().
		Register(itemType,
			polymorph.WithName("Item"),
			polymorph.WithNamespace("Item"),
			polymorph.WithKey("@odata.type"),
			polymorph.WithVariant("#Item.ItemA", itemAType),
			polymorph.WithVariant("#Item.ItemB", itemBType),
		).
		Register(animalType, polymorph.WithKey("kind"), polymorph.WithVariant("dog", dogType)).
		Build()
	require.NoError(t, err)
	return reg
}
