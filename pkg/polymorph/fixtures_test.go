package polymorph

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type Item interface {
	GetID() string
}

type ItemBase struct {
	ID   string `json:"Id,omitempty"`
	Name string `json:"Name"`
}

func (b ItemBase) GetID() string { return b.ID }

type ItemA struct {
	ItemBase
	Size int `json:"Size,omitempty"`
}

type ItemB struct {
	ItemBase
	Color string `json:"Color,omitempty"`
}

// ItemC implements Item but is never registered.
type ItemC struct {
	ItemBase
}

type Animal struct {
	Name string `json:"name"`
}

type Dog struct {
	Name  string `json:"name"`
	Breed string `json:"breed,omitempty"`
}

type Puppy struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type Cat struct {
	Name  string `json:"name"`
	Lives int    `json:"lives"`
}

// Tagged declares the discriminator key as one of its own fields.
type Tagged struct {
	Kind  string `json:"kind"`
	Value int    `json:"value"`
}

type Shelter struct {
	Name     string   `json:"name"`
	Items    []Item   `json:"items"`
	Featured Item     `json:"featured"`
	Pets     []Animal `json:"pets,omitempty"`
}

var (
	itemType   = TypeOf[Item]()
	itemAType  = reflect.TypeOf(ItemA{})
	itemBType  = reflect.TypeOf(ItemB{})
	itemCType  = reflect.TypeOf(ItemC{})
	animalType = reflect.TypeOf(Animal{})
	dogType    = reflect.TypeOf(Dog{})
	puppyType  = reflect.TypeOf(Puppy{})
	catType    = reflect.TypeOf(Cat{})
	taggedType = reflect.TypeOf(Tagged{})
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewBuilder().
		Register(itemType,
			WithNamespace("Item"),
			WithKey("@odata.type"),
			WithVariant("#Item.ItemA", itemAType),
			WithVariant("#Item.ItemB", itemBType),
		).
		Register(itemBType, WithNamespace("Item")).
		Register(animalType,
			WithKey("kind"),
			WithVariant("dog", dogType),
			WithVariant("puppy", puppyType),
			WithKnownTypesFunc(func() []reflect.Type { return []reflect.Type{catType} }),
		).
		Register(puppyType, WithParent(dogType)).
		Register(catType, WithParent(animalType)).
		Register(taggedType, WithKey("kind")).
		Build()
	require.NoError(t, err)
	return reg
}

func testCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	return NewCodec(testRegistry(t), opts...)
}
