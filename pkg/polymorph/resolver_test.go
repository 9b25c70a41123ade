package polymorph

import (
	"reflect"
	"testing"

	"github.com/gork-labs/gork/pkg/gorkson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategies_Order(t *testing.T) {
	assert.Equal(t, []string{"declaration", "identity", "known-types", "convention", "type-field"}, Strategies())
}

func TestResolver_Explain(t *testing.T) {
	reg := testRegistry(t)
	r := NewResolver(reg)

	item := mustLookup(t, reg, itemType)
	animal := mustLookup(t, reg, animalType)
	dog := mustLookup(t, reg, dogType)

	tests := []struct {
		name     string
		base     *Type
		value    string
		want     *Type
		strategy string
	}{
		{"declared variant", item, "#Item.ItemA", mustLookup(t, reg, itemAType), "declaration"},
		{"base short name", animal, "Animal", animal, "identity"},
		{"known types func", animal, "Cat", mustLookup(t, reg, catType), "known-types"},
		{"namespace convention", item, "ItemB", mustLookup(t, reg, itemBType), "convention"},
		{"convention after known types miss", animal, "Dog", dog, "convention"},
		{"inherited declaration", dog, "puppy", mustLookup(t, reg, puppyType), "declaration"},
		{"inherited declaration naming the base", dog, "dog", dog, "declaration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy, err := r.Explain(tt.base, tt.value, nil)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestResolver_Unresolved(t *testing.T) {
	reg := testRegistry(t)
	r := NewResolver(reg)

	tests := []struct {
		name  string
		base  *Type
		value string
	}{
		{"unknown value", mustLookup(t, reg, itemType), "Unknown"},
		{"declaration is case sensitive", mustLookup(t, reg, itemType), "#item.itema"},
		{"sibling outside the base", mustLookup(t, reg, puppyType), "dog"},
		{"convention hit outside the base", mustLookup(t, reg, catType), "Dog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.SubtypeFor(tt.base, tt.value, nil)
			assert.Nil(t, got)

			var unresolved *UnresolvedSubtypeError
			require.ErrorAs(t, err, &unresolved)
			assert.Equal(t, tt.base.GoType(), unresolved.Base)
			assert.Equal(t, tt.value, unresolved.Value)
		})
	}
}

func TestResolver_KnownTypesList(t *testing.T) {
	reg, err := NewBuilder().
		Register(animalType, WithKnownTypes(catType)).
		Register(catType, WithParent(animalType), WithNamespace("pets")).
		Build()
	require.NoError(t, err)

	animal := mustLookup(t, reg, animalType)
	got, strategy, err := NewResolver(reg).Explain(animal, "Cat", nil)
	require.NoError(t, err)
	assert.Equal(t, catType, got.GoType())
	assert.Equal(t, "known-types", strategy)
}

type Shape struct {
	Kind string `json:"kind"`
}

type Circle struct {
	Radius int `json:"r"`
}

func TestResolver_KnownTypesAreRegisteredUnderTheirBase(t *testing.T) {
	shapeType := reflect.TypeOf(Shape{})
	circleType := reflect.TypeOf(Circle{})

	reg, err := NewBuilder().
		Register(shapeType, WithKey("kind"), WithKnownTypes(circleType)).
		Build()
	require.NoError(t, err)

	circle := mustLookup(t, reg, circleType)
	assert.Equal(t, shapeType, circle.Parent().GoType())
	assert.Equal(t, "Circle", reg.DiscriminatorFor(circleType))

	got, strategy, err := NewResolver(reg).Explain(mustLookup(t, reg, shapeType), "Circle", nil)
	require.NoError(t, err)
	assert.Equal(t, circleType, got.GoType())
	assert.Equal(t, "known-types", strategy)

	c := NewCodec(reg)
	v, err := c.Decode(parseDoc(t, `{"kind":"Circle","r":3}`), shapeType)
	require.NoError(t, err)
	assert.Equal(t, &Circle{Radius: 3}, v)

	doc, err := c.Encode(Circle{Radius: 3}, shapeType)
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"Circle","r":3}`, jsonOf(t, doc))
}

func TestResolver_KnownTypesFuncEndsWalk(t *testing.T) {
	calls := 0
	reg, err := NewBuilder().
		Register(animalType, WithKnownTypesFunc(func() []reflect.Type {
			calls++
			return []reflect.Type{catType}
		})).
		Register(catType, WithParent(animalType)).
		Register(dogType, WithParent(animalType), WithNamespace("pets"),
			WithKnownTypesFunc(func() []reflect.Type { return nil })).
		Build()
	require.NoError(t, err)
	r := NewResolver(reg)

	_, err = r.SubtypeFor(mustLookup(t, reg, dogType), "Other", nil)
	assert.Error(t, err)
	assert.Zero(t, calls, "the func on Dog ends the walk before Animal")

	got, err := r.SubtypeFor(mustLookup(t, reg, animalType), "Cat", nil)
	require.NoError(t, err)
	assert.Equal(t, catType, got.GoType())
	assert.Equal(t, 1, calls)
}

func TestResolver_TypeField(t *testing.T) {
	reg := testRegistry(t)
	item := mustLookup(t, reg, itemType)

	doc := gorkson.NewDocument()
	doc.Set("@odata.type", "Mystery")
	doc.Set("$type", "Item.ItemB")

	_, err := NewResolver(reg).SubtypeFor(item, "Mystery", doc)
	assert.Error(t, err, "type field is off by default")

	r := NewResolver(reg, WithTypeField(""))
	got, strategy, err := r.Explain(item, "Mystery", doc)
	require.NoError(t, err)
	assert.Equal(t, itemBType, got.GoType())
	assert.Equal(t, "type-field", strategy)

	doc.Set("$type", "github.com/gork-labs/gork/pkg/polymorph.ItemA")
	got, err = r.SubtypeFor(item, "Mystery", doc)
	require.NoError(t, err)
	assert.Equal(t, itemAType, got.GoType())

	doc.Set("$type", "polymorph.Dog")
	_, err = r.SubtypeFor(item, "Mystery", doc)
	assert.Error(t, err, "types outside the family are rejected")

	custom := NewResolver(reg, WithTypeField("__kind"))
	doc.Set("__kind", "Item.ItemB")
	got, err = custom.SubtypeFor(item, "Mystery", doc)
	require.NoError(t, err)
	assert.Equal(t, itemBType, got.GoType())
}
