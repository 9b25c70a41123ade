package polymorph

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/gork-labs/gork/pkg/gorkson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, s string) *gorkson.Document {
	t.Helper()
	node, err := gorkson.ParseJSON([]byte(s))
	require.NoError(t, err)
	doc, ok := node.(*gorkson.Document)
	require.True(t, ok)
	return doc
}

func jsonOf(t *testing.T, node any) string {
	t.Helper()
	data, err := gorkson.JSON.Marshal(node)
	require.NoError(t, err)
	return string(data)
}

func TestCodec_ItemExample(t *testing.T) {
	c := testCodec(t)

	doc, err := c.Encode(ItemA{ItemBase: ItemBase{Name: "A"}}, itemType)
	require.NoError(t, err)
	assert.Equal(t, `{"@odata.type":"#Item.ItemA","Name":"A"}`, jsonOf(t, doc))

	doc, err = c.Encode(&ItemA{ItemBase: ItemBase{ID: "1", Name: "A"}}, itemType)
	require.NoError(t, err)
	assert.Equal(t, `{"@odata.type":"#Item.ItemA","Id":"1","Name":"A"}`, jsonOf(t, doc))

	v, err := c.Decode(doc, itemType)
	require.NoError(t, err)
	a, ok := v.(*ItemA)
	require.True(t, ok, "got %T", v)
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, "1", a.ID)
}

func TestCodec_RoundTrip(t *testing.T) {
	c := testCodec(t)

	tests := []struct {
		name  string
		value any
		base  reflect.Type
	}{
		{"interface base", ItemA{ItemBase: ItemBase{ID: "1", Name: "a"}, Size: 3}, itemType},
		{"second variant", ItemB{ItemBase: ItemBase{ID: "2", Name: "b"}, Color: "red"}, itemType},
		{"unregistered implementation", ItemC{ItemBase: ItemBase{Name: "c"}}, itemType},
		{"struct base", Dog{Name: "rex", Breed: "lab"}, animalType},
		{"grandchild", Puppy{Name: "bit", Age: 1}, animalType},
		{"known type", Cat{Name: "tom", Lives: 9}, animalType},
		{"base itself", Animal{Name: "generic"}, animalType},
		{"variant as its own base", Puppy{Name: "bit", Age: 2}, dogType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := c.Encode(tt.value, tt.base)
			require.NoError(t, err)

			for _, f := range gorkson.Formats() {
				data, err := f.Marshal(doc)
				require.NoError(t, err, f.Name())
				node, err := f.Unmarshal(data)
				require.NoError(t, err, f.Name())

				got, err := c.Decode(node, tt.base)
				if tt.name == "unregistered implementation" {
					// ItemC is reachable through its short name only when it is
					// registered; encoding still works.
					var unresolved *UnresolvedSubtypeError
					assert.ErrorAs(t, err, &unresolved, f.Name())
					continue
				}
				require.NoError(t, err, f.Name())
				assert.Equal(t, tt.value, reflect.ValueOf(got).Elem().Interface(), f.Name())
			}
		})
	}
}

func TestCodec_FirstField(t *testing.T) {
	c := testCodec(t)

	values := []struct {
		value any
		base  reflect.Type
		key   string
	}{
		{ItemA{ItemBase: ItemBase{ID: "1", Name: "a"}, Size: 1}, itemType, "@odata.type"},
		{ItemC{ItemBase: ItemBase{ID: "3"}}, itemType, "@odata.type"},
		{Dog{Name: "rex"}, animalType, "kind"},
		{Tagged{Kind: "ignored", Value: 1}, taggedType, "kind"},
		{Other{}, nil, DefaultKey},
	}
	for _, tt := range values {
		doc, err := c.Encode(tt.value, tt.base)
		require.NoError(t, err)
		keys := doc.Keys()
		require.NotEmpty(t, keys)
		assert.Equal(t, tt.key, keys[0], "%T", tt.value)
		v, _ := doc.Get(tt.key)
		assert.Equal(t, c.Registry().DiscriminatorFor(reflect.TypeOf(tt.value)), v)
	}
}

func TestCodec_EncodeDoesNotMutate(t *testing.T) {
	c := testCodec(t)
	dog := &Dog{Name: "rex"}
	_, err := c.Encode(dog, animalType)
	require.NoError(t, err)
	assert.Equal(t, &Dog{Name: "rex"}, dog)
}

func TestCodec_EncodeEdgeCases(t *testing.T) {
	c := testCodec(t)

	doc, err := c.Encode(nil, itemType)
	require.NoError(t, err)
	assert.Nil(t, doc)

	var nilDog *Dog
	doc, err = c.Encode(nilDog, animalType)
	require.NoError(t, err)
	assert.Nil(t, doc)

	_, err = c.Encode(42, animalType)
	assert.ErrorIs(t, err, ErrNotObject)

	_, err = c.Encode([]Dog{{}}, animalType)
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestCodec_UnknownDiscriminator(t *testing.T) {
	c := testCodec(t)

	_, err := c.Decode(parseDoc(t, `{"@odata.type":"Unknown","Name":"x"}`), itemType)

	var unresolved *UnresolvedSubtypeError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, itemType, unresolved.Base)
	assert.Equal(t, "Unknown", unresolved.Value)
}

func TestCodec_OmittedDiscriminator(t *testing.T) {
	c := testCodec(t)

	v, err := c.Decode(parseDoc(t, `{"name":"generic"}`), animalType)
	require.NoError(t, err)
	assert.Equal(t, &Animal{Name: "generic"}, v)

	v, err = c.Decode(parseDoc(t, `{"kind":null,"name":"generic"}`), animalType)
	require.NoError(t, err)
	assert.Equal(t, &Animal{Name: "generic"}, v, "null counts as missing")

	_, err = c.Decode(parseDoc(t, `{"Name":"x"}`), itemType)
	var abstract *AbstractTypeError
	require.ErrorAs(t, err, &abstract)
	assert.Equal(t, itemType, abstract.Type)
}

func TestCodec_AbsentDocument(t *testing.T) {
	c := testCodec(t)

	v, err := c.Decode(nil, itemType)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = c.Decode(gorkson.NewDocument(), itemType)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = c.Decode([]any{}, itemType)
	assert.ErrorIs(t, err, ErrNotObject)

	_, err = c.Decode(gorkson.NewDocument(), nil)
	assert.Error(t, err)
}

func TestCodec_FieldStripping(t *testing.T) {
	strict := testCodec(t, WithEngine(&gorkson.Marshaler{DisallowUnknownFields: true}))

	doc := parseDoc(t, `{"name":"rex","KIND":"dog","breed":"lab"}`)
	v, err := strict.Decode(doc, animalType)
	require.NoError(t, err, "the discriminator is stripped whatever its case")
	assert.Equal(t, &Dog{Name: "rex", Breed: "lab"}, v)

	_, ok := doc.Get("KIND")
	assert.True(t, ok, "the caller's document is left alone")
	assert.Equal(t, 3, doc.Len())

	// Tagged declares "kind" itself, so the field survives.
	v, err = strict.Decode(parseDoc(t, `{"kind":"Tagged","value":7}`), taggedType)
	require.NoError(t, err)
	assert.Equal(t, &Tagged{Kind: "Tagged", Value: 7}, v)

	_, err = strict.Decode(parseDoc(t, `{"kind":"dog","name":"rex","extra":1}`), animalType)
	var unknown *gorkson.UnknownFieldError
	require.ErrorAs(t, err, &unknown, "engine errors are passed through")
	assert.Equal(t, "extra", unknown.Field)
}

func TestCodec_DecodeOneLevel(t *testing.T) {
	c := testCodec(t)

	// Dog is itself a base for Puppy. Decoding against Animal resolves Dog
	// and decodes it plainly, without resolving again.
	v, err := c.Decode(parseDoc(t, `{"kind":"dog","name":"rex"}`), animalType)
	require.NoError(t, err)
	assert.IsType(t, &Dog{}, v)

	v, err = c.Decode(parseDoc(t, `{"kind":"puppy","name":"bit","age":1}`), dogType)
	require.NoError(t, err)
	assert.Equal(t, &Puppy{Name: "bit", Age: 1}, v)
}

func TestCodec_DefaultKey(t *testing.T) {
	c := testCodec(t, WithDefaultKey("type"))
	assert.Equal(t, "type", c.KeyFor(reflect.TypeOf(Other{})))
	assert.Equal(t, "type", c.KeyFor(nil))
	assert.Equal(t, "kind", c.KeyFor(dogType))

	doc, err := c.Encode(Other{}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"Other"}`, jsonOf(t, doc))
}

func TestCodec_NestedFamilies(t *testing.T) {
	c := testCodec(t)

	shelter := Shelter{
		Name: "north",
		Items: []Item{
			ItemA{ItemBase: ItemBase{ID: "1", Name: "a"}},
			&ItemB{ItemBase: ItemBase{ID: "2", Name: "b"}, Color: "blue"},
		},
		Featured: ItemA{ItemBase: ItemBase{ID: "3", Name: "f"}},
		Pets:     []Animal{{Name: "generic"}},
	}

	node, err := c.EncodeAny(shelter)
	require.NoError(t, err)
	assert.Equal(t,
		`{"name":"north",`+
			`"items":[{"@odata.type":"#Item.ItemA","Id":"1","Name":"a"},{"@odata.type":"#Item.ItemB","Id":"2","Name":"b","Color":"blue"}],`+
			`"featured":{"@odata.type":"#Item.ItemA","Id":"3","Name":"f"},`+
			`"pets":[{"kind":"Animal","name":"generic"}]}`,
		jsonOf(t, node))

	var got Shelter
	require.NoError(t, c.DecodeAny(node, &got))
	assert.Equal(t, "north", got.Name)
	require.Len(t, got.Items, 2)
	assert.Equal(t, &ItemA{ItemBase: ItemBase{ID: "1", Name: "a"}}, got.Items[0])
	assert.Equal(t, &ItemB{ItemBase: ItemBase{ID: "2", Name: "b"}, Color: "blue"}, got.Items[1])
	assert.Equal(t, &ItemA{ItemBase: ItemBase{ID: "3", Name: "f"}}, got.Featured)
	assert.Equal(t, []Animal{{Name: "generic"}}, got.Pets)

	assert.ErrorIs(t, c.DecodeAny(node, got), gorkson.ErrInvalidTarget)
}

func TestCodec_NestedVariantMismatch(t *testing.T) {
	c := testCodec(t)

	// A struct typed field cannot hold a different struct variant.
	var got Shelter
	err := c.DecodeAny(parseDoc(t, `{"pets":[{"kind":"dog","name":"rex"}]}`), &got)
	var typeErr *gorkson.TypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestCodec_Bytes(t *testing.T) {
	c := testCodec(t)

	for _, f := range gorkson.Formats() {
		t.Run(f.Name(), func(t *testing.T) {
			data, err := c.Marshal(&ItemB{ItemBase: ItemBase{Name: "b"}, Color: "red"}, itemType, f)
			require.NoError(t, err)

			item, err := UnmarshalAs[Item](c, data, f)
			require.NoError(t, err)
			assert.Equal(t, &ItemB{ItemBase: ItemBase{Name: "b"}, Color: "red"}, item)

			v, err := c.Unmarshal(data, itemType, f)
			require.NoError(t, err)
			assert.IsType(t, &ItemB{}, v)

			list, err := c.Marshal([]Item{ItemA{}, ItemB{}}, nil, f)
			require.NoError(t, err)
			var items []Item
			require.NoError(t, c.UnmarshalInto(list, &items, f))
			require.Len(t, items, 2)
			assert.IsType(t, &ItemA{}, items[0])
			assert.IsType(t, &ItemB{}, items[1])
		})
	}

	data, err := c.Marshal(nil, itemType, gorkson.JSON)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestDecodeAs(t *testing.T) {
	c := testCodec(t)

	dog, err := DecodeAs[Dog](c, parseDoc(t, `{"name":"rex"}`))
	require.NoError(t, err)
	assert.Equal(t, Dog{Name: "rex"}, dog)

	ptr, err := DecodeAs[*Dog](c, parseDoc(t, `{"name":"rex"}`))
	require.NoError(t, err)
	assert.Equal(t, &Dog{Name: "rex"}, ptr)

	item, err := DecodeAs[Item](c, parseDoc(t, `{"@odata.type":"#Item.ItemA","Name":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, &ItemA{ItemBase: ItemBase{Name: "a"}}, item)

	none, err := DecodeAs[Item](c, nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = DecodeAs[Animal](c, parseDoc(t, `{"kind":"dog","name":"rex"}`))
	assert.Error(t, err, "Dog is not an Animal value")
}

func TestCodec_ConcurrentCallsDoNotShareGuards(t *testing.T) {
	c := testCodec(t)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("item-%d", i)
			var value Item = ItemA{ItemBase: ItemBase{Name: name}}
			if i%2 == 1 {
				value = ItemB{ItemBase: ItemBase{Name: name}}
			}
			doc, err := c.Encode(value, itemType)
			if err != nil {
				errs <- err
				return
			}
			if doc.Keys()[0] != "@odata.type" {
				errs <- fmt.Errorf("%s: discriminator not first", name)
				return
			}
			got, err := DecodeAs[Item](c, doc)
			if err != nil {
				errs <- err
				return
			}
			if reflect.TypeOf(got).Elem() != reflect.TypeOf(value) {
				errs <- fmt.Errorf("%s: decoded %T", name, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestCodec_Resolve(t *testing.T) {
	c := testCodec(t)

	got, err := c.Resolve(parseDoc(t, `{"@ODATA.TYPE":"#Item.ItemB","Name":"b"}`), itemType)
	require.NoError(t, err)
	assert.Equal(t, itemBType, got.GoType())

	got, err = c.Resolve(parseDoc(t, `{"Name":"b"}`), itemType)
	require.NoError(t, err)
	assert.Equal(t, itemType, got.GoType(), "no discriminator resolves to the base")

	_, err = c.Resolve(parseDoc(t, `{"@odata.type":"Nope"}`), itemType)
	var unresolved *UnresolvedSubtypeError
	assert.ErrorAs(t, err, &unresolved)

	_, err = c.Resolve(nil, nil)
	assert.Error(t, err)
}

func TestCodec_NonScalarDiscriminator(t *testing.T) {
	c := testCodec(t)

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"object", `{"kind":{"x":1},"name":"rex"}`, "an object"},
		{"array", `{"KIND":["dog"],"name":"rex"}`, "an array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(parseDoc(t, tt.doc), animalType)
			require.ErrorIs(t, err, ErrInvalidDiscriminator)
			assert.ErrorContains(t, err, tt.want)

			_, err = c.Resolve(parseDoc(t, tt.doc), animalType)
			assert.ErrorIs(t, err, ErrInvalidDiscriminator)
		})
	}

	_, err := c.Decode(parseDoc(t, `{"kind":7,"name":"rex"}`), animalType)
	var unresolved *UnresolvedSubtypeError
	require.ErrorAs(t, err, &unresolved, "scalars are matched by their text")
	assert.Equal(t, "7", unresolved.Value)
}
