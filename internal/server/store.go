package server

import (
	"reflect"
	"sync"

	"github.com/gork-labs/gork/internal/models"
)

type idSetter interface {
	SetID(id int)
}

// store keeps the items created through the API in memory.
type store struct {
	mu     sync.RWMutex
	nextID int
	items  []models.Item
}

func newStore(seed []models.Item) *store {
	s := &store{}
	for _, item := range seed {
		s.add(item)
	}
	return s
}

// add assigns the next identifier to item and stores it. Pointers are
// stored as the values they point to.
func (s *store) add(item models.Item) models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rv := reflect.ValueOf(item)
	if rv.Kind() != reflect.Ptr {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		rv = ptr
	}
	if setter, ok := rv.Interface().(idSetter); ok {
		setter.SetID(s.nextID)
	}
	stored := rv.Elem().Interface().(models.Item)
	s.items = append(s.items, stored)
	return stored
}

// list returns the stored items accepted by keep, in insertion order.
func (s *store) list(keep func(models.Item) bool) []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	return out
}
