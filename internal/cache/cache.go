package cache

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/srg/mijia/internal/sensor"
)

// ErrAlreadyInitialized is returned when Initialize is called twice.
var ErrAlreadyInitialized = errors.New("readings cache already initialized")

// Entry is an immutable snapshot of the last known state of one sensor.
type Entry struct {
	Sensor    sensor.Identifier
	Reading   sensor.Reading
	UpdatedAt time.Time // zero until the first poll result is stored
}

// Cache maps sensor identifiers to their latest Reading.
//
// Values are stored as pointers to immutable entries, so a reader always sees
// the three fields of a Reading from the same poll. The key set is fixed by
// Initialize and never changes afterwards.
type Cache struct {
	entries     *hashmap.Map[sensor.Identifier, *Entry]
	initialized atomic.Bool
	now         func() time.Time
}

// New creates an empty, uninitialized cache.
func New() *Cache {
	return &Cache{
		entries: hashmap.New[sensor.Identifier, *Entry](),
		now:     time.Now,
	}
}

// Initialize creates one entry per identifier holding the unavailable sentinel.
func (c *Cache) Initialize(ids []sensor.Identifier) error {
	if !c.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}
	for _, id := range ids {
		c.entries.Insert(id, &Entry{Sensor: id, Reading: sensor.Unavailable()})
	}
	return nil
}

// Put replaces the reading of a known sensor.
func (c *Cache) Put(id sensor.Identifier, r sensor.Reading) error {
	if _, ok := c.entries.Get(id); !ok {
		return fmt.Errorf("%w: %s", sensor.ErrUnknownSensor, id)
	}
	c.entries.Set(id, &Entry{Sensor: id, Reading: r, UpdatedAt: c.now()})
	return nil
}

// Get returns the current reading of a known sensor.
func (c *Cache) Get(id sensor.Identifier) (sensor.Reading, error) {
	e, err := c.Entry(id)
	if err != nil {
		return sensor.Reading{}, err
	}
	return e.Reading, nil
}

// Entry returns the full snapshot for a known sensor.
func (c *Cache) Entry(id sensor.Identifier) (Entry, error) {
	e, ok := c.entries.Get(id)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", sensor.ErrUnknownSensor, id)
	}
	return *e, nil
}

// Contains reports whether id is part of the cache key set.
func (c *Cache) Contains(id sensor.Identifier) bool {
	_, ok := c.entries.Get(id)
	return ok
}

// Len returns the number of sensors held by the cache.
func (c *Cache) Len() int {
	return c.entries.Len()
}

