package dataset

import "fmt"

// Collection holds the tables of one pipeline run keyed by source
// identifier. It remembers insertion order so iteration is stable.
type Collection struct {
	order  []string
	tables map[string]*Table
}

func NewCollection() *Collection {
	return &Collection{tables: make(map[string]*Table)}
}

// Put adds or replaces a table. Replacing keeps the original position.
func (c *Collection) Put(id string, t *Table) {
	if _, ok := c.tables[id]; !ok {
		c.order = append(c.order, id)
	}
	c.tables[id] = t
}

func (c *Collection) Get(id string) (*Table, bool) {
	t, ok := c.tables[id]
	return t, ok
}

// Lookup returns the table or an error naming the missing source.
func (c *Collection) Lookup(id string) (*Table, error) {
	t, ok := c.tables[id]
	if !ok {
		return nil, fmt.Errorf("collection has no table %q", id)
	}
	return t, nil
}

// IDs returns the source identifiers in insertion order.
func (c *Collection) IDs() []string {
	return append([]string(nil), c.order...)
}

func (c *Collection) Len() int { return len(c.order) }
