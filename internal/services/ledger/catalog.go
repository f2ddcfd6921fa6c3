package ledger

import (
	"fmt"
	"strings"
)

type Item struct {
	ID          int
	Name        string
	Price       int64
	Description string
}

// Key is the inventory key the item is stored under.
func (i Item) Key() string { return strings.ToLower(i.Name) }

// DefaultItems is the store the bot ships with.
var DefaultItems = []Item{
	{ID: 3213, Name: "Cheese", Price: 100, Description: "A delicious snack."},
	{ID: 5631, Name: "Snoopy", Price: 700, Description: "A cute plush toy."},
	{ID: 7675, Name: "Miffy", Price: 1500, Description: "A lovable bunny."},
	{ID: 5414, Name: "Kiiroitori", Price: 2300, Description: "A cute yellow bird."},
	{ID: 6573, Name: "Rilakumma", Price: 3500, Description: "A lazy bear."},
	{ID: 8093, Name: "Korilakkuma", Price: 5000, Description: "A mischievous bear."},
}

// Catalog is immutable after NewCatalog returns.
type Catalog struct {
	items []Item
	byKey map[string]Item
}

func NewCatalog(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byKey: make(map[string]Item, len(items)),
	}

	for _, it := range items {
		key := it.Key()
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("item %d has no name", it.ID)
		}

		if it.Price <= 0 {
			return nil, fmt.Errorf("item %q: price must be positive", it.Name)
		}

		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate item %q", it.Name)
		}

		c.byKey[key] = it
		c.items = append(c.items, it)
	}

	return c, nil
}

// Lookup resolves name case-insensitively.
func (c *Catalog) Lookup(name string) (Item, error) {
	it, ok := c.byKey[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownItem, name)
	}

	return it, nil
}

// Items returns the catalog in display order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)

	return out
}
