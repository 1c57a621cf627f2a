// Package catalog holds the static partition of product names into the four
// groups every dashboard view is scoped by.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

type GroupID string

const (
	CerealPackages  GroupID = "cereal_packages"
	ChickenPackages GroupID = "chicken_packages"
	CallToOrder     GroupID = "call_to_order"
	Others          GroupID = "others"

	DefaultGroup = CerealPackages
)

// Groups lists the recognised group ids in display order.
var Groups = []GroupID{CerealPackages, ChickenPackages, CallToOrder, Others}

func (g GroupID) Valid() bool {
	switch g {
	case CerealPackages, ChickenPackages, CallToOrder, Others:
		return true
	}
	return false
}

// Catalog is one named, immutable set of product names.
type Catalog struct {
	ID    GroupID
	Label string
	items []string
	set   map[string]struct{}
}

func newCatalog(id GroupID, label string, items []string) *Catalog {
	c := &Catalog{
		ID:    id,
		Label: label,
		items: make([]string, 0, len(items)),
		set:   make(map[string]struct{}, len(items)),
	}
	for _, item := range items {
		name := strings.TrimSpace(item)
		if name == "" {
			continue
		}
		if _, dup := c.set[name]; dup {
			continue
		}
		c.set[name] = struct{}{}
		c.items = append(c.items, name)
	}
	return c
}

func (c *Catalog) Contains(item string) bool {
	_, ok := c.set[item]
	return ok
}

// Items returns a copy of the catalog's names in declaration order.
func (c *Catalog) Items() []string {
	out := make([]string, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// Registry is the full set of four catalogs. It is read-only after construction
// and safe for concurrent use.
type Registry struct {
	catalogs map[GroupID]*Catalog
	owner    map[string]GroupID
}

// Default returns the registry built from the compiled-in product lists.
func Default() *Registry {
	entries := make([]File, 0, len(defaultGroups))
	for _, g := range defaultGroups {
		entries = append(entries, File{ID: string(g.id), Label: g.label, Items: g.items})
	}
	reg, err := build(entries)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid built-in catalogs: %v", err))
	}
	return reg
}

// File is the YAML shape of one group in a catalog override file.
type File struct {
	ID    string   `yaml:"id"`
	Label string   `yaml:"label"`
	Items []string `yaml:"items"`
}

type fileDocument struct {
	Groups []File `yaml:"groups"`
}

// LoadFile reads a YAML catalog override. All four groups must be present and
// no product may belong to more than one of them.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return build(doc.Groups)
}

func build(entries []File) (*Registry, error) {
	reg := &Registry{
		catalogs: make(map[GroupID]*Catalog, len(Groups)),
		owner:    make(map[string]GroupID),
	}

	for _, entry := range entries {
		id := GroupID(strings.TrimSpace(entry.ID))
		if !id.Valid() {
			return nil, fmt.Errorf("unknown catalog group %q", entry.ID)
		}
		if _, dup := reg.catalogs[id]; dup {
			return nil, fmt.Errorf("catalog group %q declared twice", id)
		}
		label := entry.Label
		if label == "" {
			label = string(id)
		}
		c := newCatalog(id, label, entry.Items)
		for _, item := range c.items {
			if other, taken := reg.owner[item]; taken {
				return nil, fmt.Errorf("product %q belongs to both %s and %s", item, other, id)
			}
			reg.owner[item] = id
		}
		reg.catalogs[id] = c
	}

	for _, id := range Groups {
		if _, ok := reg.catalogs[id]; !ok {
			return nil, fmt.Errorf("catalog group %q missing", id)
		}
	}
	return reg, nil
}

// Select returns the catalog for id. Unknown or empty ids fall back to the
// cereal packages catalog.
func (r *Registry) Select(id GroupID) *Catalog {
	if c, ok := r.catalogs[id]; ok {
		return c
	}
	return r.catalogs[DefaultGroup]
}

// Lookup reports which group a product belongs to.
func (r *Registry) Lookup(item string) (GroupID, bool) {
	id, ok := r.owner[item]
	return id, ok
}

// All returns the catalogs in display order.
func (r *Registry) All() []*Catalog {
	out := make([]*Catalog, 0, len(Groups))
	for _, id := range Groups {
		out = append(out, r.catalogs[id])
	}
	return out
}

// Uncatalogued returns the names from items that belong to no group, in input order.
func (r *Registry) Uncatalogued(items []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, item := range items {
		if _, ok := r.owner[item]; ok {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
