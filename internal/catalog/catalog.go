package catalog

import (
	"errors"
	"fmt"

	"github.com/papyrus-app/papyrus/internal/document"
)

var (
	// ErrUnknownCollection indicates a collection that was never declared.
	ErrUnknownCollection = errors.New("catalog: unknown collection")
	// ErrInvalidShape indicates a document that does not match its
	// collection declaration.
	ErrInvalidShape = errors.New("catalog: invalid document shape")
)

// RefField declares a reference-typed field: where it points and whether it
// holds one identifier or an ordered list of them.
type RefField struct {
	Name   string
	Target string
	Slice  bool
}

// Collection declares one named set of documents. Required lists fields
// that must be present on insert; Refs declares reference fields by name.
// Fields not mentioned here are free-form.
type Collection struct {
	Name     string
	Required []string
	Refs     []RefField
}

// Catalog is the full set of collection declarations. It is built once at
// startup and read-only afterwards; a reference pointing at an undeclared
// collection is a configuration error, never a runtime data error.
type Catalog struct {
	collections map[string]Collection
	refs        map[string]map[string]RefField
}

// New validates the declarations and builds a catalog. Every RefField must
// target a declared collection.
func New(collections ...Collection) (*Catalog, error) {
	c := &Catalog{
		collections: make(map[string]Collection, len(collections)),
		refs:        make(map[string]map[string]RefField, len(collections)),
	}
	for _, col := range collections {
		if col.Name == "" {
			return nil, errors.New("catalog: collection with empty name")
		}
		if _, dup := c.collections[col.Name]; dup {
			return nil, fmt.Errorf("catalog: collection %q declared twice", col.Name)
		}
		c.collections[col.Name] = col
	}
	for _, col := range collections {
		fields := make(map[string]RefField, len(col.Refs))
		for _, rf := range col.Refs {
			if _, ok := c.collections[rf.Target]; !ok {
				return nil, fmt.Errorf("catalog: %s.%s targets undeclared collection %q", col.Name, rf.Name, rf.Target)
			}
			if _, dup := fields[rf.Name]; dup {
				return nil, fmt.Errorf("catalog: %s.%s declared twice", col.Name, rf.Name)
			}
			fields[rf.Name] = rf
		}
		c.refs[col.Name] = fields
	}
	return c, nil
}

// Collection looks up a declaration by name.
func (c *Catalog) Collection(name string) (Collection, bool) {
	col, ok := c.collections[name]
	return col, ok
}

// RefField looks up a declared reference field on a collection.
func (c *Catalog) RefField(collection, field string) (RefField, bool) {
	fields, ok := c.refs[collection]
	if !ok {
		return RefField{}, false
	}
	rf, ok := fields[field]
	return rf, ok
}

// Collections returns the declared collection names.
func (c *Catalog) Collections() []string {
	names := make([]string, 0, len(c.collections))
	for name := range c.collections {
		names = append(names, name)
	}
	return names
}

// Validate checks a document against its collection declaration. It runs at
// the storage boundary on writes: required fields must be present and
// reference fields must hold an identifier string (or a list of them).
// Embedded documents are free-form and never validated as references.
func (c *Catalog) Validate(collection string, doc document.Document) error {
	col, ok := c.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	for _, req := range col.Required {
		if _, ok := doc[req]; !ok {
			return fmt.Errorf("%w: %s missing required field %q", ErrInvalidShape, collection, req)
		}
	}
	for _, rf := range col.Refs {
		v, ok := doc[rf.Name]
		if !ok || v == nil {
			continue
		}
		if err := validateRefValue(rf, v); err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrInvalidShape, collection, rf.Name, err)
		}
	}
	return nil
}

func validateRefValue(rf RefField, v any) error {
	if rf.Slice {
		items, ok := v.([]any)
		if !ok {
			if _, ok := v.([]string); ok {
				return nil
			}
			return fmt.Errorf("expected list of identifiers, got %T", v)
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("expected identifier, got %T", item)
			}
		}
		return nil
	}
	if _, ok := v.(string); !ok {
		return fmt.Errorf("expected identifier, got %T", v)
	}
	return nil
}
