package ninjadb

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/goccy/go-json"
)

// Collection provides typed operations for one entity type on top of a Store.
// Values travel as JSON: exported fields with json tags become document
// fields, and the field tagged `json:"id"` (or named ID) receives the id.
//
// Example:
//
//	type User struct {
//	    ID    string `json:"id"`
//	    Name  string `json:"name"`
//	    Email string `json:"email"`
//	}
//
//	users := ninjadb.NewCollection[User](store)
//	id, err := users.Create(ctx, &User{Name: "Alice"})
type Collection[T any] struct {
	store   *Store
	name    string
	idField int    // struct field index, -1 when T has no id field
	idKey   string // JSON name of the id field
}

// NewCollection creates a typed collection. The collection name is the
// type name (User -> "User") unless given explicitly.
func NewCollection[T any](store *Store, name ...string) *Collection[T] {
	typ := reflect.TypeOf((*T)(nil)).Elem()

	collectionName := typ.Name()
	if len(name) > 0 && name[0] != "" {
		collectionName = name[0]
	}

	idField, idKey := idFieldIndex(typ)
	return &Collection[T]{
		store:   store,
		name:    collectionName,
		idField: idField,
		idKey:   idKey,
	}
}

// Name returns the collection name
func (c *Collection[T]) Name() string {
	return c.name
}

// Store returns the underlying mapper
func (c *Collection[T]) Store() *Store {
	return c.store
}

// Create stores item and writes the new id back into it.
func (c *Collection[T]) Create(ctx context.Context, item *T) (string, error) {
	if item == nil {
		return "", fmt.Errorf("item cannot be nil")
	}

	doc, err := toDocument(item)
	if err != nil {
		return "", err
	}
	delete(doc, c.idKey)

	id, err := c.store.Create(ctx, c.name, doc)
	if err != nil {
		return "", err
	}

	c.setID(item, id)
	return id, nil
}

// Get loads the item with the given id.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	rec, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](rec, c.idKey)
}

// Edit sets the named fields (by their stored names) on an existing item.
func (c *Collection[T]) Edit(ctx context.Context, id string, fields Fields) error {
	return c.store.Edit(ctx, c.name, id, fields)
}

// Delete removes an item. Deleting a missing item is not an error.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// Fetch returns up to limit items matching every filter (limit <= 0: all).
func (c *Collection[T]) Fetch(ctx context.Context, limit int, filters ...Filter) ([]*T, error) {
	records, err := c.store.Fetch(ctx, c.name, limit, filters...)
	if err != nil {
		return nil, err
	}

	items := make([]*T, 0, len(records))
	for _, rec := range records {
		item, err := fromRecord[T](rec, c.idKey)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// FetchOne returns the first item matching every filter, or nil when
// nothing matches.
func (c *Collection[T]) FetchOne(ctx context.Context, filters ...Filter) (*T, error) {
	rec, ok, err := c.store.FetchOne(ctx, c.name, filters...)
	if err != nil || !ok {
		return nil, err
	}
	return fromRecord[T](rec, c.idKey)
}

func (c *Collection[T]) setID(item *T, id string) {
	if c.idField < 0 {
		return
	}
	field := reflect.ValueOf(item).Elem().Field(c.idField)
	if field.CanSet() && field.Kind() == reflect.String {
		field.SetString(id)
	}
}

// idFieldIndex finds the string field serialized as "id", falling back to
// an untagged field named ID.
func idFieldIndex(typ reflect.Type) (int, string) {
	if typ.Kind() != reflect.Struct {
		return -1, IDField
	}

	byName := -1
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() || field.Type.Kind() != reflect.String {
			continue
		}
		tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if tag == IDField {
			return i, IDField
		}
		if tag == "" && field.Name == "ID" {
			byName = i
		}
	}
	if byName >= 0 {
		return byName, "ID"
	}
	return -1, IDField
}

func toDocument(item any) (Document, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"type":   fmt.Sprintf("%T", item),
			"reason": err.Error(),
		})
	}
	return decodeDocument(data)
}

func fromRecord[T any](rec Record, idKey string) (*T, error) {
	doc := rec.Fields.Clone()
	doc[idKey] = rec.ID

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"id":     rec.ID,
			"reason": err.Error(),
		})
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"id":     rec.ID,
			"type":   fmt.Sprintf("%T", item),
			"reason": err.Error(),
		})
	}
	return &item, nil
}
