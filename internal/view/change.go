package view

import (
	"encoding/json"
	"fmt"
)

// Op discriminates the change variants on the wire.
type Op string

const (
	// OpValueChanged replaces a value view's current value.
	OpValueChanged Op = "value_changed"
	// OpCounterIncremented raises a counter view by a delta.
	OpCounterIncremented Op = "counter_incremented"
	// OpCounterDecremented lowers a counter view by a delta.
	OpCounterDecremented Op = "counter_decremented"
	// OpCounterReset replaces a counter view's value outright.
	OpCounterReset Op = "counter_reset"
	// OpRefChanged replaces a reference view's target entity.
	OpRefChanged Op = "ref_changed"
	// OpListItemAdded appends an item to a reference-list view.
	OpListItemAdded Op = "list_item_added"
	// OpListItemAddedIfAbsent appends an item unless the applier already holds it.
	OpListItemAddedIfAbsent Op = "list_item_added_if_absent"
	// OpListItemRemoved removes an item from a reference-list view.
	OpListItemRemoved Op = "list_item_removed"
	// OpListItemChanged substitutes one item identifier for another.
	OpListItemChanged Op = "list_item_changed"
	// OpListItemMoved repositions an item within a reference-list view.
	OpListItemMoved Op = "list_item_moved"
	// OpListCleared empties a reference-list view.
	OpListCleared Op = "list_cleared"
	// OpCounterAttrIncremented raises a keyed counter attribute by a delta.
	OpCounterAttrIncremented Op = "counter_attr_incremented"
	// OpCounterAttrDecremented lowers a keyed counter attribute by a delta.
	OpCounterAttrDecremented Op = "counter_attr_decremented"
	// OpCounterAttrReset replaces a keyed counter attribute's value outright.
	OpCounterAttrReset Op = "counter_attr_reset"
	// OpValueAttrChanged replaces a keyed value attribute.
	OpValueAttrChanged Op = "value_attr_changed"
)

// Change is one already-decided mutation record queued for delivery. The set
// of implementations is closed; records are built by view mutators, never
// parsed from untrusted input at this layer.
type Change interface {
	Kind() Op
}

// ValueChanged records a value view overwrite.
type ValueChanged struct {
	NewValue any
}

// Kind returns the wire discriminator.
func (ValueChanged) Kind() Op { return OpValueChanged }

// CounterIncremented records a counter delta.
type CounterIncremented struct {
	By int64
}

// Kind returns the wire discriminator.
func (CounterIncremented) Kind() Op { return OpCounterIncremented }

// CounterDecremented records a negative counter delta.
type CounterDecremented struct {
	By int64
}

// Kind returns the wire discriminator.
func (CounterDecremented) Kind() Op { return OpCounterDecremented }

// CounterReset records a counter overwrite.
type CounterReset struct {
	NewValue int64
}

// Kind returns the wire discriminator.
func (CounterReset) Kind() Op { return OpCounterReset }

// RefChanged records a reference view overwrite. A nil NewValue clears the
// reference.
type RefChanged struct {
	NewValue *string
}

// Kind returns the wire discriminator.
func (RefChanged) Kind() Op { return OpRefChanged }

// ListItemAdded records an unconditional list append.
type ListItemAdded struct {
	ItemID string
}

// Kind returns the wire discriminator.
func (ListItemAdded) Kind() Op { return OpListItemAdded }

// ListItemAddedIfAbsent records a conditional list append; the downstream
// applier skips it when the item is already present.
type ListItemAddedIfAbsent struct {
	ItemID string
}

// Kind returns the wire discriminator.
func (ListItemAddedIfAbsent) Kind() Op { return OpListItemAddedIfAbsent }

// ListItemRemoved records a list removal.
type ListItemRemoved struct {
	ItemID string
}

// Kind returns the wire discriminator.
func (ListItemRemoved) Kind() Op { return OpListItemRemoved }

// ListItemChanged records an in-place item substitution.
type ListItemChanged struct {
	OldItemID string
	NewItemID string
}

// Kind returns the wire discriminator.
func (ListItemChanged) Kind() Op { return OpListItemChanged }

// ListItemMoved records an item repositioning.
type ListItemMoved struct {
	ItemID   string
	NewIndex int
}

// Kind returns the wire discriminator.
func (ListItemMoved) Kind() Op { return OpListItemMoved }

// ListCleared records the list being emptied.
type ListCleared struct{}

// Kind returns the wire discriminator.
func (ListCleared) Kind() Op { return OpListCleared }

// CounterAttrIncremented records a delta on a keyed counter attribute.
type CounterAttrIncremented struct {
	ItemID   string
	AttrName string
	By       int64
}

// Kind returns the wire discriminator.
func (CounterAttrIncremented) Kind() Op { return OpCounterAttrIncremented }

// CounterAttrDecremented records a negative delta on a keyed counter attribute.
type CounterAttrDecremented struct {
	ItemID   string
	AttrName string
	By       int64
}

// Kind returns the wire discriminator.
func (CounterAttrDecremented) Kind() Op { return OpCounterAttrDecremented }

// CounterAttrReset records a keyed counter attribute overwrite.
type CounterAttrReset struct {
	ItemID   string
	AttrName string
	NewValue int64
}

// Kind returns the wire discriminator.
func (CounterAttrReset) Kind() Op { return OpCounterAttrReset }

// ValueAttrChanged records a keyed value attribute overwrite.
type ValueAttrChanged struct {
	ItemID   string
	AttrName string
	NewValue any
}

// Kind returns the wire discriminator.
func (ValueAttrChanged) Kind() Op { return OpValueAttrChanged }

// MarshalChange encodes a change record into its wire shape: an object with
// the "op" discriminator and the variant's payload fields. The switch is
// exhaustive over the closed variant set; an unknown implementation is a
// programming error and reported as one.
func MarshalChange(change Change) ([]byte, error) {
	switch c := change.(type) {
	case ValueChanged:
		return json.Marshal(struct {
			Op       Op  `json:"op"`
			NewValue any `json:"new_value"`
		}{OpValueChanged, c.NewValue})
	case CounterIncremented:
		return json.Marshal(struct {
			Op Op    `json:"op"`
			By int64 `json:"by"`
		}{OpCounterIncremented, c.By})
	case CounterDecremented:
		return json.Marshal(struct {
			Op Op    `json:"op"`
			By int64 `json:"by"`
		}{OpCounterDecremented, c.By})
	case CounterReset:
		return json.Marshal(struct {
			Op       Op    `json:"op"`
			NewValue int64 `json:"new_value"`
		}{OpCounterReset, c.NewValue})
	case RefChanged:
		return json.Marshal(struct {
			Op       Op      `json:"op"`
			NewValue *string `json:"new_value"`
		}{OpRefChanged, c.NewValue})
	case ListItemAdded:
		return json.Marshal(struct {
			Op     Op     `json:"op"`
			ItemID string `json:"item_id"`
		}{OpListItemAdded, c.ItemID})
	case ListItemAddedIfAbsent:
		return json.Marshal(struct {
			Op     Op     `json:"op"`
			ItemID string `json:"item_id"`
		}{OpListItemAddedIfAbsent, c.ItemID})
	case ListItemRemoved:
		return json.Marshal(struct {
			Op     Op     `json:"op"`
			ItemID string `json:"item_id"`
		}{OpListItemRemoved, c.ItemID})
	case ListItemChanged:
		return json.Marshal(struct {
			Op        Op     `json:"op"`
			OldItemID string `json:"old_item_id"`
			NewItemID string `json:"new_item_id"`
		}{OpListItemChanged, c.OldItemID, c.NewItemID})
	case ListItemMoved:
		return json.Marshal(struct {
			Op       Op     `json:"op"`
			ItemID   string `json:"item_id"`
			NewIndex int    `json:"new_index"`
		}{OpListItemMoved, c.ItemID, c.NewIndex})
	case ListCleared:
		return json.Marshal(struct {
			Op Op `json:"op"`
		}{OpListCleared})
	case CounterAttrIncremented:
		return json.Marshal(struct {
			Op       Op     `json:"op"`
			ItemID   string `json:"item_id"`
			AttrName string `json:"attr_name"`
			By       int64  `json:"by"`
		}{OpCounterAttrIncremented, c.ItemID, c.AttrName, c.By})
	case CounterAttrDecremented:
		return json.Marshal(struct {
			Op       Op     `json:"op"`
			ItemID   string `json:"item_id"`
			AttrName string `json:"attr_name"`
			By       int64  `json:"by"`
		}{OpCounterAttrDecremented, c.ItemID, c.AttrName, c.By})
	case CounterAttrReset:
		return json.Marshal(struct {
			Op       Op     `json:"op"`
			ItemID   string `json:"item_id"`
			AttrName string `json:"attr_name"`
			NewValue int64  `json:"new_value"`
		}{OpCounterAttrReset, c.ItemID, c.AttrName, c.NewValue})
	case ValueAttrChanged:
		return json.Marshal(struct {
			Op       Op     `json:"op"`
			ItemID   string `json:"item_id"`
			AttrName string `json:"attr_name"`
			NewValue any    `json:"new_value"`
		}{OpValueAttrChanged, c.ItemID, c.AttrName, c.NewValue})
	default:
		return nil, fmt.Errorf("view: unknown change variant %T", change)
	}
}
