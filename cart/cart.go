// Package cart holds the per-visitor shopping cart and its pricing.
package cart

import (
	"sort"
	"strconv"
)

// State maps a menu item id (as a decimal string) to a requested quantity.
// String keys keep the value gob and JSON friendly inside a session cookie.
type State map[string]int

// Entry is one parsed cart line.
type Entry struct {
	ItemID   uint
	Quantity int
}

func Key(itemID uint) string {
	return strconv.FormatUint(uint64(itemID), 10)
}

func New() State { return State{} }

func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s State) Quantity(itemID uint) int {
	return s[Key(itemID)]
}

// Add increments the line by delta, capped at stock. It returns the new quantity.
func (s State) Add(itemID uint, delta, stock int) int {
	return s.Set(itemID, s.Quantity(itemID)+delta, stock)
}

// Set stores qty clamped to [0, stock]. A resulting zero removes the line.
func (s State) Set(itemID uint, qty, stock int) int {
	if stock < 0 {
		stock = 0
	}
	if qty > stock {
		qty = stock
	}
	if qty <= 0 {
		delete(s, Key(itemID))
		return 0
	}
	s[Key(itemID)] = qty
	return qty
}

// Remove drops the line and reports whether it existed.
func (s State) Remove(itemID uint) bool {
	key := Key(itemID)
	_, ok := s[key]
	delete(s, key)
	return ok
}

// Entries returns valid lines sorted by item id. Unparseable keys and
// non-positive quantities are ignored.
func (s State) Entries() []Entry {
	entries := make([]Entry, 0, len(s))
	for k, qty := range s {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil || id == 0 || qty <= 0 {
			continue
		}
		entries = append(entries, Entry{ItemID: uint(id), Quantity: qty})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ItemID < entries[j].ItemID })
	return entries
}

func (s State) ItemIDs() []uint {
	entries := s.Entries()
	ids := make([]uint, len(entries))
	for i, e := range entries {
		ids[i] = e.ItemID
	}
	return ids
}

func (s State) IsEmpty() bool {
	return len(s.Entries()) == 0
}

func (s State) TotalQuantity() int {
	n := 0
	for _, e := range s.Entries() {
		n += e.Quantity
	}
	return n
}
