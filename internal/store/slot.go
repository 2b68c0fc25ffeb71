package store

import (
	"sync"

	"storefront-checkout/internal/model"
)

// Slot holds at most one pending buy-now item. It survives a single page
// navigation: Put before navigating to checkout, Take on the checkout page.
// Take clears the slot so a stale item can never leak into a later,
// unrelated checkout session.
type Slot struct {
	mu   sync.Mutex
	item *model.LineItem
}

func NewSlot() *Slot {
	return &Slot{}
}

// Put stores the pending item, replacing any previous one.
func (s *Slot) Put(item model.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.item = &item
}

// Take returns the pending item and clears the slot.
func (s *Slot) Take() (model.LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item == nil {
		return model.LineItem{}, false
	}
	item := *s.item
	s.item = nil
	return item, true
}

// Peek returns the pending item without consuming it.
func (s *Slot) Peek() (model.LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item == nil {
		return model.LineItem{}, false
	}
	return *s.item, true
}

func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.item = nil
}
