package bindingtable

import (
	"fmt"
	"sync"
)

type BindingTable interface {
	FindSlot(candidate Entry) SlotResult
	Get(index int) (Entry, error)
	Insert(candidate Entry) error
	Delete(candidate Entry) error
	Reset()
	Load(entries map[int]Entry) error
	Entries() map[int]Entry
	Count() int
	SubscribeOnChange(callback func(ch Change))
}

func New() BindingTable {
	return &bindingTable{}
}

// bindingTable delivers changes to subscribers in the order they were
// applied. Subscribers run while later mutations wait and must not call
// back into the table.
type bindingTable struct {
	mu          sync.Mutex
	notifyMu    sync.Mutex
	slots       [Capacity]Entry
	subscribers []func(ch Change)
}

// FindSlot scans the table once. An exact match ends the scan and wins,
// otherwise the first unused slot is returned, otherwise SlotFull.
func (t *bindingTable) FindSlot(candidate Entry) SlotResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.findSlot(candidate)
}

func (t *bindingTable) findSlot(candidate Entry) SlotResult {
	ret := SlotResult{Kind: SlotFull}

	for i := range t.slots {
		if t.slots[i].Type == Unused {
			if ret.Kind == SlotFull {
				ret = SlotResult{Kind: SlotFree, Index: i}
			}
			continue
		}

		if t.slots[i].matches(candidate) {
			return SlotResult{Kind: SlotFound, Index: i}
		}
	}

	return ret
}

func (t *bindingTable) Get(index int) (Entry, error) {
	if index < 0 || index >= Capacity {
		return Entry{}, fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.slots[index], nil
}

func (t *bindingTable) Insert(candidate Entry) error {
	if candidate.Type != Unicast && candidate.Type != Multicast {
		return fmt.Errorf("%w: type %v", ErrInvalidEntry, candidate.Type)
	}

	t.mu.Lock()
	slot := t.findSlot(candidate)
	switch slot.Kind {
	case SlotFull:
		t.mu.Unlock()
		return ErrTableFull
	case SlotFound:
		t.mu.Unlock()
		return fmt.Errorf("%w at index %d", ErrAlreadyExists, slot.Index)
	}
	t.slots[slot.Index] = candidate

	t.notifyLocked(Change{Op: ChangeSet, Index: slot.Index, Entry: candidate})

	return nil
}

func (t *bindingTable) Delete(candidate Entry) error {
	t.mu.Lock()
	slot := t.findSlot(candidate)
	if slot.Kind != SlotFound {
		t.mu.Unlock()
		return ErrNoSuchEntry
	}
	removed := t.slots[slot.Index]
	t.slots[slot.Index] = Entry{}

	t.notifyLocked(Change{Op: ChangeDelete, Index: slot.Index, Entry: removed})

	return nil
}

func (t *bindingTable) Reset() {
	t.mu.Lock()
	t.slots = [Capacity]Entry{}

	t.notifyLocked(Change{Op: ChangeReset})
}

// Load replaces the table content with entries keyed by slot index. Nothing
// is applied if any entry is out of range, unused or a duplicate. Subscribers
// are not notified.
func (t *bindingTable) Load(entries map[int]Entry) error {
	var slots [Capacity]Entry

	for index, e := range entries {
		if index < 0 || index >= Capacity {
			return fmt.Errorf("%w: %d", ErrOutOfRange, index)
		}
		if e.Type != Unicast && e.Type != Multicast {
			return fmt.Errorf("%w: type %v at index %d", ErrInvalidEntry, e.Type, index)
		}
		slots[index] = e
	}

	for i := range slots {
		if slots[i].Type == Unused {
			continue
		}
		for j := i + 1; j < Capacity; j++ {
			if slots[j].Type != Unused && slots[j].matches(slots[i]) {
				return fmt.Errorf("%w: indexes %d and %d", ErrAlreadyExists, i, j)
			}
		}
	}

	t.mu.Lock()
	t.slots = slots
	t.mu.Unlock()

	return nil
}

// Entries returns a copy of all used slots keyed by index.
func (t *bindingTable) Entries() map[int]Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	ret := make(map[int]Entry)
	for i, e := range t.slots {
		if e.Type != Unused {
			ret[i] = e
		}
	}

	return ret
}

func (t *bindingTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, e := range t.slots {
		if e.Type != Unused {
			n++
		}
	}

	return n
}

func (t *bindingTable) SubscribeOnChange(callback func(ch Change)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.subscribers = append(t.subscribers, callback)
}

// notifyLocked must be called with mu held and releases it. notifyMu is
// taken before mu is released, so the next mutation cannot be delivered
// before this one.
func (t *bindingTable) notifyLocked(ch Change) {
	subscribers := make([]func(ch Change), len(t.subscribers))
	copy(subscribers, t.subscribers)

	t.notifyMu.Lock()
	t.mu.Unlock()
	defer t.notifyMu.Unlock()

	for _, cb := range subscribers {
		cb(ch)
	}
}
