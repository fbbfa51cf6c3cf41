package vkng

import "github.com/cockroachdb/errors"

var errUnknownHandle = errors.New("unknown handle")

// arena maps the opaque handles handed to package present onto the native
// objects they stand for. Handle values are never reused.
type arena[H ~uint64, T any] struct {
	kind  string
	next  H
	items map[H]T
}

func newArena[H ~uint64, T any](kind string) *arena[H, T] {
	return &arena[H, T]{
		kind:  kind,
		items: make(map[H]T),
	}
}

func (a *arena[H, T]) add(item T) H {
	a.next++
	a.items[a.next] = item
	return a.next
}

func (a *arena[H, T]) get(h H) (T, error) {
	item, ok := a.items[h]
	if !ok {
		return item, errors.Wrapf(errUnknownHandle, "%s %d", a.kind, h)
	}
	return item, nil
}

// take removes h and returns what it pointed at.
func (a *arena[H, T]) take(h H) (T, bool) {
	item, ok := a.items[h]
	if ok {
		delete(a.items, h)
	}
	return item, ok
}

func (a *arena[H, T]) len() int {
	return len(a.items)
}
