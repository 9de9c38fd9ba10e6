// Package list implements a generic doubly linked list with positional and value-based operations.
//
// The list keeps references to its first (head) and last (tail) node plus a node count, so appending,
// prepending, popping and shifting are O(1). Indexed access, search and indexed insert/remove walk the chain
// forward from the head and are O(n).
//
// Values are opaque to the list. Membership and search use the equality function given to New; lists built
// with NewComparable use Go's `==` and the zero value List falls back to reflect.DeepEqual.
//
// A List is not safe for concurrent use. Callers sharing a list between goroutines must guard the whole list
// with a single lock.
package list

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/nobletooth/dlist/pkg/utils"
)

var (
	// ErrEmptyList is returned when removing from either end of an empty list.
	ErrEmptyList = errors.New("list is empty")
	// ErrBrokenLink is wrapped by CheckIntegrity when the chain doesn't match the list bookkeeping.
	ErrBrokenLink = errors.New("broken list link")
)

// List is a doubly linked list of values of type V.
type List[V any] struct {
	head  *Node[V]
	tail  *Node[V]
	size  int
	equal utils.EqualFn[V] // Used by Contains and Find; nil means deep equality.
}

// New returns an empty list that compares values with the given `equal` function.
func New[V any](equal utils.EqualFn[V]) *List[V] {
	if equal == nil {
		utils.RaiseInvariant("list", "nil_equal_fn",
			"Got a nil equality function, falling back to deep equality.")
	}
	return &List[V]{equal: equal}
}

// NewComparable returns an empty list that compares values with `==`.
func NewComparable[V comparable]() *List[V] {
	return &List[V]{equal: utils.Equal[V]}
}

// Len returns the number of nodes in the list.
func (l *List[V]) Len() int {
	return l.size
}

// Head returns the first node of the list or nil if the list is empty.
func (l *List[V]) Head() *Node[V] {
	return l.head
}

// Tail returns the last node of the list or nil if the list is empty.
func (l *List[V]) Tail() *Node[V] {
	return l.tail
}

func (l *List[V]) valuesEqual(x, y V) bool {
	if l.equal != nil {
		return l.equal(x, y)
	}
	return reflect.DeepEqual(x, y)
}

// Append adds a new node holding `v` after the current tail and returns it.
func (l *List[V]) Append(v V) *Node[V] {
	n := &Node[V]{Value: v, prev: l.tail}
	if l.tail != nil {
		l.tail.next = n
	} else { // List was empty.
		l.head = n
	}
	l.tail = n
	l.size++
	return n
}

// Prepend adds a new node holding `v` before the current head and returns it.
func (l *List[V]) Prepend(v V) *Node[V] {
	n := &Node[V]{Value: v, next: l.head}
	if l.head != nil {
		l.head.prev = n
	} else { // List was empty.
		l.tail = n
	}
	l.head = n
	l.size++
	return n
}

// At returns the node at the given 0-based `index` or nil if there is no such node.
func (l *List[V]) At(index int) *Node[V] {
	if index < 0 || index >= l.size {
		return nil
	}
	n := l.head
	for i := 0; i < index && n != nil; i++ {
		n = n.next
	}
	if n == nil {
		utils.RaiseInvariant("list", "chain_shorter_than_size",
			"Reached the end of the chain before the requested index.", "index", index, "size", l.size)
	}
	return n
}

// unlink removes `n` from the chain, relinking both of its neighbors, and detaches it.
func (l *List[V]) unlink(n *Node[V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else { // Node is the head.
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else { // Node is the tail.
		l.tail = n.prev
	}
	n.detach()

	l.size--
	if l.size < 0 {
		utils.RaiseInvariant("list", "negative_size", "List size dropped below zero.", "size", l.size)
		l.size = 0
	}
}

// Pop removes the tail and returns it detached, or ErrEmptyList if there is nothing to remove.
func (l *List[V]) Pop() (*Node[V], error) {
	if l.tail == nil {
		return nil, ErrEmptyList
	}
	n := l.tail
	l.unlink(n)
	return n, nil
}

// Shift removes the head and returns it detached, or ErrEmptyList if there is nothing to remove.
func (l *List[V]) Shift() (*Node[V], error) {
	if l.head == nil {
		return nil, ErrEmptyList
	}
	n := l.head
	l.unlink(n)
	return n, nil
}

// Contains reports whether some node holds a value equal to `v`.
func (l *List[V]) Contains(v V) bool {
	_, found := l.Find(v)
	return found
}

// Find returns the index of the first node holding a value equal to `v`.
func (l *List[V]) Find(v V) (int, bool /*found*/) {
	index := 0
	for n := l.head; n != nil; n = n.next {
		if l.valuesEqual(n.Value, v) {
			return index, true
		}
		index++
	}
	return -1, false
}

// InsertAt puts a new node holding `v` at the given `index`, shifting the node previously there (and all the ones
// after it) one position later. Index 0 prepends; an index with no node behind it appends.
func (l *List[V]) InsertAt(v V, index int) *Node[V] {
	current := l.At(index)
	if current == nil {
		return l.Append(v)
	}
	if current == l.head {
		return l.Prepend(v)
	}

	n := &Node[V]{Value: v, prev: current.prev, next: current}
	current.prev.next = n
	current.prev = n
	l.size++
	return n
}

// RemoveAt removes the node at the given `index` and returns it detached, or nil if there is no such node.
func (l *List[V]) RemoveAt(index int) *Node[V] {
	n := l.At(index)
	if n == nil {
		return nil
	}
	l.unlink(n)
	return n
}

// Values returns the list values from head to tail.
func (l *List[V]) Values() []V {
	values := make([]V, 0, l.size)
	for n := l.head; n != nil; n = n.next {
		values = append(values, n.Value)
	}
	return values
}

// CheckIntegrity walks the whole chain and verifies the links agree with each other and with the list size.
func (l *List[V]) CheckIntegrity() error {
	if (l.head == nil) != (l.tail == nil) {
		return fmt.Errorf("%w: head and tail disagree on emptiness", ErrBrokenLink)
	}
	if l.head != nil && l.head.prev != nil {
		return fmt.Errorf("%w: head has a previous node", ErrBrokenLink)
	}
	if l.tail != nil && l.tail.next != nil {
		return fmt.Errorf("%w: tail has a next node", ErrBrokenLink)
	}

	count := 0
	var prev *Node[V]
	for n := l.head; n != nil; n = n.next {
		if n.prev != prev {
			return fmt.Errorf("%w: node at index %d doesn't point back to its predecessor", ErrBrokenLink, count)
		}
		prev = n
		count++
		if count > l.size { // Also stops on cycles.
			return fmt.Errorf("%w: chain is longer than size %d", ErrBrokenLink, l.size)
		}
	}
	if prev != l.tail {
		return fmt.Errorf("%w: forward walk doesn't end at the tail", ErrBrokenLink)
	}
	if count != l.size {
		return fmt.Errorf("%w: chain has %d nodes but size is %d", ErrBrokenLink, count, l.size)
	}
	return nil
}

// String renders the head, the tail and the ordered values. Debugging aid only.
func (l *List[V]) String() string {
	var sb strings.Builder
	sb.WriteString("head\n")
	sb.WriteString(l.head.String())
	sb.WriteString("\ntail\n")
	sb.WriteString(l.tail.String())
	sb.WriteString("\nlist: ")
	for n := l.head; n != nil; n = n.next {
		fmt.Fprintf(&sb, "( %v ) -> ", n.Value)
	}
	sb.WriteString("nil")
	return sb.String()
}
