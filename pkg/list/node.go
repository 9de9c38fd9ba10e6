package list

import "fmt"

// Node is a single element of a List. It holds one value and links to its neighbors.
// `next` is the owning forward link, `prev` is only used for reverse traversal.
type Node[V any] struct {
	next  *Node[V]
	prev  *Node[V]
	Value V
}

// Next returns the following node or nil if this node is the tail (or detached).
func (n *Node[V]) Next() *Node[V] {
	return n.next
}

// Prev returns the preceding node or nil if this node is the head (or detached).
func (n *Node[V]) Prev() *Node[V] {
	return n.prev
}

// detach clears both links so a removed node doesn't keep the rest of the chain alive.
func (n *Node[V]) detach() {
	n.next = nil
	n.prev = nil
}

// String renders the node value along with its neighbors' values. Debugging aid only.
func (n *Node[V]) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("value: %v, next node value: %s, prev node value: %s",
		n.Value, neighborValue(n.next), neighborValue(n.prev))
}

func neighborValue[V any](n *Node[V]) string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprint(n.Value)
}
