// stack.go
//
// Shared primitive types for quantities moving through the network.

package sim

// ItemKind identifies an item type. The engine treats it as an opaque
// comparable token; meaning is assigned by the surrounding application.
type ItemKind uint16

// Stack is a quantity of a single item kind. It is the unit of exchange
// between buffers: transfer functions consume and produce stacks.
type Stack struct {
	Kind  ItemKind
	Count int64
}

// IsEmpty reports whether the stack carries no quantity.
func (s Stack) IsEmpty() bool {
	return s.Count == 0
}

// Split removes count items from the stack and returns them as a new stack.
// Removing the full count or more returns the whole stack and empties s.
func (s *Stack) Split(count int64) Stack {
	if count >= s.Count {
		out := *s
		s.Count = 0
		return out
	}
	s.Count -= count
	return Stack{Kind: s.Kind, Count: count}
}
