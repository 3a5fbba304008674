package registry

// Stack is the activation log of §3's global state: a front-insertion list
// of provided features in the order they were activated. Reading it front
// to back yields a reverse-topological order of the loaded subgraph, so
// front-to-back iteration is the canonical unload order (DESIGN NOTES:
// "reverse order by front-insertion").
type Stack struct {
	items []*ProvidedFeature
}

// Prepend inserts p at the front of the stack.
func (s *Stack) Prepend(p *ProvidedFeature) {
	s.items = append(s.items, nil)
	copy(s.items[1:], s.items)
	s.items[0] = p
}

// Remove drops p from wherever it sits in the stack.
func (s *Stack) Remove(p *ProvidedFeature) {
	for i, it := range s.items {
		if it == p {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Items returns the stack contents, front (most recently activated) first.
func (s *Stack) Items() []*ProvidedFeature {
	return s.items
}

func (s *Stack) Len() int { return len(s.items) }
