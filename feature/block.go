package feature

// Block is the ordered sequence of descriptors a module emits from its
// Features() call. Its grammar: zero or more REGISTER/CALLBACK descriptors
// set a current registration context; each PROVIDE opens a group; DEPENDS
// and SDEPEND descriptors immediately following a PROVIDE belong to that
// PROVIDE until the next PROVIDE/REGISTER/CALLBACK.
type Block []Descriptor

// Group is one PROVIDE and the registration context and dependency run that
// apply to it.
type Group struct {
	// Context is the REGISTER or CALLBACK descriptor active when Provide was
	// declared, or nil if none has been set yet.
	Context *Descriptor
	Provide Descriptor
	Deps    []Descriptor
}

// Groups parses Block's grammar into one Group per PROVIDE descriptor. This
// is the Go equivalent of walking the dependency suffix by its stored
// length in the source implementation: the slice is materialized once here
// instead of re-scanned by offset each time a resolver needs it.
func (b Block) Groups() []Group {
	var groups []Group
	var ctx *Descriptor
	cur := -1

	for i := range b {
		d := b[i]
		switch d.Kind {
		case Register, Callback:
			c := d
			ctx = &c
			cur = -1
		case Provide:
			groups = append(groups, Group{Context: ctx, Provide: d})
			cur = len(groups) - 1
		case Depends, SDepend:
			if cur >= 0 {
				groups[cur].Deps = append(groups[cur].Deps, d)
			}
		}
	}
	return groups
}
