package pipeline

import "sort"

// InputRefs returns the node ids referenced by the node's input slots,
// de-duplicated, in sorted slot order and element order within a slot.
func (n *Node) InputRefs() []string {
	slots := make([]string, 0, len(n.Inputs))
	for slot := range n.Inputs {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	seen := make(map[string]bool)
	var refs []string
	add := func(v any) {
		if id, ok := AsString(v); ok && id != "" && !seen[id] {
			seen[id] = true
			refs = append(refs, id)
		}
	}
	for _, slot := range slots {
		v := n.Inputs[slot]
		if items, ok := AsSlice(v); ok {
			for _, item := range items {
				add(item)
			}
			continue
		}
		add(v)
	}
	return refs
}

// DetachInput removes every reference to id. Array slots lose the element
// and keep the order of the rest; a single slot holding id is cleared
// entirely. It reports whether inputs changed.
func (n *Node) DetachInput(id string) bool {
	changed := false
	for slot, v := range n.Inputs {
		if items, ok := AsSlice(v); ok {
			kept := make([]any, 0, len(items))
			for _, item := range items {
				if s, ok := AsString(item); ok && s == id {
					changed = true
					continue
				}
				kept = append(kept, item)
			}
			if len(kept) != len(items) {
				n.Inputs[slot] = kept
			}
			continue
		}
		if s, ok := AsString(v); ok && s == id {
			delete(n.Inputs, slot)
			changed = true
		}
	}
	return changed
}
