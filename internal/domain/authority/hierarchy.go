package authority

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/shared"
)

// Hierarchy is the validated authority tree built from personas. Construction
// fails on dangling parents and on cycles, so a loaded hierarchy can answer
// ParentOf without revalidating.
type Hierarchy struct {
	personas map[uuid.UUID]*Persona
}

// NewHierarchy builds a hierarchy from the given personas.
// Returns a CONFIGURATION error when a parent reference is dangling or the
// parent pointers form a cycle.
func NewHierarchy(personas []Persona) (*Hierarchy, error) {
	index := make(map[uuid.UUID]*Persona, len(personas))
	for i := range personas {
		p := personas[i]
		index[p.ID] = &p
	}

	for _, p := range index {
		if p.ParentID == nil {
			continue
		}
		if _, ok := index[*p.ParentID]; !ok {
			return nil, shared.NewDomainError("HIERARCHY_DANGLING_PARENT",
				fmt.Sprintf("Persona %q references a parent that does not exist", p.Code))
		}
	}

	h := &Hierarchy{personas: index}
	for id := range index {
		if h.isOwnAncestor(id) {
			return nil, shared.NewDomainError("HIERARCHY_CYCLE",
				fmt.Sprintf("Persona %q is part of an authority cycle", index[id].Code))
		}
	}
	return h, nil
}

// Get returns the persona with the given ID, or nil
func (h *Hierarchy) Get(id uuid.UUID) *Persona {
	return h.personas[id]
}

// ParentOf returns the escalation target of the given persona, or nil when the
// persona is top-level or unknown.
func (h *Hierarchy) ParentOf(id uuid.UUID) *Persona {
	p := h.personas[id]
	if p == nil || p.ParentID == nil {
		return nil
	}
	return h.personas[*p.ParentID]
}

// Ancestors returns the escalation chain from the immediate parent upward.
func (h *Hierarchy) Ancestors(id uuid.UUID) []*Persona {
	var chain []*Persona
	for p := h.ParentOf(id); p != nil; p = h.ParentOf(p.ID) {
		chain = append(chain, p)
	}
	return chain
}

// Size returns the number of personas in the hierarchy
func (h *Hierarchy) Size() int {
	return len(h.personas)
}

// isOwnAncestor walks parent pointers from id; a revisit of id means a cycle.
// The walk is bounded by the persona count so malformed data cannot loop forever.
func (h *Hierarchy) isOwnAncestor(id uuid.UUID) bool {
	current := h.personas[id]
	for steps := 0; steps <= len(h.personas); steps++ {
		if current == nil || current.ParentID == nil {
			return false
		}
		if *current.ParentID == id {
			return true
		}
		current = h.personas[*current.ParentID]
	}
	return true
}
