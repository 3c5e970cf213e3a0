package admin

import (
	"fmt"
	"sort"
)

// SelectAllState is the state of a "select all" checkbox.
type SelectAllState int

const (
	SelectNone SelectAllState = iota
	SelectSome
	SelectAll
)

func (s SelectAllState) String() string {
	switch s {
	case SelectSome:
		return "some"
	case SelectAll:
		return "all"
	default:
		return "none"
	}
}

// Selection is the set of checked submission ids of one list.
type Selection struct {
	ids map[string]struct{}
}

func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

func (s *Selection) Toggle(id string, selected bool) {
	if selected {
		s.ids[id] = struct{}{}
		return
	}
	delete(s.ids, id)
}

// SelectAll selects every id in visible, or deselects them when selected is false.
func (s *Selection) SelectAll(visible []string, selected bool) {
	for _, id := range visible {
		s.Toggle(id, selected)
	}
}

func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
}

func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Count() int {
	return len(s.ids)
}

// IDs returns the selected ids in a stable order.
func (s *Selection) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// State derives the select-all checkbox state for the visible ids.
func (s *Selection) State(visible []string) SelectAllState {
	if len(visible) == 0 {
		return SelectNone
	}
	checked := 0
	for _, id := range visible {
		if s.Has(id) {
			checked++
		}
	}
	switch {
	case checked == len(visible):
		return SelectAll
	case checked > 0:
		return SelectSome
	default:
		return SelectNone
	}
}

// Label is the "N selected" counter, empty when nothing is selected.
func (s *Selection) Label() string {
	if s.Count() == 0 {
		return ""
	}
	return fmt.Sprintf("%d selected", s.Count())
}
