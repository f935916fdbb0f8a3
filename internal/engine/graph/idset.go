package graph

import "sort"

// IDSet is a set of declaration ids.
type IDSet map[DeclID]struct{}

func NewIDSet(ids ...DeclID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s IDSet) Add(id DeclID) { s[id] = struct{}{} }

func (s IDSet) Remove(id DeclID) { delete(s, id) }

func (s IDSet) Has(id DeclID) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

// Union adds every member of other to s.
func (s IDSet) Union(other IDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	out.Union(s)
	return out
}

// Sorted returns the members in ascending id order.
func (s IDSet) Sorted() []DeclID {
	out := make([]DeclID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
