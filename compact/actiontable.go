package compact

import "encoding/binary"

// ActionTable interns ordered action-ID sequences.
//
// Each distinct sequence gets one small dense list ID, in first-request order.
// The table is owned by a single compilation and passed by reference to every
// component that requests or resolves list IDs.
type ActionTable struct {
	ids   map[string]int
	lists [][]int
	buf   []byte
}

// NewActionTable creates an empty table.
func NewActionTable() *ActionTable {
	return &ActionTable{ids: make(map[string]int)}
}

// Intern returns the list ID for the given action sequence, assigning a new
// one if the sequence has not been seen. An empty sequence has no ID and
// yields -1.
func (t *ActionTable) Intern(actions []int) int {
	if len(actions) == 0 {
		return -1
	}
	t.buf = t.buf[:0]
	for _, a := range actions {
		t.buf = binary.AppendUvarint(t.buf, uint64(a))
	}
	if id, ok := t.ids[string(t.buf)]; ok {
		return id
	}
	id := len(t.lists)
	t.ids[string(t.buf)] = id
	t.lists = append(t.lists, append([]int(nil), actions...))
	return id
}

// List returns the action IDs of list id. Panics on an unknown ID: list IDs
// only come from Intern, so a miss is an internal inconsistency.
func (t *ActionTable) List(id int) []int {
	if id < 0 || id >= len(t.lists) {
		panic("compact: action list id out of range")
	}
	return t.lists[id]
}

// Len returns the number of distinct lists.
func (t *ActionTable) Len() int {
	return len(t.lists)
}

// Lists returns all lists indexed by list ID.
func (t *ActionTable) Lists() [][]int {
	return t.lists
}
