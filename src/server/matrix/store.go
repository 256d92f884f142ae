package matrix

import (
	"sort"
	"strconv"
)

// Snapshot is an immutable copy of the routing state handed to observers.
type Snapshot struct {
	Routes        map[int]int   `json:"routes"`
	InputOutputs  map[int][]int `json:"inputOutputs"`
	SelectedInput int           `json:"selectedInput"`
	Inputs        int           `json:"inputs"`
	Outputs       int           `json:"outputs"`
}

// ChangeCallback is called after every mutation with the complete new state.
type ChangeCallback func(Snapshot)

// Store holds the output->input table and the selected input. It is not safe
// for concurrent use; the owning session serializes all access.
type Store struct {
	spec     PortSpec
	routes   []int // routes[output-1] = input
	selected int
	onChange ChangeCallback
}

// NewStore starts with the identity table (output k -> input k) and input 1 selected.
func NewStore(spec PortSpec) *Store {
	s := &Store{
		spec:     spec,
		routes:   make([]int, spec.Outputs),
		selected: 1,
	}
	for i := range s.routes {
		input := i + 1
		if input > spec.Inputs {
			input = spec.Inputs
		}
		s.routes[i] = input
	}
	return s
}

func (s *Store) Spec() PortSpec {
	return s.spec
}

// SetChangeCallback registers the observer notified after each mutation.
func (s *Store) SetChangeCallback(callback ChangeCallback) {
	s.onChange = callback
}

// SetSelectedInput overwrites the selected input. Ids outside the
// configured inputs are ignored.
func (s *Store) SetSelectedInput(input int) bool {
	if !s.spec.ValidInput(input) {
		return false
	}
	s.selected = input
	s.notify()
	return true
}

func (s *Store) SelectedInput() int {
	return s.selected
}

// ApplyRoute is the only mutator of the routing table. Output 0 sets every
// output to input in one step; observers see the table only after all
// entries are written.
func (s *Store) ApplyRoute(output, input int) bool {
	if !s.spec.ValidOutput(output) || !s.spec.ValidInput(input) {
		return false
	}
	if output == BroadcastOutput {
		for i := range s.routes {
			s.routes[i] = input
		}
	} else {
		s.routes[output-1] = input
	}
	s.notify()
	return true
}

// InputForOutput returns the input currently feeding output.
func (s *Store) InputForOutput(output int) (int, bool) {
	if output < 1 || output > len(s.routes) {
		return 0, false
	}
	return s.routes[output-1], true
}

// OutputsForInput returns the outputs routed from input, ascending.
func (s *Store) OutputsForInput(input int) []int {
	outputs := []int{}
	for i, in := range s.routes {
		if in == input {
			outputs = append(outputs, i+1)
		}
	}
	return outputs
}

func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Routes:        make(map[int]int, len(s.routes)),
		InputOutputs:  make(map[int][]int, s.spec.Inputs),
		SelectedInput: s.selected,
		Inputs:        s.spec.Inputs,
		Outputs:       s.spec.Outputs,
	}
	for i, in := range s.routes {
		snap.Routes[i+1] = in
	}
	for input := 1; input <= s.spec.Inputs; input++ {
		snap.InputOutputs[input] = s.OutputsForInput(input)
	}
	return snap
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange(s.Snapshot())
	}
}

// OutputList renders the outputs routed from input as concatenated ids, e.g. "134".
func (snap Snapshot) OutputList(input int) string {
	outputs := append([]int(nil), snap.InputOutputs[input]...)
	sort.Ints(outputs)
	list := ""
	for _, o := range outputs {
		list += strconv.Itoa(o)
	}
	return list
}
