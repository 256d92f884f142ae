package matrix

// PortSpec describes how many inputs and outputs a matrix model exposes.
type PortSpec struct {
	Name    string `json:"name"`
	Inputs  int    `json:"inputs"`
	Outputs int    `json:"outputs"`
}

// BroadcastOutput addresses every output at once.
const BroadcastOutput = 0

const DefaultModel = "MX44-HAS2"

var ModelTable = map[string]PortSpec{
	"MX44-HAS2": {Name: "MX44-HAS2", Inputs: 4, Outputs: 4},
}

// ValidInput reports whether input is a configured input id.
func (p PortSpec) ValidInput(input int) bool {
	return input >= 1 && input <= p.Inputs
}

// ValidOutput reports whether output is a configured output id or the broadcast id.
func (p PortSpec) ValidOutput(output int) bool {
	return output == BroadcastOutput || (output >= 1 && output <= p.Outputs)
}
