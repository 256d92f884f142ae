package host

import (
	"fmt"
	"strconv"

	"mx44-utils/src/server/matrix"
)

// Choice is one entry of a dropdown option.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Option struct {
	Type    string   `json:"type"` // "dropdown" or "checkbox"
	Label   string   `json:"label"`
	ID      string   `json:"id"`
	Default any      `json:"default"`
	Choices []Choice `json:"choices,omitempty"`
}

type ActionDefinition struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Options []Option `json:"options"`
}

type Style struct {
	Color   int `json:"color"`
	BgColor int `json:"bgcolor"`
}

type FeedbackDefinition struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Options      []Option `json:"options"`
	DefaultStyle Style    `json:"defaultStyle"`
}

type VariableDefinition struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

const (
	ActionSelectInput  = "select_input"
	ActionSwitchOutput = "switch_output"
	ActionInputOutput  = "input_output"
	ActionAll          = "all"

	FeedbackSelected = "selected"
	FeedbackOutput   = "output"
)

// CombineRGB packs an RGB triple the way host button styles expect.
func CombineRGB(r, g, b uint8) int {
	return int(r)<<16 | int(g)<<8 | int(b)
}

func InputChoices(spec matrix.PortSpec) []Choice {
	choices := make([]Choice, 0, spec.Inputs)
	for i := 1; i <= spec.Inputs; i++ {
		choices = append(choices, Choice{ID: strconv.Itoa(i), Label: fmt.Sprintf("IN%d", i)})
	}
	return choices
}

func OutputChoices(spec matrix.PortSpec) []Choice {
	choices := make([]Choice, 0, spec.Outputs)
	for o := 1; o <= spec.Outputs; o++ {
		choices = append(choices, Choice{ID: strconv.Itoa(o), Label: fmt.Sprintf("OUT%d", o)})
	}
	return choices
}

func inputOption(label string, spec matrix.PortSpec) Option {
	return Option{Type: "dropdown", Label: label, ID: "input", Default: "1", Choices: InputChoices(spec)}
}

func outputOption(label string, spec matrix.PortSpec) Option {
	return Option{Type: "dropdown", Label: label, ID: "output", Default: "1", Choices: OutputChoices(spec)}
}

func Actions(spec matrix.PortSpec) []ActionDefinition {
	return []ActionDefinition{
		{
			ID:      ActionSelectInput,
			Name:    "Select Input",
			Options: []Option{inputOption("Input Port", spec)},
		},
		{
			ID:      ActionSwitchOutput,
			Name:    "Switch Output",
			Options: []Option{outputOption("Output Port", spec)},
		},
		{
			ID:      ActionInputOutput,
			Name:    "Input to Output",
			Options: []Option{inputOption("Input Port", spec), outputOption("Output Port", spec)},
		},
		{
			ID:   ActionAll,
			Name: "All outputs to selected input",
			Options: []Option{
				{Type: "checkbox", Label: "Use selected (or defined input)", ID: "selected", Default: false},
				inputOption("Defined Input Port", spec),
			},
		},
	}
}

func Feedbacks(spec matrix.PortSpec) []FeedbackDefinition {
	return []FeedbackDefinition{
		{
			ID:           FeedbackSelected,
			Type:         "boolean",
			Name:         "Status for input",
			Description:  "Show feedback selected input",
			Options:      []Option{inputOption("Input", spec)},
			DefaultStyle: Style{Color: CombineRGB(0, 0, 0), BgColor: CombineRGB(255, 0, 0)},
		},
		{
			ID:           FeedbackOutput,
			Type:         "boolean",
			Name:         "Status for output",
			Description:  "Show feedback selected output",
			Options:      []Option{outputOption("Output", spec)},
			DefaultStyle: Style{Color: CombineRGB(0, 0, 0), BgColor: CombineRGB(0, 255, 0)},
		},
	}
}

func VariableDefinitions(spec matrix.PortSpec) []VariableDefinition {
	defs := make([]VariableDefinition, 0, spec.Inputs+spec.Outputs)
	for i := 1; i <= spec.Inputs; i++ {
		defs = append(defs, VariableDefinition{Name: InputVariable(i), Label: fmt.Sprintf("Input %d", i)})
	}
	for o := 1; o <= spec.Outputs; o++ {
		defs = append(defs, VariableDefinition{Name: OutputVariable(o), Label: fmt.Sprintf("Output %d", o)})
	}
	return defs
}

func InputVariable(input int) string {
	return fmt.Sprintf("input_route%d", input)
}

func OutputVariable(output int) string {
	return fmt.Sprintf("output_route%d", output)
}
