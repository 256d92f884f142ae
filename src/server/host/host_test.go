package host

import (
	"context"
	"reflect"
	"strconv"
	"testing"

	"mx44-utils/src/server/matrix"
)

func testSnapshot() matrix.Snapshot {
	s := matrix.NewStore(matrix.ModelTable[matrix.DefaultModel])
	s.ApplyRoute(3, 1)
	s.ApplyRoute(4, 1)
	s.SetSelectedInput(1)
	return s.Snapshot()
}

func TestVariables(t *testing.T) {
	vars := Variables(testSnapshot())

	want := map[string]string{
		"input_route1":  "134",
		"input_route2":  "2",
		"input_route3":  "",
		"input_route4":  "",
		"output_route1": "1",
		"output_route2": "2",
		"output_route3": "1",
		"output_route4": "1",
	}
	if !reflect.DeepEqual(vars, want) {
		t.Errorf("Variables() = %v; want %v", vars, want)
	}
}

func TestFeedbacks(t *testing.T) {
	fb := EvaluateFeedbacks(testSnapshot())

	wantSelected := map[int]bool{1: true, 2: false, 3: false, 4: false}
	wantOutput := map[int]bool{1: true, 2: false, 3: true, 4: true}
	if !reflect.DeepEqual(fb.Selected, wantSelected) {
		t.Errorf("Selected = %v; want %v", fb.Selected, wantSelected)
	}
	if !reflect.DeepEqual(fb.Output, wantOutput) {
		t.Errorf("Output = %v; want %v", fb.Output, wantOutput)
	}
	if IsRoutedFromSelected(testSnapshot(), 9) {
		t.Error("unknown output reported as routed")
	}
}

func TestDefinitions(t *testing.T) {
	spec := matrix.ModelTable[matrix.DefaultModel]

	actions := Actions(spec)
	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		ids = append(ids, a.ID)
	}
	if !reflect.DeepEqual(ids, []string{"select_input", "switch_output", "input_output", "all"}) {
		t.Errorf("action ids = %v", ids)
	}

	if got := len(VariableDefinitions(spec)); got != 8 {
		t.Errorf("expected 8 variables, got %d", got)
	}
	if got := InputChoices(spec)[3]; got != (Choice{ID: "4", Label: "IN4"}) {
		t.Errorf("InputChoices[3] = %+v", got)
	}

	fbs := Feedbacks(spec)
	if fbs[0].DefaultStyle.BgColor != 0xFF0000 || fbs[1].DefaultStyle.BgColor != 0x00FF00 {
		t.Errorf("unexpected feedback styles: %+v / %+v", fbs[0].DefaultStyle, fbs[1].DefaultStyle)
	}
}

// recordingController captures the intents Execute dispatches.
type recordingController struct {
	calls []string
}

func (r *recordingController) SelectInput(ctx context.Context, input int) error {
	r.calls = append(r.calls, "select "+strconv.Itoa(input))
	return nil
}

func (r *recordingController) SwitchOutput(ctx context.Context, output int) error {
	r.calls = append(r.calls, "switch "+strconv.Itoa(output))
	return nil
}

func (r *recordingController) Route(ctx context.Context, input, output int) error {
	r.calls = append(r.calls, "route "+strconv.Itoa(input)+">"+strconv.Itoa(output))
	return nil
}

func (r *recordingController) RouteAll(ctx context.Context, input int, useSelected bool) error {
	if useSelected {
		r.calls = append(r.calls, "all selected")
	} else {
		r.calls = append(r.calls, "all "+strconv.Itoa(input))
	}
	return nil
}

func TestExecute(t *testing.T) {
	rc := &recordingController{}
	ctx := context.Background()

	steps := []struct {
		action  string
		options map[string]any
	}{
		{ActionSelectInput, map[string]any{"input": "3"}},
		{ActionSwitchOutput, map[string]any{"output": float64(2)}},
		{ActionInputOutput, map[string]any{"input": "1", "output": "4"}},
		{ActionAll, map[string]any{"selected": true, "input": "2"}},
		{ActionAll, map[string]any{"selected": false, "input": "2"}},
	}
	for _, step := range steps {
		if err := Execute(ctx, rc, step.action, step.options); err != nil {
			t.Fatalf("Execute(%s) failed: %v", step.action, err)
		}
	}

	want := []string{"select 3", "switch 2", "route 1>4", "all selected", "all 2"}
	if !reflect.DeepEqual(rc.calls, want) {
		t.Errorf("calls = %v; want %v", rc.calls, want)
	}
}

func TestExecuteErrors(t *testing.T) {
	rc := &recordingController{}
	ctx := context.Background()

	cases := []struct {
		action  string
		options map[string]any
	}{
		{"reboot", nil},
		{ActionSelectInput, map[string]any{}},
		{ActionSwitchOutput, map[string]any{"output": "x"}},
		{ActionInputOutput, map[string]any{"input": "1"}},
		{ActionAll, map[string]any{"input": true}},
	}
	for _, c := range cases {
		if err := Execute(ctx, rc, c.action, c.options); err == nil {
			t.Errorf("Execute(%s, %v) succeeded; want error", c.action, c.options)
		}
	}
	if len(rc.calls) != 0 {
		t.Errorf("controller called on invalid input: %v", rc.calls)
	}
}
