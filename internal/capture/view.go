package capture

import (
	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/vision"
)

// View is a snapshot of what the page should display.
type View struct {
	State   ViewState
	Request RequestState
	Facing  camera.Facing

	ShowSteps   bool
	ShowCamera  bool
	ShowSwitch  bool
	ShowPreview bool
	ShowPanel   bool
	ShowAnalyze bool

	ActionLabel string
	// Preview is the data URI of the still being analyzed or uploaded.
	Preview string
	// Result is set once an analysis succeeded.
	Result *vision.Diagnosis
	// Message is the panel text when there is no result: the loading text or
	// a failure message.
	Message string
	Failure *Failure
	// Alert is a blocking notice raised by the last operation.
	Alert string
}

// Pending reports whether an analysis request is in flight.
func (v View) Pending() bool { return v.Request == Pending }

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropReleasedLocked()
	v := View{
		State:       c.view,
		Request:     c.request,
		Facing:      c.facing,
		ShowSteps:   c.showSteps,
		ShowCamera:  c.stream != nil && !c.preview,
		ShowSwitch:  c.stream != nil && !c.preview,
		ShowPreview: c.preview && !c.still.Empty(),
		ShowPanel:   c.panel,
		ShowAnalyze: c.stream != nil || !c.still.Empty() || c.view == ShowingResult,
		ActionLabel: AnalyzeLabel,
		Result:      c.result,
		Failure:     c.failure,
		Alert:       c.alert,
	}
	if c.view == ShowingResult {
		v.ActionLabel = BackLabel
	}
	if v.ShowPreview {
		v.Preview = c.still.DataURI()
	}
	switch {
	case c.request == Pending:
		v.Message = LoadingText
	case c.failure != nil:
		v.Message = c.failure.Kind.Message()
	}
	return v
}
