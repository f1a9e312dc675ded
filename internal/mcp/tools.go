package mcp

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/civatrix/reptrack/internal/bridge"
	"github.com/civatrix/reptrack/internal/store"
	"github.com/civatrix/reptrack/internal/workout"
)

// --- Tool definitions ---

var toolListTemplates = mcp.NewTool("list_templates",
	mcp.WithDescription("List all workout templates with their exercises, rep ranges, set counts, and units. Sorted by name."),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List workout sessions, most recent first. Each includes per-set completion state."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return. Defaults to 20.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Retrieve a single workout session by ID, including the flattened per-set view used for device sync."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout UUID")),
)

var toolGetActiveSession = mcp.NewTool("get_active_session",
	mcp.WithDescription("Return the currently running workout session, if any, with its completion progress."),
)

var toolCreateTemplate = mcp.NewTool("create_template",
	mcp.WithDescription("Create a workout template from a draft. Validation fails fast on the first incomplete exercise row."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Workout name")),
	mcp.WithArray("exercises", mcp.Required(),
		mcp.Description(`Exercise rows in order. Each: {"name", "sets", "unit" (lbs|body|sec|min), "unit_value" (required for lbs), "rep_lower", "rep_upper"}`)),
)

var toolStartWorkout = mcp.NewTool("start_workout",
	mcp.WithDescription("Instantiate a template into a new workout session, persist it, and sync it to the paired device."),
	mcp.WithString("template_id", mcp.Required(), mcp.Description("Template UUID")),
)

var toolRecordSet = mcp.NewTool("record_set",
	mcp.WithDescription("Record reps (or elapsed time) for the active set of the running session and advance the cursor."),
	mcp.WithNumber("value", mcp.Required(), mcp.Description("Completed reps, or elapsed seconds/minutes for timed exercises")),
)

var toolSelectSet = mcp.NewTool("select_set",
	mcp.WithDescription("Move the active cursor of the running session to a specific exercise and set without recording anything."),
	mcp.WithNumber("exercise", mcp.Required(), mcp.Description("Zero-based exercise index")),
	mcp.WithNumber("set", mcp.Required(), mcp.Description("Zero-based set index")),
)

// --- Tool handlers ---

func (h *handlers) listTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := h.st.ListTemplates(ctx)
	if err != nil {
		h.log.Error("mcp list_templates", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	type templateView struct {
		ID        string                     `json:"id"`
		Name      string                     `json:"name"`
		Exercises []workout.ExerciseTemplate `json:"exercises"`
	}
	views := make([]templateView, 0, len(templates))
	for _, t := range templates {
		views = append(views, templateView{ID: t.ID.String(), Name: t.Name, Exercises: t.SortedExercises()})
	}

	result, err := mcp.NewToolResultJSON(views)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	workouts, err := h.st.ListWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if limit > 0 && len(workouts) > limit {
		workouts = workouts[:limit]
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid workout ID"), nil
	}

	w, err := h.st.GetWorkout(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("workout not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workoutView(w))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getActiveSession(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w := h.primary.ActiveWorkout()
	if w == nil {
		return mcp.NewToolResultText("no active session"), nil
	}

	result, err := mcp.NewToolResultJSON(workoutView(w))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// templateDraft is the wire shape of the create_template arguments.
type templateDraft struct {
	Name      string `json:"name"`
	Exercises []struct {
		Name      string `json:"name"`
		Sets      *int   `json:"sets"`
		Unit      string `json:"unit"`
		UnitValue *int   `json:"unit_value"`
		RepLower  *int   `json:"rep_lower"`
		RepUpper  *int   `json:"rep_upper"`
	} `json:"exercises"`
}

var unitTokens = map[string]workout.Unit{
	"lbs":  workout.WeightedReps(1),
	"body": workout.BodyweightReps,
	"sec":  workout.TimedSeconds,
	"min":  workout.TimedMinutes,
}

func (h *handlers) createTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var draft templateDraft
	if err := req.BindArguments(&draft); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}

	p := workout.NewPrototype()
	p.Name = draft.Name
	for _, row := range draft.Exercises {
		e := p.AddExercise()
		e.Name = row.Name
		e.SetCount = row.Sets
		e.UnitValue = row.UnitValue
		e.RepRangeLower = row.RepLower
		e.RepRangeUpper = row.RepUpper
		if row.Unit != "" {
			u, ok := unitTokens[row.Unit]
			if !ok {
				return mcp.NewToolResultError("unknown unit " + row.Unit), nil
			}
			e.Unit = u
		}
	}

	tmpl, err := p.Build()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.st.SaveTemplate(ctx, tmpl); err != nil {
		h.log.Error("mcp create_template", "error", err)
		return mcp.NewToolResultError("save failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(tmpl)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) startWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError("template_id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid template ID"), nil
	}

	tmpl, err := h.st.GetTemplate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("template not found"), nil
	}
	if err != nil {
		h.log.Error("mcp start_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	w := tmpl.NewWorkout()
	if err := h.primary.StartWorkout(ctx, w); err != nil {
		h.log.Error("mcp start_workout", "workout", w.ID, "error", err)
		return mcp.NewToolResultError("persisting session failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sessionView(h.primary))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) recordSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, err := req.RequireInt("value")
	if err != nil {
		return mcp.NewToolResultError("value parameter is required"), nil
	}

	if err := h.primary.RecordReps(ctx, value); err != nil {
		if errors.Is(err, bridge.ErrNoActiveSession) {
			return mcp.NewToolResultError("no running session; call start_workout first"), nil
		}
		h.log.Error("mcp record_set", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sessionView(h.primary))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) selectSet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireInt("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	set, err := req.RequireInt("set")
	if err != nil {
		return mcp.NewToolResultError("set parameter is required"), nil
	}

	if err := h.primary.Select(exercise, set); err != nil {
		if errors.Is(err, bridge.ErrNoActiveSession) {
			return mcp.NewToolResultError("no running session; call start_workout first"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sessionView(h.primary))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// sessionView reports the cursor alongside the session for tool output.
func sessionView(p *bridge.Primary) map[string]any {
	w := p.ActiveWorkout()
	if w == nil {
		return map[string]any{"done": true}
	}
	view := workoutView(w)
	if ex, set, ok := p.Cursor(); ok {
		view["activeExercise"] = ex
		view["activeSet"] = set
	} else {
		view["done"] = true
	}
	return view
}

// workoutView decorates a session with its flattened projection and
// completion flag for tool output.
func workoutView(w *workout.Workout) map[string]any {
	return map[string]any{
		"workout":     w,
		"allComplete": w.AllComplete(),
		"sets":        w.WatchData(),
	}
}
