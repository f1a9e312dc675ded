package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/civatrix/reptrack/internal/bridge"
	"github.com/civatrix/reptrack/internal/channel"
	"github.com/civatrix/reptrack/internal/logbuf"
	"github.com/civatrix/reptrack/internal/store"
	"github.com/civatrix/reptrack/internal/workout"
)

// testHandlers builds handlers over a real store and an idle primary.
func testHandlers(t *testing.T) (*handlers, *store.Store, *bridge.Primary) {
	t.Helper()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	link, _ := channel.NewPair()
	primary := bridge.NewPrimary(st, link, log)

	logs := logbuf.New(10)
	logs.Append("12:00:00 INFO started")
	logs.Append("12:00:01 INFO store opened")

	return &handlers{st: st, primary: primary, logs: logs, log: log}, st, primary
}

func seedWorkout(t *testing.T, st *store.Store) *workout.Workout {
	t.Helper()
	w := &workout.Workout{
		ID: uuid.New(), Name: "Seeded", Date: time.Now().UTC(),
		Exercises: []workout.Exercise{
			{Name: "Squat", Order: 0, Unit: workout.WeightedReps(135),
				RepRange: workout.RepRange{Lower: 5, Upper: 8}, RepsCompleted: []*int{nil, nil}},
		},
	}
	if err := st.InsertWorkout(context.Background(), w); err != nil {
		t.Fatalf("InsertWorkout: %v", err)
	}
	return w
}

func textContent(t *testing.T, res *mcpgo.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(mcpgo.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestGetWorkoutTool verifies lookup by ID returns the session with its
// flattened set view, and unknown or malformed IDs produce tool errors.
func TestGetWorkoutTool(t *testing.T) {
	h, st, _ := testHandlers(t)
	w := seedWorkout(t, st)

	req := mcpgo.CallToolRequest{}
	req.Params.Arguments = map[string]any{"id": w.ID.String()}
	res, err := h.getWorkout(context.Background(), req)
	if err != nil {
		t.Fatalf("getWorkout: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textContent(t, res))
	}

	var view struct {
		AllComplete bool              `json:"allComplete"`
		Sets        []workout.SetData `json:"sets"`
	}
	if err := json.Unmarshal([]byte(textContent(t, res)), &view); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if view.AllComplete {
		t.Error("allComplete = true for empty session")
	}
	if len(view.Sets) != 2 {
		t.Errorf("sets = %d, want 2", len(view.Sets))
	}

	req.Params.Arguments = map[string]any{"id": uuid.New().String()}
	res, _ = h.getWorkout(context.Background(), req)
	if !res.IsError {
		t.Error("expected tool error for unknown workout")
	}

	req.Params.Arguments = map[string]any{"id": "not-a-uuid"}
	res, _ = h.getWorkout(context.Background(), req)
	if !res.IsError {
		t.Error("expected tool error for malformed ID")
	}
}

// TestListWorkoutsToolLimit verifies the limit argument truncates history.
func TestListWorkoutsToolLimit(t *testing.T) {
	h, st, _ := testHandlers(t)
	for range 3 {
		seedWorkout(t, st)
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Arguments = map[string]any{"limit": 2}
	res, err := h.listWorkouts(context.Background(), req)
	if err != nil {
		t.Fatalf("listWorkouts: %v", err)
	}

	var workouts []json.RawMessage
	if err := json.Unmarshal([]byte(textContent(t, res)), &workouts); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(workouts) != 2 {
		t.Errorf("workouts = %d, want 2", len(workouts))
	}
}

// TestGetActiveSessionTool verifies the no-session and active-session
// responses.
func TestGetActiveSessionTool(t *testing.T) {
	h, st, primary := testHandlers(t)

	res, err := h.getActiveSession(context.Background(), mcpgo.CallToolRequest{})
	if err != nil {
		t.Fatalf("getActiveSession: %v", err)
	}
	if got := textContent(t, res); got != "no active session" {
		t.Errorf("idle response = %q", got)
	}

	w := seedWorkout(t, st)
	primary.ResumeWorkout(w)

	res, err = h.getActiveSession(context.Background(), mcpgo.CallToolRequest{})
	if err != nil {
		t.Fatalf("getActiveSession: %v", err)
	}
	if !strings.Contains(textContent(t, res), "Seeded") {
		t.Errorf("active response = %q, want session name present", textContent(t, res))
	}
}

// TestCreateTemplateTool verifies a draft commits through the builder and
// lands in the store, and an incomplete draft surfaces the row-scoped
// validation message.
func TestCreateTemplateTool(t *testing.T) {
	h, st, _ := testHandlers(t)

	req := mcpgo.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"name": "Push Day",
		"exercises": []any{
			map[string]any{"name": "Bench", "sets": 3, "unit": "lbs", "unit_value": 95, "rep_lower": 8, "rep_upper": 12},
			map[string]any{"name": "Dips", "sets": 2, "unit": "body", "rep_lower": 10, "rep_upper": 15},
		},
	}
	res, err := h.createTemplate(context.Background(), req)
	if err != nil {
		t.Fatalf("createTemplate: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textContent(t, res))
	}

	templates, err := st.ListTemplates(context.Background())
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(templates) != 1 || templates[0].Name != "Push Day" || len(templates[0].Exercises) != 2 {
		t.Errorf("stored templates = %+v", templates)
	}

	req.Params.Arguments = map[string]any{
		"name": "Broken",
		"exercises": []any{
			map[string]any{"name": "Bench", "unit": "lbs", "unit_value": 95, "rep_lower": 8, "rep_upper": 12},
		},
	}
	res, _ = h.createTemplate(context.Background(), req)
	if !res.IsError || !strings.Contains(textContent(t, res), "missing set count for exercise 1") {
		t.Errorf("validation response = %q", textContent(t, res))
	}
}

// TestSessionTools verifies the start/record/select flow: the session is
// persisted at start, record_set writes through to the store and advances
// the cursor, and select_set only moves the cursor.
func TestSessionTools(t *testing.T) {
	h, st, _ := testHandlers(t)

	tmpl := &workout.WorkoutTemplate{
		ID:   uuid.New(),
		Name: "Quick",
		Exercises: []workout.ExerciseTemplate{
			{Name: "Pushups", Order: 0, SetCount: 2, Unit: workout.BodyweightReps,
				RepRange: workout.RepRange{Lower: 10, Upper: 20}},
		},
	}
	if err := st.SaveTemplate(context.Background(), tmpl); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Arguments = map[string]any{"value": 15}
	res, _ := h.recordSet(context.Background(), req)
	if !res.IsError {
		t.Error("record_set succeeded with no running session")
	}

	req.Params.Arguments = map[string]any{"template_id": tmpl.ID.String()}
	res, err := h.startWorkout(context.Background(), req)
	if err != nil {
		t.Fatalf("startWorkout: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textContent(t, res))
	}

	req.Params.Arguments = map[string]any{"value": 15}
	res, err = h.recordSet(context.Background(), req)
	if err != nil {
		t.Fatalf("recordSet: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textContent(t, res))
	}
	var view struct {
		ActiveExercise int `json:"activeExercise"`
		ActiveSet      int `json:"activeSet"`
	}
	if err := json.Unmarshal([]byte(textContent(t, res)), &view); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if view.ActiveExercise != 0 || view.ActiveSet != 1 {
		t.Errorf("cursor = (%d,%d), want (0,1)", view.ActiveExercise, view.ActiveSet)
	}

	active := h.primary.ActiveWorkout()
	stored, err := st.GetWorkout(context.Background(), active.ID)
	if err != nil {
		t.Fatalf("GetWorkout: %v", err)
	}
	if got := stored.Exercises[0].RepsCompleted[0]; got == nil || *got != 15 {
		t.Errorf("persisted slot = %v, want 15", got)
	}

	req.Params.Arguments = map[string]any{"exercise": 0, "set": 0}
	res, err = h.selectSet(context.Background(), req)
	if err != nil {
		t.Fatalf("selectSet: %v", err)
	}
	if err := json.Unmarshal([]byte(textContent(t, res)), &view); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if view.ActiveExercise != 0 || view.ActiveSet != 0 {
		t.Errorf("cursor after select = (%d,%d), want (0,0)", view.ActiveExercise, view.ActiveSet)
	}

	req.Params.Arguments = map[string]any{"exercise": 9, "set": 0}
	res, _ = h.selectSet(context.Background(), req)
	if !res.IsError {
		t.Error("select_set accepted an out-of-range exercise")
	}
}

// TestLogsResource verifies the buffered lines come back as one text blob.
func TestLogsResource(t *testing.T) {
	h, _, _ := testHandlers(t)

	req := mcpgo.ReadResourceRequest{}
	req.Params.URI = "reptrack://logs"
	contents, err := h.recentLogs(context.Background(), req)
	if err != nil {
		t.Fatalf("recentLogs: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	text := contents[0].(mcpgo.TextResourceContents)
	if text.URI != "reptrack://logs" || !strings.Contains(text.Text, "store opened") {
		t.Errorf("resource = %+v", text)
	}
}

// TestRecentWorkoutsResource verifies the resource caps at ten sessions.
func TestRecentWorkoutsResource(t *testing.T) {
	h, st, _ := testHandlers(t)
	for range 12 {
		seedWorkout(t, st)
	}

	req := mcpgo.ReadResourceRequest{}
	req.Params.URI = "reptrack://recent_workouts"
	contents, err := h.recentWorkouts(context.Background(), req)
	if err != nil {
		t.Fatalf("recentWorkouts: %v", err)
	}

	var workouts []json.RawMessage
	text := contents[0].(mcpgo.TextResourceContents)
	if err := json.Unmarshal([]byte(text.Text), &workouts); err != nil {
		t.Fatalf("decoding resource: %v", err)
	}
	if len(workouts) != 10 {
		t.Errorf("workouts = %d, want 10", len(workouts))
	}
}
