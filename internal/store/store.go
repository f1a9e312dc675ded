// Package store is the persisted object store for templates and sessions.
// It is the single source of truth: the in-memory session representations
// on both devices are caches reconciled through the sync bridge.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/civatrix/reptrack/internal/workout"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no object exists for the given identifier.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database holding templates and workout sessions.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dir/reptrack.db and applies all
// pending migrations. Failure here is fatal to the process; there is no
// usable store without it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "reptrack.db")
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Templates ---

// SaveTemplate inserts a committed template with its exercise rows.
func (s *Store) SaveTemplate(ctx context.Context, t *workout.WorkoutTemplate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO workout_templates (id, name) VALUES (?, ?)`,
		t.ID.String(), t.Name); err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}
	if err := insertExerciseTemplates(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceTemplate replaces a template's name and exercise set wholesale.
// The previously owned exercise rows are discarded.
func (s *Store) ReplaceTemplate(ctx context.Context, id uuid.UUID, t *workout.WorkoutTemplate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE workout_templates SET name = ? WHERE id = ?`, t.Name, id.String())
	if err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM exercise_templates WHERE template_id = ?`, id.String()); err != nil {
		return fmt.Errorf("clearing template exercises: %w", err)
	}

	replaced := *t
	replaced.ID = id
	if err := insertExerciseTemplates(ctx, tx, &replaced); err != nil {
		return err
	}
	return tx.Commit()
}

func insertExerciseTemplates(ctx context.Context, tx *sql.Tx, t *workout.WorkoutTemplate) error {
	for _, e := range t.Exercises {
		unitValue := 0
		if v, ok := e.Unit.Value(); ok {
			unitValue = v
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exercise_templates (template_id, name, ord, set_count, unit_kind, unit_value, rep_lower, rep_upper)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID.String(), e.Name, e.Order, e.SetCount, string(e.Unit.Kind), unitValue,
			e.RepRange.Lower, e.RepRange.Upper); err != nil {
			return fmt.Errorf("inserting template exercise %q: %w", e.Name, err)
		}
	}
	return nil
}

// GetTemplate loads a template with its exercises, ordered ascending.
func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*workout.WorkoutTemplate, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM workout_templates WHERE id = ?`, id.String()).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying template: %w", err)
	}

	t := &workout.WorkoutTemplate{ID: id, Name: name}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, ord, set_count, unit_kind, unit_value, rep_lower, rep_upper
		 FROM exercise_templates WHERE template_id = ? ORDER BY ord ASC`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying template exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e workout.ExerciseTemplate
		var kind string
		var unitValue int
		if err := rows.Scan(&e.Name, &e.Order, &e.SetCount, &kind, &unitValue,
			&e.RepRange.Lower, &e.RepRange.Upper); err != nil {
			return nil, fmt.Errorf("scanning template exercise: %w", err)
		}
		e.Unit = unitFromRow(kind, unitValue)
		t.Exercises = append(t.Exercises, e)
	}
	return t, rows.Err()
}

// ListTemplates returns all templates sorted by name ascending, exercises
// included.
func (s *Store) ListTemplates(ctx context.Context) ([]*workout.WorkoutTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM workout_templates ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning template id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing template id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*workout.WorkoutTemplate, 0, len(ids))
	for _, id := range ids {
		t, err := s.GetTemplate(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// DeleteTemplate removes a template; owned exercise rows cascade.
func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM workout_templates WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Workouts ---

// InsertWorkout persists a freshly instantiated or resumed session.
func (s *Store) InsertWorkout(ctx context.Context, w *workout.Workout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO workouts (id, name, date) VALUES (?, ?, ?)`,
		w.ID.String(), w.Name, w.Date); err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}

	for _, e := range w.Exercises {
		reps, err := json.Marshal(e.RepsCompleted)
		if err != nil {
			return fmt.Errorf("encoding reps for %q: %w", e.Name, err)
		}
		unitValue := 0
		if v, ok := e.Unit.Value(); ok {
			unitValue = v
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exercises (workout_id, name, ord, unit_kind, unit_value, rep_lower, rep_upper, reps_completed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			w.ID.String(), e.Name, e.Order, string(e.Unit.Kind), unitValue,
			e.RepRange.Lower, e.RepRange.Upper, string(reps)); err != nil {
			return fmt.Errorf("inserting exercise %q: %w", e.Name, err)
		}
	}
	return tx.Commit()
}

// GetWorkout loads a session with exercises in their fixed order.
func (s *Store) GetWorkout(ctx context.Context, id uuid.UUID) (*workout.Workout, error) {
	w := &workout.Workout{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, date FROM workouts WHERE id = ?`, id.String()).Scan(&w.Name, &w.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, ord, unit_kind, unit_value, rep_lower, rep_upper, reps_completed
		 FROM exercises WHERE workout_id = ? ORDER BY ord ASC`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e workout.Exercise
		var kind, reps string
		var unitValue int
		if err := rows.Scan(&e.Name, &e.Order, &kind, &unitValue,
			&e.RepRange.Lower, &e.RepRange.Upper, &reps); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		if err := json.Unmarshal([]byte(reps), &e.RepsCompleted); err != nil {
			return nil, fmt.Errorf("decoding reps for %q: %w", e.Name, err)
		}
		e.Unit = unitFromRow(kind, unitValue)
		w.Exercises = append(w.Exercises, e)
	}
	return w, rows.Err()
}

// SaveWorkoutSets flushes the current completion state of every exercise.
// Failures are recoverable; the caller decides whether to retry or report.
func (s *Store) SaveWorkoutSets(ctx context.Context, w *workout.Workout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range w.Exercises {
		reps, err := json.Marshal(e.RepsCompleted)
		if err != nil {
			return fmt.Errorf("encoding reps for %q: %w", e.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE exercises SET reps_completed = ? WHERE workout_id = ? AND ord = ?`,
			string(reps), w.ID.String(), e.Order); err != nil {
			return fmt.Errorf("saving sets for %q: %w", e.Name, err)
		}
	}
	return tx.Commit()
}

// ListWorkouts returns all sessions sorted by date descending, exercises
// included.
func (s *Store) ListWorkouts(ctx context.Context) ([]*workout.Workout, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM workouts ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning workout id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing workout id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*workout.Workout, 0, len(ids))
	for _, id := range ids {
		w, err := s.GetWorkout(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// DeleteWorkout removes a session; owned exercise rows cascade.
func (s *Store) DeleteWorkout(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM workouts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func unitFromRow(kind string, value int) workout.Unit {
	u := workout.Unit{Kind: workout.UnitKind(kind)}
	if u.Kind == workout.UnitWeightedReps {
		u.Load = value
	}
	return u
}
