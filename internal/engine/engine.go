package engine

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"gmao/internal/config"
	"gmao/internal/domain"
	"gmao/internal/events"
	"gmao/internal/logger"
	"gmao/internal/repo"
	"gmao/internal/store"
)

// Engine owns the equipment registry, the mission store and the student
// records. Each collection is held in memory and rewritten wholesale to the
// store after every mutation. Operations are serialised by a mutex; separate
// processes sharing a store still follow last-writer-wins.
type Engine struct {
	Store  store.Store
	Events events.Writer
	Config *config.Config
	Log    *logger.Logger
	Now    func() time.Time
	NewID  func() string

	mu        sync.Mutex
	loaded    bool
	equipment []domain.Equipment
	missions  []domain.Mission
	students  []domain.Student

	validateOnce sync.Once
	validate     *validator.Validate
}

var nopLog = logger.Nop()

func New(s store.Store, cfg *config.Config) *Engine {
	return &Engine{
		Store:  s,
		Config: cfg,
		Log:    logger.Nop(),
		Now:    time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e *Engine) log() *logger.Logger {
	if e.Log == nil {
		return nopLog
	}
	return e.Log
}

// checker builds the struct validator once; it is safe for concurrent use.
func (e *Engine) checker() *validator.Validate {
	e.validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		e.validate = v
	})
	return e.validate
}

func (e *Engine) check(v any) error {
	if err := e.checker().Struct(v); err != nil {
		return fromValidator(err)
	}
	return nil
}

// Load reads every collection from the store, replacing the in-memory state.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = false
	return e.ensureLoaded(ctx)
}

func (e *Engine) ensureLoaded(ctx context.Context) error {
	if e.loaded {
		return nil
	}
	equipment, err := repo.NewCollection[domain.Equipment](e.Store, repo.KeyEquipment).Load(ctx)
	if err != nil {
		return &PersistenceError{Collection: repo.KeyEquipment, Err: err}
	}
	missions, err := repo.NewCollection[domain.Mission](e.Store, repo.KeyMissions).Load(ctx)
	if err != nil {
		return &PersistenceError{Collection: repo.KeyMissions, Err: err}
	}
	students, err := repo.NewCollection[domain.Student](e.Store, repo.KeyStudents).Load(ctx)
	if err != nil {
		return &PersistenceError{Collection: repo.KeyStudents, Err: err}
	}
	for i := range equipment {
		if equipment[i].MaintenanceSchedule == nil {
			equipment[i].MaintenanceSchedule = []domain.MaintenanceTask{}
		}
	}
	e.equipment, e.missions, e.students = equipment, missions, students
	e.loaded = true
	e.log().Debug("collections loaded", "equipment", len(equipment), "missions", len(missions), "students", len(students))
	return nil
}

// lock acquires the engine and makes sure the collections are loaded.
func (e *Engine) lock(ctx context.Context) error {
	e.mu.Lock()
	if err := e.ensureLoaded(ctx); err != nil {
		e.mu.Unlock()
		return err
	}
	return nil
}

func save[T any](ctx context.Context, e *Engine, key, op, id string, items []T) error {
	if err := repo.NewCollection[T](e.Store, key).Save(ctx, items); err != nil {
		e.log().Error("persist failed", "collection", key, "id", id, "op", op, "error", err)
		return &PersistenceError{Collection: key, Err: err}
	}
	e.log().Debug("persisted", "collection", key, "id", id, "op", op)
	return nil
}

// emit appends an audit event. The mutation is already persisted, so a
// failing event log is only reported.
func (e *Engine) emit(ctx context.Context, evtType, kind, id string, payload events.EventPayload) {
	if e.Events.Now == nil {
		e.Events.Now = e.Now
	}
	if err := e.Events.Append(ctx, evtType, kind, id, payload); err != nil {
		e.log().Warn("audit event dropped", "type", evtType, "id", id, "error", err)
	}
}

func (e *Engine) permissive() bool {
	return e.Config.PermissiveTransitions()
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
