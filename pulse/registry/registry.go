// Package registry holds the process-wide collections a lanes runtime
// consults while running commands: named serial lanes, the set of active
// jobs, action targets and event handlers.
//
// Each collection is guarded by its own lock; there is no invariant that
// spans collections, so no operation takes more than one lock.
package registry

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/logger"
	"github.com/teranos/lanes/pulse/lane"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Registry is safe for concurrent use.
type Registry struct {
	logger *zap.SugaredLogger

	lanesMu sync.RWMutex
	lanes   map[string]*lane.Lane

	activeMu sync.RWMutex
	active   map[uuid.UUID]struct{}

	targetsMu sync.RWMutex
	targets   []any

	handlersMu sync.RWMutex
	handlers   []*Handler
}

// New creates an empty registry. A nil logger falls back to the
// "pulse.registry" component logger.
func New(log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = logger.ComponentLogger("pulse.registry")
	}
	return &Registry{
		logger: log,
		lanes:  make(map[string]*lane.Lane),
		active: make(map[uuid.UUID]struct{}),
	}
}

// reserved lane names belong to the execution provider.
func reserved(name string) bool {
	return name == lane.MainLaneName || name == lane.CompletionLaneName
}

// AddLane creates, starts and registers a serial lane. It returns false if a
// lane with that name exists or the name is empty or reserved.
func (r *Registry) AddLane(name string, priority lane.Priority) bool {
	if name == "" || reserved(name) {
		r.logger.Warnw("Refusing to register lane", logger.FieldLane, name)
		return false
	}

	r.lanesMu.Lock()
	defer r.lanesMu.Unlock()
	if _, exists := r.lanes[name]; exists {
		return false
	}
	l := lane.NewLane(name, priority, r.logger)
	l.Start()
	r.lanes[name] = l
	r.logger.Debugw("Lane registered", logger.FieldLane, name, logger.FieldPriority, priority.String())
	return true
}

// RemoveLane unregisters and closes a lane. Work already queued on it still
// runs. It returns false if no such lane exists.
func (r *Registry) RemoveLane(name string) bool {
	r.lanesMu.Lock()
	l, ok := r.lanes[name]
	delete(r.lanes, name)
	r.lanesMu.Unlock()

	if !ok {
		return false
	}
	l.Close()
	r.logger.Debugw("Lane removed", logger.FieldLane, name)
	return true
}

// Lane looks a lane up by name.
func (r *Registry) Lane(name string) (*lane.Lane, bool) {
	r.lanesMu.RLock()
	defer r.lanesMu.RUnlock()
	l, ok := r.lanes[name]
	return l, ok
}

// LaneNames returns the registered lane names, sorted.
func (r *Registry) LaneNames() []string {
	r.lanesMu.RLock()
	names := make([]string, 0, len(r.lanes))
	for name := range r.lanes {
		names = append(names, name)
	}
	r.lanesMu.RUnlock()
	sort.Strings(names)
	return names
}

// AddActive marks a job active. It returns false if it already was.
func (r *Registry) AddActive(id uuid.UUID) bool {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	if _, ok := r.active[id]; ok {
		return false
	}
	r.active[id] = struct{}{}
	return true
}

// RemoveActive clears a job's active mark. It returns false if it was not set.
func (r *Registry) RemoveActive(id uuid.UUID) bool {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	if _, ok := r.active[id]; !ok {
		return false
	}
	delete(r.active, id)
	return true
}

func (r *Registry) IsActive(id uuid.UUID) bool {
	r.activeMu.RLock()
	defer r.activeMu.RUnlock()
	_, ok := r.active[id]
	return ok
}

// ActiveJobs returns a snapshot of the active job IDs in no particular order.
func (r *Registry) ActiveJobs() []uuid.UUID {
	r.activeMu.RLock()
	defer r.activeMu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	return ids
}

// AddTarget appends a target for target-directed commands. Targets are
// compared by identity, so they are usually pointers; an uncomparable
// target is a programming error and panics. It returns false if t is
// already registered.
func (r *Registry) AddTarget(t any) bool {
	if t == nil {
		return false
	}
	if !reflect.TypeOf(t).Comparable() {
		panic(errors.AssertionFailedf("target of type %T is not comparable", t))
	}

	r.targetsMu.Lock()
	defer r.targetsMu.Unlock()
	for _, existing := range r.targets {
		if existing == t {
			return false
		}
	}
	r.targets = append(r.targets, t)
	return true
}

// RemoveTarget removes t, keeping the order of the rest. It returns false if
// t was not registered.
func (r *Registry) RemoveTarget(t any) bool {
	if t == nil || !reflect.TypeOf(t).Comparable() {
		return false
	}

	r.targetsMu.Lock()
	defer r.targetsMu.Unlock()
	for i, existing := range r.targets {
		if existing == t {
			r.targets = append(r.targets[:i:i], r.targets[i+1:]...)
			return true
		}
	}
	return false
}

// Targets returns a snapshot of the targets in registration order.
func (r *Registry) Targets() []any {
	r.targetsMu.RLock()
	defer r.targetsMu.RUnlock()
	return append([]any(nil), r.targets...)
}

// AddHandler appends an event handler. It returns false if h is nil or
// already registered.
func (r *Registry) AddHandler(h *Handler) bool {
	if h == nil {
		return false
	}

	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	for _, existing := range r.handlers {
		if existing == h {
			return false
		}
	}
	r.handlers = append(r.handlers, h)
	r.logger.Debugw("Handler registered", "handler", h.Name())
	return true
}

// RemoveHandler removes h, keeping the order of the rest.
func (r *Registry) RemoveHandler(h *Handler) bool {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	for i, existing := range r.handlers {
		if existing == h {
			r.handlers = append(r.handlers[:i:i], r.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Handlers returns a snapshot of the handlers in registration order.
func (r *Registry) Handlers() []*Handler {
	r.handlersMu.RLock()
	defer r.handlersMu.RUnlock()
	return append([]*Handler(nil), r.handlers...)
}

// Close unregisters and closes every lane, then waits for them to drain or
// for ctx to end. The error names every lane that did not drain.
func (r *Registry) Close(ctx context.Context) error {
	r.lanesMu.Lock()
	lanes := r.lanes
	r.lanes = make(map[string]*lane.Lane)
	r.lanesMu.Unlock()

	for _, l := range lanes {
		l.Close()
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		stalled []string
	)
	for name, l := range lanes {
		name, l := name, l
		g.Go(func() error {
			select {
			case <-l.Done():
			case <-ctx.Done():
				mu.Lock()
				stalled = append(stalled, name)
				mu.Unlock()
				return errors.Wrapf(errors.ErrTimeout, "lane %s", name)
			}
			return nil
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}
	sort.Strings(stalled)
	return errors.Wrapf(errors.ErrTimeout, "lanes did not drain: %s", strings.Join(stalled, ", "))
}
