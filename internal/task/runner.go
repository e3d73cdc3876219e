// Package task runs named tasks with dependencies, one at a time.
package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrUnknownTask indicates a task name that was never registered.
	ErrUnknownTask = errors.New("task not found")

	// ErrCycle indicates tasks that depend on each other.
	ErrCycle = errors.New("task dependency cycle")
)

// Func is the body of a task.
type Func func(ctx context.Context) error

// Task is a named unit of work. A task without Fn only groups its Deps.
type Task struct {
	Name string
	Deps []string
	Fn   Func
}

// Observer is notified synchronously around every task.
type Observer interface {
	OnStart(t *Task)
	OnFinish(t *Task, elapsed time.Duration)
	OnError(t *Task, elapsed time.Duration, err error)
}

// Error reports the task that failed a run.
type Error struct {
	Task string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("task %q: %v", e.Task, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Runner holds registered tasks.
type Runner struct {
	tasks    map[string]*Task
	observer Observer
}

// NewRunner creates a runner. observer may be nil.
func NewRunner(observer Observer) *Runner {
	return &Runner{tasks: make(map[string]*Task), observer: observer}
}

// Add registers a task, replacing any task with the same name.
func (r *Runner) Add(name string, deps []string, fn Func) {
	r.tasks[name] = &Task{Name: name, Deps: deps, Fn: fn}
}

// Names returns the registered task names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *Runner) Has(name string) bool {
	_, ok := r.tasks[name]
	return ok
}

// Run runs the named tasks and their dependencies. Dependencies run
// before their dependents, each task at most once. The first failure
// stops the run.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	order, err := r.plan(names)
	if err != nil {
		return err
	}

	for _, t := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runOne(ctx, t); err != nil {
			return &Error{Task: t.Name, Err: err}
		}
	}
	return nil
}

func (r *Runner) runOne(ctx context.Context, t *Task) error {
	if r.observer != nil {
		r.observer.OnStart(t)
	}
	start := time.Now()

	var err error
	if t.Fn != nil {
		err = t.Fn(ctx)
	}

	elapsed := time.Since(start)
	if r.observer != nil {
		if err != nil {
			r.observer.OnError(t, elapsed, err)
		} else {
			r.observer.OnFinish(t, elapsed)
		}
	}
	return err
}

// plan orders the tasks depth first, dependencies in declaration order.
// A group task runs after its dependencies so its finish marks theirs.
func (r *Runner) plan(names []string) ([]*Task, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var order []*Task
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		t, ok := r.tasks[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTask, name)
		}
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s -> %s", ErrCycle, strings.Join(path, " -> "), name)
		}

		state[name] = visiting
		path = append(path, name)
		for _, dep := range t.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		order = append(order, t)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
