package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrToolNotFound = errors.New("tool not found")

// Tool is an invocable capability addressed by id.
type Tool interface {
	ID() string
	Description() string
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// Func adapts a plain function into a Tool.
type Func struct {
	Name string
	Desc string
	Fn   func(ctx context.Context, params map[string]any) (string, error)
}

func (f Func) ID() string          { return f.Name }
func (f Func) Description() string { return f.Desc }

func (f Func) Execute(ctx context.Context, params map[string]any) (string, error) {
	return f.Fn(ctx, params)
}

type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces tool under its id.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return errors.New("tool is required")
	}
	id := strings.TrimSpace(tool.ID())
	if id == "" {
		return errors.New("tool id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[id] = tool
	return nil
}

func (r *Registry) Lookup(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[strings.TrimSpace(id)]
	return tool, ok
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Invoke runs the tool registered under id.
func (r *Registry) Invoke(ctx context.Context, id string, params map[string]any) (string, error) {
	tool, ok := r.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrToolNotFound, id)
	}
	if params == nil {
		params = map[string]any{}
	}
	return tool.Execute(ctx, params)
}
