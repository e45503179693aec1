// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"strings"
	"sync"
)

// ControlContext is attached to every live component: it records the
// parent context (nil for the root), a logger scoped to this component,
// and the component's hierarchical name path. The root context
// additionally indexes every named descendant for [ControlContext.GetComponent]
// lookups.
type ControlContext struct {
	parent   *ControlContext
	root     *ControlContext
	logger   Logger
	namePath []string
	component Component

	// Only meaningful on the root context.
	mu          sync.Mutex
	descendants map[*ControlContext]Component
	byNamePath  map[string]Component
}

// NewRootContext returns the [*ControlContext] for a tree's root
// component, with an empty name path.
func NewRootContext(logger Logger) *ControlContext {
	root := &ControlContext{
		logger:      logger,
		descendants: make(map[*ControlContext]Component),
		byNamePath:  make(map[string]Component),
	}
	root.root = root
	return root
}

// Logger returns the logger scoped to this component.
func (c *ControlContext) Logger() Logger { return c.logger }

// NamePath returns this component's dotted name path components, e.g.
// ["applications", "router1"].
func (c *ControlContext) NamePath() []string {
	return append([]string(nil), c.namePath...)
}

// Parent returns the parent context, or nil at the root.
func (c *ControlContext) Parent() *ControlContext { return c.parent }

// child returns a new [*ControlContext] for a child named name, indexed
// under the shared root.
func (c *ControlContext) child(name string) *ControlContext {
	path := append(append([]string(nil), c.namePath...), name)
	return &ControlContext{
		parent:   c,
		root:     c.root,
		logger:   c.logger.With(strings.Join(path, ".")),
		namePath: path,
	}
}

// bindComponent records component as owning this context in the root's
// descendant and name-path indices. Called by [BaseComponent.Init].
func (c *ControlContext) bindComponent(component Component) {
	c.component = component
	root := c.root
	root.mu.Lock()
	defer root.mu.Unlock()
	root.descendants[c] = component
	if len(c.namePath) > 0 {
		root.byNamePath[strings.Join(c.namePath, ".")] = component
	}
}

// GetComponent looks up a descendant by its dotted name path (e.g.
// "applications.router1"), failing with [ErrNotFound] if absent, or
// [ErrWrongClass] if requiredClass is non-empty and does not match.
func (c *ControlContext) GetComponent(namePath []string, requiredClass string) (Component, error) {
	root := c.root
	key := strings.Join(namePath, ".")

	root.mu.Lock()
	component, ok := root.byNamePath[key]
	root.mu.Unlock()

	if !ok {
		return nil, NewError(KindNotFound, "no component named "+key, nil)
	}
	if requiredClass != "" && component.Class() != requiredClass {
		return nil, NewError(KindWrongClass, key+" is class "+component.Class()+", want "+requiredClass, nil)
	}
	return component, nil
}

// Descendants returns every component registered under this context's
// root, for diagnostics and tree dumps.
func (c *ControlContext) Descendants() []Component {
	root := c.root
	root.mu.Lock()
	defer root.mu.Unlock()
	out := make([]Component, 0, len(root.descendants))
	for _, comp := range root.descendants {
		out = append(out, comp)
	}
	return out
}
