package extension

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/dalnet/ircore/internal/event"
)

var (
	// ErrMissingDependency is matched by every *MissingDependencyError.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrDuplicateExtension is returned when two extensions share a name.
	ErrDuplicateExtension = errors.New("duplicate extension")
)

// MissingDependencyError names an extension whose Requires could not be
// satisfied by the extensions loaded before it.
type MissingDependencyError struct {
	Extension string
	Name      string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("extension %s requires %s, which is not loaded before it", e.Extension, e.Name)
}

func (e *MissingDependencyError) Unwrap() error {
	return ErrMissingDependency
}

// Registry owns the extensions loaded on one connection.
type Registry struct {
	bus  *event.Bus
	conn Conn

	exts   []Extension
	byName map[string]Extension
}

// NewRegistry creates an empty registry for conn's extensions.
func NewRegistry(bus *event.Bus, conn Conn) *Registry {
	return &Registry{
		bus:    bus,
		conn:   conn,
		byName: make(map[string]Extension),
	}
}

// Build creates a registry and loads factories into it.
func Build(bus *event.Bus, conn Conn, factories []Factory) (*Registry, error) {
	r := NewRegistry(bus, conn)
	if err := r.Load(factories...); err != nil {
		return nil, err
	}
	return r, nil
}

// Load creates one extension per factory, in order, and registers their
// handlers on the bus. Dependencies are checked but never reordered: an
// extension may only require extensions that come before it. If any check
// fails nothing is loaded and the bus is left untouched.
func (r *Registry) Load(factories ...Factory) error {
	exts := append([]Extension(nil), r.exts...)
	byName := make(map[string]Extension, len(r.byName)+len(factories))
	for k, v := range r.byName {
		byName[k] = v
	}

	for _, f := range factories {
		ext := f(r.conn)
		name := ext.Name()
		if _, ok := byName[name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateExtension, name)
		}
		for _, req := range ext.Describe().Requires {
			if _, ok := byName[req]; !ok {
				return &MissingDependencyError{Extension: name, Name: req}
			}
		}
		exts = append(exts, ext)
		byName[name] = ext
	}

	return r.commit(exts, byName)
}

// commit swaps in a new extension set and rebuilds the bus. If the rebuild
// fails the previous set is restored, so a failed change never leaves
// handlers behind.
func (r *Registry) commit(exts []Extension, byName map[string]Extension) error {
	prevExts, prevByName := r.exts, r.byName
	r.exts, r.byName = exts, byName
	err := r.Rebuild()
	if err == nil {
		return nil
	}

	r.exts, r.byName = prevExts, prevByName
	if rerr := r.Rebuild(); rerr != nil {
		log.Printf("extension: restoring previous set: %v", rerr)
	}
	return err
}

// Rebuild clears the bus and registers every extension's handlers again,
// then dispatches the extension_post hook.
func (r *Registry) Rebuild() error {
	r.bus.Clear()

	for _, ext := range r.exts {
		d := ext.Describe()
		for cmd, fn := range d.Commands {
			r.bus.Register(ClassCommands, strings.ToLower(cmd), d.Priority, fn)
		}
		for hook, fn := range d.Hooks {
			r.bus.Register(ClassHooks, hook, d.Priority, fn)
		}
		for _, s := range d.Events {
			prio := d.Priority
			if s.Override {
				prio = s.Priority
			}
			r.bus.Register(s.Class, s.Name, prio, s.Func)
		}
	}

	if _, err := r.bus.Dispatch(ClassHooks, HookExtensionPost, nil); err != nil {
		return fmt.Errorf("extension_post: %w", err)
	}
	return nil
}

// Get returns a loaded extension by name, or nil.
func (r *Registry) Get(name string) Extension {
	return r.byName[name]
}

// Extensions returns the loaded extensions in load order.
func (r *Registry) Extensions() []Extension {
	return append([]Extension(nil), r.exts...)
}

// Add loads another extension after the existing ones and rebuilds.
func (r *Registry) Add(f Factory) error {
	if err := r.Load(f); err != nil {
		return err
	}
	log.Printf("extension: loaded %s", r.exts[len(r.exts)-1].Name())
	return nil
}

// Remove unloads an extension and rebuilds. It fails if another loaded
// extension requires it.
func (r *Registry) Remove(name string) error {
	idx := -1
	for i, ext := range r.exts {
		if ext.Name() == name {
			idx = i
			continue
		}
		for _, req := range ext.Describe().Requires {
			if req == name {
				return &MissingDependencyError{Extension: ext.Name(), Name: name}
			}
		}
	}
	if idx < 0 {
		return fmt.Errorf("extension %s is not loaded", name)
	}

	exts := append(r.exts[:idx:idx], r.exts[idx+1:]...)
	byName := make(map[string]Extension, len(r.byName))
	for k, v := range r.byName {
		if k != name {
			byName[k] = v
		}
	}
	if err := r.commit(exts, byName); err != nil {
		return err
	}
	log.Printf("extension: unloaded %s", name)
	return nil
}
