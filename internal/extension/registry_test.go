package extension

import (
	"errors"
	"testing"

	"github.com/dalnet/ircore/internal/event"
)

type testExt struct {
	name     string
	priority int
	requires []string
	log      *[]string
}

func (e *testExt) Name() string { return e.name }

func (e *testExt) Describe() Descriptor {
	note := func(what string) event.Callback {
		return func(ev *event.Event) error {
			*e.log = append(*e.log, e.name+":"+what)
			return nil
		}
	}
	return Descriptor{
		Priority: e.priority,
		Requires: e.requires,
		Commands: map[string]event.Callback{
			"PRIVMSG": note("privmsg"),
			"001":     note("welcome"),
		},
		Hooks: map[string]event.Callback{
			HookConnected:     note("connected"),
			HookExtensionPost: note("post"),
		},
		Events: []Subscription{
			{Class: "custom", Name: "thing", Func: note("thing")},
			{Class: "custom", Name: "early", Priority: PriorityFirst, Override: true, Func: note("early")},
		},
	}
}

func factory(name string, priority int, log *[]string, requires ...string) Factory {
	return func(Conn) Extension {
		return &testExt{name: name, priority: priority, requires: requires, log: log}
	}
}

func TestBuild(t *testing.T) {
	var log []string
	bus := event.New()
	r, err := Build(bus, nil, []Factory{
		factory("a", 10, &log),
		factory("b", 0, &log, "a"),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(log) != 2 || log[0] != "b:post" || log[1] != "a:post" {
		t.Errorf("Expected extension_post in priority order, got %v", log)
	}

	log = nil
	bus.Dispatch(ClassCommands, "privmsg", nil)
	if len(log) != 2 || log[0] != "b:privmsg" || log[1] != "a:privmsg" {
		t.Errorf("Unexpected dispatch order: %v", log)
	}

	if r.Get("a") == nil || r.Get("missing") != nil {
		t.Errorf("Get returned unexpected results")
	}
	exts := r.Extensions()
	if len(exts) != 2 || exts[0].Name() != "a" || exts[1].Name() != "b" {
		t.Errorf("Extensions() not in load order")
	}
}

func TestBuildSubscriptionOverride(t *testing.T) {
	var log []string
	bus := event.New()
	if _, err := Build(bus, nil, []Factory{factory("a", 50, &log)}); err != nil {
		t.Fatal(err)
	}

	bus.Register("custom", "early", 0, func(ev *event.Event) error {
		log = append(log, "other")
		return nil
	})
	bus.Register("custom", "thing", 0, func(ev *event.Event) error {
		log = append(log, "other")
		return nil
	})

	log = nil
	bus.Dispatch("custom", "early", nil)
	if len(log) != 2 || log[0] != "a:early" || log[1] != "other" {
		t.Errorf("Override priority not applied: %v", log)
	}

	log = nil
	bus.Dispatch("custom", "thing", nil)
	if len(log) != 2 || log[0] != "other" || log[1] != "a:thing" {
		t.Errorf("Descriptor priority not applied: %v", log)
	}
	if bus.Len("custom", "thing") != 2 {
		t.Errorf("Expected two custom/thing registrations")
	}
}

func TestMissingDependency(t *testing.T) {
	var log []string
	bus := event.New()
	_, err := Build(bus, nil, []Factory{
		factory("c", 0, &log),
		factory("b", 0, &log, "A"),
	})

	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingDependencyError, got %v", err)
	}
	if missing.Name != "A" || missing.Extension != "b" {
		t.Errorf("Unexpected error fields: %+v", missing)
	}
	if !errors.Is(err, ErrMissingDependency) {
		t.Errorf("Expected errors.Is(err, ErrMissingDependency)")
	}

	for _, key := range [][2]string{
		{ClassCommands, "privmsg"},
		{ClassCommands, "001"},
		{ClassHooks, HookConnected},
		{ClassHooks, HookExtensionPost},
	} {
		if n := bus.Len(key[0], key[1]); n != 0 {
			t.Errorf("%s/%s has %d registrations after failed build", key[0], key[1], n)
		}
	}
	if len(log) != 0 {
		t.Errorf("Handlers ran after failed build: %v", log)
	}
}

func TestDependencyMustComeFirst(t *testing.T) {
	var log []string
	_, err := Build(event.New(), nil, []Factory{
		factory("b", 0, &log, "a"),
		factory("a", 0, &log),
	})
	if !errors.Is(err, ErrMissingDependency) {
		t.Errorf("Expected a dependency declared later to be rejected, got %v", err)
	}
}

func TestDuplicateExtension(t *testing.T) {
	var log []string
	_, err := Build(event.New(), nil, []Factory{
		factory("a", 0, &log),
		factory("a", 0, &log),
	})
	if !errors.Is(err, ErrDuplicateExtension) {
		t.Errorf("Expected ErrDuplicateExtension, got %v", err)
	}
}

func TestRebuildIsRepeatable(t *testing.T) {
	var log []string
	bus := event.New()
	r, err := Build(bus, nil, []Factory{factory("a", 0, &log)})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := r.Rebuild(); err != nil {
			t.Fatal(err)
		}
	}
	if n := bus.Len(ClassCommands, "PRIVMSG"); n != 1 {
		t.Errorf("Expected 1 registration after rebuilds, got %d", n)
	}
}

func TestAddRemove(t *testing.T) {
	var log []string
	bus := event.New()
	r, err := Build(bus, nil, []Factory{factory("a", 0, &log)})
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Add(factory("b", 0, &log, "a")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if bus.Len(ClassCommands, "privmsg") != 2 {
		t.Errorf("Expected 2 registrations after Add")
	}

	if err := r.Remove("a"); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("Removing a required extension should fail, got %v", err)
	}
	if err := r.Remove("b"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := r.Remove("b"); err == nil {
		t.Errorf("Expected error removing an unloaded extension")
	}
	if bus.Len(ClassCommands, "privmsg") != 1 || r.Get("b") != nil {
		t.Errorf("Extension b still registered")
	}
}

// failPost loads fine but fails its extension_post hook.
type failPost struct{}

func (failPost) Name() string { return "failpost" }

func (failPost) Describe() Descriptor {
	return Descriptor{
		Commands: map[string]event.Callback{
			"PRIVMSG": func(*event.Event) error { return nil },
		},
		Hooks: map[string]event.Callback{
			HookExtensionPost: func(*event.Event) error { return errors.New("boom") },
		},
	}
}

func TestAddRollsBackOnFailedPost(t *testing.T) {
	var log []string
	bus := event.New()
	r, err := Build(bus, nil, []Factory{factory("a", 0, &log)})
	if err != nil {
		t.Fatal(err)
	}

	err = r.Add(func(Conn) Extension { return failPost{} })
	if err == nil {
		t.Fatal("Expected Add to fail")
	}
	if r.Get("failpost") != nil || len(r.Extensions()) != 1 {
		t.Errorf("failpost is still loaded: %v", r.Extensions())
	}
	if n := bus.Len(ClassCommands, "privmsg"); n != 1 {
		t.Errorf("Got %d privmsg registrations, want 1", n)
	}

	log = nil
	if _, err := bus.Dispatch(ClassCommands, "privmsg", nil); err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 || log[0] != "a:privmsg" {
		t.Errorf("Unexpected handlers after rollback: %v", log)
	}
}
