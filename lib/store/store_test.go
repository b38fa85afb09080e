package store

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type fooBar struct {
	Foo string
	Bar string
}

type nested struct {
	Name  string
	Tags  []string
	Meta  map[string]int
	Child *fooBar
}

func TestStore_DefaultState(t *testing.T) {
	s := New(fooBar{Foo: "foo", Bar: "bar"})

	if got := s.Get(); got != (fooBar{Foo: "foo", Bar: "bar"}) {
		t.Errorf("Get() = %+v, want default state", got)
	}
	if s.Version() != 0 {
		t.Errorf("Version() = %d, want 0", s.Version())
	}
}

func TestStore_SetReturningNewValue(t *testing.T) {
	s := New(fooBar{Foo: "foo", Bar: "bar"})

	err := s.Set(func(draft *fooBar) error {
		next := *draft
		next.Bar = "new"
		*draft = next
		return nil
	})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	want := fooBar{Foo: "foo", Bar: "new"}
	if got := s.Get(); got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestStore_SetMutatingDraft(t *testing.T) {
	s := New(fooBar{Foo: "foo", Bar: "bar"})

	if err := s.Set(func(draft *fooBar) error {
		draft.Foo = "new foo"
		return nil
	}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if got := s.Get().Foo; got != "new foo" {
		t.Errorf("Foo = %q, want %q", got, "new foo")
	}
}

func TestStore_FoldOfRecipes(t *testing.T) {
	recipes := []Recipe[int]{
		func(d *int) error { *d += 3; return nil },
		func(d *int) error { *d *= 4; return nil },
		func(d *int) error { *d = *d - 2; return nil },
		func(d *int) error { return nil },
		func(d *int) error { *d /= 5; return nil },
	}

	s := New(1)
	want := 1
	for _, r := range recipes {
		if err := s.Set(r); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := r(&want); err != nil {
			t.Fatal(err)
		}
	}

	if got := s.Get(); got != want {
		t.Errorf("Get() = %d, want %d", got, want)
	}
}

func TestStore_PreviousValueNeverMutated(t *testing.T) {
	s := New(nested{
		Name:  "a",
		Tags:  []string{"x", "y"},
		Meta:  map[string]int{"n": 1},
		Child: &fooBar{Foo: "foo"},
	})
	before := s.Get()

	err := s.Set(func(draft *nested) error {
		draft.Tags[0] = "changed"
		draft.Meta["n"] = 2
		draft.Child.Foo = "changed"
		return nil
	})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if before.Tags[0] != "x" || before.Meta["n"] != 1 || before.Child.Foo != "foo" {
		t.Errorf("previous value was mutated: %+v", before)
	}
	after := s.Get()
	if after.Tags[0] != "changed" || after.Meta["n"] != 2 || after.Child.Foo != "changed" {
		t.Errorf("new value missing changes: %+v", after)
	}
}

func TestStore_StructuralSharing(t *testing.T) {
	s := New(nested{
		Name:  "a",
		Tags:  []string{"x", "y"},
		Meta:  map[string]int{"n": 1},
		Child: &fooBar{Foo: "foo"},
	})
	before := s.Get()

	if err := s.Set(func(draft *nested) error {
		draft.Name = "b"
		return nil
	}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	after := s.Get()

	if after.Child != before.Child {
		t.Error("unchanged pointer subtree was not shared")
	}
	if reflect.ValueOf(after.Meta).Pointer() != reflect.ValueOf(before.Meta).Pointer() {
		t.Error("unchanged map subtree was not shared")
	}
	if &after.Tags[0] != &before.Tags[0] {
		t.Error("unchanged slice subtree was not shared")
	}
}

func TestStore_RecipeErrorLeavesValue(t *testing.T) {
	boom := errors.New("boom")
	s := New(fooBar{Foo: "foo"})

	notified := false
	s.Subscribe(func(fooBar) error {
		notified = true
		return nil
	})

	err := s.Set(func(draft *fooBar) error {
		draft.Foo = "partial"
		return boom
	})

	if !IsRecipeError(err) {
		t.Fatalf("Set() error = %v, want RecipeError", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Set() error should wrap the recipe error: %v", err)
	}
	if got := s.Get().Foo; got != "foo" {
		t.Errorf("Foo = %q, want unchanged %q", got, "foo")
	}
	if notified {
		t.Error("listener notified after failed recipe")
	}
}

func TestStore_RecipePanic(t *testing.T) {
	s := New(1)

	err := s.Set(func(draft *int) error {
		*draft = 2
		panic("kaboom")
	})

	var re *RecipeError
	if !errors.As(err, &re) {
		t.Fatalf("Set() error = %v, want *RecipeError", err)
	}
	if !strings.Contains(re.Error(), "kaboom") {
		t.Errorf("error %q should mention the panic value", re.Error())
	}
	if s.Get() != 1 {
		t.Errorf("Get() = %d, want 1", s.Get())
	}

	// The scheduler must still accept work after a failed recipe.
	if err := s.Replace(3); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if s.Get() != 3 {
		t.Errorf("Get() = %d, want 3", s.Get())
	}
}

func TestStore_ListenerPanicKeepsCommitAndNotifiesOthers(t *testing.T) {
	s := New(1)
	var seen []int
	s.Subscribe(func(v int) error { panic("listener blew up") })
	s.Subscribe(func(v int) error { seen = append(seen, v); return nil })

	err := s.Replace(2)
	if !errors.Is(err, ErrListenerPanic) || !strings.Contains(err.Error(), "listener blew up") {
		t.Fatalf("Replace() error = %v, want %v", err, ErrListenerPanic)
	}
	if s.Get() != 2 {
		t.Errorf("Get() = %d, want committed 2", s.Get())
	}
	if !reflect.DeepEqual(seen, []int{2}) {
		t.Errorf("later listener saw %v, want [2]", seen)
	}
	if s.Scheduler().Draining() {
		t.Error("scheduler still draining")
	}
}

func TestStore_NilRecipe(t *testing.T) {
	s := New(1)
	if err := s.Set(nil); !IsRecipeError(err) {
		t.Errorf("Set(nil) error = %v, want RecipeError", err)
	}
}

func TestStore_NoNotificationWhenUnchanged(t *testing.T) {
	s := New(nested{Name: "a", Tags: []string{"x"}, Meta: map[string]int{"n": 1}})

	calls := 0
	s.Subscribe(func(nested) error {
		calls++
		return nil
	})

	tests := []struct {
		name   string
		recipe Recipe[nested]
	}{
		{"noop", func(*nested) error { return nil }},
		{"same scalar", func(d *nested) error { d.Name = "a"; return nil }},
		{"equal copy", func(d *nested) error {
			*d = nested{Name: "a", Tags: []string{"x"}, Meta: map[string]int{"n": 1}}
			return nil
		}},
		{"write then revert", func(d *nested) error {
			d.Tags[0] = "y"
			d.Tags[0] = "x"
			return nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Set(tt.recipe); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
		})
	}

	if calls != 0 {
		t.Errorf("listener called %d times, want 0", calls)
	}
	if s.Version() != 0 {
		t.Errorf("Version() = %d, want 0", s.Version())
	}
}

func TestStore_CustomEquality(t *testing.T) {
	s := NewWithEqual(fooBar{Foo: "1", Bar: "a"}, func(a, b fooBar) bool {
		return a.Foo == b.Foo
	})

	calls := 0
	s.Subscribe(func(fooBar) error {
		calls++
		return nil
	})

	s.Set(func(d *fooBar) error { d.Bar = "b"; return nil })
	s.Set(func(d *fooBar) error { d.Foo = "2"; return nil })

	if calls != 1 {
		t.Errorf("listener called %d times, want 1", calls)
	}
	if got := s.Get(); got.Bar != "a" {
		t.Errorf("Bar = %q, want uncommitted change dropped", got.Bar)
	}
}

func TestStore_SubscribeIsNotImmediate(t *testing.T) {
	s := New(0)

	var seen []int
	s.Subscribe(func(v int) error {
		seen = append(seen, v)
		return nil
	})
	if len(seen) != 0 {
		t.Fatalf("listener called on subscribe: %v", seen)
	}

	s.Replace(1)
	s.Replace(2)
	if !reflect.DeepEqual(seen, []int{1, 2}) {
		t.Errorf("seen = %v, want [1 2]", seen)
	}
}

func TestStore_NotificationOrder(t *testing.T) {
	s := New(0)

	var order []string
	s.Subscribe(func(int) error {
		order = append(order, "L1 start")
		order = append(order, "L1 end")
		return nil
	})
	s.Subscribe(func(int) error {
		order = append(order, "L2 start")
		order = append(order, "L2 end")
		return nil
	})

	s.Replace(1)

	want := []string{"L1 start", "L1 end", "L2 start", "L2 end"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestStore_DisposeStopsNotifications(t *testing.T) {
	s := New(0)

	calls := 0
	dispose := s.Subscribe(func(int) error {
		calls++
		return nil
	})

	s.Replace(1)
	dispose()
	dispose()
	s.Replace(2)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestStore_DisposeDuringNotification(t *testing.T) {
	s := New(0)

	var second Disposer
	secondCalls := 0
	s.Subscribe(func(int) error {
		second()
		return nil
	})
	second = s.Subscribe(func(int) error {
		secondCalls++
		return nil
	})

	s.Replace(1)

	if secondCalls != 0 {
		t.Errorf("disposed listener called %d times during in-flight notification", secondCalls)
	}
}

func TestStore_ReentrantSetIsDeferred(t *testing.T) {
	s := New(0)

	var events []string
	s.Subscribe(func(v int) error {
		events = append(events, "L1 saw "+strconv.Itoa(v))
		if v == 1 {
			if err := s.Replace(2); err != nil {
				t.Errorf("nested Replace() error = %v", err)
			}
			events = append(events, "L1 after nested set, value "+strconv.Itoa(s.Get()))
		}
		return nil
	})
	s.Subscribe(func(v int) error {
		events = append(events, "L2 saw "+strconv.Itoa(v))
		return nil
	})

	if err := s.Replace(1); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	want := []string{
		"L1 saw 1",
		"L1 after nested set, value 1",
		"L2 saw 1",
		"L1 saw 2",
		"L2 saw 2",
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events =\n%v\nwant\n%v", events, want)
	}
	if s.Get() != 2 {
		t.Errorf("Get() = %d, want 2", s.Get())
	}
}

func TestStore_DeferredErrorsSurfaceToDrainer(t *testing.T) {
	boom := errors.New("boom")
	s := New(0)

	s.Subscribe(func(v int) error {
		if v == 1 {
			s.Set(func(*int) error { return boom })
		}
		return nil
	})

	err := s.Replace(1)
	if !errors.Is(err, boom) || !IsRecipeError(err) {
		t.Errorf("Replace() error = %v, want deferred recipe error", err)
	}
	if s.Get() != 1 {
		t.Errorf("Get() = %d, want 1", s.Get())
	}
}

func TestStore_ListenerErrorsJoined(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")
	s := New(0)

	reached := false
	s.Subscribe(func(int) error { return e1 })
	s.Subscribe(func(int) error { reached = true; return e2 })

	err := s.Replace(1)
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Errorf("Replace() error = %v, want both listener errors", err)
	}
	if !reached {
		t.Error("second listener skipped after first failed")
	}
	if s.Get() != 1 {
		t.Errorf("Get() = %d, want committed value 1", s.Get())
	}
}

func TestStore_SharedSchedulerOrdersAcrossStores(t *testing.T) {
	sched := NewScheduler()
	a := New(0, WithScheduler(sched))
	b := New("", WithScheduler(sched))

	var events []string
	a.Subscribe(func(v int) error {
		b.Replace("from a")
		events = append(events, "a="+strconv.Itoa(v)+" b="+b.Get())
		return nil
	})
	b.Subscribe(func(v string) error {
		events = append(events, "b="+v)
		return nil
	})

	a.Replace(1)

	want := []string{"a=1 b=", "b=from a"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestStore_ConcurrentSets(t *testing.T) {
	s := New(map[string]int{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set(func(d *map[string]int) error {
				(*d)["n"]++
				return nil
			})
		}()
	}
	wg.Wait()

	if got := s.Get()["n"]; got != 50 {
		t.Errorf("n = %d, want 50", got)
	}
}

func TestStore_SetDuringForeignDrainReportsToDrainer(t *testing.T) {
	s := New(0)
	entered := make(chan struct{})
	release := make(chan struct{})

	var drainErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		drainErr = s.Set(func(d *int) error {
			close(entered)
			<-release
			*d = 1
			return nil
		})
	}()

	<-entered
	// Issued while the other goroutine drains: queued, not applied.
	err := s.Set(func(d *int) error { return errors.New("rejected by queued set") })
	if err != nil {
		t.Errorf("queued Set() error = %v, want nil", err)
	}
	close(release)
	<-done

	if !IsRecipeError(drainErr) || !strings.Contains(drainErr.Error(), "rejected by queued set") {
		t.Errorf("drainer Set() error = %v, want the queued recipe error", drainErr)
	}
	if s.Get() != 1 {
		t.Errorf("Get() = %d, want 1", s.Get())
	}
}
