package store

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestScheduler_RunOutsideDrain(t *testing.T) {
	s := NewScheduler()

	ran := false
	err := s.Run(func() error {
		ran = true
		if !s.Draining() {
			t.Error("Draining() = false inside job")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !ran {
		t.Error("job did not run")
	}
	if s.Draining() {
		t.Error("Draining() = true after drain finished")
	}
}

func TestScheduler_NestedRunIsQueued(t *testing.T) {
	s := NewScheduler()

	var order []string
	s.Run(func() error {
		order = append(order, "outer start")
		s.Run(func() error {
			order = append(order, "inner")
			return nil
		})
		order = append(order, "outer end")
		return nil
	})

	want := []string{"outer start", "outer end", "inner"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestScheduler_EffectsRunAfterJobsAndDedupe(t *testing.T) {
	s := NewScheduler()
	key := new(int)

	var order []string
	s.Run(func() error {
		s.Schedule(key, func() error {
			order = append(order, "effect")
			return nil
		})
		s.Run(func() error {
			order = append(order, "queued job")
			s.Schedule(key, func() error {
				order = append(order, "duplicate effect")
				return nil
			})
			return nil
		})
		order = append(order, "job")
		return nil
	})

	want := []string{"job", "queued job", "effect"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestScheduler_EffectCanBeRescheduledAfterRunning(t *testing.T) {
	s := NewScheduler()
	key := "render"

	runs := 0
	var fx func() error
	fx = func() error {
		runs++
		if runs == 1 {
			s.Run(func() error {
				return s.Schedule(key, fx)
			})
		}
		return nil
	}

	s.Run(func() error { return s.Schedule(key, fx) })

	if runs != 2 {
		t.Errorf("effect ran %d times, want 2", runs)
	}
}

func TestScheduler_ScheduleOutsideDrainRunsNow(t *testing.T) {
	s := NewScheduler()
	boom := errors.New("boom")

	err := s.Schedule("k", func() error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("Schedule() error = %v, want %v", err, boom)
	}
}

func TestScheduler_JoinsErrors(t *testing.T) {
	s := NewScheduler()
	e1 := errors.New("job")
	e2 := errors.New("queued")
	e3 := errors.New("effect")

	err := s.Run(func() error {
		s.Run(func() error { return e2 })
		s.Schedule("k", func() error { return e3 })
		return e1
	})

	for _, want := range []error{e1, e2, e3} {
		if !errors.Is(err, want) {
			t.Errorf("Run() error = %v, missing %v", err, want)
		}
	}
}

func TestScheduler_RecoversFromPanic(t *testing.T) {
	s := NewScheduler()

	func() {
		defer func() { recover() }()
		s.Run(func() error {
			s.Run(func() error { t.Error("queued job ran after panic"); return nil })
			panic("listener blew up")
		})
	}()

	if s.Draining() {
		t.Fatal("scheduler still draining after panic")
	}
	ran := false
	s.Run(func() error { ran = true; return nil })
	if !ran {
		t.Error("scheduler unusable after panic")
	}
}

func TestScheduler_PanicStillRunsScheduledEffects(t *testing.T) {
	s := NewScheduler()
	var ran []string

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic should reach the drainer")
			}
		}()
		s.Run(func() error {
			s.Schedule("flush", func() error { ran = append(ran, "flush"); return nil })
			s.Schedule("broken", func() error { panic("effect blew up") })
			s.Schedule("after", func() error { ran = append(ran, "after"); return nil })
			panic("listener blew up")
		})
	}()

	if strings.Join(ran, ",") != "flush,after" {
		t.Errorf("effects run = %v, want [flush after]", ran)
	}
	if s.Draining() {
		t.Error("scheduler still draining after panic")
	}
}
