// Package scenario loads and validates simulator workload descriptions.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"nanokern/kern/sched"
)

// Thread behaviors.
const (
	// BehaviorSpin burns CPU, yielding only at preempt points.
	BehaviorSpin = "spin"
	// BehaviorSleeper sleeps for SleepTicks in a loop.
	BehaviorSleeper = "sleeper"
	// BehaviorLocker shares one mutex with every other locker and sleeps
	// while holding it, provoking donation.
	BehaviorLocker = "locker"
)

// Thread describes one simulated thread.
type Thread struct {
	Name       string `yaml:"name"`
	Priority   int    `yaml:"priority"`
	Nice       int    `yaml:"nice"`
	Behavior   string `yaml:"behavior"`
	SleepTicks int64  `yaml:"sleep_ticks"`
}

// Scenario is a full simulator run description.
type Scenario struct {
	Name          string   `yaml:"name"`
	MLFQS         bool     `yaml:"mlfqs"`
	DurationTicks int64    `yaml:"duration_ticks"`
	TickMicros    int      `yaml:"tick_micros"`
	Frames        int      `yaml:"frames"`
	Threads       []Thread `yaml:"threads"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	s.applyDefaults()
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) applyDefaults() {
	if s.Name == "" {
		s.Name = "unnamed"
	}
	if s.TickMicros == 0 {
		s.TickMicros = 1000
	}
	if s.Frames == 0 {
		s.Frames = 32
	}
	for i := range s.Threads {
		t := &s.Threads[i]
		if t.Behavior == "" {
			t.Behavior = BehaviorSpin
		}
		if t.Behavior == BehaviorSleeper && t.SleepTicks == 0 {
			t.SleepTicks = 10
		}
	}
}

func (s *Scenario) validate() error {
	if s.DurationTicks <= 0 {
		return fmt.Errorf("scenario %q: duration_ticks must be positive", s.Name)
	}
	if s.TickMicros < 0 {
		return fmt.Errorf("scenario %q: tick_micros must not be negative", s.Name)
	}
	if len(s.Threads) == 0 {
		return fmt.Errorf("scenario %q: no threads", s.Name)
	}
	for _, t := range s.Threads {
		if t.Name == "" {
			return fmt.Errorf("scenario %q: thread with empty name", s.Name)
		}
		if t.Priority < sched.PriMin || t.Priority > sched.PriMax {
			return fmt.Errorf("thread %q: priority %d out of [%d, %d]",
				t.Name, t.Priority, sched.PriMin, sched.PriMax)
		}
		if t.Nice < sched.NiceMin || t.Nice > sched.NiceMax {
			return fmt.Errorf("thread %q: nice %d out of [%d, %d]",
				t.Name, t.Nice, sched.NiceMin, sched.NiceMax)
		}
		switch t.Behavior {
		case BehaviorSpin, BehaviorSleeper, BehaviorLocker:
		default:
			return fmt.Errorf("thread %q: unknown behavior %q", t.Name, t.Behavior)
		}
		if t.Behavior == BehaviorSleeper && t.SleepTicks <= 0 {
			return fmt.Errorf("thread %q: sleep_ticks must be positive", t.Name)
		}
	}
	return nil
}

// Default is the built-in scenario used when no file is given.
func Default() *Scenario {
	s := &Scenario{
		Name:          "default",
		DurationTicks: 500,
		Threads: []Thread{
			{Name: "spin-hi", Priority: 40, Behavior: BehaviorSpin},
			{Name: "spin-lo", Priority: 20, Behavior: BehaviorSpin},
			{Name: "napper", Priority: 35, Behavior: BehaviorSleeper, SleepTicks: 25},
			{Name: "locker-a", Priority: 45, Behavior: BehaviorLocker},
			{Name: "locker-b", Priority: 30, Behavior: BehaviorLocker},
		},
	}
	s.applyDefaults()
	return s
}
