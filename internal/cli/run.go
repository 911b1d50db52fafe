package cli

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"nanokern/internal/scenario"
	"nanokern/kern/cswitch"
	"nanokern/kern/sched"
	"nanokern/kern/synch"
)

func newRunCmd() *cobra.Command {
	var mlfqs bool
	cmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "Run a scheduling scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := scenario.Default()
			if len(args) == 1 {
				var err error
				sc, err = scenario.Load(args[0])
				if err != nil {
					return err
				}
			}
			if mlfqs {
				sc.MLFQS = true
			}
			return runScenario(cmd.OutOrStdout(), sc)
		},
	}
	cmd.Flags().BoolVar(&mlfqs, "mlfqs", false, "Force the feedback scheduler regardless of the scenario setting")
	return cmd
}

// runner owns the workload threads of one simulation.
type runner struct {
	k    *sched.Kernel
	lock *synch.Mutex
	stop atomic.Bool
}

func (r *runner) body(t scenario.Thread) sched.Func {
	switch t.Behavior {
	case scenario.BehaviorSleeper:
		return func(any) {
			r.k.SetNice(t.Nice)
			for !r.stop.Load() {
				r.k.Sleep(t.SleepTicks)
				r.k.PreemptPoint()
			}
		}
	case scenario.BehaviorLocker:
		return func(any) {
			r.k.SetNice(t.Nice)
			for !r.stop.Load() {
				r.lock.Acquire()
				r.k.Sleep(2)
				r.lock.Release()
				r.k.Sleep(3)
			}
		}
	default:
		return func(any) {
			r.k.SetNice(t.Nice)
			for !r.stop.Load() {
				r.k.PreemptPoint()
				runtime.Gosched()
			}
		}
	}
}

func runScenario(out io.Writer, sc *scenario.Scenario) error {
	k := sched.Boot(sched.Config{
		MLFQS:    sc.MLFQS,
		Switcher: cswitch.New(),
		Frames:   sched.NewArena(sc.Frames),
		Log:      logger,
	})
	k.Start()

	// The boot thread is the conductor: it must outrank the workload so it
	// regains the CPU when its sleep expires. Under the feedback scheduler
	// this is a no-op and its low recent_cpu serves the same purpose.
	k.SetPriority(sched.PriMax)

	stopTimer := make(chan struct{})
	var timerDone sync.WaitGroup
	timerDone.Add(1)
	go func() {
		defer timerDone.Done()
		tick := time.NewTicker(time.Duration(sc.TickMicros) * time.Microsecond)
		defer tick.Stop()
		for {
			select {
			case <-stopTimer:
				return
			case <-tick.C:
				k.OnTick()
			}
		}
	}()

	r := &runner{k: k, lock: synch.NewMutex(k)}
	tids := make([]sched.TID, 0, len(sc.Threads))
	for _, th := range sc.Threads {
		id, err := k.Create(th.Name, th.Priority, r.body(th), nil)
		if err != nil {
			return fmt.Errorf("create %q: %w", th.Name, err)
		}
		tids = append(tids, id)
	}

	logger.Info("scenario started", "name", sc.Name, "threads", len(sc.Threads), "mlfqs", sc.MLFQS)
	k.Sleep(sc.DurationTicks)

	fmt.Fprintf(out, "scenario %s after %s ticks:\n", sc.Name, humanize.Comma(k.Ticks()))
	old := k.IntrDisable()
	k.ForEach(func(t *sched.Thread) {
		fmt.Fprintf(out, "  %-16s %-8s pri %2d nice %3d\n",
			t.Name(), t.State(), t.Priority(), t.Nice())
	})
	k.IntrRestore(old)

	// Wind the workload down; each thread observes the flag the next time it
	// runs, so keep yielding until all of them have exited.
	r.stop.Store(true)
	for _, id := range tids {
		for k.ByTID(id) != nil {
			k.Yield()
			runtime.Gosched()
		}
	}

	close(stopTimer)
	timerDone.Wait()

	s := k.Stats()
	fmt.Fprintf(out, "ticks: %s total, %s kernel, %s idle, %s external\n",
		humanize.Comma(s.Ticks), humanize.Comma(s.KernelTicks),
		humanize.Comma(s.IdleTicks), humanize.Comma(s.ExternalTicks))
	if sc.MLFQS {
		la := k.LoadAvg100()
		fmt.Fprintf(out, "load average: %d.%02d\n", la/100, la%100)
	}
	return nil
}
