package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yui/internal/events"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the continuous consciousness loop",
	Long: `Starts the engine: internal questions are generated on the configured
interval, each one runs through the full thought pipeline, and events are
streamed to the terminal.

While running, stdin accepts commands:
  <any text>   queue a manual question for the next cycle
  /sleep       enter a sleep session
  /pause       pause between pipeline stages
  /resume      resume a paused engine
  /state       print a state snapshot
  /quit        stop and exit`,
	RunE: runLoop,
}

func runLoop(cmd *cobra.Command, args []string) error {
	e, err := newEngine(true)
	if err != nil {
		return err
	}
	defer e.Close()

	sub := e.bus.Subscribe()
	go printEvents(sub)

	if err := e.sched.Start(); err != nil {
		return err
	}
	logger.Info("engine running", zap.String("home", home), zap.Bool("offline", offline))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			e.sched.Stop()
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed (piped input ended); keep running on signals.
				lines = nil
				continue
			}
			if done := handleLine(e, strings.TrimSpace(line)); done {
				e.sched.Stop()
				return nil
			}
		}
	}
}

// handleLine dispatches one stdin command; returns true on /quit.
func handleLine(e *engine, line string) bool {
	switch {
	case line == "":
		return false
	case line == "/quit" || line == "/exit":
		return true
	case line == "/sleep":
		e.sched.EnterSleep("requested from terminal")
	case line == "/pause":
		e.sched.Pause()
	case line == "/resume":
		e.sched.Resume()
	case line == "/wake":
		e.sched.Wake()
	case line == "/state":
		printSnapshot(e)
	case strings.HasPrefix(line, "/"):
		fmt.Printf("unknown command %s\n", line)
	default:
		t := e.sched.SubmitManualTrigger(line)
		fmt.Printf("queued (%s): %s\n", t.Category, t.Question)
	}
	return false
}

func printSnapshot(e *engine) {
	s := e.sched.GetState()
	fmt.Printf("running=%v state=%s paused=%v processing=%v energy=%.1f/%.0f\n",
		s.Running, s.State, s.Paused, s.Processing, s.Energy, s.EnergyMax)
	fmt.Printf("weights: %s\n", s.Weights)
	fmt.Printf("cycles=%d thoughts=%d failed=%d sleeps=%d\n",
		s.Stats.TotalCycles, s.Stats.TotalThoughts, s.Stats.FailedCycles, s.Stats.SleepsCompleted)
	if s.QueuedManual != "" {
		fmt.Printf("queued question: %s\n", s.QueuedManual)
	}
}

// printEvents renders the bus stream for the terminal.
func printEvents(sub <-chan events.Event) {
	for ev := range sub {
		switch ev.Kind {
		case events.KindTriggerGenerated:
			p := ev.TriggerGenerated
			fmt.Printf("\n? [%s/%s] %s\n", p.Trigger.Category, p.Source, p.Trigger.Question)
		case events.KindAgentThought:
			p := ev.AgentThought
			fmt.Printf("  %s (%.2f): %s\n", p.AgentName, p.Confidence, oneLine(p.Thought))
		case events.KindDPDUpdated:
			p := ev.DPDUpdated
			fmt.Printf("  weights v%d: %s\n", p.Version, p.Weights)
		case events.KindThoughtCycleCompleted:
			p := ev.ThoughtCycleCompleted
			fmt.Printf("= cycle %s %s (energy %.1f)\n", p.CycleID, p.Status, p.Stats.CurrentEnergy)
		case events.KindSleepStarted:
			fmt.Printf("~ sleeping: %s\n", ev.SleepStarted.Reason)
		case events.KindSleepPhaseChanged:
			p := ev.SleepPhaseChanged
			if p.Progress == 0 {
				fmt.Printf("~ %s\n", p.Phase)
			}
		case events.KindSleepCompleted:
			p := ev.SleepCompleted
			fmt.Printf("~ awake after %v, energy %.1f -> %.1f\n", p.Duration.Round(1e9), p.EnergyBefore, p.EnergyAfter)
			for _, d := range p.Dreams {
				fmt.Printf("  dreamt: %s\n", oneLine(d))
			}
		case events.KindSleepError:
			fmt.Printf("~ sleep failed: %s\n", ev.SleepError.Err)
		case events.KindConsciousnessDormant:
			p := ev.ConsciousnessDormant
			fmt.Printf("* dormant: %s (energy %.1f)\n", p.Reason, p.CurrentEnergy)
		case events.KindConsciousnessAwakened:
			fmt.Printf("* awake (energy %.1f)\n", ev.ConsciousnessAwakened.CurrentEnergy)
		case events.KindManualTriggerQueued:
			fmt.Printf("* question queued, next cycle ~%s\n", ev.ManualTriggerQueued.EstimatedNextCycle.Format("15:04:05"))
		}
	}
}

// oneLine compresses multi-line content for the stream view.
func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > 160 {
		return string(r[:160]) + "..."
	}
	return s
}
