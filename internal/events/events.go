// Package events defines the closed event vocabulary of the yui engine and
// a typed publish/subscribe bus for delivering it to external observers
// (transports and dashboards live outside this module).
package events

import (
	"fmt"
	"time"

	"yui/internal/dpd"
	"yui/internal/types"
)

// Kind enumerates every event the engine can emit. The set is closed:
// adding a kind means adding a payload struct and a constructor here.
type Kind int

const (
	KindStageChanged Kind = iota
	KindStageCompleted
	KindAgentThought
	KindTriggerGenerated
	KindManualTriggerQueued
	KindDPDUpdated
	KindThoughtCycleCompleted
	KindSleepStarted
	KindSleepPhaseChanged
	KindSleepCompleted
	KindSleepError
	KindConsciousnessDormant
	KindConsciousnessAwakened
	KindCycleProcessingChanged
)

func (k Kind) String() string {
	switch k {
	case KindStageChanged:
		return "stageChanged"
	case KindStageCompleted:
		return "stageCompleted"
	case KindAgentThought:
		return "agentThought"
	case KindTriggerGenerated:
		return "triggerGenerated"
	case KindManualTriggerQueued:
		return "manualTriggerQueued"
	case KindDPDUpdated:
		return "dpdUpdated"
	case KindThoughtCycleCompleted:
		return "thoughtCycleCompleted"
	case KindSleepStarted:
		return "sleepStarted"
	case KindSleepPhaseChanged:
		return "sleepPhaseChanged"
	case KindSleepCompleted:
		return "sleepCompleted"
	case KindSleepError:
		return "sleepError"
	case KindConsciousnessDormant:
		return "consciousnessDormant"
	case KindConsciousnessAwakened:
		return "consciousnessAwakened"
	case KindCycleProcessingChanged:
		return "cycleProcessingChanged"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is one emitted occurrence. Exactly one payload field is non-zero,
// matching Kind.
type Event struct {
	// Seq is a sequence number for ordering across async sources.
	Seq uint64

	Kind      Kind
	Timestamp time.Time

	StageChanged           *StageChanged
	StageCompleted         *StageCompleted
	AgentThought           *AgentThought
	TriggerGenerated       *TriggerGenerated
	ManualTriggerQueued    *ManualTriggerQueued
	DPDUpdated             *DPDUpdated
	ThoughtCycleCompleted  *ThoughtCycleCompleted
	SleepStarted           *SleepStarted
	SleepPhaseChanged      *SleepPhaseChanged
	SleepCompleted         *SleepCompleted
	SleepError             *SleepError
	ConsciousnessDormant   *ConsciousnessDormant
	ConsciousnessAwakened  *ConsciousnessAwakened
	CycleProcessingChanged *CycleProcessingChanged
}

// StageChanged fires when a pipeline stage becomes active.
type StageChanged struct {
	Stage types.Stage
}

// StageCompleted fires when a pipeline stage finishes.
type StageCompleted struct {
	Stage types.Stage
	Name  string
}

// AgentThought carries one persona's generated thought.
type AgentThought struct {
	AgentName  string
	Thought    string
	Confidence float64
	YuiAgent   bool // true for the three core personas
}

// TriggerGenerated fires when a trigger is admitted for a cycle.
type TriggerGenerated struct {
	Trigger types.Trigger
	Source  types.TriggerSource
}

// ManualTriggerQueued fires when a manual question is parked for the next
// admitted cycle.
type ManualTriggerQueued struct {
	Question           string
	EstimatedNextCycle time.Time
}

// DPDUpdated carries the freshly renormalized prime-directive weights.
type DPDUpdated struct {
	Weights dpd.Weights
	Version int
}

// ThoughtCycleCompleted summarizes a finished cycle.
type ThoughtCycleCompleted struct {
	CycleID    string
	Status     types.CycleStatus
	DPDWeights dpd.Weights
	Stats      SystemStats
}

// SystemStats is the snapshot attached to cycle completion and state queries.
type SystemStats struct {
	TotalCycles     int64
	TotalThoughts   int64
	FailedCycles    int64
	SleepsCompleted int64
	CurrentEnergy   float64
}

// SleepStarted fires when a sleep session begins.
type SleepStarted struct {
	Reason string
}

// SleepPhaseChanged reports per-phase sleep progress.
type SleepPhaseChanged struct {
	Phase    string
	Progress float64 // 0-100 within the phase
}

// SleepCompleted fires after a successful sleep session.
type SleepCompleted struct {
	Duration     time.Duration
	EnergyBefore float64
	EnergyAfter  float64
	Dreams       []string
}

// SleepError fires when a sleep phase fails; no energy grant follows.
type SleepError struct {
	Err string
}

// ConsciousnessDormant fires on the active -> dormant transition.
type ConsciousnessDormant struct {
	Reason        string
	CurrentEnergy float64
}

// ConsciousnessAwakened fires on the dormant -> active transition.
type ConsciousnessAwakened struct {
	CurrentEnergy float64
}

// CycleProcessingChanged reports whether a cycle is currently in flight.
type CycleProcessingChanged struct {
	IsProcessingCycle bool
}
