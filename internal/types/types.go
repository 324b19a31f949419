// Package types holds the shared domain types of the yui engine:
// triggers, thoughts, thought cycles and the stage vocabulary.
package types

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Category classifies a self-directed question.
type Category string

const (
	CategoryExistential     Category = "existential"
	CategoryEpistemological Category = "epistemological"
	CategoryConsciousness   Category = "consciousness"
	CategoryEthical         Category = "ethical"
	CategoryCreative        Category = "creative"
	CategoryMetacognitive   Category = "metacognitive"
	CategoryTemporal        Category = "temporal"
	CategoryParadoxical     Category = "paradoxical"
	CategoryOntological     Category = "ontological"
)

// KnownCategories lists the nine categories the selector maps explicitly.
var KnownCategories = []Category{
	CategoryExistential,
	CategoryEpistemological,
	CategoryConsciousness,
	CategoryEthical,
	CategoryCreative,
	CategoryMetacognitive,
	CategoryTemporal,
	CategoryParadoxical,
	CategoryOntological,
}

// TriggerSource identifies where a trigger came from.
type TriggerSource string

const (
	SourceInternal TriggerSource = "internal"
	SourceManual   TriggerSource = "manual"
)

// Trigger seeds one thought cycle. Immutable once created.
type Trigger struct {
	ID         string
	Question   string
	Category   Category
	Importance float64 // [0,1]
	Source     TriggerSource
	Timestamp  time.Time
}

// Validate reports whether the trigger can start a cycle.
func (t Trigger) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("trigger missing id")
	}
	if t.Question == "" {
		return fmt.Errorf("trigger %s has empty question", t.ID)
	}
	if t.Importance < 0 || t.Importance > 1 {
		return fmt.Errorf("trigger %s importance %.3f outside [0,1]", t.ID, t.Importance)
	}
	return nil
}

// Thought is one persona's response within a cycle. Never mutated after
// creation; owned by the ThoughtCycle that produced it.
type Thought struct {
	ID         string
	PersonaID  string
	Content    string
	Confidence float64
	Category   Category
	TriggerRef string
	Timestamp  time.Time
	Tags       []string
}

// Reflection is a derived artifact from the synthesis/critique/audit stages.
type Reflection struct {
	ID        string
	Kind      ReflectionKind
	PersonaID string
	Content   string
	Score     float64
	CycleRef  string
	Timestamp time.Time
}

// ReflectionKind distinguishes derived artifacts.
type ReflectionKind string

const (
	ReflectionSynthesis ReflectionKind = "synthesis"
	ReflectionCritique  ReflectionKind = "critique"
	ReflectionAudit     ReflectionKind = "audit"
)

// Stage is a named ordered phase of a thought cycle.
type Stage int

const (
	StageTriggerIntake Stage = iota // S0
	StageIndividual                 // S1
	StageReflection                 // S2
	StageCritique                   // S3
	StageAudit                      // S4
	StageWeightUpdate               // S5
	StageRecord                     // S6
	StageCarryForward               // U
)

// PipelineStages is the strict execution order of a cycle.
var PipelineStages = []Stage{
	StageTriggerIntake,
	StageIndividual,
	StageReflection,
	StageCritique,
	StageAudit,
	StageWeightUpdate,
	StageRecord,
	StageCarryForward,
}

func (s Stage) String() string {
	switch s {
	case StageTriggerIntake:
		return "S0"
	case StageIndividual:
		return "S1"
	case StageReflection:
		return "S2"
	case StageCritique:
		return "S3"
	case StageAudit:
		return "S4"
	case StageWeightUpdate:
		return "S5"
	case StageRecord:
		return "S6"
	case StageCarryForward:
		return "U"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Name returns the human-readable stage name.
func (s Stage) Name() string {
	switch s {
	case StageTriggerIntake:
		return "trigger intake"
	case StageIndividual:
		return "individual thought"
	case StageReflection:
		return "mutual reflection"
	case StageCritique:
		return "critique"
	case StageAudit:
		return "ethics audit"
	case StageWeightUpdate:
		return "prime directive update"
	case StageRecord:
		return "record"
	case StageCarryForward:
		return "carry forward"
	default:
		return "unknown"
	}
}

// StageStatus tracks progress of a single stage.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
)

// CycleStatus is the terminal disposition of a thought cycle.
type CycleStatus string

const (
	CycleRunning  CycleStatus = "running"
	CycleComplete CycleStatus = "completed"
	CycleFailed   CycleStatus = "failed"
)

// ThoughtCycle is one full run of the staged pipeline for a single trigger.
// Mutated stage-by-stage by the orchestrator; immutable once Status leaves
// CycleRunning.
type ThoughtCycle struct {
	ID          string
	Trigger     Trigger
	Thoughts    []Thought
	Reflections []Reflection
	Stages      map[Stage]StageStatus
	Unresolved  []string
	Status      CycleStatus
	Timestamp   time.Time
}

// NewThoughtCycle creates a cycle with all stages pending.
func NewThoughtCycle(trigger Trigger) *ThoughtCycle {
	stages := make(map[Stage]StageStatus, len(PipelineStages))
	for _, s := range PipelineStages {
		stages[s] = StagePending
	}
	return &ThoughtCycle{
		ID:        NewID(),
		Trigger:   trigger,
		Stages:    stages,
		Status:    CycleRunning,
		Timestamp: time.Now(),
	}
}

// StageOf returns the recorded status for a stage.
// Once a stage reports completed it never regresses.
func (c *ThoughtCycle) StageOf(s Stage) StageStatus {
	if st, ok := c.Stages[s]; ok {
		return st
	}
	return StagePending
}

// NewID returns a ULID string; ids sort lexically by creation time.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
