package types

import (
	"testing"
	"time"
)

func TestTrigger_Validate(t *testing.T) {
	valid := Trigger{
		ID:         NewID(),
		Question:   "what persists between cycles?",
		Category:   CategoryTemporal,
		Importance: 0.5,
		Source:     SourceInternal,
		Timestamp:  time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid trigger rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Trigger)
	}{
		{"missing id", func(tr *Trigger) { tr.ID = "" }},
		{"empty question", func(tr *Trigger) { tr.Question = "" }},
		{"importance below range", func(tr *Trigger) { tr.Importance = -0.1 }},
		{"importance above range", func(tr *Trigger) { tr.Importance = 1.1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := valid
			tc.mutate(&tr)
			if err := tr.Validate(); err == nil {
				t.Error("invalid trigger accepted")
			}
		})
	}
}

func TestStage_Labels(t *testing.T) {
	want := map[Stage]string{
		StageTriggerIntake: "S0",
		StageIndividual:    "S1",
		StageReflection:    "S2",
		StageCritique:      "S3",
		StageAudit:         "S4",
		StageWeightUpdate:  "S5",
		StageRecord:        "S6",
		StageCarryForward:  "U",
	}
	for stage, label := range want {
		if stage.String() != label {
			t.Errorf("%v.String() = %q, want %q", int(stage), stage.String(), label)
		}
		if stage.Name() == "unknown" {
			t.Errorf("stage %s has no name", label)
		}
	}
	if Stage(99).String() == "" || Stage(99).Name() != "unknown" {
		t.Error("out-of-range stage not handled")
	}
}

func TestPipelineStages_Ordered(t *testing.T) {
	if len(PipelineStages) != 8 {
		t.Fatalf("pipeline has %d stages, want 8", len(PipelineStages))
	}
	for i := 1; i < len(PipelineStages); i++ {
		if PipelineStages[i] <= PipelineStages[i-1] {
			t.Errorf("stages out of order at %d: %s before %s",
				i, PipelineStages[i-1], PipelineStages[i])
		}
	}
}

func TestNewThoughtCycle(t *testing.T) {
	trigger := Trigger{ID: NewID(), Question: "q", Importance: 0.5, Source: SourceManual}
	c := NewThoughtCycle(trigger)

	if c.ID == "" {
		t.Error("cycle has no id")
	}
	if c.Status != CycleRunning {
		t.Errorf("new cycle status %q, want running", c.Status)
	}
	for _, s := range PipelineStages {
		if got := c.StageOf(s); got != StagePending {
			t.Errorf("stage %s starts %q, want pending", s, got)
		}
	}
}

func TestNewID_TimeOrdered(t *testing.T) {
	a := NewID()
	time.Sleep(2 * time.Millisecond)
	b := NewID()
	if !(a < b) {
		t.Errorf("ids not time-ordered: %s !< %s", a, b)
	}
	if len(a) != 26 {
		t.Errorf("unexpected id length %d", len(a))
	}
}
