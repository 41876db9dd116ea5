package model

import (
	"testing"
	"time"
)

func TestOutcomeForScore(t *testing.T) {
	tests := []struct {
		score int
		want  Outcome
	}{
		{100, OutcomeSuccess},
		{80, OutcomeSuccess},
		{79, OutcomePartialSuccess},
		{60, OutcomePartialSuccess},
		{59, OutcomeFailure},
		{0, OutcomeFailure},
	}
	for _, tt := range tests {
		if got := OutcomeForScore(tt.score); got != tt.want {
			t.Errorf("OutcomeForScore(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestTrainingSessionComplete(t *testing.T) {
	started := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	key := ActiveKeyFor(1, 2)
	s := &TrainingSession{
		UserID:     1,
		ScenarioID: 2,
		Status:     StatusInProgress,
		ActiveKey:  &key,
		StartedAt:  started,
	}

	s.Complete(started.Add(95*time.Second+400*time.Millisecond), 85, CategoryScores{Detection: 20, Communication: 5})

	if s.Status != StatusCompleted || !s.IsCompleted() {
		t.Fatalf("status = %q", s.Status)
	}
	if s.CompletedAt == nil || s.TimeTaken == nil || *s.TimeTaken != 95 {
		t.Fatalf("completion timing not set: %v %v", s.CompletedAt, s.TimeTaken)
	}
	if s.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %q", s.Outcome)
	}
	if s.ActiveKey != nil {
		t.Fatalf("active key should be cleared")
	}
	if got := s.CategoryScores(); got.Detection != 20 || got.Containment != 0 || got.Communication != 5 {
		t.Fatalf("categories = %+v", got)
	}
	if got := s.DurationMinutes(); got != 1.6 {
		t.Fatalf("DurationMinutes = %v", got)
	}
}

func TestTrainingSessionCompleteClockSkew(t *testing.T) {
	started := time.Now()
	s := &TrainingSession{Status: StatusInProgress, StartedAt: started}
	s.Complete(started.Add(-time.Second), 10, CategoryScores{})
	if *s.TimeTaken != 0 {
		t.Fatalf("time taken = %d, want 0", *s.TimeTaken)
	}
}

func TestCategoryScoresFromMap(t *testing.T) {
	c, err := CategoryScoresFromMap(map[string]int{"detection": 10, "recovery": 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Detection != 10 || c.Recovery != 4 || c.Containment != 0 {
		t.Fatalf("scores = %+v", c)
	}

	if _, err := CategoryScoresFromMap(map[string]int{"luck": 1}); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestSessionTrace(t *testing.T) {
	trace, err := ParseSessionTrace("")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	trace.Append(NewDecision(0, 1, "isolate first", time.Now()))
	raw, err := trace.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	back, err := ParseSessionTrace(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(back.Decisions) != 1 || back.Decisions[0].Option != 1 || back.Decisions[0].ID == "" {
		t.Fatalf("decisions = %+v", back.Decisions)
	}

	if _, err := ParseSessionTrace("{"); err == nil {
		t.Fatalf("expected error for corrupt trace")
	}
}
