package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Decision 一次决策记录，Points 取自场景内容而非客户端
type Decision struct {
	ID        string    `json:"id"`
	Stage     int       `json:"stage"`
	Option    int       `json:"option"`
	StageID   string    `json:"stageId,omitempty"`
	Category  string    `json:"category,omitempty"`
	Points    int       `json:"points"`
	Note      string    `json:"note,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

func NewDecision(stage, option int, note string, at time.Time) Decision {
	return Decision{
		ID:        uuid.New().String(),
		Stage:     stage,
		Option:    option,
		Note:      note,
		DecidedAt: at,
	}
}

// SessionTrace 对应 training_sessions.session_data 的内容
type SessionTrace struct {
	Decisions []Decision `json:"decisions"`
}

func ParseSessionTrace(raw string) (*SessionTrace, error) {
	trace := &SessionTrace{Decisions: []Decision{}}
	if raw == "" {
		return trace, nil
	}
	if err := json.Unmarshal([]byte(raw), trace); err != nil {
		return nil, err
	}
	if trace.Decisions == nil {
		trace.Decisions = []Decision{}
	}
	return trace, nil
}

func (t *SessionTrace) Append(d Decision) {
	t.Decisions = append(t.Decisions, d)
}

func (t *SessionTrace) Encode() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
