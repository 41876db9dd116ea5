package model

import (
	"fmt"
	"math"
	"time"
)

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

type Outcome string

// neutral / catastrophic 为保留值，目前的评分规则不会产生
const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialSuccess Outcome = "partial_success"
	OutcomeNeutral        Outcome = "neutral"
	OutcomeFailure        Outcome = "failure"
	OutcomeCatastrophic   Outcome = "catastrophic"
)

const (
	MinScore = 0
	MaxScore = 100

	SuccessThreshold        = 80
	PartialSuccessThreshold = 60
)

// OutcomeForScore 按 0-100 的得分判定结果
func OutcomeForScore(score int) Outcome {
	switch {
	case score >= SuccessThreshold:
		return OutcomeSuccess
	case score >= PartialSuccessThreshold:
		return OutcomePartialSuccess
	default:
		return OutcomeFailure
	}
}

// swagger:model TrainingSession
type TrainingSession struct {
	BaseModel

	UserID     uint          `gorm:"index;not null" json:"userId"`
	ScenarioID uint          `gorm:"index;not null" json:"scenarioId"`
	Status     SessionStatus `gorm:"size:20;not null;default:'in_progress';index" json:"status"`

	// 仅在 in_progress 时为 "<user>:<scenario>"，其余状态为 NULL；
	// 唯一索引保证同一用户同一场景最多一个进行中的会话
	ActiveKey *string `gorm:"size:64;uniqueIndex" json:"-"`

	StartedAt   time.Time  `gorm:"not null;index" json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	TimeTaken   *int       `json:"timeTaken,omitempty"` // 秒

	Score   int     `gorm:"not null;default:0" json:"score"`
	Outcome Outcome `gorm:"size:50" json:"outcome,omitempty"`

	SessionData string `gorm:"type:text" json:"sessionData,omitempty"`

	DetectionScore     int `gorm:"not null;default:0" json:"detectionScore"`
	ContainmentScore   int `gorm:"not null;default:0" json:"containmentScore"`
	EradicationScore   int `gorm:"not null;default:0" json:"eradicationScore"`
	RecoveryScore      int `gorm:"not null;default:0" json:"recoveryScore"`
	CommunicationScore int `gorm:"not null;default:0" json:"communicationScore"`

	User     *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Scenario *Scenario `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (TrainingSession) TableName() string {
	return "training_sessions"
}

func ActiveKeyFor(userID, scenarioID uint) string {
	return fmt.Sprintf("%d:%d", userID, scenarioID)
}

func (s *TrainingSession) IsCompleted() bool {
	return s.Status == StatusCompleted
}

func (s *TrainingSession) IsInProgress() bool {
	return s.Status == StatusInProgress
}

// Complete 仅在内存中完成 in_progress -> completed，由调用方条件更新落库
func (s *TrainingSession) Complete(now time.Time, score int, categories CategoryScores) {
	taken := int(now.Sub(s.StartedAt) / time.Second)
	if taken < 0 {
		taken = 0
	}
	s.CompletedAt = &now
	s.TimeTaken = &taken
	s.Score = score
	s.Outcome = OutcomeForScore(score)
	s.Status = StatusCompleted
	s.ActiveKey = nil
	s.SetCategoryScores(categories)
}

func (s *TrainingSession) DurationMinutes() float64 {
	if s.TimeTaken == nil {
		return 0
	}
	return math.Round(float64(*s.TimeTaken)/60*10) / 10
}

func (s *TrainingSession) CategoryScores() CategoryScores {
	return CategoryScores{
		Detection:     s.DetectionScore,
		Containment:   s.ContainmentScore,
		Eradication:   s.EradicationScore,
		Recovery:      s.RecoveryScore,
		Communication: s.CommunicationScore,
	}
}

func (s *TrainingSession) SetCategoryScores(c CategoryScores) {
	s.DetectionScore = c.Detection
	s.ContainmentScore = c.Containment
	s.EradicationScore = c.Eradication
	s.RecoveryScore = c.Recovery
	s.CommunicationScore = c.Communication
}
