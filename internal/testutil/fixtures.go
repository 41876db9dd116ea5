package testutil

import (
	"context"
	"testing"
	"time"

	"dontpanic_backend/internal/model"

	"gorm.io/gorm"
)

// SampleContent 两个阶段，满分 50
const SampleContent = `{
  "intro": "Ransom note found on the file server.",
  "stages": [
    {
      "id": "detect",
      "stage": "detection",
      "question": "What do you do first?",
      "options": [
        {"text": "Isolate the host", "points": 20, "next": "notify"},
        {"text": "Reboot it", "points": 0}
      ]
    },
    {
      "id": "notify",
      "stage": "communication",
      "question": "Who do you notify?",
      "options": [
        {"text": "Incident commander", "points": 30},
        {"text": "Nobody", "points": -10}
      ]
    }
  ]
}`

func SeedUser(tb testing.TB, ctx context.Context, db *gorm.DB, username string, role model.UserRole) *model.User {
	tb.Helper()
	u := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw",
		Role:     role,
		IsActive: true,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedScenario(tb testing.TB, ctx context.Context, db *gorm.DB, createdBy uint, title string) *model.Scenario {
	tb.Helper()
	s := &model.Scenario{
		Title:           title,
		Description:     "desc",
		IncidentType:    model.IncidentRansomware,
		DifficultyLevel: 2,
		EstimatedTime:   model.DefaultEstimatedTime,
		MaxPoints:       model.DefaultMaxPoints,
		ScenarioContent: SampleContent,
		CreatedBy:       createdBy,
		IsActive:        true,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed scenario: %v", err)
	}
	return s
}

// SeedSession 直接写入指定状态的会话；completed 时写入分数与完成时间
func SeedSession(tb testing.TB, ctx context.Context, db *gorm.DB, userID, scenarioID uint, status model.SessionStatus, score int) *model.TrainingSession {
	tb.Helper()
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &model.TrainingSession{
		UserID:     userID,
		ScenarioID: scenarioID,
		Status:     model.StatusInProgress,
		StartedAt:  started,
	}
	switch status {
	case model.StatusInProgress:
		key := model.ActiveKeyFor(userID, scenarioID)
		s.ActiveKey = &key
	case model.StatusCompleted:
		s.Complete(started.Add(10*time.Minute), score, model.CategoryScores{})
	default:
		s.Status = status
	}
	if err := db.WithContext(ctx).Omit("User", "Scenario").Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}
