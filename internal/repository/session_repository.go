package repository

import (
	"context"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: tx}
}

// Create 依赖 active_key 唯一索引，同一 (user, scenario) 已有进行中会话时返回 util.ErrConflict
func (r *SessionRepository) Create(ctx context.Context, session *model.TrainingSession) error {
	err := r.DB.WithContext(ctx).Omit("User", "Scenario").Create(session).Error
	if isDuplicateKey(err) {
		return util.ErrConflict
	}
	return err
}

func (r *SessionRepository) FindByID(ctx context.Context, id uint) (*model.TrainingSession, error) {
	var s model.TrainingSession
	if err := r.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translateNotFound(err, util.ErrSessionNotFound)
	}
	return &s, nil
}

func (r *SessionRepository) FindActive(ctx context.Context, userID, scenarioID uint) (*model.TrainingSession, error) {
	var s model.TrainingSession
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND scenario_id = ? AND status = ?", userID, scenarioID, model.StatusInProgress).
		First(&s).Error
	if err != nil {
		return nil, translateNotFound(err, util.ErrSessionNotFound)
	}
	return &s, nil
}

// UpdateTrace 以旧的轨迹内容做比较交换，会话已结束或轨迹已被并发修改时返回 false
func (r *SessionRepository) UpdateTrace(ctx context.Context, id uint, prev, next string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.TrainingSession{}).
		Where("id = ? AND status = ? AND session_data = ?", id, model.StatusInProgress, prev).
		Updates(map[string]interface{}{
			"session_data": next,
			"updated_at":   time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

// Finish 以 status = in_progress 为条件写入完成状态，并发的第二次完成会得到 false
func (r *SessionRepository) Finish(ctx context.Context, s *model.TrainingSession) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.TrainingSession{}).
		Where("id = ? AND status = ?", s.ID, model.StatusInProgress).
		Updates(map[string]interface{}{
			"status":              s.Status,
			"active_key":          nil,
			"completed_at":        s.CompletedAt,
			"time_taken":          s.TimeTaken,
			"score":               s.Score,
			"outcome":             s.Outcome,
			"detection_score":     s.DetectionScore,
			"containment_score":   s.ContainmentScore,
			"eradication_score":   s.EradicationScore,
			"recovery_score":      s.RecoveryScore,
			"communication_score": s.CommunicationScore,
			"updated_at":          time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *SessionRepository) Abandon(ctx context.Context, id uint) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.TrainingSession{}).
		Where("id = ? AND status = ?", id, model.StatusInProgress).
		Updates(map[string]interface{}{
			"status":     model.StatusAbandoned,
			"active_key": nil,
			"updated_at": time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

type SessionFilter struct {
	UserID     uint
	ScenarioID uint
	Status     model.SessionStatus
	Limit      int
}

// List 按开始时间倒序
func (r *SessionRepository) List(ctx context.Context, f SessionFilter) ([]model.TrainingSession, error) {
	q := r.DB.WithContext(ctx).Model(&model.TrainingSession{})
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ScenarioID > 0 {
		q = q.Where("scenario_id = ?", f.ScenarioID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var sessions []model.TrainingSession
	err := q.Order("started_at DESC, id DESC").Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) Count(ctx context.Context, f SessionFilter) (int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.TrainingSession{})
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ScenarioID > 0 {
		q = q.Where("scenario_id = ?", f.ScenarioID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

// ScenarioIDsForUser 该用户有会话的场景，去重
func (r *SessionRepository) ScenarioIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.TrainingSession{}).
		Where("user_id = ?", userID).
		Distinct().
		Order("scenario_id").
		Pluck("scenario_id", &ids).Error
	return ids, err
}

// UserIDsForScenario 在该场景有会话的用户，去重
func (r *SessionRepository) UserIDsForScenario(ctx context.Context, scenarioID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.TrainingSession{}).
		Where("scenario_id = ?", scenarioID).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// AverageCompletedScore 已完成会话的平均分，没有记录时为 0
func (r *SessionRepository) AverageCompletedScore(ctx context.Context, f SessionFilter) (float64, error) {
	q := r.DB.WithContext(ctx).Model(&model.TrainingSession{}).
		Where("status = ?", model.StatusCompleted)
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ScenarioID > 0 {
		q = q.Where("scenario_id = ?", f.ScenarioID)
	}
	var avg float64
	err := q.Select("COALESCE(AVG(score), 0)").Scan(&avg).Error
	return avg, err
}

type CategoryAverages struct {
	Detection     float64 `json:"detection"`
	Containment   float64 `json:"containment"`
	Eradication   float64 `json:"eradication"`
	Recovery      float64 `json:"recovery"`
	Communication float64 `json:"communication"`
}

func (r *SessionRepository) CategoryAveragesForUser(ctx context.Context, userID uint) (CategoryAverages, error) {
	var out CategoryAverages
	err := r.DB.WithContext(ctx).Model(&model.TrainingSession{}).
		Where("user_id = ? AND status = ?", userID, model.StatusCompleted).
		Select(`COALESCE(AVG(detection_score), 0) AS detection,
			COALESCE(AVG(containment_score), 0) AS containment,
			COALESCE(AVG(eradication_score), 0) AS eradication,
			COALESCE(AVG(recovery_score), 0) AS recovery,
			COALESCE(AVG(communication_score), 0) AS communication`).
		Scan(&out).Error
	return out, err
}

type ScenarioAggregate struct {
	ScenarioID uint
	Attempts   int64
	AvgScore   float64
}

// CompletedByScenario 按场景分组统计已完成会话
func (r *SessionRepository) CompletedByScenario(ctx context.Context) ([]ScenarioAggregate, error) {
	var rows []ScenarioAggregate
	err := r.DB.WithContext(ctx).Model(&model.TrainingSession{}).
		Select("scenario_id, COUNT(*) AS attempts, COALESCE(AVG(score), 0) AS avg_score").
		Where("status = ?", model.StatusCompleted).
		Group("scenario_id").
		Scan(&rows).Error
	return rows, err
}
