package repository

import (
	"context"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/util"

	"gorm.io/gorm"
)

type ScenarioRepository struct {
	DB *gorm.DB
}

func NewScenarioRepository(db *gorm.DB) *ScenarioRepository {
	return &ScenarioRepository{DB: db}
}

func (r *ScenarioRepository) WithTx(tx *gorm.DB) *ScenarioRepository {
	return &ScenarioRepository{DB: tx}
}

type ScenarioFilter struct {
	IncidentType string
	Difficulty   int
	CreatedBy    uint
	ActiveOnly   bool
}

func (r *ScenarioRepository) Create(ctx context.Context, scenario *model.Scenario) error {
	return r.DB.WithContext(ctx).Create(scenario).Error
}

func (r *ScenarioRepository) FindByID(ctx context.Context, id uint) (*model.Scenario, error) {
	var s model.Scenario
	if err := r.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translateNotFound(err, util.ErrScenarioNotFound)
	}
	return &s, nil
}

// Save 写入可编辑字段，统计缓存列只通过 IncrementPlays / UpdateAverage 修改
func (r *ScenarioRepository) Save(ctx context.Context, scenario *model.Scenario) error {
	return r.DB.WithContext(ctx).Model(scenario).
		Select("title", "description", "incident_type", "difficulty_level", "estimated_time",
			"max_points", "scenario_content", "is_active", "updated_at").
		Updates(scenario).Error
}

func (r *ScenarioRepository) List(ctx context.Context, f ScenarioFilter) ([]model.Scenario, error) {
	q := r.DB.WithContext(ctx).Model(&model.Scenario{})
	if f.IncidentType != "" {
		q = q.Where("incident_type = ?", f.IncidentType)
	}
	if f.Difficulty > 0 {
		q = q.Where("difficulty_level = ?", f.Difficulty)
	}
	if f.CreatedBy > 0 {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var scenarios []model.Scenario
	err := q.Order("difficulty_level ASC, id ASC").Find(&scenarios).Error
	return scenarios, err
}

func (r *ScenarioRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Scenario{}).Count(&count).Error
	return count, err
}

// Delete 级联删除该场景下的全部训练记录
func (r *ScenarioRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scenario_id = ?", id).Delete(&model.TrainingSession{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Scenario{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrScenarioNotFound
		}
		return nil
	})
}

func (r *ScenarioRepository) IncrementPlays(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Scenario{}).
		Where("id = ?", id).
		UpdateColumn("times_played", gorm.Expr("times_played + ?", 1)).
		Error
}

func (r *ScenarioRepository) UpdateAverage(ctx context.Context, id uint, avg float64) error {
	return r.DB.WithContext(ctx).Model(&model.Scenario{}).
		Where("id = ?", id).
		UpdateColumn("average_score", avg).
		Error
}
