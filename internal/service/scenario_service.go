package service

import (
	"bytes"
	"context"
	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/repository"
	"dontpanic_backend/internal/util"
	"dontpanic_backend/pkg/logger"
	"dontpanic_backend/pkg/tracing"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScenarioInput 创建场景的请求体；Content 可以是 JSON 对象，也可以是包含 JSON 的字符串
type ScenarioInput struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	IncidentType    string          `json:"incidentType"`
	DifficultyLevel int             `json:"difficultyLevel"`
	EstimatedTime   int             `json:"estimatedTime"`
	MaxPoints       int             `json:"maxPoints"`
	Content         json.RawMessage `json:"scenarioContent"`
	IsActive        *bool           `json:"isActive"`
}

// ScenarioPatch 仅非 nil 字段会被修改
type ScenarioPatch struct {
	Title           *string         `json:"title"`
	Description     *string         `json:"description"`
	IncidentType    *string         `json:"incidentType"`
	DifficultyLevel *int            `json:"difficultyLevel"`
	EstimatedTime   *int            `json:"estimatedTime"`
	MaxPoints       *int            `json:"maxPoints"`
	Content         json.RawMessage `json:"scenarioContent"`
	IsActive        *bool           `json:"isActive"`
}

type ScenarioService struct {
	DB           *gorm.DB
	ScenarioRepo *repository.ScenarioRepository
	SessionRepo  *repository.SessionRepository
	Storage      *StorageService
	Cache        StatsCache
	now          func() time.Time
}

func NewScenarioService(db *gorm.DB, scenarioRepo *repository.ScenarioRepository,
	sessionRepo *repository.SessionRepository, storage *StorageService, cache StatsCache) *ScenarioService {
	if cache == nil {
		cache = noopStatsCache{}
	}
	return &ScenarioService{
		DB:           db,
		ScenarioRepo: scenarioRepo,
		SessionRepo:  sessionRepo,
		Storage:      storage,
		Cache:        cache,
		now:          time.Now,
	}
}

// WithTx 绑定到外部事务，供会话完成时在同一事务内更新统计
func (s *ScenarioService) WithTx(tx *gorm.DB) *ScenarioService {
	cp := *s
	cp.DB = tx
	cp.ScenarioRepo = s.ScenarioRepo.WithTx(tx)
	cp.SessionRepo = s.SessionRepo.WithTx(tx)
	return &cp
}

func (s *ScenarioService) Get(ctx context.Context, id uint) (*model.Scenario, error) {
	return s.ScenarioRepo.FindByID(ctx, id)
}

func (s *ScenarioService) List(ctx context.Context, f repository.ScenarioFilter) ([]model.Scenario, error) {
	return s.ScenarioRepo.List(ctx, f)
}

func (s *ScenarioService) Create(ctx context.Context, actor *model.User, in ScenarioInput) (_ *model.Scenario, err error) {
	ctx, span := tracing.Start(ctx, "ScenarioService.Create")
	defer func() { tracing.End(span, err) }()

	if err := RequireRole(actor, "scenario.create", model.Instructor); err != nil {
		return nil, err
	}

	scenario := &model.Scenario{
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		IncidentType:    strings.TrimSpace(in.IncidentType),
		DifficultyLevel: in.DifficultyLevel,
		EstimatedTime:   in.EstimatedTime,
		MaxPoints:       in.MaxPoints,
		CreatedBy:       actor.ID,
		IsActive:        true,
	}
	if in.IsActive != nil {
		scenario.IsActive = *in.IsActive
	}
	applyScenarioDefaults(scenario)

	content, err := normalizeContent(in.Content)
	if err != nil {
		return nil, err
	}
	scenario.ScenarioContent = content

	if err := validateScenario(scenario); err != nil {
		return nil, err
	}
	if err := s.ScenarioRepo.Create(ctx, scenario); err != nil {
		return nil, err
	}

	logger.Log.Info("Scenario created", zap.Uint("scenarioId", scenario.ID), zap.Uint("createdBy", actor.ID))
	return scenario, nil
}

// Update 先在内存中合并并校验，校验失败时数据库中的旧版本保持不变
func (s *ScenarioService) Update(ctx context.Context, actor *model.User, id uint, patch ScenarioPatch) (_ *model.Scenario, err error) {
	ctx, span := tracing.Start(ctx, "ScenarioService.Update")
	defer func() { tracing.End(span, err) }()

	if err := RequireRole(actor, "scenario.update", model.Instructor); err != nil {
		return nil, err
	}

	scenario, err := s.ScenarioRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		scenario.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		scenario.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.IncidentType != nil {
		scenario.IncidentType = strings.TrimSpace(*patch.IncidentType)
	}
	if patch.DifficultyLevel != nil {
		scenario.DifficultyLevel = *patch.DifficultyLevel
	}
	if patch.EstimatedTime != nil {
		scenario.EstimatedTime = *patch.EstimatedTime
	}
	if patch.MaxPoints != nil {
		scenario.MaxPoints = *patch.MaxPoints
	}
	if patch.IsActive != nil {
		scenario.IsActive = *patch.IsActive
	}
	if len(patch.Content) > 0 {
		content, err := normalizeContent(patch.Content)
		if err != nil {
			return nil, err
		}
		scenario.ScenarioContent = content
	}
	if scenario.IncidentType == "" {
		scenario.IncidentType = model.DefaultIncidentType
	}

	if err := validateScenario(scenario); err != nil {
		return nil, err
	}
	if err := s.ScenarioRepo.Save(ctx, scenario); err != nil {
		return nil, err
	}
	return s.ScenarioRepo.FindByID(ctx, id)
}

// Delete 删除场景，依赖的训练记录一并删除
func (s *ScenarioService) Delete(ctx context.Context, actor *model.User, id uint) (err error) {
	ctx, span := tracing.Start(ctx, "ScenarioService.Delete")
	defer func() { tracing.End(span, err) }()

	if err := RequireRole(actor, "scenario.delete", model.Instructor); err != nil {
		return err
	}

	var userIDs []uint
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := s.SessionRepo.WithTx(tx).UserIDsForScenario(ctx, id)
		if err != nil {
			return err
		}
		userIDs = ids
		return s.ScenarioRepo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	// 会话被级联删除，相关用户的统计缓存随之失效
	for _, uid := range userIDs {
		s.Cache.InvalidateUser(ctx, uid)
	}
	logger.Log.Info("Scenario deleted", zap.Uint("scenarioId", id), zap.Uint("deletedBy", actor.ID))
	return nil
}

func (s *ScenarioService) RecordPlay(ctx context.Context, id uint) error {
	return s.ScenarioRepo.IncrementPlays(ctx, id)
}

// RecomputeAverage 从已完成会话重新计算缓存的平均分，没有记录时为 0
func (s *ScenarioService) RecomputeAverage(ctx context.Context, id uint) (float64, error) {
	avg, err := s.SessionRepo.AverageCompletedScore(ctx, repository.SessionFilter{ScenarioID: id})
	if err != nil {
		return 0, err
	}
	avg = util.Round2(avg)
	if err := s.ScenarioRepo.UpdateAverage(ctx, id, avg); err != nil {
		return 0, err
	}
	return avg, nil
}

// ScenarioExport 导出文件格式，不包含统计与作者信息
type ScenarioExport struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	IncidentType    string                 `json:"incidentType"`
	DifficultyLevel int                    `json:"difficultyLevel"`
	EstimatedTime   int                    `json:"estimatedTime"`
	MaxPoints       int                    `json:"maxPoints"`
	Content         *model.ScenarioContent `json:"scenarioContent"`
	ExportedAt      time.Time              `json:"exportedAt"`
}

// Export 将场景写入对象存储，返回存储 key
func (s *ScenarioService) Export(ctx context.Context, actor *model.User, id uint) (_ string, err error) {
	ctx, span := tracing.Start(ctx, "ScenarioService.Export")
	defer func() { tracing.End(span, err) }()

	if err := RequireRole(actor, "scenario.export", model.Instructor); err != nil {
		return "", err
	}
	scenario, err := s.ScenarioRepo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	content, err := scenario.Content()
	if err != nil {
		return "", err
	}

	now := s.now()
	doc := ScenarioExport{
		Title:           scenario.Title,
		Description:     scenario.Description,
		IncidentType:    scenario.IncidentType,
		DifficultyLevel: scenario.DifficultyLevel,
		EstimatedTime:   scenario.EstimatedTime,
		MaxPoints:       scenario.MaxPoints,
		Content:         content,
		ExportedAt:      now,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("scenarios/%d-%s.json", scenario.ID, now.UTC().Format("20060102T150405"))
	if err := s.Storage.Upload(ctx, key, bytes.NewReader(raw), int64(len(raw)), util.MimeJSON); err != nil {
		return "", err
	}
	logger.Log.Info("Scenario exported", zap.Uint("scenarioId", id), zap.String("key", key))
	return key, nil
}

// Import 从对象存储读取导出文件并创建新场景，导入的场景默认停用
func (s *ScenarioService) Import(ctx context.Context, actor *model.User, key string) (_ *model.Scenario, err error) {
	ctx, span := tracing.Start(ctx, "ScenarioService.Import")
	defer func() { tracing.End(span, err) }()

	if err := RequireRole(actor, "scenario.import", model.Instructor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, util.Validation("storage key is required")
	}

	rc, err := s.Storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	var doc struct {
		ScenarioExport
		Content json.RawMessage `json:"scenarioContent"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, util.Validation("export file is not valid JSON: %v", err)
	}

	inactive := false
	return s.Create(ctx, actor, ScenarioInput{
		Title:           doc.Title,
		Description:     doc.Description,
		IncidentType:    doc.IncidentType,
		DifficultyLevel: doc.DifficultyLevel,
		EstimatedTime:   doc.EstimatedTime,
		MaxPoints:       doc.MaxPoints,
		Content:         doc.Content,
		IsActive:        &inactive,
	})
}

func applyScenarioDefaults(s *model.Scenario) {
	if s.IncidentType == "" {
		s.IncidentType = model.DefaultIncidentType
	}
	if s.DifficultyLevel == 0 {
		s.DifficultyLevel = model.MinDifficulty
	}
	if s.EstimatedTime == 0 {
		s.EstimatedTime = model.DefaultEstimatedTime
	}
	if s.MaxPoints == 0 {
		s.MaxPoints = model.DefaultMaxPoints
	}
}

func validateScenario(s *model.Scenario) error {
	if s.Title == "" {
		return util.Validation("title is required")
	}
	if len(s.Title) > 200 {
		return util.Validation("title must be at most 200 characters")
	}
	if s.Description == "" {
		return util.Validation("description is required")
	}
	if len(s.IncidentType) > 50 {
		return util.Validation("incident type must be at most 50 characters")
	}
	if s.DifficultyLevel < model.MinDifficulty || s.DifficultyLevel > model.MaxDifficulty {
		return util.Validation("difficulty level must be between %d and %d", model.MinDifficulty, model.MaxDifficulty)
	}
	if s.EstimatedTime <= 0 {
		return util.Validation("estimated time must be positive")
	}
	if s.MaxPoints <= 0 {
		return util.Validation("max points must be positive")
	}
	if _, err := model.ParseScenarioContent([]byte(s.ScenarioContent)); err != nil {
		return util.Validation("%v", err)
	}
	return nil
}

// normalizeContent 解析并重新编码，保证入库的是规范形式
func normalizeContent(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", util.Validation("scenario content is required")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", util.Validation("scenario content: %v", err)
		}
		trimmed = []byte(s)
	}
	content, err := model.ParseScenarioContent(trimmed)
	if err != nil {
		return "", util.Validation("%v", err)
	}
	return content.Encode()
}
