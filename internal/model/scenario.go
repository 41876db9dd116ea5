package model

const (
	DefaultIncidentType  = "general"
	DefaultEstimatedTime = 30
	DefaultMaxPoints     = 100

	MinDifficulty = 1
	MaxDifficulty = 5
)

// 常见事件类型，incident_type 为开放枚举，不限于以下取值
const (
	IncidentRansomware    = "ransomware"
	IncidentDataBreach    = "data_breach"
	IncidentDDoS          = "ddos"
	IncidentPhishing      = "phishing"
	IncidentInsiderThreat = "insider_threat"
)

// swagger:model Scenario
type Scenario struct {
	BaseModel

	Title           string `gorm:"size:200;not null" json:"title"`
	Description     string `gorm:"type:text;not null" json:"description"`
	IncidentType    string `gorm:"size:50;not null;default:'general';index" json:"incidentType"`
	DifficultyLevel int    `gorm:"not null;default:1" json:"difficultyLevel"` // 1（简单）- 5（极难）
	EstimatedTime   int    `gorm:"not null;default:30" json:"estimatedTime"`  // 分钟
	MaxPoints       int    `gorm:"not null;default:100" json:"maxPoints"`
	ScenarioContent string `gorm:"type:text;not null" json:"scenarioContent"`
	CreatedBy       uint   `gorm:"index;not null" json:"createdBy"`
	IsActive        bool   `gorm:"not null" json:"isActive"` // 不设默认值，保证创建时 false 也会写入

	// 统计缓存，来源于已完成的训练记录
	TimesPlayed  int     `gorm:"not null;default:0" json:"timesPlayed"`
	AverageScore float64 `gorm:"not null;default:0" json:"averageScore"`
}

func (Scenario) TableName() string {
	return "scenarios"
}

// Content 解析存储的内容树
func (s *Scenario) Content() (*ScenarioContent, error) {
	return ParseScenarioContent([]byte(s.ScenarioContent))
}
