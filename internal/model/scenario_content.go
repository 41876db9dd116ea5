package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ScenarioContent 场景分支内容树：stages -> question -> weighted options
type ScenarioContent struct {
	Intro  string         `json:"intro,omitempty"`
	Stages []ContentStage `json:"stages"`
}

type ContentStage struct {
	ID       string          `json:"id,omitempty"`
	Stage    string          `json:"stage,omitempty"` // 计分类别，如 detection
	Question string          `json:"question"`
	Options  []ContentOption `json:"options"`
}

type ContentOption struct {
	Text   string `json:"text"`
	Points int    `json:"points"`
	Next   string `json:"next,omitempty"` // 目标 stage id，为空时按顺序进入下一阶段
}

// ParseScenarioContent 解析并校验内容树；拒绝未知字段，保证能无损地再次编码
func ParseScenarioContent(raw []byte) (*ScenarioContent, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("scenario content is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var content ScenarioContent
	if err := dec.Decode(&content); err != nil {
		return nil, fmt.Errorf("scenario content is not valid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("scenario content has trailing data")
	}

	if err := content.Validate(); err != nil {
		return nil, err
	}
	return &content, nil
}

func (c *ScenarioContent) Validate() error {
	if len(c.Stages) == 0 {
		return errors.New("scenario content must have at least one stage")
	}

	ids := make(map[string]bool, len(c.Stages))
	for i, st := range c.Stages {
		if st.ID == "" {
			continue
		}
		if ids[st.ID] {
			return fmt.Errorf("stage %d: duplicate id %q", i, st.ID)
		}
		ids[st.ID] = true
	}

	for i, st := range c.Stages {
		if strings.TrimSpace(st.Question) == "" {
			return fmt.Errorf("stage %d: question is required", i)
		}
		if st.Stage != "" && !IsCategory(st.Stage) {
			return fmt.Errorf("stage %d: unknown category %q", i, st.Stage)
		}
		if len(st.Options) == 0 {
			return fmt.Errorf("stage %d: at least one option is required", i)
		}
		for j, opt := range st.Options {
			if strings.TrimSpace(opt.Text) == "" {
				return fmt.Errorf("stage %d option %d: text is required", i, j)
			}
			if opt.Next != "" && !ids[opt.Next] {
				return fmt.Errorf("stage %d option %d: next stage %q does not exist", i, j, opt.Next)
			}
		}
	}
	return nil
}

// Encode 返回写入 scenarios.scenario_content 的规范 JSON
func (c *ScenarioContent) Encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *ScenarioContent) Equal(other *ScenarioContent) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Intro != other.Intro || len(c.Stages) != len(other.Stages) {
		return false
	}
	for i := range c.Stages {
		a, b := c.Stages[i], other.Stages[i]
		if a.ID != b.ID || a.Stage != b.Stage || a.Question != b.Question || len(a.Options) != len(b.Options) {
			return false
		}
		for j := range a.Options {
			if a.Options[j] != b.Options[j] {
				return false
			}
		}
	}
	return true
}

// Option 按阶段和选项下标查找
func (c *ScenarioContent) Option(stage, option int) (*ContentStage, *ContentOption, bool) {
	if stage < 0 || stage >= len(c.Stages) {
		return nil, nil, false
	}
	st := &c.Stages[stage]
	if option < 0 || option >= len(st.Options) {
		return nil, nil, false
	}
	return st, &st.Options[option], true
}

// MaxAchievablePoints 每个阶段取最高的非负选项分数求和
func (c *ScenarioContent) MaxAchievablePoints() int {
	total := 0
	for _, st := range c.Stages {
		best := 0
		for _, opt := range st.Options {
			if opt.Points > best {
				best = opt.Points
			}
		}
		total += best
	}
	return total
}

// Evaluation 根据决策轨迹计算的建议得分，不覆盖调用方提交的最终分数
type Evaluation struct {
	Points         int            `json:"points"`
	MaxPoints      int            `json:"maxPoints"`
	SuggestedScore int            `json:"suggestedScore"`
	Categories     CategoryScores `json:"categories"`
}

// Evaluate 按内容树累计决策得分，已找不到对应选项的决策跳过
func (c *ScenarioContent) Evaluate(decisions []Decision) Evaluation {
	ev := Evaluation{MaxPoints: c.MaxAchievablePoints()}
	for _, d := range decisions {
		st, opt, ok := c.Option(d.Stage, d.Option)
		if !ok {
			continue
		}
		ev.Points += opt.Points
		ev.Categories.Add(st.Stage, opt.Points)
	}
	ev.SuggestedScore = ScaleScore(ev.Points, ev.MaxPoints)
	return ev
}

// ScaleScore 将原始分换算到 0-100
func ScaleScore(points, maxPoints int) int {
	if maxPoints <= 0 || points <= 0 {
		return 0
	}
	if points >= maxPoints {
		return MaxScore
	}
	return points * MaxScore / maxPoints
}
