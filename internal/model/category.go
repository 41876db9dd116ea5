package model

import "fmt"

const (
	CategoryDetection     = "detection"
	CategoryContainment   = "containment"
	CategoryEradication   = "eradication"
	CategoryRecovery      = "recovery"
	CategoryCommunication = "communication"
)

var Categories = []string{
	CategoryDetection,
	CategoryContainment,
	CategoryEradication,
	CategoryRecovery,
	CategoryCommunication,
}

func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// CategoryScores 五个类别的子分数，彼此独立，不要求与总分相加一致
type CategoryScores struct {
	Detection     int `json:"detection"`
	Containment   int `json:"containment"`
	Eradication   int `json:"eradication"`
	Recovery      int `json:"recovery"`
	Communication int `json:"communication"`
}

// CategoryScoresFromMap 从请求中的 map 构造分类得分，缺少的分类记 0，未知分类报错
func CategoryScoresFromMap(m map[string]int) (CategoryScores, error) {
	var c CategoryScores
	for k, v := range m {
		if !IsCategory(k) {
			return CategoryScores{}, fmt.Errorf("unknown category %q", k)
		}
		c.Add(k, v)
	}
	return c, nil
}

func (c *CategoryScores) Add(category string, points int) {
	switch category {
	case CategoryDetection:
		c.Detection += points
	case CategoryContainment:
		c.Containment += points
	case CategoryEradication:
		c.Eradication += points
	case CategoryRecovery:
		c.Recovery += points
	case CategoryCommunication:
		c.Communication += points
	}
}

func (c CategoryScores) Map() map[string]int {
	return map[string]int{
		CategoryDetection:     c.Detection,
		CategoryContainment:   c.Containment,
		CategoryEradication:   c.Eradication,
		CategoryRecovery:      c.Recovery,
		CategoryCommunication: c.Communication,
	}
}
