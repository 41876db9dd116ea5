package model

import (
	"strings"
	"testing"
)

const ransomwareContent = `{
  "intro": "Your company's systems have been encrypted by ransomware...",
  "stages": [
    {
      "id": "detect",
      "stage": "detection",
      "question": "What is your first action?",
      "options": [
        {"text": "Disconnect from network", "points": 20, "next": "contain"},
        {"text": "Pay the ransom immediately", "points": -10},
        {"text": "Ignore it", "points": 0}
      ]
    },
    {
      "id": "contain",
      "stage": "containment",
      "question": "How do you stop the spread?",
      "options": [
        {"text": "Isolate affected segments", "points": 30},
        {"text": "Reboot everything", "points": 5}
      ]
    }
  ]
}`

func TestParseScenarioContentRoundTrip(t *testing.T) {
	parsed, err := ParseScenarioContent([]byte(ransomwareContent))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	encoded, err := parsed.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	reparsed, err := ParseScenarioContent([]byte(encoded))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if !parsed.Equal(reparsed) {
		t.Fatalf("round trip changed the tree:\n%+v\n%+v", parsed, reparsed)
	}

	again, _ := reparsed.Encode()
	if again != encoded {
		t.Fatalf("encoding is not stable:\n%s\n%s", encoded, again)
	}
}

func TestParseScenarioContentRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "  ", "empty"},
		{"not json", "{stages:", "not valid JSON"},
		{"no stages", `{"intro":"x","stages":[]}`, "at least one stage"},
		{"missing question", `{"stages":[{"options":[{"text":"a","points":1}]}]}`, "question is required"},
		{"no options", `{"stages":[{"question":"q","options":[]}]}`, "at least one option"},
		{"blank option text", `{"stages":[{"question":"q","options":[{"text":" ","points":1}]}]}`, "text is required"},
		{"unknown category", `{"stages":[{"stage":"panic","question":"q","options":[{"text":"a"}]}]}`, "unknown category"},
		{"dangling next", `{"stages":[{"question":"q","options":[{"text":"a","next":"nowhere"}]}]}`, "does not exist"},
		{"duplicate id", `{"stages":[{"id":"a","question":"q","options":[{"text":"a"}]},{"id":"a","question":"q","options":[{"text":"a"}]}]}`, "duplicate id"},
		{"unknown field", `{"stages":[{"question":"q","options":[{"text":"a"}]}],"extra":1}`, "unknown field"},
		{"trailing data", `{"stages":[{"question":"q","options":[{"text":"a"}]}]} {}`, "trailing data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenarioContent([]byte(tt.raw))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	content, err := ParseScenarioContent([]byte(ransomwareContent))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := content.MaxAchievablePoints(); got != 50 {
		t.Fatalf("MaxAchievablePoints = %d, want 50", got)
	}

	ev := content.Evaluate([]Decision{
		{Stage: 0, Option: 0},
		{Stage: 1, Option: 1},
		{Stage: 7, Option: 0}, // stale decision, ignored
	})
	if ev.Points != 25 {
		t.Fatalf("points = %d, want 25", ev.Points)
	}
	if ev.SuggestedScore != 50 {
		t.Fatalf("suggested = %d, want 50", ev.SuggestedScore)
	}
	if ev.Categories.Detection != 20 || ev.Categories.Containment != 5 {
		t.Fatalf("categories = %+v", ev.Categories)
	}
}

func TestScaleScore(t *testing.T) {
	tests := []struct{ points, max, want int }{
		{0, 100, 0},
		{-5, 100, 0},
		{50, 100, 50},
		{150, 100, 100},
		{1, 3, 33},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := ScaleScore(tt.points, tt.max); got != tt.want {
			t.Errorf("ScaleScore(%d, %d) = %d, want %d", tt.points, tt.max, got, tt.want)
		}
	}
}
