package prompts

import (
	"strings"
	"testing"
	"testing/fstest"
)

type storyData struct {
	City, Country, Description string
	Temperature, WindSpeed     float64
	Humidity                   int
}

func TestManager_Render(t *testing.T) {
	fsys := fstest.MapFS{
		"common/macros.tmpl":   {Data: []byte(`{{define "hello"}}Hello {{.Name}}{{end}}`)},
		"narrator/script.tmpl": {Data: []byte(`{{template "hello" .}}! How are you?`)},
	}

	m, err := NewManager(fsys)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	out, err := m.Render("narrator/script.tmpl", struct{ Name string }{Name: "World"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "Hello World! How are you?" {
		t.Errorf("unexpected output %q", out)
	}
	if m.Has("common/macros.tmpl") {
		t.Error("common templates must not be addressable")
	}
}

func TestManager_NoCommonDir(t *testing.T) {
	m, err := NewManager(fstest.MapFS{"a.tmpl": {Data: []byte(`x`)}})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if out, _ := m.Render("a.tmpl", nil); out != "x" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestManager_RenderUnknown(t *testing.T) {
	m, err := NewManager(fstest.MapFS{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Render("story/klingon.tmpl", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestDefault_StoryTemplates(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	data := storyData{
		City: "Kathmandu", Country: "NP", Description: "light rain",
		Temperature: 22, WindSpeed: 3.5, Humidity: 80,
	}

	tests := []struct {
		name     string
		contains []string
	}{
		{"story/english.tmpl", []string{"150-200 words", "Kathmandu, NP", "22°C, light rain", "Humidity: 80%", "Wind: 3.5 m/s"}},
		{"story/hindi.tmpl", []string{"ONLY in Hindi", "Devanagari", "Kathmandu, NP", "Start your response immediately with the Hindi story:"}},
		{"story/nepali.tmpl", []string{"ONLY in Nepali", "Devanagari", "light rain", "Start your response immediately with the Nepali story:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := m.Render(tt.name, data)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("missing %q in:\n%s", want, out)
				}
			}
		})
	}
}

func TestDefault_SummaryTemplate(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	out, err := m.Render("summary/story.tmpl", map[string]any{
		"MaxWords": 100, "Location": "Patna, IN", "Impact": "flood", "Content": "The river rose.",
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "max 100 words") || !strings.Contains(out, "Climate Impact: flood") {
		t.Errorf("unexpected summary prompt:\n%s", out)
	}
}
