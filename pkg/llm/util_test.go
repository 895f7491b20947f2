package llm

import (
	"testing"
)

func TestWordWrap(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{
			name:  "No wrap needed",
			input: "Hello World",
			width: 20,
			want:  "Hello World",
		},
		{
			name:  "Simple wrap",
			input: "Hello World",
			width: 5,
			want:  "Hello\nWorld",
		},
		{
			name:  "Long word preserved",
			input: "Hello Superextralongword World",
			width: 10,
			want:  "Hello\nSuperextralongword\nWorld",
		},
		{
			name:  "Devanagari counted in runes",
			input: "नमस्ते दुनिया",
			width: 13,
			want:  "नमस्ते दुनिया",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordWrap(tt.input, tt.width); got != tt.want {
				t.Errorf("WordWrap() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Plain text untouched",
			input: "In Kathmandu, the rivers rise.",
			want:  "In Kathmandu, the rivers rise.",
		},
		{
			name:  "Markdown heading and emphasis",
			input: "## The River\n\nThe **monsoon** came *early*.",
			want:  "The River\n\nThe monsoon came early.",
		},
		{
			name:  "Code fence",
			input: "```\nA story.\n```",
			want:  "A story.",
		},
		{
			name:  "HTML and entities",
			input: "<p>Heat &amp; dust</p><p>Second</p>",
			want:  "Heat & dust\n\nSecond",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.want {
				t.Errorf("CleanText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateLines(t *testing.T) {
	got := TruncateLines("short\nthis line is long", 6)
	want := "short\nthis l..."
	if got != want {
		t.Errorf("TruncateLines() = %q, want %q", got, want)
	}
}
