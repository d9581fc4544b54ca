package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Ada Lovelace", "Ada Lovelace"},
		{"trimmed", "  CSE  ", "CSE"},
		{"bold stripped", "<b>Ada</b>", "Ada"},
		{"script removed", `<script>alert(1)</script>Ada`, "Ada"},
		{"ampersand kept", "R&D", "R&D"},
		{"attribute handler removed", `<img src=x onerror=alert(1)>Bob`, "Bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
