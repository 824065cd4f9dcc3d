package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		want     string
	}{
		{"plain", "notes.txt", "att", "notes.txt"},
		{"path separator", "../../etc/passwd", "att", "etc-passwd"},
		{"windows separators", `dir\file:name`, "att", "dir-file-name"},
		{"removed characters", `re<po>rt?.pdf`, "att", "report.pdf"},
		{"whitespace", "  scan.png  ", "att", "scan.png"},
		{"hidden file", ".bashrc", "att", "bashrc"},
		{"empty after cleanup", `??<>`, "att-1", "att-1"},
		{"decomposed unicode", "résumé.pdf", "att", "résumé.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.input, tt.fallback); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUniqueName(t *testing.T) {
	taken := map[string]bool{}

	if got := UniqueName("scan.png", taken); got != "scan.png" {
		t.Fatalf("first use should keep the name, got %q", got)
	}
	if got := UniqueName("scan.png", taken); got != "scan-1.png" {
		t.Fatalf("second use should get a suffix, got %q", got)
	}
	if got := UniqueName("scan.png", taken); got != "scan-2.png" {
		t.Fatalf("third use should increment, got %q", got)
	}
	if got := UniqueName("noext", taken); got != "noext" {
		t.Fatalf("unexpected name: %q", got)
	}
	if got := UniqueName("noext", taken); got != "noext-1" {
		t.Fatalf("unexpected name: %q", got)
	}
}
