package elm

import "testing"

func TestStatusText(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"ATZ!!>", "ATZ  >"},
		{"ATRV!12.6V!!>", "ATRV 12.6V  >"},
		{"ATI!ELM327 v1.5!!>", "ATI ELM327 v1.5  >"},
		{"no delimiters>", "no delimiters>"},
	}
	for _, tt := range tests {
		if got := StatusText(tt.reply); got != tt.want {
			t.Errorf("StatusText(%q) = %q, want %q", tt.reply, got, tt.want)
		}
	}
}

func TestDataPayload(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		want   string
		wantOK bool
	}{
		{"supported pids", "01 00!41 00 BE 3E B8 11!!>", "41 00 BE 3E B8 11!!>", true},
		{"echo only with prompt", "01 00!!>", "!>", true},
		{"no delimiter at all", "0100>", "", false},
		{"delimiter at end", "01 00!", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DataPayload(tt.reply)
			if ok != tt.wantOK {
				t.Fatalf("DataPayload(%q) ok = %v, want %v", tt.reply, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("DataPayload(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}
