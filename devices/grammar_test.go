package devices

import (
	"testing"
)

func TestLooseGrammar(t *testing.T) {
	tests := []struct {
		line string
		want int
		ok   bool
	}{
		{"abc 12 def 345", 345, true},
		{"no digits here", 0, false},
		{"", 0, false},
		{"Moisture: 512", 512, true},
		{"512", 512, true},
		{"sensor1=40 sensor2=7x", 7, true},
		{"-12", 12, true},
		{"99999999999999999999999999", 0, false},
	}
	g := LooseGrammar{}
	for _, tt := range tests {
		got, err := g.Decode(tt.line)
		if (err == nil) != tt.ok {
			t.Errorf("Decode(%q) err=%v, want ok=%v", tt.line, err, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("Decode(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestTaggedGrammar(t *testing.T) {
	tests := []struct {
		line string
		want int
		ok   bool
	}{
		{"MOISTURE: 97", 97, true},
		{"MOISTURE:75", 75, true},
		{"  MOISTURE:  120  ", 120, true},
		{"97", 0, false},
		{"moisture:97", 0, false},
		{"MOISTURE:", 0, false},
		{"MOISTURE:-5", 0, false},
		{"MOISTURE:12abc", 0, false},
		{"TEMP:21 MOISTURE:40", 0, false},
	}
	g := TaggedGrammar{}
	for _, tt := range tests {
		got, err := g.Decode(tt.line)
		if (err == nil) != tt.ok {
			t.Errorf("Decode(%q) err=%v, want ok=%v", tt.line, err, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("Decode(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestParseGrammar(t *testing.T) {
	for name, want := range map[string]string{"": "loose", "loose": "loose", "TAGGED": "tagged"} {
		g, err := ParseGrammar(name)
		if err != nil {
			t.Fatalf("ParseGrammar(%q): %v", name, err)
		}
		if g.Name() != want {
			t.Errorf("ParseGrammar(%q) = %s, want %s", name, g.Name(), want)
		}
	}
	if _, err := ParseGrammar("json"); err == nil {
		t.Error("expected an error for an unknown grammar")
	}
}
