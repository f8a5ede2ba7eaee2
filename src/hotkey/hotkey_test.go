package hotkey

import "testing"

func TestKeyRawcodes(t *testing.T) {
	tests := []struct {
		name     string
		expected []uint16
	}{
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"cmd", []uint16{91, 92}},

		{"a", []uint16{65}},
		{"s", []uint16{83}},
		{"z", []uint16{90}},

		{"0", []uint16{48}},
		{"9", []uint16{57}},

		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},
		{"f25", nil},
		{"f0", nil},

		{"space", []uint16{32}},
		{"enter", []uint16{13}},
		{"esc", []uint16{27}},

		{"gibberish", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keyRawcodes(tt.name)
			if len(got) != len(tt.expected) {
				t.Fatalf("keyRawcodes(%q) = %v, want %v", tt.name, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("keyRawcodes(%q)[%d] = %d, want %d", tt.name, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseCombo(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Ctrl+Alt+S", []string{"ctrl", "alt", "s"}},
		{"ctrl + shift + F13", []string{"ctrl", "shift", "f13"}},
		{"Win+Shift+S", []string{"cmd", "shift", "s"}},
		{"Super+Alt+T", []string{"cmd", "alt", "t"}},
		{"  Alt+F4 ", []string{"alt", "f4"}},
		{"", nil},
		{"++", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseCombo(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("parseCombo(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("parseCombo(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestAllPressed(t *testing.T) {
	combo := [][]uint16{{162, 163}, {65}} // ctrl+a

	if allPressed(combo, map[uint16]bool{162: true}) {
		t.Error("ctrl alone should not match")
	}
	if !allPressed(combo, map[uint16]bool{162: true, 65: true}) {
		t.Error("left-ctrl+a should match")
	}
	if !allPressed(combo, map[uint16]bool{163: true, 65: true}) {
		t.Error("right-ctrl+a should match")
	}
	if allPressed(combo, map[uint16]bool{65: true}) {
		t.Error("a alone should not match")
	}
}
