package main

import (
	"testing"
)

func TestParseHexAddress(t *testing.T) {
	tests := []struct {
		input   string
		want    uint32
		wantErr bool
	}{
		{"0x1000", 0x1000, false},
		{"1A40", 0x1A40, false},
		{"0xdeadbeef", 0xDEADBEEF, false},
		{"xyz", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseHexAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHexAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseHexAddress(%q) = 0x%X, want 0x%X", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePermissions(t *testing.T) {
	tests := []struct {
		input            string
		read, write, exe bool
		wantErr          bool
	}{
		{"R-X", true, false, true, false},
		{"rw-", true, true, false, false},
		{"RWX", true, true, true, false},
		{"---", false, false, false, false},
		{"RW", false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, w, x, err := parsePermissions(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePermissions(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if r != tt.read || w != tt.write || x != tt.exe {
				t.Errorf("parsePermissions(%q) = %v,%v,%v", tt.input, r, w, x)
			}
		})
	}
}
