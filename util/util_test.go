package util

import "testing"

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"10MB", 10 << 20},
		{"512kb", 512 << 10},
		{"2GB", 2 << 30},
		{"100B", 100},
		{"4096", 4096},
		{" 1 MB ", 1 << 20},
		{"", 7},
		{"lots", 7},
		{"-5MB", 7},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := ParseSize(tc.in, 7); got != tc.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "merge-videos", "asset"); got != "merge-videos" {
		t.Errorf("got %q", got)
	}
	if got := Coalesce(0, 0); got != 0 {
		t.Errorf("got %d", got)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("sk-live-abcdef", 4); got != "sk-l***" {
		t.Errorf("got %q", got)
	}
	if got := MaskSecret("abc", 4); got != "***" {
		t.Errorf("got %q", got)
	}
	if got := MaskSecret("", 4); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestPtr(t *testing.T) {
	p := Ptr("title")
	if p == nil || *p != "title" {
		t.Errorf("unexpected %v", p)
	}
}
