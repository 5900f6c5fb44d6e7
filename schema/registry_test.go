package schema

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuiltin(t *testing.T) {
	r, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}

	want := []string{"asset", "compose-video", "generate-talking-head", "generate-voiceover", "merge-videos", "mix-audio"}
	if got := r.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected types %v, got %v", want, got)
	}

	merge, ok := r.Get("merge-videos")
	if !ok {
		t.Fatal("expected merge-videos schema")
	}
	segments := merge.Inputs["segments"]
	if segments.Type != TypeMultiple || !segments.Required {
		t.Errorf("unexpected segments slot %+v", segments)
	}
	if segments.MinCount == nil || *segments.MinCount != 2 {
		t.Errorf("expected min_count 2, got %v", segments.MinCount)
	}
	provider := merge.Config["provider"]
	if len(provider.AllowedValues) == 0 || provider.AllowedValues[0] != "ffmpeg" {
		t.Errorf("expected ffmpeg in allowed values, got %v", provider.AllowedValues)
	}

	asset, _ := r.Get("asset")
	if asset.Inputs == nil || len(asset.Inputs) != 0 {
		t.Errorf("expected empty non-nil inputs for asset, got %v", asset.Inputs)
	}
}

func TestParse_RejectsBadTypes(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"config slot type", "x:\n  config:\n    a: {type: single}\n", `config field "a" has invalid type`},
		{"input field type", "x:\n  inputs:\n    a: {type: string}\n", `input slot "a" has invalid type`},
		{"min over max", "x:\n  inputs:\n    a: {type: multiple, min_count: 3, max_count: 1}\n", "min_count > max_count"},
		{"not yaml", "x: [", "parsing"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRegistry_All_SortedAndTyped(t *testing.T) {
	r, err := Parse([]byte("b: {}\na:\n  config:\n    n: {type: integer}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	all := r.All()
	if len(all) != 2 || all[0].Type != "a" || all[1].Type != "b" {
		t.Fatalf("unexpected order %+v", all)
	}
	if all[1].Config == nil {
		t.Error("expected empty config schema to be non-nil")
	}
}
