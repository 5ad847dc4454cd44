package meta

import (
	"reflect"
	"testing"
)

func TestExtractFieldsWorkflow(t *testing.T) {
	input := `{"nodes":[{"inputs":{"ckpt_name":"x.safetensors"}},{"inputs":{"sampler_name":"euler"}},{"inputs":{"sampler_name":"dpmpp_2m"}},{"inputs":{"sampler_name":"extra"}}]}`

	fields := ExtractFields(input)
	if fields.CkptName != "x.safetensors" {
		t.Errorf("CkptName = %q, expected x.safetensors", fields.CkptName)
	}
	expected := []string{"euler", "dpmpp_2m"}
	if !reflect.DeepEqual(fields.SamplerNames, expected) {
		t.Errorf("SamplerNames = %v, expected %v", fields.SamplerNames, expected)
	}
}

func TestExtractFieldsRules(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		ckpt     string
		samplers []string
	}{
		{
			name:  "empty input",
			input: "",
		},
		{
			name:  "invalid json",
			input: `{"ckpt_name": `,
		},
		{
			name:     "duplicates count toward limit",
			input:    `{"a":{"sampler_name":"euler"},"b":{"sampler_name":"euler"},"c":{"sampler_name":"ddim"}}`,
			samplers: []string{"euler", "euler"},
		},
		{
			name:     "own keys before nested values",
			input:    `{"nested":{"sampler_name":"inner"},"sampler_name":"outer"}`,
			samplers: []string{"outer", "inner"},
		},
		{
			name:  "non-scalar values are not collected",
			input: `{"ckpt_name":{"name":"x"},"inner":{"ckpt_name":"y.ckpt"}}`,
			ckpt:  "y.ckpt",
		},
		{
			name:     "numbers and booleans are rendered as text",
			input:    `{"sampler_name": 3, "x": [{"sampler_name": true}]}`,
			samplers: []string{"3", "true"},
		},
		{
			name:  "null is skipped",
			input: `{"ckpt_name": null, "n": {"ckpt_name": "real.safetensors"}}`,
			ckpt:  "real.safetensors",
		},
		{
			name:     "arrays visited in order",
			input:    `[{"sampler_name":"first"},[{"sampler_name":"second"}],{"sampler_name":"third"}]`,
			samplers: []string{"first", "second"},
		},
		{
			name:  "repeated key uses last value",
			input: `{"ckpt_name":"old.ckpt","ckpt_name":"new.ckpt"}`,
			ckpt:  "new.ckpt",
		},
		{
			name:  "trailing data rejected",
			input: `{"ckpt_name":"a"} {"ckpt_name":"b"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := ExtractFields(tt.input)
			if fields.CkptName != tt.ckpt {
				t.Errorf("CkptName = %q, expected %q", fields.CkptName, tt.ckpt)
			}
			if len(fields.SamplerNames) != len(tt.samplers) {
				t.Fatalf("SamplerNames = %v, expected %v", fields.SamplerNames, tt.samplers)
			}
			for i := range tt.samplers {
				if fields.SamplerNames[i] != tt.samplers[i] {
					t.Errorf("SamplerNames[%d] = %q, expected %q", i, fields.SamplerNames[i], tt.samplers[i])
				}
			}
		})
	}
}
