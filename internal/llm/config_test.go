package llm

import "testing"

func TestGetModelFallbackChain(t *testing.T) {
	cfg := &Config{
		Provider: ProviderGemini,
		Models:   map[ModelTier]string{TierLite: "lite-model"},
	}

	// Advanced not configured: falls through standard (missing) to lite.
	if got := cfg.GetModel(TierAdvanced); got != "lite-model" {
		t.Errorf("GetModel(advanced) = %q, want lite-model", got)
	}

	cfg.Models[TierStandard] = "standard-model"
	if got := cfg.GetModel(TierAdvanced); got != "standard-model" {
		t.Errorf("GetModel(advanced) = %q, want standard-model", got)
	}

	empty := &Config{Provider: ProviderGemini, Models: map[ModelTier]string{}}
	if got := empty.GetModel(TierStandard); got != "" {
		t.Errorf("GetModel on empty config = %q, want empty", got)
	}
}

func TestWithModelDoesNotMutate(t *testing.T) {
	base := DefaultConfig()
	original := base.GetModel(TierAdvanced)

	modified := base.WithModel(TierAdvanced, "custom-pro")
	if modified.GetModel(TierAdvanced) != "custom-pro" {
		t.Error("WithModel did not apply override")
	}
	if base.GetModel(TierAdvanced) != original {
		t.Error("WithModel mutated the receiver")
	}
}

func TestCleanJSONBlock(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"language fence", "```javascript\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanJSONBlock(tc.in); got != tc.want {
				t.Errorf("CleanJSONBlock(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
