package completion

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestTranslateModelForBedrock(t *testing.T) {
	got := translateModelForBedrock(anthropic.ModelClaudeSonnet4_20250514)
	want := anthropic.Model("us.anthropic.claude-sonnet-4-20250514-v1:0")
	if got != want {
		t.Errorf("translateModelForBedrock = %q, want %q", got, want)
	}

	got = translateModelForBedrock(anthropic.ModelClaude3_5Haiku20241022)
	want = anthropic.Model("us.anthropic.claude-3-5-haiku-20241022-v1:0")
	if got != want {
		t.Errorf("translateModelForBedrock = %q, want %q", got, want)
	}
}

func TestTranslateModelForBedrockPassthrough(t *testing.T) {
	// Already in inference profile format.
	profile := anthropic.Model("us.anthropic.claude-sonnet-4-20250514-v1:0")
	if got := translateModelForBedrock(profile); got != profile {
		t.Errorf("profile id changed: %q", got)
	}

	// Unknown custom model id stays untouched.
	custom := anthropic.Model("my-provisioned-model")
	if got := translateModelForBedrock(custom); got != custom {
		t.Errorf("custom model changed: %q", got)
	}
}
