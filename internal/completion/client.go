// Package completion provides the opaque text-completion client used by agent
// roles. The production implementation talks to the Anthropic API (directly or
// via AWS Bedrock); callers only see the Client interface.
package completion

import "context"

// Client is the contract every role invocation goes through: given a system
// prompt and a user prompt, return the generated text.
//
// Failures are classified: a *ConfigError is fatal to the whole run, while a
// *TransientError is local to the one invocation that hit it.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
