// Package planner turns a goal string into an initial subtask plan by asking
// the planner role to decompose it, with a fixed fallback plan when the
// response cannot be parsed.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hylo-ai/crewd/internal/completion"
	"github.com/hylo-ai/crewd/internal/roles"
	"github.com/hylo-ai/crewd/pkg/models"
)

// Step is one planned subtask: the role to run, its input, and the planner's
// rationale. Dependencies are implied: each step depends on the previous one.
type Step struct {
	Role    models.Role
	Input   string
	Thought string
}

// plannedStep is the JSON shape the planner role is asked to return.
// "tool" is accepted as an alias for "role" because models occasionally
// echo the older field name.
type plannedStep struct {
	Role    string `json:"role"`
	Tool    string `json:"tool"`
	Input   string `json:"input"`
	Thought string `json:"thought"`
}

// Planner decomposes goals using the planner role's completion output.
type Planner struct {
	client   completion.Client
	registry *roles.Registry
}

// New creates a Planner.
func New(client completion.Client, registry *roles.Registry) *Planner {
	return &Planner{client: client, registry: registry}
}

// Plan produces the subtask steps for a goal. The preferred path invokes the
// planner role; any parse failure or transient completion failure falls back
// to the fixed default plan, so the result is never empty. Only a
// configuration error aborts planning.
func (p *Planner) Plan(ctx context.Context, goal string) ([]Step, error) {
	if _, err := p.registry.Resolve(models.RolePlanner); err != nil {
		return DefaultPlan(goal), nil
	}

	system := p.registry.SystemPrompt(models.RolePlanner, goal)
	response, err := p.client.Complete(ctx, system, goal)
	if err != nil {
		if completion.IsConfigError(err) {
			return nil, fmt.Errorf("planning failed: %w", err)
		}
		return DefaultPlan(goal), nil
	}

	steps := parseSteps(response)
	if len(steps) == 0 {
		return DefaultPlan(goal), nil
	}
	return steps, nil
}

// parseSteps extracts the planned steps from the planner's response text.
// The response should be a JSON array, but models wrap it in prose or emit
// slightly broken JSON often enough that both cases are handled.
func parseSteps(response string) []Step {
	raw := extractArray(response)
	if raw == "" {
		return nil
	}

	var parsed []plannedStep
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			return nil
		}
	}

	var steps []Step
	for _, ps := range parsed {
		input := strings.TrimSpace(ps.Input)
		if input == "" {
			continue
		}
		name := ps.Role
		if name == "" {
			name = ps.Tool
		}
		steps = append(steps, Step{
			Role:    mapRole(name),
			Input:   input,
			Thought: strings.TrimSpace(ps.Thought),
		})
	}
	return steps
}

// extractArray returns the outermost JSON array in s, tolerating surrounding
// prose and markdown fences.
func extractArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// mapRole resolves a free-form role or tool name to a known role. Keyword
// matching mirrors how planners actually describe steps ("research",
// "analysis", "write up", "implement"); anything unrecognized goes to the
// executor.
func mapRole(name string) models.Role {
	n := strings.ToLower(strings.TrimSpace(name))
	if r := models.Role(n); r.Valid() {
		return r
	}
	switch {
	case strings.Contains(n, "research"), strings.Contains(n, "search"):
		return models.RoleResearcher
	case strings.Contains(n, "analy"):
		return models.RoleAnalyst
	case strings.Contains(n, "writ"):
		return models.RoleWriter
	default:
		return models.RoleExecutor
	}
}

// DefaultPlan is the mandatory fallback: research, analysis, execution, each
// depending on the previous step.
func DefaultPlan(goal string) []Step {
	return []Step{
		{
			Role:    models.RoleResearcher,
			Input:   goal,
			Thought: "Collecting information about the topic",
		},
		{
			Role:    models.RoleAnalyst,
			Input:   "Analysis based on research",
			Thought: "Analyzing collected information",
		},
		{
			Role:    models.RoleExecutor,
			Input:   "Implementation based on analysis",
			Thought: "Creating implementation plan",
		},
	}
}
