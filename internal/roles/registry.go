// Package roles provides the fixed registry of agent roles and their prompt
// templates. The registry is static: the five roles are registered once at
// construction and never change at runtime.
package roles

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hylo-ai/crewd/pkg/models"
)

//go:embed roles.yaml
var rolesYAML []byte

// ErrRoleNotFound indicates a lookup for a role the registry does not hold.
var ErrRoleNotFound = fmt.Errorf("role not found")

// Descriptor is the static configuration of one agent role.
type Descriptor struct {
	Role models.Role `yaml:"role"`
	// Name is the display name used inside prompts.
	Name string `yaml:"name"`
	// Goal is a one-line statement of what this role optimizes for.
	Goal string `yaml:"goal"`
	// Description is the role's self-description injected into system prompts.
	Description string `yaml:"description"`
	// AllowDelegation marks roles that may hand work to other roles.
	AllowDelegation bool `yaml:"allow_delegation"`
}

// promptFunc assembles a system prompt for one role given the overall goal.
type promptFunc func(d *Descriptor, goal string) string

// Registry maps role names to descriptors and prompt builders. Dispatch is
// resolved once at construction rather than switched on strings at runtime.
type Registry struct {
	byRole  map[models.Role]*Descriptor
	prompts map[models.Role]promptFunc
}

type rolesFile struct {
	Roles []*Descriptor `yaml:"roles"`
}

// NewRegistry builds the registry from the embedded role definitions.
func NewRegistry() (*Registry, error) {
	var file rolesFile
	if err := yaml.Unmarshal(rolesYAML, &file); err != nil {
		return nil, fmt.Errorf("parse role definitions: %w", err)
	}

	r := &Registry{
		byRole:  make(map[models.Role]*Descriptor, len(file.Roles)),
		prompts: make(map[models.Role]promptFunc, len(file.Roles)),
	}

	for _, d := range file.Roles {
		if !d.Role.Valid() {
			return nil, fmt.Errorf("unknown role %q in role definitions", d.Role)
		}
		r.byRole[d.Role] = d
		if d.Role == models.RolePlanner {
			r.prompts[d.Role] = plannerPrompt
		} else {
			r.prompts[d.Role] = workerPrompt
		}
	}

	for _, role := range models.AllRoles() {
		if _, ok := r.byRole[role]; !ok {
			return nil, fmt.Errorf("role definitions missing %q", role)
		}
	}

	return r, nil
}

// Resolve returns the descriptor for a role, or ErrRoleNotFound.
func (r *Registry) Resolve(role models.Role) (*Descriptor, error) {
	d, ok := r.byRole[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRoleNotFound, role)
	}
	return d, nil
}

// SystemPrompt assembles the system prompt for the given role working toward
// the given goal. Falls back to the executor's template for unknown roles so
// prompt assembly never fails mid-run.
func (r *Registry) SystemPrompt(role models.Role, goal string) string {
	d, ok := r.byRole[role]
	if !ok {
		d = r.byRole[models.RoleExecutor]
		role = models.RoleExecutor
	}
	return r.prompts[role](d, goal)
}

// plannerPrompt instructs the planner to decompose a goal into search-style
// subtasks and return machine-parseable JSON.
func plannerPrompt(d *Descriptor, goal string) string {
	return fmt.Sprintf(`You are %s, a %s. %s
Break the user's goal into 2-4 subtasks that together achieve it. Assign each
subtask to one of these roles: researcher, analyst, writer, executor.
Return ONLY a JSON array where each item has "role" (the assigned role),
"input" (the specific query or instruction for that role) and "thought"
(why this step is needed). Order the array by execution sequence.`,
		d.Name, d.Role, d.Description)
}

// workerPrompt is the shared template for non-planner roles executing one
// subtask of a larger goal.
func workerPrompt(d *Descriptor, goal string) string {
	return fmt.Sprintf(`You are %s, a %s. %s
You are working on a task as part of a larger goal: %s`,
		d.Name, d.Role, d.Description, goal)
}
