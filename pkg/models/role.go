package models

// Role is a named agent specialization with its own prompt template.
type Role string

const (
	// RolePlanner decomposes goals into subtasks.
	RolePlanner Role = "planner"
	// RoleResearcher gathers information.
	RoleResearcher Role = "researcher"
	// RoleAnalyst extracts insights from gathered information.
	RoleAnalyst Role = "analyst"
	// RoleWriter synthesizes findings into structured prose.
	RoleWriter Role = "writer"
	// RoleExecutor implements solutions based on plans and research.
	RoleExecutor Role = "executor"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RolePlanner, RoleResearcher, RoleAnalyst, RoleWriter, RoleExecutor:
		return true
	default:
		return false
	}
}

// AllRoles lists every role in registration order.
func AllRoles() []Role {
	return []Role{RolePlanner, RoleResearcher, RoleAnalyst, RoleWriter, RoleExecutor}
}
