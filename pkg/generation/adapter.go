package generation

import "context"

// Role tags one turn of conversation history.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in conversation history.
type Turn struct {
	Role Role
	Text string
}

// Generator produces a reply from ordered conversation history.
type Generator interface {
	Generate(ctx context.Context, turns []Turn) (string, error)
	Name() string
}
