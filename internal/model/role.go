package model

type Role string

const (
	RoleUser      = Role("user")
	RoleAssistant = Role("assistant")
)

func ParseRole(s string) Role {
	switch s {
	case "assistant":
		return RoleAssistant
	default:
		return RoleUser
	}
}
