package group

import "strings"

// Role is the membership role reported by the control API.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole normaliza o papel vindo da API; valores desconhecidos viram member.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleMember
	}
}

// Elevated reports whether the role can moderate the group.
func (r Role) Elevated() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Member is a normalized group participant.
type Member struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	Role     Role   `json:"role"`
}

// Info carries the group metadata returned by get_group_info.
type Info struct {
	GroupID        string `json:"groupId"`
	Name           string `json:"groupName"`
	MemberCount    int    `json:"memberCount"`
	MaxMemberCount int    `json:"maxMemberCount"`
}

// User is the stranger/login profile of an account.
type User struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	Sex      string `json:"sex,omitempty"`
	Age      int    `json:"age,omitempty"`
}

// Status is the bot health reported by get_status.
type Status struct {
	Online bool `json:"online"`
	Good   bool `json:"good"`
}
