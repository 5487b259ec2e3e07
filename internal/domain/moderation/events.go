package moderation

import "time"

const (
	ActionBlacklistKick = "blacklist_kick"
	ActionAutoBlacklist = "auto_blacklist"
)

// Event representa uma ação automática de moderação enviada ao webhook.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	GroupID   string    `json:"groupId"`
	Action    string    `json:"action"`
	Payload   Payload   `json:"payload"`
}

// Payload traz os dados do usuário afetado.
type Payload struct {
	UserID  string `json:"userId"`
	Reason  string `json:"reason,omitempty"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}
