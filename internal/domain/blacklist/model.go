package blacklist

import "time"

// SystemActor marks entries created by the moderation pipeline itself.
const SystemActor = "system_auto"

// Entry is one blacklist row. An empty GroupID means the entry is global.
type Entry struct {
	UserID    string    `json:"userId"`
	GroupID   string    `json:"groupId,omitempty"`
	Reason    string    `json:"reason"`
	AddedBy   string    `json:"addedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsGlobal reports whether the entry applies to every group.
func (e Entry) IsGlobal() bool {
	return e.GroupID == ""
}

// Scope returns a human readable scope label.
func (e Entry) Scope() string {
	if e.IsGlobal() {
		return "global"
	}
	return "group " + e.GroupID
}

// AddInput is the payload accepted by the admin API.
type AddInput struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ListOptions filtra a listagem. GroupID tem precedência sobre Global.
type ListOptions struct {
	GroupID string
	Global  bool
	Limit   int
	Offset  int
}

// ScanHit is a current member found on the blacklist.
type ScanHit struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	Entry    Entry  `json:"entry"`
}
