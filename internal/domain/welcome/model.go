package welcome

import "time"

const (
	PlaceholderUser  = "{user}"
	PlaceholderGroup = "{group}"
)

// Template is the welcome message configured for a group.
type Template struct {
	GroupID   string    `json:"groupId"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetInput is the payload accepted by the admin API.
type SetInput struct {
	Message string `json:"message"`
}
