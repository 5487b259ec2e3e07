package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	PostTypeNotice  = "notice"
	PostTypeMessage = "message"
	PostTypeMeta    = "meta_event"
	PostTypeRequest = "request"

	NoticeGroupIncrease = "group_increase"
	NoticeGroupDecrease = "group_decrease"

	MessageTypeGroup   = "group"
	MessageTypePrivate = "private"

	SubTypeLeave  = "leave"
	SubTypeKick   = "kick"
	SubTypeKickMe = "kick_me"
)

// ID is a numeric OneBot identifier kept as its decimal string.
// Implementations send ids either as JSON numbers or strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	if v, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(v, 10))
		return nil
	}
	return fmt.Errorf("invalid id %s", b)
}

func (id ID) String() string { return string(id) }

// Sender is the author metadata attached to message events.
type Sender struct {
	UserID   ID     `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
	Role     string `json:"role"`
}

// Event is an inbound OneBot v11 event as posted by the implementation.
type Event struct {
	Time        int64           `json:"time"`
	SelfID      ID              `json:"self_id"`
	PostType    string          `json:"post_type"`
	NoticeType  string          `json:"notice_type,omitempty"`
	MessageType string          `json:"message_type,omitempty"`
	RequestType string          `json:"request_type,omitempty"`
	SubType     string          `json:"sub_type,omitempty"`
	GroupID     ID              `json:"group_id,omitempty"`
	UserID      ID              `json:"user_id,omitempty"`
	OperatorID  ID              `json:"operator_id,omitempty"`
	MessageID   int64           `json:"message_id,omitempty"`
	RawMessage  string          `json:"raw_message,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`
	Sender      *Sender         `json:"sender,omitempty"`
}

// IsMemberJoin reports a group_increase notice.
func (e Event) IsMemberJoin() bool {
	return e.PostType == PostTypeNotice && e.NoticeType == NoticeGroupIncrease
}

// IsMemberLeave reports a group_decrease notice.
func (e Event) IsMemberLeave() bool {
	return e.PostType == PostTypeNotice && e.NoticeType == NoticeGroupDecrease
}

func (e Event) IsGroupMessage() bool {
	return e.PostType == PostTypeMessage && e.MessageType == MessageTypeGroup
}

// Kind returns a short label used for metrics and archive paths.
func (e Event) Kind() string {
	switch {
	case e.NoticeType != "":
		return e.NoticeType
	case e.MessageType != "":
		return e.PostType + "_" + e.MessageType
	case e.PostType != "":
		return e.PostType
	default:
		return "unknown"
	}
}

// Text returns the message text of a message event.
func (e Event) Text() string {
	return strings.TrimSpace(e.RawMessage)
}

// SenderID returns the author of a message event, falling back to user_id.
func (e Event) SenderID() string {
	if e.Sender != nil && e.Sender.UserID != "" {
		return string(e.Sender.UserID)
	}
	return string(e.UserID)
}
