package onebot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/faeln1/go-onebot-guard/internal/domain/event"
	"github.com/faeln1/go-onebot-guard/internal/domain/group"
	"github.com/faeln1/go-onebot-guard/internal/domain/message"
)

const (
	ActionSendGroupMsg       = "send_group_msg"
	ActionSendPrivateMsg     = "send_private_msg"
	ActionSetGroupKick       = "set_group_kick"
	ActionGetGroupMemberList = "get_group_member_list"
	ActionGetGroupMemberInfo = "get_group_member_info"
	ActionGetGroupInfo       = "get_group_info"
	ActionGetStrangerInfo    = "get_stranger_info"
	ActionGetLoginInfo       = "get_login_info"
	ActionGetStatus          = "get_status"
)

// IsNumericID reports whether s is a non-empty run of ASCII digits.
func IsNumericID(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parseID(name, raw string) (int64, error) {
	id := strings.TrimSpace(raw)
	if !IsNumericID(id) {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidID, name, raw)
	}
	v, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidID, name, raw)
	}
	return v, nil
}

func decodeData(action string, data json.RawMessage, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return &Error{Kind: KindResponseFormat, Action: action, Message: "response has no data"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindResponseFormat, Action: action, Message: "unexpected data shape", Err: err}
	}
	return nil
}

type messageIDData struct {
	MessageID int64 `json:"message_id"`
}

// SendGroupMessage sends a segment chain to a group and returns the message id.
func (c *Client) SendGroupMessage(ctx context.Context, groupID string, msg message.Chain) (int64, error) {
	gid, err := parseID("group_id", groupID)
	if err != nil {
		return 0, err
	}
	if msg.Empty() {
		return 0, fmt.Errorf("%w: empty message", ErrInvalidParam)
	}
	data, err := c.Call(ctx, ActionSendGroupMsg, map[string]any{"group_id": gid, "message": msg})
	if err != nil {
		return 0, err
	}
	var out messageIDData
	if len(data) > 0 && string(data) != "null" {
		_ = json.Unmarshal(data, &out)
	}
	return out.MessageID, nil
}

func (c *Client) SendPrivateMessage(ctx context.Context, userID string, msg message.Chain) (int64, error) {
	uid, err := parseID("user_id", userID)
	if err != nil {
		return 0, err
	}
	if msg.Empty() {
		return 0, fmt.Errorf("%w: empty message", ErrInvalidParam)
	}
	data, err := c.Call(ctx, ActionSendPrivateMsg, map[string]any{"user_id": uid, "message": msg})
	if err != nil {
		return 0, err
	}
	var out messageIDData
	if len(data) > 0 && string(data) != "null" {
		_ = json.Unmarshal(data, &out)
	}
	return out.MessageID, nil
}

// KickMember removes userID from groupID. rejectAddRequest blocks future join requests.
func (c *Client) KickMember(ctx context.Context, groupID, userID string, rejectAddRequest bool) error {
	gid, err := parseID("group_id", groupID)
	if err != nil {
		return err
	}
	uid, err := parseID("user_id", userID)
	if err != nil {
		return err
	}
	_, err = c.Call(ctx, ActionSetGroupKick, map[string]any{
		"group_id":           gid,
		"user_id":            uid,
		"reject_add_request": rejectAddRequest,
	})
	return err
}

type memberData struct {
	UserID   event.ID `json:"user_id"`
	GroupID  event.ID `json:"group_id"`
	Nickname string   `json:"nickname"`
	Card     string   `json:"card"`
	Role     string   `json:"role"`
}

func (m memberData) normalize() (group.Member, bool) {
	uid := string(m.UserID)
	if !IsNumericID(uid) {
		return group.Member{}, false
	}
	name := strings.TrimSpace(m.Card)
	if name == "" {
		name = strings.TrimSpace(m.Nickname)
	}
	return group.Member{UserID: uid, Nickname: name, Role: group.ParseRole(m.Role)}, true
}

// ListMembers returns the normalized member list; malformed entries are skipped.
func (c *Client) ListMembers(ctx context.Context, groupID string) ([]group.Member, error) {
	gid, err := parseID("group_id", groupID)
	if err != nil {
		return nil, err
	}
	data, err := c.Call(ctx, ActionGetGroupMemberList, map[string]any{"group_id": gid})
	if err != nil {
		return nil, err
	}
	var entries []json.RawMessage
	if err := decodeData(ActionGetGroupMemberList, data, &entries); err != nil {
		return nil, err
	}
	members := make([]group.Member, 0, len(entries))
	skipped := 0
	for _, raw := range entries {
		var m memberData
		if err := json.Unmarshal(raw, &m); err != nil {
			skipped++
			continue
		}
		member, ok := m.normalize()
		if !ok {
			skipped++
			continue
		}
		members = append(members, member)
	}
	if skipped > 0 {
		c.log.Warnf("%s: discarded %d malformed member(s) for group %s", ActionGetGroupMemberList, skipped, groupID)
	}
	return members, nil
}

// GetMemberInfo fetches a fresh member record, bypassing the implementation cache.
func (c *Client) GetMemberInfo(ctx context.Context, groupID, userID string) (group.Member, error) {
	gid, err := parseID("group_id", groupID)
	if err != nil {
		return group.Member{}, err
	}
	uid, err := parseID("user_id", userID)
	if err != nil {
		return group.Member{}, err
	}
	data, err := c.Call(ctx, ActionGetGroupMemberInfo, map[string]any{"group_id": gid, "user_id": uid, "no_cache": true})
	if err != nil {
		return group.Member{}, err
	}
	var m memberData
	if err := decodeData(ActionGetGroupMemberInfo, data, &m); err != nil {
		return group.Member{}, err
	}
	member, ok := m.normalize()
	if !ok {
		return group.Member{}, &Error{Kind: KindResponseFormat, Action: ActionGetGroupMemberInfo, Message: "member without user_id"}
	}
	return member, nil
}

func (c *Client) GetGroupInfo(ctx context.Context, groupID string) (group.Info, error) {
	gid, err := parseID("group_id", groupID)
	if err != nil {
		return group.Info{}, err
	}
	data, err := c.Call(ctx, ActionGetGroupInfo, map[string]any{"group_id": gid})
	if err != nil {
		return group.Info{}, err
	}
	var raw struct {
		GroupID        event.ID `json:"group_id"`
		GroupName      string   `json:"group_name"`
		MemberCount    int      `json:"member_count"`
		MaxMemberCount int      `json:"max_member_count"`
	}
	if err := decodeData(ActionGetGroupInfo, data, &raw); err != nil {
		return group.Info{}, err
	}
	info := group.Info{GroupID: string(raw.GroupID), Name: raw.GroupName, MemberCount: raw.MemberCount, MaxMemberCount: raw.MaxMemberCount}
	if info.GroupID == "" {
		info.GroupID = groupID
	}
	return info, nil
}

type userData struct {
	UserID   event.ID `json:"user_id"`
	Nickname string   `json:"nickname"`
	Sex      string   `json:"sex"`
	Age      int      `json:"age"`
}

func (c *Client) GetUserInfo(ctx context.Context, userID string) (group.User, error) {
	uid, err := parseID("user_id", userID)
	if err != nil {
		return group.User{}, err
	}
	data, err := c.Call(ctx, ActionGetStrangerInfo, map[string]any{"user_id": uid})
	if err != nil {
		return group.User{}, err
	}
	var raw userData
	if err := decodeData(ActionGetStrangerInfo, data, &raw); err != nil {
		return group.User{}, err
	}
	u := group.User{UserID: string(raw.UserID), Nickname: raw.Nickname, Sex: raw.Sex, Age: raw.Age}
	if u.UserID == "" {
		u.UserID = userID
	}
	return u, nil
}

// GetLoginInfo returns the bot's own account.
func (c *Client) GetLoginInfo(ctx context.Context) (group.User, error) {
	data, err := c.Call(ctx, ActionGetLoginInfo, nil)
	if err != nil {
		return group.User{}, err
	}
	var raw userData
	if err := decodeData(ActionGetLoginInfo, data, &raw); err != nil {
		return group.User{}, err
	}
	if !IsNumericID(string(raw.UserID)) {
		return group.User{}, &Error{Kind: KindResponseFormat, Action: ActionGetLoginInfo, Message: "login info without user_id"}
	}
	return group.User{UserID: string(raw.UserID), Nickname: raw.Nickname}, nil
}

// TestConnection calls get_status to verify the endpoint and credentials.
func (c *Client) TestConnection(ctx context.Context) (group.Status, error) {
	data, err := c.Call(ctx, ActionGetStatus, nil)
	if err != nil {
		return group.Status{}, err
	}
	var st group.Status
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &st); err != nil {
			return group.Status{}, &Error{Kind: KindResponseFormat, Action: ActionGetStatus, Message: "unexpected data shape", Err: err}
		}
	}
	return st, nil
}
