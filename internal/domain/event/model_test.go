package event

import (
	"encoding/json"
	"testing"
)

func TestEventDecodesNumericAndStringIDs(t *testing.T) {
	raw := `{"post_type":"notice","notice_type":"group_decrease","sub_type":"kick","group_id":333,"user_id":"222","self_id":10001,"operator_id":null}`
	var evt Event
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.GroupID != "333" || evt.UserID != "222" || evt.SelfID != "10001" {
		t.Fatalf("unexpected ids: %+v", evt)
	}
	if evt.OperatorID != "" {
		t.Fatalf("expected empty operator, got %q", evt.OperatorID)
	}
	if !evt.IsMemberLeave() || evt.IsMemberJoin() {
		t.Fatalf("expected leave classification")
	}
	if evt.Kind() != NoticeGroupDecrease {
		t.Fatalf("unexpected kind %q", evt.Kind())
	}
}

func TestEventRejectsFractionalID(t *testing.T) {
	var evt Event
	if err := json.Unmarshal([]byte(`{"group_id":1.5}`), &evt); err == nil {
		t.Fatalf("expected error for fractional id")
	}
}

func TestSenderIDFallsBackToUserID(t *testing.T) {
	evt := Event{UserID: "42"}
	if evt.SenderID() != "42" {
		t.Fatalf("expected fallback to user id")
	}
	evt.Sender = &Sender{UserID: "43"}
	if evt.SenderID() != "43" {
		t.Fatalf("expected sender id")
	}
}
