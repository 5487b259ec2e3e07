package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/app/services"
	"github.com/faeln1/go-onebot-guard/internal/domain/blacklist"
	"github.com/faeln1/go-onebot-guard/internal/domain/event"
	"github.com/faeln1/go-onebot-guard/internal/domain/group"
	"github.com/faeln1/go-onebot-guard/internal/domain/message"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	groupID string
	msg     message.Chain
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *fakeMessenger) SendGroupMessage(_ context.Context, groupID string, msg message.Chain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{groupID, msg})
	return nil
}

type noopKicker struct{ kicked []string }

func (k *noopKicker) Kick(_ context.Context, groupID, userID, _ string) error {
	k.kicked = append(k.kicked, groupID+"/"+userID)
	return nil
}

type recordingArchive struct{ kinds []string }

func (a *recordingArchive) Write(_ context.Context, evt event.Event, _ []byte) error {
	a.kinds = append(a.kinds, evt.Kind())
	return nil
}

type selfRecorder struct{ id string }

func (s *selfRecorder) SetSelfID(id string) { s.id = id }

type eventFixture struct {
	blacklist repositories.BlacklistRepository
	messenger *fakeMessenger
	kicker    *noopKicker
	archive   *recordingArchive
	self      *selfRecorder
	ctrl      *OneBotController
}

func newEventFixture() *eventFixture {
	f := &eventFixture{
		blacklist: repositories.NewInMemoryBlacklistRepo(),
		messenger: &fakeMessenger{},
		kicker:    &noopKicker{},
		archive:   &recordingArchive{},
		self:      &selfRecorder{},
	}
	welcomeRepo := repositories.NewInMemoryWelcomeRepo()
	clock := clockwork.NewFakeClock()
	pipeline := services.NewModerationPipeline(f.blacklist, welcomeRepo, f.kicker,
		services.NewNotificationThrottle(0, clock), nil, clock, nil)
	commands := services.NewCommandService(
		services.NewBlacklistService(f.blacklist, nil),
		services.NewWelcomeService(welcomeRepo),
		services.NewCommandGate(nil),
		[]string{"1"}, nil, nil,
	)
	f.ctrl = NewOneBotController(OneBotControllerConfig{
		Pipeline:  pipeline,
		Commands:  commands,
		Messenger: f.messenger,
		Archive:   f.archive,
		Self:      f.self,
	})
	return f
}

func postEvent(ctrl *OneBotController, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/onebot/event", strings.NewReader(body))
	rec := httptest.NewRecorder()
	ctrl.Event(rec, req)
	return rec
}

func TestEventJoinSendsWelcome(t *testing.T) {
	f := newEventFixture()
	rec := postEvent(f.ctrl, `{"time":1,"self_id":10001,"post_type":"notice","notice_type":"group_increase","sub_type":"approve","group_id":222,"user_id":333}`)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, f.messenger.sent, 1)
	assert.Equal(t, "222", f.messenger.sent[0].groupID)
	assert.Equal(t, services.DefaultWelcome("333"), f.messenger.sent[0].msg)
	assert.Equal(t, "10001", f.self.id)
	assert.Equal(t, []string{"group_increase"}, f.archive.kinds)
}

func TestEventJoinKicksBlacklisted(t *testing.T) {
	f := newEventFixture()
	_, err := f.blacklist.Upsert(context.Background(), blacklist.Entry{UserID: "999", Reason: "spam"})
	require.NoError(t, err)

	rec := postEvent(f.ctrl, `{"post_type":"notice","notice_type":"group_increase","group_id":"111","user_id":"999"}`)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"111/999"}, f.kicker.kicked)
	require.Len(t, f.messenger.sent, 1)
	assert.Contains(t, f.messenger.sent[0].msg.PlainText(), "spam")
}

func TestEventCommandReplies(t *testing.T) {
	f := newEventFixture()
	rec := postEvent(f.ctrl, `{"post_type":"message","message_type":"group","group_id":100,"user_id":1,"raw_message":"/sunos bl gadd 42 raid","sender":{"user_id":1,"role":"member"}}`)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, f.messenger.sent, 1)
	assert.Contains(t, f.messenger.sent[0].msg.PlainText(), "Added 42")
	_, err := f.blacklist.Get(context.Background(), "42", "")
	assert.NoError(t, err)
}

type panickingCommands struct{}

func (panickingCommands) Handle(context.Context, event.Event) (message.Chain, bool) {
	panic("command exploded")
}

func TestEventCommandPanicIsContained(t *testing.T) {
	messenger := &fakeMessenger{}
	ctrl := NewOneBotController(OneBotControllerConfig{Commands: panickingCommands{}, Messenger: messenger})

	rec := postEvent(ctrl, `{"post_type":"message","message_type":"group","group_id":100,"user_id":1,"raw_message":"/sunos help"}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, messenger.sent)
}

func TestEventIgnoresUnrelated(t *testing.T) {
	f := newEventFixture()
	rec := postEvent(f.ctrl, `{"post_type":"meta_event","meta_event_type":"heartbeat","self_id":10001}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.messenger.sent)
}

func TestEventRejectsBadBodies(t *testing.T) {
	f := newEventFixture()
	assert.Equal(t, http.StatusBadRequest, postEvent(f.ctrl, "").Code)
	assert.Equal(t, http.StatusBadRequest, postEvent(f.ctrl, "{not json").Code)
	assert.Equal(t, http.StatusBadRequest, postEvent(f.ctrl, `{"group_id":1.5}`).Code)
}

func TestBlacklistControllerLifecycle(t *testing.T) {
	ctrl := NewBlacklistController(services.NewBlacklistService(repositories.NewInMemoryBlacklistRepo(), nil))

	rec := httptest.NewRecorder()
	ctrl.Create(rec, httptest.NewRequest(http.MethodPost, "/api/blacklist", strings.NewReader(`{"user_id":"42","group_id":"100","reason":"spam"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created blacklist.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, APIActor, created.AddedBy)
	assert.Equal(t, "100", created.GroupID)

	rec = httptest.NewRecorder()
	ctrl.Create(rec, httptest.NewRequest(http.MethodPost, "/api/blacklist", strings.NewReader(`{"user_id":"abc"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	get := func(userID, query string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/blacklist/"+userID+query, nil)
		req.SetPathValue("user_id", userID)
		rec := httptest.NewRecorder()
		ctrl.Get(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, get("42", "?group_id=100"))
	assert.Equal(t, http.StatusNotFound, get("42", ""))

	rec = httptest.NewRecorder()
	ctrl.List(rec, httptest.NewRequest(http.MethodGet, "/api/blacklist?group_id=100", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = httptest.NewRecorder()
	ctrl.List(rec, httptest.NewRequest(http.MethodGet, "/api/blacklist?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	del := httptest.NewRequest(http.MethodDelete, "/api/blacklist/42?group_id=100", nil)
	del.SetPathValue("user_id", "42")
	rec = httptest.NewRecorder()
	ctrl.Delete(rec, del)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, get("42", "?group_id=100"))
}

func TestWelcomeControllerLifecycle(t *testing.T) {
	ctrl := NewWelcomeController(services.NewWelcomeService(repositories.NewInMemoryWelcomeRepo()))
	withGroup := func(method, body string) *http.Request {
		req := httptest.NewRequest(method, "/api/welcome/100", strings.NewReader(body))
		req.SetPathValue("group_id", "100")
		return req
	}

	rec := httptest.NewRecorder()
	ctrl.Get(rec, withGroup(http.MethodGet, ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	ctrl.Set(rec, withGroup(http.MethodPut, `{"message":"Hi {user}"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ctrl.Set(rec, withGroup(http.MethodPut, `{"message":""}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	ctrl.Get(rec, withGroup(http.MethodGet, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hi {user}")

	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		ctrl.Delete(rec, withGroup(http.MethodDelete, ""))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

type fakeStatus struct {
	status group.Status
	err    error
}

func (f fakeStatus) Name() string { return "onebot" }

func (f fakeStatus) Status(context.Context) (group.Status, error) { return f.status, f.err }

func TestStatusController(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStatusController(fakeStatus{status: group.Status{Online: true, Good: true}}, nil).
		OneBot(rec, httptest.NewRequest(http.MethodGet, "/api/onebot/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"online":true`)

	rec = httptest.NewRecorder()
	NewStatusController(fakeStatus{err: errors.New("connection refused")}, nil).
		OneBot(rec, httptest.NewRequest(http.MethodGet, "/api/onebot/status", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
