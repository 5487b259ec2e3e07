package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/domain/event"
	"github.com/faeln1/go-onebot-guard/pkg/storage"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	objects map[string][]byte
	err     error
}

func (m *memoryStore) PutObject(_ context.Context, in storage.UploadInput) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return "", err
	}
	m.objects[in.Key] = data
	return "mem://" + in.Key, nil
}

func (m *memoryStore) DeleteObject(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) Ping(context.Context) error { return m.err }

func TestNewWriterDisabled(t *testing.T) {
	w := NewWriter("  ", nil, nil)
	if w.Enabled() {
		t.Fatalf("writer without targets must be disabled")
	}
	if err := w.Write(context.Background(), event.Event{}, []byte(`{}`)); err != nil {
		t.Fatalf("disabled Write() error = %v", err)
	}
}

func TestWriteArchivesToDiskAndStore(t *testing.T) {
	dir := t.TempDir()
	store := &memoryStore{objects: map[string][]byte{}}
	w := NewWriter(dir, store, nil)
	w.clock = clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	raw := []byte(`{"post_type":"notice","notice_type":"group_increase","group_id":111,"user_id":999}`)
	evt := event.Event{PostType: "notice", NoticeType: "group_increase", GroupID: "111", UserID: "999", SelfID: "10001"}
	require.NoError(t, w.Write(context.Background(), evt, raw))

	files, err := filepath.Glob(filepath.Join(dir, "group_increase", "111", "20240501T120000Z-*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "group_increase", rec.EventType)
	assert.Equal(t, "111", rec.GroupID)
	assert.JSONEq(t, string(raw), string(rec.Payload))

	require.Len(t, store.objects, 1)
	for key, body := range store.objects {
		assert.Equal(t, "group_increase/111/"+filepath.Base(files[0]), key)
		assert.Equal(t, data, body)
	}
}

func TestWriteStoreFailure(t *testing.T) {
	w := NewWriter("", &memoryStore{err: errors.New("bucket gone")}, nil)
	err := w.Write(context.Background(), event.Event{PostType: "meta_event"}, []byte(`{}`))
	assert.ErrorContains(t, err, "bucket gone")
}

func TestSanitizeSegment(t *testing.T) {
	assert.Equal(t, "unknown", sanitizeSegment(" "))
	assert.Equal(t, "a_b", sanitizeSegment("a/b"))
	assert.Equal(t, "unknown", sanitizeSegment("../"))
}
