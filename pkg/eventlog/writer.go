package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/domain/event"
	"github.com/faeln1/go-onebot-guard/pkg/storage"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var invalidSegment = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Writer persiste eventos brutos recebidos do OneBot em disco e, quando
// configurado, em object storage.
type Writer struct {
	baseDir string
	store   storage.Service
	clock   clockwork.Clock
	log     waLog.Logger
}

// Record is the archived form of one inbound event.
type Record struct {
	EventType  string          `json:"event_type"`
	GroupID    string          `json:"group_id,omitempty"`
	SelfID     string          `json:"self_id,omitempty"`
	ReceivedAt string          `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewWriter returns nil when neither a directory nor a store is configured.
func NewWriter(baseDir string, store storage.Service, log waLog.Logger) *Writer {
	base := strings.TrimSpace(baseDir)
	if base == "" && store == nil {
		return nil
	}
	if base != "" {
		base = filepath.Clean(base)
	}
	if log == nil {
		log = waLog.Noop
	}
	return &Writer{baseDir: base, store: store, clock: clockwork.NewRealClock(), log: log}
}

// Enabled informa se a gravação de eventos está ativa.
func (w *Writer) Enabled() bool {
	return w != nil && (w.baseDir != "" || w.store != nil)
}

// Write arquiva o evento em <tipo>/<grupo>/timestamp-uuid.json. raw is the body
// exactly as received; it must be valid JSON.
func (w *Writer) Write(ctx context.Context, evt event.Event, raw []byte) error {
	if !w.Enabled() || len(raw) == 0 {
		return nil
	}

	ts := w.clock.Now().UTC()
	kind := sanitizeSegment(evt.Kind())
	scope := "private"
	if evt.GroupID != "" {
		scope = sanitizeSegment(string(evt.GroupID))
	}
	name := fmt.Sprintf("%s-%s.json", ts.Format("20060102T150405Z"), uuid.NewString())

	payload := json.RawMessage(raw)
	if !json.Valid(raw) {
		quoted, _ := json.Marshal(string(raw))
		payload = quoted
	}
	data, err := json.MarshalIndent(Record{
		EventType:  evt.Kind(),
		GroupID:    string(evt.GroupID),
		SelfID:     string(evt.SelfID),
		ReceivedAt: ts.Format(time.RFC3339Nano),
		Payload:    payload,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}

	if w.baseDir != "" {
		dir := filepath.Join(w.baseDir, kind, scope)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
		file := filepath.Join(dir, name)
		if err := os.WriteFile(file, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", file, err)
		}
	}

	if w.store != nil {
		key := path.Join(kind, scope, name)
		url, err := w.store.PutObject(ctx, storage.UploadInput{
			Key:         key,
			ContentType: "application/json",
			Body:        bytes.NewReader(data),
			Size:        int64(len(data)),
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		w.log.Debugf("archived %s event at %s", evt.Kind(), url)
	}
	return nil
}

func sanitizeSegment(raw string) string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "unknown"
	}
	sanitized := invalidSegment.ReplaceAllString(candidate, "_")
	sanitized = strings.Trim(sanitized, "._-")
	if sanitized == "" {
		return "unknown"
	}
	return sanitized
}
