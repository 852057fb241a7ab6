package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CryLyo/EduBot/internal/config"
	"github.com/CryLyo/EduBot/internal/directory"
	"github.com/CryLyo/EduBot/internal/platform/fake"
	"github.com/CryLyo/EduBot/internal/queue"
	queuesvc "github.com/CryLyo/EduBot/internal/services/queues"
	filestore "github.com/CryLyo/EduBot/internal/storage/file"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

func newTestServer(t *testing.T) (*Server, *fake.Chat) {
	t.Helper()
	store, err := filestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	chat := fake.New()
	logger := logpkg.NewLogger(
		logpkg.WithLevel(logpkg.ErrorLevel),
		logpkg.WithOutput(logpkg.NewWriterOutput(io.Discard)),
	)
	dir := directory.New(store, queue.Deps{Chat: chat, Logger: logger})
	svc := queuesvc.New(dir, chat, logger)
	cfg := config.Server{
		Addr:            ":0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}
	return New(cfg, svc, logger), chat
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) queuesvc.Result {
	t.Helper()
	var res queuesvc.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return res
}

func makeQueue(t *testing.T, srv *Server, kind string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/v1/queues", map[string]any{
		"guild": 1, "channel": 2, "kind": kind,
		"guildname": "campus", "channame": "python",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("make queue: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestMakeQueueConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	makeQueue(t, srv, "Review")
	rec := doJSON(t, srv, http.MethodPost, "/v1/queues", map[string]any{
		"guild": 1, "channel": 2, "kind": "Review",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestMakeQueueBadKind(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/queues", map[string]any{
		"guild": 1, "channel": 2, "kind": "Quiz",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestJoinAndWhereIs(t *testing.T) {
	srv, _ := newTestServer(t)
	makeQueue(t, srv, "Review")

	rec := doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/join", map[string]any{"participant": 7})
	if rec.Code != http.StatusOK {
		t.Fatalf("join: %d %s", rec.Code, rec.Body.String())
	}
	if res := decodeResult(t, rec); res.Position != 1 {
		t.Fatalf("result %+v", res)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/queues/1/2/whereis/7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("whereis: %d", rec.Code)
	}

	// Unknown scope is 404.
	rec = doJSON(t, srv, http.MethodPost, "/v1/queues/9/9/join", map[string]any{"participant": 7})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestTakeNextOverHTTP(t *testing.T) {
	srv, chat := newTestServer(t)
	makeQueue(t, srv, "Review")
	chat.AddUser(100, "ta")
	chat.JoinVoice(100, 500)
	chat.AddUser(7, "ann")
	chat.JoinVoice(7, 300)
	doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/join", map[string]any{"participant": 7})

	rec := doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/takenext", map[string]any{"operator": 100})
	if rec.Code != http.StatusOK {
		t.Fatalf("takenext: %d %s", rec.Code, rec.Body.String())
	}
	if res := decodeResult(t, rec); res.Taken != 7 {
		t.Fatalf("result %+v", res)
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/putback", map[string]any{"operator": 100})
	if rec.Code != http.StatusOK {
		t.Fatalf("putback: %d %s", rec.Code, rec.Body.String())
	}
}

func TestQuestionEndpoints(t *testing.T) {
	srv, chat := newTestServer(t)
	makeQueue(t, srv, "Question")
	chat.AddUser(100, "ta")

	rec := doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/questions", map[string]any{
		"asker": 7, "text": "what is a goroutine?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ask: %d %s", rec.Code, rec.Body.String())
	}
	if res := decodeResult(t, rec); res.Index != 1 {
		t.Fatalf("result %+v", res)
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/questions/1/follow", map[string]any{"participant": 8})
	if rec.Code != http.StatusOK {
		t.Fatalf("follow: %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/questions/1/answer", map[string]any{
		"operator": 100, "text": "a lightweight thread",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("answer: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/questions/0/amend", map[string]any{
		"by": 100, "text": "x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad index: %d", rec.Code)
	}
}

func TestEntriesFilterOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	makeQueue(t, srv, "Review")
	doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/join", map[string]any{"participant": 7})
	doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/join", map[string]any{"participant": 8})

	rec := doJSON(t, srv, http.MethodGet, "/v1/queues/1/2/entries?filter=position+%3D%3D+2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("entries: %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Entries []queue.Entry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Entries) != 1 || out.Entries[0].Participant != 8 {
		t.Fatalf("entries %v", out.Entries)
	}
}

func TestSaveLoadEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	makeQueue(t, srv, "Review")
	doJSON(t, srv, http.MethodPost, "/v1/queues/1/2/join", map[string]any{"participant": 7})

	rec := doJSON(t, srv, http.MethodPost, "/v1/queues/save", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/v1/queues/load", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("load: %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/v1/queues", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var out struct {
		Queues []queuesvc.QueueInfo `json:"queues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Queues) != 1 || out.Queues[0].Size != 1 {
		t.Fatalf("queues %v", out.Queues)
	}
}
