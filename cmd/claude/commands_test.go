package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	claude "github.com/AshwinPathi/claude-api-go"
	"github.com/AshwinPathi/claude-api-go/internal/cache"
	"github.com/AshwinPathi/claude-api-go/internal/config"
	"github.com/AshwinPathi/claude-api-go/internal/db"
	"github.com/AshwinPathi/claude-api-go/stream"
	"github.com/AshwinPathi/claude-api-go/transport"
)

const (
	orgPersonal = "0b5e2d1c-0000-4000-8000-000000000001"
	orgWork     = "0b5e2d1c-0000-4000-8000-000000000002"
	convoOld    = "a1b2c3d4-1111-4000-8000-000000000001"
	convoNew    = "e5f6a7b8-2222-4000-8000-000000000002"
	convoBad    = "bad00000-3333-4000-8000-000000000003"
)

// fakeClaude serves the endpoints the CLI uses from an in-memory list of
// conversations.
type fakeClaude struct {
	mu       sync.Mutex
	convos   map[string]claude.Conversation
	infos    int
	messages []map[string]any

	// titlesDown makes title generation fail.
	titlesDown bool
}

func newFakeClaude(t *testing.T) (*fakeClaude, string) {
	t.Helper()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeClaude{convos: map[string]claude.Conversation{
		convoOld: {UUID: convoOld, Name: "Old chat", UpdatedAt: base},
		convoNew: {UUID: convoNew, Name: "Newer chat", UpdatedAt: base.Add(time.Hour)},
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/organizations", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []claude.Organization{{UUID: orgPersonal, Name: "Personal"}, {UUID: orgWork, Name: "Work"}})
	})
	mux.HandleFunc("GET /api/organizations/{org}/chat_conversations", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("org") {
		case orgPersonal:
			writeJSON(w, f.list())
		case orgWork:
			writeJSON(w, []claude.Conversation{})
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	})
	mux.HandleFunc("GET /api/organizations/{org}/chat_conversations/{convo}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.infos++
		c, ok := f.convos[r.PathValue("convo")]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, claude.ConversationInfo{
			Conversation: c,
			Messages: []claude.ChatMessage{
				{Sender: claude.SenderAssistant, Text: " Hello! ", Index: 1},
				{Sender: claude.SenderHuman, Text: "hi", Index: 0},
			},
		})
	})
	mux.HandleFunc("POST /api/organizations/{org}/chat_conversations", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UUID string `json:"uuid"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		c := claude.Conversation{UUID: body.UUID, UpdatedAt: time.Now()}
		f.mu.Lock()
		f.convos[body.UUID] = c
		f.mu.Unlock()
		writeJSON(w, c)
	})
	mux.HandleFunc("DELETE /api/organizations/{org}/chat_conversations/{convo}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("convo")
		if id == convoBad {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		f.mu.Lock()
		delete(f.convos, id)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/append_message", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.messages = append(f.messages, body)
		f.mu.Unlock()
		w.Header().Set("Content-Type", stream.MediaType)
		for _, e := range []string{
			`{"completion":" Hi","stop_reason":null,"model":"claude-2.1"}`,
			`{"completion":" there!","stop_reason":"stop_sequence","model":"claude-2.1"}`,
		} {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", e)
		}
	})
	mux.HandleFunc("POST /api/generate_chat_title", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		down := f.titlesDown
		f.mu.Unlock()
		if down {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		writeJSON(w, claude.Title{Title: "Greetings"})
	})
	mux.HandleFunc("POST /api/rename_chat", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ConversationUUID string `json:"conversation_uuid"`
			Title            string `json:"title"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		c := f.convos[body.ConversationUUID]
		c.Name = body.Title
		f.convos[body.ConversationUUID] = c
		f.mu.Unlock()
		writeJSON(w, c)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func (f *fakeClaude) list() []claude.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]claude.Conversation, 0, len(f.convos))
	for _, c := range f.convos {
		out = append(out, c)
	}
	return out
}

func (f *fakeClaude) lastMessage(tb testing.TB) map[string]any {
	tb.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(tb, f.messages)
	return f.messages[len(f.messages)-1]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type cli struct {
	cfg config.Config
}

func newCLI(t *testing.T, baseURL string) *cli {
	t.Helper()
	cfg := config.Default()
	cfg.SessionKey = "sk-ant-sid01-test"
	cfg.BaseURL = baseURL
	cfg.CachePath = t.TempDir()
	cfg.SettingsPath = filepath.Join(t.TempDir(), "claude.yml")
	cfg.Timeout = 10 * time.Second
	return &cli{cfg: cfg}
}

type result struct {
	out    string
	errOut string
	err    error
}

// run executes one command line the way main does, with piped as stdin
// when it is not empty.
func (c *cli) run(piped string, args ...string) result {
	var out, errOut bytes.Buffer
	a := newApp(c.cfg)
	a.out = &out
	a.errOut = &errOut
	a.tty = false
	a.errTTY = false
	a.piped = piped != ""
	a.in = strings.NewReader(piped)

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	a.close(err)
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func (c *cli) index(tb testing.TB) []db.Conversation {
	tb.Helper()
	index, err := db.Open(c.cfg.CachePath)
	require.NoError(tb, err)
	defer index.Close() //nolint:errcheck
	convos, err := index.List(orgPersonal)
	require.NoError(tb, err)
	return convos
}

func TestOrgs(t *testing.T) {
	_, url := newFakeClaude(t)
	c := newCLI(t, url)

	res := c.run("", "orgs")
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "* "+orgPersonal)
	require.Contains(t, lines[0], "Personal")
	require.Contains(t, lines[0], "(2 conversations)")
	require.Contains(t, lines[1], "Work")
	require.Contains(t, lines[1], "(0 conversations)")

	orgs, err := cache.NewOrganizations(c.cfg.CachePath, time.Hour)
	require.NoError(t, err)
	a := newApp(c.cfg)
	cached, err := orgs.Read(a.fingerprint())
	require.NoError(t, err)
	require.Len(t, cached, 2)
}

func TestStaleOrganizationCache(t *testing.T) {
	_, url := newFakeClaude(t)
	c := newCLI(t, url)

	orgs, err := cache.NewOrganizations(c.cfg.CachePath, time.Hour)
	require.NoError(t, err)
	fingerprint := newApp(c.cfg).fingerprint()
	require.NoError(t, orgs.Write(fingerprint, []claude.Organization{{UUID: "left-org", Name: "Gone"}}))

	res := c.run("", "list")
	var terr *transport.Error
	require.ErrorAs(t, res.err, &terr)
	require.Equal(t, http.StatusForbidden, terr.StatusCode)
	_, err = orgs.Read(fingerprint)
	require.Error(t, err, "a rejected organization is not cached anymore")

	res = c.run("", "list")
	require.NoError(t, res.err)
	require.Contains(t, res.out, "Newer chat")
	cached, err := orgs.Read(fingerprint)
	require.NoError(t, err)
	require.Equal(t, orgPersonal, cached[0].UUID)
}

func TestModels(t *testing.T) {
	c := newCLI(t, "http://127.0.0.1:0")
	res := c.run("", "models", "--model", string(claude.Claude3Opus))
	require.NoError(t, res.err)
	require.Contains(t, res.out, "* "+string(claude.Claude3Opus))
	require.Contains(t, res.out, "  "+string(claude.Claude20))
}

func TestList(t *testing.T) {
	_, url := newFakeClaude(t)
	c := newCLI(t, url)

	res := c.run("", "list")
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], shortID(convoNew))
	require.Contains(t, lines[0], "Newer chat")
	require.Contains(t, lines[1], shortID(convoOld))
	require.Len(t, c.index(t), 2)

	t.Run("cached", func(t *testing.T) {
		cached := c.run("", "ls", "--cached")
		require.NoError(t, cached.err)
		require.Equal(t, res.out, cached.out)
	})

	t.Run("no cache", func(t *testing.T) {
		res := c.run("", "list", "--cached", "--no-cache")
		require.Error(t, res.err)
		require.Contains(t, res.err.Error(), "--no-cache")
	})
}

func TestSend(t *testing.T) {
	fake, url := newFakeClaude(t)
	c := newCLI(t, url)
	require.NoError(t, c.run("", "list").err)

	t.Run("by title", func(t *testing.T) {
		res := c.run("", "send", "-c", "Old chat", "hello", "there")
		require.NoError(t, res.err)
		require.Equal(t, " Hi there!\n", res.out)

		body := fake.lastMessage(t)
		require.Equal(t, convoOld, body["conversation_uuid"])
		require.Equal(t, orgPersonal, body["organization_uuid"])
		require.Equal(t, "hello there", body["text"])
		require.Equal(t, []any{}, body["attachments"])
	})

	t.Run("last used", func(t *testing.T) {
		res := c.run("", "send", "-C", "again")
		require.NoError(t, res.err)
		require.Equal(t, convoOld, fake.lastMessage(t)["conversation_uuid"])

		index := c.index(t)
		require.Equal(t, convoOld, index[0].ID)
		require.Equal(t, "Old chat", index[0].Title, "sending keeps the indexed title")
	})

	t.Run("by prefix with model", func(t *testing.T) {
		res := c.run("", "send", "-c", convoNew[:6], "-m", string(claude.Claude3Opus), "hi")
		require.NoError(t, res.err)
		body := fake.lastMessage(t)
		require.Equal(t, convoNew, body["conversation_uuid"])
		completion, ok := body["completion"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, string(claude.Claude3Opus), completion["model"])
		require.Equal(t, "hi", completion["prompt"])
	})

	t.Run("stdin", func(t *testing.T) {
		res := c.run("some code\n", "send", "-c", convoOld, "review")
		require.NoError(t, res.err)
		require.Equal(t, "review\n\nsome code", fake.lastMessage(t)["text"])
	})

	t.Run("attachment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("remember the milk"), 0o600))
		res := c.run("", "send", "-c", convoOld, "--attach", path, "summarize")
		require.NoError(t, res.err)
		attachments, ok := fake.lastMessage(t)["attachments"].([]any)
		require.True(t, ok)
		require.Len(t, attachments, 1)
		att, ok := attachments[0].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "notes.txt", att["file_name"])
		require.Equal(t, "remember the milk", att["extracted_content"])
	})

	t.Run("stream", func(t *testing.T) {
		res := c.run("", "send", "-c", convoOld, "--stream", "hi")
		require.NoError(t, res.err)
		require.Equal(t, " Hi there!\n", res.out)
	})

	t.Run("stream json", func(t *testing.T) {
		res := c.run("", "send", "-c", convoOld, "--stream", "--json", "hi")
		require.NoError(t, res.err)
		lines := strings.Split(strings.TrimSpace(res.out), "\n")
		require.Len(t, lines, 2)
		require.JSONEq(t, `{"completion":" Hi","stop_reason":null,"model":"claude-2.1"}`, lines[0])
	})

	t.Run("json", func(t *testing.T) {
		res := c.run("", "send", "-c", convoOld, "--json", "hi")
		require.NoError(t, res.err)
		require.JSONEq(t, `{"completion":" Hi there!","stop_reason":"stop_sequence","model":"claude-2.1"}`, res.out)
	})

	t.Run("no conversation", func(t *testing.T) {
		res := c.run("", "send", "hi")
		require.ErrorIs(t, res.err, claude.ErrNoConversation)
	})

	t.Run("nothing to send", func(t *testing.T) {
		res := c.run("", "send", "-C")
		require.ErrorIs(t, res.err, errNothingToSend)
	})

	t.Run("exclusive flags", func(t *testing.T) {
		res := c.run("", "send", "-C", "-c", convoOld, "hi")
		require.Error(t, res.err)
	})
}

func TestSendNoCache(t *testing.T) {
	_, url := newFakeClaude(t)
	c := newCLI(t, url)
	res := c.run("", "--no-cache", "send", "-C", "hi")
	require.Error(t, res.err)
	require.Contains(t, res.err.Error(), "--no-cache")
	require.NoDirExists(t, filepath.Join(c.cfg.CachePath, string(cache.OrganizationCache)))
}

func TestNew(t *testing.T) {
	fake, url := newFakeClaude(t)
	c := newCLI(t, url)

	res := c.run("", "new", "hello claude")
	require.NoError(t, res.err)
	require.Contains(t, res.out, "Greetings")
	require.Contains(t, res.out, " Hi there!")

	id := fake.lastMessage(t)["conversation_uuid"].(string)
	require.Contains(t, res.out, id)

	index := c.index(t)
	require.Len(t, index, 1)
	require.Equal(t, id, index[0].ID)
	require.Equal(t, "Greetings", index[0].Title)

	t.Run("continue", func(t *testing.T) {
		res := c.run("", "send", "-c", "Greetings", "more")
		require.NoError(t, res.err)
		require.Equal(t, id, fake.lastMessage(t)["conversation_uuid"])
	})

	t.Run("empty", func(t *testing.T) {
		before := len(fake.messages)
		res := c.run("", "new")
		require.NoError(t, res.err)
		require.Contains(t, res.out, "Greetings")
		require.Len(t, fake.messages, before, "an empty conversation sends nothing")
	})

	t.Run("title generation fails", func(t *testing.T) {
		fake.mu.Lock()
		fake.titlesDown = true
		fake.mu.Unlock()
		t.Cleanup(func() {
			fake.mu.Lock()
			fake.titlesDown = false
			fake.mu.Unlock()
		})

		res := c.run("", "new", "--title", "Fallback", "hello again")
		require.NoError(t, res.err)
		require.Contains(t, res.out, "Fallback")
		require.Contains(t, res.out, " Hi there!")

		id := fake.lastMessage(t)["conversation_uuid"].(string)
		var titled bool
		for _, convo := range c.index(t) {
			if convo.ID == id {
				titled = convo.Title == "Fallback"
			}
		}
		require.True(t, titled)
	})
}

func TestShow(t *testing.T) {
	fake, url := newFakeClaude(t)
	c := newCLI(t, url)

	res := c.run("", "show", convoOld)
	require.NoError(t, res.err)
	require.Equal(t, "# Old chat\n\n**You**: hi\n\n**Claude**: Hello!\n\n", res.out)
	require.Equal(t, 1, fake.infos)

	t.Run("last", func(t *testing.T) {
		res := c.run("", "show")
		require.NoError(t, res.err)
		require.Contains(t, res.out, "# Old chat")
	})

	t.Run("cached", func(t *testing.T) {
		infos := fake.infos
		cached := c.run("", "show", "--cached", "Old chat")
		require.NoError(t, cached.err)
		require.Equal(t, res.out, cached.out)
		require.Equal(t, infos, fake.infos)
	})

	t.Run("cached missing", func(t *testing.T) {
		res := c.run("", "show", "--cached", convoNew)
		require.ErrorIs(t, res.err, os.ErrNotExist)
	})

	t.Run("json", func(t *testing.T) {
		res := c.run("", "show", "--json", convoOld)
		require.NoError(t, res.err)
		var info claude.ConversationInfo
		require.NoError(t, json.Unmarshal([]byte(res.out), &info))
		require.Equal(t, convoOld, info.UUID)
		require.Len(t, info.Messages, 2)
	})

	t.Run("not found", func(t *testing.T) {
		res := c.run("", "show", "ffffffff-0000-4000-8000-000000000000")
		require.Error(t, res.err)
		require.Contains(t, formatError(res.err), "Conversation or organization not found.")
	})
}

func TestRename(t *testing.T) {
	fake, url := newFakeClaude(t)
	c := newCLI(t, url)
	require.NoError(t, c.run("", "list").err)

	res := c.run("", "rename", convoOld[:8], "Shopping", "list")
	require.NoError(t, res.err)
	require.Contains(t, res.out, "Shopping list")

	fake.mu.Lock()
	require.Equal(t, "Shopping list", fake.convos[convoOld].Name)
	fake.mu.Unlock()

	res = c.run("", "send", "-c", "Shopping list", "hi")
	require.NoError(t, res.err)
	require.Equal(t, convoOld, fake.lastMessage(t)["conversation_uuid"])
}

func TestDelete(t *testing.T) {
	t.Run("one", func(t *testing.T) {
		fake, url := newFakeClaude(t)
		c := newCLI(t, url)
		require.NoError(t, c.run("", "list").err)

		res := c.run("", "delete", "Old chat")
		require.NoError(t, res.err)
		require.Contains(t, res.out, "Deleted "+shortID(convoOld))
		require.Len(t, fake.list(), 1)
		require.Len(t, c.index(t), 1)
	})

	t.Run("all with failures", func(t *testing.T) {
		fake, url := newFakeClaude(t)
		fake.convos[convoBad] = claude.Conversation{UUID: convoBad, Name: "stuck"}
		c := newCLI(t, url)
		require.NoError(t, c.run("", "list").err)

		res := c.run("", "rm", "--all")
		require.ErrorIs(t, res.err, errNotDeleted)
		require.Contains(t, res.errOut, convoBad)
		require.Len(t, fake.list(), 1)

		index := c.index(t)
		require.Len(t, index, 1)
		require.Equal(t, convoBad, index[0].ID)
	})

	t.Run("all", func(t *testing.T) {
		fake, url := newFakeClaude(t)
		c := newCLI(t, url)
		res := c.run("", "delete", "--all")
		require.NoError(t, res.err)
		require.Empty(t, fake.list())
	})

	t.Run("bad arguments", func(t *testing.T) {
		c := newCLI(t, "http://127.0.0.1:0")
		require.Error(t, c.run("", "delete").err)
		require.Error(t, c.run("", "delete", "--all", convoOld).err)
	})
}

func TestUpload(t *testing.T) {
	_, url := newFakeClaude(t)
	c := newCLI(t, url)
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# notes"), 0o600))

	res := c.run("", "upload", path)
	require.NoError(t, res.err)
	var att claude.Attachment
	require.NoError(t, json.Unmarshal([]byte(res.out), &att))
	require.Equal(t, claude.Attachment{
		FileName:         "notes.md",
		FileType:         "text/plain",
		FileSize:         7,
		ExtractedContent: "# notes",
	}, att)
}

func TestSettingsFlag(t *testing.T) {
	c := newCLI(t, "http://127.0.0.1:0")
	res := c.run("", "--settings")
	require.NoError(t, res.err)
	require.Equal(t, c.cfg.SettingsPath+"\n", res.out)
}

func TestNoSessionKey(t *testing.T) {
	c := newCLI(t, "http://127.0.0.1:0")
	c.cfg.SessionKey = ""
	res := c.run("", "list")
	require.ErrorIs(t, res.err, config.ErrNoSessionKey)
	require.Contains(t, formatError(res.err), "SESSION_KEY")
}
