package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugin-ai/hugin/internal/config"
	"github.com/hugin-ai/hugin/internal/event"
	"github.com/hugin-ai/hugin/internal/oracle"
	"github.com/hugin-ai/hugin/internal/session"
	"github.com/hugin-ai/hugin/internal/stack"
	"github.com/hugin-ai/hugin/internal/storage"
	"github.com/hugin-ai/hugin/internal/tool"
	"github.com/hugin-ai/hugin/pkg/types"
)

func newTestServer(t *testing.T, replies ...types.OracleReply) (*Server, *session.Session, string) {
	t.Helper()
	store := storage.New(t.TempDir())
	bus := event.NewBus()

	registry := config.NewRegistry()
	require.NoError(t, registry.Add(&config.Config{
		Name: "worker", Model: "m", Tools: []string{tool.NameEcho},
	}))
	tools := tool.NewRegistry()
	tool.RegisterBuiltins(tools)

	opts := session.Options{
		Configs: registry,
		Tools:   tools,
		Oracle:  oracle.NewScripted(replies...),
	}
	srv := New(DefaultConfig(), store, bus, opts)

	opts.Store = store
	opts.Bus = bus
	sess := session.New(opts)
	agent, err := sess.CreateAgent("worker", types.Task{Prompt: "stand by"})
	require.NoError(t, err)
	srv.AddSession(sess)
	return srv, sess, agent.ID()
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestGetSession(t *testing.T) {
	srv, sess, agentID := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/sessions/"+sess.ID()+"/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out sessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, sess.ID(), out.ID)
	require.Len(t, out.Agents, 1)
	assert.Equal(t, agentID, out.Agents[0].ID)
	assert.Equal(t, "worker", out.Agents[0].Config)
}

func TestGetSessionNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/sessions/sess_missing/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessageAgentRejectsEmptyInput(t *testing.T) {
	srv, sess, agentID := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost,
		"/sessions/"+sess.ID()+"/agents/"+agentID+"/message", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRespondWithoutPendingQuestionConflicts(t *testing.T) {
	srv, sess, agentID := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost,
		"/sessions/"+sess.ID()+"/agents/"+agentID+"/response",
		map[string]any{"response": "sure"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStepSession(t *testing.T) {
	srv, sess, _ := newTestServer(t, oracle.TextReply("hello"))

	rec := doJSON(t, srv, http.MethodPost, "/sessions/"+sess.ID()+"/step", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Progress bool `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Progress)
}

// Concurrent step and message requests against one session must be
// serialized by the server; the core's step guard only catches
// re-entrancy, not cross-goroutine mutation.
func TestConcurrentStepAndMessage(t *testing.T) {
	replies := make([]types.OracleReply, 0, 16)
	for i := 0; i < 16; i++ {
		replies = append(replies, oracle.TextReply(fmt.Sprintf("turn %d", i)))
	}
	srv, sess, agentID := newTestServer(t, replies...)

	const messages = 8
	var wg sync.WaitGroup
	for i := 0; i < messages; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := doJSON(t, srv, http.MethodPost,
				"/sessions/"+sess.ID()+"/agents/"+agentID+"/message",
				map[string]any{"input": fmt.Sprintf("note %d", n)})
			assert.Equal(t, http.StatusAccepted, rec.Code)
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := doJSON(t, srv, http.MethodPost, "/sessions/"+sess.ID()+"/step", nil)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	// Every message is either still queued or already on the stack.
	a, err := sess.Agent(agentID)
	require.NoError(t, err)
	delivered := 0
	for _, i := range a.Stack().Interactions() {
		if _, ok := i.(*stack.ExternalInput); ok {
			delivered++
		}
	}
	queued := len(a.Stack().QueuedInteractions())
	assert.Equal(t, messages, delivered+queued)

	_, err = sess.Step(context.Background())
	require.NoError(t, err)
}
