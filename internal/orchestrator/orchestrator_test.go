package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-chatter/internal/conversation"
	"persona-chatter/internal/intent"
	"persona-chatter/internal/llm"
	"persona-chatter/internal/persona"
	"persona-chatter/internal/storage"
	"persona-chatter/internal/threads"
)

// fakeLLM echoes the last user message and remembers what it was sent.
type fakeLLM struct {
	mu    sync.Mutex
	fail  bool
	reply string
	calls [][]llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, msgs []llm.Message) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	if f.fail {
		return llm.Response{}, errors.New("model unavailable")
	}
	if f.reply != "" {
		return llm.Response{Content: f.reply}, nil
	}
	return llm.Response{Content: "echo: " + msgs[len(msgs)-1].Content}, nil
}

func (f *fakeLLM) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeLLM) last() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type harness struct {
	orch     *Orchestrator
	chat     *fakeLLM
	writer   *fakeLLM
	store    storage.Store
	registry *persona.Registry
	dir      *threads.Directory
}

func newHarness(t *testing.T, classifier intent.Classifier) *harness {
	t.Helper()
	h := &harness{
		chat:   &fakeLLM{},
		writer: &fakeLLM{reply: "You are a salty pirate captain."},
		store:  storage.NewMemoryStore(),
	}
	h.registry = persona.NewRegistry(h.store, "", nil)
	require.NoError(t, h.registry.Load(context.Background()))
	h.dir = threads.NewDirectory(h.store)

	if classifier == nil {
		c, err := intent.New("keyword", nil, nil)
		require.NoError(t, err)
		classifier = c
	}
	engine := conversation.NewEngine(h.chat, h.store)
	h.orch = New(h.registry, classifier, h.dir, engine, persona.NewPromptWriter(h.writer, nil), nil)
	return h
}

func (h *harness) send(t *testing.T, user, msg string) Reply {
	t.Helper()
	r, err := h.orch.Chat(context.Background(), user, msg)
	require.NoError(t, err)
	return r
}

func TestDefaultBootstrap(t *testing.T) {
	h := newHarness(t, nil)
	r := h.send(t, "u1", "Hello, who are you?")

	assert.Equal(t, "Business Domain Expert", r.Persona)
	assert.Equal(t, persona.BaseName, r.PersonaName)
	assert.Equal(t, "echo: Hello, who are you?", r.Response)
	assert.Contains(t, h.chat.last()[0].Content, "Business Domain Expert")

	active, ok, err := h.dir.GetActive(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, r.ThreadID, active)
}

func TestMentorInvestorMentorScenario(t *testing.T) {
	h := newHarness(t, nil)

	base := h.send(t, "u1", "Hello, who are you?")
	mentor := h.send(t, "u1", "Act like my mentor. How can I improve?")
	assert.Equal(t, "Mentor", mentor.Persona)
	assert.NotEqual(t, base.ThreadID, mentor.ThreadID)

	investor := h.send(t, "u1", "Switch to investor. What is the ROI?")
	assert.Equal(t, "Investor", investor.Persona)
	assert.NotEqual(t, mentor.ThreadID, investor.ThreadID)

	back := h.send(t, "u1", "Back to mentor. What did we talk about?")
	assert.Equal(t, "Mentor", back.Persona)
	assert.Equal(t, mentor.ThreadID, back.ThreadID)

	// The mentor thread's own history is replayed, investor turns are not.
	ctxMsgs := h.chat.last()
	var contents []string
	for _, m := range ctxMsgs[1:] {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{
		"Act like my mentor. How can I improve?",
		"echo: Act like my mentor. How can I improve?",
		"Back to mentor. What did we talk about?",
	}, contents)
}

func TestFollowUpsStayOnActiveThread(t *testing.T) {
	h := newHarness(t, nil)
	first := h.send(t, "u1", "Act like my mentor.")
	second := h.send(t, "u1", "How can I improve my skills?")

	assert.Equal(t, "Mentor", second.Persona)
	assert.Equal(t, first.ThreadID, second.ThreadID)

	msgs, err := h.store.Read(context.Background(), first.ThreadID)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestUsersAreIsolated(t *testing.T) {
	h := newHarness(t, nil)
	a := h.send(t, "alice", "Be my mentor.")
	b := h.send(t, "bob", "Be my mentor.")
	assert.NotEqual(t, a.ThreadID, b.ThreadID)

	// bob's switch leaves alice's active pointer alone
	h.send(t, "bob", "Now act like an investor.")
	again := h.send(t, "alice", "and then?")
	assert.Equal(t, a.ThreadID, again.ThreadID)
}

func TestCreatePersona(t *testing.T) {
	h := newHarness(t, nil)
	r := h.send(t, "u1", "Be a pirate. Arrr!")

	assert.Equal(t, "Pirate", r.Persona)
	assert.Contains(t, h.registry.Names(), "pirate")
	assert.Equal(t, "You are a salty pirate captain.", h.registry.Prompt("pirate"))
	assert.Equal(t, "You are a salty pirate captain.", h.chat.last()[0].Content)

	// Creating again is an idempotent switch.
	again := h.send(t, "u1", "Be a pirate.")
	assert.Equal(t, r.ThreadID, again.ThreadID)
	assert.Len(t, h.writer.calls, 1)
}

func TestCreatePersonaFallsBackToTemplate(t *testing.T) {
	h := newHarness(t, nil)
	h.writer.setFail(true)

	r := h.send(t, "u1", "act as a chef")
	assert.Equal(t, "Chef", r.Persona)
	assert.Equal(t, persona.TemplatePrompt("chef", "chef"), h.registry.Prompt("chef"))
}

func TestCreatedPersonaIsSharedAcrossUsers(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "u1", "Be a pirate.")
	r := h.send(t, "u2", "back to pirate")
	assert.Equal(t, "Pirate", r.Persona)
	assert.Len(t, h.writer.calls, 1)
}

func TestGenerationFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "u1", "Hello")
	h.chat.setFail(true)

	_, err := h.orch.Chat(context.Background(), "u1", "Be my mentor.")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeneration))

	// The switch to mentor is committed.
	mentorThread, err := h.dir.ResolveThread(context.Background(), "u1", "mentor")
	require.NoError(t, err)
	active, _, err := h.dir.GetActive(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, mentorThread, active)

	msgs, err := h.store.Read(context.Background(), mentorThread)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, storage.RoleHuman, msgs[0].Role)

	h.chat.setFail(false)
	r := h.send(t, "u1", "still there?")
	assert.Equal(t, "Mentor", r.Persona)
}

func TestUnknownActiveThreadFallsBackToBase(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.dir.SetActive(context.Background(), "u1", "dangling"))

	r := h.send(t, "u1", "hi")
	assert.Equal(t, persona.BaseName, r.PersonaName)
	assert.NotEqual(t, "dangling", r.ThreadID)
}

func TestEmptyMessageContinues(t *testing.T) {
	h := newHarness(t, nil)
	r := h.send(t, "u1", "")
	assert.Equal(t, "Business Domain Expert", r.Persona)
	assert.NotEmpty(t, r.Response)
}

func TestClassifierDegradation(t *testing.T) {
	broken := &fakeLLM{}
	broken.setFail(true)
	c, err := intent.New("hybrid", broken, nil)
	require.NoError(t, err)
	h := newHarness(t, c)

	r := h.send(t, "u1", "act like my mentor")
	assert.Equal(t, "Mentor", r.Persona)
	r = h.send(t, "u1", "tell me more")
	assert.Equal(t, "Mentor", r.Persona)
}

func TestFailingClassifierLeavesRegistryAlone(t *testing.T) {
	for _, mode := range []string{"hybrid", "llm"} {
		t.Run(mode, func(t *testing.T) {
			broken := &fakeLLM{}
			broken.setFail(true)
			c, err := intent.New(mode, broken, nil)
			require.NoError(t, err)
			h := newHarness(t, c)
			before := h.registry.Names()

			for _, msg := range []string{
				"I will be an hour late to the meeting.",
				"I want to be a founder one day, any advice?",
				"Can we switch to pricing now?",
				"Could this be a profitable business?",
				"Be a pirate.",
			} {
				r := h.send(t, "u1", msg)
				assert.Equal(t, "Business Domain Expert", r.Persona, msg)
			}
			assert.Equal(t, before, h.registry.Names())

			mappings, err := h.dir.Threads(context.Background(), "u1")
			require.NoError(t, err)
			assert.Len(t, mappings, 1)
		})
	}
}

type blockingLLM struct{}

func (blockingLLM) Generate(ctx context.Context, _ []llm.Message) (llm.Response, error) {
	<-ctx.Done()
	return llm.Response{}, ctx.Err()
}

func TestCreatePersonaWithHungWriter(t *testing.T) {
	h := newHarness(t, nil)
	h.orch.writer = persona.NewPromptWriter(blockingLLM{}, nil, persona.WithPromptTimeout(50*time.Millisecond))

	done := make(chan Reply, 1)
	go func() {
		r, err := h.orch.Chat(context.Background(), "u1", "Be a pirate.")
		assert.NoError(t, err)
		done <- r
	}()

	select {
	case r := <-done:
		assert.Equal(t, "Pirate", r.Persona)
		assert.Equal(t, persona.TemplatePrompt("pirate", "pirate"), h.registry.Prompt("pirate"))
	case <-time.After(3 * time.Second):
		t.Fatal("create-persona turn did not finish")
	}
}

func TestConcurrentFirstMessages(t *testing.T) {
	h := newHarness(t, nil)
	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := h.orch.Chat(context.Background(), "u1", "hello")
			assert.NoError(t, err)
			ids[i] = r.ThreadID
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	mappings, err := h.dir.Threads(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, mappings, 1)
	msgs, err := h.store.Read(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
}

func TestReplyCarriesEngineOutput(t *testing.T) {
	h := newHarness(t, nil)
	r := h.send(t, "u1", "What is 2+2?")
	assert.True(t, strings.HasPrefix(r.Response, "echo: "))
}
