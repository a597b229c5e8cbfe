package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/internal/ports"
	"github.com/bft-labs/recship/pkg/channel"
	"github.com/bft-labs/recship/pkg/clock"
	"github.com/bft-labs/recship/pkg/dom"
	"github.com/bft-labs/recship/pkg/state"
)

const testURL = "https://app.test/checkout"

type harness struct {
	doc    *fakeDocument
	sender *fakeSender
	repo   *state.MemoryRepository
	store  *state.Fallback
	clock  *clock.Mock
	obs    *fakeObserver
	engine *Engine
}

func newHarness(t *testing.T, opts ...EngineOption) *harness {
	t.Helper()
	h := &harness{
		doc:    newFakeDocument(testURL),
		sender: &fakeSender{},
		repo:   state.NewMemoryRepository(),
		clock:  clock.NewMock(time.UnixMilli(1700000000000)),
		obs:    &fakeObserver{},
	}
	h.store = state.NewFallback(h.repo, nil)
	opts = append([]EngineOption{WithEngineClock(h.clock), WithStateObserver(h.obs)}, opts...)
	h.engine = NewEngine(DefaultEngineConfig(), h.doc, h.sender, h.store, opts...)
	return h
}

func TestEngine_ScenarioSelectorAndEmptySentinel(t *testing.T) {
	h := newHarness(t)
	_, button, bare := scenarioTree()

	require.NoError(t, h.engine.Start())
	h.doc.click(button, "  Pay now  ")
	h.doc.click(bare, "Home")

	actions := h.engine.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionClick, actions[0].Kind)
	assert.Equal(t, ".btn:nth-child(2)", actions[0].Selector)
	require.NotNil(t, actions[0].Text)
	assert.Equal(t, "Pay now", *actions[0].Text)
	assert.Equal(t, testURL, actions[0].PageURL)
	assert.Equal(t, int64(1700000000000), actions[0].Timestamp)
}

func TestEngine_RootClickIsBody(t *testing.T) {
	h := newHarness(t)
	body, _, _ := scenarioTree()

	require.NoError(t, h.engine.Start())
	h.doc.click(body, "")

	actions := h.engine.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, "body", actions[0].Selector)
}

func TestEngine_InputKeepsRawValue(t *testing.T) {
	h := newHarness(t)
	body := dom.NewElement("body")
	field := body.AppendChild(dom.NewElement("form", "checkout")).AppendChild(dom.NewElement("input"))

	require.NoError(t, h.engine.Start())
	h.doc.input(field, "  spaced value ")
	h.doc.input(field, "")

	actions := h.engine.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, ".checkout", actions[0].Selector)
	assert.Equal(t, "  spaced value ", *actions[0].Value)
	require.NotNil(t, actions[1].Value)
	assert.Equal(t, "", *actions[1].Value)
}

func TestEngine_ClickTextTruncated(t *testing.T) {
	h := newHarness(t)
	body := dom.NewElement("body")
	link := body.AppendChild(dom.NewElement("a", "more"))

	require.NoError(t, h.engine.Start())
	h.doc.click(link, "\n"+strings.Repeat("é", 60)+"\t")

	actions := h.engine.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, strings.Repeat("é", 50), *actions[0].Text)
}

func TestEngine_StopWhileIdleIsNoop(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.engine.Stop())

	assert.Empty(t, h.sender.types())
	_, ok, _ := h.repo.Get(context.Background(), state.KeyLastSession)
	assert.False(t, ok)
	assert.Empty(t, h.obs.events)
}

func TestEngine_StartIsIdempotent(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.engine.Start())
	id := h.engine.SessionID()
	require.NoError(t, h.engine.Start())

	assert.Equal(t, id, h.engine.SessionID())
	assert.Equal(t, []string{channel.TypeRecordingStarted}, h.sender.types())
	assert.Equal(t, 1, h.doc.count(ports.EventClick))
}

func TestEngine_StartResetsLogAndMintsNewID(t *testing.T) {
	h := newHarness(t)
	_, button, _ := scenarioTree()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		require.NoError(t, h.engine.Start())
		assert.Empty(t, h.engine.Actions())

		id := h.engine.SessionID()
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "session id %s reused", id)
		seen[id] = true

		h.doc.click(button, "x")
		require.NoError(t, h.engine.Stop())
	}
}

func TestEngine_StopFinalizesAndDetaches(t *testing.T) {
	h := newHarness(t)
	_, button, _ := scenarioTree()

	require.NoError(t, h.engine.Start())
	id := h.engine.SessionID()
	assert.Equal(t, 1, h.doc.count(ports.EventClick))
	assert.Equal(t, 1, h.doc.count(ports.EventInput))
	assert.Equal(t, 1, h.doc.count(ports.EventScroll))

	h.doc.click(button, "Pay")
	// Metadata is read at finalize time, not at start.
	h.doc.setMetadata(domain.Metadata{Title: "", Viewport: domain.Viewport{Width: 390, Height: 844}, UserAgent: "mobile"})
	require.NoError(t, h.engine.Stop())

	assert.False(t, h.engine.IsRecording())
	assert.Zero(t, h.doc.count(ports.EventClick))
	assert.Zero(t, h.doc.count(ports.EventInput))
	assert.Zero(t, h.doc.count(ports.EventScroll))

	assert.Equal(t, []string{
		channel.TypeRecordingStarted,
		channel.TypeTestGenerated,
		channel.TypeRecordingStopped,
	}, h.sender.types())

	msg, ok := h.sender.last(channel.TypeTestGenerated)
	require.True(t, ok)
	sess := msg.TestData
	require.NotNil(t, sess)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, testURL, sess.OriginURL)
	assert.Equal(t, domain.DefaultTitle, sess.Title)
	assert.Equal(t, domain.Viewport{Width: 390, Height: 844}, sess.Viewport)
	assert.Equal(t, "mobile", sess.UserAgent)
	assert.Len(t, sess.Actions, 1)

	stopped, _ := h.sender.last(channel.TypeRecordingStopped)
	assert.Equal(t, id, stopped.SessionID)

	assert.False(t, h.store.Recording(context.Background()))
	saved, err := h.store.LastSession(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(*sess, *saved); diff != "" {
		t.Errorf("persisted session mismatch (-sent +saved):\n%s", diff)
	}

	// Events after stop are ignored.
	h.doc.click(button, "Pay")
	assert.Len(t, h.engine.Actions(), 1)

	assert.Equal(t, []observed{{true, id}, {false, id}}, h.obs.events)
}

func TestEngine_ScrollDebounce(t *testing.T) {
	h := newHarness(t)
	body := dom.NewElement("body")
	pane := body.AppendChild(dom.NewElement("div", "pane"))

	require.NoError(t, h.engine.Start())
	for i := 1; i <= 10; i++ {
		h.doc.scroll(pane, float64(i*10), float64(i))
		h.clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, h.engine.Actions())

	h.clock.Advance(50 * time.Millisecond)

	actions := h.engine.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionScroll, actions[0].Kind)
	assert.Equal(t, ".pane", actions[0].Selector)
	assert.Equal(t, 100.0, *actions[0].ScrollTop)
	assert.Equal(t, 10.0, *actions[0].ScrollLeft)
}

func TestEngine_DocumentScrollIsHTML(t *testing.T) {
	h := newHarness(t)
	body := dom.NewElement("body")

	require.NoError(t, h.engine.Start())
	h.doc.dispatch(ports.Event{Type: ports.EventScroll, Document: true, ScrollTop: 0, ScrollLeft: 0})
	h.clock.Advance(DefaultScrollDebounce)
	h.doc.scroll(body, 300, 0)
	h.clock.Advance(DefaultScrollDebounce)

	actions := h.engine.Actions()
	require.Len(t, actions, 2)
	for _, a := range actions {
		assert.Equal(t, "html", a.Selector)
	}
	require.NotNil(t, actions[0].ScrollTop)
	assert.Equal(t, 0.0, *actions[0].ScrollTop)
	assert.Equal(t, 300.0, *actions[1].ScrollTop)
}

func TestEngine_ScrollOnClasslessElementDropped(t *testing.T) {
	h := newHarness(t)
	_, _, bare := scenarioTree()

	require.NoError(t, h.engine.Start())
	h.doc.scroll(bare, 10, 0)
	h.clock.Advance(time.Second)

	assert.Empty(t, h.engine.Actions())
}

func TestEngine_StopCancelsPendingScroll(t *testing.T) {
	h := newHarness(t)
	body := dom.NewElement("body")
	pane := body.AppendChild(dom.NewElement("div", "pane"))

	require.NoError(t, h.engine.Start())
	h.doc.scroll(pane, 50, 0)
	require.NoError(t, h.engine.Stop())
	assert.Zero(t, h.clock.Pending())

	h.clock.Advance(time.Second)
	assert.Empty(t, h.engine.Actions())
	msg, _ := h.sender.last(channel.TypeTestGenerated)
	assert.Empty(t, msg.TestData.Actions)
}

func TestEngine_DisconnectedStopGoesToFallbackVerbatim(t *testing.T) {
	repo := state.NewMemoryRepository()
	store := state.NewFallback(repo, nil)
	ch := channel.New(channel.DefaultConfig(), channel.WithFallback(store))
	doc := newFakeDocument(testURL)
	mock := clock.NewMock(time.UnixMilli(1700000000000))
	engine := NewEngine(DefaultEngineConfig(), doc, ch, store, WithEngineClock(mock))
	ch.SetController(engine)

	body := dom.NewElement("body")
	form := body.AppendChild(dom.NewElement("form", "login"))
	user := form.AppendChild(dom.NewElement("input", "user"))
	submit := form.AppendChild(dom.NewElement("button", "submit"))

	require.NoError(t, engine.Start())
	id := engine.SessionID()
	doc.input(user, "alice")
	mock.Advance(time.Second)
	doc.click(submit, "Sign in")
	actions := engine.Actions()
	require.Len(t, actions, 2)

	require.NoError(t, engine.Stop())
	assert.Equal(t, channel.Disconnected, ch.State())

	want := domain.Session{
		ID:        id,
		OriginURL: testURL,
		Actions:   actions,
		StartedAt: 1700000000000,
		Title:     "Fake Page",
		UserAgent: "fake-agent",
		Viewport:  domain.Viewport{Width: 1024, Height: 768},
	}
	got, err := store.LastSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("fallback session mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ".login .user", got.Actions[0].Selector)
	assert.Equal(t, ".login .submit", got.Actions[1].Selector)
}

func TestEngine_HandlerFaultIsContained(t *testing.T) {
	h := newHarness(t, WithEngineLogger(panicLogger{}))
	_, button, _ := scenarioTree()

	require.NoError(t, h.engine.Start())
	assert.NotPanics(t, func() { h.doc.click(button, "boom") })

	// The lock was released: the engine still works.
	assert.True(t, h.engine.IsRecording())
	require.NoError(t, h.engine.Stop())
}

func TestEngine_IneligiblePage(t *testing.T) {
	h := newHarness(t)
	h.doc.url = "chrome://settings"

	err := h.engine.Start()
	require.ErrorIs(t, err, domain.ErrPageIneligible)
	assert.False(t, h.engine.IsRecording())
	assert.Zero(t, h.doc.count(ports.EventClick))
	assert.Empty(t, h.sender.types())
}

func TestEngine_KeyboardShortcutToggles(t *testing.T) {
	h := newHarness(t)
	h.engine.Init()
	assert.Equal(t, 1, h.doc.count(ports.EventKeyDown))

	h.doc.key("e", false, false, false)
	h.doc.key("E", true, false, false)
	assert.False(t, h.engine.IsRecording())

	h.doc.key("E", true, false, true)
	assert.True(t, h.engine.IsRecording())

	h.doc.key("r", false, true, true)
	assert.False(t, h.engine.IsRecording())

	h.doc.key("x", true, false, true)
	assert.False(t, h.engine.IsRecording())
}

func TestEngine_ResumeAfterReload(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.SetRecording(context.Background(), true))

	h.engine.Init()
	assert.False(t, h.engine.IsRecording())

	h.clock.Advance(DefaultResumeDelay - time.Millisecond)
	assert.False(t, h.engine.IsRecording())
	h.clock.Advance(time.Millisecond)
	assert.True(t, h.engine.IsRecording())
}

func TestEngine_NoResumeWhenFlagUnset(t *testing.T) {
	h := newHarness(t)
	h.engine.Init()
	h.clock.Advance(time.Minute)
	assert.False(t, h.engine.IsRecording())
}

func TestEngine_UnloadKeepsFlagAndCancelsResume(t *testing.T) {
	h := newHarness(t)
	_, button, _ := scenarioTree()

	require.NoError(t, h.engine.Start())
	h.doc.click(button, "Pay")
	h.engine.Unload()

	assert.False(t, h.engine.IsRecording())
	assert.True(t, h.store.Recording(context.Background()))
	saved, err := h.store.LastSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Len(t, saved.Actions, 1)
	assert.Zero(t, h.doc.count(ports.EventKeyDown))

	require.ErrorIs(t, h.engine.Start(), domain.ErrPageUnloaded)

	// A resume scheduled before unload never fires.
	h2 := newHarness(t)
	require.NoError(t, h2.store.SetRecording(context.Background(), true))
	h2.engine.Init()
	h2.engine.Unload()
	assert.Zero(t, h2.clock.Pending())
	assert.False(t, h2.engine.IsRecording())
}

func TestEngine_ControllerCommands(t *testing.T) {
	h := newHarness(t)

	h.engine.StartRecording()
	url, recording := h.engine.Status()
	assert.Equal(t, testURL, url)
	assert.True(t, recording)

	h.engine.StopRecording()
	_, recording = h.engine.Status()
	assert.False(t, recording)

	h.engine.SyncRecording(true)
	assert.True(t, h.store.Recording(context.Background()))
}
