package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/episthema/vpnbot/internal/config"
	"github.com/episthema/vpnbot/internal/gate"
	"github.com/episthema/vpnbot/internal/session"
	"github.com/episthema/vpnbot/internal/storage"

	tele "gopkg.in/telebot.v4"
)

const adminID int64 = 900

// fakeStore keeps everything in maps; Register mirrors the real store's
// short-circuit on an already registered chat.
type fakeStore struct {
	users      map[int64]storage.User
	order      []int64
	nextID     int
	config     string
	registered int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[int64]storage.User),
		nextID: 100,
		config: storage.DefaultConfigText,
	}
}

func (s *fakeStore) LookupInternalID(_ context.Context, chatID int64) (string, bool, error) {
	u, ok := s.users[chatID]
	return u.InternalID, ok, nil
}

func (s *fakeStore) Register(_ context.Context, chatID int64, username string) (string, string, error) {
	if u, ok := s.users[chatID]; ok {
		return u.InternalID, s.config, nil
	}
	s.registered++
	id := fmt.Sprintf("VPN-%03d", s.nextID)
	s.nextID++
	s.users[chatID] = storage.User{ChatID: chatID, Username: username, InternalID: id}
	s.order = append(s.order, chatID)
	return id, s.config, nil
}

func (s *fakeStore) Stats(context.Context) (storage.Stats, error) {
	return storage.Stats{Total: len(s.users)}, nil
}

func (s *fakeStore) AllChatIDs(context.Context) ([]int64, error) {
	return append([]int64(nil), s.order...), nil
}

func (s *fakeStore) AllUsers(context.Context) ([]storage.User, error) {
	out := make([]storage.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *fakeStore) Config(context.Context) (string, error) { return s.config, nil }

func (s *fakeStore) SetConfig(_ context.Context, text string) error {
	s.config = text
	return nil
}

type fakeBot struct {
	sent []interface{}
}

func (b *fakeBot) Send(_ tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	b.sent = append(b.sent, what)
	return &tele.Message{}, nil
}

// fakeContext implements the slice of tele.Context the handlers touch.
type fakeContext struct {
	tele.Context
	user    *tele.User
	text    string
	message *tele.Message
	kv      map[string]interface{}

	sent    []string
	edits   []string
	deletes int
	editErr error
}

func newCtx(userID int64) *fakeContext {
	return &fakeContext{
		user: &tele.User{ID: userID, Username: "tester"},
		kv:   make(map[string]interface{}),
	}
}

func (c *fakeContext) withText(text string) *fakeContext {
	c.text = text
	c.message = &tele.Message{Text: text}
	return c
}

func (c *fakeContext) Sender() *tele.User      { return c.user }
func (c *fakeContext) Chat() *tele.Chat        { return &tele.Chat{ID: c.user.ID} }
func (c *fakeContext) Update() tele.Update     { return tele.Update{ID: 1} }
func (c *fakeContext) Text() string            { return c.text }
func (c *fakeContext) Message() *tele.Message  { return c.message }
func (c *fakeContext) Get(k string) interface{} { return c.kv[k] }
func (c *fakeContext) Set(k string, v interface{}) { c.kv[k] = v }

func (c *fakeContext) Send(what interface{}, _ ...interface{}) error {
	if s, ok := what.(string); ok {
		c.sent = append(c.sent, s)
	} else {
		c.sent = append(c.sent, fmt.Sprintf("%T", what))
	}
	return nil
}

func (c *fakeContext) Edit(what interface{}, _ ...interface{}) error {
	if c.editErr != nil {
		return c.editErr
	}
	if s, ok := what.(string); ok {
		c.edits = append(c.edits, s)
	}
	return nil
}

func (c *fakeContext) Delete() error {
	c.deletes++
	return nil
}

func (c *fakeContext) lastSent(t *testing.T) string {
	t.Helper()
	if len(c.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return c.sent[len(c.sent)-1]
}

func newApp(store Store) (*App, session.Manager) {
	sessions := session.NewMemoryManager()
	return New(&config.Config{}, store, sessions, gate.New([]int64{adminID})), sessions
}

func TestStartAndAgreeAssignsStableIdentifier(t *testing.T) {
	store := newFakeStore()
	app, sessions := newApp(store)

	start := newCtx(1).withText("/start")
	if err := app.handleStart(start); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := sessions.GetState(1); got != stateAwaitingAgreement {
		t.Fatalf("state after start = %q", got)
	}
	if !strings.Contains(start.lastSent(t), "rules") {
		t.Fatalf("expected agreement text, got %q", start.lastSent(t))
	}

	agree := newCtx(1)
	if err := app.handleAgree(agree); err != nil {
		t.Fatalf("agree: %v", err)
	}
	if agree.deletes != 1 {
		t.Fatalf("agreement message deletes = %d, want 1", agree.deletes)
	}
	if got := sessions.GetState(1); got != stateMainMenu {
		t.Fatalf("state after agree = %q", got)
	}
	first := agree.lastSent(t)
	if !strings.Contains(first, "VPN-100") {
		t.Fatalf("menu should carry the identifier, got %q", first)
	}

	// Pressing agree again must not register a second time.
	again := newCtx(1)
	if err := app.handleAgree(again); err != nil {
		t.Fatalf("second agree: %v", err)
	}
	if store.registered != 1 {
		t.Fatalf("registrations = %d, want 1", store.registered)
	}
	if !strings.Contains(again.lastSent(t), "VPN-100") {
		t.Fatalf("identifier changed on re-agree: %q", again.lastSent(t))
	}

	// And /start now goes straight to the menu with the same identifier.
	restart := newCtx(1).withText("/start")
	if err := app.handleStart(restart); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !strings.Contains(restart.lastSent(t), "VPN-100") {
		t.Fatalf("restart menu = %q", restart.lastSent(t))
	}
}

func TestGetConfigEditsMenuInPlace(t *testing.T) {
	store := newFakeStore()
	app, _ := newApp(store)
	_, _, _ = store.Register(context.Background(), 1, "tester")
	store.config = "server=1.2.3.4 key=abc"

	c := newCtx(1)
	if err := app.handleGetConfig(c); err != nil {
		t.Fatalf("get config: %v", err)
	}
	if len(c.edits) != 1 || c.edits[0] != "server=1.2.3.4 key=abc" {
		t.Fatalf("edits = %v", c.edits)
	}

	// When the menu message can no longer be edited, fall back to sending.
	stale := newCtx(1)
	stale.editErr = fmt.Errorf("telegram: message to edit not found")
	if err := app.handleGetConfig(stale); err != nil {
		t.Fatalf("get config fallback: %v", err)
	}
	if stale.lastSent(t) != "server=1.2.3.4 key=abc" {
		t.Fatalf("fallback send = %q", stale.lastSent(t))
	}
}

func TestGetConfigRequiresRegistration(t *testing.T) {
	app, _ := newApp(newFakeStore())
	c := newCtx(5)
	if err := app.handleGetConfig(c); err != nil {
		t.Fatalf("get config: %v", err)
	}
	if c.lastSent(t) != notRegisteredText {
		t.Fatalf("sent = %q", c.lastSent(t))
	}
}

func TestNonAdminCannotReachAdminActions(t *testing.T) {
	store := newFakeStore()
	app, sessions := newApp(store)
	reg := app.Registry()

	for _, key := range []string{cbViewUsers, cbDownloadDB, cbSetConfig, cbBroadcast} {
		h, ok := reg.GetCallback(key)
		if !ok {
			t.Fatalf("callback %q not registered", key)
		}
		c := newCtx(7)
		if err := h(c); err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		if c.lastSent(t) != accessDeniedText {
			t.Fatalf("%s sent %q, want denial", key, c.lastSent(t))
		}
	}

	if sessions.InProgress(7) {
		t.Fatal("denied callback left a session state behind")
	}
	if store.config != storage.DefaultConfigText {
		t.Fatalf("config changed by non-admin: %q", store.config)
	}
}

func TestSetConfigReplacesWholeText(t *testing.T) {
	store := newFakeStore()
	app, sessions := newApp(store)

	admin := newCtx(adminID)
	if err := app.handleSetConfigStart(admin); err != nil {
		t.Fatalf("set config start: %v", err)
	}
	if got := sessions.GetState(adminID); got != stateAwaitingNewConfig {
		t.Fatalf("state = %q", got)
	}

	// Empty input re-prompts without touching the stored text.
	blank := newCtx(adminID).withText("   ")
	if err := app.onNewConfigText(blank); err != nil {
		t.Fatalf("blank config: %v", err)
	}
	if store.config != storage.DefaultConfigText {
		t.Fatalf("blank input replaced config: %q", store.config)
	}

	input := newCtx(adminID).withText("endpoint=vpn.example.com:51820")
	if err := app.onNewConfigText(input); err != nil {
		t.Fatalf("config text: %v", err)
	}
	if store.config != "endpoint=vpn.example.com:51820" {
		t.Fatalf("config = %q", store.config)
	}
	if sessions.InProgress(adminID) {
		t.Fatal("flow should end with the session cleared")
	}
	if input.lastSent(t) != setConfigDoneText {
		t.Fatalf("confirmation = %q", input.lastSent(t))
	}
}

func TestBroadcastFlowTextOnly(t *testing.T) {
	store := newFakeStore()
	app, sessions := newApp(store)
	bot := &fakeBot{}
	app.botAPI = bot

	_, _, _ = store.Register(context.Background(), 1, "a")
	_, _, _ = store.Register(context.Background(), 2, "b")
	_, _, _ = store.Register(context.Background(), 3, "c")

	if err := app.handleBroadcastStart(newCtx(adminID)); err != nil {
		t.Fatalf("broadcast start: %v", err)
	}
	if err := app.onBroadcastText(newCtx(adminID).withText("maintenance at 22:00")); err != nil {
		t.Fatalf("broadcast text: %v", err)
	}
	if err := app.onBroadcastPhoto(newCtx(adminID).withText("/skip")); err != nil {
		t.Fatalf("skip photo: %v", err)
	}
	final := newCtx(adminID).withText("/skip")
	if err := app.onBroadcastURL(final); err != nil {
		t.Fatalf("skip url: %v", err)
	}

	if len(bot.sent) != 3 {
		t.Fatalf("deliveries = %d, want 3", len(bot.sent))
	}
	if !strings.Contains(final.lastSent(t), "3 messages sent") {
		t.Fatalf("summary = %q", final.lastSent(t))
	}
	if sessions.InProgress(adminID) {
		t.Fatal("flow should end with the session cleared")
	}
	if _, ok := sessions.GetTemp(adminID, tempBroadcastText); ok {
		t.Fatal("broadcast scratch data survived the run")
	}
}

func TestBroadcastFlowWithPhotoAndLink(t *testing.T) {
	store := newFakeStore()
	app, sessions := newApp(store)
	bot := &fakeBot{}
	app.botAPI = bot

	_, _, _ = store.Register(context.Background(), 1, "a")

	if err := app.handleBroadcastStart(newCtx(adminID)); err != nil {
		t.Fatalf("broadcast start: %v", err)
	}
	if err := app.onBroadcastText(newCtx(adminID).withText("new servers!")); err != nil {
		t.Fatalf("broadcast text: %v", err)
	}

	photo := newCtx(adminID)
	photo.message = &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "file-123"}}}
	if err := app.onBroadcastPhoto(photo); err != nil {
		t.Fatalf("photo: %v", err)
	}
	if got := sessions.GetState(adminID); got != stateAwaitingBroadcastURL {
		t.Fatalf("state after photo = %q", got)
	}

	// A non-URL reply re-prompts and stays in the same state.
	bad := newCtx(adminID).withText("not a link")
	if err := app.onBroadcastURL(bad); err != nil {
		t.Fatalf("bad url: %v", err)
	}
	if bad.lastSent(t) != broadcastBadURLText {
		t.Fatalf("bad url reply = %q", bad.lastSent(t))
	}
	if got := sessions.GetState(adminID); got != stateAwaitingBroadcastURL {
		t.Fatalf("state after bad url = %q", got)
	}

	final := newCtx(adminID).withText("https://example.com/news")
	if err := app.onBroadcastURL(final); err != nil {
		t.Fatalf("url: %v", err)
	}

	if len(bot.sent) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(bot.sent))
	}
	if _, ok := bot.sent[0].(*tele.Photo); !ok {
		t.Fatalf("delivery should be a photo, got %T", bot.sent[0])
	}
}

func TestCancelClearsAnyState(t *testing.T) {
	store := newFakeStore()
	app, sessions := newApp(store)

	// Mid-flow: the conversation ends entirely, not at the menu state.
	_ = app.handleBroadcastStart(newCtx(adminID))
	_ = app.onBroadcastText(newCtx(adminID).withText("draft"))

	cancel := newCtx(adminID).withText("/cancel")
	if err := app.handleCancel(cancel); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancel.lastSent(t) != cancelledText {
		t.Fatalf("cancel reply = %q", cancel.lastSent(t))
	}
	if sessions.InProgress(adminID) {
		t.Fatalf("state after cancel = %q", sessions.GetState(adminID))
	}
	if _, ok := sessions.GetTemp(adminID, tempBroadcastText); ok {
		t.Fatal("cancel kept scratch data")
	}

	// During onboarding it works the same way.
	_ = app.handleStart(newCtx(5).withText("/start"))
	if got := sessions.GetState(5); got != stateAwaitingAgreement {
		t.Fatalf("state after start = %q", got)
	}
	onboarding := newCtx(5).withText("/cancel")
	if err := app.handleCancel(onboarding); err != nil {
		t.Fatalf("onboarding cancel: %v", err)
	}
	if onboarding.lastSent(t) != cancelledText {
		t.Fatalf("onboarding cancel reply = %q", onboarding.lastSent(t))
	}
	if sessions.InProgress(5) {
		t.Fatalf("state after onboarding cancel = %q", sessions.GetState(5))
	}

	// An idle chat still gets the confirmation.
	idle := newCtx(6).withText("/cancel")
	if err := app.handleCancel(idle); err != nil {
		t.Fatalf("idle cancel: %v", err)
	}
	if idle.lastSent(t) != cancelledText {
		t.Fatalf("idle cancel reply = %q", idle.lastSent(t))
	}
}

func TestAdminFlowStepsRecheckRights(t *testing.T) {
	store := newFakeStore()
	app, sessions := newApp(store)
	bot := &fakeBot{}
	app.botAPI = bot
	_, _, _ = store.Register(context.Background(), 1, "a")

	const intruder int64 = 7

	steps := []struct {
		state   session.State
		handler func(tele.Context) error
	}{
		{stateAwaitingNewConfig, app.onNewConfigText},
		{stateAwaitingBroadcastText, app.onBroadcastText},
		{stateAwaitingBroadcastPhoto, app.onBroadcastPhoto},
		{stateAwaitingBroadcastURL, app.onBroadcastURL},
	}
	for _, step := range steps {
		sessions.SetState(intruder, step.state)
		c := newCtx(intruder).withText("hijack attempt")
		if err := step.handler(c); err != nil {
			t.Fatalf("%s: %v", step.state, err)
		}
		if c.lastSent(t) != accessDeniedText {
			t.Fatalf("%s replied %q, want denial", step.state, c.lastSent(t))
		}
		if sessions.InProgress(intruder) {
			t.Fatalf("%s left the session in place", step.state)
		}
	}

	if store.config != storage.DefaultConfigText {
		t.Fatalf("config changed by non-admin: %q", store.config)
	}
	if len(bot.sent) != 0 {
		t.Fatalf("non-admin triggered %d deliveries", len(bot.sent))
	}
}

func TestDeleteBroadcastIsOpenToEveryone(t *testing.T) {
	app, _ := newApp(newFakeStore())
	c := newCtx(42)
	if err := app.handleDeleteBroadcast(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if c.deletes != 1 {
		t.Fatalf("deletes = %d, want 1", c.deletes)
	}
}

func TestAdminPanelClearsSession(t *testing.T) {
	store := newFakeStore()
	app, sessions := newApp(store)

	sessions.SetState(adminID, stateAwaitingNewConfig)
	c := newCtx(adminID).withText("/admin")
	if err := app.handleAdmin(c); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if sessions.InProgress(adminID) {
		t.Fatal("admin panel should drop any in-progress flow")
	}
	if c.lastSent(t) != adminPanelText {
		t.Fatalf("panel = %q", c.lastSent(t))
	}
}

func TestViewUsersReportsTotals(t *testing.T) {
	store := newFakeStore()
	app, _ := newApp(store)
	_, _, _ = store.Register(context.Background(), 1, "a")
	_, _, _ = store.Register(context.Background(), 2, "b")

	c := newCtx(adminID)
	if err := app.handleViewUsers(c); err != nil {
		t.Fatalf("view users: %v", err)
	}
	if !strings.Contains(c.lastSent(t), "Registered users: 2") {
		t.Fatalf("stats = %q", c.lastSent(t))
	}
}
