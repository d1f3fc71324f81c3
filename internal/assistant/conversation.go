// Package assistant implements the Vidya Mitra tutoring conversation: a
// language, mode and chat setup flow in front of an external generation
// service, plus the monthly performance analysis offered to teachers.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/vidyavistaar/portal/internal/i18n"
	"github.com/vidyavistaar/portal/internal/llm"
	"github.com/vidyavistaar/portal/internal/llm/prompts"
	"github.com/vidyavistaar/portal/internal/model"
)

// Step is a conversation's setup stage.
type Step string

const (
	StepLanguage Step = "language-select"
	StepMode     Step = "mode-select"
	StepChat     Step = "chat"
)

// Mode is a teacher's choice between free chat and report analysis.
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeAnalysis Mode = "analysis"
)

// Sender marks who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one turn of the conversation.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Catalog supplies the prompt scope and the analysis data.
type Catalog interface {
	ListSubjects(ctx context.Context, stream model.Stream) ([]model.Subject, error)
	ListCareerPaths(ctx context.Context) ([]model.CareerPath, error)
	ExportPerformance(ctx context.Context) (model.PerformanceSnapshot, error)
}

// Snapshot is a copy of a conversation's state.
type Snapshot struct {
	ID               string         `json:"id"`
	Role             model.UserRole `json:"role"`
	Step             Step           `json:"step"`
	Language         model.Language `json:"language,omitempty"`
	Mode             Mode           `json:"mode,omitempty"`
	Messages         []Message      `json:"messages"`
	Loading          bool           `json:"loading"`
	AnalysisComplete bool           `json:"analysis_complete"`
}

// Conversation is one user's assistant session. At most one generation call
// is outstanding at a time; history only grows until Reset.
type Conversation struct {
	id      string
	ownerID string
	role    model.UserRole
	gen     llm.Generator
	catalog Catalog

	mu               sync.Mutex
	step             Step
	language         model.Language
	mode             Mode
	messages         []Message
	loading          bool
	analysisComplete bool
	generation       uint64
	cancel           context.CancelFunc
}

// NewConversation starts a conversation at language selection.
func NewConversation(id, ownerID string, role model.UserRole, gen llm.Generator, catalog Catalog) *Conversation {
	return &Conversation{
		id:      id,
		ownerID: ownerID,
		role:    role,
		gen:     gen,
		catalog: catalog,
		step:    StepLanguage,
	}
}

// ID returns the conversation id.
func (c *Conversation) ID() string { return c.id }

// OwnerID returns the id of the user the conversation belongs to.
func (c *Conversation) OwnerID() string { return c.ownerID }

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() Snapshot {
	return Snapshot{
		ID:               c.id,
		Role:             c.role,
		Step:             c.step,
		Language:         c.language,
		Mode:             c.mode,
		Messages:         append([]Message{}, c.messages...),
		Loading:          c.loading,
		AnalysisComplete: c.analysisComplete,
	}
}

// SelectLanguage fixes the reply language. Teachers move on to mode
// selection; everyone else goes straight to chat with a welcome message.
func (c *Conversation) SelectLanguage(lang model.Language) (Snapshot, error) {
	if !lang.Valid() {
		return Snapshot{}, model.NewValidationError("language", "must be english or punjabi")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepLanguage {
		return Snapshot{}, model.ErrInvalidStep
	}
	c.language = lang
	if c.role == model.UserRoleTeacher {
		c.step = StepMode
		return c.snapshotLocked(), nil
	}
	c.step = StepChat
	c.messages = []Message{{Sender: SenderBot, Text: i18n.In(lang, welcomeID(c.role))}}
	return c.snapshotLocked(), nil
}

func welcomeID(role model.UserRole) string {
	switch role {
	case model.UserRoleTeacher:
		return "AssistantWelcomeTeacher"
	case model.UserRoleAdmin:
		return "AssistantWelcomeAdmin"
	default:
		return "AssistantWelcome"
	}
}

// SelectMode is only available to teachers after choosing a language.
// Normal mode opens the chat; analysis mode runs the monthly report
// analysis before returning.
func (c *Conversation) SelectMode(ctx context.Context, mode Mode) (Snapshot, error) {
	if mode != ModeNormal && mode != ModeAnalysis {
		return Snapshot{}, model.NewValidationError("mode", "must be normal or analysis")
	}
	c.mu.Lock()
	if c.role != model.UserRoleTeacher || c.step != StepMode {
		c.mu.Unlock()
		return Snapshot{}, model.ErrInvalidStep
	}
	c.mode = mode
	c.step = StepChat
	lang := c.language
	if mode == ModeNormal {
		c.messages = []Message{{Sender: SenderBot, Text: i18n.In(lang, welcomeID(c.role))}}
		defer c.mu.Unlock()
		return c.snapshotLocked(), nil
	}

	c.messages = []Message{{Sender: SenderBot, Text: i18n.In(lang, "AssistantAnalyzing")}}
	callCtx, gen := c.beginLocked(ctx)
	c.mu.Unlock()

	reply, err := c.analyze(callCtx, lang)
	if err != nil {
		slog.Warn("report analysis failed", "conversation", c.id, "error", err)
		reply = i18n.In(lang, "AssistantReportError")
	}
	return c.finish(gen, reply, err == nil), nil
}

func (c *Conversation) analyze(ctx context.Context, lang model.Language) (string, error) {
	snap, err := c.catalog.ExportPerformance(ctx)
	if err != nil {
		return "", err
	}
	system, err := prompts.BuildAnalysisPrompt(lang)
	if err != nil {
		return "", err
	}
	return c.gen.Generate(ctx, system, Summarize(snap, lang))
}

// Send appends a user turn and the assistant's reply. A failed generation
// call becomes an apology turn rather than an error.
func (c *Conversation) Send(ctx context.Context, text string) (Snapshot, error) {
	return c.send(ctx, text, nil)
}

// SendStream is Send with the reply delivered in chunks to onDelta as it is
// generated. The reply joins the history only once complete.
func (c *Conversation) SendStream(ctx context.Context, text string, onDelta func(string) error) (Snapshot, error) {
	if onDelta == nil {
		onDelta = func(string) error { return nil }
	}
	return c.send(ctx, text, onDelta)
}

func (c *Conversation) send(ctx context.Context, text string, onDelta func(string) error) (Snapshot, error) {
	if strings.TrimSpace(text) == "" {
		return Snapshot{}, model.NewValidationError("text", "must not be empty")
	}
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return Snapshot{}, model.ErrBusy
	}
	if c.step != StepChat || c.analysisComplete {
		c.mu.Unlock()
		return Snapshot{}, model.ErrInvalidStep
	}
	lang := c.language
	c.messages = append(c.messages, Message{Sender: SenderUser, Text: text})
	callCtx, gen := c.beginLocked(ctx)
	c.mu.Unlock()

	reply, err := c.reply(callCtx, lang, text, onDelta)
	if err != nil {
		slog.Warn("assistant reply failed", "conversation", c.id, "error", err)
		reply = i18n.In(lang, "AssistantChatError")
	} else if strings.TrimSpace(reply) == "" {
		reply = i18n.In(lang, "AssistantEmptyReply")
	}
	return c.finish(gen, reply, false), nil
}

func (c *Conversation) reply(ctx context.Context, lang model.Language, text string, onDelta func(string) error) (string, error) {
	system, err := c.chatPrompt(ctx, lang)
	if err != nil {
		return "", err
	}
	user := prompts.WrapUserMessage(text)
	if onDelta == nil {
		return c.gen.Generate(ctx, system, user)
	}
	if s, ok := c.gen.(llm.Streamer); ok {
		return s.Stream(ctx, system, user, onDelta)
	}
	reply, err := c.gen.Generate(ctx, system, user)
	if err != nil {
		return "", err
	}
	return reply, onDelta(reply)
}

func (c *Conversation) chatPrompt(ctx context.Context, lang model.Language) (string, error) {
	subjects, err := c.catalog.ListSubjects(ctx, "")
	if err != nil {
		return "", err
	}
	careers, err := c.catalog.ListCareerPaths(ctx)
	if err != nil {
		return "", err
	}
	data := prompts.ChatData{
		Language: string(lang),
		Refusal:  i18n.In(lang, "AssistantRefusal"),
		Teacher:  c.role == model.UserRoleTeacher,
	}
	for _, s := range subjects {
		data.Subjects = append(data.Subjects, s.Name.En)
	}
	for _, cp := range careers {
		data.Careers = append(data.Careers, cp.Name.En)
	}
	return prompts.BuildChatPrompt(data)
}

// beginLocked marks the conversation busy and returns a cancelable context
// for the generation call along with the generation it belongs to.
func (c *Conversation) beginLocked(ctx context.Context) (context.Context, uint64) {
	callCtx, cancel := context.WithCancel(ctx)
	c.loading = true
	c.cancel = cancel
	return callCtx, c.generation
}

// finish appends the bot reply unless the conversation was reset while the
// call was running, in which case the reply is dropped.
func (c *Conversation) finish(gen uint64, reply string, analysisDone bool) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return c.snapshotLocked()
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.messages = append(c.messages, Message{Sender: SenderBot, Text: reply})
	c.loading = false
	if analysisDone {
		c.analysisComplete = true
	}
	return c.snapshotLocked()
}

// Reset clears the history and cancels any in-flight call. Teachers return
// to mode selection keeping their language; others choose a language again.
func (c *Conversation) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.messages = nil
	c.loading = false
	c.analysisComplete = false
	c.mode = ""
	if c.role == model.UserRoleTeacher && c.language != "" {
		c.step = StepMode
	} else {
		c.step = StepLanguage
		c.language = ""
	}
	return c.snapshotLocked()
}

// Close cancels any in-flight call.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false
}
