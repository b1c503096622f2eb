// Package chat drives one query turn end to end: it ensures a chat exists,
// persists the user's message, runs retrieval, assembles a token-bounded
// prompt, streams the model's response through the think/answer demuxer,
// and persists the assistant's turn once the stream completes.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lavandejoey/gorag/budget"
	"github.com/lavandejoey/gorag/demux"
	"github.com/lavandejoey/gorag/gerr"
	"github.com/lavandejoey/gorag/history"
	"github.com/lavandejoey/gorag/llm"
	"github.com/lavandejoey/gorag/retrieval"
	"github.com/lavandejoey/gorag/tokencount"
)

// Event is one frame emitted to the client over the course of a turn.
// Fields are omitted from the wire encoding when not relevant to Event.
// ThinkMs and TotalMs are pointers, not plain int64 with omitempty: done
// and think_end must carry think_ms even when it is exactly 0 (no
// reasoning span), and a plain omitempty would drop a zero value along
// with an absent one. A nil pointer omits the field for event kinds that
// don't carry it at all.
type Event struct {
	Event   string   `json:"event"`
	ChatID  string   `json:"chat_id,omitempty"`
	Stage   string   `json:"stage,omitempty"`
	Docs    []DocRef `json:"docs,omitempty"`
	Token   string   `json:"token,omitempty"`
	ThinkMs *int64   `json:"think_ms,omitempty"`
	TotalMs *int64   `json:"total_ms,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func msPtr(ms int64) *int64 { return &ms }

// DocRef is one retrieved snippet surfaced in a "rag" event.
type DocRef struct {
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
}

const maxRAGSnippetChars = 800

// ModelParams are the generation parameters for a turn. Name, Temperature
// and MaxNewTokens are sent with every request; TopP is carried here but is
// not sent to the provider (llm.ChatRequest has no top-p field).
type ModelParams struct {
	Name         string
	Temperature  float64
	TopP         float64
	MaxNewTokens int
}

// Config wires an Orchestrator's dependencies and tunables.
type Config struct {
	TopK   int
	Model  ModelParams
	Limits budget.Limits
}

// Orchestrator runs the Init→EnsureChat→PersistUser→Retrieve→BuildPrompt→
// Stream→Finalize→Done state machine for one turn at a time.
type Orchestrator struct {
	cfg       Config
	history   *history.Store
	retrieval *retrieval.Pipeline
	provider  llm.Provider
	counter   *tokencount.Counter
}

// New constructs an Orchestrator from its dependencies.
func New(cfg Config, h *history.Store, r *retrieval.Pipeline, p llm.Provider, counter *tokencount.Counter) *Orchestrator {
	return &Orchestrator{cfg: cfg, history: h, retrieval: r, provider: p, counter: counter}
}

// Run executes one turn. chatID may be empty, in which case a new chat is
// allocated and a chat_created event precedes everything else. emit is
// called synchronously and in event order; it must not block indefinitely,
// since the transport layer is expected to drain it as fast as the
// connection allows. Run returns once the stream has been flushed,
// persisted, and a terminal done/error event has been emitted — or, if ctx
// is canceled first, once the in-flight work has unwound; cancellation
// never emits a terminal event and never persists the assistant turn.
func (o *Orchestrator) Run(ctx context.Context, chatID, message string, emit func(Event)) error {
	t0 := time.Now()

	chatID, err := o.ensureChat(ctx, chatID, message, emit)
	if err != nil {
		o.emitError(ctx, emit, err)
		return err
	}

	if err := o.history.AddMessage(ctx, chatID, "user", message); err != nil {
		werr := fmt.Errorf("persisting user turn: %w", err)
		o.emitError(ctx, emit, werr)
		return werr
	}

	emit(Event{Event: "stage", Stage: "retrieval"})
	snippets, err := o.retrieval.Retrieve(ctx, message, o.cfg.TopK)
	if err != nil {
		werr := fmt.Errorf("retrieval: %w", err)
		o.emitError(ctx, emit, werr)
		return werr
	}

	docs := make([]DocRef, 0, len(snippets))
	evidence := make([]string, 0, len(snippets))
	for _, s := range snippets {
		text := s.Text
		if len(text) > maxRAGSnippetChars {
			text = text[:maxRAGSnippetChars]
		}
		docs = append(docs, DocRef{Path: s.Path, Score: s.Score, ChunkID: s.ChunkID, Text: text})
		evidence = append(evidence, s.Text)
	}
	emit(Event{Event: "rag", Docs: docs})

	if ctx.Err() != nil {
		return ctx.Err()
	}

	prompt, err := o.buildPrompt(ctx, chatID, message, evidence)
	if err != nil {
		werr := fmt.Errorf("building prompt: %w", err)
		o.emitError(ctx, emit, werr)
		return werr
	}

	emit(Event{Event: "stage", Stage: "generation"})

	answer, thinkMs, err := o.stream(ctx, prompt, emit)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.emitError(ctx, emit, err)
		return err
	}

	if strings.TrimSpace(answer) == "" {
		werr := fmt.Errorf("%w: empty final answer", gerr.ErrGenerationFailed)
		o.emitError(ctx, emit, werr)
		return werr
	}

	if err := o.history.AddMessage(ctx, chatID, "assistant", answer); err != nil {
		werr := fmt.Errorf("persisting assistant turn: %w", err)
		o.emitError(ctx, emit, werr)
		return werr
	}

	emit(Event{
		Event:   "done",
		ChatID:  chatID,
		ThinkMs: msPtr(thinkMs),
		TotalMs: msPtr(time.Since(t0).Milliseconds()),
	})
	return nil
}

// emitError emits the terminal error event, unless ctx has been canceled:
// a canceled turn ends without one.
func (o *Orchestrator) emitError(ctx context.Context, emit func(Event), err error) {
	if ctx.Err() != nil {
		return
	}
	emit(Event{Event: "error", Error: err.Error()})
}

// ensureChat allocates a new chat when chatID is empty, emitting
// chat_created, or confirms an existing chat row otherwise.
func (o *Orchestrator) ensureChat(ctx context.Context, chatID, message string, emit func(Event)) (string, error) {
	if chatID == "" {
		id, err := o.history.CreateChat(ctx, message)
		if err != nil {
			return "", fmt.Errorf("creating chat: %w", err)
		}
		emit(Event{Event: "chat_created", ChatID: id})
		return id, nil
	}
	if err := o.history.EnsureChat(ctx, chatID, message); err != nil {
		return "", fmt.Errorf("ensuring chat: %w", err)
	}
	return chatID, nil
}

// stream opens an LM stream over prompt, demuxes think/answer content as it
// arrives, emits the corresponding token events, and returns the assembled
// answer along with how long the model spent in its thinking span.
func (o *Orchestrator) stream(ctx context.Context, prompt string, emit func(Event)) (answer string, thinkMs int64, err error) {
	req := llm.ChatRequest{
		Model:       o.cfg.Model.Name,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: o.cfg.Model.Temperature,
		MaxTokens:   o.cfg.Model.MaxNewTokens,
	}

	chunks, err := o.provider.StreamChat(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("opening LM stream: %w", err)
	}

	var dm demux.Demuxer
	var out strings.Builder
	var thinkStarted, thinkEnded bool
	var thinkT0 time.Time

	handle := func(think, ans string) {
		if think != "" {
			if !thinkStarted {
				thinkStarted = true
				thinkT0 = time.Now()
				emit(Event{Event: "think_start"})
			}
			emit(Event{Event: "think_token", Token: think})
		}
		if ans != "" {
			if thinkStarted && !thinkEnded {
				thinkEnded = true
				thinkMs = time.Since(thinkT0).Milliseconds()
				emit(Event{Event: "think_end", ThinkMs: msPtr(thinkMs)})
			}
			out.WriteString(ans)
			emit(Event{Event: "answer_token", Token: ans})
		}
	}

	for chunk := range chunks {
		if chunk.Err != nil {
			return "", 0, fmt.Errorf("LM stream: %w", chunk.Err)
		}
		think, ans := dm.Feed(chunk.Content)
		handle(think, ans)
	}
	if ctx.Err() != nil {
		return "", 0, ctx.Err()
	}

	think, ans := dm.Flush()
	handle(think, ans)

	if thinkStarted && !thinkEnded {
		thinkMs = time.Since(thinkT0).Milliseconds()
		emit(Event{Event: "think_end", ThinkMs: msPtr(thinkMs)})
	}

	return out.String(), thinkMs, nil
}

const promptInstructions = `## Instructions
- Answer only using the query and the context above.
- If the query names an ambiguous entity the context doesn't disambiguate, ask one short clarifying question instead of guessing.
- If you need to reason before answering, wrap that reasoning in <think>...</think> and put only the final answer after it.
`

// buildPrompt assembles the labelled sections the model is given: rolling
// summary, recent turns, and retrieved evidence, each trimmed to fit the
// configured token window, followed by the user's query and a fixed
// instruction block.
func (o *Orchestrator) buildPrompt(ctx context.Context, chatID, query string, evidence []string) (string, error) {
	summary := ""
	if sum, err := o.history.GetSummary(ctx, chatID); err != nil {
		return "", fmt.Errorf("loading summary: %w", err)
	} else if sum != nil {
		summary = sum.Summary
	}

	// GetMessages returns the oldest rows first, so the whole chat is read
	// (SQLite treats a negative LIMIT as unbounded) and only the newest
	// RecentMessageLimit are kept below.
	msgs, err := o.history.GetMessages(ctx, chatID, -1)
	if err != nil {
		return "", fmt.Errorf("loading recent messages: %w", err)
	}
	recent := make([]string, 0, len(msgs))
	for _, m := range msgs {
		recent = append(recent, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	if len(recent) > o.cfg.Limits.RecentMessageLimit {
		recent = recent[len(recent)-o.cfg.Limits.RecentMessageLimit:]
	}

	b := budget.Orchestrate(o.counter, query, summary, evidence, nil, recent, o.cfg.Limits)

	var sb strings.Builder
	sb.WriteString("## Summary\n")
	sb.WriteString(b.Summary)
	sb.WriteString("\n\n## Conversation (recent)\n")
	sb.WriteString(strings.Join(b.RecentMessages, "\n"))
	sb.WriteString("\n\n## Evidence (citations/snippets)\n")
	sb.WriteString(strings.Join(b.Evidence, "\n"))
	sb.WriteString("\n\n## User Query\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	sb.WriteString(promptInstructions)

	return sb.String(), nil
}
