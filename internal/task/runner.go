// Package task runs a named generation recipe (pkg/types.Task) against a
// leased pool.SessionHandle: it assembles the prompt, drives the
// two-phase free-then-biased generation protocol, applies stop-sequence
// and private-token filtering, and hooks memory recall/storage around
// the call. The generation mechanics are ported directly from
// poly-backend/src/session.rs's complete_actual: a free (unbiased) pass
// is fed a bias_prompt and discarded, then the real, returned pass runs
// under the task's biaser.
package task

import (
	"context"
	"strings"
	"sync"

	"llmhostd/internal/biaser"
	"llmhostd/internal/pool"
	"llmhostd/internal/session"
	"llmhostd/internal/tokenizer"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"

	"github.com/oklog/ulid/v2"
)

// MemoryEngine is the narrow slice of internal/memory the runner needs,
// kept as a local interface so this package doesn't import memory's
// storage machinery directly.
type MemoryEngine interface {
	Recall(ctx context.Context, memoryKey, query string, n int) ([]types.ScoredChunk, error)
	Remember(ctx context.Context, memoryKey, mime string, data []byte, wait bool) error
}

// Runner owns the named task registry and drives completions, streams,
// chat turns, and embeddings against it.
type Runner struct {
	mu       sync.RWMutex
	pool     *pool.Manager
	tasks    map[string]types.Task
	memory   MemoryEngine
	stats    map[string]*taskCounters
	chats    map[string]*ChatSession
	chatsMu  sync.Mutex
}

type taskCounters struct {
	mu         sync.Mutex
	completed  uint64
	tokens     uint64
	errored    uint64
}

func New(p *pool.Manager, tasks []types.Task, memory MemoryEngine) *Runner {
	reg := make(map[string]types.Task, len(tasks))
	counters := make(map[string]*taskCounters, len(tasks))
	for _, t := range tasks {
		reg[t.Name] = t
		counters[t.Name] = &taskCounters{}
	}
	return &Runner{pool: p, tasks: reg, memory: memory, stats: counters, chats: make(map[string]*ChatSession)}
}

func (r *Runner) taskByName(name string) (types.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	if !ok {
		return types.Task{}, errs.UnknownTask(name)
	}
	return t, nil
}

// Stats reports a snapshot of every task's serving counters, for the
// façade's Stats() operation.
func (r *Runner) Stats() map[string]types.TaskStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]types.TaskStats, len(r.stats))
	for name, c := range r.stats {
		c.mu.Lock()
		out[name] = types.TaskStats{
			CompletionsTotal: c.completed,
			TokensGenerated:  c.tokens,
			ErrorsTotal:      c.errored,
		}
		c.mu.Unlock()
	}
	return out
}

func (r *Runner) record(taskName string, tokens int, failed bool) {
	r.mu.RLock()
	c := r.stats[taskName]
	r.mu.RUnlock()
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if failed {
		c.errored++
		return
	}
	c.completed++
	c.tokens += uint64(tokens)
}

// Complete runs task once to completion against a freshly acquired,
// clean-context session and returns the final text, per spec.md §4.1's
// "every completion request starts from a clean context" invariant.
func (r *Runner) Complete(ctx context.Context, taskName, prompt string, overrides *types.Overrides) (types.CompletionResult, error) {
	return r.run(ctx, taskName, prompt, overrides, nil)
}

// Stream is Complete, but invokes onToken with each chunk of text as it
// is produced (after private-token buffering resolves it as safe to
// emit).
func (r *Runner) Stream(ctx context.Context, taskName, prompt string, overrides *types.Overrides, onToken func(string) error) (types.CompletionResult, error) {
	return r.run(ctx, taskName, prompt, overrides, onToken)
}

func (r *Runner) run(ctx context.Context, taskName, prompt string, overrides *types.Overrides, onToken func(string) error) (types.CompletionResult, error) {
	task, err := r.taskByName(taskName)
	if err != nil {
		return types.CompletionResult{}, err
	}

	var result types.CompletionResult
	runErr := r.pool.WithSession(ctx, task.ModelKey, func(h *pool.SessionHandle) error {
		if task.Prelude != "" {
			if err := h.Session().Feed(ctx, task.Prelude); err != nil {
				return err
			}
		}
		res, err := r.generate(ctx, h, task, prompt, overrides, onToken)
		if err != nil {
			h.Poison()
			return err
		}
		result = res
		return nil
	})

	r.record(taskName, countTokens(result.Text), runErr != nil)
	return result, runErr
}

// generate assembles the prompt (recall, prefix, user input, postfix)
// and drives the generation loop(s) for one request over an already
// leased, prelude-fed session.
func (r *Runner) generate(ctx context.Context, h *pool.SessionHandle, task types.Task, userPrompt string, overrides *types.Overrides, onToken func(string) error) (types.CompletionResult, error) {
	sess := h.Session()

	for _, tok := range task.PrivateTokens {
		if tok != "" && strings.Contains(userPrompt, tok) {
			return types.CompletionResult{}, errs.PrivateTokenInInput(tok)
		}
	}

	if task.Memorization != nil && task.Memorization.RetrieveN > 0 && r.memory != nil {
		chunks, err := r.memory.Recall(ctx, task.Memorization.MemoryKey, userPrompt, task.Memorization.RetrieveN)
		if err != nil {
			return types.CompletionResult{}, err
		}
		for _, c := range chunks {
			if err := sess.Feed(ctx, c.Payload+"\n"); err != nil {
				return types.CompletionResult{}, err
			}
		}
	}

	if task.Prefix != "" {
		if err := sess.Feed(ctx, task.Prefix); err != nil {
			return types.CompletionResult{}, err
		}
	}
	if err := sess.Feed(ctx, userPrompt); err != nil {
		return types.CompletionResult{}, err
	}
	if task.Postfix != "" {
		if err := sess.Feed(ctx, task.Postfix); err != nil {
			return types.CompletionResult{}, err
		}
	}

	maxTokens := task.MaxTokens
	if overrides != nil && overrides.MaxTokens != nil {
		maxTokens = *overrides.MaxTokens
	}

	var result types.CompletionResult
	var err error
	if task.BiasPrompt != "" {
		// Two-phase protocol: a free pass runs (and is discarded) until
		// end-of-text, then bias_prompt is fed, then the biased pass
		// that is actually returned runs.
		if _, ferr := r.generateOnce(ctx, sess, biaser.NullBiaser{}, task.StopSequences, task.PrivateTokens, maxTokens, nil); ferr != nil {
			return types.CompletionResult{}, ferr
		}
		if err := sess.Feed(ctx, task.BiasPrompt); err != nil {
			return types.CompletionResult{}, err
		}
		b, berr := r.resolveBiaser(ctx, h, task)
		if berr != nil {
			return types.CompletionResult{}, berr
		}
		result, err = r.generateOnce(ctx, sess, b, nil, task.PrivateTokens, 0, onToken)
	} else if task.Biaser != nil {
		b, berr := r.resolveBiaser(ctx, h, task)
		if berr != nil {
			return types.CompletionResult{}, berr
		}
		result, err = r.generateOnce(ctx, sess, b, nil, task.PrivateTokens, 0, onToken)
	} else {
		result, err = r.generateOnce(ctx, sess, biaser.NullBiaser{}, task.StopSequences, task.PrivateTokens, maxTokens, onToken)
	}
	if err != nil {
		return types.CompletionResult{}, err
	}

	if task.Memorization != nil && task.Memorization.StorePrompts && r.memory != nil {
		_ = r.memory.Remember(ctx, task.Memorization.MemoryKey, "text/plain", []byte(userPrompt), false)
	}

	return result, nil
}

func (r *Runner) resolveBiaser(ctx context.Context, h *pool.SessionHandle, task types.Task) (biaser.Biaser, error) {
	trie, err := r.pool.Trie(ctx, task.ModelKey)
	if err != nil {
		return nil, err
	}
	return biaser.NewJSONBiaser(task.Biaser, h.Session().Tokenizer(), trie, task.Biaser.Compact), nil
}

// generateOnce drives one sampling pass: biased if b is a *JSONBiaser,
// unconstrained if it is a NullBiaser. stopSeqs and maxTokens (when
// non-zero) bound only unbiased passes — once a grammar is driving
// generation, it alone decides when to stop, matching the original's
// "stop_sequences disabled when a biaser is configured, max_tokens only
// enforced in free mode" behavior.
func (r *Runner) generateOnce(ctx context.Context, sess session.Session, b biaser.Biaser, stopSeqs, privateTokens []string, maxTokens int, onToken func(string) error) (types.CompletionResult, error) {
	// A *sequenceSet with zero literals reports every advance as
	// trivially complete (see sequence.go), so — exactly as the
	// original guards its Option<SequenceSet> — stops/privates stay
	// nil and unconsulted unless at least one literal is configured.
	var stops, privates *sequenceSet
	if len(stopSeqs) > 0 {
		stops = newSequenceSet(stopSeqs)
	}
	if len(privateTokens) > 0 {
		privates = newSequenceSet(privateTokens)
	}
	var out strings.Builder
	var pending string
	var buf utf8Buffer
	generated := 0

	emit := func(text string) error {
		out.WriteString(text)
		if onToken != nil {
			return onToken(text)
		}
		return nil
	}

	for {
		if maxTokens > 0 && generated >= maxTokens {
			return types.CompletionResult{Text: out.String(), Reason: types.StopMaxTokens}, nil
		}

		res, err := b.Admissible()
		if err != nil {
			return types.CompletionResult{}, err
		}

		var id tokenizer.ID
		if res.Kind != biaser.All && len(res.Tokens) == 1 {
			// A forced continuation: only one token can legally come
			// next, so append it directly instead of asking the
			// sampler to guess among options that don't exist. This
			// matters most for adapters whose SampleNext has no real
			// logit-bias hook and would otherwise retry-and-check
			// against the bias map for no reason.
			id = res.Tokens[0]
		} else {
			var bias types.BiasMap
			if res.Kind != biaser.All {
				bias = toBiasMap(res.Tokens)
			}

			sampled, err := sess.SampleNext(ctx, bias)
			if err != nil {
				switch {
				case errs.IsContextFull(err):
					return types.CompletionResult{Text: out.String(), Reason: types.StopContextFull}, nil
				case errs.IsCancelled(err):
					return types.CompletionResult{Text: out.String(), Reason: types.StopCancelled}, nil
				case errs.IsBiaserStuck(err):
					return types.CompletionResult{Text: out.String(), Reason: types.StopBiaserStuck}, nil
				default:
					return types.CompletionResult{}, err
				}
			}
			id = sampled
		}

		if id == sess.Tokenizer().EOTToken() {
			if err := b.Advance(id); err != nil {
				return types.CompletionResult{}, err
			}
			return types.CompletionResult{Text: out.String(), Reason: types.StopEndOfText}, nil
		}
		if err := b.Advance(id); err != nil {
			return types.CompletionResult{}, err
		}
		generated++

		chunk := buf.push(sess.Decode(id))
		if chunk == "" {
			continue
		}

		if stops != nil && stops.advance(chunk) {
			return types.CompletionResult{Text: out.String(), Reason: types.StopSequence}, nil
		}

		if privates == nil {
			if err := emit(chunk); err != nil {
				return types.CompletionResult{}, err
			}
			continue
		}

		pending += chunk
		if privates.advance(chunk) {
			// The buffered text completed a private token: discard it
			// and reset both trackers so a repeated private token can
			// be caught again.
			pending = ""
			privates.reset()
			continue
		}
		if !privates.pending() {
			if err := emit(pending); err != nil {
				return types.CompletionResult{}, err
			}
			pending = ""
		}
	}
}

func toBiasMap(ids []tokenizer.ID) types.BiasMap {
	m := make(types.BiasMap, len(ids))
	for _, id := range ids {
		m[int32(id)] = 0
	}
	return m
}

// countTokens approximates generated-token count from output length for
// the coarse per-task counters; exact accounting happens inside
// generateOnce but isn't threaded back through CompletionResult.
func countTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(strings.Fields(text))
}

// ChatSession is a long-lived, exclusively held conversation: one
// pool.SessionHandle kept open across turns so context accumulates the
// way spec.md's chat operation requires, with its task's prelude fed
// exactly once at session creation rather than on every turn.
type ChatSession struct {
	ID       string
	TaskName string
	handle   *pool.SessionHandle
	mu       sync.Mutex
}

// OpenChat leases a session for taskName and feeds its prelude once.
func (r *Runner) OpenChat(ctx context.Context, taskName string) (*ChatSession, error) {
	task, err := r.taskByName(taskName)
	if err != nil {
		return nil, err
	}
	h, err := r.pool.Acquire(ctx, task.ModelKey)
	if err != nil {
		return nil, err
	}
	if task.Prelude != "" {
		if err := h.Session().Feed(ctx, task.Prelude); err != nil {
			h.Poison()
			h.Release()
			return nil, err
		}
	}
	cs := &ChatSession{ID: ulid.Make().String(), TaskName: taskName, handle: h}
	r.chatsMu.Lock()
	r.chats[cs.ID] = cs
	r.chatsMu.Unlock()
	return cs, nil
}

// ChatTurn runs one turn of an open chat session: prefix/user/postfix
// are fed and generated against the session's already-accumulated
// context, without re-feeding the prelude.
func (r *Runner) ChatTurn(ctx context.Context, sessionID, userText string, overrides *types.Overrides, onToken func(string) error) (types.CompletionResult, error) {
	r.chatsMu.Lock()
	cs, ok := r.chats[sessionID]
	r.chatsMu.Unlock()
	if !ok {
		return types.CompletionResult{}, errs.UnknownTask("chat session " + sessionID)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	task, err := r.taskByName(cs.TaskName)
	if err != nil {
		return types.CompletionResult{}, err
	}

	res, err := r.generate(ctx, cs.handle, task, userText, overrides, onToken)
	r.record(cs.TaskName, countTokens(res.Text), err != nil)
	if err != nil {
		cs.handle.Poison()
	}
	return res, err
}

// CloseChat releases a chat session's held handle back to the pool.
func (r *Runner) CloseChat(sessionID string) {
	r.chatsMu.Lock()
	cs, ok := r.chats[sessionID]
	if ok {
		delete(r.chats, sessionID)
	}
	r.chatsMu.Unlock()
	if ok {
		cs.handle.Release()
	}
}

// Embed runs a task's model's embedding on text directly, for the
// façade's embed operation.
func (r *Runner) Embed(ctx context.Context, taskName, text string) ([]float32, error) {
	task, err := r.taskByName(taskName)
	if err != nil {
		return nil, err
	}
	var vec []float32
	err = r.pool.WithSession(ctx, task.ModelKey, func(h *pool.SessionHandle) error {
		v, err := h.Session().Embed(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	return vec, err
}
