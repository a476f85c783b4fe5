package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmhostd/internal/pool"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

func newTestPool(t *testing.T, models ...types.Model) *pool.Manager {
	t.Helper()
	return pool.New(models, pool.Config{}, nil)
}

// A task with a boolean biaser must always finish as exactly "true" or
// "false", terminated by the grammar's own forced end-of-text rather than
// by max_tokens or a stop sequence.
func TestRunner_Complete_BooleanBiaser(t *testing.T) {
	p := newTestPool(t, types.Model{Key: "m", Architecture: "mock"})
	r := New(p, []types.Task{{
		Name:     "is-it-true",
		ModelKey: "m",
		Biaser:   &types.BiaserSchema{Type: "boolean"},
	}}, nil)

	res, err := r.Complete(context.Background(), "is-it-true", "well?", nil)
	require.NoError(t, err)
	assert.Equal(t, types.StopEndOfText, res.Reason)
	assert.Contains(t, []string{"true", "false"}, res.Text)
}

// A task with an object schema must finish holding its required field,
// and never emit the postfix or memory separator as literal output.
func TestRunner_Complete_ObjectBiaser(t *testing.T) {
	p := newTestPool(t, types.Model{Key: "m", Architecture: "mock"})
	r := New(p, []types.Task{{
		Name:     "cars",
		ModelKey: "m",
		Biaser: &types.BiaserSchema{
			Type:     "object",
			Required: []string{"make"},
			Properties: map[string]*types.BiaserSchema{
				"make": {Type: "string", Enum: []string{"ford", "audi"}},
			},
			Compact: true,
		},
	}}, nil)

	res, err := r.Complete(context.Background(), "cars", "name a car", nil)
	require.NoError(t, err)
	assert.Equal(t, types.StopEndOfText, res.Reason)
	assert.Contains(t, res.Text, `"make"`)
}

// A free-running task with no biaser must stop once max_tokens is hit:
// with max_tokens=3 the mock session is still echoing its prompt and
// fixed tail, well before it would reach its own end-of-text token.
func TestRunner_Complete_StopsAtMaxTokens(t *testing.T) {
	p := newTestPool(t, types.Model{Key: "m", Architecture: "mock", ContextSize: 4096})
	r := New(p, []types.Task{{
		Name:      "free",
		ModelKey:  "m",
		MaxTokens: 3,
	}}, nil)

	res, err := r.Complete(context.Background(), "free", "go", nil)
	require.NoError(t, err)
	assert.Equal(t, types.StopMaxTokens, res.Reason)
	assert.NotEmpty(t, res.Text)
}

// A configured private token must never appear in emitted output, even
// though the mock session echoes whatever it was fed.
func TestRunner_Complete_BuffersPrivateTokens(t *testing.T) {
	p := newTestPool(t, types.Model{Key: "m", Architecture: "mock", ContextSize: 4096})
	r := New(p, []types.Task{{
		Name:          "secretive",
		ModelKey:      "m",
		Prefix:        "SECRET",
		MaxTokens:     20,
		PrivateTokens: []string{"SECRET"},
	}}, nil)

	res, err := r.Complete(context.Background(), "secretive", "hi", nil)
	require.NoError(t, err)
	assert.NotContains(t, res.Text, "SECRET")
}

// Multi-turn chat must accumulate context across turns: the session's
// consumed token count after a second turn must exceed what it was right
// after the first, since nothing resets the session between ChatTurn
// calls the way a fresh Complete would.
func TestRunner_Chat_AccumulatesContextAcrossTurns(t *testing.T) {
	p := newTestPool(t, types.Model{Key: "m", Architecture: "mock", ContextSize: 4096})
	r := New(p, []types.Task{{
		Name:      "chat",
		ModelKey:  "m",
		Prelude:   "You are a helpful assistant.",
		MaxTokens: 2,
	}}, nil)

	cs, err := r.OpenChat(context.Background(), "chat")
	require.NoError(t, err)
	defer r.CloseChat(cs.ID)

	_, err = r.ChatTurn(context.Background(), cs.ID, "first turn", nil, nil)
	require.NoError(t, err)
	usedAfterFirst := cs.handle.Session().ContextUsed()

	_, err = r.ChatTurn(context.Background(), cs.ID, "second turn", nil, nil)
	require.NoError(t, err)
	usedAfterSecond := cs.handle.Session().ContextUsed()

	assert.Greater(t, usedAfterSecond, usedAfterFirst, "second turn must build on the first turn's context")
}

// A second caller against a model with a single session slot must see
// errs.Busy once its own context deadline expires while waiting, rather
// than blocking forever or getting some other error.
func TestRunner_Complete_BusyWhenSessionSlotIsHeld(t *testing.T) {
	p := newTestPool(t, types.Model{Key: "m", Architecture: "mock", Sessions: 1, ContextSize: 4096})
	r := New(p, []types.Task{{
		Name:      "solo",
		ModelKey:  "m",
		MaxTokens: 50,
	}}, nil)

	held, err := p.Acquire(context.Background(), "m")
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = r.Complete(ctx, "solo", "go", nil)
	require.Error(t, err)
	assert.True(t, errs.IsBusy(err), "expected a busy error, got %v", err)
}

// Stream must propagate an error returned from onToken out of Stream
// itself, and the failure must count against the task's error counter.
func TestRunner_Stream_PropagatesOnTokenError(t *testing.T) {
	p := newTestPool(t, types.Model{Key: "m", Architecture: "mock", ContextSize: 4096})
	r := New(p, []types.Task{{
		Name:      "streamed",
		ModelKey:  "m",
		MaxTokens: 20,
	}}, nil)

	sentinel := errors.New("caller hung up")
	seen := 0
	_, err := r.Stream(context.Background(), "streamed", "go", nil, func(string) error {
		seen++
		return sentinel
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, seen)

	stats := r.Stats()["streamed"]
	assert.Equal(t, uint64(1), stats.ErrorsTotal)
}
