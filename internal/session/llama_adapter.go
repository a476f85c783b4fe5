//go:build llama_cgo

package session

import (
	"context"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"llmhostd/internal/tokenizer"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

// llamaBuilt reports, through Built, whether this binary was compiled
// with the real llama.cpp runtime linked in.
var llamaBuilt = true

// LlamaAdapter starts sessions backed by a loaded go-llama.cpp model. It
// is only compiled into binaries built with -tags llama_cgo; default
// builds get the dependency-unavailable stub in llama_stub.go instead,
// mirroring the teacher's adapter_llama.go / adapter_llama_stub.go
// split for its own CGO runtime.
type LlamaAdapter struct{}

func NewLlamaAdapter() Adapter { return &LlamaAdapter{} }

func (a *LlamaAdapter) Start(_ context.Context, model types.Model) (Session, error) {
	if strings.TrimSpace(model.Path) == "" {
		return nil, errs.ModelLoadFailed(model.Key, "model path is empty")
	}
	opts := []llama.ModelOption{
		llama.SetContext(orDefault(model.ContextSize, 2048)),
		llama.EnableEmbeddings,
	}
	m, err := llama.New(model.Path, opts...)
	if err != nil {
		return nil, errs.ModelLoadFailed(model.Key, err.Error())
	}
	limit := orDefault(model.ContextSize, 2048)
	return &llamaCGOSession{
		model:    m,
		modelKey: model.Key,
		threads:  orDefault(model.ThreadsPerSession, 8),
		sampler:  model.DefaultSampler,
		vocab:    tokenizer.NewByteVocab(),
		limit:    limit,
	}, nil
}

// llamaCGOSession drives go-llama.cpp one token at a time. go-llama.cpp's
// Predict call takes a full prompt and a token count, not a logit-bias
// hook, so there is no way to enforce a BiasMap exactly through this
// binding: SampleNext approximates it by re-predicting up to
// maxBiasRetries times whenever the sampled token falls outside the
// bias map, and surfaces errs.BiaserStuck if it never lands on an
// admissible token. See DESIGN.md for why this approximation, rather
// than a different runtime, was kept.
type llamaCGOSession struct {
	mu       sync.Mutex
	model    *llama.LLama
	modelKey string
	threads  int
	sampler  types.SamplerChain
	vocab    *tokenizer.ByteVocab
	limit    int
	prompt   strings.Builder
	used     int
}

const maxBiasRetries = 8

func (s *llamaCGOSession) Feed(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt.WriteString(text)
	s.used += len(s.vocab.Encode(text))
	return nil
}

func (s *llamaCGOSession) SampleNext(ctx context.Context, bias types.BiasMap) (tokenizer.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.used >= s.limit {
		return 0, errs.ContextFull(s.modelKey)
	}

	for attempt := 0; attempt < maxBiasRetries; attempt++ {
		piece, err := s.predictOne(ctx)
		if err != nil {
			return 0, err
		}
		ids := s.vocab.Encode(piece)
		if len(ids) == 0 {
			continue
		}
		id := ids[0]
		if bias == nil || admissible(bias, id) {
			s.prompt.WriteString(piece)
			s.used++
			return id, nil
		}
	}
	return 0, errs.BiaserStuck("llama adapter exhausted retries against bias map")
}

func admissible(bias types.BiasMap, id tokenizer.ID) bool {
	b, ok := bias[int32(id)]
	return ok && b != types.Forbidden
}

func (s *llamaCGOSession) predictOne(ctx context.Context) (string, error) {
	var piece strings.Builder
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		piece.WriteString(tok)
		return false // one token per Predict call
	})
	po := []llama.PredictOption{
		llama.SetTokens(1),
		llama.SetThreads(s.threads),
		llama.SetTopK(s.sampler.TopK),
		llama.SetTopP(s.sampler.TopP),
		llama.SetTemperature(s.sampler.Temperature),
		llama.SetPenalty(s.sampler.RepeatPenalty),
	}
	if _, err := s.model.Predict(s.prompt.String(), po...); err != nil {
		if ctx.Err() != nil {
			return "", errs.Cancelled()
		}
		return "", errs.Internal("llama predict: %v", err)
	}
	return piece.String(), nil
}

func (s *llamaCGOSession) Decode(id tokenizer.ID) []byte { return s.vocab.DecodeToken(id) }

func (s *llamaCGOSession) Tokenizer() tokenizer.View { return s.vocab }

func (s *llamaCGOSession) ContextUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

func (s *llamaCGOSession) ContextLimit() int { return s.limit }

func (s *llamaCGOSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt.Reset()
	s.used = 0
	return nil
}

func (s *llamaCGOSession) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.model.Embeddings(text)
	if err != nil {
		return nil, errs.Internal("llama embeddings: %v", err)
	}
	return v, nil
}

func (s *llamaCGOSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
