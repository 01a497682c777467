package core

import (
	"context"
	"errors"
	"sync"
)

// stubEmbedder maps text to a two-dimensional vector: (length, number of 'a's + 1).
// Like the hosted embedding APIs it rejects empty content.
type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
	// failOn, when set, makes Embed fail for the texts it matches.
	failOn func(text string) bool
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if text == "" {
		return nil, errEmptyContent
	}
	if e.failOn != nil && e.failOn(text) {
		return nil, errModelDown
	}
	var as float32
	for _, r := range text {
		if r == 'a' {
			as++
		}
	}
	return []float32{float32(len(text)), as + 1}, nil
}

func (e *stubEmbedder) ModelName() string { return "stub-embedding" }

func (e *stubEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type stubGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

type stubRetriever struct {
	mu      sync.Mutex
	chunks  []string
	err     error
	queries []string
}

func (r *stubRetriever) Search(_ context.Context, query string, _ int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	return r.chunks, nil
}

// mapStates is an in-memory StateStore.
type mapStates struct {
	mu      sync.Mutex
	states  map[string]State
	saveErr error
}

func newMapStates() *mapStates {
	return &mapStates{states: map[string]State{}}
}

func (m *mapStates) Load(_ context.Context, id string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id], nil
}

func (m *mapStates) Save(_ context.Context, id string, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[id] = s
	return nil
}

var (
	errModelDown    = errors.New("model unavailable")
	errEmptyContent = errors.New("400: content must not be empty")
)
