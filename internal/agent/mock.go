package agent

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
)

// MockGenerator returns canned responses for testing. Responses are matched by
// substring against the system prompt, falling back to echoing the user text.
type MockGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []GenerateRequest
	err       error
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{responses: make(map[string]string)}
}

// Respond registers a canned response for any request whose system prompt
// contains the given marker.
func (m *MockGenerator) Respond(marker, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[marker] = response
}

// Fail makes every subsequent call return err.
func (m *MockGenerator) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if m.err != nil {
		return "", m.err
	}

	for marker, response := range m.responses {
		if strings.Contains(req.SystemPrompt, marker) || strings.Contains(req.UserText, marker) {
			return response, nil
		}
	}
	return req.UserText, nil
}

// Calls returns a copy of every request seen so far.
func (m *MockGenerator) Calls() []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockEmbedder produces deterministic vectors derived from the text content,
// so identical texts embed identically and different texts usually do not.
type MockEmbedder struct {
	Dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 8
	}
	return &MockEmbedder{Dimension: dimension}
}

func (m *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.Dimension)
		for j := range vec {
			h := fnv.New32a()
			fmt.Fprintf(h, "%d:%s", j, text)
			vec[j] = float32(h.Sum32()%1000)/1000.0 + 0.001
		}
		out[i] = vec
	}
	return out, nil
}
