package anthropic

import (
	"context"
	"sync"
)

// ScriptedClient replays canned responses in order. Command tests and the
// --dry-run flag use it in place of the real API.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []ScriptedReply
	calls     []MessageRequest
}

// ScriptedReply is one canned CreateMessage result.
type ScriptedReply struct {
	Text string
	Err  error
}

// NewScriptedClient returns a client that answers calls with replies in
// order, repeating the last one once the script runs out.
func NewScriptedClient(replies ...ScriptedReply) *ScriptedClient {
	return &ScriptedClient{responses: replies}
}

// CreateMessage implements Client.
func (s *ScriptedClient) CreateMessage(_ context.Context, req MessageRequest) (*MessageResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)
	if len(s.responses) == 0 {
		return &MessageResponse{Model: req.Model}, nil
	}

	idx := len(s.calls) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	r := s.responses[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return &MessageResponse{
		Model:      req.Model,
		Content:    []ContentBlock{{Type: "text", Text: r.Text}},
		StopReason: "end_turn",
	}, nil
}

// Calls returns the requests received so far.
func (s *ScriptedClient) Calls() []MessageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MessageRequest(nil), s.calls...)
}
