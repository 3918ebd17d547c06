package anthropic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestCreateMessage_MockClient(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	req := MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 1000,
		System:    CachedSystem("Você é um analista."),
		Messages:  []Message{{Role: "user", Content: "Classifique"}},
	}

	expected := &MessageResponse{
		ID:         "msg_123",
		Content:    []ContentBlock{{Type: "text", Text: `{"category": "Atraso na entrega"}`}},
		StopReason: "end_turn",
		Usage:      TokenUsage{InputTokens: 10, OutputTokens: 5},
	}
	mc.On("CreateMessage", ctx, req).Return(expected, nil)

	resp, err := mc.CreateMessage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, `{"category": "Atraso na entrega"}`, resp.Text())
	assert.Equal(t, int64(10), resp.Usage.InputTokens)

	mc.AssertExpectations(t)
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "{\"a\":"},
		{Type: "thinking", Text: "ignored"},
		{Type: "text", Text: "1}"},
	}}
	assert.Equal(t, `{"a":1}`, resp.Text())

	var nilResp *MessageResponse
	assert.Empty(t, nilResp.Text())
}

func TestCachedSystem(t *testing.T) {
	blocks := CachedSystem("prompt")
	require.Len(t, blocks, 1)
	assert.Equal(t, "prompt", blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "5m", blocks[0].CacheControl.TTL)
}

func TestToSDKMessages(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "Olá"},
		{Role: "assistant", Content: "Oi"},
		{Role: "other", Content: "?"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
}

func TestToSDKSystemBlocks(t *testing.T) {
	blocks := toSDKSystemBlocks([]SystemBlock{
		{Text: "plain"},
		{Text: "cached", CacheControl: &CacheControl{TTL: "1h"}},
		{Text: "default ttl", CacheControl: &CacheControl{}},
	})
	require.Len(t, blocks, 3)
	assert.Equal(t, "plain", blocks[0].Text)
	assert.Equal(t, "1h", string(blocks[1].CacheControl.TTL))
	assert.Empty(t, string(blocks[2].CacheControl.TTL))
}

func TestStatusCode_NonAPIError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(errors.New("dial tcp: refused")))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestScriptedClient(t *testing.T) {
	boom := errors.New("boom")
	sc := NewScriptedClient(
		ScriptedReply{Text: "first"},
		ScriptedReply{Err: boom},
		ScriptedReply{Text: "last"},
	)
	ctx := context.Background()

	resp, err := sc.CreateMessage(ctx, MessageRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text())

	_, err = sc.CreateMessage(ctx, MessageRequest{})
	assert.ErrorIs(t, err, boom)

	for i := 0; i < 2; i++ {
		resp, err = sc.CreateMessage(ctx, MessageRequest{})
		require.NoError(t, err)
		assert.Equal(t, "last", resp.Text())
	}
	assert.Len(t, sc.Calls(), 4)

	empty := NewScriptedClient()
	resp, err = empty.CreateMessage(ctx, MessageRequest{Model: "m"})
	require.NoError(t, err)
	assert.Empty(t, resp.Text())
}
