package inference

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	name       string
	structured func(ctx context.Context, req Request) (json.RawMessage, error)
	completion func(ctx context.Context, req Request) (string, error)
	calls      int
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Structured(ctx context.Context, req Request) (json.RawMessage, error) {
	s.calls++
	if s.structured != nil {
		return s.structured(ctx, req)
	}
	return json.RawMessage(`{}`), nil
}

func (s *stubEngine) Completion(ctx context.Context, req Request) (string, error) {
	s.calls++
	if s.completion != nil {
		return s.completion(ctx, req)
	}
	return "", nil
}

func TestLimitedDelegates(t *testing.T) {
	inner := &stubEngine{
		name: "stub",
		structured: func(context.Context, Request) (json.RawMessage, error) {
			return json.RawMessage(`{"ok":true}`), nil
		},
		completion: func(context.Context, Request) (string, error) {
			return "free text", nil
		},
	}
	l := NewLimited(inner, 0, 0) // rps <= 0 disables limiting

	assert.Equal(t, "stub", l.Name())

	raw, err := l.Structured(context.Background(), Request{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))

	text, err := l.Completion(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "free text", text)
	assert.Equal(t, 2, inner.calls)
}

func TestLimitedPropagatesCancellation(t *testing.T) {
	inner := &stubEngine{name: "stub"}
	// burst of one; the second call has to wait a full second
	l := NewLimited(inner, 1, 1)

	_, err := l.Structured(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Structured(ctx, Request{})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestNewFromBuildersSelectsProvider(t *testing.T) {
	inner := &stubEngine{name: "stub"}
	eng, err := NewFromBuilders("  Stub ", map[string]ProviderBuilder{
		"stub": func(*slog.Logger) (Engine, error) { return inner, nil },
	}, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", eng.Name())
}

func TestNewFromBuildersUnknownProvider(t *testing.T) {
	_, err := NewFromBuilders("nope", map[string]ProviderBuilder{}, 0, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown inference provider")
}

func TestNewFromBuildersBuilderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewFromBuilders("stub", map[string]ProviderBuilder{
		"stub": func(*slog.Logger) (Engine, error) { return nil, boom },
	}, 0, 0, nil)
	assert.ErrorIs(t, err, boom)
}
