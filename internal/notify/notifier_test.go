package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	name string
	err  error
	sent []string
}

func (s *stubSender) Send(ctx context.Context, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *stubSender) Name() string { return s.name }

func TestDispatchAllSenders(t *testing.T) {
	a := &stubSender{name: "telegram"}
	b := &stubSender{name: "discord"}
	n := NewNotifier([]Sender{a, b}, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Dispatch(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, a.sent)
	assert.Equal(t, []string{"hello"}, b.sent)
}

func TestDispatchContinuesPastFailure(t *testing.T) {
	a := &stubSender{name: "telegram", err: errors.New("api down")}
	b := &stubSender{name: "discord"}
	n := NewNotifier([]Sender{a, b}, slog.New(slog.DiscardHandler))

	err := n.Dispatch(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	// The failing sender does not block the healthy one.
	assert.Equal(t, []string{"hello"}, b.sent)
}

func TestDispatchNoSenders(t *testing.T) {
	n := NewNotifier(nil, slog.New(slog.DiscardHandler))
	assert.NoError(t, n.Dispatch(context.Background(), "hello"))
}
