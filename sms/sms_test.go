package sms

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogSenderDevModeLogsCode(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)), false)

	ok, err := s.SendCode(context.Background(), "+963991234567", "482913", "registration")
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, buf.String(), "482913")
	require.Contains(t, buf.String(), "+963991234567")
}

func TestLogSenderProductionModeHidesCode(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)), true)

	ok, err := s.SendCode(context.Background(), "+963991234567", "482913", "password_reset")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotContains(t, buf.String(), "482913")
	require.NotContains(t, buf.String(), "+963991234567")
	require.Contains(t, buf.String(), "password_reset")
}

func TestThrottledForwardsAndLimits(t *testing.T) {
	var calls atomic.Int32
	next := SenderFunc(func(context.Context, string, string, string) (bool, error) {
		calls.Add(1)
		return true, nil
	})
	s := NewThrottled(next, 0.001, 1)

	ok, err := s.SendCode(context.Background(), "+15550001111", "123456", "registration")
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ok, err = s.SendCode(ctx, "+15550001111", "123456", "registration")
	require.Error(t, err)
	require.False(t, ok)
	require.Equal(t, int32(1), calls.Load())
}

func TestThrottledPropagatesRefusal(t *testing.T) {
	next := SenderFunc(func(context.Context, string, string, string) (bool, error) {
		return false, nil
	})
	ok, err := NewThrottled(next, 100, 5).SendCode(context.Background(), "+15550001111", "123456", "registration")
	require.NoError(t, err)
	require.False(t, ok)
}
