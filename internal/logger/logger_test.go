package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("Should return logger from context when present", func(t *testing.T) {
		expected := NewLogger(&Config{Level: InfoLevel, Output: &bytes.Buffer{}})
		ctx := ContextWithLogger(context.Background(), expected)

		assert.Equal(t, expected, FromContext(ctx))
	})

	t.Run("Should return default logger when no logger in context", func(t *testing.T) {
		l := FromContext(context.Background())

		require.NotNil(t, l)
		assert.Equal(t, GetDefault(), l)
	})

	t.Run("Should return default logger when wrong type in context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), ctxKey{}, "not a logger")

		assert.Equal(t, GetDefault(), FromContext(ctx))
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write key/value pairs in text mode", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: InfoLevel, Output: &buf})

		l.Info("invite created", "invite_id", "abc")

		assert.Contains(t, buf.String(), "invite created")
		assert.Contains(t, buf.String(), "invite_id=abc")
	})

	t.Run("Should write JSON when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})

		l.With("sindicato_id", "s1").Warn("email failed")

		assert.Contains(t, buf.String(), `"msg":"email failed"`)
		assert.Contains(t, buf.String(), `"sindicato_id":"s1"`)
	})

	t.Run("Should drop messages below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: WarnLevel, Output: &buf})

		l.Info("hidden")
		l.Debug("hidden too")

		assert.Empty(t, buf.String())
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	cases := map[LogLevel]int{
		DebugLevel:       -4,
		InfoLevel:        0,
		WarnLevel:        4,
		ErrorLevel:       8,
		LogLevel("WARN"): 4,
		LogLevel("????"): 0,
	}
	for level, want := range cases {
		assert.Equal(t, want, int(level.ToCharmlogLevel()), "level %s", level)
	}
}
