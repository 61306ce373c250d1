package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesDailyFile(t *testing.T) {
	root := t.TempDir()
	log, err := New(root, "debug", false)
	require.NoError(t, err)
	log.Infow("hello", "k", "v")
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(filepath.Join(root, "logs", time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"hello"`)
	assert.Contains(t, string(raw), `"level":"info"`)
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	assert.Equal(t, zap.S(), FromContext(context.Background()))

	l := zap.NewNop().Sugar()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}
