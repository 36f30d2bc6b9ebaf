package config

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetDataDir(t *testing.T) {
	c := NewDefaultConfig()
	c.SetDataDir("/tmp/fs")
	assert.Equal(t, filepath.Join("/tmp/fs", DefaultBadgerFile), c.DatabaseDir)
	assert.Equal(t, filepath.Join("/tmp/fs", DefaultComponentsFile), c.ComponentsFile())

	c.DatabaseDir = "/elsewhere"
	c.SetDataDir("/tmp/other")
	assert.Equal(t, "/elsewhere", c.DatabaseDir)
}

func TestWorkspaceID(t *testing.T) {
	c := NewDefaultConfig()
	id := c.WorkspaceID()
	assert.Len(t, id, 36)
	assert.Equal(t, id, c.WorkspaceID())

	c.Workspace = "ws-1"
	assert.Equal(t, "ws-1", c.WorkspaceID())
}

func TestLogger(t *testing.T) {
	c := NewTestConfig(t, logrus.InfoLevel)
	entry := c.Logger()
	assert.Equal(t, "flowsync", entry.Data["prefix"])
	assert.Equal(t, logrus.InfoLevel, entry.Logger.Level)

	c = NewDefaultConfig()
	c.LogLevel = "warn"
	assert.Equal(t, logrus.WarnLevel, c.Logger().Logger.Level)
}

func TestDefaults(t *testing.T) {
	c := NewDefaultConfig()
	assert.Equal(t, 5, c.MaxReconnectAttempts)
	assert.Equal(t, DefaultNameDebounce, c.NameDebounce)
	assert.Equal(t, DefaultCodeDebounce, c.CodeDebounce)
	assert.Equal(t, logrus.PanicLevel, LogLevel("panic"))
	assert.Equal(t, logrus.DebugLevel, LogLevel("chatty"))
}
