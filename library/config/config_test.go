package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestOptions(t *testing.T) {
	var c Config
	for _, op := range []Option{
		WithLogLevel(zapcore.WarnLevel),
		WithWriteTimeout(time.Minute),
		WithStorage(StorageMemory),
	} {
		op(&c)
	}
	require.Equal(t, zapcore.WarnLevel, c.Log.LogLevel)
	require.Equal(t, time.Minute, c.Server.WriteTimeout)
	require.Equal(t, StorageMemory, c.Storage)
}

func TestValidate(t *testing.T) {
	c := Config{Storage: StorageMemory, TimeZone: "Europe/Madrid"}
	require.NoError(t, c.validate())
	loc, err := c.Location()
	require.NoError(t, err)
	require.Equal(t, "Europe/Madrid", loc.String())

	c.Storage = "sqlite"
	require.Error(t, c.validate())

	c = Config{Storage: StoragePostgres, TimeZone: "Nowhere/Atlantis"}
	require.Error(t, c.validate())
}
