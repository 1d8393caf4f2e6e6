package main

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestEnableDebug(t *testing.T) {
	opts := &globalOptions{}
	opts.setup()
	var buf bytes.Buffer
	opts.logger.SetOutput(&buf)

	opts.log.Debugf("hidden")
	require.Empty(t, buf.String())
	require.False(t, opts.log.Debugging())

	// As done by a config file with debug = true.
	opts.enableDebug()
	require.True(t, opts.debug)
	require.Equal(t, logrus.DebugLevel, opts.logger.GetLevel())
	opts.log.Debugf("hello debug")
	require.Contains(t, buf.String(), "hello debug")
}

func TestSetupDebugFlag(t *testing.T) {
	opts := &globalOptions{debug: true}
	opts.setup()
	require.True(t, opts.log.Debugging())
	require.Equal(t, logrus.DebugLevel, opts.logger.GetLevel())
}
