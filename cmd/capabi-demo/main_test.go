package main

import (
	"flag"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestMain(m *testing.M) {
	logrus.SetOutput(io.Discard)
	m.Run()
}

func newTestContext(t *testing.T, flags map[string]string, bools map[string]bool) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for k, v := range flags {
		set.String(k, v, "")
	}
	for k, v := range bools {
		set.Bool(k, v, "")
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestRunProfilerRejectsBothFlags(t *testing.T) {
	ctx := newTestContext(t, nil, map[string]bool{"cpu-profiling": true, "memory-profiling": true})
	_, err := runProfiler(ctx)
	assert.Error(t, err)
}

func TestRunProfilerNoFlagsReturnsNil(t *testing.T) {
	ctx := newTestContext(t, nil, map[string]bool{"cpu-profiling": false, "memory-profiling": false})
	prof, err := runProfiler(ctx)
	require.NoError(t, err)
	assert.Nil(t, prof)
}

func TestSetupLoggingRejectsUnknownLevel(t *testing.T) {
	ctx := newTestContext(t, map[string]string{
		"log": "", "log-format": "text", "log-level": "bogus",
	}, nil)
	err := setupLogging(ctx)
	assert.Error(t, err)
}

func TestSetupLoggingAcceptsKnownLevel(t *testing.T) {
	ctx := newTestContext(t, map[string]string{
		"log": "", "log-format": "json", "log-level": "debug",
	}, nil)
	require.NoError(t, setupLogging(ctx))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}
