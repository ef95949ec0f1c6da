package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jathurchan/davlock/client"
	"github.com/jathurchan/davlock/config"
	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/logger"
	"github.com/jathurchan/davlock/server"
	"github.com/jathurchan/davlock/testutil"
	"github.com/jathurchan/davlock/types"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = config.Duration(2 * time.Second)
	return cfg
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults when no path", func(t *testing.T) {
		cfg, err := loadConfig("", "")
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, config.Default().Server.ListenAddress, cfg.Server.ListenAddress)
		testutil.AssertEqual(t, "info", cfg.Log.Level)
	})

	t.Run("log level override", func(t *testing.T) {
		cfg, err := loadConfig("", "debug")
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, "debug", cfg.Log.Level)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"), "")
		testutil.AssertError(t, err)
	})

	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		err := os.WriteFile(path, []byte("[storage]\ntype = \"tape\"\n"), 0o644)
		testutil.AssertNoError(t, err)

		_, err = loadConfig(path, "")
		testutil.AssertError(t, err)
		testutil.AssertContains(t, err.Error(), "unknown storage type")
	})
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "davlockd.toml")

	out, err := executeRoot(t, "init", path)
	testutil.AssertNoError(t, err)
	testutil.AssertContains(t, out, path)

	cfg, err := config.ReadFromFile(path)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, config.Default().Locks.DefaultTimeout, cfg.Locks.DefaultTimeout)

	_, err = executeRoot(t, "init", path)
	testutil.AssertError(t, err, "init must refuse to overwrite")
	testutil.AssertContains(t, err.Error(), "already exists")
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "davlockd.toml")
	_, err := executeRoot(t, "init", path)
	testutil.AssertNoError(t, err)

	t.Run("check valid", func(t *testing.T) {
		out, err := executeRoot(t, "config", "check", "--config", path)
		testutil.AssertNoError(t, err)
		testutil.AssertContains(t, out, "Configuration OK")
	})

	t.Run("check invalid", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.toml")
		err := os.WriteFile(bad, []byte("[precondition]\nbase_url = \"relative/path\"\n"), 0o644)
		testutil.AssertNoError(t, err)

		_, err = executeRoot(t, "config", "check", "--config", bad)
		testutil.AssertError(t, err)
		testutil.AssertContains(t, err.Error(), "base_url")
	})

	t.Run("show applies overrides", func(t *testing.T) {
		out, err := executeRoot(t, "config", "show", "--config", path, "--log-level", "debug")
		testutil.AssertNoError(t, err)
		testutil.AssertContains(t, out, `level = "debug"`)
		testutil.AssertContains(t, out, "listen_address")
	})
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	_, err := executeRoot(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	testutil.AssertError(t, err)
}

func TestNewDaemon_InvalidStorage(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Type = config.StorageFilesystem
	cfg.Storage.FSRoot = ""

	_, err := newDaemon(context.Background(), cfg, logger.NewNoOpLogger())
	testutil.AssertError(t, err)
	testutil.AssertContains(t, err.Error(), "entity tag source")
}

func TestDaemon_ServesLocks(t *testing.T) {
	ctx := context.Background()
	d, err := newDaemon(ctx, testConfig(), logger.NewNoOpLogger())
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, d.start(ctx))
	defer func() {
		testutil.AssertNoError(t, d.shutdown(ctx))
	}()

	c, err := client.NewLockClientBuilder([]string{d.server.Addr()}).
		WithTimeouts(2*time.Second, 2*time.Second).
		Build()
	testutil.AssertNoError(t, err)
	defer c.Close()

	l, err := c.Create(ctx, &client.CreateRequest{
		Path:    "/docs/report.txt",
		Owner:   "alice",
		Timeout: "Second-60",
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "/docs/report.txt", l.Path)
	testutil.AssertEqual(t, types.AccessExclusive, l.AccessType)
	testutil.AssertEqual(t, time.Minute, l.Timeout)

	_, err = c.Create(ctx, &client.CreateRequest{Path: "/docs/report.txt", Owner: "bob"})
	testutil.AssertErrorIs(t, err, lock.ErrLockConflict)

	ok, err := c.EvaluateIf(ctx, &client.EvaluateIfRequest{
		Path: "/docs/report.txt",
		If:   "(" + l.StateToken.CodedURL() + ")",
	})
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, ok)

	testutil.AssertNoError(t, c.Release(ctx, &client.ReleaseRequest{LockToken: l.StateToken.String(), Owner: "alice"}))
}

func TestDaemon_RunStopsOnCancel(t *testing.T) {
	d, err := newDaemon(context.Background(), testConfig(), logger.NewNoOpLogger())
	testutil.AssertNoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for d.server.State() != server.ServerStateRunning {
		if time.Now().After(deadline) {
			t.Fatal("daemon did not start in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		testutil.AssertNoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	testutil.AssertEqual(t, server.ServerStateStopped, d.server.State())
}

func TestDaemon_ShutdownBeforeStart(t *testing.T) {
	d, err := newDaemon(context.Background(), testConfig(), logger.NewNoOpLogger())
	testutil.AssertNoError(t, err)

	err = d.shutdown(context.Background())
	testutil.AssertFalse(t, errors.Is(err, server.ErrServerNotStarted))
	testutil.AssertNoError(t, err)
}
