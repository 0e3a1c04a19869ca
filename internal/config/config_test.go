package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfly-extras/creaper-sub003/internal/logging"
	"github.com/wildfly-extras/creaper-sub003/online"
)

const sample = `
log:
  level: debug
  to_stdout: true
  fields:
    env: lab
default: lab
servers:
  lab:
    host: wildfly.lab
    port: 19990
    username: admin
    password: secret
    timeout: 30s
  dc:
    mode: domain
    host: dc.lab
    default_profile: full
    default_host: primary
    boot_timeout: 5m
  local:
    socket: /run/wildfly/management.sock
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.ToStdout)
	assert.True(t, cfg.Log.ToStderr, "defaults survive a partial log block")
	assert.Equal(t, logging.FormatConsole, cfg.Log.Format)
	assert.Equal(t, map[string]string{"env": "lab"}, cfg.Log.Fields)
	assert.Equal(t, []string{"dc", "lab", "local"}, cfg.Names())

	lab, err := cfg.Server("")
	require.NoError(t, err)
	assert.Equal(t, "wildfly.lab", lab.Host)
	assert.Equal(t, 19990, lab.Port)
	assert.Equal(t, 30*time.Second, lab.Timeout)

	dc, err := cfg.Server("dc")
	require.NoError(t, err)
	assert.Equal(t, ModeDomain, dc.Mode)
	assert.Equal(t, 5*time.Minute, dc.BootTimeout)

	_, err = cfg.Server("nope")
	assert.ErrorIs(t, err, ErrUnknownServer)
}

func TestLoadResolvesFromEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sample)
	t.Setenv(EnvConfig, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Len(t, cfg.Servers, 3)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv("HOME", t.TempDir())
	if _, err := os.Stat(filepath.Join("/etc/creaper", FileName)); err == nil {
		t.Skip("system config present")
	}

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.Servers)

	_, err = cfg.Server("")
	assert.ErrorIs(t, err, ErrUnknownServer)
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeConfig(t, t.TempDir(), "servers: [unclosed"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveConfigPathPrefersHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvConfig, "")
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".creaper"), 0o755))
	want := writeConfig(t, filepath.Join(home, ".creaper"), sample)

	got, err := ResolveConfigPath(FileName)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestServerOptions(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), sample))
	require.NoError(t, err)

	lab, _ := cfg.Server("lab")
	opts, err := lab.Options()
	require.NoError(t, err)
	assert.False(t, opts.IsDomain())
	assert.Equal(t, "http://wildfly.lab:19990", opts.Endpoint())
	assert.Equal(t, 30*time.Second, opts.ConnectionTimeout())

	dc, _ := cfg.Server("dc")
	opts, err = dc.Options()
	require.NoError(t, err)
	assert.True(t, opts.IsDomain())
	assert.Equal(t, "full", opts.DefaultProfile())
	assert.Equal(t, "primary", opts.DefaultHost())
	assert.Equal(t, "http://dc.lab:9990", opts.Endpoint())

	local, _ := cfg.Server("local")
	opts, err = local.Options()
	require.NoError(t, err)
	assert.Equal(t, "unix:///run/wildfly/management.sock", opts.Endpoint())
}

func TestServerOptionsRejects(t *testing.T) {
	_, err := Server{Mode: "cluster"}.Options()
	assert.ErrorIs(t, err, online.ErrInvalidArgument)

	_, err = Server{DefaultProfile: "full"}.Options(online.DefaultProfile("full"))
	assert.ErrorIs(t, err, online.ErrInvalidArgument, "profiles need domain mode")

	bad := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a certificate"), 0o600))
	_, err = Server{Protocol: "https", CAFile: bad}.Options()
	assert.ErrorIs(t, err, online.ErrInvalidArgument)

	opts, err := Server{Protocol: "https", Host: "secure.lab", InsecureSkipVerify: true}.Options()
	require.NoError(t, err)
	assert.Equal(t, "https://secure.lab:9990", opts.Endpoint())
}
