// Package cmd provides the creaperctl subcommands. Each command builds a
// management session from the config file and the global flags, runs its
// operations and renders the results.
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/wildfly-extras/creaper-sub003/internal/config"
	"github.com/wildfly-extras/creaper-sub003/internal/logging"
	"github.com/wildfly-extras/creaper-sub003/online"
	"github.com/wildfly-extras/creaper-sub003/protocol"
)

var (
	configPath string
	serverName string
	override   config.Server
	domainMode bool
	cfg        = config.Default()
)

// BindFlags registers the global flags on root.
func BindFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "config file (default $CREAPER_CONFIG, ~/.creaper/creaper.yaml)")
	f.StringVarP(&serverName, "server", "s", "", "configured server to talk to")
	f.StringVarP(&override.Host, "host", "H", "", "management host")
	f.IntVarP(&override.Port, "port", "p", 0, "management port")
	f.StringVar(&override.Socket, "socket", "", "unix socket of a stream endpoint")
	f.StringVar(&override.Protocol, "protocol", "", "http, https or stream")
	f.StringVarP(&override.Username, "user", "u", "", "management user")
	f.StringVar(&override.Password, "password", "", "management password")
	f.BoolVar(&domainMode, "domain", false, "target is a domain controller")
	f.StringVar(&override.DefaultProfile, "profile", "", "default profile in domain mode")
	f.StringVar(&override.DefaultHost, "host-name", "", "default host in domain mode")
	f.DurationVar(&override.Timeout, "timeout", 0, "connection and request timeout")
	f.DurationVar(&override.BootTimeout, "boot-timeout", 0, "how long to wait for a reload or restart")
}

// Setup loads the config file and initializes logging.
func Setup() error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	if err := logging.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.Log.Debugf("[creaperctl] Log Config: %v", cfg.Log)
	return nil
}

// target merges the selected server profile with the flag overrides.
func target() (config.Server, error) {
	// without --server a missing default just means flags only
	srv, err := cfg.Server(serverName)
	if err != nil && serverName != "" {
		return config.Server{}, err
	}
	if override.Socket != "" {
		srv.Host, srv.Port = "", 0
		srv.Socket = override.Socket
	}
	if override.Host != "" {
		srv.Host, srv.Socket = override.Host, ""
	}
	if override.Port != 0 {
		srv.Port, srv.Socket = override.Port, ""
	}
	if domainMode {
		srv.Mode = config.ModeDomain
	}
	merge := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	merge(&srv.Protocol, override.Protocol)
	merge(&srv.Username, override.Username)
	merge(&srv.Password, override.Password)
	merge(&srv.DefaultProfile, override.DefaultProfile)
	merge(&srv.DefaultHost, override.DefaultHost)
	if override.Timeout > 0 {
		srv.Timeout = override.Timeout
	}
	if override.BootTimeout > 0 {
		srv.BootTimeout = override.BootTimeout
	}
	return srv, nil
}

// connect opens a session to the selected server.
func connect(ctx context.Context) (*online.Session, error) {
	srv, err := target()
	if err != nil {
		return nil, err
	}
	opts, err := srv.Options()
	if err != nil {
		return nil, err
	}
	logging.Log.Debugf("[creaperctl] Connecting to %s", opts.Endpoint())
	return online.Connect(ctx, opts)
}

// commandContext bounds a command by the configured boot timeout plus the
// connection timeout, so reloads have time to finish.
func commandContext(parent context.Context, opts online.Options) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, opts.BootTimeout()+opts.ConnectionTimeout()+30*time.Second)
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = text.FgHiCyan.Sprint(c)
	}
	return row
}

// printResult renders an object result as an attribute table. Other
// values are printed as they are; asJSON prints the whole response.
func printResult(out io.Writer, res *online.Result, asJSON bool) {
	if asJSON {
		fmt.Fprintln(out, res.String())
		return
	}
	if !res.IsSuccess() {
		fmt.Fprintf(out, "%s %s\n", text.FgRed.Sprint("failed:"), res.FailureDescription())
		return
	}
	value := res.Node().Get(protocol.ResultKey)
	if value.Kind() != protocol.KindObject {
		fmt.Fprintln(out, display(value))
		return
	}

	t := newTable(out)
	t.AppendHeader(header("ATTRIBUTE", "VALUE"))
	props, _ := value.Properties()
	for _, p := range props {
		v := display(p.Value)
		if len(v) > 100 {
			v = v[:97] + "..."
		}
		t.AppendRow(table.Row{p.Name, v})
	}
	t.Render()
}

// display prints strings without JSON quotes.
func display(n *protocol.Node) string {
	if n.Kind() == protocol.KindString {
		s, _ := n.AsString()
		return s
	}
	return n.String()
}
