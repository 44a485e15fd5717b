// Package cli builds the cobra commands behind the cipher binaries.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"otp/pkg/client"
	"otp/pkg/config"
	"otp/pkg/observability"
	"otp/pkg/protocol"
	"otp/pkg/server"
	"otp/pkg/session"
	"otp/pkg/transport"
	"otp/pkg/transports"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func (g *globalFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log.level")
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Msg: err.Error()}
	})
}

// setup loads configuration and installs the global logger.
func (g *globalFlags) setup() (*config.Config, func(), error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, func() { _ = logger.Sync() }, nil
}

func exactArgs(use string, n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return &UsageError{Msg: use}
		}
		return nil
	}
}

// parsePort accepts a decimal TCP/UDP port in 1..65535.
func parsePort(s string) (string, error) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil || p == 0 {
		return "", &UsageError{Msg: fmt.Sprintf("invalid port %q", s)}
	}
	return s, nil
}

// processTransport builds the configured transport for a standalone binary.
// Servers and clients run as separate processes, so the in-process mem
// transport can never connect them.
func processTransport(kind string) (transport.Transport, error) {
	tr, err := transports.NewByKind(kind)
	if err != nil {
		return nil, err
	}
	if tr.Kind() == transport.KindMem {
		return nil, fmt.Errorf("transport.kind %q only connects peers inside one process; use tcp or quic", kind)
	}
	return tr, nil
}

// NewServerCommand returns the command for a server role. It serves until
// interrupted.
func NewServerCommand(role session.Role) *cobra.Command {
	var g globalFlags
	use := string(role) + " <port>"
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Run the %s service.", role),
		Args:  exactArgs(use, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := parsePort(args[0])
			if err != nil {
				return err
			}
			cfg, sync, err := g.setup()
			if err != nil {
				return err
			}
			defer sync()

			tr, err := processTransport(cfg.Transport.Kind)
			if err != nil {
				return err
			}
			format, err := protocol.ParseFormat(cfg.Protocol.BodyFormat)
			if err != nil {
				return err
			}
			srv, err := server.New(server.Config{
				Role:       role,
				Transport:  tr,
				Addr:       net.JoinHostPort(cfg.Server.ListenHost, port),
				MaxWorkers: cfg.Server.MaxWorkers,
				IOTimeout:  cfg.Server.IOTimeout,
				Format:     format,
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx)
		},
	}
	g.register(cmd)
	return cmd
}

// NewClientCommand returns the command for a client role. The result is
// written to the command's output stream.
func NewClientCommand(role session.Role) *cobra.Command {
	var g globalFlags
	use := string(role) + " <input> <key> <port>"
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Send a file through %s.", role.Peer()),
		Args:  exactArgs(use, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := parsePort(args[2])
			if err != nil {
				return err
			}
			cfg, sync, err := g.setup()
			if err != nil {
				return err
			}
			defer sync()

			tr, err := processTransport(cfg.Transport.Kind)
			if err != nil {
				return err
			}
			format, err := protocol.ParseFormat(cfg.Protocol.BodyFormat)
			if err != nil {
				return err
			}
			d, err := client.New(client.Config{
				Role:        role,
				Transport:   tr,
				Addr:        net.JoinHostPort(cfg.Client.Host, port),
				DialTimeout: cfg.Client.DialTimeout,
				Format:      format,
			})
			if err != nil {
				return err
			}
			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush()
			return d.RunFiles(cmd.Context(), args[0], args[1], out)
		},
	}
	g.register(cmd)
	return cmd
}

// Execute runs cmd with args, reports any error on the command's error
// stream and returns the exit status.
func Execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		zap.L().Debug("command failed", zap.String("cmd", cmd.Name()), zap.Error(err))
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", cmd.Name(), err)
	}
	return ExitCode(err)
}
