// Command ascii-chat-server runs the ascii-chat video-chat server: a TCP
// and WebSocket listener speaking ACIP, a crypto handshake, and the
// broadcast/audio loops that fan composited frames out to every connected
// client (spec §4, §6.2). Its command structure is grounded on the
// teacher's cobra-based CLI entrypoint (helixml-helix's root.go), adapted
// from a multi-subcommand platform CLI down to a single `serve` command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zfogg/ascii-chat/config"
	"github.com/zfogg/ascii-chat/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string

	root := &cobra.Command{
		Use:   "ascii-chat-server",
		Short: "Real-time many-to-many terminal video chat server",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	root.AddCommand(serveCmd)

	exitCode := server.ExitClean
	root.SilenceUsage = true
	root.SilenceErrors = true
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ascii-chat-server:", err)
		exitCode = exitCodeFor(err)
	}
	return exitCode
}

func serve(configPath string) error {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return configError{err}
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return configError{err}
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		return cryptoError{err}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Int("tcp_port", cfg.TCPPort).Int("ws_port", cfg.WSPort).Msg("ascii-chat-server starting")
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("ascii-chat-server shut down cleanly")
	return nil
}

// configError/cryptoError/bindError-ish wrappers let exitCodeFor recover
// spec §6.2's distinct fatal exit codes through cobra's single error return.
type configError struct{ err error }

func (c configError) Error() string { return c.err.Error() }
func (c configError) Unwrap() error { return c.err }

type cryptoError struct{ err error }

func (c cryptoError) Error() string { return c.err.Error() }
func (c cryptoError) Unwrap() error { return c.err }

func exitCodeFor(err error) int {
	switch err.(type) {
	case configError:
		return server.ExitConfigError
	case cryptoError:
		return server.ExitCryptoError
	default:
		return server.ExitBindError
	}
}
