// Gray Logic Bus - typed publish/subscribe over NATS, MQTT or Redis
//
// graybus is the command line client for the bus. It publishes single
// messages and prints the messages matching a subject pattern, using the
// backend and payload encoding named in the configuration.
//
// Usage:
//
//	graybus [--config path] pub <topic> <payload|->
//	graybus [--config path] sub <pattern>
//	graybus [--config path] sub --profile MeterReadingProfile [--mrid <uuid>]
//
// Topics are written in subject form: "openfmb.metermodule.MeterReadingProfile.*"
// or "openfmb.>". A payload of "-" is read from stdin.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-bus/encoding"
	"github.com/nerrad567/gray-logic-bus/internal/broker"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// errUsage marks malformed command lines; main exits with status 2 for them.
var errUsage = errors.New("usage")

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line arguments without the program name
//   - stdin: Source of "-" payloads
//   - stdout: Destination of received messages and help output
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	return root.ExecuteContext(ctx)
}

// app is the state shared by the subcommands once the root command has
// loaded the configuration.
type app struct {
	configPath string

	cfg *config.Config
	log *logging.Logger
	enc encoding.Encoding[[]byte]
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "graybus",
		Short: "Publish and subscribe on the Gray Logic Bus",
		Long: `graybus publishes single messages to the configured broker and prints
the messages matching a subject pattern. The backend (nats, mqtt, redis or
memory) and the payload encoding come from graybus.yaml.`,
		Version:       version,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
		RunE: func(*cobra.Command, []string) error {
			return fmt.Errorf("%w: missing command, want pub or sub", errUsage)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("GRAYBUS_CONFIG"),
		"path to graybus.yaml (default from GRAYBUS_CONFIG, else built-in defaults)")

	root.AddCommand(newPubCmd(a), newSubCmd(a))
	return root
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}

func (a *app) load() error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("starting graybus",
		"version", version,
		"commit", commit,
		"build_date", date,
		"backend", cfg.Bus.Backend,
	)

	enc, err := broker.RawEncoding(cfg.Bus.Encoding)
	if err != nil {
		return err
	}

	a.cfg, a.log, a.enc = cfg, log, enc
	return nil
}

// loadConfig reads path, or falls back to the built-in defaults when no
// configuration file is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.Default()
		if err != nil {
			return nil, fmt.Errorf("loading default config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
