package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-bus/bus"
	"github.com/nerrad567/gray-logic-bus/encoding"
	"github.com/nerrad567/gray-logic-bus/internal/api"
	"github.com/nerrad567/gray-logic-bus/internal/broker"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bus/internal/metrics"
	"github.com/nerrad567/gray-logic-bus/openfmb"
	"github.com/nerrad567/gray-logic-bus/topic"
)

// profileFlags select an OpenFMB topic instead of a raw pattern.
type profileFlags struct {
	module  string
	profile string
	mrid    string
}

func (f profileFlags) set() bool {
	return f.module != "" || f.profile != "" || f.mrid != ""
}

// topic builds the OpenFMB subscription topic the flags describe.
func (f profileFlags) topic() (topic.Topic, error) {
	topics := openfmb.Topics{}

	var id uuid.UUID
	if f.mrid != "" {
		parsed, err := uuid.Parse(f.mrid)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", openfmb.ErrInvalidMRID, f.mrid)
		}
		id = parsed
	}

	module := openfmb.Module(f.module)
	if f.module != "" && !module.Supported() {
		return nil, fmt.Errorf("%w: %q", openfmb.ErrUnsupportedModule, f.module)
	}

	switch {
	case f.profile != "":
		profile := openfmb.Profile(f.profile)
		owner, ok := profile.Module()
		if !ok {
			return nil, fmt.Errorf("%w: %q", openfmb.ErrUnsupportedProfile, f.profile)
		}
		if f.module != "" && owner != module {
			return nil, fmt.Errorf("%w: %s belongs to %s, not %s", openfmb.ErrUnsupportedProfile, profile, owner, module)
		}
		if id == uuid.Nil {
			return topics.AllDevices(profile), nil
		}
		return topics.Profile(profile, id), nil

	case f.module != "" && f.mrid != "":
		return nil, fmt.Errorf("%w: --module and --mrid need --profile", errUsage)

	case f.module != "":
		return topics.Module(module), nil

	default:
		return topics.Device(id), nil
	}
}

func newSubCmd(a *app) *cobra.Command {
	var flags profileFlags

	cmd := &cobra.Command{
		Use:   "sub [pattern]",
		Short: "Print the messages matching a pattern",
		Long: `Print every message matching a subject pattern, one "subject payload" line
each. "*" matches one level and a trailing ">" one or more. Instead of a
pattern, --module, --profile and --mrid select OpenFMB topics. Deliveries on
OpenFMB profile topics are annotated with their profile and mRID.`,
		Example: `  graybus sub 'openfmb.>'
  graybus sub --profile MeterReadingProfile
  graybus sub --profile SwitchStatusProfile --mrid 5d6c2b1e-8f3a-4c1d-9e2f-0a1b2c3d4e5f`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := subscriptionTopic(args, flags)
			if err != nil {
				return err
			}
			return a.subscribe(cmd.Context(), t, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.module, "module", "", "OpenFMB module, e.g. metermodule")
	cmd.Flags().StringVar(&flags.profile, "profile", "", "OpenFMB profile, e.g. MeterReadingProfile")
	cmd.Flags().StringVar(&flags.mrid, "mrid", "", "OpenFMB device mRID (UUID)")
	return cmd
}

// subscriptionTopic resolves either the pattern argument or the OpenFMB
// flags, which are mutually exclusive.
func subscriptionTopic(args []string, flags profileFlags) (topic.Topic, error) {
	switch {
	case len(args) == 1 && flags.set():
		return nil, fmt.Errorf("%w: give a pattern or OpenFMB flags, not both", errUsage)
	case len(args) == 1:
		t, err := topic.ParsePattern(args[0])
		if err != nil {
			return nil, fmt.Errorf("parsing pattern: %w", err)
		}
		return t, nil
	case flags.set():
		return flags.topic()
	default:
		return nil, fmt.Errorf("%w: missing pattern", errUsage)
	}
}

// received is one decoded delivery. device is set for OpenFMB profile
// topics.
type received struct {
	subject string
	device  *openfmb.ProfileTopic
	payload []byte
}

// withDelivery wraps enc so that decoded messages carry where they
// arrived.
func withDelivery(enc encoding.Encoding[[]byte]) encoding.Encoding[received] {
	return encoding.Funcs[received]{
		EncodingName: enc.Name(),
		EncodeFunc: func(msg received, w *bytes.Buffer) error {
			return enc.Encode(msg.payload, w)
		},
		DecodeFunc: func(t topic.Topic, data []byte) (received, error) {
			payload, err := enc.Decode(t, data)
			if err != nil {
				return received{}, err
			}
			msg := received{subject: topic.Collect(t).String(), payload: payload}
			if pt, err := openfmb.ParseTopic(t); err == nil {
				msg.device = &pt
			}
			return msg, nil
		},
	}
}

// formatMessage renders one output line. Protobuf payloads are binary and
// printed as hex.
func formatMessage(msg received, enc string) string {
	var b bytes.Buffer
	b.WriteString(msg.subject)
	if msg.device != nil {
		fmt.Fprintf(&b, " profile=%s mrid=%s", msg.device.Profile, msg.device.MRID)
	}
	b.WriteByte(' ')
	if enc == config.EncodingProtobuf {
		b.WriteString(hex.EncodeToString(msg.payload))
	} else {
		b.Write(msg.payload)
	}
	b.WriteByte('\n')
	return b.String()
}

func (a *app) subscribe(ctx context.Context, t topic.Topic, stdout io.Writer) error {
	opts := []bus.Option{bus.WithOwnedConn(), bus.WithLogger(a.log)}

	var metricsLn net.Listener
	var reg *prometheus.Registry
	if a.cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		opts = append(opts, bus.WithRecorder(metrics.NewBusMetrics(reg)))

		var err error
		metricsLn, err = net.Listen("tcp", a.cfg.Metrics.MetricsAddr())
		if err != nil {
			return fmt.Errorf("listening for metrics: %w", err)
		}
	}
	closeListener := func() {
		if metricsLn != nil {
			_ = metricsLn.Close()
		}
	}

	conn, err := broker.Open(ctx, a.cfg, a.log)
	if err != nil {
		closeListener()
		return err
	}
	b := bus.New(conn, withDelivery(a.enc), opts...)
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			a.log.Error("error closing bus", "error", closeErr)
		}
	}()

	sub, err := b.Subscribe(ctx, t)
	if err != nil {
		closeListener()
		return fmt.Errorf("subscribing: %w", err)
	}
	defer sub.Close()
	a.log.Info("subscribed", "subject", sub.Subject(), "backend", a.cfg.Bus.Backend)

	g, ctx := errgroup.WithContext(ctx)

	if metricsLn != nil {
		health, _ := conn.(api.HealthChecker)
		srv, err := api.New(api.Deps{
			Config:  a.cfg.Metrics,
			Logger:  a.log,
			Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			Health:  health,
			Backend: a.cfg.Bus.Backend,
			Version: version,
		})
		if err != nil {
			closeListener()
			return fmt.Errorf("creating admin server: %w", err)
		}
		g.Go(func() error {
			return srv.Serve(ctx, metricsLn)
		})
	}

	g.Go(func() error {
		return a.printMessages(ctx, sub, stdout)
	})

	return g.Wait()
}

// printMessages writes one line per message until ctx ends or the
// subscription closes. Deliveries that fail to decode are skipped; the
// subscription has already logged them.
func (a *app) printMessages(ctx context.Context, sub *bus.Subscription[received], stdout io.Writer) error {
	for msg, err := range sub.All(ctx) {
		var decodeErr *bus.DecodeError
		switch {
		case err == nil:
		case errors.As(err, &decodeErr):
			continue
		case ctx.Err() != nil:
			return nil
		default:
			a.log.Warn("subscription error", "error", err)
			continue
		}

		if _, err := io.WriteString(stdout, formatMessage(msg, a.cfg.Bus.Encoding)); err != nil {
			return fmt.Errorf("writing message: %w", err)
		}
	}
	if ctx.Err() == nil {
		return errors.New("subscription closed by the broker")
	}
	return nil
}
