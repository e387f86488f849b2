package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-bus/bus"
	"github.com/nerrad567/gray-logic-bus/internal/broker"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bus/topic"
)

func newPubCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pub <topic> <payload|->",
		Short: "Publish one message",
		Long: `Publish one message on a topic written in subject form, for example
openfmb.metermodule.MeterReadingProfile.<mRID>. Wildcards are not allowed.
A payload of "-" is read from stdin.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(args[1], cmd.InOrStdin(), a.cfg.Bus.Encoding)
			if err != nil {
				return err
			}
			return a.publish(cmd.Context(), args[0], payload)
		},
	}
}

// readPayload returns arg, or stdin when arg is "-". Text encodings lose
// the trailing newline a shell pipe adds; protobuf input is kept verbatim.
func readPayload(arg string, stdin io.Reader, enc string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("reading payload from stdin: %w", err)
	}
	if enc == config.EncodingProtobuf {
		return data, nil
	}
	return bytes.TrimRight(data, "\n"), nil
}

func (a *app) publish(ctx context.Context, subject string, payload []byte) error {
	t, err := topic.ParsePattern(subject)
	if err != nil {
		return fmt.Errorf("parsing topic: %w", err)
	}

	conn, err := broker.Open(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	b := bus.New(conn, a.enc, bus.WithOwnedConn(), bus.WithLogger(a.log))
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			a.log.Error("error closing bus", "error", closeErr)
		}
	}()

	pubCtx, cancel := context.WithTimeout(ctx, a.cfg.GetPublishTimeout())
	defer cancel()
	if err := b.Publish(pubCtx, t, payload); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	a.log.Debug("message published", "subject", subject, "bytes", len(payload))
	return nil
}
