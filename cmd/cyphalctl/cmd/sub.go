package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyphal-go/transport/can"
	"github.com/cyphal-go/transport"
)

var subCount int

var subCmd = &cobra.Command{
	Use:   "sub <subject-id>",
	Short: "Subscribe on a subject and print received transfers",
	Long: `sub demonstrates reception by running a small in-process demo
publisher alongside the subscriber on a shared loopback bus, since there
is no real CAN adapter behind this CLI.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var subject uint32
		if _, err := fmt.Sscanf(args[0], "%d", &subject); err != nil {
			return fmt.Errorf("parse subject id: %w", err)
		}

		bus := newLoopbackBus()
		subscriber, err := can.New([]transport.CANMedia{bus.attach(8)}, cfg.TxQueueCapacity, resolveLocalNodeID(), nil, log)
		if err != nil {
			return fmt.Errorf("construct subscriber: %w", err)
		}
		publisher, err := can.New([]transport.CANMedia{bus.attach(8)}, cfg.TxQueueCapacity, transport.NodeID(1), nil, log)
		if err != nil {
			return fmt.Errorf("construct demo publisher: %w", err)
		}

		rx, err := subscriber.MakeMessageRxSession(transport.PortID(subject), 256, transport.Duration(2_000_000))
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		rx.SetOnReceive(func(tr transport.Transfer) {
			fmt.Fprintf(cmd.OutOrStdout(), "received from node %d: %s\n", tr.Metadata.RemoteNodeID, tr.Payload)
		})
		tx, err := publisher.MakeMessageTxSession(transport.PortID(subject))
		if err != nil {
			return fmt.Errorf("make demo publisher: %w", err)
		}

		for i := 0; i < subCount; i++ {
			payload := []byte(fmt.Sprintf("demo transfer %d", i))
			if err := tx.Send(payload, transport.PriorityNominal, transport.MaxTimePoint); err != nil {
				return fmt.Errorf("demo publish: %w", err)
			}
		}
		now := transport.TimePoint(0)
		if err := publisher.Run(now); err != nil {
			return err
		}
		// Each Run takes at most one frame off the bus per medium, so the
		// subscriber runs once for every frame the publisher put there.
		for i := 0; i < len(bus.frames); i++ {
			if err := subscriber.Run(now); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	subCmd.Flags().IntVar(&subCount, "count", 3, "number of demo transfers to publish for this run")
	rootCmd.AddCommand(subCmd)
}
