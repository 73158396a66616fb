package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyphal-go/transport/can"
	"github.com/cyphal-go/transport"
)

var pubCmd = &cobra.Command{
	Use:   "pub <subject-id> <message>",
	Short: "Publish a message once on a subject over a loopback CAN bus",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var subject uint32
		if _, err := fmt.Sscanf(args[0], "%d", &subject); err != nil {
			return fmt.Errorf("parse subject id: %w", err)
		}

		bus := newLoopbackBus()
		local := resolveLocalNodeID()
		tr, err := can.New([]transport.CANMedia{bus.attach(8)}, cfg.TxQueueCapacity, local, nil, log)
		if err != nil {
			return fmt.Errorf("construct transport: %w", err)
		}

		tx, err := tr.MakeMessageTxSession(transport.PortID(subject))
		if err != nil {
			return fmt.Errorf("make publisher: %w", err)
		}
		if err := tx.Send([]byte(args[1]), transport.PriorityNominal, transport.MaxTimePoint); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		if err := tr.Run(0); err != nil {
			return fmt.Errorf("run: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "published %d bytes on subject %d (%d frame(s) on the wire)\n",
			len(args[1]), subject, len(bus.frames))
		return nil
	},
}

func resolveLocalNodeID() transport.NodeID {
	if cfg.LocalNodeID < 0 {
		return transport.UnsetNodeID
	}
	return transport.NodeID(cfg.LocalNodeID)
}

func init() {
	rootCmd.AddCommand(pubCmd)
}
