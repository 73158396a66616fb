package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyphal-go/transport/can"
	"github.com/cyphal-go/transport/presentation"
	"github.com/cyphal-go/transport"
)

var callCmd = &cobra.Command{
	Use:   "call <service-id> <request>",
	Short: "Issue a request and wait on its response promise",
	Long: `call demonstrates the presentation layer's Client by running an
in-process demo server alongside the client on a shared loopback bus,
since there is no real CAN adapter behind this CLI. The demo server
echoes the request payload back uppercased.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var service uint32
		if _, err := fmt.Sscanf(args[0], "%d", &service); err != nil {
			return fmt.Errorf("parse service id: %w", err)
		}
		port := transport.PortID(service)

		bus := newLoopbackBus()
		clientNode := resolveLocalNodeID()
		if clientNode.IsUnset() {
			clientNode = transport.NodeID(1)
		}
		serverNode := clientNode + 1

		clientTr, err := can.New([]transport.CANMedia{bus.attach(8)}, cfg.TxQueueCapacity, clientNode, nil, log)
		if err != nil {
			return fmt.Errorf("construct client transport: %w", err)
		}
		serverTr, err := can.New([]transport.CANMedia{bus.attach(8)}, cfg.TxQueueCapacity, serverNode, nil, log)
		if err != nil {
			return fmt.Errorf("construct server transport: %w", err)
		}

		reqTx, err := clientTr.MakeRequestTxSession(port)
		if err != nil {
			return err
		}
		respRx, err := clientTr.MakeResponseRxSession(port, 256, transport.Duration(2_000_000))
		if err != nil {
			return err
		}
		client := presentation.NewClient(reqTx, respRx)

		reqRx, err := serverTr.MakeRequestRxSession(port, 256, transport.Duration(2_000_000))
		if err != nil {
			return err
		}
		respTx, err := serverTr.MakeResponseTxSession(port)
		if err != nil {
			return err
		}
		reqRx.SetOnReceive(func(tr transport.Transfer) {
			reply := bytes.ToUpper(tr.Payload)
			if err := respTx.Send(reply, tr.Metadata.RemoteNodeID, tr.Metadata.TransferID, transport.PriorityNominal, transport.MaxTimePoint); err != nil {
				log.Error().Err(err).Msg("demo server: send response failed")
			}
		})

		now := transport.TimePoint(0)
		deadline := transport.TimePoint(5_000_000)
		promise, err := client.Call([]byte(args[1]), serverNode, transport.PriorityNominal, now, deadline)
		if err != nil {
			return fmt.Errorf("call: %w", err)
		}

		// One Run drains a transport's TX queue onto the bus and then takes
		// at most one frame off each of its media (a medium also reads back
		// the frames its own transport pushed). The four Runs below complete
		// a round trip only when the request and the response each fit in
		// one classic CAN frame (7 payload bytes); a longer request or reply
		// ends in "no response arrived".
		if err := clientTr.Run(now); err != nil { // flush request onto the bus
			return err
		}
		if err := serverTr.Run(now); err != nil { // receive request, enqueue response
			return err
		}
		if err := serverTr.Run(now); err != nil { // flush response onto the bus
			return err
		}
		if err := clientTr.Run(now); err != nil { // receive response
			return err
		}

		tr, rerr, ok := promise.FetchResult()
		if !ok {
			return fmt.Errorf("no response arrived within the demo run")
		}
		if rerr != nil {
			return fmt.Errorf("call failed: %w", rerr)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "response: %s\n", tr.Payload)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
}
