package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/ascendfaiss/vectorengine/rpc"
)

// pingCmd exercises the RPC Transport component (C4) end to end: it
// loopbacks a net.Pipe as the device link, runs a trivial device-side
// handler that echoes TEST_DATA_INTEGRITY payloads, and issues
// Session.Probe against it from the host side.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Round-trip a TEST_DATA_INTEGRITY probe over an in-process device link",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		go serveEcho(server)

		sess := rpc.NewSession("loopback", client)
		defer sess.Close()

		ok, err := sess.Probe([]byte("enginectl-ping"))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("device echoed a mismatched payload")
		}
		log.WithField("device", "loopback").Info("probe succeeded")
		fmt.Println("ok")
		return nil
	},
}

// serveEcho is the minimal device-side handler needed for Probe: it
// decodes one request and echoes its payload back verbatim, exactly
// what a healthy TEST_DATA_INTEGRITY handler does, per spec.md §6.
func serveEcho(transport net.Conn) {
	req, err := rpc.Decode(transport)
	if err != nil {
		return
	}
	resp := rpc.Message{Kind: req.Kind, Err: rpc.ErrorNone, Payload: req.Payload}
	_ = resp.Encode(transport)
}
