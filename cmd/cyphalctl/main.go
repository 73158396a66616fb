// Command cyphalctl is a demo CLI exercising the library end-to-end over
// a loopback in-memory CAN medium: it is not part of the core library,
// the way edgectl's cmd/* programs are not part of its internal/protocol
// core.
package main

import "github.com/cyphal-go/transport/cmd/cyphalctl/cmd"

func main() {
	cmd.Execute()
}
