// Command kscan is the knowledge-scan search assistant: an HTTP proxy in
// front of the embedding, vector search and synthesis services, a web chat
// shell, and a terminal client for a running server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/54b3r/kscan/cmd/kscan/commands"
)

func main() {
	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
