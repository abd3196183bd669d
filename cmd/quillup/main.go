// Command quillup manages the Quill toolchain and language server:
// install or update the server from releases or source, supervise it for
// an editor session, and shell out to the compiler for one-shot commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "quillup: %v\n", err)
		os.Exit(1)
	}
}
