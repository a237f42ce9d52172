// cmd/sysyc/commands/watch.go
package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sysyc/internal/build"
	"sysyc/internal/watch"
)

// WatchCommand handles "sysyc watch [dir]": recompiles on change and
// serves recompile notifications over a websocket at :4173/watch until
// interrupted.
func WatchCommand(args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	builder, err := build.NewBuilder(root)
	if err != nil {
		return err
	}
	defer builder.Close()

	w := watch.New(builder.Manifest(), builder.Cache())

	mux := http.NewServeMux()
	mux.Handle("/watch", w.Handler())
	srv := &http.Server{Addr: ":4173", Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "watch: websocket server: %v\n", err)
		}
	}()
	fmt.Fprintln(os.Stderr, "watching, diagnostics served at ws://localhost:4173/watch")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err = w.Run(ctx, 500*time.Millisecond)
	srv.Close()
	return err
}
