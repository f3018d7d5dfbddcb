package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/conneroisu/bindery/internal/broadcast"
	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/logging"
	"github.com/conneroisu/bindery/internal/middleware"
	"github.com/conneroisu/bindery/internal/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch [dir]",
	Aliases: []string{"w"},
	Short:   "Rebuild the book on every change",
	Long: `Watch the chapters under dir (default: content.dir) and rebuild after
every burst of changes. Each outcome is printed; with --listen it is also
published as JSON to websocket clients connected at /ws, which is how a
renderer follows the book. A failed rebuild publishes its report and no table
of contents.

Examples:
  bindery watch book                        # Print every rebuild
  bindery watch --listen localhost:8090     # Serve ws://localhost:8090/ws
  bindery watch --exec "make site"          # Run a command after good builds`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var (
	watchFlags   *StandardFlags
	watchVerbose bool
	watchListen  string
	watchExec    string
)

const shutdownTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags = AddStandardFlags(watchCmd, nil, "validation")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "Address to publish builds on (overrides watch.listen)")
	watchCmd.Flags().StringVarP(&watchExec, "exec", "e", "", "Command to run after each successful build")
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd, args)
	if err != nil {
		return err
	}
	defer env.Close()
	watchFlags.Apply(cmd, env.cfg)
	if cmd.Flags().Changed("listen") {
		env.cfg.Watch.Listen = watchListen
	}

	execArgs, err := parseExec(watchExec)
	if err != nil {
		return err
	}

	b, err := newBook(env.cfg, env.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &rebuilder{
		book:    b,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		logger:  env.logger,
		exec:    execArgs,
		verbose: watchVerbose,
	}

	if listen := env.cfg.Watch.Listen; listen != "" {
		hub := broadcast.NewHub(broadcast.Options{}, env.logger)
		shutdown, err := serveHub(listen, hub, env.logger)
		if err != nil {
			_ = hub.Shutdown(context.Background())
			return err
		}
		defer shutdown()
		r.hub = hub
		fmt.Fprintf(r.out, "📡 Publishing builds on ws://%s/ws\n", listen)
	}

	fileWatcher, err := watcher.NewFileWatcher(env.cfg.Watch.Debounce, env.logger)
	if err != nil {
		return err
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.RelativeFilter(b.scanner.Root(), b.scanner.Matches))
	fileWatcher.AddFilter(watcher.NoEditorTempFilter)
	fileWatcher.AddHandler(r.handle)

	if err := fileWatcher.AddRecursive(b.scanner.Root()); err != nil {
		return err
	}

	r.rebuild(ctx)

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintf(r.out, "👀 Watching %s for changes... (Press Ctrl+C to stop)\n", b.scanner.Root())
	<-ctx.Done()
	fmt.Fprintln(r.out, "\n🛑 Stopping file watcher...")

	return nil
}

// rebuilder runs one build per batch of changes and reports the outcome.
// Calls are serialized by the watcher.
type rebuilder struct {
	book    *book
	hub     *broadcast.Hub
	out     io.Writer
	errOut  io.Writer
	logger  logging.Logger
	exec    []string
	verbose bool
	seq     uint64
}

func (r *rebuilder) handle(ctx context.Context, events []watcher.ChangeEvent) error {
	if r.verbose {
		fmt.Fprintf(r.out, "📁 File changes detected:\n")
		for _, event := range events {
			rel, err := filepath.Rel(r.book.scanner.Root(), event.Path)
			if err != nil {
				rel = event.Path
			}
			fmt.Fprintf(r.out, "   %s: %s\n", event.Type, filepath.ToSlash(rel))
		}
	} else {
		fmt.Fprintf(r.out, "📁 %d file(s) changed\n", len(events))
	}

	r.rebuild(ctx)
	return nil
}

// rebuild builds the book, prints and publishes the outcome, then runs the
// exec command when the build succeeded.
func (r *rebuilder) rebuild(ctx context.Context) {
	r.seq++
	res, buildErr := r.book.build(ctx)
	if ctx.Err() != nil {
		return
	}

	summary, err := summarize(r.book.scanner.Root(), res, buildErr)
	if err != nil {
		fmt.Fprintf(r.errOut, "✗ Build failed: %v\n", err)
	} else {
		_ = outputValidationText(r.out, summary, res, r.verbose, false)
	}

	if r.hub != nil {
		if err := r.hub.PublishBuild(r.seq, res, buildErr); err != nil {
			r.logger.Warn(ctx, err, "Cannot publish build", "sequence", r.seq)
		}
	}

	if buildErr == nil && len(r.exec) > 0 {
		if err := r.runExec(ctx); err != nil {
			r.logger.Error(ctx, err, "Exec command failed", "command", strings.Join(r.exec, " "))
		}
	}
}

func (r *rebuilder) runExec(ctx context.Context) error {
	fmt.Fprintf(r.out, "🔨 Running: %s\n", strings.Join(r.exec, " "))

	c := exec.CommandContext(ctx, r.exec[0], r.exec[1:]...)
	c.Stdout = r.out
	c.Stderr = r.errOut

	if err := c.Run(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// parseExec splits and checks the --exec command line. An empty line means
// no command.
func parseExec(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	parts := strings.Fields(line)
	if err := validateExecCommand(parts[0], parts[1:]); err != nil {
		return nil, fmt.Errorf("invalid --exec command: %w", err)
	}
	return parts, nil
}

// Websocket upgrade budget for the /ws endpoint.
const (
	upgradesPerSecond = 5
	upgradeBurst      = 20
)

// serveHub listens on addr and serves the hub at /ws. The returned function
// disconnects every client and stops the server.
func serveHub(addr string, hub *broadcast.Hub, logger logging.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, errors.ErrCodeBroadcastFailed, "listening for websocket clients").
			WithContext("addr", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.Chain(hub,
		middleware.Logging(logger),
		middleware.SecurityHeaders(),
		middleware.MethodGuard(http.MethodGet),
		middleware.RateLimit(upgradesPerSecond, upgradeBurst),
	))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), err, "Broadcast server stopped", "addr", addr)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Hijacked websocket connections are not tracked by the server.
		if err := hub.Shutdown(ctx); err != nil {
			logger.Warn(ctx, err, "Broadcast hub shutdown incomplete")
		}
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn(ctx, err, "Broadcast server shutdown incomplete")
		}
	}, nil
}
