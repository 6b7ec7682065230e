// Command gedis-server is the entrypoint: load configuration, load the
// AOF if one exists, and serve RESP connections until interrupted.
//
// Grounded on _examples/zkanghan-Gedis/conf.go's InitServer and
// gedis.go's main (open the listener, register the periodic cron,
// run the event loop), generalized to supervise the event loop and
// the AOF/expire background goroutines together with
// golang.org/x/sync/errgroup rather than the teacher's single
// blocking AeMain call.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gedis-io/gedis/internal/aof"
	"github.com/gedis-io/gedis/internal/command"
	"github.com/gedis-io/gedis/internal/config"
	"github.com/gedis-io/gedis/internal/resp"
	"github.com/gedis-io/gedis/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := config.FromEnv()
	command.SetBitopMaxSources(cfg.BitopMaxSources)

	ks := store.NewKeyspace()

	var log *aof.AOF
	if cfg.AOFPath != "" {
		if err := aof.Load(cfg.AOFPath, ks); err != nil {
			logger.Error("aof load failed", "path", cfg.AOFPath, "err", err)
			os.Exit(1)
		}
		var err error
		log, err = aof.Open(cfg.AOFPath, cfg.AOFAutoSyncBytes)
		if err != nil {
			logger.Error("aof open failed", "path", cfg.AOFPath, "err", err)
			os.Exit(1)
		}
		defer log.Close()
	}

	handle := resp.Handler(func(ks *store.Keyspace, args [][]byte) []byte {
		reply := command.Dispatch(ks, args)
		if log != nil && len(args) > 0 && command.IsWrite(string(args[0])) {
			if err := log.Append(args); err != nil {
				logger.Error("aof append failed", "err", err)
			}
		}
		return reply
	})

	srv := resp.NewServer(cfg.Addr, ks, handle, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gedis server is up", "addr", cfg.Addr)
		return srv.ListenAndServe(ctx)
	})

	g.Go(func() error {
		return runExpireCron(ctx, ks, time.Duration(cfg.ExpireCycleMillis)*time.Millisecond)
	})

	if log != nil {
		g.Go(func() error {
			return runRewriteCron(ctx, log, ks, logger)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// runExpireCron periodically sweeps passively-expired keys so memory
// isn't held by keys nobody ever touches again, mirroring the
// teacher's ServerCron time event.
func runExpireCron(ctx context.Context, ks *store.Keyspace, period time.Duration) error {
	if period <= 0 {
		period = 100 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ks.SweepExpired(time.Now().UnixMilli())
		}
	}
}

// runRewriteCron periodically compacts the AOF, mirroring the
// teacher's bgrewriteaof but on a fixed schedule instead of a
// size-growth trigger.
func runRewriteCron(ctx context.Context, log *aof.AOF, ks *store.Keyspace, logger *slog.Logger) error {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := log.Rewrite(ks); err != nil {
				logger.Error("aof rewrite failed", "err", err)
			}
		}
	}
}
