package resp

import (
	"context"
	"log/slog"

	"github.com/cloudwego/netpoll"

	"github.com/gedis-io/gedis/internal/store"
)

// Handler runs one already-framed command and returns its RESP-encoded
// reply. internal/command.Dispatch satisfies this.
type Handler func(ks *store.Keyspace, args [][]byte) []byte

// Server replaces the teacher's raw-syscall single-threaded reactor
// (ae.go/net.go: AeEventLoop, AcceptHandler, FileProc) with a
// cloudwego/netpoll event loop: one OnRequest callback per connection
// readiness event, netpoll's own poller fanning connections out across
// its worker goroutines instead of our own accept-and-select loop.
type Server struct {
	addr      string
	ks        *store.Keyspace
	handle    Handler
	logger    *slog.Logger
	eventLoop netpoll.EventLoop
}

// NewServer builds a Server that dispatches every framed command on
// addr's connections to handle against ks.
func NewServer(addr string, ks *store.Keyspace, handle Handler, logger *slog.Logger) *Server {
	return &Server{addr: addr, ks: ks, handle: handle, logger: logger}
}

// connState is the per-connection parser state netpoll's OnRequest
// needs across invocations, since a command can arrive split across
// several readiness events.
type connState struct {
	pending []byte
}

type connStateKey struct{}

func connStateOf(ctx context.Context) *connState {
	if cs, ok := ctx.Value(connStateKey{}).(*connState); ok {
		return cs
	}
	return &connState{}
}

// ListenAndServe creates addr's listener and blocks serving connections
// until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := netpoll.CreateListener("tcp", s.addr)
	if err != nil {
		return err
	}

	eventLoop, err := netpoll.NewEventLoop(
		s.onRequest,
		netpoll.WithOnConnect(s.onConnect),
		netpoll.WithOnDisconnect(s.onDisconnect),
	)
	if err != nil {
		return err
	}
	s.eventLoop = eventLoop

	s.logger.Info("gedis server listening", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() { errCh <- eventLoop.Serve(listener) }()

	select {
	case <-ctx.Done():
		return s.eventLoop.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func (s *Server) onConnect(ctx context.Context, conn netpoll.Connection) context.Context {
	return context.WithValue(ctx, connStateKey{}, &connState{})
}

func (s *Server) onDisconnect(ctx context.Context, conn netpoll.Connection) {}

// onRequest drains every complete command currently buffered on conn,
// running each through s.handle and writing its reply, then leaves any
// trailing partial command in the connection's state for the next
// readiness event.
func (s *Server) onRequest(ctx context.Context, conn netpoll.Connection) error {
	reader := conn.Reader()
	n := reader.Len()
	if n == 0 {
		return nil
	}
	chunk, err := reader.Next(n)
	if err != nil {
		return err
	}

	cs := connStateOf(ctx)
	cs.pending = append(cs.pending, chunk...)

	writer := conn.Writer()
	for {
		args, consumed, perr := ParseCommand(cs.pending)
		if perr != nil {
			_, _ = writer.WriteBinary(EncodeError(perr.Error()))
			_ = writer.Flush()
			return conn.Close()
		}
		if consumed == 0 {
			break
		}
		cs.pending = cs.pending[consumed:]
		if len(args) == 0 {
			continue
		}
		reply := s.handle(s.ks, args)
		if _, err := writer.WriteBinary(reply); err != nil {
			return err
		}
	}
	return writer.Flush()
}
