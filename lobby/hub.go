package lobby

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"connect4-server/db"
	"connect4-server/games"
)

// Hub owns the shared lobby state: the matchmaking registry, the store and
// the set of live connections. Every session, whichever transport it came
// in on, runs under the hub's root context and is ended by Shutdown.
type Hub struct {
	registry *Registry
	store    *db.Store
	log      *zap.Logger
	taunt    bool

	ctx    context.Context
	cancel context.CancelFunc

	total  atomic.Int64
	active atomic.Int64

	mu      sync.Mutex
	closing bool
	conns   map[Conn]struct{}
	wg      sync.WaitGroup
}

// Stats counts connections since start and those currently open.
type Stats struct {
	TotalConnections  int64 `json:"totalConnections"`
	ActiveConnections int64 `json:"activeConnections"`
	PlayerWaiting     bool  `json:"playerWaiting"`
	LiveGames         int   `json:"liveGames"`
}

func NewHub(store *db.Store, logger *zap.Logger, taunt bool) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		store:  store,
		log:    logger,
		taunt:  taunt,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[Conn]struct{}),
	}
	h.registry = NewRegistry(func(first games.Endpoint) *games.Game {
		g := games.NewOnlineGame(first, h.gameOptions())
		h.store.SaveGame(g)
		return g
	})
	return h
}

func (h *Hub) gameOptions() games.Options {
	return games.Options{
		Logger: h.log,
		Taunt:  h.taunt,
		OnFinish: func(snap games.Snapshot) {
			h.store.RemoveGame(snap.ID)
			h.store.RecordResult(snap)
		},
	}
}

// Serve accepts line-protocol connections on ln, one session each, until ctx
// is cancelled. On return the hub has been shut down.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	h.log.Info("waiting for incoming connections", zap.String("addr", ln.Addr().String()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				h.Shutdown()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				h.Shutdown()
				return err
			}
			h.log.Warn("accept failed", zap.Error(err))
			continue
		}

		go h.Handle(ctx, NewTCPConn(conn))
	}
}

// Handle runs one player's session on conn and returns when it ends. The
// session stops when either ctx or the hub is done. Once Shutdown has begun
// conn is closed straight away.
func (h *Hub) Handle(ctx context.Context, conn Conn) {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.conns[conn] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	total := h.total.Add(1)
	h.active.Add(1)
	h.log.Info("new client connected",
		zap.String("remote", conn.RemoteAddr()),
		zap.Int64("total", total),
	)

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		h.active.Add(-1)
	}()

	sessionCtx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	newSession(h, conn).Run(sessionCtx)
}

// Shutdown refuses new sessions, cancels and closes the running ones and
// waits for all of them to finish. It is safe to call more than once.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closing = true
	h.cancel()
	for conn := range h.conns {
		conn.Close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) Stats() Stats {
	return Stats{
		TotalConnections:  h.total.Load(),
		ActiveConnections: h.active.Load(),
		PlayerWaiting:     h.registry.Waiting(),
		LiveGames:         len(h.store.ListGames()),
	}
}
