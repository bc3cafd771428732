// Package pool implements the bounded connection pool: up to N live N2C
// connections to one socket path, lent out for the duration of one request,
// validated on return. Creation goes through a circuit breaker so a fully
// dead node fails fast, with a rate limiter pacing reconnect attempts.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/blockfrost/node-gateway/internal/apperrors"
	"github.com/blockfrost/node-gateway/internal/n2c"
)

// ErrPoolExhausted is returned when Get's context is cancelled before a slot
// and a connection become available.
var ErrPoolExhausted = errors.New("pool: exhausted (timed out waiting for a connection)")

// ConnectionsGauge is the minimal metrics sink the pool reports
// cardano_node_connections through, so internal/pool has no direct
// dependency on internal/api's Prometheus registry.
type ConnectionsGauge interface {
	Inc()
	Dec()
}

type noopGauge struct{}

func (noopGauge) Inc() {}
func (noopGauge) Dec() {}

// entry is the pool's detachable slot: it holds the live connection for the
// entry's entire public lifetime, and the slot is emptied exactly once,
// during the entry's ownership-consuming teardown.
type entry struct {
	mu   sync.Mutex
	conn *n2c.NodeClient // nil once detached
}

// detach empties the slot and returns the connection for ownership-consuming
// teardown. Safe to call at most meaningfully once; subsequent calls return
// nil.
func (e *entry) detach() *n2c.NodeClient {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.conn
	e.conn = nil
	return c
}

// Pool is a bounded, FIFO-on-waiters pool of N2C connections to one socket.
// It is safe to share across goroutines; all shared state lives behind
// pointers, so every user sees the same underlying set.
type Pool struct {
	socketPath   string
	networkMagic uint64
	maxSize      int

	gauge   ConnectionsGauge
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter

	sem     chan struct{} // bounds concurrently-live connections to maxSize
	waiters sync.Mutex
	free    []*entry
}

type Config struct {
	SocketPath   string
	NetworkMagic uint64
	MaxSize      int
	Gauge        ConnectionsGauge
}

func New(cfg Config) (*Pool, error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf("pool: max size must be positive, got %d", cfg.MaxSize)
	}
	gauge := cfg.Gauge
	if gauge == nil {
		gauge = noopGauge{}
	}

	breakerSettings := gobreaker.Settings{
		Name:        "n2c-node-connect",
		MaxRequests: 2,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	return &Pool{
		socketPath:   cfg.SocketPath,
		networkMagic: cfg.NetworkMagic,
		maxSize:      cfg.MaxSize,
		gauge:        gauge,
		breaker:      gobreaker.NewCircuitBreaker(breakerSettings),
		limiter:      rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		sem:          make(chan struct{}, cfg.MaxSize),
	}, nil
}

// Handle is a leased connection. It must be returned via Release, which recycles
// (or evicts) the underlying entry.
type Handle struct {
	pool  *Pool
	entry *entry
}

// Conn exposes the live connection for the duration of the handle.
func (h *Handle) Conn() *n2c.NodeClient {
	return h.entry.Conn()
}

// Release recycles the connection back to the pool, evicting it instead if
// its liveness probe fails.
func (h *Handle) Release() {
	h.pool.recycle(h.entry)
}

// Get acquires a connection, reusing a free entry (after a liveness probe)
// when one exists, or creating one if the pool has spare capacity. No
// fairness guarantees beyond the semaphore's own ordering.
func (p *Pool) Get(ctx context.Context) (*Handle, error) {
	if e := p.popFree(); e != nil {
		if p.probe(e) {
			return &Handle{pool: p, entry: e}, nil
		}
		p.evict(e)
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrPoolExhausted
	}

	conn, err := p.create(ctx)
	if err != nil {
		<-p.sem
		return nil, err
	}
	return &Handle{pool: p, entry: &entry{conn: conn}}, nil
}

func (p *Pool) popFree() *entry {
	p.waiters.Lock()
	defer p.waiters.Unlock()
	if len(p.free) == 0 {
		return nil
	}
	e := p.free[0]
	p.free = p.free[1:]
	return e
}

func (p *Pool) pushFree(e *entry) {
	p.waiters.Lock()
	defer p.waiters.Unlock()
	p.free = append(p.free, e)
}

// create opens a new N2C client against the socket, through the circuit
// breaker so a completely dead node fails fast rather than making every
// waiter pay a full dial timeout.
func (p *Pool) create(ctx context.Context) (*n2c.NodeClient, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pool: %w", apperrors.NodeError(err.Error()))
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return n2c.Connect(p.socketPath, p.networkMagic)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NodeError("circuit open: node appears to be down")
		}
		return nil, apperrors.NodeError(err.Error())
	}

	p.gauge.Inc()
	return result.(*n2c.NodeClient), nil
}

// probe issues the cheap liveness ping used before any reuse.
func (p *Pool) probe(e *entry) bool {
	conn := e.Conn()
	if conn == nil {
		return false
	}
	return conn.Ping() == nil
}

// Conn returns the entry's current connection under its own lock.
func (e *entry) Conn() *n2c.NodeClient {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn
}

func (p *Pool) recycle(e *entry) {
	if p.probe(e) {
		p.pushFree(e)
		return
	}
	p.evict(e)
}

// evict detaches the connection, aborts it (joining multiplexer threads),
// decrements the gauge, and frees the semaphore slot so the next Get creates
// a fresh connection.
func (p *Pool) evict(e *entry) {
	conn := e.detach()
	if conn != nil {
		conn.Abort()
		p.gauge.Dec()
	}
	<-p.sem
}

// Close tears down every free entry. In-flight handles are the caller's
// responsibility to release first.
func (p *Pool) Close() {
	p.waiters.Lock()
	free := p.free
	p.free = nil
	p.waiters.Unlock()

	for _, e := range free {
		p.evict(e)
	}
}
