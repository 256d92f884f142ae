package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"mx44-utils/src/server/config"
	"mx44-utils/src/server/matrix"
	"mx44-utils/src/server/tcp"
)

var (
	ErrNotConnected  = errors.New("matrix not connected")
	ErrInvalidPort   = errors.New("invalid port")
	ErrSessionClosed = errors.New("session closed")
)

// Transport is the reconnecting socket a session talks through.
type Transport interface {
	Start()
	Send(line string) error
	Close() error
}

type TransportFactory func(host string, port int, reconnectInterval time.Duration, handler tcp.Handler) Transport

func defaultTransportFactory(host string, port int, reconnectInterval time.Duration, handler tcp.Handler) Transport {
	return tcp.NewClient(host, port, reconnectInterval, handler)
}

// ConnectionState is the host-facing view of the socket.
type ConnectionState struct {
	Status  string    `json:"status"`
	Address string    `json:"address,omitempty"`
	Error   string    `json:"error,omitempty"`
	Since   time.Time `json:"since"`
}

// State is published after every change. Readers get an immutable copy.
type State struct {
	Matrix     matrix.Snapshot `json:"matrix"`
	Connection ConnectionState `json:"connection"`
	Polling    bool            `json:"polling"`
	Config     config.Config   `json:"config"`
}

// Observer is notified on the session goroutine and must not block.
type Observer func(State)

// Session owns the routing state, the socket and the poll timer. Every
// handler (socket events, poll ticks, host intents) runs to completion on a
// single goroutine, so routing events are applied in stream order and the
// store needs no locking.
type Session struct {
	cfg    config.Config
	store  *matrix.Store
	parser *matrix.Parser

	transport    Transport
	transportGen int
	status       tcp.Status
	statusErr    error
	statusSince  time.Time
	address      string

	poller  *Poller
	pollGen int

	events   chan func()
	stopChan chan struct{}
	done     chan struct{}
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once

	transportFactory TransportFactory

	state       atomic.Pointer[State]
	observersMu sync.Mutex
	observers   map[int]Observer
	nextObsID   int
}

func New(cfg config.Config) *Session {
	spec, ok := matrix.ModelTable[cfg.Model]
	if !ok {
		spec = matrix.ModelTable[matrix.DefaultModel]
	}

	s := &Session{
		cfg:              cfg,
		store:            matrix.NewStore(spec),
		parser:           matrix.NewParser(),
		status:           tcp.StatusDisconnected,
		statusSince:      time.Now(),
		events:           make(chan func(), 64),
		stopChan:         make(chan struct{}),
		done:             make(chan struct{}),
		transportFactory: defaultTransportFactory,
		observers:        make(map[int]Observer),
	}
	s.store.SetChangeCallback(func(matrix.Snapshot) {
		s.publish()
	})
	s.publish()
	return s
}

// SetTransportFactory replaces how sockets are created. Call before Start.
func (s *Session) SetTransportFactory(factory TransportFactory) {
	s.transportFactory = factory
}

// Spec returns the port layout of the configured model.
func (s *Session) Spec() matrix.PortSpec {
	return s.store.Spec()
}

// Start runs the dispatcher and applies the initial config.
func (s *Session) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true

	go s.loop()
	cfg := s.cfg
	s.post(func() { s.configUpdated(cfg) })
}

// Stop tears down the socket and poll timer and waits for the dispatcher to exit.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.startMu.Lock()
	started := s.started
	s.startMu.Unlock()
	if started {
		<-s.done
	}
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.stopChan:
			s.teardown()
			return
		case fn := <-s.events:
			fn()
		}
	}
}

// post queues fn on the dispatcher. Events posted after Stop are dropped.
func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.stopChan:
	}
}

// do runs fn on the dispatcher and waits for its result.
func (s *Session) do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case s.events <- func() { result <- fn() }:
	case <-s.stopChan:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-s.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateConfig replaces the running config: the socket is re-dialed and the
// poll timer re-armed.
func (s *Session) UpdateConfig(ctx context.Context, cfg config.Config) error {
	return s.do(ctx, func() error {
		s.configUpdated(cfg)
		return nil
	})
}

func (s *Session) configUpdated(cfg config.Config) {
	s.cfg = cfg
	s.parser.LogResponses = cfg.LogResponses
	s.parser.LogTokens = cfg.LogTokens

	s.initTransport()
	s.initPolling()
	s.publish()
}

func (s *Session) initTransport() {
	s.closeTransport()

	if s.cfg.Host == "" {
		log.Printf("Session: no host configured, staying disconnected")
		return
	}

	s.transportGen++
	gen := s.transportGen
	handler := tcp.Handler{
		OnStatus: func(status tcp.Status, err error) {
			s.post(func() { s.handleStatus(gen, status, err) })
		},
		OnData: func(chunk []byte) {
			s.post(func() { s.handleData(gen, chunk) })
		},
	}

	s.transport = s.transportFactory(s.cfg.Host, s.cfg.Port, s.cfg.ReconnectInterval(), handler)
	s.address = s.cfg.Host
	s.setStatus(tcp.StatusConnecting, nil)
	log.Printf("Session: connecting to %s:%d", s.cfg.Host, s.cfg.Port)
	s.transport.Start()
}

func (s *Session) closeTransport() {
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			log.Printf("Session: closing socket: %v", err)
		}
		s.transport = nil
	}
	// Late events from the old socket carry a stale generation and are ignored.
	s.transportGen++
	s.parser.Reset()
	s.address = ""
	s.setStatus(tcp.StatusDisconnected, nil)
}

func (s *Session) initPolling() {
	s.stopPolling()
	if !s.cfg.PolledData {
		return
	}

	s.pollGen++
	gen := s.pollGen
	s.poller = StartPoller(s.cfg.PollInterval(), func() {
		s.post(func() { s.handleTick(gen) })
	})
	log.Printf("Session: polling every %s", s.poller.Interval())
}

func (s *Session) stopPolling() {
	if s.poller != nil {
		s.poller.Stop()
		s.poller = nil
	}
	s.pollGen++
}

func (s *Session) teardown() {
	s.stopPolling()
	s.closeTransport()
	s.publish()
	log.Printf("Session: stopped")
}

func (s *Session) handleStatus(gen int, status tcp.Status, err error) {
	if gen != s.transportGen {
		return
	}
	if err != nil {
		log.Printf("Network error: %v", err)
	}
	if status != tcp.StatusConnected {
		s.parser.Reset()
	}
	s.setStatus(status, err)
	s.publish()

	if status == tcp.StatusConnected {
		s.debugf("Session: connected")
		s.sendCommand(matrix.EncodeStatusQuery())
	}
}

func (s *Session) handleData(gen int, chunk []byte) {
	if gen != s.transportGen || s.status != tcp.StatusConnected {
		return
	}
	for _, ev := range s.parser.Feed(chunk) {
		if !s.store.ApplyRoute(ev.Output, ev.Input) {
			s.debugf("Session: ignoring route OUT%d IN%d outside configured ports", ev.Output, ev.Input)
		}
	}
}

func (s *Session) handleTick(gen int) {
	if gen != s.pollGen || s.poller == nil {
		return
	}
	s.sendCommand(matrix.EncodeStatusQuery())
}

// sendCommand transmits cmd if connected. Nothing is queued for later.
func (s *Session) sendCommand(cmd string) error {
	if s.transport == nil || s.status != tcp.StatusConnected {
		s.debugf("Session: socket not connected, dropping %q", cmd)
		return ErrNotConnected
	}
	if err := s.transport.Send(cmd); err != nil {
		log.Printf("Session: send failed: %v", err)
		if errors.Is(err, tcp.ErrNotConnected) {
			return ErrNotConnected
		}
		return err
	}
	return nil
}

func (s *Session) setStatus(status tcp.Status, err error) {
	if status != s.status {
		s.statusSince = time.Now()
	}
	s.status = status
	s.statusErr = err
}

func (s *Session) debugf(format string, args ...any) {
	if s.cfg.Debug {
		log.Printf(format, args...)
	}
}

func (s *Session) publish() {
	conn := ConnectionState{
		Status:  s.status.String(),
		Address: s.address,
		Since:   s.statusSince,
	}
	if s.statusErr != nil {
		conn.Error = s.statusErr.Error()
	}
	st := &State{
		Matrix:     s.store.Snapshot(),
		Connection: conn,
		Polling:    s.poller != nil,
		Config:     s.cfg,
	}
	s.state.Store(st)

	s.observersMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.observersMu.Unlock()

	for _, obs := range observers {
		obs(*st)
	}
}

// State returns the most recently published state.
func (s *Session) State() State {
	return *s.state.Load()
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Session) Subscribe(obs Observer) func() {
	s.observersMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = obs
	s.observersMu.Unlock()

	return func() {
		s.observersMu.Lock()
		delete(s.observers, id)
		s.observersMu.Unlock()
	}
}
