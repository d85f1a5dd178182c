// Package service runs a service: it builds the declared connections and states, hands
// handlers a validated to_send function and services inbound sockets from a single event
// loop, or runs the service's main function instead.
package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/connection"
	"github.com/dermesser/svcframe/log"
	"github.com/dermesser/svcframe/schema"
	"github.com/dermesser/svcframe/socket"
	"github.com/dermesser/svcframe/state"

	"github.com/google/uuid"
	zmq "github.com/pebbe/zmq4"
)

// DefaultPollTimeout bounds each poll of the event loop.
const DefaultPollTimeout = 100 * time.Millisecond

type Options struct {
	// WorkflowID is attached to the sends of Init, Main and the shutdown handlers. In main
	// mode an empty id is replaced by a random UUID.
	WorkflowID  string
	IncrementID bool
	PollTimeout time.Duration
	// Factory is shared with the caller if set; otherwise the service owns one.
	Factory *socket.Factory
	Metrics *Metrics
}

type Service struct {
	name   string
	desc   Descriptor
	config svcframe.Config
	opts   Options

	factory     *socket.Factory
	ownsFactory bool

	connections map[connection.Direction]map[string]connection.Connection
	states      map[connection.Direction]map[string]state.State

	targets targets
	toSend  svcframe.ToSend

	shutdownMu       sync.Mutex
	shutdownHandlers []svcframe.HookFunc
	shutdownOnce     sync.Once
	closeOnce        sync.Once
}

// New sets up a service: config, addresses and models pass through the descriptor's setup
// hooks and are validated, then every channel is constructed and its sockets are created.
// Any failure closes what was already built.
func New(name string, desc Descriptor, addresses Addresses, config svcframe.Config, opts Options) (*Service, error) {
	var err error

	if config == nil {
		config = svcframe.Config{}
	}
	if desc.SetupConfig != nil {
		if config, err = desc.SetupConfig(config); err != nil {
			return nil, fmt.Errorf("service %s: setup config: %w", name, err)
		}
	}
	if err = desc.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("service %s: %w", name, err)
	}

	if desc.SetupAddresses != nil {
		if addresses, err = desc.SetupAddresses(addresses, config); err != nil {
			return nil, fmt.Errorf("service %s: setup addresses: %w", name, err)
		}
	}

	connModels := desc.ConnectionModels.clone()
	if desc.SetupConnectionModels != nil {
		if connModels, err = desc.SetupConnectionModels(connModels, config); err != nil {
			return nil, fmt.Errorf("service %s: setup connection models: %w", name, err)
		}
	}

	stateModels := desc.StateModels.clone()
	if desc.SetupStateModels != nil {
		if stateModels, err = desc.SetupStateModels(stateModels, config); err != nil {
			return nil, fmt.Errorf("service %s: setup state models: %w", name, err)
		}
	}

	if desc.MainMode() && len(connModels.In) > 0 {
		return nil, fmt.Errorf("service %s: %w", name, ErrInboundInMainMode)
	}

	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if desc.MainMode() && opts.WorkflowID == "" {
		opts.WorkflowID = uuid.NewString()
	}

	s := &Service{
		name:        name,
		desc:        desc,
		config:      config,
		opts:        opts,
		factory:     opts.Factory,
		connections: map[connection.Direction]map[string]connection.Connection{connection.In: {}, connection.Out: {}},
		states:      map[connection.Direction]map[string]state.State{connection.In: {}, connection.Out: {}},
		targets:     targets{connections: map[string]target{}, states: map[string]target{}},
	}

	if err = s.build(connModels, stateModels, addresses); err != nil {
		s.Close()
		return nil, fmt.Errorf("service %s: %w", name, err)
	}

	s.toSend = newToSend(s.targets, opts.WorkflowID, opts.IncrementID, opts.Metrics)

	log.Log(log.LOGLEVEL_INFO, "Service", name, "set up with", len(s.connections[connection.In])+len(s.connections[connection.Out]),
		"connections and", len(s.states[connection.In])+len(s.states[connection.Out]), "states")
	return s, nil
}

var inboundTypes = map[string]bool{
	connection.TypeReplyer:    true,
	connection.TypeSubscriber: true,
	state.TypeFullUpdateIn:    true,
	state.TypeDeltaUpdateIn:   true,
}

func checkDirection(table, name, typ string, dir connection.Direction) error {
	if (dir == connection.In) != inboundTypes[typ] {
		return &schema.ModelError{Section: table, Reason: fmt.Sprintf("%q of type %s declared as %s", name, typ, dir)}
	}
	return nil
}

func (s *Service) build(connModels, stateModels Models, addresses Addresses) error {
	for _, dir := range []connection.Direction{connection.Out, connection.In} {
		models, endpoints := stateModels.Out, addresses.States.Out
		if dir == connection.In {
			models, endpoints = stateModels.In, addresses.States.In
		}

		for name, model := range models {
			st, err := state.New(name, model, endpoints.lookup(name))

			if err != nil {
				return err
			}
			if err = checkDirection("states", name, st.Type(), dir); err != nil {
				return err
			}
			s.states[dir][name] = st

			if d, ok := st.(*state.DeltaUpdateIn); ok && s.opts.Metrics != nil {
				d.OnGap = func(name string, _, _ int64) {
					s.opts.Metrics.Resyncs.WithLabelValues(name).Inc()
				}
			}
			if dir == connection.Out {
				s.targets.states[name] = st
			}
		}
	}

	for _, dir := range []connection.Direction{connection.In, connection.Out} {
		models, endpoints := connModels.Out, addresses.Connections.Out
		if dir == connection.In {
			models, endpoints = connModels.In, addresses.Connections.In
		}

		for name, model := range models {
			c, err := connection.New(name, model, endpoints.lookup(name))

			if err != nil {
				return err
			}
			if err = checkDirection("connections", name, c.Type(), dir); err != nil {
				return err
			}
			s.connections[dir][name] = c

			if dir == connection.Out {
				s.targets.connections[name] = c
			}
		}
	}

	if s.factory == nil {
		f, err := socket.NewFactory(nil, nil)

		if err != nil {
			return err
		}
		s.factory, s.ownsFactory = f, true
	}

	for _, dir := range []connection.Direction{connection.Out, connection.In} {
		for _, st := range s.states[dir] {
			if err := st.RuntimeSetup(s.factory); err != nil {
				return fmt.Errorf("state %q: %w", st.Name(), err)
			}
		}
	}
	for _, dir := range []connection.Direction{connection.In, connection.Out} {
		for _, c := range s.connections[dir] {
			if err := c.RuntimeSetup(s.factory); err != nil {
				return fmt.Errorf("connection %q: %w", c.Name(), err)
			}
		}
	}
	return nil
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Config() svcframe.Config {
	return s.config
}

// ToSend returns the outbound function used by Init, Main and the shutdown handlers.
func (s *Service) ToSend() svcframe.ToSend {
	return s.toSend
}

func (s *Service) Connection(dir connection.Direction, name string) (connection.Connection, bool) {
	c, ok := s.connections[dir][name]
	return c, ok
}

func (s *Service) State(dir connection.Direction, name string) (state.State, bool) {
	st, ok := s.states[dir][name]
	return st, ok
}

// Current implements svcframe.States over the inbound states.
func (s *Service) Current(name string) (map[string]any, bool) {
	st, ok := s.states[connection.In][name]

	if !ok {
		return nil, false
	}
	r, ok := st.(state.Reader)

	if !ok {
		return nil, false
	}
	return r.Current(), true
}

func (s *Service) runtime() connection.Runtime {
	return connection.Runtime{
		ToSend: func(workflowID string) svcframe.ToSend {
			return newToSend(s.targets, workflowID, true, s.opts.Metrics)
		},
		States: s,
		Config: s.config,
	}
}

// inbound lists what the loop polls. Inbound connections are left out in main mode.
func (s *Service) inbound() []connection.Inbound {
	var ins []connection.Inbound

	if !s.desc.MainMode() {
		for _, c := range s.connections[connection.In] {
			ins = append(ins, c.InboundSocketsAndTriggeredFunctions()...)
		}
	}
	for _, dir := range []connection.Direction{connection.In, connection.Out} {
		for _, st := range s.states[dir] {
			ins = append(ins, st.InboundSocketsAndTriggeredFunctions()...)
		}
	}
	return ins
}

// Run runs Init and then either the event loop or Main until ctx is cancelled, SIGINT or
// SIGTERM arrives, or (in main mode) Main returns. On a signal or cancellation the shutdown
// handlers run before Run returns. The caller closes the service afterwards.
func (s *Service) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.desc.Init != nil {
		if err := s.desc.Init(s.toSend, s, s.config); err != nil {
			return fmt.Errorf("service %s: init: %w", s.name, err)
		}
	}

	if s.desc.MainMode() {
		return s.runMain(ctx)
	}

	log.Log(log.LOGLEVEL_INFO, "Service", s.name, "entering event loop")
	err := s.loop(ctx, s.inbound())

	if err == nil {
		s.Shutdown()
	}
	return err
}

func (s *Service) runMain(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	loopDone := make(chan error, 1)

	go func() {
		loopDone <- s.loop(loopCtx, s.inbound())
	}()

	mainDone := make(chan error, 1)

	go func() {
		log.Log(log.LOGLEVEL_INFO, "Service", s.name, "running main with workflow id", s.opts.WorkflowID)
		mainDone <- s.desc.Main(s.toSend, s.config)
	}()

	var err error

	select {
	case err = <-mainDone:
		if err != nil {
			err = fmt.Errorf("service %s: main: %w", s.name, err)
		}
	case <-ctx.Done():
		s.Shutdown()
	}

	cancel()

	if lerr := <-loopDone; err == nil {
		err = lerr
	}
	return err
}

// loop services the given inbound sockets until ctx is done. A failing frame is logged and
// counted; failing to poll or read a socket ends the loop.
func (s *Service) loop(ctx context.Context, inbound []connection.Inbound) error {
	poller := socket.NewPoller()
	bySocket := make(map[*zmq.Socket]connection.Inbound, len(inbound))

	for _, in := range inbound {
		poller.Add(in.Socket)
		bySocket[in.Socket] = in
	}

	rt := s.runtime()

	for ctx.Err() == nil {
		ready, err := poller.Poll(s.opts.PollTimeout)

		if err != nil {
			return fmt.Errorf("service %s: poll: %w", s.name, err)
		}

		for _, sock := range ready {
			in := bySocket[sock]
			frame, err := sock.RecvBytes(0)

			if err != nil {
				return &socket.TransportError{Op: "receive", Address: in.Channel, Err: err}
			}

			s.handle(in, frame, rt)
		}
	}
	return nil
}

func (s *Service) handle(in connection.Inbound, frame []byte, rt connection.Runtime) {
	start := time.Now()
	err := in.Process(frame, rt)

	if m := s.opts.Metrics; m != nil {
		if err != nil {
			m.HandlerErrors.WithLabelValues(in.Channel).Inc()
		}
		m.HandlerDuration.WithLabelValues(in.Channel).Observe(time.Since(start).Seconds())
		m.FramesReceived.WithLabelValues(in.Channel).Inc()
	}

	if err != nil {
		log.Log(log.LOGLEVEL_ERRORS, "Processing frame on", in.Channel, "failed:", err.Error())
	}
}

// Close closes every channel and, if the service created it, the socket factory.
func (s *Service) Close() error {
	var first error

	s.closeOnce.Do(func() {
		keep := func(err error) {
			if err != nil && first == nil {
				first = err
			}
		}

		for _, dir := range []connection.Direction{connection.In, connection.Out} {
			for _, c := range s.connections[dir] {
				keep(c.Close())
			}
			for _, st := range s.states[dir] {
				keep(st.Close())
			}
		}
		if s.ownsFactory && s.factory != nil {
			keep(s.factory.Close())
		}
	})
	return first
}
