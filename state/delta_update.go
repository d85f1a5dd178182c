package state

import (
	"fmt"
	"sync"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/connection"
	"github.com/dermesser/svcframe/log"
	"github.com/dermesser/svcframe/schema"
	"github.com/dermesser/svcframe/socket"

	zmq "github.com/pebbe/zmq4"
)

var deltaUpdateOutVariant = variant{
	Variant: connection.Variant{
		Type: TypeDeltaUpdateOut,
		Addresses: schema.Contract{Required: schema.Sections{
			"publisher": schema.String,
			"replyer":   schema.String,
		}},
		CreationArguments: schema.Contract{Optional: connection.PublisherCreationArguments},
	},
	stateArguments: deltaStateArguments,
}

// DeltaUpdateOut publishes snapshots and deltas and answers snapshot requests from
// receivers that fell behind.
//
// Sequence numbers are chosen by the caller of Send. A caller that does not number its
// deltas consecutively forces receivers into a resync on every gap, and their state is only
// consistent again after the next snapshot.
type DeltaUpdateOut struct {
	base

	pubMu sync.Mutex
	pub   *zmq.Socket
	rep   *zmq.Socket

	mu      sync.Mutex
	lastNum int64
	current map[string]any
}

func NewDeltaUpdateOut(name string, model schema.Model, addresses map[string]string) (*DeltaUpdateOut, error) {
	b, err := newBase(name, model, addresses, deltaUpdateOutVariant)

	if err != nil {
		return nil, err
	}

	return &DeltaUpdateOut{base: b, current: map[string]any{}}, nil
}

func (s *DeltaUpdateOut) CompatibleTypes() []string {
	return []string{TypeDeltaUpdateIn}
}

func (s *DeltaUpdateOut) RuntimeSetup(f *socket.Factory) error {
	rep, err := f.Replyer(s.addresses["replyer"])

	if err != nil {
		return err
	}

	pub, err := f.Publisher(s.addresses["publisher"], s.options.SocketOptions(nil))

	if err != nil {
		f.CloseSocket(rep)
		return err
	}

	s.factory, s.pub, s.rep = f, pub, rep
	return nil
}

func (s *DeltaUpdateOut) InboundSocketsAndTriggeredFunctions() []connection.Inbound {
	return []connection.Inbound{{
		Channel: s.name,
		Socket:  s.rep,
		Decode:  codec.DecodeEnvelope,
		ArgsValidator: func(args map[string]any) error {
			return schema.Validate(args, nil, nil)
		},
		Handler:         s.answerSnapshot,
		ReturnValidator: deltaStateArguments.Validate,
		ReturnFunction:  connection.ReplyFunction(s.rep, s.name),
	}}
}

func (s *DeltaUpdateOut) answerSnapshot(map[string]any, svcframe.ToSend, svcframe.States, svcframe.Config) (map[string]any, error) {
	snap := s.Snapshot()
	log.Log(log.LOGLEVEL_INFO, "Answering snapshot request on", s.name, "at", snap.Num)
	return snap.Args(), nil
}

// Snapshot returns the producer's own view: everything sent so far, merged.
func (s *DeltaUpdateOut) Snapshot() Delta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Delta{Num: s.lastNum, IsSnapshot: true, State: copyState(s.current)}
}

// Send records the update in the producer's view and broadcasts it verbatim.
func (s *DeltaUpdateOut) Send(env codec.Envelope) (map[string]any, error) {
	d, err := ParseDelta(env.Args)

	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", s.Type(), s.name, err)
	}

	s.mu.Lock()
	if d.IsSnapshot {
		s.current = copyState(d.State)
	} else {
		PerformDeltaUpdate(s.current, d.State)
	}
	s.lastNum = d.Num
	s.mu.Unlock()

	return nil, connection.Publish(&s.pubMu, s.pub, s.name, s.options.Topic, env)
}

func (s *DeltaUpdateOut) Close() error {
	if s.factory == nil {
		return nil
	}
	err := s.factory.CloseSocket(s.pub)
	if rerr := s.factory.CloseSocket(s.rep); err == nil {
		err = rerr
	}
	return err
}

var deltaUpdateInVariant = variant{
	Variant: connection.Variant{
		Type: TypeDeltaUpdateIn,
		Addresses: schema.Contract{Required: schema.Sections{
			"subscriber": schema.String,
			"requester":  schema.String,
		}},
		CreationArguments: schema.Contract{Optional: inCreationArguments},
	},
	stateArguments: deltaStateArguments,
}

// DeltaUpdateIn applies snapshots and in-order deltas. A stale delta is dropped; a delta
// beyond the next expected number is dropped too and answered with a synchronous snapshot
// request to the producer. Missing deltas are never guessed.
type DeltaUpdateIn struct {
	base

	handler svcframe.Handler
	sub     *zmq.Socket

	reqMu sync.Mutex
	req   *zmq.Socket

	mu      sync.RWMutex
	tracker *Tracker

	// OnGap, if set, is called for every detected gap before the resync.
	OnGap func(name string, expected, got int64)
}

func NewDeltaUpdateIn(name string, model schema.Model, addresses map[string]string) (*DeltaUpdateIn, error) {
	b, err := newBase(name, model, addresses, deltaUpdateInVariant)

	if err != nil {
		return nil, err
	}

	handler, err := b.optionalHandler()

	if err != nil {
		return nil, err
	}

	return &DeltaUpdateIn{base: b, handler: handler, tracker: NewTracker()}, nil
}

func (s *DeltaUpdateIn) CompatibleTypes() []string {
	return []string{TypeDeltaUpdateOut}
}

func (s *DeltaUpdateIn) RuntimeSetup(f *socket.Factory) error {
	prefix, err := codec.TopicPrefix(s.options.Topic)

	if err != nil {
		return err
	}

	req, err := f.Requester(s.addresses["requester"])

	if err != nil {
		return err
	}

	sub, err := f.Subscriber(s.addresses["subscriber"], s.options.SocketOptions(prefix))

	if err != nil {
		f.CloseSocket(req)
		return err
	}

	s.factory, s.sub, s.req = f, sub, req
	return nil
}

func (s *DeltaUpdateIn) InboundSocketsAndTriggeredFunctions() []connection.Inbound {
	return []connection.Inbound{{
		Channel:       s.name,
		Socket:        s.sub,
		Decode:        connection.TopicDecoder(s.name, s.options.Topic),
		ArgsValidator: s.model.ValidateArgs,
		StateFunction: s.apply,
		Handler:       s.handler,
	}}
}

func (s *DeltaUpdateIn) apply(args map[string]any) (map[string]any, error) {
	d, err := ParseDelta(args)

	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	expected := s.tracker.Next()
	outcome := s.tracker.Apply(d)
	s.mu.Unlock()

	switch outcome {
	case Stale:
		log.Log(log.LOGLEVEL_DEBUG, "Dropped stale delta", d.Num, "on", s.name, "expecting", expected)
		return nil, nil

	case Gap:
		log.Log(log.LOGLEVEL_WARNINGS, "Sequence gap on", s.name, ": expected", expected, "got", d.Num, "- requesting snapshot")
		if s.OnGap != nil {
			s.OnGap(s.name, expected, d.Num)
		}

		snap, err := s.resync()

		if err != nil {
			return nil, err
		}
		return snap.Args(), nil
	}

	return args, nil
}

// Resync requests a snapshot from the producer and installs it.
func (s *DeltaUpdateIn) Resync() error {
	_, err := s.resync()
	return err
}

func (s *DeltaUpdateIn) resync() (Delta, error) {
	ret, err := connection.Request(&s.reqMu, s.req, s.name, codec.Envelope{Args: map[string]any{}})

	if err != nil {
		return Delta{}, fmt.Errorf("%s %q: resync: %w", s.Type(), s.name, err)
	}

	snap, err := ParseDelta(ret)

	if err != nil {
		return Delta{}, fmt.Errorf("%s %q: resync: %w", s.Type(), s.name, err)
	}
	if !snap.IsSnapshot {
		return Delta{}, fmt.Errorf("%s %q: resync: reply is not a snapshot", s.Type(), s.name)
	}

	s.mu.Lock()
	s.tracker.Apply(snap)
	s.mu.Unlock()

	log.Log(log.LOGLEVEL_INFO, "Resynced", s.name, "at", snap.Num)
	return snap, nil
}

func (s *DeltaUpdateIn) Current() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Current()
}

// NextExpected returns the number of the next delta that will be applied.
func (s *DeltaUpdateIn) NextExpected() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Next()
}

func (s *DeltaUpdateIn) Send(codec.Envelope) (map[string]any, error) {
	return nil, unsupported(s)
}

func (s *DeltaUpdateIn) Close() error {
	if s.factory == nil {
		return nil
	}
	err := s.factory.CloseSocket(s.sub)
	if rerr := s.factory.CloseSocket(s.req); err == nil {
		err = rerr
	}
	return err
}
