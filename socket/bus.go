package socket

import (
	"context"
	"fmt"

	"github.com/dermesser/svcframe/log"

	zmq "github.com/pebbe/zmq4"
)

// RunBus relays between many publishers and many subscribers. Publishers in x-pub mode
// connect to publisherSide, subscribers connect to subscriberSide. It blocks until ctx is done.
func (f *Factory) RunBus(ctx context.Context, publisherSide, subscriberSide string) error {
	backend, err := f.build(zmq.XSUB, publisherSide, true, nil, 0)

	if err != nil {
		return err
	}
	defer f.CloseSocket(backend)

	frontend, err := f.build(zmq.XPUB, subscriberSide, true, nil, 0)

	if err != nil {
		return err
	}
	defer f.CloseSocket(frontend)

	controlUrl := fmt.Sprintf("inproc://svcframe-bus-%s", log.GetLogToken())

	control, err := f.ctx.NewSocket(zmq.PAIR)

	if err != nil {
		return &TransportError{Op: "create PAIR", Address: controlUrl, Err: err}
	}
	defer control.Close()

	if err = control.Bind(controlUrl); err != nil {
		return &TransportError{Op: "bind", Address: controlUrl, Err: err}
	}

	steer, err := f.ctx.NewSocket(zmq.PAIR)

	if err != nil {
		return &TransportError{Op: "create PAIR", Address: controlUrl, Err: err}
	}

	if err = steer.Connect(controlUrl); err != nil {
		steer.Close()
		return &TransportError{Op: "connect", Address: controlUrl, Err: err}
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		defer steer.Close()
		select {
		case <-ctx.Done():
			steer.Send("TERMINATE", 0)
		case <-done:
		}
	}()

	log.Log(log.LOGLEVEL_INFO, "Bus relaying publishers on", publisherSide, "to subscribers on", subscriberSide)

	err = zmq.ProxySteerable(frontend, backend, nil, control)

	if err != nil && ctx.Err() == nil {
		return &TransportError{Op: "proxy", Err: err}
	}

	log.Log(log.LOGLEVEL_INFO, "Bus stopped")
	return nil
}
