package socket

import (
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// Poller waits on a group of inbound sockets.
type Poller struct {
	poller  *zmq.Poller
	sockets []*zmq.Socket
}

func NewPoller(sockets ...*zmq.Socket) *Poller {
	p := &Poller{poller: zmq.NewPoller()}
	for _, s := range sockets {
		p.Add(s)
	}
	return p
}

func (p *Poller) Add(sock *zmq.Socket) {
	p.poller.Add(sock, zmq.POLLIN)
	p.sockets = append(p.sockets, sock)
}

func (p *Poller) Len() int {
	return len(p.sockets)
}

// Poll waits up to timeout and returns the sockets that are ready to read, or none after the
// timeout. An interrupted poll is reported as a timeout.
func (p *Poller) Poll(timeout time.Duration) ([]*zmq.Socket, error) {
	if len(p.sockets) == 0 {
		time.Sleep(timeout)
		return nil, nil
	}

	polled, err := p.poller.Poll(timeout)

	if err != nil {
		if zmq.AsErrno(err) == zmq.Errno(syscall.EINTR) {
			return nil, nil
		}
		return nil, &TransportError{Op: "poll", Err: err}
	}

	ready := make([]*zmq.Socket, 0, len(polled))
	for _, item := range polled {
		if item.Events&zmq.POLLIN != 0 {
			ready = append(ready, item.Socket)
		}
	}
	return ready, nil
}
