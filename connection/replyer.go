package connection

import (
	"fmt"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/log"
	"github.com/dermesser/svcframe/schema"
	"github.com/dermesser/svcframe/socket"

	zmq "github.com/pebbe/zmq4"
)

var replyerVariant = Variant{
	Type:      TypeReplyer,
	Addresses: schema.Contract{Required: schema.Sections{"replyer": schema.String}},
	CreationArguments: schema.Contract{
		Required: schema.Sections{"on_new_request": svcframe.HandlerSpec},
	},
}

// Replyer answers requests with the return value of its on_new_request handler. It has no
// outbound path of its own.
type Replyer struct {
	base

	handler svcframe.Handler
	sock    *zmq.Socket
}

func NewReplyer(name string, model schema.Model, addresses map[string]string) (*Replyer, error) {
	b, err := newBase(name, model, addresses, replyerVariant)

	if err != nil {
		return nil, err
	}

	handler, err := HandlerArgument(b.model.RequiredCreationArguments, "on_new_request")

	if err != nil {
		return nil, fmt.Errorf("replyer %q: %w", name, err)
	}

	return &Replyer{base: b, handler: handler}, nil
}

func (r *Replyer) CompatibleTypes() []string {
	return []string{TypeRequester}
}

func (r *Replyer) AddressesModel() schema.Contract {
	return replyerVariant.Addresses
}

func (r *Replyer) CreationArgumentsModel() schema.Contract {
	return replyerVariant.CreationArguments
}

func (r *Replyer) RuntimeSetup(f *socket.Factory) error {
	sock, err := f.Replyer(r.addresses["replyer"])

	if err != nil {
		return err
	}

	r.factory, r.sock = f, sock
	return nil
}

func (r *Replyer) InboundSocketsAndTriggeredFunctions() []Inbound {
	return []Inbound{{
		Channel:         r.name,
		Socket:          r.sock,
		Decode:          codec.DecodeEnvelope,
		ArgsValidator:   r.model.ValidateArgs,
		Handler:         r.handler,
		ReturnValidator: r.model.ValidateReturn,
		ReturnFunction:  ReplyFunction(r.sock, r.name),
	}}
}

func (r *Replyer) Send(codec.Envelope) (map[string]any, error) {
	return nil, unsupported(r)
}

func (r *Replyer) Close() error {
	if r.factory == nil {
		return nil
	}
	return r.factory.CloseSocket(r.sock)
}

// ReplyFunction returns a ReturnFunction that answers on a REP socket. A failure is sent
// back as the envelope's error so the requester is not left waiting.
func ReplyFunction(sock *zmq.Socket, channel string) func(map[string]any, string, error) error {
	return func(ret map[string]any, workflowID string, failure error) error {
		env := codec.Envelope{WorkflowID: workflowID}

		if failure != nil {
			env.Error = failure.Error()
		} else {
			if ret == nil {
				ret = map[string]any{}
			}
			env.ReturnArgs = ret
		}

		frame, err := codec.EncodeEnvelope(env)

		if err != nil {
			// still owe the requester an answer
			frame, _ = codec.EncodeEnvelope(codec.Envelope{WorkflowID: workflowID, Error: err.Error()})
		}

		_, sendErr := sock.SendBytes(frame, 0)

		if sendErr != nil {
			log.Log(log.LOGLEVEL_ERRORS, "Could not send reply on", channel, ":", sendErr.Error())
			return &socket.TransportError{Op: "send", Address: channel, Err: sendErr}
		}
		if err != nil {
			return fmt.Errorf("replyer %q: encode reply: %w", channel, err)
		}
		return nil
	}
}
