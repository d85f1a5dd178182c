package connection

import (
	"errors"
	"fmt"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/codec"
	"github.com/dermesser/svcframe/log"

	zmq "github.com/pebbe/zmq4"
)

// Inbound pairs a socket with the steps applied to each frame read from it:
// Decode, ArgsValidator, StateFunction, Handler, ReturnValidator, ReturnFunction.
// Any step may be nil.
type Inbound struct {
	Channel string
	Socket  *zmq.Socket

	Decode        func(frame []byte) (codec.Envelope, error)
	ArgsValidator func(args map[string]any) error
	// StateFunction applies the args to local state. Returning nil args ends processing of
	// the frame without calling Handler.
	StateFunction func(args map[string]any) (map[string]any, error)
	Handler       svcframe.Handler
	// ReturnValidator checks what Handler returned.
	ReturnValidator func(ret map[string]any) error
	// ReturnFunction is called exactly once per processed frame when set, with the validated
	// handler result or the error that ended processing.
	ReturnFunction func(ret map[string]any, workflowID string, failure error) error
}

// Runtime is what handlers are invoked with. ToSend builds the outbound function for a
// frame's workflow id.
type Runtime struct {
	ToSend func(workflowID string) svcframe.ToSend
	States svcframe.States
	Config svcframe.Config
}

// HandlerError wraps a failure returned by a handler, as opposed to a failure of the frame itself.
type HandlerError struct {
	Channel string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler of %s: %v", e.Channel, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Receive reads one frame and runs it through Process.
func (in Inbound) Receive(rt Runtime) error {
	frame, err := in.Socket.RecvBytes(0)

	if err != nil {
		return fmt.Errorf("receive on %s: %w", in.Channel, err)
	}

	return in.Process(frame, rt)
}

// Process runs one frame through the pipeline. Frames for a foreign topic are dropped
// without error.
func (in Inbound) Process(frame []byte, rt Runtime) error {
	var token string
	if log.IsLoggingEnabled(log.LOGLEVEL_DEBUG) {
		token = log.GetLogToken()
		log.Log(log.LOGLEVEL_DEBUG, "[", token, "] Frame of", len(frame), "bytes on", in.Channel)
	}

	env, ret, err := in.process(frame, rt)

	if errors.Is(err, ErrForeignTopic) {
		log.Log(log.LOGLEVEL_DEBUG, "[", token, "] Dropped:", err.Error())
		return nil
	}

	if in.ReturnFunction != nil {
		if rerr := in.ReturnFunction(ret, env.WorkflowID, err); rerr != nil && err == nil {
			err = rerr
		}
	}

	if err != nil && token != "" {
		log.Log(log.LOGLEVEL_DEBUG, "[", token, "] Failed:", err.Error())
	}
	return err
}

func (in Inbound) process(frame []byte, rt Runtime) (codec.Envelope, map[string]any, error) {
	env := codec.Envelope{}
	var err error

	if in.Decode != nil {
		env, err = in.Decode(frame)

		if err != nil {
			return env, nil, err
		}
	}

	args := env.Args
	if args == nil {
		args = map[string]any{}
	}

	if in.ArgsValidator != nil {
		if err = in.ArgsValidator(args); err != nil {
			return env, nil, fmt.Errorf("%s: invalid arguments: %w", in.Channel, err)
		}
	}

	if in.StateFunction != nil {
		args, err = in.StateFunction(args)

		if err != nil {
			return env, nil, err
		}
		if args == nil {
			return env, nil, nil
		}
	}

	if in.Handler == nil {
		return env, nil, nil
	}

	var toSend svcframe.ToSend
	if rt.ToSend != nil {
		toSend = rt.ToSend(env.WorkflowID)
	}

	ret, err := in.Handler(args, toSend, rt.States, rt.Config)

	if err != nil {
		return env, nil, &HandlerError{Channel: in.Channel, Err: err}
	}

	if in.ReturnValidator != nil {
		if ret == nil {
			ret = map[string]any{}
		}
		if err = in.ReturnValidator(ret); err != nil {
			return env, nil, fmt.Errorf("%s: invalid return arguments: %w", in.Channel, err)
		}
	}

	return env, ret, nil
}
