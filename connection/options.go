package connection

import (
	"fmt"
	"time"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/socket"
	"github.com/mitchellh/mapstructure"
)

// CreationOptions are the scalar creation arguments understood by the socket-backed variants.
// Handler-valued arguments are read separately.
type CreationOptions struct {
	Topic              string   `mapstructure:"topic"`
	IsXPub             bool     `mapstructure:"is_x_pub"`
	IsBinder           bool     `mapstructure:"is_binder"`
	WaitAfterCreationS *float64 `mapstructure:"wait_after_creation_s"`
	MessageBuffer      int      `mapstructure:"message_buffer"`
}

func DecodeCreationOptions(args map[string]any) (CreationOptions, error) {
	var opts CreationOptions

	if err := mapstructure.Decode(args, &opts); err != nil {
		return opts, fmt.Errorf("creation arguments: %w", err)
	}
	if opts.WaitAfterCreationS != nil && *opts.WaitAfterCreationS < 0 {
		return opts, fmt.Errorf("creation arguments: negative wait_after_creation_s %v", *opts.WaitAfterCreationS)
	}
	if opts.MessageBuffer < 0 {
		return opts, fmt.Errorf("creation arguments: negative message_buffer %d", opts.MessageBuffer)
	}
	return opts, nil
}

func (o CreationOptions) SettleDelay() time.Duration {
	if o.WaitAfterCreationS == nil {
		return socket.DefaultSettleDelay
	}
	return time.Duration(*o.WaitAfterCreationS * float64(time.Second))
}

// SocketOptions converts the options for the socket factory. subscription is only used by
// subscribers.
func (o CreationOptions) SocketOptions(subscription []byte) socket.Options {
	return socket.Options{
		IsXPub:       o.IsXPub,
		IsBinder:     o.IsBinder,
		Subscription: subscription,
		SettleDelay:  o.SettleDelay(),
	}
}

// HandlerArgument reads a handler-valued creation argument.
func HandlerArgument(args map[string]any, key string) (svcframe.Handler, error) {
	switch h := args[key].(type) {
	case svcframe.Handler:
		if h == nil {
			return nil, fmt.Errorf("creation argument %s: nil handler", key)
		}
		return h, nil
	case nil:
		return nil, fmt.Errorf("creation argument %s: missing", key)
	default:
		return nil, fmt.Errorf("creation argument %s: %T is not a svcframe.Handler", key, h)
	}
}
