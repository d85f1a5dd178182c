package securitymanager

import (
	"errors"

	"github.com/pebbe/zmq4"
)

const DONOTWRITE = "___donotwrite_key_to_file"
const DONOTREAD = "___donotread_key_from_file"
const AUTH_DOMAIN = "svcframe"

// Key management for channel sockets, built after the Iron House example of ZeroMQ's CURVE
// security documentation. The side that binds an address acts as CURVE server
// (BinderSecurityManager); the side that connects acts as CURVE client (ConnectorSecurityManager).
// Which side that is depends on the wire pattern: replyers and plain publishers bind,
// binder subscribers bind, everything else connects.

// BinderSecurityManager sets up encryption and authentication on binding sockets and can
// additionally restrict peers by IP address.
type BinderSecurityManager struct {
	*keyWriteLoader
	// Z85 keys
	allowed_peer_keys []string

	// Only set one of both!
	allowed_peer_addresses []string
	denied_peer_addresses  []string
}

// Set up key manager and generate new key pair.
func NewBinderSecurityManager() (*BinderSecurityManager, error) {
	mgr := &BinderSecurityManager{keyWriteLoader: new(keyWriteLoader)}
	var err error

	mgr.public, mgr.private, err = zmq4.NewCurveKeypair()

	if err != nil {
		return nil, err
	}

	return mgr, nil
}

// Apply the internal keys to a socket that is about to bind.
// This must be called before Bind()!
// Safe to call on a nil manager (nothing happens in that case)
func (mgr *BinderSecurityManager) ApplyToBindingSocket(sock *zmq4.Socket) error {
	if mgr == nil {
		return nil
	}

	if mgr.private == "" || mgr.public == "" {
		return errors.New("Incomplete initialization: No key(s)")
	}

	t, err := sock.GetType()

	if err != nil {
		return err
	}

	switch t {
	case zmq4.REP, zmq4.PUB, zmq4.SUB, zmq4.XPUB, zmq4.XSUB:
	default:
		return errors.New("Wrong socket type for binding side (not REP, PUB, SUB, XPUB, XSUB): " + t.String())
	}

	// start in any case (returns error if already running, ignore that)
	zmq4.AuthStart()

	if mgr.allowed_peer_addresses != nil {
		zmq4.AuthAllow(AUTH_DOMAIN, mgr.allowed_peer_addresses...)
	} else if mgr.denied_peer_addresses != nil {
		zmq4.AuthDeny(AUTH_DOMAIN, mgr.denied_peer_addresses...)
	}

	if mgr.allowed_peer_keys != nil {
		zmq4.AuthCurveAdd(AUTH_DOMAIN, mgr.allowed_peer_keys...)
	} else {
		zmq4.AuthCurveAdd(AUTH_DOMAIN, zmq4.CURVE_ALLOW_ANY)
	}

	return sock.ServerAuthCurve(AUTH_DOMAIN, mgr.private)
}

// Tear down all resources associated with authentication
func (mgr *BinderSecurityManager) StopManager() {
	zmq4.AuthStop()
}

func (mgr *BinderSecurityManager) SetKeys(public, private string) {
	mgr.public, mgr.private = public, private
}

func (mgr *BinderSecurityManager) GetPublicKey() string {
	return mgr.public
}

// Add keys of connecting peers that are accepted.
func (mgr *BinderSecurityManager) AddPeerKeys(keys ...string) {
	mgr.allowed_peer_keys = append(mgr.allowed_peer_keys, keys...)
}

// Remove all peers from the whitelist, effectively enforcing an OPEN policy
func (mgr *BinderSecurityManager) ResetPeerKeys() {
	mgr.allowed_peer_keys = nil
}

// Remove all peers from the address black- and whitelist
func (mgr *BinderSecurityManager) ResetBlackWhiteLists() {
	mgr.allowed_peer_addresses = nil
	mgr.denied_peer_addresses = nil
}

// Add peers (IP addresses or ranges) to the whitelist. A whitelist is mutually exclusive with a blacklist, meaning
// that all blacklisted peers are removed when calling this function.
func (mgr *BinderSecurityManager) WhitelistPeers(addrs ...string) {
	mgr.denied_peer_addresses = nil
	mgr.allowed_peer_addresses = append(mgr.allowed_peer_addresses, addrs...)
}

// Add peers (IP addresses or ranges) to the blacklist. A blacklist is mutually exclusive with a
// whitelist, meaning that all whitelisted peers are removed when calling this function.
func (mgr *BinderSecurityManager) BlacklistPeers(addrs ...string) {
	mgr.allowed_peer_addresses = nil
	mgr.denied_peer_addresses = append(mgr.denied_peer_addresses, addrs...)
}

// ConnectorSecurityManager manages encryption for connecting sockets.
type ConnectorSecurityManager struct {
	*keyWriteLoader
	// Public key of the binding side to connect to.
	binderPublic string
}

// NewConnectorSecurityManager sets up the manager and generates a new key pair.
//
// The binding side's public key must be set before sockets are connected; otherwise the
// handshake will not succeed.
func NewConnectorSecurityManager() (*ConnectorSecurityManager, error) {
	mgr := &ConnectorSecurityManager{keyWriteLoader: new(keyWriteLoader)}
	var err error

	mgr.public, mgr.private, err = zmq4.NewCurveKeypair()

	if err != nil {
		return nil, err
	}

	return mgr, nil
}

// ApplyToConnectingSocket sets up a socket for CURVE security. If called on nil, does
// nothing. This must be called before Connect()!
func (mgr *ConnectorSecurityManager) ApplyToConnectingSocket(sock *zmq4.Socket) error {
	if mgr == nil {
		return nil
	}

	if mgr.binderPublic == "" || mgr.public == "" || mgr.private == "" {
		return errors.New("Not all three keys (binder's public, own public, own private) are set")
	}

	t, err := sock.GetType()

	if err != nil {
		return err
	}

	switch t {
	case zmq4.REQ, zmq4.SUB, zmq4.PUB, zmq4.XSUB, zmq4.XPUB:
	default:
		return errors.New("Wrong socket type for connecting side (not REQ, SUB, PUB, XSUB, XPUB): " + t.String())
	}

	return sock.ClientAuthCurve(mgr.binderPublic, mgr.public, mgr.private)
}

func (mgr *ConnectorSecurityManager) SetBinderPubkey(key string) {
	mgr.binderPublic = key
}

// LoadBinderPubkey loads the public key of the binding side from the specified file.
func (mgr *ConnectorSecurityManager) LoadBinderPubkey(keyfile string) error {
	kwl := new(keyWriteLoader)

	err := kwl.LoadKeys(keyfile, DONOTREAD)

	if err != nil {
		return err
	}

	mgr.binderPublic = kwl.public

	return nil
}

func (mgr *ConnectorSecurityManager) SetKeys(public, private string) {
	mgr.public, mgr.private = public, private
}

func (mgr *ConnectorSecurityManager) GetPublicKey() string {
	return mgr.public
}
