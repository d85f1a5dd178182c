package socket

import (
	"fmt"
	"net"
	"strings"
)

// ToUrl turns a configured address into a zmq endpoint.
// "host:port" becomes "tcp://host:port"; anything carrying a scheme
// (tcp://, ipc://, inproc://) is used as is.
func ToUrl(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("empty address")
	}
	if strings.Contains(address, "://") {
		return address, nil
	}

	host, port, err := net.SplitHostPort(address)

	if err != nil {
		return "", err
	}
	if port == "" {
		return "", fmt.Errorf("address %q has no port", address)
	}
	if host == "" {
		host = "*"
	}

	return "tcp://" + net.JoinHostPort(host, port), nil
}

// bindUrl maps a wildcard-less tcp endpoint to its bindable form. zmq cannot bind to
// hostnames other than interfaces, so "localhost" is bound as 127.0.0.1.
func bindUrl(url string) string {
	return strings.Replace(url, "tcp://localhost:", "tcp://127.0.0.1:", 1)
}

// connectUrl maps a wildcard bind endpoint to a connectable one.
func connectUrl(url string) string {
	return strings.Replace(url, "tcp://*:", "tcp://127.0.0.1:", 1)
}
