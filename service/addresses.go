package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Endpoints maps a channel name to its socket roles and their addresses, e.g.
// {"requester": "127.0.0.1:8001"}.
type Endpoints map[string]map[string]string

type Directed struct {
	In  Endpoints `yaml:"in"`
	Out Endpoints `yaml:"out"`
}

// Addresses is the external address configuration of a service.
type Addresses struct {
	Connections Directed `yaml:"connections"`
	States      Directed `yaml:"states"`
}

// LoadAddresses decodes an addresses document. JSON is accepted as well.
func LoadAddresses(data []byte) (Addresses, error) {
	var a Addresses
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&a); err != nil && !errors.Is(err, io.EOF) {
		return a, fmt.Errorf("addresses: %w", err)
	}
	return a, nil
}

func (e Endpoints) lookup(name string) map[string]string {
	if e == nil || e[name] == nil {
		return map[string]string{}
	}
	return e[name]
}
