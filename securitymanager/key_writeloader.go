package securitymanager

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Z85-encoded CURVE keys are always 40 characters long.
const keyLength = 40

// This struct is embedded in the *SecurityManager types
// to enable loading and writing keypairs.
type keyWriteLoader struct {
	public, private string
}

// Loads private and public key from the specified files.
// Does not initialize a key when the file name is DONOTREAD (for example
// when only the private key should be read from disk).
func (mgr *keyWriteLoader) LoadKeys(publicFile, privateFile string) error {
	if publicFile != DONOTREAD {
		var err error
		mgr.public, err = readKey(publicFile)

		if err != nil {
			return err
		}
	}

	if privateFile != DONOTREAD {
		var err error
		mgr.private, err = readKey(privateFile)

		if err != nil {
			return err
		}
	}
	return nil
}

func readKey(filename string) (string, error) {
	content, err := os.ReadFile(filename)

	if err != nil {
		return "", err
	}

	key := strings.TrimSpace(string(content))

	if len(key) != keyLength {
		return "", fmt.Errorf("key file %s: expected %d characters, got %d", filename, keyLength, len(key))
	}

	return key, nil
}

// Writes a keypair to the supplied files.
// If one of the file names is the constant DONOTWRITE, that file is skipped.
// e.g. mgr.WriteKeys("pubkey.txt", DONOTWRITE) writes only the public key.
func (mgr *keyWriteLoader) WriteKeys(publicFile, privateFile string) error {
	if publicFile != DONOTWRITE {
		err := writeKey(publicFile, mgr.public)

		if err != nil {
			return err
		}
	}

	if privateFile != DONOTWRITE {
		err := writeKey(privateFile, mgr.private)

		if err != nil {
			return err
		}
	}
	return nil
}

func writeKey(filename, key string) error {
	if len(key) != keyLength {
		return errors.New("refusing to write incomplete key to " + filename)
	}
	return os.WriteFile(filename, []byte(key), 0600)
}
