package log

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strings"
	"sync"
)

const (
	// Log absolutely nothing
	LOGLEVEL_NONE int = iota
	// Log situations that are not expected to happen and
	// are difficult to handle (e.g. a handler failing, a socket that cannot be read)
	LOGLEVEL_ERRORS
	// Log non-critical situations that might happen, but shouldn't (e.g. a sequence gap on a delta state)
	LOGLEVEL_WARNINGS
	// Log situations that are expected, but important for the operation
	LOGLEVEL_INFO
	// Log everything, including every frame
	LOGLEVEL_DEBUG
)

const logger_flags = log.LstdFlags | log.Lmicroseconds

var (
	lock     sync.Mutex
	logger   = log.New(os.Stderr, "svcframe ", logger_flags)
	loglevel = LOGLEVEL_WARNINGS
)

var loglevel_strings []string = []string{"[NON]", "[ERR]", "[WRN]", "[INF]", "[DBG]"}

func loglevel_to_string(ll int) string {
	if ll < 0 || ll >= len(loglevel_strings) {
		return "[???]"
	}
	return loglevel_strings[ll]
}

// Set the global log level
func SetLoglevel(ll int) {
	lock.Lock()
	defer lock.Unlock()
	loglevel = ll
}

// Redirect the log output, e.g. to a file or a test buffer.
func SetOutput(w io.Writer) {
	lock.Lock()
	defer lock.Unlock()
	logger = log.New(w, logger.Prefix(), logger_flags)
}

// ParseLevel maps names as used on the command line ("debug", "info", "warn", "error", "none")
// to a LOGLEVEL constant.
func ParseLevel(s string) (int, error) {
	switch strings.ToLower(s) {
	case "none":
		return LOGLEVEL_NONE, nil
	case "error", "errors":
		return LOGLEVEL_ERRORS, nil
	case "warn", "warning", "warnings":
		return LOGLEVEL_WARNINGS, nil
	case "info":
		return LOGLEVEL_INFO, nil
	case "debug":
		return LOGLEVEL_DEBUG, nil
	}
	return LOGLEVEL_NONE, fmt.Errorf("unknown log level %q", s)
}

// Performance-enhancer: Prevent unnecessary log calls
func IsLoggingEnabled(ll int) bool {
	lock.Lock()
	defer lock.Unlock()
	return loglevel >= ll
}

func Log(ll int, what ...interface{}) {
	lock.Lock()
	defer lock.Unlock()
	if ll <= loglevel {
		logger.Printf("%s: %s", loglevel_to_string(ll), strings.TrimSuffix(fmt.Sprintln(what...), "\n"))
	}
}

func Logf(ll int, format string, args ...interface{}) {
	lock.Lock()
	defer lock.Unlock()
	if ll <= loglevel {
		logger.Printf("%s: %s", loglevel_to_string(ll), fmt.Sprintf(format, args...))
	}
}

func mapToChar(i int) byte {
	i = i % (10 + 26 + 26)
	if i < 10 {
		return byte('0' + i)
	} else if i < 10+26 {
		return byte('A' + i - 10)
	} else if i < 10+26+26 {
		return byte('a' + i - 10 - 26)
	}
	return byte('_')
}

// Returns a short random alphanumeric string.
// This is used to tag inbound frames in order to track them across log lines.
func GetLogToken() string {
	str := make([]byte, 6)
	for i := range str {
		str[i] = mapToChar(rand.Int())
	}
	return string(str)
}
