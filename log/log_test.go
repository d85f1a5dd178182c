package log

import (
	"bytes"
	"testing"
)

func TestRandomStringIsRandom(t *testing.T) {
	a := GetLogToken()
	b := GetLogToken()
	if a == b {
		t.Fatal("strings are equal:", a, b)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	SetOutput(buf)
	SetLoglevel(LOGLEVEL_WARNINGS)

	Log(LOGLEVEL_DEBUG, "not shown")
	if buf.Len() != 0 {
		t.Fatal("debug message was logged at warning level:", buf.String())
	}

	Log(LOGLEVEL_ERRORS, "shown")
	if !bytes.Contains(buf.Bytes(), []byte("[ERR]: shown")) {
		t.Fatal("error message missing:", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]int{"debug": LOGLEVEL_DEBUG, "INFO": LOGLEVEL_INFO, "warn": LOGLEVEL_WARNINGS, "none": LOGLEVEL_NONE} {
		got, err := ParseLevel(name)
		if err != nil || got != want {
			t.Error("wrong level for", name, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogf(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	SetOutput(buf)
	SetLoglevel(LOGLEVEL_INFO)

	Logf(LOGLEVEL_INFO, "buffer of %s full at %d", "prices", 3)
	if !bytes.Contains(buf.Bytes(), []byte("[INF]: buffer of prices full at 3")) {
		t.Fatal("formatted message missing:", buf.String())
	}

	buf.Reset()
	Logf(LOGLEVEL_DEBUG, "hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatal("debug message was logged at info level:", buf.String())
	}
}
