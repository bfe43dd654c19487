package shared

import (
	"bytes"
	"testing"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == "" || b == "" {
		t.Fatal("GenerateID() returned empty string")
	}

	if a == b {
		t.Errorf("GenerateID() returned duplicate IDs: %s", a)
	}

	if len(a) != 36 {
		t.Errorf("GenerateID() length = %d, want 36", len(a))
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	logger.Info("hello")

	if buf.Len() == 0 {
		t.Error("logger wrote nothing")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	child := WithLogger(logger, "component", "scheduler")
	child.Info("test message")

	if !bytes.Contains(buf.Bytes(), []byte("scheduler")) {
		t.Errorf("child logger output missing key-value pair: %s", buf.String())
	}
}
