package protocol

import (
	"bufio"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	line := Encode("SEND_MSG", `{"content":"hi"}`)
	if line != "SEND_MSG:{\"content\":\"hi\"}\n" {
		t.Fatalf("unexpected encoding: %q", line)
	}

	frame, err := Decode(strings.TrimSuffix(line, "\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Command != "SEND_MSG" || frame.Payload != `{"content":"hi"}` {
		t.Fatalf("got %+v", frame)
	}
}

func TestDecodeMissingSeparator(t *testing.T) {
	if _, err := Decode("NOCOLONHERE"); err != ErrProtocol {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestDecodeEmptyPayloadOK(t *testing.T) {
	frame, err := Decode("PING:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Command != "PING" || frame.Payload != "" {
		t.Fatalf("got %+v", frame)
	}
}

func TestDecodeTrimsTrailingCR(t *testing.T) {
	frame, err := Decode("PING:\r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Payload != "" {
		t.Fatalf("expected empty payload after trimming CR, got %q", frame.Payload)
	}
}

func TestDecodeEmptyLine(t *testing.T) {
	if _, err := Decode(""); err != ErrProtocol {
		t.Fatalf("expected ErrProtocol for empty line, got %v", err)
	}
}

func TestScannerSplitsMultipleFrames(t *testing.T) {
	r := strings.NewReader("PING:\nSEND_MSG:{}\n")
	sc := NewScanner(r, 4096)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}
	if len(lines) != 2 || lines[0] != "PING:" || lines[1] != "SEND_MSG:{}" {
		t.Fatalf("got %v", lines)
	}
}

func TestScannerNeverEmitsUnterminatedTrailingLine(t *testing.T) {
	r := strings.NewReader("PING:\nPARTIAL_NO_NEWLINE")
	sc := NewScanner(r, 4096)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 1 || lines[0] != "PING:" {
		t.Fatalf("expected only the terminated frame, got %v", lines)
	}
}

func TestScannerRejectsOversizedLine(t *testing.T) {
	huge := strings.Repeat("x", 100) + "\n"
	r := strings.NewReader("CMD:" + huge)
	sc := NewScanner(r, 16)

	for sc.Scan() {
	}
	if sc.Err() != bufio.ErrTooLong {
		t.Fatalf("expected ErrTooLong, got %v", sc.Err())
	}
}
