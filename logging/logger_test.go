package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"garden-link/config"
	"garden-link/types"
)

func recvLog(t *testing.T, ch <-chan types.LogMessage) types.LogMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no log message broadcast")
		return types.LogMessage{}
	}
}

func TestLoggerBroadcastsToHub(t *testing.T) {
	hub := NewHub()
	client := make(chan types.LogMessage, 4)
	hub.AddClient(client)
	defer hub.RemoveClient(client)

	var out bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "info", Format: "console"}, hub, &out)
	if err != nil {
		t.Fatal(err)
	}

	log.Named("link").Infow("Connected", "port", "/dev/ttyACM0")
	msg := recvLog(t, client)
	if msg.Type != "link" {
		t.Errorf("expected type link, got %q", msg.Type)
	}
	if msg.Message != "Connected port=/dev/ttyACM0" {
		t.Errorf("unexpected message %q", msg.Message)
	}
	if msg.Level != "info" {
		t.Errorf("expected level info, got %q", msg.Level)
	}
	if !strings.Contains(out.String(), "Connected") {
		t.Errorf("expected console output, got %q", out.String())
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	hub := NewHub()
	client := make(chan types.LogMessage, 4)
	hub.AddClient(client)

	var out bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, hub, &out)
	if err != nil {
		t.Fatal(err)
	}
	log.Debugw("noise")
	log.Warnw("careful", "n", 3)

	msg := recvLog(t, client)
	if msg.Message != "careful n=3" {
		t.Errorf("unexpected message %q", msg.Message)
	}
	select {
	case extra := <-client:
		t.Errorf("unexpected extra message %+v", extra)
	default:
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	if _, err := NewWithWriter(config.LogConfig{Level: "loud"}, nil, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an unknown level")
	}
	if _, err := NewWithWriter(config.LogConfig{Level: "info", Format: "xml"}, nil, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestBroadcastSkipsSlowClients(t *testing.T) {
	hub := NewHub()
	slow := make(chan types.LogMessage)
	hub.AddClient(slow)
	done := make(chan struct{})
	go func() {
		hub.Broadcast(types.LogMessage{Message: "x"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}
	hub.RemoveClient(slow)
	hub.RemoveClient(slow)
}
