package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"garden-link/config"
	"garden-link/types"
)

// Hub fans log messages out to live panel clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan types.LogMessage]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan types.LogMessage]bool)}
}

func (h *Hub) AddClient(client chan types.LogMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

func (h *Hub) RemoveClient(client chan types.LogMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client)
}

// Broadcast never blocks; a client that is not ready misses the message.
func (h *Hub) Broadcast(msg types.LogMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client <- msg:
		default:
		}
	}
}

// New builds the process logger writing to stderr and, when hub is set, to the hub.
func New(cfg config.LogConfig, hub *Hub) (*zap.SugaredLogger, error) {
	return NewWithWriter(cfg, hub, os.Stderr)
}

func NewWithWriter(cfg config.LogConfig, hub *Hub, w io.Writer) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("log format %q not supported", cfg.Format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)
	if hub != nil {
		core = zapcore.NewTee(core, &hubCore{LevelEnabler: level, hub: hub})
	}
	return zap.New(core).Named("system").Sugar(), nil
}

// hubCore renders entries as one-line messages for the panel's log view.
type hubCore struct {
	zapcore.LevelEnabler
	hub    *Hub
	fields []zapcore.Field
}

func (c *hubCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &hubCore{LevelEnabler: c.LevelEnabler, hub: c.hub}
	clone.fields = append(append(clone.fields, c.fields...), fields...)
	return clone
}

func (c *hubCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *hubCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(ent.Message)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, enc.Fields[k])
	}

	c.hub.Broadcast(types.LogMessage{
		Time:    ent.Time.Format("15:04:05"),
		Message: b.String(),
		Type:    componentName(ent.LoggerName),
		Level:   ent.Level.String(),
	})
	return nil
}

func (c *hubCore) Sync() error { return nil }

// componentName keeps the last segment of a dotted zap logger name.
func componentName(loggerName string) string {
	if loggerName == "" {
		return "system"
	}
	if i := strings.LastIndex(loggerName, "."); i >= 0 {
		return loggerName[i+1:]
	}
	return loggerName
}
