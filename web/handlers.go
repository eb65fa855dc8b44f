package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"garden-link/devices"
	"garden-link/export"
	"garden-link/types"
	"garden-link/utils"
)

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Command string `json:"command"`
	Sent    bool   `json:"sent"`
}

type connectResponse struct {
	State  types.ConnectionState `json:"state"`
	Status string                `json:"status"`
	Error  string                `json:"error,omitempty"`
}

type sampleResponse struct {
	types.TelemetrySample
	Category types.Category `json:"category"`
}

type exportResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.link.Status())
}

// handleConnect reports a failed attempt with 200 and state "failed"; the
// panel shows the detail like any other state.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.connectTimeout)
	defer cancel()

	state, err := s.link.Connect(ctx)
	st := s.link.Status()
	resp := connectResponse{State: state, Status: utils.StatusText(st.State, st.Detail)}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.link.Disconnect()
	st := s.link.Status()
	writeJSON(w, http.StatusOK, connectResponse{State: st.State, Status: utils.StatusText(st.State, st.Detail)})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	cmd, err := types.ParseCommand(req.Command)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sent, err := s.link.Send(cmd)
	if err != nil {
		var we *devices.WriteError
		if errors.As(err, &we) {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !sent {
		s.log.Debugw("Command dropped, not connected", "command", cmd)
	}
	writeJSON(w, http.StatusOK, commandResponse{Command: cmd.String(), Sent: sent})
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	sample, ok := s.link.LatestSample()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, sampleResponse{TelemetrySample: sample, Category: s.link.LatestCategory()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	sample, ok := s.link.LatestSample()
	if !ok {
		http.Error(w, export.ErrNoSample.Error(), http.StatusConflict)
		return
	}
	text, err := s.exporter.Export(sample, s.link.LatestCategory())
	if err != nil {
		s.log.Warnw("Export failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, exportResponse{Text: text, Error: err.Error()})
		return
	}
	s.log.Infow("Reading exported", "text", text)
	writeJSON(w, http.StatusOK, exportResponse{Text: text})
}

func (s *Server) handleLogsStream(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		http.Error(w, "log stream unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	client := make(chan types.LogMessage, 100)
	s.logs.AddClient(client)
	defer s.logs.RemoveClient(client)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	for {
		select {
		case msg, ok := <-client:
			if !ok {
				return
			}
			data, _ := json.Marshal(msg)
			fmt.Fprintf(w, "data: %s\n\n", data)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}
