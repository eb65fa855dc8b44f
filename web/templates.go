package web

import (
	"html/template"
	"net/http"
	"strconv"

	"garden-link/utils"
)

var indexTemplate = template.Must(template.New("index").Parse(htmlTemplate))

type indexData struct {
	StatusText string
	Connected  bool
	Port       string
	Value      string
	Category   string
	Grammar    string
}

const htmlTemplate = `
<!DOCTYPE html>
<html>
<head>
    <title>Garden System</title>
    <meta charset="utf-8">
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
        .container { max-width: 900px; margin: 0 auto; }
        .card { background: white; padding: 20px; margin: 10px 0; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .connected { color: #4CAF50; font-weight: bold; }
        .disconnected { color: #f44336; font-weight: bold; }
        .value { font-size: 48px; font-weight: bold; }
        .dry { color: #c77700; } .normal { color: #2e7d32; } .wet { color: #1565c0; } .unknown { color: #777; }
        button { background-color: #2196F3; color: white; border: none; padding: 10px 20px; margin: 5px; border-radius: 4px; cursor: pointer; }
        button:hover { background-color: #1976D2; }
        .log { height: 200px; overflow-y: scroll; background-color: #000; color: #0f0; padding: 10px; font-family: monospace; font-size: 12px; }
        h1 { color: #333; text-align: center; }
        h2 { color: #555; border-bottom: 2px solid #2196F3; padding-bottom: 5px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Welcome to the Garden</h1>

        <div class="card">
            <h2>Controller</h2>
            <p>Status: <span id="status" class="{{if .Connected}}connected{{else}}disconnected{{end}}">{{.StatusText}}</span></p>
            <p>Port: <span id="port">{{.Port}}</span> &middot; Grammar: {{.Grammar}}</p>
            <button onclick="post('/connect')">Connect</button>
            <button onclick="post('/disconnect')">Disconnect</button>
        </div>

        <div class="card">
            <h2>Moisture Sensor Reader</h2>
            <p>Value:</p>
            <div id="value" class="value {{.Category}}">{{.Value}}</div>
            <p>Category: <span id="category">{{.Category}}</span></p>
            <button onclick="post('/sample/export')">Copy reading</button>
        </div>

        <div class="card">
            <h2>Roof and Water</h2>
            <button onclick="sendCommand('roof_open')">Roof open</button>
            <button onclick="sendCommand('roof_close')">Roof close</button>
            <button onclick="sendCommand('roof_stop')">Roof stop</button>
            <button onclick="sendCommand('water_on')">Water on</button>
            <button onclick="sendCommand('water_off')">Water off</button>
        </div>

        <div class="card">
            <h2>Log</h2>
            <div id="system-log" class="log"></div>
        </div>
    </div>

    <script>
        function addLog(time, message, type) {
            const log = document.getElementById('system-log');
            const entry = document.createElement('div');
            entry.textContent = '[' + time + '] [' + type.toUpperCase() + '] ' + message;
            log.appendChild(entry);
            log.scrollTop = log.scrollHeight;
            while (log.children.length > 1000) {
                log.removeChild(log.firstChild);
            }
        }

        function post(path, body) {
            const opts = {method: 'POST'};
            if (body) {
                opts.headers = {'Content-Type': 'application/json'};
                opts.body = JSON.stringify(body);
            }
            return fetch(path, opts)
                .then(r => r.text())
                .then(t => addLog(new Date().toLocaleTimeString(), path + ' -> ' + t, 'panel'));
        }

        function sendCommand(cmd) {
            post('/command', {command: cmd});
        }

        function showSample(s) {
            const el = document.getElementById('value');
            el.textContent = s.value;
            el.className = 'value ' + s.category;
            document.getElementById('category').textContent = s.category;
        }

        function showState(s) {
            const el = document.getElementById('status');
            el.textContent = s.status;
            el.className = s.state === 'connected' ? 'connected' : 'disconnected';
            document.getElementById('port').textContent = s.state === 'connected' ? s.detail : '';
        }

        function connectSamples() {
            const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws/samples');
            ws.onmessage = function(event) {
                const msg = JSON.parse(event.data);
                if (msg.type === 'sample') showSample(msg.data);
                if (msg.type === 'state') showState(msg.data);
            };
            ws.onclose = function() { setTimeout(connectSamples, 3000); };
        }

        function connectLogs() {
            const es = new EventSource('/logs/stream');
            es.onmessage = function(event) {
                const m = JSON.parse(event.data);
                addLog(m.time, m.message, m.type);
            };
            es.onerror = function() {
                es.close();
                setTimeout(connectLogs, 5000);
            };
        }

        connectSamples();
        connectLogs();
    </script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	st := s.link.Status()
	data := indexData{
		StatusText: utils.StatusText(st.State, st.Detail),
		Connected:  st.Port != "",
		Port:       st.Port,
		Value:      "---",
		Category:   st.Category.String(),
		Grammar:    st.Grammar,
	}
	if st.LastSample != nil {
		data.Value = strconv.Itoa(st.LastSample.Value)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.log.Warnw("Render index failed", "error", err)
	}
}
