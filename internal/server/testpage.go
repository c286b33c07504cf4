package server

import (
	"fmt"
	"net/http"
)

// TestPage serves an HTML page for exercising the relay by hand: pick a
// username and room, connect, and send broadcast or direct messages.
func (h *Handler) TestPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		h.logger.Error("write test page", "error", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        .direct { color: purple; }
        .notice { color: gray; font-style: italic; }
        .error { color: red; }
    </style>
</head>
<body>
    <h1>Chat Relay Test</h1>

    <div>
        <input type="text" id="username" placeholder="Username">
        <input type="text" id="room" placeholder="Room" value="default_room">
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>

    <div id="messages"></div>

    <div>
        <input type="text" id="messageInput" placeholder="Message..." disabled>
        <input type="text" id="recipient" placeholder="Recipient (optional)" disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');

        function addMessage(text, cls) {
            const el = document.createElement('div');
            if (cls) el.className = cls;
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function setConnected(connected) {
            document.getElementById('messageInput').disabled = !connected;
            document.getElementById('recipient').disabled = !connected;
            document.getElementById('sendButton').disabled = !connected;
            document.getElementById('connectButton').textContent = connected ? 'Disconnect' : 'Connect';
        }

        function connect() {
            const username = document.getElementById('username').value.trim();
            const room = document.getElementById('room').value.trim() || 'default_room';
            let url = 'ws://' + location.host + '/ws/' + encodeURIComponent(room);
            if (username) url += '?username=' + encodeURIComponent(username);

            ws = new WebSocket(url);
            ws.onopen = function() { setConnected(true); };
            ws.onmessage = function(event) {
                for (const line of event.data.split('\n')) {
                    const frame = JSON.parse(line);
                    if (frame.error) {
                        addMessage('Error: ' + frame.error, 'error');
                    } else if (frame.username) {
                        const prefix = frame.direct ? '[direct] ' : '';
                        addMessage(prefix + frame.username + ' at ' + frame.timestamp + ': ' + frame.message,
                                   frame.direct ? 'direct' : '');
                    } else {
                        addMessage(frame.message, 'notice');
                    }
                }
            };
            ws.onclose = function() { setConnected(false); ws = null; };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) { ws.close(); } else { connect(); }
        }

        function sendMessage() {
            const input = document.getElementById('messageInput');
            const recipient = document.getElementById('recipient').value.trim();
            const text = input.value.trim();
            if (!text || !ws || ws.readyState !== WebSocket.OPEN) return;
            const payload = { message: text };
            if (recipient) payload.recipient = recipient;
            ws.send(JSON.stringify(payload));
            input.value = '';
        }

        document.getElementById('messageInput').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') sendMessage();
        });
    </script>
</body>
</html>`
