package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// reloadMessage is sent to browsers when a watched source changes.
type reloadMessage struct {
	Action   string `json:"action"`
	FilePath string `json:"filePath"`
}

// serveWebSocket keeps a reload connection open until the client goes away.
// Clients never send anything meaningful; reads only detect the close.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	s.RegisterConnection(conn)
	defer func() {
		s.UnregisterConnection(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error: %v", err)
			}
			return
		}
	}
}

// reloadScript reconnects to /ws and reloads the page on a reload message.
const reloadScript = `<script>
(function() {
  var proto = location.protocol === "https:" ? "wss:" : "ws:";
  function connect() {
    var ws = new WebSocket(proto + "//" + location.host + "/ws");
    ws.onmessage = function(e) {
      var msg;
      try { msg = JSON.parse(e.data); } catch (err) { return; }
      if (msg.action === "reload") { location.reload(); }
    };
    ws.onclose = function() { setTimeout(connect, 1000); };
  }
  connect();
})();
</script>
`

// injectReloadScript inserts the reload client before the closing body tag,
// or appends it when the page has none.
func injectReloadScript(page string) string {
	i := strings.LastIndex(page, "</body>")
	if i < 0 {
		return page + "\n" + reloadScript
	}
	return page[:i] + reloadScript + page[i:]
}
