package livereload

import "net/http"

// ScriptPath is where ScriptHandler is mounted by the dev server.
const ScriptPath = "/_devkit/livereload.js"

// SocketPath is where the Hub is mounted by the dev server.
const SocketPath = "/_devkit/ws"

const script = `(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "` + SocketPath + `");
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type === "reload") {
      location.reload();
    } else if (msg.type === "asset") {
      var nodes = document.querySelectorAll("[src],[href]");
      for (var i = 0; i < nodes.length; i++) {
        var attr = nodes[i].hasAttribute("src") ? "src" : "href";
        var url = nodes[i].getAttribute(attr);
        if (url && url.split("?")[0] === msg.old_url) {
          nodes[i].setAttribute(attr, msg.new_url + "?t=" + Date.now());
        }
      }
    }
  };
  ws.onclose = function () { setTimeout(function () { location.reload(); }, 1000); };
})();
`

// ScriptHandler serves the browser side of the live reload protocol.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(script))
	})
}
