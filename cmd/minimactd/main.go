// Command minimactd is the reference host binary (SPEC_FULL §C.13): a
// single counter component served over a WebSocket, demonstrating the full
// control flow of spec §2 end to end. It is illustrative, not part of the
// Core's tested surface (spec §1's non-goals exclude any client-side DOM
// application of patches beyond the contract).
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"

	"github.com/minimact/minimact-sub000"
	"github.com/minimact/minimact-sub000/internal/hostauth"
	"github.com/minimact/minimact-sub000/internal/snapshot"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	snapshotPath := flag.String("snapshot", "", "optional SQLite path for warm-starting the component type registry (spec §6.4)")
	flag.Parse()

	logger := log.New(log.Writer(), "minimactd: ", log.LstdFlags)

	engine, err := minimact.NewEngine(minimact.WithLogger(logger))
	if err != nil {
		logger.Fatalf("new engine: %v", err)
	}

	var store *snapshot.Store
	var counterMeta *minimact.TemplateMap
	if *snapshotPath != "" {
		store, err = snapshot.Open(*snapshotPath)
		if err != nil {
			logger.Fatalf("open snapshot store: %v", err)
		}
		defer store.Close()

		if tm, ok, err := store.Get("counter"); err != nil {
			logger.Fatalf("load snapshot: %v", err)
		} else if ok {
			counterMeta = tm
			logger.Printf("warm-started counter TemplateMap from %s (version %s)", *snapshotPath, tm.Version)
		} else {
			// Nothing cached yet: seed one now so a later restart against the
			// same path has something to warm-start from (spec §6.4's
			// TemplateMap cache is meant to be written back, not only read).
			counterMeta = &minimact.TemplateMap{ComponentName: "counter", Version: "dev", GeneratedAt: time.Now().Unix()}
			if err := store.Put("counter", counterMeta); err != nil {
				logger.Fatalf("seed snapshot: %v", err)
			}
		}
	}

	if err := engine.RegisterComponentType("counter", counterMeta); err != nil {
		logger.Fatalf("register component type: %v", err)
	}
	engine.Seal()

	auth, err := hostauth.NewService(nil, engine.Registry())
	if err != nil {
		logger.Fatalf("new hostauth service: %v", err)
	}

	srv := &server{engine: engine, auth: auth, logger: logger}

	http.HandleFunc("/", srv.serveIndex)
	http.HandleFunc("/ws", srv.serveWebSocket)

	logger.Printf("listening on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Fatalf("listen: %v", err)
	}
}

type server struct {
	engine *minimact.Engine
	auth   *hostauth.Service
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var minifier = newHTMLMinifier()

func newHTMLMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	return m
}

// serveIndex renders the component's first page: the host always performs
// the first render itself (spec §2 begins after a render already exists),
// embedding the component instance's auth token the way the teacher's
// ApplicationPage.Render embeds a page token via meta tag.
func (s *server) serveIndex(w http.ResponseWriter, r *http.Request) {
	componentID := r.URL.Query().Get("id")
	if componentID == "" {
		componentID = "counter-1"
	}

	token, err := s.auth.GenerateToken("counter", componentID)
	if err != nil {
		http.Error(w, fmt.Sprintf("generate token: %v", err), http.StatusInternalServerError)
		return
	}

	page := fmt.Sprintf(`<!doctype html>
<html>
<head><meta name="minimact-token" content="%s"></head>
<body>%s<script>
  var ws = new WebSocket("ws://" + location.host + "/ws?token=%s");
  ws.onmessage = function(ev) { console.log("patches", JSON.parse(ev.data)); };
  function send(action) { ws.send(JSON.stringify({type:"action", action:action})); }
</script></body>
</html>`, token, render(counterState{Count: 0}), token)

	minified, err := minifier.String("text/html", page)
	if err != nil {
		minified = page // fall back to the unminified page rather than fail the request
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(minified))
}

// serveWebSocket upgrades the connection, verifies the component instance
// token, creates the Component + session, and runs the action read loop —
// grounded on the teacher's Application.ServeWebSocket handler shape.
func (s *server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	claims, err := s.auth.VerifyToken(tokenString)
	if err != nil {
		http.Error(w, fmt.Sprintf("verify token: %v", err), http.StatusUnauthorized)
		return
	}

	component, err := s.engine.NewComponent(claims.ComponentType, claims.ComponentID)
	if err != nil {
		http.Error(w, fmt.Sprintf("new component: %v", err), http.StatusInternalServerError)
		return
	}

	sess, err := newSession(claims.ComponentID, component, claims, s.logger)
	if err != nil {
		http.Error(w, fmt.Sprintf("new session: %v", err), http.StatusInternalServerError)
		return
	}
	s.addSession(sess)
	defer s.removeSession(sess.id)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var msg actionMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type != "" && msg.Type != "action" {
			continue
		}

		patches, err := sess.handleAction(r.Context(), msg)
		if err != nil {
			s.logger.Printf("session %s: %v", sess.id, err)
			continue
		}

		if err := conn.WriteJSON(patches); err != nil {
			break
		}
	}
}

func (s *server) addSession(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		s.sessions = make(map[string]*session)
	}
	s.sessions[sess.id] = sess
}

func (s *server) removeSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

