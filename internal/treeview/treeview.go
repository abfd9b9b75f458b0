// Package treeview serves the parsed tree of open documents over HTTP and
// pushes new trees to WebSocket clients as documents change.
package treeview

import (
	"embed"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
)

var log = commonlog.GetLogger("ssels.treeview")

// Node is the JSON form of a syntax node, with its source text for leaves.
type Node struct {
	Kind     string `json:"kind"`
	Tag      string `json:"tag,omitempty"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Text     string `json:"text,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Message is sent over WebSocket to update clients.
type Message struct {
	Op   string `json:"op"` // "init", "update", "remove"
	URI  string `json:"uri"`
	Tree *Node  `json:"tree,omitempty"`
}

// Convert renders t as a Node tree.
func Convert(t *syntax.Tree) Node {
	var convert func(n *syntax.Node) Node
	convert = func(n *syntax.Node) Node {
		out := Node{
			Kind:  n.Kind.String(),
			Tag:   n.Tag,
			Start: n.Range.Start,
			End:   n.Range.End,
		}
		if len(n.Children) == 0 {
			out.Text = t.Slice(n.Range)
		}
		for _, c := range n.Children {
			out.Children = append(out.Children, convert(c))
		}
		return out
	}
	return convert(t.Root())
}

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Viewer holds the latest tree of every published document. The HTTP
// server only starts on the first call to Show.
type Viewer struct {
	mu    sync.Mutex
	trees map[string]Node
	srv   *http.Server
	base  string

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]string // subscribed URI, "" for all
}

func New() *Viewer {
	return &Viewer{
		trees:   make(map[string]Node),
		clients: make(map[*websocket.Conn]string),
	}
}

// Show starts the server on addr (a free localhost port when empty) unless
// it is already running, and returns the URL of the page viewing uri. The
// page follows the document over /ws; /tree?uri= answers the same tree as
// JSON.
func (v *Viewer) Show(addr, uri string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.srv == nil {
		if addr == "" {
			addr = "localhost:0"
		}
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return "", err
		}

		mux := http.NewServeMux()
		mux.HandleFunc("/", v.handleIndex)
		mux.Handle("/static/", http.FileServer(http.FS(staticFiles)))
		mux.HandleFunc("/tree", v.handleTree)
		mux.HandleFunc("/ws", v.handleWS)
		v.srv = &http.Server{Handler: mux}
		v.base = "http://" + l.Addr().String()

		go func() {
			if err := v.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("tree viewer: %v", err)
			}
		}()
		log.Infof("tree viewer listening on %s", v.base)
	}
	return v.base + "/static/?uri=" + url.QueryEscape(uri), nil
}

// Active reports whether Show has been called.
func (v *Viewer) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.srv != nil
}

// Publish replaces the tree of uri and broadcasts it.
func (v *Viewer) Publish(uri string, t *syntax.Tree) error {
	node := Convert(t)
	v.mu.Lock()
	v.trees[uri] = node
	v.mu.Unlock()
	return v.broadcast(Message{Op: "update", URI: uri, Tree: &node})
}

// Remove forgets uri and tells clients.
func (v *Viewer) Remove(uri string) error {
	v.mu.Lock()
	_, ok := v.trees[uri]
	delete(v.trees, uri)
	v.mu.Unlock()
	if !ok {
		return nil
	}
	return v.broadcast(Message{Op: "remove", URI: uri})
}

// Tree returns the last published tree of uri.
func (v *Viewer) Tree(uri string) (Node, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, ok := v.trees[uri]
	return n, ok
}

// URIs lists the documents with a published tree.
func (v *Viewer) URIs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	uris := make([]string, 0, len(v.trees))
	for uri := range v.trees {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Close stops the server and disconnects all clients.
func (v *Viewer) Close() error {
	v.clientsMu.Lock()
	for conn := range v.clients {
		conn.Close()
		delete(v.clients, conn)
	}
	v.clientsMu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.srv == nil {
		return nil
	}
	err := v.srv.Close()
	v.srv = nil
	return err
}

// broadcast marshals and sends a message to every client subscribed to
// its URI.
func (v *Viewer) broadcast(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	v.clientsMu.Lock()
	defer v.clientsMu.Unlock()
	for conn, uri := range v.clients {
		if uri != "" && uri != msg.URI {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debugf("broadcast error: %v", err)
			conn.Close()
			delete(v.clients, conn)
		}
	}
	return nil
}

func (v *Viewer) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, v.URIs())
}

func (v *Viewer) handleTree(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	tree, ok := v.Tree(uri)
	if !ok {
		http.Error(w, "no tree for "+uri, http.StatusNotFound)
		return
	}
	writeJSON(w, tree)
}

// handleWS upgrades the connection, sends the current trees and then keeps
// the client subscribed until it disconnects.
func (v *Viewer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("ws upgrade error: %v", err)
		return
	}
	uri := r.URL.Query().Get("uri")

	// Registering under clientsMu before sending the initial state keeps
	// broadcasts from interleaving with it.
	v.clientsMu.Lock()
	for _, u := range v.URIs() {
		if uri != "" && u != uri {
			continue
		}
		tree, _ := v.Tree(u)
		data, err := json.Marshal(Message{Op: "init", URI: u, Tree: &tree})
		if err != nil {
			log.Errorf("init marshal error: %v", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			v.clientsMu.Unlock()
			conn.Close()
			return
		}
	}
	v.clients[conn] = uri
	v.clientsMu.Unlock()

	defer func() {
		v.clientsMu.Lock()
		delete(v.clients, conn)
		v.clientsMu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugf("write error: %v", err)
	}
}
