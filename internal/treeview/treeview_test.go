package treeview_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/syntax"
	"github.com/Ella-Hoeppner/SSE-language-server/internal/treeview"
)

func parse(t *testing.T, text string) *syntax.Tree {
	t.Helper()
	tree, err := syntax.Parse(profile.Default(), text)
	require.NoError(t, err)
	return tree
}

func TestConvert(t *testing.T) {
	node := treeview.Convert(parse(t, "(a b)"))
	assert.Equal(t, treeview.Node{
		Kind: "root", Start: 0, End: 5,
		Children: []treeview.Node{{
			Kind: "group", Start: 0, End: 5,
			Children: []treeview.Node{
				{Kind: "atom", Start: 1, End: 2, Text: "a"},
				{Kind: "atom", Start: 3, End: 4, Text: "b"},
			},
		}},
	}, node)
}

func TestViewer(t *testing.T) {
	v := treeview.New()
	defer v.Close()
	const uri = "file:///a.sse"

	assert.False(t, v.Active())
	require.NoError(t, v.Publish(uri, parse(t, "(a)")))

	addr, err := v.Show("", uri)
	require.NoError(t, err)
	assert.True(t, v.Active())
	again, err := v.Show("", uri)
	require.NoError(t, err)
	assert.Equal(t, addr, again, "Show() must reuse the running server")

	resp, err := http.Get(addr)
	require.NoError(t, err)
	page, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(page), "/ws?uri=")

	treeURL := strings.Replace(addr, "/static/", "/tree", 1)
	resp, err = http.Get(treeURL)
	require.NoError(t, err)
	var tree treeview.Node
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tree))
	resp.Body.Close()
	assert.Equal(t, 3, tree.End)

	resp, err = http.Get(strings.Replace(treeURL, "a.sse", "missing.sse", 1))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(strings.Replace(addr, "/static/", "/ws", 1), "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg treeview.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "init", msg.Op)
	assert.Equal(t, uri, msg.URI)

	require.NoError(t, v.Publish(uri, parse(t, "(a b)")))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "update", msg.Op)
	require.NotNil(t, msg.Tree)
	assert.Equal(t, 5, msg.Tree.End)

	// Updates for other documents are filtered out.
	require.NoError(t, v.Publish("file:///other.sse", parse(t, "(x)")))
	require.NoError(t, v.Remove(uri))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "remove", msg.Op)
	assert.Equal(t, uri, msg.URI)
}
