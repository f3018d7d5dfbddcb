package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/loader"
	"github.com/conneroisu/bindery/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func chapter(number int, permalink string) loader.Source {
	raw := fmt.Sprintf("---\ntitle: Chapter %d\nchapter_number: %d\npermalink: %s\n---\n", number, number, permalink)
	return loader.Source{ID: fmt.Sprintf("%02d.md", number), Raw: []byte(raw)}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(Options{}, nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, hub.Shutdown(ctx))
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

// received mirrors BuildMessage for decoding on the client side.
type received struct {
	Type     string          `json:"type"`
	Session  string          `json:"session"`
	Sequence uint64          `json:"sequence"`
	Status   string          `json:"status"`
	State    string          `json:"state"`
	TOC      json.RawMessage `json:"toc"`
	Report   json.RawMessage `json:"report"`
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)

	var msg received
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubDeliversBuilds(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	res, err := pipeline.New().RunSources(context.Background(), []loader.Source{
		chapter(1, "/a"),
		chapter(2, "/b"),
	})
	require.NoError(t, err)
	require.NoError(t, hub.PublishBuild(1, res, nil))

	msg := readMessage(t, conn)
	assert.Equal(t, "build", msg.Type)
	assert.Equal(t, hub.Session(), msg.Session)
	assert.Len(t, msg.Session, 36)
	assert.Equal(t, uint64(1), msg.Sequence)
	assert.Equal(t, StatusOK, msg.Status)
	assert.Equal(t, "built", msg.State)
	assert.JSONEq(t, `[
		{"chapter_number": 1, "title": "Chapter 1", "permalink": "/a", "next": "/b"},
		{"chapter_number": 2, "title": "Chapter 2", "permalink": "/b", "previous": "/a"}
	]`, string(msg.TOC))
	assert.Empty(t, msg.Report)
}

func TestHubReplaysLatestToNewClients(t *testing.T) {
	hub, srv := startHub(t)

	require.NoError(t, hub.Publish(map[string]any{"type": "build", "sequence": 1}))
	require.NoError(t, hub.Publish(map[string]any{"type": "build", "sequence": 2}))

	// Whether the client registers before or after the second publish, it
	// sees sequence 2 exactly once as its latest message.
	conn := dial(t, srv)
	var last received
	for last.Sequence != 2 {
		last = readMessage(t, conn)
	}
	assert.Equal(t, uint64(2), last.Sequence)
}

func TestHubShutdownDisconnectsClients(t *testing.T) {
	hub := NewHub(Options{}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	// The client must be reading to answer the close handshake.
	closed := make(chan error, 1)
	go func() {
		_, _, err := conn.Read(context.Background())
		closed <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	select {
	case err := <-closed:
		assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	case <-ctx.Done():
		t.Fatal("client was not disconnected")
	}
	assert.Equal(t, 0, hub.Clients())

	assert.Error(t, hub.Publish("late"))

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	http.DefaultClient.CloseIdleConnections()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNewBuildMessage(t *testing.T) {
	t.Run("failed build carries report only", func(t *testing.T) {
		_, err := pipeline.New().RunSources(context.Background(), []loader.Source{
			chapter(1, "/a"),
			chapter(3, "/c"),
		})
		require.Error(t, err)

		msg := NewBuildMessage(7, nil, err)
		assert.Equal(t, StatusFailed, msg.Status)
		assert.Equal(t, pipeline.StateLoaded, msg.State)
		assert.Nil(t, msg.TOC)
		require.NotNil(t, msg.Report)
		assert.Equal(t, []errors.Kind{errors.KindNonContiguousSequence}, msg.Report.Kinds())
	})

	t.Run("other errors", func(t *testing.T) {
		msg := NewBuildMessage(8, nil, context.Canceled)
		assert.Equal(t, StatusError, msg.Status)
		assert.Equal(t, context.Canceled.Error(), msg.Error)
		assert.Nil(t, msg.Report)
	})

	t.Run("warnings travel with a successful build", func(t *testing.T) {
		first := chapter(1, "/a")
		first.Raw = append(first.Raw, []byte("[Next](/c)\n")...)
		res, err := pipeline.New().RunSources(context.Background(), []loader.Source{
			first,
			chapter(2, "/b"),
			chapter(3, "/c"),
		})
		require.NoError(t, err)

		msg := NewBuildMessage(9, res, nil)
		assert.Equal(t, StatusOK, msg.Status)
		assert.Equal(t, pipeline.StateBuilt, msg.State)
		assert.NotNil(t, msg.TOC)
		require.NotNil(t, msg.Report)
		assert.Equal(t, []errors.Kind{errors.KindNavigationMismatch}, msg.Report.Kinds())
	})
}
