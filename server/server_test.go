package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/sonido-tonal/engine"
	"github.com/RyanBlaney/sonido-tonal/logging"
	"github.com/RyanBlaney/sonido-tonal/source"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

type ServerSuite struct {
	suite.Suite

	synth  *source.Synth
	engine *engine.Engine
	server *Server
	http   *httptest.Server
	cancel context.CancelFunc
}

func (s *ServerSuite) SetupTest() {
	params := source.DefaultParams()
	params.Smoothing = 0
	s.synth = source.NewSynth(params)
	s.synth.SetNote(theory.A, 4, 0.5)

	cfg := engine.DefaultConfig()
	cfg.TickInterval = 0
	e, err := engine.New(s.synth, cfg, engine.WithLogger(&logging.NoOpLogger{}))
	s.Require().NoError(err)
	s.engine = e

	s.server = New(DefaultConfig(), e, &logging.NoOpLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.server.Hub().Run(ctx)
	go s.server.Relay(ctx)
	s.http = httptest.NewServer(s.server.Handler())
}

func (s *ServerSuite) TearDownTest() {
	s.engine.Stop()
	s.cancel()
	s.http.Close()
}

func (s *ServerSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.Require().Eventually(func() bool { return s.server.Hub().ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func (s *ServerSuite) TestClientReceivesSnapshots() {
	conn := s.dial()
	defer conn.Close()

	s.Require().NoError(s.engine.Start(context.Background()))
	s.engine.Tick()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		s.Require().NoError(err)

		var snap map[string]any
		s.Require().NoError(json.Unmarshal(data, &snap))
		note, ok := snap["current_note"].(map[string]any)
		if !ok {
			continue
		}
		s.Equal(true, snap["is_listening"])
		s.Equal("A4", note["name"])
		s.Equal("A", note["pitch_class"])
		return
	}
}

func (s *ServerSuite) TestClientDisconnectUnregisters() {
	conn := s.dial()
	conn.Close()

	s.Eventually(func() bool { return s.server.Hub().ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func (s *ServerSuite) TestSnapshotEndpoint() {
	resp, err := http.Get(s.http.URL + "/snapshot")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	var snap engine.Snapshot
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&snap))
	s.False(snap.IsListening)

	post, err := http.Post(s.http.URL+"/snapshot", "application/json", nil)
	s.Require().NoError(err)
	post.Body.Close()
	s.Equal(http.StatusMethodNotAllowed, post.StatusCode)
}

func (s *ServerSuite) TestHealthEndpoint() {
	resp, err := http.Get(s.http.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()

	var health map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&health))
	s.Equal("idle", health["state"])
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := engine.DefaultConfig()
	e, err := engine.New(source.NewSynth(source.DefaultParams()), cfg)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(DefaultConfig(), e, &logging.NoOpLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
