package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/rook/internal/client"
	"github.com/lox/rook/internal/deck"
	"github.com/lox/rook/internal/game"
	"github.com/lox/rook/internal/randutil"
	"github.com/lox/rook/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func startServer(t *testing.T) (*game.Engine, *httptest.Server) {
	t.Helper()
	engine := game.NewEngine(testLogger(), randutil.New(7))
	srv := server.NewServer("", engine, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		engine.Close()
	})
	return engine, ts
}

func dial(t *testing.T, ts *httptest.Server) *client.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, ts.URL, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// waitForState reads states until one matches
func waitForState(t *testing.T, c *client.Client, match func(game.State) bool) game.State {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case state, ok := <-c.States():
			require.True(t, ok, "connection closed")
			if match(state) {
				return state
			}
		case <-timeout:
			t.Fatal("timed out waiting for state")
		}
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var reqErr *client.RequestError
	require.True(t, errors.As(err, &reqErr), "expected a request error, got %v", err)
	assert.Equal(t, code, reqErr.Code)
}

func TestServerHealth(t *testing.T) {
	_, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestServerState(t *testing.T) {
	engine, ts := startServer(t)
	require.NoError(t, engine.Sit("maia", game.West))

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var state game.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, game.PhasePreDeal, state.Phase.Kind())
	assert.Equal(t, game.Player("maia"), state.Seats[game.West])
}

func TestSnapshotOnConnect(t *testing.T) {
	_, ts := startServer(t)
	c := dial(t, ts)

	state := waitForState(t, c, func(game.State) bool { return true })
	assert.Equal(t, game.PhasePreDeal, state.Phase.Kind())
	assert.Len(t, state.Connected, 4)
}

func TestCommandsRequireAnnounce(t *testing.T) {
	_, ts := startServer(t)
	c := dial(t, ts)

	err := c.Send(testContext(t), server.MessageTypeSit, server.SitData{Seat: game.North})
	requireCode(t, err, server.CodeNotAnnounced)
}

func TestAnnounceUnknownPlayer(t *testing.T) {
	_, ts := startServer(t)
	c := dial(t, ts)

	requireCode(t, c.Announce(testContext(t), "zed"), server.CodeUnknownPlayer)
}

func TestRejectsMalformedMessages(t *testing.T) {
	_, ts := startServer(t)
	c := dial(t, ts)
	ctx := testContext(t)
	require.NoError(t, c.Announce(ctx, "bill"))

	requireCode(t, c.Send(ctx, server.MessageTypeBid, "eighty"), server.CodeInvalidMessage)
	requireCode(t, c.Send(ctx, server.MessageTypeBid, nil), server.CodeInvalidMessage)
	requireCode(t, c.Send(ctx, "shuffle", nil), server.CodeUnknownType)
}

func TestPlayHandOverWebSocket(t *testing.T) {
	engine, ts := startServer(t)
	ctx := testContext(t)

	clients := make(map[game.Player]*client.Client)
	for i, player := range game.DefaultPlayers {
		c := dial(t, ts)
		require.NoError(t, c.Announce(ctx, player))
		require.NoError(t, c.Send(ctx, server.MessageTypeSit, server.SitData{Seat: game.Seats[i]}))
		clients[player] = c
	}

	// Sitting twice in an occupied seat is refused
	requireCode(t, clients["bill"].Send(ctx, server.MessageTypeSit, server.SitData{Seat: game.East}), server.CodeSeating)

	require.NoError(t, clients["bill"].Send(ctx, server.MessageTypeStartNewGame, nil))
	state := waitForState(t, clients["maia"], func(s game.State) bool {
		return s.Phase.Kind() == game.PhaseBid
	})
	bid := state.Phase.(*game.BidPhase)
	assert.Equal(t, game.East, state.Dealer)
	assert.Equal(t, game.South, bid.Turn)
	assert.Len(t, bid.Cards[game.West], deck.HandSize)

	requireCode(t, clients["deborah"].Send(ctx, server.MessageTypeBid, server.BidData{Amount: 80}), server.CodeNotYourTurn)
	require.NoError(t, clients["josh"].Send(ctx, server.MessageTypeBid, server.BidData{Amount: 80}))
	require.NoError(t, clients["maia"].Send(ctx, server.MessageTypePass, nil))
	require.NoError(t, clients["bill"].Send(ctx, server.MessageTypePass, nil))
	require.NoError(t, clients["deborah"].Send(ctx, server.MessageTypePass, nil))

	state = waitForState(t, clients["josh"], func(s game.State) bool {
		return s.Phase.Kind() == game.PhaseNest
	})
	nest := state.Phase.(*game.NestPhase)
	assert.Equal(t, game.South, nest.WonBid)
	assert.Equal(t, 80, nest.Bid)
	require.Len(t, nest.Cards[game.South], deck.HandSize+deck.NestSize)

	discards := nest.Cards[game.South][:deck.NestSize]
	require.NoError(t, clients["josh"].Send(ctx, server.MessageTypeChooseNest,
		server.ChooseNestData{Trumps: deck.Green, Nest: discards}))

	state = waitForState(t, clients["bill"], func(s game.State) bool {
		return s.Phase.Kind() == game.PhaseTricks
	})
	tricks := state.Phase.(*game.TricksPhase)
	assert.Equal(t, game.South, tricks.Turn)
	assert.Equal(t, deck.Green, tricks.Trumps)

	lead := tricks.Cards[game.South][0]
	require.NoError(t, clients["josh"].Send(ctx, server.MessageTypePlay, server.PlayData{Card: lead}))
	requireCode(t, clients["josh"].Send(ctx, server.MessageTypePlay, server.PlayData{Card: lead}), server.CodeNotYourTurn)

	snap := engine.Snapshot().Phase.(*game.TricksPhase)
	require.NotNil(t, snap.Played[game.South])
	assert.Equal(t, lead, *snap.Played[game.South])
	assert.Equal(t, game.West, snap.Turn)
}

func TestCloseMarksPlayerDisconnected(t *testing.T) {
	engine, ts := startServer(t)
	c := dial(t, ts)
	require.NoError(t, c.Announce(testContext(t), "josh"))
	require.True(t, engine.Snapshot().Connected["josh"])

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool {
		return !engine.Snapshot().Connected["josh"]
	}, 5*time.Second, 10*time.Millisecond)
}

func TestReannounceReleasesPreviousPlayer(t *testing.T) {
	engine, ts := startServer(t)
	c := dial(t, ts)
	ctx := testContext(t)

	require.NoError(t, c.Announce(ctx, "josh"))
	require.NoError(t, c.Announce(ctx, "maia"))

	connected := engine.Snapshot().Connected
	assert.False(t, connected["josh"])
	assert.True(t, connected["maia"])
}

func TestServeShutsDownOnCancel(t *testing.T) {
	engine := game.NewEngine(testLogger(), randutil.New(1))
	defer engine.Close()
	srv := server.NewServer("", engine, testLogger())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	c, err := client.Dial(testContext(t), "http://"+ln.Addr().String(), testLogger())
	require.NoError(t, err)
	require.NoError(t, c.Announce(testContext(t), "bill"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client connection was not closed")
	}
}

// lastState reads states until the connection goes quiet
func lastState(t *testing.T, c *client.Client) game.State {
	t.Helper()
	var last game.State
	received := false
	for {
		select {
		case state, ok := <-c.States():
			require.True(t, ok, "connection closed")
			last, received = state, true
		case <-time.After(300 * time.Millisecond):
			require.True(t, received, "no state received")
			return last
		}
	}
}

func TestConnectDuringUpdatesEndsOnLatestState(t *testing.T) {
	engine, ts := startServer(t)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				_ = engine.Connect("bill")
			} else {
				_ = engine.Disconnect("bill")
			}
			time.Sleep(500 * time.Microsecond)
		}
	}()

	clients := make([]*client.Client, 5)
	for i := range clients {
		clients[i] = dial(t, ts)
	}
	close(stop)
	wg.Wait()

	want := engine.Snapshot()
	for i, c := range clients {
		assert.Equal(t, want, lastState(t, c), "client %d", i)
	}
}
