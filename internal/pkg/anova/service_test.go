package anova

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/anicoll/anova-integration/internal/pkg/config"
	"github.com/anicoll/anova-integration/internal/pkg/model"
)

const (
	testEmail    = "cook@example.com"
	testPassword = "hunter2"
	testAPIKey   = "test-key"
)

type relayHandshake struct {
	query    url.Values
	protocol string
}

// fakeRelay accepts one client at a time, writes whatever is pushed and collects
// whatever the client sends.
type fakeRelay struct {
	srv        *httptest.Server
	handshakes chan relayHandshake
	toClient   chan string
	fromClient chan []byte
	drop       chan struct{}
	done       chan struct{}
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	r := &fakeRelay{
		handshakes: make(chan relayHandshake, 4),
		toClient:   make(chan string, 32),
		fromClient: make(chan []byte, 32),
		drop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	upgrader := websocket.Upgrader{Subprotocols: []string{protocol}}
	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		r.handshakes <- relayHandshake{query: req.URL.Query(), protocol: conn.Subprotocol()}

		go func() {
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				select {
				case r.fromClient <- msg:
				case <-r.done:
					return
				}
			}
		}()

		for {
			select {
			case frame := <-r.toClient:
				if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
					return
				}
			case <-r.drop:
				return
			case <-r.done:
				return
			}
		}
	}))
	t.Cleanup(r.srv.Close)
	t.Cleanup(func() { close(r.done) })
	return r
}

func (r *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http") + "/"
}

func (r *fakeRelay) push(frames ...string) {
	for _, f := range frames {
		r.toClient <- f
	}
}

func (r *fakeRelay) next(t *testing.T) sentEnvelope {
	t.Helper()
	select {
	case msg := <-r.fromClient:
		env := sentEnvelope{}
		require.NoError(t, json.Unmarshal(msg, &env))
		return env
	case <-time.After(3 * time.Second):
		t.Fatal("relay received nothing")
		return sentEnvelope{}
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func wifiListFrame(t *testing.T, entries ...model.WifiListEntry) string {
	return mustJSON(t, map[string]any{"command": model.WifiList, "payload": entries})
}

func stateFrame(t *testing.T, deviceID string, s model.OvenState) string {
	return mustJSON(t, map[string]any{
		"command": model.State,
		"payload": model.StatePayload{CookerID: deviceID, State: s, Type: "oven_v1"},
	})
}

func responseFrame(t *testing.T, requestID, status string) string {
	return mustJSON(t, map[string]any{
		"command":   model.Response,
		"requestId": requestID,
		"payload":   map[string]string{"status": status},
	})
}

func testToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func newIdentityServer(t *testing.T, token string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, testAPIKey, r.URL.Query().Get("key"))
		body := signInRequest{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, testEmail, body.Email)
		assert.Equal(t, testPassword, body.Password)
		assert.True(t, body.ReturnSecureToken)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_PASSWORD"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(signInResponse{IDToken: token, ExpiresIn: "3600"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(identityURL, relayURL string) *config.AnovaConfig {
	return &config.AnovaConfig{
		Email:          testEmail,
		Password:       testPassword,
		APIKey:         testAPIKey,
		IdentityURL:    identityURL,
		RelayURL:       relayURL,
		Platform:       "android",
		CommandTimeout: 2 * time.Second,
		ConnectTimeout: 2 * time.Second,
	}
}

// loggedIn returns a service authenticated against the fake relay. The discovery list
// is pushed by the caller before or after, as the test needs.
func loggedIn(t *testing.T, relay *fakeRelay, logger *zap.Logger) *Service {
	t.Helper()
	token := testToken(t)
	identity := newIdentityServer(t, token, http.StatusOK)
	svc := New(testConfig(identity.URL, relay.url()), logger)
	t.Cleanup(func() { _ = svc.Close() })

	relay.push(wifiListFrame(t))
	require.NoError(t, svc.Login(context.Background()))
	return svc
}

func waitForOven(t *testing.T, svc *Service, deviceID string) *Oven {
	t.Helper()
	var oven *Oven
	require.Eventually(t, func() bool {
		var ok bool
		oven, ok = svc.Oven(deviceID)
		return ok
	}, 3*time.Second, 10*time.Millisecond)
	return oven
}

func TestService_Login(t *testing.T) {
	relay := newFakeRelay(t)
	token := testToken(t)
	identity := newIdentityServer(t, token, http.StatusOK)
	svc := New(testConfig(identity.URL, relay.url()), zaptest.NewLogger(t))
	t.Cleanup(func() { _ = svc.Close() })

	assert.False(t, svc.Authenticated())
	relay.push(wifiListFrame(t, model.WifiListEntry{CookerID: "a1b2c3d4", Name: "Kitchen", Type: "oven_v1"}))
	require.NoError(t, svc.Login(context.Background()))
	assert.True(t, svc.Authenticated())

	hs := <-relay.handshakes
	assert.Equal(t, protocol, hs.protocol)
	assert.Equal(t, token, hs.query.Get("token"))
	assert.Equal(t, "APO", hs.query.Get("supportedAccessories"))
	assert.Equal(t, "android", hs.query.Get("platform"))

	relay.push(stateFrame(t, "a1b2c3d4", idleState()))
	oven := waitForOven(t, svc, "a1b2c3d4")
	assert.Equal(t, "Kitchen", oven.Name())
}

func TestService_LoginIdentityFailure(t *testing.T) {
	relay := newFakeRelay(t)
	identity := newIdentityServer(t, "", http.StatusBadRequest)
	svc := New(testConfig(identity.URL, relay.url()), zaptest.NewLogger(t))

	err := svc.Login(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Contains(t, err.Error(), "INVALID_PASSWORD")
	assert.False(t, svc.Authenticated())
}

func TestService_LoginTimeout(t *testing.T) {
	relay := newFakeRelay(t)
	identity := newIdentityServer(t, testToken(t), http.StatusOK)
	cfg := testConfig(identity.URL, relay.url())
	cfg.ConnectTimeout = 200 * time.Millisecond
	svc := New(cfg, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = svc.Close() })

	// no discovery list is ever pushed.
	err := svc.Login(context.Background())
	assert.ErrorIs(t, err, ErrAuthTimeout)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.False(t, svc.Authenticated())
}

func TestService_LoginDialFailure(t *testing.T) {
	identity := newIdentityServer(t, testToken(t), http.StatusOK)
	notRelay := httptest.NewServer(http.NotFoundHandler())
	defer notRelay.Close()
	svc := New(testConfig(identity.URL, "ws"+strings.TrimPrefix(notRelay.URL, "http")+"/"), zaptest.NewLogger(t))

	err := svc.Login(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.False(t, svc.Authenticated())
}

func TestService_SendBeforeLogin(t *testing.T) {
	svc := New(testConfig("http://127.0.0.1:1", "ws://127.0.0.1:1/"), zaptest.NewLogger(t))

	err := svc.SendCommand(context.Background(), "oven-1", model.StopCook, nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, svc.correlator.Pending())
}

func TestService_StartCookRoundTrip(t *testing.T) {
	relay := newFakeRelay(t)
	svc := loggedIn(t, relay, zaptest.NewLogger(t))

	outcomes := make(chan CommandOutcome, 1)
	svc.OnCommandOutcome(func(o CommandOutcome) { outcomes <- o })

	relay.push(stateFrame(t, "oven-1", idleState()))
	oven := waitForOven(t, svc, "oven-1")

	type result struct {
		cookID string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		cookID, err := oven.StartCook(context.Background(), model.PowerOnStages())
		done <- result{cookID, err}
	}()

	env := relay.next(t)
	assert.Equal(t, model.StartCook, env.Command)
	req := model.StartCookRequest{}
	require.NoError(t, json.Unmarshal(env.Payload, &req))
	assert.Equal(t, model.StartCook, req.Type)
	assert.Equal(t, "oven-1", req.ID)
	assert.NotEmpty(t, req.Payload.CookID)
	for _, s := range req.Payload.Stages {
		assert.NotEmpty(t, s.ID)
	}

	relay.push(responseFrame(t, env.RequestID, model.StatusOK))

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, req.Payload.CookID, res.cookID)
	case <-time.After(3 * time.Second):
		t.Fatal("StartCook did not return")
	}

	outcome := <-outcomes
	assert.Equal(t, env.RequestID, outcome.RequestID)
	assert.Equal(t, "oven-1", outcome.DeviceID)
	assert.NoError(t, outcome.Err)
}

func TestService_StopCookRejected(t *testing.T) {
	relay := newFakeRelay(t)
	svc := loggedIn(t, relay, zaptest.NewLogger(t))

	relay.push(stateFrame(t, "oven-1", cookingState(model.ToastStages())))
	oven := waitForOven(t, svc, "oven-1")

	errs := make(chan error, 1)
	go func() { errs <- oven.StopCook(context.Background()) }()

	env := relay.next(t)
	assert.Equal(t, model.StopCook, env.Command)
	assert.JSONEq(t, `{"type":"CMD_APO_STOP","id":"oven-1"}`, string(env.Payload))
	relay.push(responseFrame(t, env.RequestID, "error"))

	err := <-errs
	assert.ErrorIs(t, err, ErrCommandRejected)
}

func TestService_FramesHandledInOrder(t *testing.T) {
	relay := newFakeRelay(t)
	svc := loggedIn(t, relay, zaptest.NewLogger(t))

	var events func() []Event
	discovered := make(chan struct{})
	svc.OnDeviceDiscovered(func(o *Oven) {
		events = recordEvents(o)
		close(discovered)
	})

	relay.push(
		stateFrame(t, "oven-1", idleState()),
		stateFrame(t, "oven-1", cookingState(model.ToastStages())),
		stateFrame(t, "oven-1", idleState()),
		stateFrame(t, "oven-1", cookingState(model.PowerOnStages())),
	)
	<-discovered
	require.Eventually(t, func() bool { return len(events()) == 7 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []EventType{
		EventStateUpdated,
		EventCookStarted, EventStateUpdated,
		EventCookEnded, EventStateUpdated,
		EventCookStarted, EventStateUpdated,
	}, eventTypes(events()))

	oven, _ := svc.Oven("oven-1")
	cooking, err := oven.IsCooking(model.PowerOnStages())
	require.NoError(t, err)
	assert.True(t, cooking)
}

func TestService_UnknownAndMalformedFramesDropped(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	relay := newFakeRelay(t)
	svc := loggedIn(t, relay, zap.New(core))

	relay.push(
		`{"command":"EVENT_APO_SOMETHING_NEW","payload":{}}`,
		`not json`,
		`{"command":"EVENT_APO_STATE","payload":"nope"}`,
		`{"command":"RESPONSE","requestId":"unknown","payload":{"status":"ok"}}`,
		stateFrame(t, "oven-1", idleState()),
	)
	waitForOven(t, svc, "oven-1")

	assert.Equal(t, 1, logs.FilterMessage("unknown message type received").Len())
	assert.Equal(t, 1, logs.FilterMessage("dropping malformed frame").Len())
	assert.Equal(t, 1, logs.FilterMessage("dropping malformed state frame").Len())
	assert.Equal(t, 1, logs.FilterMessage("ignoring response with no pending command").Len())
	assert.Len(t, svc.Ovens(), 1)
}

func TestService_NameChangeFromDiscoveryList(t *testing.T) {
	relay := newFakeRelay(t)
	svc := loggedIn(t, relay, zaptest.NewLogger(t))

	relay.push(stateFrame(t, "a1b2c3d4", idleState()))
	oven := waitForOven(t, svc, "a1b2c3d4")
	assert.Equal(t, "Oven a1b2", oven.Name())

	renamed := make(chan Event, 1)
	oven.OnEvent(func(e Event) {
		if e.Type == EventNameChanged {
			renamed <- e
		}
	})
	relay.push(wifiListFrame(t, model.WifiListEntry{CookerID: "a1b2c3d4", Name: "Kitchen"}))

	select {
	case e := <-renamed:
		assert.Equal(t, "Kitchen", e.Name)
	case <-time.After(3 * time.Second):
		t.Fatal("no rename event")
	}
}

func TestService_Disconnected(t *testing.T) {
	relay := newFakeRelay(t)
	svc := loggedIn(t, relay, zaptest.NewLogger(t))

	relay.drop <- struct{}{}

	select {
	case err := <-svc.Disconnected():
		assert.ErrorIs(t, err, ErrDisconnected)
	case <-time.After(3 * time.Second):
		t.Fatal("disconnect not reported")
	}
	assert.False(t, svc.Authenticated())
	assert.ErrorIs(t, svc.SendCommand(context.Background(), "oven-1", model.StopCook, nil), ErrNotAuthenticated)
}

func TestService_LoginFailsWhenDroppedBeforeDiscovery(t *testing.T) {
	relay := newFakeRelay(t)
	identity := newIdentityServer(t, testToken(t), http.StatusOK)
	cfg := testConfig(identity.URL, relay.url())
	cfg.ConnectTimeout = 10 * time.Second
	svc := New(cfg, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = svc.Close() })

	errs := make(chan error, 1)
	start := time.Now()
	go func() { errs <- svc.Login(context.Background()) }()

	<-relay.handshakes
	relay.drop <- struct{}{}

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrAuthentication)
		assert.ErrorIs(t, err, ErrDisconnected)
		assert.NotErrorIs(t, err, ErrAuthTimeout)
		assert.Less(t, time.Since(start), 5*time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("login waited for the connect timeout")
	}
	assert.False(t, svc.Authenticated())

	select {
	case err := <-svc.Disconnected():
		t.Fatalf("login failure also reported as a disconnect: %v", err)
	default:
	}
}
