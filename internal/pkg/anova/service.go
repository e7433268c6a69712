package anova

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/config"
	"github.com/anicoll/anova-integration/internal/pkg/model"
	"github.com/anicoll/anova-integration/pkg/sockets"
)

const (
	protocol             = "ANOVA_V2"
	supportedAccessories = "APO"
	maxMessageSize       = 1 << 20

	DefaultConnectTimeout = 15 * time.Second
	defaultPlatform       = "android"
)

// Service keeps one session with the relay and mirrors the ovens it reports.
type Service struct {
	cfg      *config.AnovaConfig
	logger   *zap.Logger
	identity *identityClient
	newConn  func(opts ...func(*sockets.Conn)) sockets.Connection

	session    *fsm.FSM
	registry   *Registry
	correlator *Correlator

	mu            sync.Mutex
	conn          sockets.Connection
	authenticated chan struct{}
	loginFailed   chan error
	disconnected  chan error
}

func New(cfg *config.AnovaConfig, logger *zap.Logger) *Service {
	c := *cfg
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Platform == "" {
		c.Platform = defaultPlatform
	}
	cfg = &c

	s := &Service{
		cfg:          cfg,
		logger:       logger,
		identity:     newIdentityClient(cfg.IdentityURL, cfg.APIKey, logger),
		newConn:      sockets.New,
		session:      newSession(logger),
		disconnected: make(chan error, 1),
	}
	s.registry = NewRegistry(s, logger)
	s.correlator = NewCorrelator(s.write, cfg.CommandTimeout, logger)
	return s
}

func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) Oven(deviceID string) (*Oven, bool) {
	return s.registry.Get(deviceID)
}

func (s *Service) Ovens() []*Oven {
	return s.registry.List()
}

// OnDeviceDiscovered registers a handler called once for each oven the relay reports.
func (s *Service) OnDeviceDiscovered(h DiscoveryHandler) {
	s.registry.OnDiscovered(h)
}

// OnCommandOutcome registers a handler called once for each settled command.
func (s *Service) OnCommandOutcome(h OutcomeHandler) {
	s.correlator.OnOutcome(h)
}

// Disconnected receives an error wrapping ErrDisconnected when the relay connection is lost.
func (s *Service) Disconnected() <-chan error {
	return s.disconnected
}

// Authenticated reports whether commands can currently be sent.
func (s *Service) Authenticated() bool {
	return s.session.Is(stateAuthenticated)
}

// SendCommand sends a command for the device and waits for the relay to settle it.
func (s *Service) SendCommand(ctx context.Context, deviceID string, command model.Command, payload any) error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	return s.correlator.Send(ctx, deviceID, command, payload)
}

// Login exchanges the account credentials for a token, opens the relay socket and waits
// for the first discovery list. Any previous connection is closed first.
func (s *Service) Login(ctx context.Context) error {
	token, err := s.identity.signIn(ctx, s.cfg.Email, s.cfg.Password)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	relayURL, err := s.relayURL(token)
	if err != nil {
		return err
	}

	s.reset()

	authenticated := make(chan struct{})
	loginFailed := make(chan error, 1)
	var conn sockets.Connection
	conn = s.newConn(
		sockets.WithSubprotocol(protocol),
		sockets.WithMaxMessageSize(maxMessageSize),
		sockets.WithPingInterval(s.cfg.PingInterval),
		sockets.WithHandshakeTimeout(s.cfg.ConnectTimeout),
		sockets.OnMessage(func(data []byte, _ sockets.Connection) {
			if s.isCurrent(conn) {
				s.dispatch(data)
			}
		}),
		sockets.OnError(func(err error) {
			s.connectionLost(conn, err)
		}),
	)

	if err := s.session.Event(ctx, eventDial); err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.authenticated = authenticated
	s.loginFailed = loginFailed
	s.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	s.logger.Info("connecting to relay", zap.String("host", hostOf(relayURL)))
	if err := conn.Dial(connectCtx, relayURL); err != nil {
		s.reset()
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	select {
	case <-authenticated:
		s.logger.Info("authenticated with relay")
		return nil
	case err := <-loginFailed:
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	case <-connectCtx.Done():
		s.reset()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrAuthTimeout
	}
}

// Close ends the relay session. Pending commands settle through their timeout.
func (s *Service) Close() error {
	s.reset()
	return nil
}

func (s *Service) relayURL(token string) (string, error) {
	u, err := url.Parse(s.cfg.RelayURL)
	if err != nil {
		return "", fmt.Errorf("parsing relay url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("supportedAccessories", supportedAccessories)
	q.Set("platform", s.cfg.Platform)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Service) write(data []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return sockets.ErrClosed
	}
	return conn.Send(sockets.Msg{Body: data})
}

// reset closes the current connection, if any, and returns the session to disconnected.
func (s *Service) reset() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.authenticated = nil
	s.loginFailed = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if s.session.Can(eventDrop) {
		_ = s.session.Event(context.Background(), eventDrop)
	}
}

func (s *Service) isCurrent(conn sockets.Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn == conn
}

func (s *Service) connectionLost(conn sockets.Connection, err error) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.authenticated = nil
	loginFailed := s.loginFailed
	s.loginFailed = nil
	s.mu.Unlock()

	// a login still waiting for the discovery list owns the failure.
	pendingLogin := s.session.Is(stateConnecting)
	s.logger.Error("relay connection lost", zap.Error(err), zap.Bool("during_login", pendingLogin))
	if s.session.Can(eventDrop) {
		_ = s.session.Event(context.Background(), eventDrop)
	}
	lost := fmt.Errorf("%w: %w", ErrDisconnected, err)
	if pendingLogin && loginFailed != nil {
		loginFailed <- lost
		return
	}
	select {
	case s.disconnected <- lost:
	default:
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
