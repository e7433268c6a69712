package anova

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

type identityErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type identityClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	logger     *zap.Logger
}

func newIdentityClient(endpoint, apiKey string, logger *zap.Logger) *identityClient {
	return &identityClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   endpoint,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// signIn exchanges account credentials for a bearer id token.
func (c *identityClient) signIn(ctx context.Context, email, password string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	body, err := json.Marshal(signInRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		errResp := identityErrorResponse{}
		if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("identity exchange returned %d: %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("identity exchange returned %d", resp.StatusCode)
	}

	signIn := signInResponse{}
	if err := json.Unmarshal(data, &signIn); err != nil {
		return "", fmt.Errorf("decoding identity response: %w", err)
	}
	if signIn.IDToken == "" {
		return "", fmt.Errorf("identity response carried no token")
	}
	c.inspect(signIn.IDToken)
	return signIn.IDToken, nil
}

// inspect logs the subject and expiry of the token. The relay verifies the signature.
func (c *identityClient) inspect(token string) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		c.logger.Debug("id token is not a readable jwt", zap.Error(err))
		return
	}
	fields := []zap.Field{zap.String("subject", claims.Subject)}
	if claims.ExpiresAt != nil {
		fields = append(fields, zap.Time("expires_at", claims.ExpiresAt.Time))
	}
	c.logger.Info("obtained id token", fields...)
}
