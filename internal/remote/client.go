package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/rs/zerolog"
)

const (
	methodGetToken    = "get_token"
	methodAccountData = "account_data"
	methodChats       = "chats"
	methodCreateChat  = "create_chat"
)

// Client calls the remote chat API over JSON POST requests.
// It holds no per-session state and is safe for concurrent use.
type Client struct {
	baseURL string
	http    *stdhttp.Client
	log     *zerolog.Logger
}

// NewClient builds a client for baseURL. A nil httpClient means a client
// without timeouts; cancellation is driven by the caller's context.
func NewClient(baseURL string, httpClient *stdhttp.Client, logger *zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &stdhttp.Client{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     logger,
	}
}

type envelope struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg,omitempty"`
}

type tokenResponse struct {
	envelope
	ChatToken string `json:"chat_token"`
}

type accountResponse struct {
	envelope
	Users Identities `json:"users"`
}

type chatsResponse struct {
	envelope
	Chats map[string][]Message `json:"chats"`
}

type createChatRequest struct {
	ChatToken string `json:"chat_token"`
	Username  string `json:"username"`
	Tell      string `json:"tell,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Msg       string `json:"msg"`
}

type chatsRequest struct {
	ChatToken string   `json:"chat_token"`
	Usernames []string `json:"usernames"`
	After     float64  `json:"after,omitempty"`
}

// ExchangeCredential trades a short pass for a chat token.
func (c *Client) ExchangeCredential(ctx context.Context, pass string) (string, error) {
	var res tokenResponse
	if err := c.call(ctx, methodGetToken, map[string]string{"pass": pass}, &res); err != nil {
		return "", &AuthError{Op: methodGetToken, Err: err}
	}
	if res.ChatToken == "" {
		return "", &AuthError{Op: methodGetToken, Err: fmt.Errorf("%w: empty chat token", ErrRejected)}
	}
	return res.ChatToken, nil
}

// ListOwnedIdentities returns every identity the token may act as.
func (c *Client) ListOwnedIdentities(ctx context.Context, token string) (Identities, error) {
	var res accountResponse
	if err := c.call(ctx, methodAccountData, map[string]string{"chat_token": token}, &res); err != nil {
		return nil, &AuthError{Op: methodAccountData, Err: err}
	}
	if res.Users == nil {
		res.Users = Identities{}
	}
	return res.Users, nil
}

// FetchMessages returns messages for identities newer than after (seconds).
// The order of the returned slice is whatever the service produced.
func (c *Client) FetchMessages(ctx context.Context, token string, identities []string, after float64) ([]Message, error) {
	req := chatsRequest{ChatToken: token, Usernames: identities}
	if after > 0 {
		req.After = after
	}
	var res chatsResponse
	if err := c.call(ctx, methodChats, req, &res); err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	var out []Message
	for _, id := range identities {
		out = append(out, res.Chats[id]...)
	}
	return out, nil
}

// SendMessage posts text from identity to dest.
func (c *Client) SendMessage(ctx context.Context, token, from string, dest Destination, text string) error {
	req := createChatRequest{
		ChatToken: token,
		Username:  from,
		Tell:      dest.User,
		Channel:   dest.Channel,
		Msg:       text,
	}
	var res envelope
	if err := c.call(ctx, methodCreateChat, req, &res); err != nil {
		return &DeliveryError{Dest: dest, Err: err}
	}
	return nil
}

// call posts params to method and decodes the response into out, which must
// embed envelope so the ok flag can be checked.
func (c *Client) call(ctx context.Context, method string, params any, out interface{ ok() (bool, string) }) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodPost, c.baseURL+"/"+method+".json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if ok, msg := out.ok(); !ok {
		c.log.Debug().Str("method", method).Int("status", resp.StatusCode).Str("msg", msg).Msg("remote call rejected")
		if msg == "" {
			return ErrRejected
		}
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return nil
}

func (e *envelope) ok() (bool, string) { return e.OK, e.Msg }
