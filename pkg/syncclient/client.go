// Package syncclient keeps a reconcile.State in step with a gtdsync server:
// a full refetch over HTTP, then every change pushed over the WebSocket channel.
package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/models"
	"gtdsync/pkg/reconcile"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
)

// Client syncs one user's State against a server.
type Client struct {
	baseURL string
	token   string
	state   *reconcile.State
	dialer  *websocket.Dialer
	timeout time.Duration

	// OnMessage, if set, is called after each pushed message has been applied.
	OnMessage func(broadcast.Message)
}

// New creates a client for the server at baseURL (http:// or https://).
func New(baseURL, token string, state *reconcile.State) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		state:   state,
		dialer:  websocket.DefaultDialer,
		timeout: 10 * time.Second,
	}
}

// Refresh refetches tasks, projects and (when one is selected) the current
// project's board, replacing the local view.
func (c *Client) Refresh() error {
	var tasks []models.Task
	if err := c.getJSON("/tasks", &tasks); err != nil {
		return err
	}
	c.state.LoadTasks(tasks)

	var projects []models.Project
	if err := c.getJSON("/projects", &projects); err != nil {
		return err
	}
	c.state.LoadProjects(projects)

	if projectID := c.state.CurrentProject(); projectID != "" {
		var items []models.DesignControl
		if err := c.getJSON("/designControls/"+url.PathEscape(projectID), &items); err != nil {
			return err
		}
		c.state.LoadDesignControls(items)
	}
	return nil
}

// Run dials the push channel and applies every message until ctx ends or the
// connection drops. It returns nil when ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	wsURL, err := c.pushURL()
	if err != nil {
		return err
	}

	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial push channel: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, body, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("push channel read failed: %w", err)
		}

		var msg broadcast.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Printf("syncclient: skipping undecodable message: %v", err)
			continue
		}
		c.state.Apply(msg)
		if c.OnMessage != nil {
			c.OnMessage(msg)
		}
	}
}

func (c *Client) pushURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {c.token}}.Encode()
	return u.String(), nil
}

func (c *Client) getJSON(path string, out interface{}) error {
	agent := fiber.Get(c.baseURL + path).
		Set(fiber.HeaderAuthorization, "Bearer "+c.token).
		Timeout(c.timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("GET %s: %w", path, errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d: %s", path, code, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: failed to decode response: %w", path, err)
	}
	return nil
}
