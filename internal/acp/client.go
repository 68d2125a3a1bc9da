package acp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"monitor/internal/logging"
	"monitor/internal/session"
	"monitor/internal/types"
)

const (
	initializeTimeout = 120 * time.Second
	protocolVersion   = 1
)

type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      *int            `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client speaks line-delimited JSON-RPC to one agent process spawned in a
// workspace directory. Notifications are re-emitted as envelopes tagged with
// the workspace id; responses are routed to pending requests by id.
type Client struct {
	entry  types.WorkspaceEntry
	bin    string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger logging.Logger

	writeMu sync.Mutex
	idMu    sync.Mutex
	nextID  int

	pendMu  sync.Mutex
	pending map[int]chan rpcMessage

	events chan types.Envelope
}

// Dial spawns the agent in ACP mode inside the workspace directory, wires up
// the read loop and runs the initialize handshake.
func Dial(ctx context.Context, entry types.WorkspaceEntry, defaultBin string, logger logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	bin := resolveBin(entry.AgentBin, defaultBin)
	if _, err := CheckInstallation(ctx, bin); err != nil {
		return nil, err
	}

	cmd := command(bin, "acp")
	cmd.Dir = entry.Path
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to spawn %s: %w", bin, err)
	}

	logger.Info("agent_start", logging.F("bin", bin), logging.F("workspace", entry.ID), logging.F("cwd", entry.Path))

	c := &Client{
		entry:   entry,
		bin:     bin,
		cmd:     cmd,
		stdin:   stdin,
		logger:  logger,
		nextID:  1,
		pending: map[int]chan rpcMessage{},
		events:  make(chan types.Envelope, 256),
	}
	go c.readLoop(stdout)
	go c.drainStderr(stderr)

	initCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()
	if err := c.initialize(initCtx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize agent: %w", err)
	}
	return c, nil
}

// Events is the stream of notification envelopes from the agent. It closes
// when the process exits.
func (c *Client) Events() <-chan types.Envelope {
	if c == nil {
		return nil
	}
	return c.events
}

// WorkspaceID returns the workspace this client is bound to.
func (c *Client) WorkspaceID() string {
	if c == nil {
		return ""
	}
	return c.entry.ID
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	if c.stdin != nil {
		_ = c.stdin.Close()
	}
}

func (c *Client) readLoop(stdout io.Reader) {
	defer close(c.events)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg rpcMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if msg.ID != nil && msg.Method == "" {
			c.pendMu.Lock()
			ch := c.pending[*msg.ID]
			delete(c.pending, *msg.ID)
			c.pendMu.Unlock()
			if ch != nil {
				ch <- msg
			}
			continue
		}
		if msg.Method != "" {
			c.events <- types.Envelope{
				WorkspaceID: c.entry.ID,
				Method:      msg.Method,
				Params:      msg.Params,
			}
		}
	}
	c.logger.Info("agent_exit", logging.F("workspace", c.entry.ID))
}

func (c *Client) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if c.logger.Enabled(logging.Debug) {
			c.logger.Debug("agent_stderr", logging.F("workspace", c.entry.ID), logging.F("line", line))
		}
	}
}

func (c *Client) request(ctx context.Context, method string, params any, out any) error {
	c.idMu.Lock()
	id := c.nextID
	c.nextID++
	c.idMu.Unlock()

	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		payload["params"] = params
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ch := make(chan rpcMessage, 1)
	c.pendMu.Lock()
	c.pending[id] = ch
	c.pendMu.Unlock()

	if err := c.send(data); err != nil {
		c.pendMu.Lock()
		delete(c.pending, id)
		c.pendMu.Unlock()
		return err
	}
	if c.logger.Enabled(logging.Debug) {
		c.logger.Debug("agent_send", logging.F("method", method), logging.F("request_id", id))
	}

	select {
	case <-ctx.Done():
		c.pendMu.Lock()
		delete(c.pending, id)
		c.pendMu.Unlock()
		return ctx.Err()
	case msg := <-ch:
		if msg.Error != nil {
			if msg.Error.Message == "" {
				return errors.New("agent request failed")
			}
			return errors.New(msg.Error.Message)
		}
		if out != nil && len(msg.Result) > 0 {
			return json.Unmarshal(msg.Result, out)
		}
		return nil
	}
}

func (c *Client) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to agent stdin: %w", err)
	}
	return nil
}

func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo": map[string]any{
			"name":    "monitor",
			"version": "dev",
		},
		"clientCapabilities": map[string]any{},
	}
	return c.request(ctx, "initialize", params, nil)
}

// CreateSession asks the agent for a fresh session rooted at the workspace
// directory.
func (c *Client) CreateSession(ctx context.Context) (types.SessionInfo, error) {
	params := map[string]any{
		"cwd":        c.entry.Path,
		"mcpServers": []any{},
	}
	var result struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.request(ctx, "session/new", params, &result); err != nil {
		return types.SessionInfo{}, err
	}
	if result.SessionID == "" {
		return types.SessionInfo{}, errors.New("session id missing")
	}
	return types.SessionInfo{ID: result.SessionID, Title: "New Session"}, nil
}

// LoadSession makes the agent resume a stored session so its events stream
// again.
func (c *Client) LoadSession(ctx context.Context, sessionID string) error {
	return c.request(ctx, "session/load", map[string]any{"sessionId": sessionID}, nil)
}

// DeleteSession removes a stored session from the agent.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.request(ctx, "session/delete", map[string]any{"sessionId": sessionID}, nil)
}

// Messages returns a session's stored message history. Shape mismatches
// degrade to an empty history.
func (c *Client) Messages(ctx context.Context, sessionID string) ([]types.AgentMessage, error) {
	var raw json.RawMessage
	if err := c.request(ctx, "message/list", map[string]any{"sessionId": sessionID}, &raw); err != nil {
		return nil, err
	}
	return decodeMessages(raw), nil
}

// SendMessage prompts the session with one text block, optionally pinning a
// provider/model pair.
func (c *Client) SendMessage(ctx context.Context, sessionID, text string, opts session.PromptOptions) error {
	params := map[string]any{
		"sessionId": sessionID,
		"prompt": []map[string]any{
			{"type": "text", "text": text},
		},
	}
	if opts.ProviderID != "" && opts.ModelID != "" {
		params["modelId"] = opts.ProviderID + "/" + opts.ModelID
	}
	return c.request(ctx, "session/prompt", params, nil)
}

// Cancel interrupts the session's current operation.
func (c *Client) Cancel(ctx context.Context, sessionID string) error {
	return c.request(ctx, "session/cancel", map[string]any{"sessionId": sessionID}, nil)
}

// ListSessions shells out to the agent's session listing, which works without
// an ACP round trip. Unparseable output reads as an empty list.
func (c *Client) ListSessions(ctx context.Context) ([]types.SessionInfo, error) {
	return ListSessions(ctx, c.entry, c.bin)
}

func decodeMessages(raw json.RawMessage) []types.AgentMessage {
	if len(raw) == 0 {
		return nil
	}
	var messages []types.AgentMessage
	if err := json.Unmarshal(raw, &messages); err == nil {
		return messages
	}
	var wrapped struct {
		Messages []types.AgentMessage `json:"messages"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Messages
	}
	return nil
}
