package navigation

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dshills/coderecall/internal/logging"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	shutdownTimeout       = 2 * time.Second
	exitGrace             = 2 * time.Second
)

var ErrNoCommand = errors.New("no language server command configured")

// Config configures a language server session
type Config struct {
	Command           []string // server binary followed by its arguments
	RootPath          string
	LanguageID        string        // empty derives it from the file extension
	RequestTimeout    time.Duration // per call
	RequestsPerSecond float64       // zero disables rate limiting
	Logger            logrus.FieldLogger
}

// Client is a JSON-RPC client for one language server connection
type Client struct {
	conn    io.ReadWriteCloser
	cmd     *exec.Cmd
	cfg     Config
	log     logrus.FieldLogger
	limiter *rate.Limiter

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan *message
	opened  map[string]*openDoc

	nextID          atomic.Int64
	noCallHierarchy atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// stdioConn joins a child process's stdout and stdin
type stdioConn struct {
	io.ReadCloser
	w io.WriteCloser
}

func (c *stdioConn) Write(p []byte) (int, error) { return c.w.Write(p) }

func (c *stdioConn) Close() error {
	werr := c.w.Close()
	rerr := c.ReadCloser.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Dial starts the configured language server and completes the initialize
// handshake.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if len(cfg.Command) == 0 {
		return nil, ErrNoCommand
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.RootPath
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open server stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open server stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cfg.Command[0], err)
	}

	c, err := newClient(&stdioConn{ReadCloser: stdout, w: stdin}, cfg)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	c.cmd = cmd
	if err := c.initialize(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewClient runs the initialize handshake over an established connection
func NewClient(ctx context.Context, conn io.ReadWriteCloser, cfg Config) (*Client, error) {
	c, err := newClient(conn, cfg)
	if err != nil {
		return nil, err
	}
	if err := c.initialize(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func newClient(conn io.ReadWriteCloser, cfg Config) (*Client, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	root := cfg.RootPath
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root path: %w", err)
	}
	cfg.RootPath = abs

	c := &Client{
		conn:    conn,
		cfg:     cfg,
		log:     logging.OrDiscard(cfg.Logger).WithField("component", "navigation"),
		pending: make(map[int64]chan *message),
		opened:  make(map[string]*openDoc),
		done:    make(chan struct{}),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	go c.readLoop()
	return c, nil
}

func (c *Client) initialize(ctx context.Context) error {
	params := initializeParams{
		ProcessID: os.Getpid(),
		RootURI:   PathToURI(c.cfg.RootPath),
		Capabilities: clientCapabilities{
			TextDocument: textDocumentClientCapabilities{
				DocumentSymbol: documentSymbolCapabilities{HierarchicalDocumentSymbolSupport: true},
				Hover:          hoverCapabilities{ContentFormat: []string{"plaintext", "markdown"}},
			},
		},
	}
	if _, err := c.call(ctx, "initialize", params); err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}
	return c.notify("initialized", struct{}{})
}

func (c *Client) readLoop() {
	defer close(c.done)

	r := bufio.NewReader(c.conn)
	for {
		body, err := readMessage(r)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				c.log.WithError(err).Debug("language server stream ended")
			}
			return
		}

		var msg message
		if err := json.Unmarshal(body, &msg); err != nil {
			c.log.WithError(err).Debug("dropping malformed frame")
			continue
		}

		switch {
		case msg.isResponse():
			id, err := strconv.ParseInt(strings.Trim(string(msg.ID), `"`), 10, 64)
			if err != nil {
				continue
			}
			c.mu.Lock()
			ch, ok := c.pending[id]
			delete(c.pending, id)
			c.mu.Unlock()
			if ok {
				ch <- &msg
			}
		case msg.Method != "" && len(msg.ID) > 0:
			// Server requests such as workspace/configuration get a null reply
			go func(id json.RawMessage) {
				if err := c.send(response{JSONRPC: "2.0", ID: id}); err != nil {
					c.log.WithError(err).Debug("failed to answer server request")
				}
			}(msg.ID)
		}
	}
}

func (c *Client) send(msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeMessage(c.conn, msg)
}

func (c *Client) notify(method string, params any) error {
	if err := c.send(notification{JSONRPC: "2.0", Method: method, Params: params}); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// call sends a request and waits for its result under the request timeout
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	select {
	case <-c.done:
		return nil, fmt.Errorf("%s: %w", method, ErrClosed)
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
	}

	id := c.nextID.Add(1)
	ch := make(chan *message, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(request{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return nil, fmt.Errorf("%s: %w", method, msg.Error)
		}
		return msg.Result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", method, ctx.Err())
	case <-c.done:
		return nil, fmt.Errorf("%s: %w", method, ErrClosed)
	}
}

// IsMethodNotFound reports whether err carries a method-not-found RPC error
func IsMethodNotFound(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == CodeMethodNotFound
}

// openDoc tracks one didOpen; done closes once it has been sent or failed
type openDoc struct {
	done chan struct{}
	err  error
}

// ensureOpen sends didOpen the first time a document is touched. Concurrent
// callers for the same path wait until that notification has been written.
func (c *Client) ensureOpen(path string) error {
	c.mu.Lock()
	if doc, ok := c.opened[path]; ok {
		c.mu.Unlock()
		select {
		case <-doc.done:
			return doc.err
		case <-c.done:
			return ErrClosed
		}
	}
	doc := &openDoc{done: make(chan struct{})}
	c.opened[path] = doc
	c.mu.Unlock()

	text, err := os.ReadFile(c.abs(path))
	if err == nil {
		err = c.notify("textDocument/didOpen", didOpenParams{
			TextDocument: textDocumentItem{
				URI:        PathToURI(c.abs(path)),
				LanguageID: c.languageID(path),
				Version:    1,
				Text:       string(text),
			},
		})
	}
	if err != nil {
		doc.err = fmt.Errorf("failed to open %s: %w", path, err)
		c.mu.Lock()
		delete(c.opened, path)
		c.mu.Unlock()
	}
	close(doc.done)
	return doc.err
}

// abs resolves paths relative to the workspace root
func (c *Client) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.cfg.RootPath, path)
}

// rel reports server paths relative to the root when they fall inside it
func (c *Client) rel(path string) string {
	r, err := filepath.Rel(c.cfg.RootPath, path)
	if err != nil || strings.HasPrefix(r, "..") {
		return path
	}
	return filepath.ToSlash(r)
}

var languageIDs = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascriptreact",
	".ts":   "typescript",
	".tsx":  "typescriptreact",
	".rs":   "rust",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".rb":   "ruby",
	".cs":   "csharp",
}

func (c *Client) languageID(path string) string {
	if c.cfg.LanguageID != "" {
		return c.cfg.LanguageID
	}
	if id, ok := languageIDs[strings.ToLower(filepath.Ext(path))]; ok {
		return id
	}
	return "plaintext"
}

func (c *Client) position(sym Symbol) textDocumentPositionParams {
	return textDocumentPositionParams{
		TextDocument: textDocumentIdentifier{URI: PathToURI(c.abs(sym.Path))},
		Position:     fromPosition(sym.anchor()),
	}
}

func (c *Client) relLocations(locs []Location) []Location {
	for i := range locs {
		locs[i].Path = c.rel(locs[i].Path)
	}
	return locs
}

// References returns the locations referring to sym, declaration excluded
func (c *Client) References(ctx context.Context, sym Symbol) ([]Location, error) {
	if err := c.ensureOpen(sym.Path); err != nil {
		return nil, err
	}
	pos := c.position(sym)
	raw, err := c.call(ctx, "textDocument/references", referenceParams{
		TextDocument: pos.TextDocument,
		Position:     pos.Position,
	})
	if err != nil {
		return nil, err
	}
	return c.relLocations(decodeLocations(raw)), nil
}

// CallHierarchy returns the callers or callees of sym. Once the server has
// answered method-not-found, incoming lookups return
// ErrCallHierarchyUnsupported and outgoing lookups return nothing.
func (c *Client) CallHierarchy(ctx context.Context, sym Symbol, dir Direction) ([]Symbol, error) {
	if c.noCallHierarchy.Load() {
		return unsupportedCalls(dir)
	}
	if err := c.ensureOpen(sym.Path); err != nil {
		return nil, err
	}

	raw, err := c.call(ctx, "textDocument/prepareCallHierarchy", c.position(sym))
	if err != nil {
		if IsMethodNotFound(err) {
			c.noCallHierarchy.Store(true)
			return unsupportedCalls(dir)
		}
		return nil, err
	}

	method := "callHierarchy/incomingCalls"
	if dir == Outgoing {
		method = "callHierarchy/outgoingCalls"
	}

	var out []Symbol
	for _, item := range rawItems(raw) {
		res, err := c.call(ctx, method, callHierarchyParams{Item: item})
		if err != nil {
			if IsMethodNotFound(err) {
				c.noCallHierarchy.Store(true)
				return unsupportedCalls(dir)
			}
			return nil, err
		}

		for _, call := range rawItems(res) {
			var end json.RawMessage
			if dir == Outgoing {
				var oc outgoingCall
				if json.Unmarshal(call, &oc) != nil {
					continue
				}
				end = oc.To
			} else {
				var ic incomingCall
				if json.Unmarshal(call, &ic) != nil {
					continue
				}
				end = ic.From
			}
			if s, ok := decodeCallItem(end); ok {
				s.Path = c.rel(s.Path)
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func unsupportedCalls(dir Direction) ([]Symbol, error) {
	if dir == Incoming {
		return nil, ErrCallHierarchyUnsupported
	}
	return []Symbol{}, nil
}

// DocumentSymbols returns every symbol declared in path, flattened
func (c *Client) DocumentSymbols(ctx context.Context, path string) ([]Symbol, error) {
	if err := c.ensureOpen(path); err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, "textDocument/documentSymbol", documentSymbolParams{
		TextDocument: textDocumentIdentifier{URI: PathToURI(c.abs(path))},
	})
	if err != nil {
		return nil, err
	}

	symbols := decodeSymbols(raw, path)
	for i := range symbols {
		symbols[i].Path = c.rel(symbols[i].Path)
	}
	return symbols, nil
}

// Hover returns the hover text at sym, or "" when there is none
func (c *Client) Hover(ctx context.Context, sym Symbol) (string, error) {
	if err := c.ensureOpen(sym.Path); err != nil {
		return "", err
	}
	raw, err := c.call(ctx, "textDocument/hover", c.position(sym))
	if err != nil {
		return "", err
	}
	return decodeHover(raw), nil
}

// Definition returns the first definition location of sym, or nil
func (c *Client) Definition(ctx context.Context, sym Symbol) (*Location, error) {
	if err := c.ensureOpen(sym.Path); err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, "textDocument/definition", c.position(sym))
	if err != nil {
		return nil, err
	}
	locs := c.relLocations(decodeLocations(raw))
	if len(locs) == 0 {
		return nil, nil
	}
	return &locs[0], nil
}

// Close shuts the server down and reaps its process
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if _, err := c.call(ctx, "shutdown", nil); err != nil {
			c.log.WithError(err).Debug("shutdown request failed")
		}
		_ = c.notify("exit", nil)
		c.closeErr = c.conn.Close()

		if c.cmd != nil && c.cmd.Process != nil {
			waitOrKill(c.cmd)
		}
	})
	return c.closeErr
}

func waitOrKill(cmd *exec.Cmd) {
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	select {
	case <-exited:
	case <-time.After(exitGrace):
		_ = cmd.Process.Kill()
		<-exited
	}
}

var _ Session = (*Client)(nil)
