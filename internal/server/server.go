package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/golovatskygroup/hookbase-mcp/internal/config"
	"github.com/golovatskygroup/hookbase-mcp/internal/journal"
	"github.com/golovatskygroup/hookbase-mcp/internal/prompts"
	"github.com/golovatskygroup/hookbase-mcp/internal/registry"
	"github.com/golovatskygroup/hookbase-mcp/internal/telemetry"
	"github.com/golovatskygroup/hookbase-mcp/internal/tools"
	"github.com/golovatskygroup/hookbase-mcp/pkg/mcp"
)

const protocolVersion = "2024-11-05"

// Options configure a Server. Zero values are usable.
type Options struct {
	Name    string
	Version string
	// Strict hides all tools until the configuration resolves.
	Strict   bool
	Logger   *slog.Logger
	Journal  *journal.Journal
	Observer *telemetry.ToolObserver
}

// Server is the MCP adapter over the Hookbase API.
type Server struct {
	transport *mcp.Transport
	registry  *registry.Registry
	resolver  *config.Resolver
	opts      Options
	logger    *slog.Logger

	mu      sync.Mutex
	handler *tools.Handler

	// set when tools/list answered with nothing in strict mode
	hidden atomic.Bool
}

// New creates a server reading requests from in and writing responses to out.
func New(in io.Reader, out io.Writer, resolver *config.Resolver, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "hookbase-mcp"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	reg := registry.NewRegistry()
	tools.Register(reg)

	return &Server{
		transport: mcp.NewTransport(in, out),
		registry:  reg,
		resolver:  resolver,
		opts:      opts,
		logger:    logger,
	}
}

type readResult struct {
	req *mcp.Request
	err error
}

// Run serves until the input ends or ctx is cancelled. Tool calls run
// concurrently; Run waits for in-flight calls before returning.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.resolver.Resolve(ctx); err != nil {
		s.logger.Warn("hookbase configuration not resolved; tool calls will report the problem", "error", err, "strict", s.opts.Strict)
	}
	s.logger.Info("serving", "tools", s.registry.ToolCount(), "strict", s.opts.Strict)

	msgs := make(chan readResult)
	go func() {
		for {
			req, err := s.transport.ReadMessage()
			select {
			case msgs <- readResult{req, err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, mcp.ErrMalformed) {
				return
			}
		}
	}()

	var g errgroup.Group
	defer func() { _ = g.Wait() }()

	for {
		var m readResult
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m = <-msgs:
		}

		if m.err != nil {
			if errors.Is(m.err, mcp.ErrMalformed) {
				s.logger.Warn("dropping malformed message", "error", m.err)
				s.write(mcp.NewErrorResponse(json.RawMessage("null"), mcp.ParseError, m.err.Error()))
				continue
			}
			if errors.Is(m.err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read message: %w", m.err)
		}

		req := m.req
		if req.Method == "tools/call" && !req.IsNotification() {
			g.Go(func() error {
				s.write(s.handleCallTool(ctx, req))
				return nil
			})
			continue
		}
		resp := s.handleRequest(ctx, req)
		if resp != nil && !req.IsNotification() {
			s.write(resp)
		}
	}
}

func (s *Server) write(resp *mcp.Response) {
	if resp == nil {
		return
	}
	if err := s.transport.WriteResponse(resp); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

func (s *Server) handleRequest(ctx context.Context, req *mcp.Request) *mcp.Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized", "notifications/cancelled":
		return nil
	case "ping":
		return s.handlePing(req)
	case "tools/list":
		return s.handleListTools(ctx, req)
	case "tools/call":
		return s.handleCallTool(ctx, req)
	case "prompts/list":
		return respond(req.ID, mcp.ListPromptsResult{Prompts: prompts.List()})
	case "prompts/get":
		return s.handleGetPrompt(req)
	default:
		return mcp.NewErrorResponse(req.ID, mcp.MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func respond(id json.RawMessage, result any) *mcp.Response {
	resp, err := mcp.NewResponse(id, result)
	if err != nil {
		return mcp.NewErrorResponse(id, mcp.InternalError, err.Error())
	}
	return resp
}

func (s *Server) handleInitialize(req *mcp.Request) *mcp.Response {
	return respond(req.ID, mcp.InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Tools:   &mcp.ToolsCapability{ListChanged: s.opts.Strict},
			Prompts: &mcp.PromptsCapability{},
		},
		ServerInfo: mcp.ServerInfo{
			Name:    s.opts.Name,
			Version: s.opts.Version,
		},
		Instructions: s.buildInstructions(),
	})
}

func (s *Server) handlePing(req *mcp.Request) *mcp.Response {
	return respond(req.ID, map[string]any{})
}

func (s *Server) handleListTools(ctx context.Context, req *mcp.Request) *mcp.Response {
	if s.opts.Strict {
		if _, err := s.resolver.Resolve(ctx); err != nil {
			s.hidden.Store(true)
			s.logger.Warn("advertising no tools until configuration resolves", "error", err)
			return respond(req.ID, mcp.ListToolsResult{Tools: []mcp.Tool{}})
		}
		// the client now holds the full list
		s.hidden.Store(false)
	}
	return respond(req.ID, mcp.ListToolsResult{Tools: s.registry.List()})
}

func (s *Server) handleGetPrompt(req *mcp.Request) *mcp.Response {
	var params mcp.GetPromptParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params: "+err.Error())
	}
	res, err := prompts.Get(params.Name, params.Arguments)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, err.Error())
	}
	return respond(req.ID, res)
}

func (s *Server) handleCallTool(ctx context.Context, req *mcp.Request) *mcp.Response {
	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params: "+err.Error())
	}
	if strings.TrimSpace(params.Name) == "" {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params: name is required")
	}
	return respond(req.ID, s.callTool(ctx, params.Name, params.Arguments))
}

// callTool never fails at the protocol level: every problem becomes an
// error result the model can read.
func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) *mcp.CallToolResult {
	if _, ok := s.registry.Get(name); !ok {
		msg := fmt.Sprintf("Unknown tool: %s", name)
		if sug := s.registry.Suggest(name, 3); len(sug) > 0 {
			msg += ". Did you mean: " + strings.Join(sug, ", ") + "?"
		}
		return tools.ErrorResult(msg)
	}
	if err := s.registry.Validate(name, args); err != nil {
		return tools.ErrorResult(err.Error())
	}

	h, err := s.toolHandler(ctx)
	if err != nil {
		return tools.ErrorResult(err.Error())
	}

	start := time.Now()
	ctx, call := s.opts.Observer.Begin(ctx, name, s.registry.CategoryOf(name))
	res := s.invoke(ctx, h, name, args)
	errMsg := ""
	if res.IsError && len(res.Content) > 0 {
		errMsg = res.Content[0].Text
	}
	call.End(res.IsError, errMsg)
	s.record(ctx, name, args, res, errMsg, time.Since(start))
	return res
}

func (s *Server) invoke(ctx context.Context, h *tools.Handler, name string, args json.RawMessage) (res *mcp.CallToolResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool panicked", "tool", name, "panic", r)
			res = tools.ErrorResult(fmt.Sprintf("internal error in %s: %v", name, r))
		}
	}()
	var err error
	res, err = h.Handle(ctx, name, args)
	if err != nil {
		return tools.ErrorResult(err.Error())
	}
	return res
}

// toolHandler returns the handler bound to the resolved configuration,
// resolving on first use. Failed resolution is retried on the next call.
func (s *Server) toolHandler(ctx context.Context) (*tools.Handler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler != nil {
		return s.handler, nil
	}
	cfg, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	s.handler = tools.NewHandler(s.resolver.Client(cfg), cfg)

	if s.opts.Strict && s.hidden.Swap(false) {
		if err := s.transport.WriteNotification("notifications/tools/list_changed", nil); err != nil {
			s.logger.Error("write notification", "error", err)
		}
	}
	return s.handler, nil
}

func (s *Server) record(ctx context.Context, name string, args json.RawMessage, res *mcp.CallToolResult, errMsg string, d time.Duration) {
	if s.opts.Journal == nil {
		return
	}
	e := journal.Entry{
		Tool:       name,
		Status:     journal.StatusSuccess,
		Arguments:  args,
		DurationMS: d.Milliseconds(),
	}
	if res.IsError {
		e.Status = journal.StatusError
		e.Error = errMsg
	}
	for _, c := range res.Content {
		e.ResultSize += len(c.Text)
	}
	if err := s.opts.Journal.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("journal write failed", "tool", name, "error", err)
	}
}

func (s *Server) buildInstructions() string {
	var sb strings.Builder
	sb.WriteString("Hookbase webhook relay tools.\n\n")
	sb.WriteString("Inbound: sources receive webhooks, routes forward them to destinations, events and deliveries record what happened.\n")
	sb.WriteString("Outbound: applications own endpoints that subscribe to event types; hookbase_send_event fans out messages.\n\n")
	sb.WriteString("Categories:\n")
	for _, cat := range s.registry.ListCategories() {
		fmt.Fprintf(&sb, "- %s: %s\n", cat.Name, cat.Description)
	}
	fmt.Fprintf(&sb, "\nTotal available tools: %d\n", s.registry.ToolCount())
	return sb.String()
}
