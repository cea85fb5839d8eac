// Copyright © 2024 The wat-lsp authors

// Package lsp implements a Language Server Protocol server for WebAssembly
// text.  It provides diagnostics, hover, go-to-definition, references,
// document highlights, rename, document and workspace symbols, folding,
// call hierarchy, completion, signature help, semantic tokens and quick
// fixes for lint diagnostics.
package lsp

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/tliron/glsp"
	glspserver "github.com/tliron/glsp/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/lint"
	"github.com/EmNudge/wat-lsp-sub000/parser/watparser"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

const (
	serverName    = "wat-lsp"
	serverVersion = "0.1.0"
	tracerName    = "github.com/EmNudge/wat-lsp-sub000/lsp"

	// DefaultDebounce is the delay between the last edit of a document and
	// the lint run that publishes its diagnostics.
	DefaultDebounce = 300 * time.Millisecond
)

// Server is the WAT language server.
type Server struct {
	handler protocol.Handler
	glspSrv *glspserver.Server
	docs    *DocumentStore
	parser  syntax.Parser

	log    *zap.Logger
	tracer trace.Tracer

	// Linter instance shared across diagnostics runs.
	linter *lint.Linter

	// Debouncer for didChange notifications.
	debounceDelay time.Duration
	debounceMu    sync.Mutex
	debounce      map[string]*time.Timer

	// Context for sending notifications (captured from latest request).
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc

	// exitFn is called on the LSP exit notification. Defaults to os.Exit.
	// Overridable for testing.
	exitFn func(int)
}

// Option configures the LSP server.
type Option func(*Server)

// WithLogger sets the logger for document lifecycle and handler failures.
// The server logs nothing by default.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTracerProvider sets the provider of the tracer that records one span
// per request.  The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithParser replaces the in-memory WAT parser, for example with a
// tree-sitter backed one.
func WithParser(p syntax.Parser) Option {
	return func(s *Server) {
		if p != nil {
			s.parser = p
		}
	}
}

// WithDebounce sets the delay between an edit and its diagnostics.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.debounceDelay = d
		}
	}
}

// WithAnalyzers restricts the lint checks run for diagnostics.
func WithAnalyzers(analyzers []*lint.Analyzer) Option {
	return func(s *Server) {
		if len(analyzers) > 0 {
			s.linter.Analyzers = analyzers
		}
	}
}

// New creates a new WAT language server.
func New(opts ...Option) *Server {
	s := &Server{
		parser:        watparser.New(),
		log:           zap.NewNop(),
		tracer:        otel.GetTracerProvider().Tracer(tracerName),
		linter:        &lint.Linter{Analyzers: lint.DefaultAnalyzers()},
		debounceDelay: DefaultDebounce,
		debounce:      make(map[string]*time.Timer),
		exitFn:        os.Exit,
	}
	for _, o := range opts {
		o(s)
	}
	s.linter.Parser = s.parser
	s.docs = NewDocumentStore(s.parser)

	s.handler = protocol.Handler{
		Initialize: s.initialize,
		Shutdown:   s.shutdown,
		Exit:       s.exit,
		SetTrace:   s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:                s.textDocumentHover,
		TextDocumentDefinition:           s.textDocumentDefinition,
		TextDocumentReferences:           s.textDocumentReferences,
		TextDocumentDocumentHighlight:    s.textDocumentDocumentHighlight,
		TextDocumentDocumentSymbol:       s.textDocumentDocumentSymbol,
		TextDocumentRename:               s.textDocumentRename,
		TextDocumentPrepareRename:        s.textDocumentPrepareRename,
		TextDocumentFoldingRange:         s.textDocumentFoldingRange,
		TextDocumentCompletion:           s.textDocumentCompletion,
		TextDocumentSignatureHelp:        s.textDocumentSignatureHelp,
		TextDocumentPrepareCallHierarchy: s.textDocumentPrepareCallHierarchy,
		CallHierarchyIncomingCalls:       s.callHierarchyIncomingCalls,
		CallHierarchyOutgoingCalls:       s.callHierarchyOutgoingCalls,
		TextDocumentCodeAction:           s.textDocumentCodeAction,
		TextDocumentSemanticTokensFull:   s.textDocumentSemanticTokensFull,
		WorkspaceSymbol:                  s.workspaceSymbol,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio starts the server using stdio transport.
func (s *Server) RunStdio() error {
	s.log.Info("serving on stdio")
	return s.glspSrv.RunStdio()
}

// RunTCP starts the server listening on the given address.
func (s *Server) RunTCP(addr string) error {
	s.log.Info("serving on tcp", zap.String("addr", addr))
	return s.glspSrv.RunTCP(addr)
}

// initialize handles the LSP initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureNotify(ctx)
	if params.ClientInfo != nil {
		s.log.Debug("initialize", zap.String("client", params.ClientInfo.Name))
	}

	capabilities := s.handler.CreateServerCapabilities()

	// Override text document sync to full.
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: boolPtr(false)},
	}

	// Identifiers start with '$'.
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"$"},
	}

	// Enable prepare rename.
	capabilities.RenameProvider = &protocol.RenameOptions{
		PrepareProvider: boolPtr(true),
	}

	capabilities.SignatureHelpProvider = &protocol.SignatureHelpOptions{
		TriggerCharacters:   []string{" ", "("},
		RetriggerCharacters: []string{")"},
	}

	capabilities.SemanticTokensProvider = &protocol.SemanticTokensOptions{
		Legend: semanticTokenLegend(),
		Full:   true,
	}

	version := serverVersion
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// shutdown handles the LSP shutdown request.
func (s *Server) shutdown(_ *glsp.Context) error {
	// Cancel any pending debounce timers.
	s.debounceMu.Lock()
	for _, t := range s.debounce {
		t.Stop()
	}
	s.debounce = make(map[string]*time.Timer)
	s.debounceMu.Unlock()

	s.log.Debug("shutdown")
	return nil
}

// exit handles the LSP exit notification by terminating the process.
func (s *Server) exit(_ *glsp.Context) error {
	_ = s.log.Sync()
	s.exitFn(0)
	return nil
}

// setTrace handles the $/setTrace notification (required by some clients).
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

// startSpan opens the span covering one request on a document.
func (s *Server) startSpan(method, uri string) trace.Span {
	_, span := s.tracer.Start(context.Background(), method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("lsp.uri", uri)))
	return span
}

// captureNotify stores the notification function from the context for
// async use (e.g., publishing diagnostics after a debounce).
func (s *Server) captureNotify(ctx *glsp.Context) {
	if ctx == nil {
		return
	}
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.notifyMu.Unlock()
}

// sendNotification sends a notification to the client.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
