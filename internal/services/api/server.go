// Package api serves the parse, check and apply operations over HTTP so editors
// and scripts can submit a diagram without shelling out to the CLI.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultListenAddress binds the loopback interface on a fixed port.
	DefaultListenAddress = "127.0.0.1:7878"

	defaultShutdownDuration = 5 * time.Second
	maximumRequestBytes     = 4 << 20
	headerContentType       = "Content-Type"
	mimeTypeJSON            = "application/json"
	capabilitiesPath        = "/capabilities"
	healthPath              = "/"
	commandsPrefix          = "/commands/"
	errorFieldName          = "error"
	errorCommandNotFound    = "command not found"
	decodeRequestFormat     = "decode %s request: %w"
	missingDiagramMessage   = "diagram is required"
	listenErrorFormat       = "listen on %s: %w"
	serveErrorFormat        = "serve api: %w"
	shutdownErrorFormat     = "shutdown api: %w"
	serverListeningMessage  = "api server listening"
	commandFailedMessage    = "api command failed"
)

// Capability describes one command the server accepts.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Request carries a diagram and the options of a single run.
type Request struct {
	Diagram string   `json:"diagram"`
	UseRoot bool     `json:"useRoot"`
	Base    string   `json:"base"`
	Exclude []string `json:"exclude"`
	Format  string   `json:"format"`
}

// Response holds the rendered output of a run. OK is false when a check found
// missing paths or an apply could not create some of them.
type Response struct {
	Command  string   `json:"command"`
	Format   string   `json:"format"`
	OK       bool     `json:"ok"`
	Output   string   `json:"output"`
	Warnings []string `json:"warnings,omitempty"`
}

// Handler executes one command for a decoded request.
type Handler interface {
	Handle(ctx context.Context, request Request) (Response, error)
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(context.Context, Request) (Response, error)

// Handle invokes the underlying function.
func (handler HandlerFunc) Handle(ctx context.Context, request Request) (Response, error) {
	return handler(ctx, request)
}

// StatusError attaches an HTTP status code to a handler failure.
type StatusError struct {
	statusCode int
	err        error
}

// Error returns the error string.
func (statusError StatusError) Error() string {
	return statusError.err.Error()
}

// Unwrap exposes the wrapped error.
func (statusError StatusError) Unwrap() error {
	return statusError.err
}

// StatusCode reports the associated HTTP status code.
func (statusError StatusError) StatusCode() int {
	return statusError.statusCode
}

// NewStatusError wraps err with an HTTP status code. A nil err stays nil.
func NewStatusError(statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return StatusError{statusCode: statusCode, err: err}
}

// Config defines runtime options for the server.
type Config struct {
	Address         string
	Capabilities    []Capability
	Handlers        map[string]Handler
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Server accepts diagrams over HTTP and dispatches them to command handlers.
type Server struct {
	config Config
}

// NewServer creates a new Server with defaults applied.
func NewServer(config Config) Server {
	normalized := config
	if normalized.Address == "" {
		normalized.Address = DefaultListenAddress
	}
	if normalized.ShutdownTimeout <= 0 {
		normalized.ShutdownTimeout = defaultShutdownDuration
	}
	if normalized.Capabilities == nil {
		normalized.Capabilities = []Capability{}
	}
	if normalized.Handlers == nil {
		normalized.Handlers = map[string]Handler{}
	}
	if normalized.Logger == nil {
		normalized.Logger = zap.NewNop()
	}
	return Server{config: normalized}
}

// Run starts the server and blocks until ctx is canceled. The notify callback
// receives the bound address once the listener is active.
func (server Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenErr := net.Listen("tcp", server.config.Address)
	if listenErr != nil {
		return fmt.Errorf(listenErrorFormat, server.config.Address, listenErr)
	}
	actualAddress := listener.Addr().String()
	server.config.Logger.Debug(serverListeningMessage, zap.String("address", actualAddress))

	httpServer := &http.Server{Handler: server.routes()}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		serveErr := httpServer.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf(serveErrorFormat, serveErr)
		}
		return nil
	})

	if notify != nil {
		notify(actualAddress)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancel()
		shutdownErr := httpServer.Shutdown(shutdownCtx)
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) && !errors.Is(shutdownErr, http.ErrServerClosed) {
			return fmt.Errorf(shutdownErrorFormat, shutdownErr)
		}
		return nil
	})

	return group.Wait()
}

func (server Server) routes() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc(capabilitiesPath, server.handleCapabilities)
	router.HandleFunc(healthPath, server.handleHealth)
	router.HandleFunc(commandsPrefix, server.handleCommand)
	return router
}

func (server Server) handleCapabilities(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	payload := struct {
		Capabilities []Capability `json:"capabilities"`
	}{Capabilities: server.config.Capabilities}
	server.writeJSON(writer, http.StatusOK, payload)
}

func (server Server) handleHealth(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writer.WriteHeader(http.StatusOK)
}

func (server Server) handleCommand(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	commandName := strings.TrimPrefix(request.URL.Path, commandsPrefix)
	handler, found := server.config.Handlers[commandName]
	if commandName == "" || strings.Contains(commandName, "/") || !found {
		server.writeError(writer, http.StatusNotFound, errors.New(errorCommandNotFound))
		return
	}

	var commandRequest Request
	decoder := json.NewDecoder(io.LimitReader(request.Body, maximumRequestBytes))
	decoder.DisallowUnknownFields()
	if decodeErr := decoder.Decode(&commandRequest); decodeErr != nil {
		server.writeError(writer, http.StatusBadRequest, fmt.Errorf(decodeRequestFormat, commandName, decodeErr))
		return
	}
	if strings.TrimSpace(commandRequest.Diagram) == "" {
		server.writeError(writer, http.StatusBadRequest, errors.New(missingDiagramMessage))
		return
	}

	commandResponse, handleErr := handler.Handle(request.Context(), commandRequest)
	if handleErr != nil {
		statusCode := statusCodeFromError(handleErr)
		server.config.Logger.Debug(commandFailedMessage, zap.String("command", commandName), zap.Int("status", statusCode), zap.Error(handleErr))
		server.writeError(writer, statusCode, handleErr)
		return
	}
	server.writeJSON(writer, http.StatusOK, commandResponse)
}

func (server Server) writeError(writer http.ResponseWriter, statusCode int, err error) {
	server.writeJSON(writer, statusCode, map[string]string{errorFieldName: err.Error()})
}

func (server Server) writeJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	var buffer bytes.Buffer
	if encodeErr := json.NewEncoder(&buffer).Encode(payload); encodeErr != nil {
		fallback := map[string]string{errorFieldName: fmt.Sprintf("encode response: %v", encodeErr)}
		writer.Header().Set(headerContentType, mimeTypeJSON)
		writer.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(writer).Encode(fallback)
		return
	}
	writer.Header().Set(headerContentType, mimeTypeJSON)
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(buffer.Bytes())
}

func statusCodeFromError(err error) int {
	var statusError StatusError
	if errors.As(err, &statusError) {
		return statusError.StatusCode()
	}
	return http.StatusInternalServerError
}
