package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/mktree/internal/app"
	"github.com/tyemirov/mktree/internal/output"
	"github.com/tyemirov/mktree/internal/services/api"
	"github.com/tyemirov/mktree/internal/services/stream"
	"github.com/tyemirov/mktree/internal/source"
	"github.com/tyemirov/mktree/internal/types"
	"github.com/tyemirov/mktree/internal/utils"
)

const (
	serveUse              = "serve"
	serveShortDescription = "accept diagrams over HTTP"
	serveLongDescription  = `Start an HTTP server that parses and checks diagrams posted as JSON to
/commands/parse and /commands/check. With --allow-apply it also creates them via
/commands/apply. Every path is resolved inside the served root directory.`
	serveUsageExample = `  mktree serve --root ./workspace --allow-apply
  curl -s localhost:7878/commands/parse -d '{"diagram":"app/\n└── main.go","format":"json"}'`

	addressFlagName           = "address"
	serveRootFlagName         = "root"
	allowApplyFlagName        = "allow-apply"
	addressFlagDescription    = "address to listen on"
	serveRootFlagDescription  = "directory that contains every path the server touches"
	allowApplyFlagDescription = "expose the apply command, which creates paths"

	parseCapabilityDescription = "Parse a diagram and render its entries"
	checkCapabilityDescription = "Report which entries of a diagram are missing"
	applyCapabilityDescription = "Create the missing entries of a diagram"

	serverListeningFormat  = "Listening on http://%s\n"
	baseOutsideRootMessage = "base must be a relative path inside the served root: %q"
	serveRootErrorFormat   = "resolve served root %s: %w"
)

// serveOptions stores flags of the serve command.
type serveOptions struct {
	address    string
	root       string
	allowApply bool
}

// createServeCommand returns the serve subcommand.
func createServeCommand(env environment, globals *globalOptions) *cobra.Command {
	var options serveOptions

	serveCommand := &cobra.Command{
		Use:     serveUse,
		Short:   serveShortDescription,
		Long:    serveLongDescription,
		Example: serveUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			configuration, err := loadConfiguration(env, *globals)
			if err != nil {
				return err
			}
			address := resolveString(command, addressFlagName, options.address, configuration.Serve.Address, api.DefaultListenAddress)
			root := resolveString(command, serveRootFlagName, options.root, configuration.Serve.Root, env.workingDirectory)
			allowApply := resolveBool(command, allowApplyFlagName, options.allowApply, configuration.Serve.AllowApply)
			if !filepath.IsAbs(root) {
				root = filepath.Join(env.workingDirectory, root)
			}
			if _, statErr := env.filesystem.Stat(root); statErr != nil {
				return fmt.Errorf(serveRootErrorFormat, root, statErr)
			}

			logger := commandLogger(env, *globals)
			handlers := newServeHandlers(afero.NewBasePathFs(env.filesystem, root), logger)
			server := api.NewServer(api.Config{
				Address:      address,
				Capabilities: handlers.capabilities(allowApply),
				Handlers:     handlers.handlers(allowApply),
				Logger:       logger,
			})
			return server.Run(command.Context(), func(boundAddress string) {
				fmt.Fprintf(env.stdout, serverListeningFormat, boundAddress)
			})
		},
	}
	serveCommand.Flags().StringVar(&options.address, addressFlagName, api.DefaultListenAddress, addressFlagDescription)
	serveCommand.Flags().StringVar(&options.root, serveRootFlagName, "", serveRootFlagDescription)
	registerBooleanFlag(serveCommand.Flags(), &options.allowApply, allowApplyFlagName, "", false, allowApplyFlagDescription)
	return serveCommand
}

// serveHandlers runs posted diagrams against a filesystem rooted at the served directory.
type serveHandlers struct {
	filesystem afero.Fs
	logger     *zap.Logger
}

func newServeHandlers(filesystem afero.Fs, logger *zap.Logger) serveHandlers {
	return serveHandlers{filesystem: filesystem, logger: logger}
}

func (handlers serveHandlers) capabilities(allowApply bool) []api.Capability {
	capabilities := []api.Capability{
		{Name: types.CommandParse, Description: parseCapabilityDescription},
		{Name: types.CommandCheck, Description: checkCapabilityDescription},
	}
	if allowApply {
		capabilities = append(capabilities, api.Capability{Name: types.CommandApply, Description: applyCapabilityDescription})
	}
	return capabilities
}

func (handlers serveHandlers) handlers(allowApply bool) map[string]api.Handler {
	registered := map[string]api.Handler{
		types.CommandParse: api.HandlerFunc(handlers.parse),
		types.CommandCheck: api.HandlerFunc(func(ctx context.Context, request api.Request) (api.Response, error) {
			return handlers.run(ctx, request, true)
		}),
	}
	if allowApply {
		registered[types.CommandApply] = api.HandlerFunc(func(ctx context.Context, request api.Request) (api.Response, error) {
			return handlers.run(ctx, request, false)
		})
	}
	return registered
}

func (handlers serveHandlers) loadOptions(request api.Request) app.LoadOptions {
	return app.LoadOptions{
		Source: source.Options{
			Path:  utils.StandardInputPath,
			Stdin: strings.NewReader(request.Diagram),
		},
		UseRoot: request.UseRoot,
		Logger:  handlers.logger,
	}
}

func (handlers serveHandlers) parse(_ context.Context, request api.Request) (api.Response, error) {
	format := requestFormat(request.Format, types.FormatTree)
	if !isSupportedFormat(format, parseFormats) {
		return api.Response{}, api.NewStatusError(http.StatusBadRequest, fmt.Errorf(invalidFormatMessage, format))
	}
	loaded, err := app.Load(handlers.loadOptions(request))
	if err != nil {
		return api.Response{}, requestError(err)
	}
	root := ""
	if loaded.HasRoot {
		root = loaded.Root
	}
	var rendered bytes.Buffer
	if err := output.RenderStructure(&rendered, format, loaded.Structure.Output(root)); err != nil {
		return api.Response{}, err
	}
	response := api.Response{Command: types.CommandParse, Format: format, OK: true, Output: rendered.String()}
	for _, skipped := range loaded.Structure.Skipped() {
		response.Warnings = append(response.Warnings, stream.SkippedLineWarning(skipped))
	}
	return response, nil
}

func (handlers serveHandlers) run(ctx context.Context, request api.Request, checkOnly bool) (api.Response, error) {
	command := types.CommandApply
	if checkOnly {
		command = types.CommandCheck
	}
	format := requestFormat(request.Format, types.FormatRaw)
	if !isSupportedFormat(format, runFormats) {
		return api.Response{}, api.NewStatusError(http.StatusBadRequest, fmt.Errorf(invalidFormatMessage, format))
	}
	base, err := containedBase(request.Base)
	if err != nil {
		return api.Response{}, api.NewStatusError(http.StatusBadRequest, err)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	_, runErr := app.Run(ctx, app.RunOptions{
		LoadOptions:   handlers.loadOptions(request),
		CheckOnly:     checkOnly,
		BaseDirectory: base,
		Exclusions:    utils.DeduplicatePatterns(request.Exclude),
		Filesystem:    handlers.filesystem,
	}, newRenderer(format, &stdout, &stderr))

	response := api.Response{Command: command, Format: format, OK: runErr == nil, Output: stdout.String()}
	response.Warnings = diagnosticLines(&stderr)
	switch {
	case runErr == nil:
		return response, nil
	case errors.Is(runErr, app.ErrCheckFailed), errors.Is(runErr, app.ErrApplyFailures):
		return response, nil
	default:
		return api.Response{}, requestError(runErr)
	}
}

// containedBase cleans a request base directory and rejects absolute paths and
// paths that climb out of the served root.
func containedBase(base string) (string, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return "", nil
	}
	if filepath.IsAbs(trimmed) || strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, `\`) {
		return "", fmt.Errorf(baseOutsideRootMessage, base)
	}
	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(trimmed)))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf(baseOutsideRootMessage, base)
	}
	if cleaned == "." {
		return "", nil
	}
	return filepath.FromSlash(cleaned), nil
}

func requestFormat(format string, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(format))
	if normalized == "" {
		return fallback
	}
	return normalized
}

// requestError maps diagram problems to client errors.
func requestError(err error) error {
	if errors.Is(err, app.ErrMissingRoot) {
		return api.NewStatusError(http.StatusUnprocessableEntity, err)
	}
	return err
}

func diagnosticLines(reader io.Reader) []string {
	content, _ := io.ReadAll(reader)
	var lines []string
	for _, line := range strings.Split(string(content), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
