// Package cli provides the command line interface.
package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/mktree/internal/app"
	"github.com/tyemirov/mktree/internal/config"
	"github.com/tyemirov/mktree/internal/output"
	"github.com/tyemirov/mktree/internal/services/clipboard"
	"github.com/tyemirov/mktree/internal/source"
	"github.com/tyemirov/mktree/internal/types"
	"github.com/tyemirov/mktree/internal/utils"
)

const (
	silentFlagName        = "silent"
	silentFlagShorthand   = "s"
	useRootFlagName       = "use-root"
	checkOnlyFlagName     = "check-only"
	baseFlagName          = "base"
	exclusionFlagName     = "e"
	excludeFromFlagName   = "exclude-from"
	clipboardFlagName     = "clipboard"
	formatFlagName        = "format"
	directoryModeFlagName = "dir-mode"
	fileModeFlagName      = "file-mode"
	copyFlagName          = "copy"
	configFlagName        = "config"
	verboseFlagName       = "verbose"
	globalFlagName        = "global"
	forceFlagName         = "force"

	versionTemplate      = "mktree version: {{.Version}}\n"
	rootUse              = "mktree [structure-file]"
	rootShortDescription = "create or check a directory layout described by a tree diagram"
	rootLongDescription  = `mktree reads a tree diagram such as the output of the tree command or a
layout pasted from documentation, and creates every listed directory and empty
file that does not exist yet. Existing files are never modified.

The diagram is read from structure.txt unless a path is given. Use "-" to read
standard input or --clipboard to read the system clipboard. Use --check-only to
report missing paths without creating anything.`
	rootUsageExample = `  # Create the layout from structure.txt in the current directory
  mktree

  # Create the declared root directory and build inside it
  mktree --use-root layout.txt

  # Check an existing checkout, skipping vendored code
  mktree --check-only -e vendor/ layout.txt`

	checkUse              = "check [structure-file]"
	checkShortDescription = "report which paths of the diagram are missing"
	checkLongDescription  = `Check that every directory and file of the diagram exists without creating
anything. The exit status is non-zero when anything is missing.`

	parseUse              = "parse [structure-file]"
	parseShortDescription = "print the paths recovered from a diagram"
	parseLongDescription  = `Parse the diagram and print the recovered paths without touching the
filesystem. Use --format tree to print a cleaned up diagram and --copy to place
the rendered output on the clipboard.`
	parseUsageExample = `  # Normalize a diagram pasted from a chat window
  mktree parse --clipboard --format tree --copy

  # Inspect parsed entries as YAML
  mktree parse --format yaml layout.txt`

	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write the default configuration to config.yaml in the working directory, or to
~/.mktree/config.yaml with --global.`

	silentFlagDescription        = "suppress progress and summary output"
	useRootFlagDescription       = "create the root directory declared on the first line and build inside it"
	checkOnlyFlagDescription     = "check the structure without creating anything"
	baseFlagDescription          = "directory in which the structure is created"
	exclusionFlagDescription     = "exclude path pattern (gitignore syntax, repeatable)"
	excludeFromFlagDescription   = "read exclusion patterns from a file"
	clipboardFlagDescription     = "read the diagram from the system clipboard"
	formatFlagDescription        = "output format (raw, json, xml)"
	parseFormatFlagDescription   = "output format (raw, tree, json, xml, yaml)"
	directoryModeFlagDescription = "permission bits for created directories, e.g. 0755"
	fileModeFlagDescription      = "permission bits for created files, e.g. 0644"
	copyFlagDescription          = "copy the rendered output to the system clipboard"
	configFlagDescription        = "path to a configuration file"
	verboseFlagDescription       = "log diagnostics such as skipped diagram lines"
	globalFlagDescription        = "write the configuration under the home directory"
	forceFlagDescription         = "overwrite an existing configuration file"

	invalidFormatMessage        = "invalid format value '%s'"
	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	copyOutputErrorFormat       = "copy output to clipboard: %w"
	configurationWrittenFormat  = "Configuration written to %s\n"
)

var (
	runFormats   = []string{types.FormatRaw, types.FormatJSON, types.FormatXML}
	parseFormats = []string{types.FormatRaw, types.FormatTree, types.FormatJSON, types.FormatXML, types.FormatYAML}
)

// clipboardService reads diagrams from and writes rendered output to the clipboard.
type clipboardService interface {
	clipboard.Reader
	clipboard.Copier
}

// environment carries the process resources the commands operate on.
type environment struct {
	stdout           io.Writer
	stderr           io.Writer
	stdin            io.Reader
	filesystem       afero.Fs
	clipboard        clipboardService
	workingDirectory string
	logger           *zap.Logger
}

// globalOptions stores flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
}

// inputOptions stores flags that select the diagram.
type inputOptions struct {
	useClipboard bool
	useRoot      bool
}

// runOptions stores flags of the apply and check commands.
type runOptions struct {
	inputOptions
	silent            bool
	checkOnly         bool
	base              string
	format            string
	exclusionPatterns []string
	excludeFrom       string
	directoryMode     string
	fileMode          string
}

// Execute runs the mktree application.
func Execute(ctx context.Context, logger *zap.Logger) error {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}
	rootCommand := createRootCommand(environment{
		stdout:           os.Stdout,
		stderr:           os.Stderr,
		stdin:            os.Stdin,
		filesystem:       afero.NewOsFs(),
		clipboard:        clipboard.NewService(),
		workingDirectory: workingDirectory,
		logger:           logger,
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// createRootCommand builds the root Cobra command.
func createRootCommand(env environment) *cobra.Command {
	var globals globalOptions
	var options runOptions

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Version:       utils.GetApplicationVersion(),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return runStructure(command, env, globals, options, arguments)
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)
	rootCommand.SetOut(env.stdout)
	rootCommand.SetErr(env.stderr)
	rootCommand.SetIn(env.stdin)
	rootCommand.PersistentFlags().StringVar(&globals.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(rootCommand.PersistentFlags(), &globals.verbose, verboseFlagName, "", false, verboseFlagDescription)

	addRunFlags(rootCommand, &options)
	registerBooleanFlag(rootCommand.Flags(), &options.checkOnly, checkOnlyFlagName, "", false, checkOnlyFlagDescription)

	rootCommand.AddCommand(
		createCheckCommand(env, &globals),
		createParseCommand(env, &globals),
		createInitCommand(env),
		createServeCommand(env, &globals),
		createSnapshotCommand(env, &globals),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// addInputFlags registers flags that select and interpret the diagram.
func addInputFlags(command *cobra.Command, options *inputOptions) {
	registerBooleanFlag(command.Flags(), &options.useClipboard, clipboardFlagName, "", false, clipboardFlagDescription)
	registerBooleanFlag(command.Flags(), &options.useRoot, useRootFlagName, "", false, useRootFlagDescription)
}

// addRunFlags registers flags shared by the apply and check commands.
func addRunFlags(command *cobra.Command, options *runOptions) {
	addInputFlags(command, &options.inputOptions)
	registerBooleanFlag(command.Flags(), &options.silent, silentFlagName, silentFlagShorthand, false, silentFlagDescription)
	command.Flags().StringVar(&options.base, baseFlagName, "", baseFlagDescription)
	command.Flags().StringVar(&options.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	command.Flags().StringArrayVarP(&options.exclusionPatterns, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	command.Flags().StringVar(&options.excludeFrom, excludeFromFlagName, "", excludeFromFlagDescription)
	command.Flags().StringVar(&options.directoryMode, directoryModeFlagName, "", directoryModeFlagDescription)
	command.Flags().StringVar(&options.fileMode, fileModeFlagName, "", fileModeFlagDescription)
}

// createCheckCommand returns the check subcommand.
func createCheckCommand(env environment, globals *globalOptions) *cobra.Command {
	var options runOptions

	checkCommand := &cobra.Command{
		Use:   checkUse,
		Short: checkShortDescription,
		Long:  checkLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			options.checkOnly = true
			return runStructure(command, env, *globals, options, arguments)
		},
	}
	addRunFlags(checkCommand, &options)
	return checkCommand
}

// createParseCommand returns the parse subcommand.
func createParseCommand(env environment, globals *globalOptions) *cobra.Command {
	var options inputOptions
	var outputFormat string
	var copyOutput bool

	parseCommand := &cobra.Command{
		Use:     parseUse,
		Short:   parseShortDescription,
		Long:    parseLongDescription,
		Example: parseUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			configuration, err := loadConfiguration(env, *globals)
			if err != nil {
				return err
			}
			format := strings.ToLower(resolveString(command, formatFlagName, outputFormat, configuration.Parse.Format, types.FormatTree))
			if !isSupportedFormat(format, parseFormats) {
				return fmt.Errorf(invalidFormatMessage, format)
			}
			if !command.Flags().Changed(copyFlagName) && configuration.Parse.Copy != nil {
				copyOutput = *configuration.Parse.Copy
			}
			useRoot := resolveBool(command, useRootFlagName, options.useRoot, configuration.UseRoot)

			loaded, err := app.Load(app.LoadOptions{
				Source:  sourceOptions(env, options.useClipboard, structureFile(arguments, configuration)),
				UseRoot: useRoot,
				Logger:  commandLogger(env, *globals),
			})
			if err != nil {
				return err
			}
			root := ""
			if loaded.HasRoot {
				root = loaded.Root
			}
			var rendered bytes.Buffer
			if err := output.RenderStructure(&rendered, format, loaded.Structure.Output(root)); err != nil {
				return err
			}
			if _, err := env.stdout.Write(rendered.Bytes()); err != nil {
				return err
			}
			if copyOutput {
				if err := env.clipboard.Copy(rendered.String()); err != nil {
					return fmt.Errorf(copyOutputErrorFormat, err)
				}
			}
			return nil
		},
	}
	addInputFlags(parseCommand, &options)
	parseCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatTree, parseFormatFlagDescription)
	registerBooleanFlag(parseCommand.Flags(), &copyOutput, copyFlagName, "", false, copyFlagDescription)
	return parseCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand(env environment) *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, err := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: env.workingDirectory,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(env.stdout, configurationWrittenFormat, path)
			return err
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, "", false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, "", false, forceFlagDescription)
	return initCommand
}

// runStructure resolves flags against the configuration and creates or checks the structure.
func runStructure(command *cobra.Command, env environment, globals globalOptions, options runOptions, arguments []string) error {
	configuration, err := loadConfiguration(env, globals)
	if err != nil {
		return err
	}

	format := strings.ToLower(resolveString(command, formatFlagName, options.format, configuration.Format, types.FormatRaw))
	if !isSupportedFormat(format, runFormats) {
		return fmt.Errorf(invalidFormatMessage, format)
	}
	silent := resolveBool(command, silentFlagName, options.silent, configuration.Silent)
	useRoot := resolveBool(command, useRootFlagName, options.useRoot, configuration.UseRoot)
	base := resolveString(command, baseFlagName, options.base, configuration.Base, "")
	excludeFrom := resolveString(command, excludeFromFlagName, options.excludeFrom, configuration.ExcludeFrom, "")

	exclusionPatterns, err := config.LoadCombinedExclusionPatterns(
		env.workingDirectory,
		excludeFrom,
		append(append([]string{}, configuration.Exclude...), options.exclusionPatterns...),
	)
	if err != nil {
		return err
	}

	modes := config.ModeConfiguration{
		Directory: resolveString(command, directoryModeFlagName, options.directoryMode, configuration.Modes.Directory, ""),
		File:      resolveString(command, fileModeFlagName, options.fileMode, configuration.Modes.File, ""),
	}
	directoryMode, err := modes.DirectoryMode()
	if err != nil {
		return err
	}
	fileMode, err := modes.FileMode()
	if err != nil {
		return err
	}

	stdout := env.stdout
	if silent {
		stdout = io.Discard
	}

	applicationOptions := app.RunOptions{
		LoadOptions: app.LoadOptions{
			Source:  sourceOptions(env, options.useClipboard, structureFile(arguments, configuration)),
			UseRoot: useRoot,
			Logger:  commandLogger(env, globals),
		},
		CheckOnly:     options.checkOnly,
		BaseDirectory: base,
		Exclusions:    exclusionPatterns,
		DirectoryMode: directoryMode,
		FileMode:      fileMode,
		Filesystem:    env.filesystem,
	}
	_, err = app.Run(command.Context(), applicationOptions, newRenderer(format, stdout, env.stderr))
	return err
}

func newRenderer(format string, stdout io.Writer, stderr io.Writer) output.StreamRenderer {
	switch format {
	case types.FormatJSON:
		return output.NewJSONStreamRenderer(stdout, stderr)
	case types.FormatXML:
		return output.NewXMLStreamRenderer(stdout, stderr)
	default:
		return output.NewRawStreamRenderer(stdout, stderr)
	}
}

func loadConfiguration(env environment, globals globalOptions) (config.ApplicationConfiguration, error) {
	return config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: env.workingDirectory,
		ExplicitFilePath: globals.configPath,
	})
}

func sourceOptions(env environment, useClipboard bool, path string) source.Options {
	return source.Options{
		Path:         path,
		UseClipboard: useClipboard,
		Filesystem:   env.filesystem,
		Stdin:        env.stdin,
		Clipboard:    env.clipboard,
	}
}

func structureFile(arguments []string, configuration config.ApplicationConfiguration) string {
	if len(arguments) > 0 {
		return arguments[0]
	}
	return configuration.StructureFile
}

// commandLogger returns a debug logger when --verbose is set and the process logger otherwise.
func commandLogger(env environment, globals globalOptions) *zap.Logger {
	if globals.verbose {
		if verboseLogger, err := utils.NewApplicationLogger(true); err == nil {
			return verboseLogger
		}
	}
	if env.logger == nil {
		return zap.NewNop()
	}
	return env.logger
}

// resolveString prefers an explicitly set flag, then the configured value, then the fallback.
func resolveString(command *cobra.Command, flagName string, flagValue string, configured string, fallback string) string {
	if command.Flags().Changed(flagName) {
		return strings.TrimSpace(flagValue)
	}
	if configured != "" {
		return strings.TrimSpace(configured)
	}
	return fallback
}

// resolveBool prefers an explicitly set flag, then the configured value.
func resolveBool(command *cobra.Command, flagName string, flagValue bool, configured *bool) bool {
	if command.Flags().Changed(flagName) || configured == nil {
		return flagValue
	}
	return *configured
}

// isSupportedFormat reports whether the provided format is recognized.
func isSupportedFormat(format string, supported []string) bool {
	for _, candidate := range supported {
		if format == candidate {
			return true
		}
	}
	return false
}
