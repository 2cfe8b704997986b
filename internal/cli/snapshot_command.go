package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tyemirov/mktree/internal/config"
	"github.com/tyemirov/mktree/internal/materialize"
	"github.com/tyemirov/mktree/internal/output"
	"github.com/tyemirov/mktree/internal/snapshot"
	"github.com/tyemirov/mktree/internal/types"
)

const (
	snapshotUse              = "snapshot [directory]"
	snapshotShortDescription = "write a diagram of an existing directory"
	snapshotLongDescription  = `Walk a directory and print it as a diagram that mktree can recreate. Exclusion
patterns from flags, configuration and .mktreeignore are honored.`
	snapshotUsageExample = `  # Capture the current project as the default structure file
  mktree snapshot -e .git/ -e node_modules/ -o structure.txt`

	outputFlagName                = "output"
	outputFlagShorthand           = "o"
	outputFlagDescription         = "write the diagram to a file instead of standard output"
	snapshotFormatFlagDescription = "output format (tree, raw, json, xml, yaml)"
	snapshotWarningFormat         = "Warning: %s\n"
	writeSnapshotErrorFormat      = "write %s: %w"
	snapshotWrittenFormat         = "Snapshot written to %s\n"
	currentDirectoryArgument      = "."
)

// snapshotOptions stores flags of the snapshot command.
type snapshotOptions struct {
	format            string
	exclusionPatterns []string
	excludeFrom       string
	outputPath        string
	copyOutput        bool
}

// createSnapshotCommand returns the snapshot subcommand.
func createSnapshotCommand(env environment, globals *globalOptions) *cobra.Command {
	var options snapshotOptions

	snapshotCommand := &cobra.Command{
		Use:     snapshotUse,
		Short:   snapshotShortDescription,
		Long:    snapshotLongDescription,
		Example: snapshotUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			configuration, err := loadConfiguration(env, *globals)
			if err != nil {
				return err
			}
			format := strings.ToLower(resolveString(command, formatFlagName, options.format, "", types.FormatTree))
			if !isSupportedFormat(format, parseFormats) {
				return fmt.Errorf(invalidFormatMessage, format)
			}
			excludeFrom := resolveString(command, excludeFromFlagName, options.excludeFrom, configuration.ExcludeFrom, "")
			exclusionPatterns, err := config.LoadCombinedExclusionPatterns(
				env.workingDirectory,
				excludeFrom,
				append(append([]string{}, configuration.Exclude...), options.exclusionPatterns...),
			)
			if err != nil {
				return err
			}

			directory := currentDirectoryArgument
			if len(arguments) > 0 {
				directory = arguments[0]
			}
			directory = resolveAgainst(env.workingDirectory, directory)

			structure, err := snapshot.Take(directory, snapshot.Options{
				Filesystem: env.filesystem,
				Exclusions: materialize.NewExclusions(exclusionPatterns),
				Warn: func(message string) {
					fmt.Fprintf(env.stderr, snapshotWarningFormat, message)
				},
			})
			if err != nil {
				return err
			}

			var rendered bytes.Buffer
			if err := output.RenderStructure(&rendered, format, structure.Output(filepath.Base(directory))); err != nil {
				return err
			}
			if options.outputPath != "" {
				outputPath := resolveAgainst(env.workingDirectory, options.outputPath)
				if err := afero.WriteFile(env.filesystem, outputPath, rendered.Bytes(), materialize.DefaultFileMode); err != nil {
					return fmt.Errorf(writeSnapshotErrorFormat, outputPath, err)
				}
				if _, err := fmt.Fprintf(env.stdout, snapshotWrittenFormat, outputPath); err != nil {
					return err
				}
			} else if _, err := env.stdout.Write(rendered.Bytes()); err != nil {
				return err
			}
			if options.copyOutput {
				if err := env.clipboard.Copy(rendered.String()); err != nil {
					return fmt.Errorf(copyOutputErrorFormat, err)
				}
			}
			return nil
		},
	}
	snapshotCommand.Flags().StringVar(&options.format, formatFlagName, types.FormatTree, snapshotFormatFlagDescription)
	snapshotCommand.Flags().StringArrayVarP(&options.exclusionPatterns, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	snapshotCommand.Flags().StringVar(&options.excludeFrom, excludeFromFlagName, "", excludeFromFlagDescription)
	snapshotCommand.Flags().StringVarP(&options.outputPath, outputFlagName, outputFlagShorthand, "", outputFlagDescription)
	registerBooleanFlag(snapshotCommand.Flags(), &options.copyOutput, copyFlagName, "", false, copyFlagDescription)
	return snapshotCommand
}

// resolveAgainst anchors a relative path at the working directory.
func resolveAgainst(workingDirectory string, path string) string {
	if filepath.IsAbs(path) || workingDirectory == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(workingDirectory, path)
}
