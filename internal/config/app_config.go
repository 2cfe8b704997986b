package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"github.com/tyemirov/mktree/internal/utils"
)

const fileModeBase = 8

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds defaults for the apply, check and parse commands.
type ApplicationConfiguration struct {
	StructureFile string                    `mapstructure:"structure_file"`
	Base          string                    `mapstructure:"base"`
	Format        string                    `mapstructure:"format"`
	Silent        *bool                     `mapstructure:"silent"`
	UseRoot       *bool                     `mapstructure:"use_root"`
	Exclude       []string                  `mapstructure:"exclude"`
	ExcludeFrom   string                    `mapstructure:"exclude_from"`
	Modes         ModeConfiguration         `mapstructure:"modes"`
	Parse         ParseCommandConfiguration `mapstructure:"parse"`
	Serve         ServeCommandConfiguration `mapstructure:"serve"`
}

// ModeConfiguration sets the permission bits of created paths as octal strings such as "0755".
type ModeConfiguration struct {
	Directory string `mapstructure:"directory"`
	File      string `mapstructure:"file"`
}

// ParseCommandConfiguration defines defaults for the parse command.
type ParseCommandConfiguration struct {
	Format string `mapstructure:"format"`
	Copy   *bool  `mapstructure:"copy"`
}

// ServeCommandConfiguration defines defaults for the serve command.
type ServeCommandConfiguration struct {
	Address    string `mapstructure:"address"`
	Root       string `mapstructure:"root"`
	AllowApply *bool  `mapstructure:"allow_apply"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	merged.Exclude = utils.DeduplicatePatterns(merged.Exclude)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.StructureFile != "" {
		result.StructureFile = override.StructureFile
	}
	if override.Base != "" {
		result.Base = override.Base
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Silent != nil {
		result.Silent = cloneBool(override.Silent)
	}
	if override.UseRoot != nil {
		result.UseRoot = cloneBool(override.UseRoot)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.ExcludeFrom != "" {
		result.ExcludeFrom = override.ExcludeFrom
	}
	result.Modes = result.Modes.merge(override.Modes)
	result.Parse = result.Parse.merge(override.Parse)
	result.Serve = result.Serve.merge(override.Serve)
	return result
}

func (config ModeConfiguration) merge(override ModeConfiguration) ModeConfiguration {
	result := config
	if override.Directory != "" {
		result.Directory = override.Directory
	}
	if override.File != "" {
		result.File = override.File
	}
	return result
}

func (config ParseCommandConfiguration) merge(override ParseCommandConfiguration) ParseCommandConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Copy != nil {
		result.Copy = cloneBool(override.Copy)
	}
	return result
}

func (config ServeCommandConfiguration) merge(override ServeCommandConfiguration) ServeCommandConfiguration {
	result := config
	if override.Address != "" {
		result.Address = override.Address
	}
	if override.Root != "" {
		result.Root = override.Root
	}
	if override.AllowApply != nil {
		result.AllowApply = cloneBool(override.AllowApply)
	}
	return result
}

// DirectoryMode parses the configured directory mode. Zero means unset.
func (config ModeConfiguration) DirectoryMode() (os.FileMode, error) {
	return parseFileMode(config.Directory)
}

// FileMode parses the configured file mode. Zero means unset.
func (config ModeConfiguration) FileMode() (os.FileMode, error) {
	return parseFileMode(config.File)
}

func parseFileMode(value string) (os.FileMode, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(value, fileModeBase, 32)
	if err != nil {
		return 0, fmt.Errorf("parse file mode %q: %w", value, err)
	}
	if parsed > uint64(os.ModePerm) {
		return 0, fmt.Errorf("file mode %q exceeds %o", value, os.ModePerm)
	}
	return os.FileMode(parsed), nil
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
