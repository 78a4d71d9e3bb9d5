// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"voiceshield/internal/config"
	"voiceshield/pkg/build"
)

// Command names the action selected on the command line.
type Command string

const (
	CommandRun     Command = "run"     // Live capture, filter and render.
	CommandList    Command = "list"    // Print the audio devices.
	CommandProcess Command = "process" // Filter a WAV file offline.
	CommandVersion Command = "version" // Print build information.
	CommandHelp    Command = "help"    // Help or --version was printed, nothing to do.
)

// Invocation is the parsed command line.
type Invocation struct {
	Config  *config.Config
	Command Command
	Args    []string
	TUI     bool
}

// flagValues holds the raw flag values. A flag only overrides the config
// file when it was set explicitly.
type flagValues struct {
	configPath     string
	inputDevice    int
	outputDevice   int
	outputMatch    string
	speakers       bool
	blockSize      int
	lowLatency     bool
	record         bool
	recordPath     string
	control        bool
	controlAddress string
	monitor        bool
	verbose        bool
}

// ParseArgs parses args (without the program name), loads the config file
// they point at and applies the flags on top of it.
func ParseArgs(args []string) (*Invocation, error) {
	buildInfo := build.GetBuildInfo()
	inv := &Invocation{Command: CommandHelp}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time stereo voice obfuscation",
		Long:          "Captures a microphone, runs it through a chain of voice obfuscation filters and renders the result to a virtual cable or the speakers.",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(fv.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, &fv)
			if err := cfg.Validate(); err != nil {
				return err
			}
			inv.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandRun
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			inv.Command = CommandList
		},
	})

	// Process command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "process <input.wav> <output.wav>",
		Short: "Filter a 48 kHz 16-bit stereo WAV file",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			inv.Command = CommandProcess
			inv.Args = args
		},
	})

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			inv.Command = CommandVersion
		},
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&fv.configPath, "config", "c", "",
		"Path to a YAML config file (default: ./config.yaml or ./voiceshield.yaml if present)")

	// Audio Device Configuration
	flags.IntVarP(&fv.inputDevice, "input-device", "i", config.DefaultDeviceID,
		"Input device ID, -1 for the default. Use 'list' to see available devices.")
	flags.IntVarP(&fv.outputDevice, "output-device", "o", config.DefaultDeviceID,
		"Output device ID, -1 to search by --output-match")
	flags.StringVar(&fv.outputMatch, "output-match", config.DefaultOutputMatch,
		"Render to the first output device whose name contains this text")
	flags.BoolVar(&fv.speakers, "speakers", false,
		"Render to the default output device instead of a virtual cable")
	flags.IntVarP(&fv.blockSize, "block-size", "b", config.DefaultBlockSize,
		"Bytes processed per cycle, a multiple of 4 (affects latency)")
	flags.BoolVarP(&fv.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Recording Configuration
	flags.BoolVarP(&fv.record, "record", "r", config.DefaultRecordingEnabled,
		"Record the processed output")
	flags.StringVar(&fv.recordPath, "record-path", config.DefaultRecordingPath,
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Control and Monitoring
	flags.BoolVar(&fv.control, "control", config.DefaultControlEnabled,
		"Serve the WebSocket control surface")
	flags.StringVar(&fv.controlAddress, "control-address", config.DefaultControlAddress,
		"Listen address of the WebSocket control surface")
	flags.BoolVarP(&fv.monitor, "monitor", "m", config.DefaultMonitorEnabled,
		"Publish output levels and band energies")
	rootCmd.Flags().BoolVarP(&inv.TUI, "tui", "t", false,
		"Show the interactive filter panel")

	// Debug Configuration
	flags.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if inv.Command != CommandHelp && inv.Config == nil {
		return nil, fmt.Errorf("%s: configuration was not loaded", inv.Command)
	}
	return inv, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, fv *flagValues) {
	flags := cmd.Flags()
	if flags.Changed("input-device") {
		cfg.Audio.InputDevice = fv.inputDevice
	}
	if flags.Changed("output-device") {
		cfg.Audio.OutputDevice = fv.outputDevice
	}
	if flags.Changed("output-match") {
		cfg.Audio.OutputMatch = fv.outputMatch
	}
	if flags.Changed("speakers") {
		cfg.Audio.Speakers = fv.speakers
	}
	if flags.Changed("block-size") {
		cfg.Audio.BlockSize = fv.blockSize
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = fv.lowLatency
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled = fv.record
	}
	if flags.Changed("record-path") {
		cfg.Recording.Path = fv.recordPath
	}
	if flags.Changed("control") {
		cfg.Control.Enabled = fv.control
	}
	if flags.Changed("control-address") {
		cfg.Control.Address = fv.controlAddress
	}
	if flags.Changed("monitor") {
		cfg.Monitor.Enabled = fv.monitor
	}
	if flags.Changed("verbose") && fv.verbose {
		cfg.Debug = true
	}
}
