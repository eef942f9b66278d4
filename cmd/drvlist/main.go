package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/drvkit/drvlist/internal/device"
	"github.com/drvkit/drvlist/internal/fixup"
	"github.com/drvkit/drvlist/internal/registry"
	"github.com/drvkit/drvlist/internal/render"
	"github.com/drvkit/drvlist/internal/resolver"
	"github.com/drvkit/drvlist/internal/version"
)

var (
	verbosity  int
	physPath   bool
	sortOrder  string
	maxWidth   int
	fixupsFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "drvlist [devices]",
	Short: "List physical drives with identity, capacity and topology",
	Long: `drvlist enumerates the system's block devices, identifies each one
over its native protocol (SCSI/CAM inquiry, ATA identify, NVMe admin
identify, or the generic disk ident ioctl) and prints one row per
physical drive. Device nodes that resolve to the same hardware serial
number, as multipath attachments do, are merged into a single row.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runList,
}

func init() {
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "add driver and path columns; repeat to add bus ids and disable clipping")
	rootCmd.Flags().BoolVarP(&physPath, "phys", "p", false, "add the physical path column")
	rootCmd.Flags().StringVarP(&sortOrder, "sort", "S", "devpath", "sort order: devpath or ident")
	rootCmd.Flags().IntVarP(&maxWidth, "width", "W", 20, "clip cells wider than this many characters; 0 disables")
	rootCmd.Flags().StringVar(&fixupsFile, "fixups", "", "vendor fix-up rules file (default is /etc/drvlist/fixups.yaml)")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "log per-device probe details")
}

// setUpLogs sets the log output and the log level.
func setUpLogs(debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func runList(cmd *cobra.Command, args []string) error {
	logger := setUpLogs(debug)

	mode, err := render.ModeFromString(sortOrder)
	if err != nil {
		return err
	}

	fixups, err := fixup.Load(fixupsFile)
	if err != nil {
		return err
	}

	sys := device.New()

	names := args
	if len(names) == 0 {
		names, err = sys.List()
		if err != nil {
			return fmt.Errorf("unable to get list of drives from kernel: %w", err)
		}
	}

	width := maxWidth
	if verbosity > 1 {
		width = 0
	}

	reg := registry.New()
	res := resolver.New(sys, reg, fixups, resolver.Options{
		Phys:          physPath,
		VerboseDriver: verbosity > 1,
	}, logger)
	skipped := res.ResolveAll(names)

	records := reg.Records()
	render.Sort(records, mode)

	err = render.Table(cmd.OutOrStdout(), records, render.Options{
		Phys:     physPath,
		Verbose:  verbosity > 0,
		MaxWidth: width,
		Color:    render.IsTerminal(os.Stdout),
	})
	if err != nil {
		return err
	}

	if len(skipped) > 0 {
		return fmt.Errorf("%d of %d devices skipped", len(skipped), len(names))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
