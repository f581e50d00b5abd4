package main

import (
	"flag"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chzchzchz/sweeprx/peak"
	"github.com/chzchzchz/sweeprx/radio"
	"github.com/chzchzchz/sweeprx/sweep"
)

var rootCmd = &cobra.Command{
	Use:   "sweeprx",
	Short: "Sweep an SDR across a band and report spectral peaks.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		conf = c
		return conf.applyDefaults(cmd.Name(), cmd.Flags())
	},
	SilenceUsage: true,
}

var (
	conf       *Config
	configPath string

	sampleRate     uint64
	ppm            int
	settle         time.Duration
	captureTimeout time.Duration
	device         string
	rtltcpAddr     string
	spawnSerial    string
	gain           int
	ifGain         int
	ifStage        uint16
	keepDC         bool
	outputs        []string
	outputFile     string
	dsn            string
	metricsAddr    string
	maxPeaks       int
	keepSpectrum   bool
	tablePath      string
	tableTolerance uint64
	disjoint       bool
	overlap        bool
)

// sweepFlags are the per command settings whose defaults differ between
// the peak, scan and ppm commands.
type sweepFlags struct {
	binSize    uint64
	bandwidth  uint64
	sampleTime float64
	alpha      float64
	frameRate  float64
}

func (sf *sweepFlags) register(fs *pflag.FlagSet, def sweepFlags) {
	fs.Uint64VarP(&sf.binSize, "bin-size", "B", def.binSize, "FFT bin size in Hz")
	fs.Uint64VarP(&sf.bandwidth, "bandwidth", "b", def.bandwidth, "Window bandwidth in Hz")
	fs.Float64VarP(&sf.sampleTime, "sample-time", "t", def.sampleTime, "Capture time per window in seconds")
	fs.Float64Var(&sf.alpha, "alpha", def.alpha, "Averaging factor in (0, 1]; 1 keeps the last frame")
	fs.Float64Var(&sf.frameRate, "frame-rate", def.frameRate, "Frames per second averaged; 0 averages every frame")
}

// request builds a sweep request from the command line.
func (sf *sweepFlags) request(startHz, stopHz uint64, mode sweep.Mode) sweep.Request {
	return sweep.Request{
		Start:           startHz,
		Stop:            stopHz,
		Bandwidth:       sf.bandwidth,
		BinSize:         sf.binSize,
		SampleRate:      sampleRate,
		PPM:             ppm,
		CaptureDuration: time.Duration(sf.sampleTime * float64(time.Second)),
		Mode:            mode,
	}
}

var (
	peakFlags sweepFlags
	scanFlags sweepFlags
	ppmFlags  sweepFlags

	prominence  float64
	widthHz     uint64
	dbThreshold float64
	references  []string
	ppmMargin   uint64
	listBands   bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML file with flag defaults, mqtt and synth settings")
	pf.Uint64VarP(&sampleRate, "sample-rate", "s", 2400000, "Sample rate in Hz")
	pf.IntVarP(&ppm, "ppm", "p", 0, "Frequency correction in ppm")
	pf.DurationVar(&settle, "settle", sweep.DefaultSettle, "Wait after retuning before capturing")
	pf.DurationVar(&captureTimeout, "capture-timeout", sweep.DefaultCaptureTimeout, "Extra time a window may take before the device is considered gone")
	pf.StringVar(&device, "device", "rtltcp", "Tuner to use: rtltcp or synth")
	pf.StringVar(&rtltcpAddr, "rtltcp-addr", "127.0.0.1:1234", "rtl_tcp server address")
	pf.StringVar(&spawnSerial, "spawn", "", "Start a local rtl_tcp for the dongle with this serial or index")
	pf.IntVar(&gain, "gain", 0, "Tuner gain in tenths of a dB; 0 is automatic")
	pf.IntVar(&ifGain, "if-gain", 0, "Tuner IF stage gain in tenths of a dB; 0 leaves it alone")
	pf.Uint16Var(&ifStage, "if-stage", 1, "Tuner IF stage --if-gain applies to")
	pf.BoolVar(&keepDC, "keep-dc", false, "Keep the DC component instead of removing each frame's mean")
	pf.StringSliceVarP(&outputs, "output", "o", []string{"text"}, "Outputs: text, csv, json, sqlite, mysql, mqtt")
	pf.StringVar(&outputFile, "output-file", "", "File for text, csv or json output instead of stdout")
	pf.StringVar(&dsn, "dsn", "", "Database DSN for sqlite or mysql output")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address")
	pf.IntVar(&maxPeaks, "max-peaks", 0, "Keep only the most prominent peaks per window; 0 keeps all")
	pf.BoolVar(&keepSpectrum, "keep-spectrum", false, "Include each window's spectrum in json output")
	pf.StringVar(&tablePath, "table", "", "Peak table file merged with every sweep")
	pf.Uint64Var(&tableTolerance, "table-tolerance", 5000, "Distance in Hz within which peaks are the same signal")
	pf.BoolVar(&disjoint, "disjoint", false, "Use back to back windows")
	pf.BoolVar(&overlap, "overlap", false, "Use half overlapping windows")
	pf.AddGoFlagSet(flag.CommandLine)

	peakCmd := &cobra.Command{
		Use:   "peak START STOP",
		Short: "Report the strongest bin of every window",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnErr(sweepPeak(args))
		},
	}
	peakFlags.register(peakCmd.Flags(), sweepFlags{
		binSize:    100,
		bandwidth:  100000,
		sampleTime: 0.2,
		alpha:      1,
	})
	rootCmd.AddCommand(peakCmd)

	scanCmd := &cobra.Command{
		Use:   "scan START STOP",
		Short: "Report every prominent peak of every window",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnErr(sweepScan(args))
		},
	}
	scanFlags.register(scanCmd.Flags(), sweepFlags{
		binSize:    1000,
		bandwidth:  2000000,
		sampleTime: 0.5,
		alpha:      0.2,
	})
	scanCmd.Flags().Float64Var(&prominence, "prominence", 30, "Minimum peak prominence in dB")
	scanCmd.Flags().Uint64Var(&widthHz, "width", 4000, "Minimum peak width in Hz")
	scanCmd.Flags().Float64Var(&dbThreshold, "db-threshold", -40, "Minimum peak power in dB")
	rootCmd.AddCommand(scanCmd)

	ppmCmd := &cobra.Command{
		Use:   "ppm",
		Short: "Measure the oscillator error against a known carrier",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			exitOnErr(measurePPM())
		},
	}
	ppmFlags.register(ppmCmd.Flags(), sweepFlags{
		binSize:    10,
		bandwidth:  200000,
		sampleTime: 1,
		alpha:      0.3,
	})
	ppmCmd.Flags().StringSliceVar(&references, "reference", nil, "Reference carriers, e.g. 162.55M; defaults to NOAA weather radio")
	ppmCmd.Flags().Uint64Var(&ppmMargin, "margin", 20000, "Hz swept beyond the outermost references")
	rootCmd.AddCommand(ppmCmd)

	importCmd := &cobra.Command{
		Use:   "import CSVFILE",
		Short: "Import named signals into the peak table",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnErr(importCSV(args[0]))
		},
	}
	rootCmd.AddCommand(importCmd)

	tableCmd := &cobra.Command{
		Use:   "table [START STOP]",
		Short: "List the peak table",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or START STOP, got %d", len(args))
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			exitOnErr(listTable(args))
		},
	}
	tableCmd.Flags().BoolVar(&listBands, "bands", false, "List occupied bands, merging overlapping signals")
	rootCmd.AddCommand(tableCmd)
}

func exitOnErr(err error) {
	if err != nil {
		glog.Exitf("%v", err)
	}
}

// parseHz reads a frequency such as 88000000, 88M or 88.5MHz.
func parseHz(s string) (uint64, error) {
	v, unit, err := humanize.ParseSI(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bad frequency %q: %w", s, err)
	}
	if unit != "" && unit != "Hz" {
		return 0, fmt.Errorf("bad frequency %q: unit %q", s, unit)
	}
	if v < 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("bad frequency %q: out of range", s)
	}
	return uint64(math.Round(v)), nil
}

func parseRange(args []string) (startHz, stopHz uint64, err error) {
	if startHz, err = parseHz(args[0]); err != nil {
		return 0, 0, err
	}
	if stopHz, err = parseHz(args[1]); err != nil {
		return 0, 0, err
	}
	return startHz, stopHz, nil
}

// sweepMode applies the --disjoint and --overlap overrides.
func sweepMode(def sweep.Mode) (sweep.Mode, error) {
	switch {
	case disjoint && overlap:
		return def, fmt.Errorf("--disjoint and --overlap are exclusive")
	case disjoint:
		return sweep.Disjoint, nil
	case overlap:
		return sweep.Overlap, nil
	}
	return def, nil
}

func sweepPeak(args []string) error {
	startHz, stopHz, err := parseRange(args)
	if err != nil {
		return err
	}
	mode, err := sweepMode(sweep.Disjoint)
	if err != nil {
		return err
	}
	return runSweep(peakFlags.request(startHz, stopHz, mode), &peakFlags, peak.Single{}, true)
}

func sweepScan(args []string) error {
	startHz, stopHz, err := parseRange(args)
	if err != nil {
		return err
	}
	mode, err := sweepMode(sweep.Overlap)
	if err != nil {
		return err
	}
	det := peak.Multi{
		Height:     dbThreshold,
		Prominence: prominence,
		Width:      peak.WidthBins(widthHz, scanFlags.binSize),
		MaxPeaks:   maxPeaks,
	}
	return runSweep(scanFlags.request(startHz, stopHz, mode), &scanFlags, det, false)
}

func referenceCarriers() ([]uint64, error) {
	if len(references) == 0 {
		return radio.NOAAWeather, nil
	}
	refs := make([]uint64, len(references))
	for i, s := range references {
		hz, err := parseHz(s)
		if err != nil {
			return nil, err
		}
		refs[i] = hz
	}
	return refs, nil
}

// ppmRequest sweeps every reference plus a margin on both sides.
func ppmRequest(refs []uint64) sweep.Request {
	lo, hi := refs[0], refs[0]
	for _, hz := range refs[1:] {
		lo, hi = min(lo, hz), max(hi, hz)
	}
	lo -= min(lo, ppmMargin)
	return ppmFlags.request(lo, hi+ppmMargin, sweep.Disjoint)
}

func main() {
	flag.Set("logtostderr", "true")
	if err := rootCmd.Execute(); err != nil {
		glog.Exit(err)
	}
}
