package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chzchzchz/sweeprx/export"
	"github.com/chzchzchz/sweeprx/peak"
	"github.com/chzchzchz/sweeprx/radio"
	"github.com/chzchzchz/sweeprx/store"
	"github.com/chzchzchz/sweeprx/sweep"
)

const defaultSQLiteDSN = "sweeprx.db"

func openTuner(ctx context.Context) (radio.Tuner, error) {
	switch device {
	case "rtltcp":
		opts := []radio.RTLTCPOption{radio.WithGain(gain), radio.WithIFGain(ifStage, ifGain)}
		if spawnSerial != "" {
			return radio.SpawnRTLTCP(ctx, spawnSerial, rtltcpAddr, opts...)
		}
		return radio.NewRTLTCP(ctx, rtltcpAddr, opts...)
	case "synth":
		s := radio.NewSynth(conf.Synth.Seed, conf.Synth.Noise, conf.Synth.Carriers...)
		s.OscillatorPPM = conf.Synth.OscillatorPPM
		s.DC = complex(conf.Synth.DCOffset, 0)
		return s, nil
	}
	return nil, fmt.Errorf("unknown device %q", device)
}

// outputSet holds everything opened for one sweep's exporters.
type outputSet struct {
	exps    []export.Exporter
	closers []io.Closer
	table   *store.PeakTable
}

func (o *outputSet) Close() (err error) {
	for _, c := range o.closers {
		err = errors.Join(err, c.Close())
	}
	return err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openOutputs(id string, single bool) (_ *outputSet, err error) {
	o := &outputSet{}
	defer func() {
		if err != nil {
			o.Close()
		}
	}()
	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, err
		}
		o.closers = append(o.closers, f)
		w = f
	}
	for _, name := range outputs {
		switch name {
		case "text":
			o.exps = append(o.exps, &export.Text{W: w, Single: single})
		case "csv":
			o.exps = append(o.exps, &export.CSV{W: w, ID: id})
		case "json":
			o.exps = append(o.exps, &export.JSON{W: w, ID: id})
		case "sqlite", "mysql":
			driver, d := sqlDriver(name), dsn
			if d == "" {
				if name == "mysql" {
					return nil, fmt.Errorf("mysql output needs --dsn")
				}
				d = defaultSQLiteDSN
			}
			s, err := export.OpenSQL(driver, d, id)
			if err != nil {
				return nil, err
			}
			o.closers = append(o.closers, s)
			o.exps = append(o.exps, s)
		case "mqtt":
			client, err := export.DialMQTT(conf.MQTT, id)
			if err != nil {
				return nil, err
			}
			o.closers = append(o.closers, closerFunc(func() error {
				client.Disconnect(250)
				return nil
			}))
			o.exps = append(o.exps, &export.MQTT{Client: client, Config: conf.MQTT, ID: id})
		default:
			return nil, fmt.Errorf("unknown output %q", name)
		}
	}
	if tablePath != "" {
		if o.table, err = loadTable(); err != nil {
			return nil, err
		}
		o.exps = append(o.exps, o.table)
	}
	return o, nil
}

func sqlDriver(output string) string {
	if output == "sqlite" {
		return "sqlite3"
	}
	return output
}

func loadTable() (*store.PeakTable, error) {
	t := store.NewPeakTable(tableTolerance)
	if err := t.Load(tablePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading peak table: %w", err)
	}
	return t, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	glog.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		glog.Errorf("metrics server: %v", err)
	}
}

func newMetrics() *sweep.Metrics {
	if metricsAddr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	go serveMetrics(metricsAddr, reg)
	return sweep.NewMetrics(reg)
}

func runSweep(req sweep.Request, sf *sweepFlags, det peak.Detector, single bool) (err error) {
	if err := req.Validate(); err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// the tuner outlives an interrupt so the window in flight can finish
	tuner, err := openTuner(context.Background())
	if err != nil {
		return err
	}
	defer tuner.Close()

	id := uuid.New()
	outs, err := openOutputs(id.String(), single)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, outs.Close()) }()

	chans, wait := export.Start(context.WithoutCancel(ctx), outs.exps...)
	eng := sweep.NewEngine(tuner, det,
		sweep.WithID(id),
		sweep.WithSettle(settle),
		sweep.WithCaptureTimeout(captureTimeout),
		sweep.WithAveraging(sf.alpha, sf.frameRate),
		sweep.WithKeepSpectrum(keepSpectrum),
		sweep.WithKeepDC(keepDC),
		sweep.WithListeners(chans...),
		sweep.WithMetrics(newMetrics()),
	)
	start := time.Now()
	rep, err := eng.Run(ctx, req)
	if werr := wait(); werr != nil {
		glog.Warningf("export failed: %v", werr)
	}
	if outs.table != nil {
		if serr := outs.table.Save(tablePath); serr != nil {
			glog.Warningf("saving peak table: %v", serr)
		}
	}
	if errors.Is(err, context.Canceled) {
		glog.Warningf("interrupted after %d windows", len(rep.Results))
		return nil
	}
	if err != nil {
		return err
	}
	npeaks := 0
	for _, res := range rep.Results {
		npeaks += len(res.Peaks)
	}
	glog.Infof("sweep %s: %d windows, %d peaks in %s (started %s)",
		rep.ID, len(rep.Results), npeaks, time.Since(start).Round(time.Millisecond), humanize.Time(rep.Started))
	return nil
}

func measurePPM() error {
	refs, err := referenceCarriers()
	if err != nil {
		return err
	}
	req := ppmRequest(refs)
	if err := req.Validate(); err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	tuner, err := openTuner(context.Background())
	if err != nil {
		return err
	}
	defer tuner.Close()

	eng := sweep.NewEngine(tuner, peak.Single{},
		sweep.WithSettle(settle),
		sweep.WithCaptureTimeout(captureTimeout),
		sweep.WithAveraging(ppmFlags.alpha, ppmFlags.frameRate),
		sweep.WithKeepDC(keepDC),
		sweep.WithMetrics(newMetrics()),
	)
	c, err := eng.Calibrate(ctx, req, refs)
	if err != nil {
		return err
	}
	fmt.Printf("%d Hz observed at %d Hz (%.2f dB): %.2f ppm\n", c.Reference, c.Observed, c.Power, c.PPM)
	return nil
}

func importCSV(path string) error {
	if tablePath == "" {
		return fmt.Errorf("import needs --table")
	}
	t, err := loadTable()
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := t.ImportCSV(f); err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}
	glog.Infof("peak table has %d signals", len(t.Records()))
	return t.Save(tablePath)
}

func listTable(args []string) error {
	if tablePath == "" {
		return fmt.Errorf("table needs --table")
	}
	t, err := loadTable()
	if err != nil {
		return err
	}
	recs := t.Records()
	span := radio.NewHzRange(0, math.MaxUint32)
	if len(args) == 2 {
		startHz, stopHz, err := parseRange(args)
		if err != nil {
			return err
		}
		span = radio.NewHzRange(startHz, stopHz)
		recs = t.Range(span)
	}
	if listBands {
		for _, b := range t.Occupied(span) {
			fmt.Printf("%s\t%s\t%s\n",
				humanize.SIWithDigits(float64(b.Begin()), 6, "Hz"),
				humanize.SIWithDigits(float64(b.End()), 6, "Hz"),
				humanize.SIWithDigits(float64(b.Width), 3, "Hz"))
		}
		return nil
	}
	for _, r := range recs {
		name := r.Name
		if name == "" {
			name = "-"
		}
		fmt.Printf("%d\t%s\t%.2f dB\t%d\t%s\n",
			r.Center, humanize.SIWithDigits(float64(r.Width), 3, "Hz"), r.Power, r.Seen, name)
	}
	return nil
}
