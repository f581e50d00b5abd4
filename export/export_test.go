package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/chzchzchz/sweeprx/peak"
	"github.com/chzchzchz/sweeprx/sweep"
)

func testResults() []sweep.WindowResult {
	return []sweep.WindowResult{
		{
			Window: sweep.Window{Index: 0, Center: 100050000, Lower: 100000000, Upper: 100100000, Bandwidth: 100000, BinSize: 1000},
			Peaks: []sweep.PeakRecord{
				{Peak: peak.Peak{Bin: 10, Power: -12.5, Prominence: 40, Width: 5}, Frequency: 100010000},
				{Peak: peak.Peak{Bin: 60, Power: -30.25, Prominence: 31, Width: 4.5}, Frequency: 100060000},
			},
		},
		{
			Window: sweep.Window{Index: 1, Center: 100150000, Lower: 100100000, Upper: 100200000, Bandwidth: 100000, BinSize: 1000},
			Peaks:  []sweep.PeakRecord{},
		},
	}
}

func feed(t *testing.T, exp Exporter) {
	ch := make(chan sweep.WindowResult, 4)
	for _, r := range testResults() {
		ch <- r
	}
	close(ch)
	if err := exp.Write(context.TODO(), ch); err != nil {
		t.Fatal(err)
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	feed(t, &Text{W: &buf})
	want := "100050000:\n" +
		"    10: 100010000 Hz  -12.50 dB\n" +
		"    60: 100060000 Hz  -30.25 dB\n" +
		"100150000:\n"
	if buf.String() != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, buf.String())
	}
}

func TestTextSingle(t *testing.T) {
	var buf bytes.Buffer
	feed(t, &Text{W: &buf, Single: true})
	want := "100050000: 10\t100010000 Hz\t-12.50 dB\n" +
		"100150000:\n"
	if buf.String() != want {
		t.Fatalf("expected\n%q\ngot\n%q", want, buf.String())
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	feed(t, &CSV{W: &buf, ID: "abc"})
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %v", rows)
	}
	if rows[1][0] != "abc" || rows[1][6] != "100010000" || rows[2][5] != "60" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	feed(t, &JSON{W: &buf, ID: "abc"})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var got struct {
		ID     string `json:"sweep_id"`
		Window struct {
			Center uint64 `json:"center_hz"`
		} `json:"window"`
		Peaks []struct {
			Frequency uint64  `json:"frequency_hz"`
			Power     float64 `json:"power_db"`
		} `json:"peaks"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "abc" || got.Window.Center != 100050000 || len(got.Peaks) != 2 || got.Peaks[1].Power != -30.25 {
		t.Fatalf("unexpected object %+v", got)
	}
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQL("sqlite3", ":memory:", "abc")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	// each pooled connection would get its own in-memory database
	s.DB.SetMaxOpenConns(1)
	feed(t, s)
	var n int
	var freq uint64
	if err := s.DB.QueryRow(`SELECT COUNT(*), MAX(FrequencyHz) FROM peaks WHERE SweepID = ?`, "abc").Scan(&n, &freq); err != nil {
		t.Fatal(err)
	}
	if n != 2 || freq != 100060000 {
		t.Fatalf("expected 2 rows up to 100.06MHz, got %d %d", n, freq)
	}
}

func TestOpenSQLUnknown(t *testing.T) {
	if _, err := OpenSQL("postgres", "", "abc"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

type fakeToken struct{ err error }

func (f fakeToken) Wait() bool                     { return true }
func (f fakeToken) WaitTimeout(time.Duration) bool { return true }
func (f fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (f fakeToken) Error() error { return f.err }

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	if len(f.topics) == 1 {
		return fakeToken{errors.New("broker hiccup")}
	}
	return fakeToken{}
}

func TestMQTT(t *testing.T) {
	pub := &fakePublisher{}
	feed(t, &MQTT{Client: pub, Config: MQTTConfig{Topic: "sweeprx/peaks"}, ID: "abc"})
	want := []string{"sweeprx/peaks/100050000", "sweeprx/peaks/100150000"}
	if strings.Join(pub.topics, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, pub.topics)
	}
}

type failingExporter struct{}

func (failingExporter) Write(context.Context, <-chan sweep.WindowResult) error {
	return errors.New("disk full")
}

func TestStart(t *testing.T) {
	var buf bytes.Buffer
	chans, wait := Start(context.TODO(), &Text{W: &buf}, failingExporter{})
	for _, r := range testResults() {
		for _, ch := range chans {
			ch <- r
		}
	}
	for _, ch := range chans {
		close(ch)
	}
	if err := wait(); err == nil || err.Error() != "disk full" {
		t.Fatalf("expected exporter error, got %v", err)
	}
	if !strings.HasPrefix(buf.String(), "100050000:") {
		t.Fatalf("text exporter did not run: %q", buf.String())
	}
}
