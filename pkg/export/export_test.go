package export

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"

	"github.com/soildata/pedon/pkg/pedon"
	"github.com/soildata/pedon/pkg/slab"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"msgpack", FormatMsgpack, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q): expected %q, got %q (%v)", tt.in, tt.want, got, err)
		}
	}
}

func TestWriteJSONSummaries(t *testing.T) {
	summaries := []slab.Summary{
		{Group: "forest", Variable: "clay", Top: 0, Bottom: 25, Statistic: "p50", Value: pedon.Num(22.5), ContributingFraction: 0.8},
		{Group: "forest", Variable: "clay", Top: 25, Bottom: 50, Statistic: "p50", Value: pedon.Missing(), ContributingFraction: 0},
	}

	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, summaries); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(decoded))
	}
	if decoded[0]["value"] != 22.5 {
		t.Errorf("expected numeric value 22.5, got %v", decoded[0]["value"])
	}
	if decoded[1]["value"] != nil {
		t.Errorf("missing value should encode as null, got %v", decoded[1]["value"])
	}
	if decoded[0]["contributing_fraction"] != 0.8 {
		t.Errorf("expected contributing_fraction 0.8, got %v", decoded[0]["contributing_fraction"])
	}
}

func TestWriteMsgpackRoundTrip(t *testing.T) {
	summaries := []slab.Summary{
		{Group: "", Variable: "sand", Top: 0, Bottom: 10, Statistic: "mean", Value: pedon.Num(55), ContributingFraction: 1},
	}

	var buf bytes.Buffer
	if err := Write(&buf, FormatMsgpack, summaries); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	var decoded []slab.Summary
	if err := msgpack.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode msgpack: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 record, got %d", len(decoded))
	}
	if v, ok := decoded[0].Value.Float(); !ok || v != 55 {
		t.Errorf("expected value 55 after round trip, got %v", decoded[0].Value)
	}
	if decoded[0].Statistic != "mean" || decoded[0].Bottom != 10 {
		t.Errorf("unexpected record after round trip: %+v", decoded[0])
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Format("xml"), "data"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNewMatrixPayload(t *testing.T) {
	m := mat.NewSymDense(3, nil)
	m.SetSym(0, 1, 0.25)
	m.SetSym(0, 2, math.NaN())
	m.SetSym(1, 2, 0.75)

	payload := NewMatrixPayload([]string{"A", "B", "C"}, m)
	if len(payload.Values) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(payload.Values))
	}
	if payload.Values[0][1] == nil || *payload.Values[0][1] != 0.25 {
		t.Errorf("expected cell (0,1) = 0.25, got %v", payload.Values[0][1])
	}
	if payload.Values[1][0] == nil || *payload.Values[1][0] != 0.25 {
		t.Error("payload should be symmetric")
	}
	if payload.Values[0][2] != nil {
		t.Errorf("NaN cell should become nil, got %v", *payload.Values[0][2])
	}
	if *payload.Values[0][0] != 0 {
		t.Error("diagonal should be zero, not nil")
	}

	// The payload must survive JSON encoding despite the NaN cell.
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, payload); err != nil {
		t.Fatalf("matrix payload failed JSON encoding: %v", err)
	}
}
