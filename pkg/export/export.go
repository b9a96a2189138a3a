// Package export encodes analysis results as JSON or MessagePack.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat maps a configuration string to a Format. Empty defaults to JSON.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "msgpack":
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Write encodes data to w in the requested format. JSON output is indented
// for direct inspection; MessagePack is compact.
func Write(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case FormatMsgpack:
		if err := msgpack.NewEncoder(w).Encode(data); err != nil {
			return fmt.Errorf("failed to encode MessagePack: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown export format %q", format)
}

// MatrixPayload is the serializable form of a dissimilarity matrix: profile
// keys in matrix order plus the dense row-major values. Cells for pairs with
// no shared evaluable depth are nil.
type MatrixPayload struct {
	ProfileIDs []string     `json:"profile_ids" msgpack:"profile_ids"`
	Values     [][]*float64 `json:"values" msgpack:"values"`
}

// NewMatrixPayload flattens a symmetric matrix for encoding. NaN cells become
// nil so the payload survives JSON encoding.
func NewMatrixPayload(ids []string, m *mat.SymDense) *MatrixPayload {
	n := m.SymmetricDim()
	values := make([][]*float64, n)
	for i := 0; i < n; i++ {
		row := make([]*float64, n)
		for j := 0; j < n; j++ {
			if v := m.At(i, j); !math.IsNaN(v) {
				v := v
				row[j] = &v
			}
		}
		values[i] = row
	}
	return &MatrixPayload{ProfileIDs: ids, Values: values}
}
