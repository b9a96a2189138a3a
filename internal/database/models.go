// Package database loads flat horizon, site, and auxiliary feature relations
// from Postgres or SQLite into a pedon.Collection.
package database

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/soildata/pedon/pkg/pedon"
)

// Required column names in the horizon and site relations. Every other
// column becomes an attribute.
const (
	ColProfileID = "profile_id"
	ColTop       = "top"
	ColBottom    = "bottom"
	ColKind      = "kind"
)

// Tables names the source relations. Zero values fall back to the defaults.
type Tables struct {
	Horizons     string
	Sites        string
	Diagnostics  string
	Restrictions string
}

// withDefaults fills unset table names.
func (t Tables) withDefaults() Tables {
	if t.Horizons == "" {
		t.Horizons = "horizons"
	}
	if t.Sites == "" {
		t.Sites = "sites"
	}
	if t.Diagnostics == "" {
		t.Diagnostics = "diagnostics"
	}
	if t.Restrictions == "" {
		t.Restrictions = "restrictions"
	}
	return t
}

// scanHorizonRows converts a wide-table result set into horizon records:
// profile_id, top, and bottom are required, every remaining column becomes a
// tagged attribute value.
func scanHorizonRows(rows *sql.Rows) ([]pedon.HorizonRecord, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read horizon columns: %w", err)
	}
	if err := requireColumns(cols, ColProfileID, ColTop, ColBottom); err != nil {
		return nil, err
	}

	var out []pedon.HorizonRecord
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan horizon row: %w", err)
		}
		rec := pedon.HorizonRecord{Bottom: math.NaN(), Attrs: make(map[string]pedon.Value)}
		for i, col := range cols {
			switch col {
			case ColProfileID:
				rec.ProfileID = asString(raw[i])
			case ColTop:
				top, err := asFloat(raw[i])
				if err != nil {
					return nil, fmt.Errorf("horizon row for %s: bad top: %w", rec.ProfileID, err)
				}
				rec.Top = top
			case ColBottom:
				if raw[i] == nil {
					rec.Bottom = math.NaN()
					continue
				}
				bottom, err := asFloat(raw[i])
				if err != nil {
					return nil, fmt.Errorf("horizon row for %s: bad bottom: %w", rec.ProfileID, err)
				}
				rec.Bottom = bottom
			default:
				rec.Attrs[col] = asValue(raw[i])
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// scanSiteRows converts a wide-table result set into site records.
func scanSiteRows(rows *sql.Rows) ([]pedon.SiteRecord, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read site columns: %w", err)
	}
	if err := requireColumns(cols, ColProfileID); err != nil {
		return nil, err
	}

	var out []pedon.SiteRecord
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan site row: %w", err)
		}
		rec := pedon.SiteRecord{Attrs: make(map[string]pedon.Value)}
		for i, col := range cols {
			if col == ColProfileID {
				rec.ProfileID = asString(raw[i])
				continue
			}
			rec.Attrs[col] = asValue(raw[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// scanFeatureRows converts a long-format result set (profile_id, kind, top,
// bottom) into feature records.
func scanFeatureRows(rows *sql.Rows) ([]pedon.Feature, error) {
	var out []pedon.Feature
	for rows.Next() {
		var f pedon.Feature
		var bottom sql.NullFloat64
		if err := rows.Scan(&f.ProfileID, &f.Kind, &f.Top, &bottom); err != nil {
			return nil, fmt.Errorf("failed to scan feature row: %w", err)
		}
		if bottom.Valid {
			f.Bottom = bottom.Float64
		} else {
			f.Bottom = math.NaN()
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func requireColumns(cols []string, required ...string) error {
	have := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		have[c] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; !ok {
			return fmt.Errorf("result set is missing required column %s", r)
		}
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case []byte:
		return strconv.ParseFloat(string(t), 64)
	case string:
		return strconv.ParseFloat(t, 64)
	}
	return 0, fmt.Errorf("cannot interpret %T as depth", v)
}

// asValue maps a driver value to a tagged attribute value: NULL is missing,
// numbers are numeric, everything textual is categorical.
func asValue(v any) pedon.Value {
	switch t := v.(type) {
	case nil:
		return pedon.Missing()
	case float64:
		return pedon.Num(t)
	case int64:
		return pedon.Num(float64(t))
	case bool:
		if t {
			return pedon.Cat("true")
		}
		return pedon.Cat("false")
	case []byte:
		return pedon.Cat(string(t))
	case string:
		return pedon.Cat(t)
	case time.Time:
		return pedon.Cat(t.Format(time.RFC3339))
	}
	return pedon.Cat(fmt.Sprint(v))
}
