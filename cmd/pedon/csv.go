package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/soildata/pedon/pkg/pedon"
)

// loadCSV reads the horizon and site relations from headered CSV files.
// Horizon files require profile_id, top, and bottom columns; site files
// require profile_id. Every other column becomes an attribute: parseable
// numbers are numeric, empty cells are missing, anything else is
// categorical.
func loadCSV(horizonsPath, sitesPath string) (*pedon.Collection, error) {
	hHeader, hRows, err := readCSV(horizonsPath)
	if err != nil {
		return nil, err
	}
	sHeader, sRows, err := readCSV(sitesPath)
	if err != nil {
		return nil, err
	}

	hCols, err := columnIndex(hHeader, horizonsPath, "profile_id", "top", "bottom")
	if err != nil {
		return nil, err
	}
	sCols, err := columnIndex(sHeader, sitesPath, "profile_id")
	if err != nil {
		return nil, err
	}

	horizons := make([]pedon.HorizonRecord, 0, len(hRows))
	for i, row := range hRows {
		rec := pedon.HorizonRecord{
			ProfileID: row[hCols["profile_id"]],
			Attrs:     make(map[string]pedon.Value),
		}
		rec.Top, err = strconv.ParseFloat(row[hCols["top"]], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad top %q", horizonsPath, i+2, row[hCols["top"]])
		}
		if cell := row[hCols["bottom"]]; cell == "" {
			rec.Bottom = math.NaN()
		} else if rec.Bottom, err = strconv.ParseFloat(cell, 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad bottom %q", horizonsPath, i+2, cell)
		}
		for j, name := range hHeader {
			if name == "profile_id" || name == "top" || name == "bottom" {
				continue
			}
			rec.Attrs[name] = cellValue(row[j])
		}
		horizons = append(horizons, rec)
	}

	sites := make([]pedon.SiteRecord, 0, len(sRows))
	for _, row := range sRows {
		rec := pedon.SiteRecord{
			ProfileID: row[sCols["profile_id"]],
			Attrs:     make(map[string]pedon.Value),
		}
		for j, name := range sHeader {
			if name == "profile_id" {
				continue
			}
			rec.Attrs[name] = cellValue(row[j])
		}
		sites = append(sites, rec)
	}

	return pedon.Build(horizons, sites)
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	return records[0], records[1:], nil
}

func columnIndex(header []string, path string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%s is missing required column %s", path, name)
		}
	}
	return cols, nil
}

func cellValue(cell string) pedon.Value {
	if cell == "" {
		return pedon.Missing()
	}
	if num, err := strconv.ParseFloat(cell, 64); err == nil {
		return pedon.Num(num)
	}
	return pedon.Cat(cell)
}
