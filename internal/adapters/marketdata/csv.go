package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// LoadDir construye una fuente en memoria a partir de un directorio de
// ficheros CSV diarios, uno por símbolo (SPY.csv, AAPL.csv...). Los asset
// ids se asignan secuencialmente desde 1 en orden alfabético de fichero,
// así el universo es estable entre ejecuciones.
func LoadDir(dir string) (*Memory, error) {
	pattern := filepath.Join(dir, "*.csv")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("marketdata.LoadDir: glob %s: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("marketdata.LoadDir: no csv files in %s", dir)
	}
	sort.Strings(files)

	src := NewMemory()
	for i, path := range files {
		symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), ".csv"))
		bars, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("marketdata.LoadDir: %s: %w", symbol, err)
		}
		asset := domain.Equity(domain.AssetID(i+1), symbol)
		if err := src.Add(asset, bars); err != nil {
			return nil, err
		}
	}
	return src, nil
}

func loadFile(path string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV lee barras diarias de un CSV con cabecera
// date,open,high,low,close,volume (columnas en cualquier orden, nombres
// sin distinción de mayúsculas; volume es opcional). Las fechas se
// interpretan como medianoche UTC.
func ParseCSV(r io.Reader) ([]domain.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("parse header: missing column %q", name)
		}
	}
	volCol, hasVol := cols["volume"]

	var bars []domain.Bar
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := time.ParseInLocation("2006-01-02", record[cols["date"]], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse date: %w", line, err)
		}
		bar := domain.Bar{Timestamp: ts}
		if bar.Open, err = parsePrice(record, cols["open"]); err != nil {
			return nil, fmt.Errorf("line %d: open: %w", line, err)
		}
		if bar.High, err = parsePrice(record, cols["high"]); err != nil {
			return nil, fmt.Errorf("line %d: high: %w", line, err)
		}
		if bar.Low, err = parsePrice(record, cols["low"]); err != nil {
			return nil, fmt.Errorf("line %d: low: %w", line, err)
		}
		if bar.Close, err = parsePrice(record, cols["close"]); err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}
		if hasVol && volCol < len(record) && record[volCol] != "" {
			if bar.Volume, err = parsePrice(record, volCol); err != nil {
				return nil, fmt.Errorf("line %d: volume: %w", line, err)
			}
		}
		if err := bar.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parsePrice(record []string, col int) (float64, error) {
	if col >= len(record) {
		return 0, fmt.Errorf("missing field %d", col)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
