package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
	"github.com/ducminhle1904/regime-backtester/internal/safety"
	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// CSVProvider implements DataProvider for CSV files
type CSVProvider struct {
	format CSVColumnMapping
	strict bool
	logger zerolog.Logger
}

// CSVOption configures a CSVProvider
type CSVOption func(*CSVProvider)

// WithFormat sets the column mapping
func WithFormat(format CSVColumnMapping) CSVOption {
	return func(p *CSVProvider) { p.format = format }
}

// WithStrict makes any malformed row an error instead of a skipped line
func WithStrict(strict bool) CSVOption {
	return func(p *CSVProvider) { p.strict = strict }
}

// WithLogger sets the logger used for skipped rows
func WithLogger(l zerolog.Logger) CSVOption {
	return func(p *CSVProvider) { p.logger = l }
}

// NewCSVProvider creates a CSV data provider; the default format is
// DefaultCSVFormat in lenient mode
func NewCSVProvider(opts ...CSVOption) *CSVProvider {
	p := &CSVProvider{format: DefaultCSVFormat, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads historical data from a CSV file
func (p *CSVProvider) LoadData(source string) ([]types.PriceCandle, error) {
	file, err := os.Open(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, simerrors.NewDataError("csv", "load", fmt.Sprintf("data file %s not found", source))
		}
		return nil, simerrors.WrapError(err, simerrors.ErrorCategoryData, "csv", "load")
	}
	defer file.Close()

	return p.Read(file)
}

// Read parses candles from r
func (p *CSVProvider) Read(r io.Reader) ([]types.PriceCandle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	format := p.format
	line := 0
	if format.HasHeader {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, simerrors.WrapError(err, simerrors.ErrorCategoryData, "csv", "read header")
		}
		line++
	}

	var data []types.PriceCandle
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, simerrors.WrapError(err, simerrors.ErrorCategoryData, "csv", "read").
				WithContext("line", line)
		}

		candle, err := p.parseRecord(record, format)
		if err == nil {
			if res := safety.ValidateCandle(candle, len(data), false); !res.Valid {
				err = errors.New(res.Message)
			}
		}
		if err != nil {
			if p.strict {
				return nil, simerrors.NewDataError("csv", "parse", fmt.Sprintf("line %d: %v", line, err))
			}
			skipped++
			p.logger.Warn().Int("line", line).Err(err).Msg("skipping malformed row")
			continue
		}
		data = append(data, candle)
	}

	if skipped > 0 {
		p.logger.Info().Int("skipped", skipped).Int("loaded", len(data)).Msg("csv rows skipped")
	}
	return data, nil
}

func (p *CSVProvider) parseRecord(record []string, format CSVColumnMapping) (types.PriceCandle, error) {
	var c types.PriceCandle
	if len(record) < format.MinColumns {
		return c, fmt.Errorf("expected %d columns, got %d", format.MinColumns, len(record))
	}

	ts, err := parseTimestamp(strings.TrimSpace(record[format.TimestampCol]), format.DateFormat)
	if err != nil {
		return c, err
	}
	c.Timestamp = ts

	fields := []struct {
		name string
		col  int
		dst  *float64
	}{
		{"open", format.OpenCol, &c.Open},
		{"high", format.HighCol, &c.High},
		{"low", format.LowCol, &c.Low},
		{"close", format.CloseCol, &c.Close},
		{"volume", format.VolumeCol, &c.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[f.col]), 64)
		if err != nil {
			return c, fmt.Errorf("invalid %s %q", f.name, record[f.col])
		}
		*f.dst = v
	}
	return c, nil
}

func parseTimestamp(value, layout string) (int64, error) {
	if layout == TimestampUnixMillis {
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		return ms, nil
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return t.UnixMilli(), nil
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(data []types.PriceCandle) error {
	if len(data) == 0 {
		return simerrors.NewDataError("csv", "validate", "no data provided")
	}
	if res := safety.ValidateSeries(data, false); !res.Valid {
		return simerrors.NewDataError("csv", "validate", res.Message).WithContext("code", res.Code)
	}
	return nil
}
