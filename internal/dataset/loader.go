package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"section8map/internal/logger"
	"section8map/internal/types"
)

// ErrDataUnavailable is returned when the dataset is missing or malformed.
var ErrDataUnavailable = errors.New("data unavailable")

// Column names in the source file header.
const (
	ColID               = "zpid"
	ColDetailURL        = "detailUrl_InfoTOD"
	ColRegion           = "state"
	ColSubregion        = "County"
	ColLatitude         = "latitude"
	ColLongitude        = "longitude"
	ColBedrooms         = "bedrooms"
	ColLivingArea       = "livingArea"
	ColYearBuilt        = "yearBuilt"
	ColHomeType         = "homeType"
	ColPricePerSqFt     = "price_sq_foot"
	ColFairMarketRent   = "FRM"
	ColLastSoldPrice    = "lastSoldPrice"
	ColRentToPriceRatio = "price_to_rent_ratio_InfoTOD"
	ColSection8         = "Section_8"
	ColSchoolDistance   = "SCHOOLSMeandistance"
	ColDescription      = "description"
)

// Columns lists every column a source must provide.
var Columns = []string{
	ColID, ColDetailURL, ColRegion, ColSubregion, ColLatitude, ColLongitude,
	ColBedrooms, ColLivingArea, ColYearBuilt, ColHomeType,
	ColPricePerSqFt, ColFairMarketRent, ColLastSoldPrice, ColRentToPriceRatio,
	ColSection8, ColSchoolDistance, ColDescription,
}

// DefaultPath is where the dataset lives relative to the working directory.
const DefaultPath = "Datos/Data_Final.csv"

// Source yields every listing of a dataset.
type Source interface {
	Listings(ctx context.Context) ([]types.Property, error)
}

// Loader reads the dataset once and hands the same table to every caller.
type Loader struct {
	source Source

	once  sync.Once
	table *Table
	err   error
}

type Option func(*Loader)

// WithSource replaces the file source, e.g. with a database.
func WithSource(s Source) Option {
	return func(l *Loader) { l.source = s }
}

// WithDelimiter sets the file field separator (default ',').
func WithDelimiter(r rune) Option {
	return func(l *Loader) {
		if fs, ok := l.source.(*FileSource); ok {
			fs.Delimiter = r
		}
	}
}

// NewLoader creates a loader for the delimited file at path.
func NewLoader(path string, opts ...Option) *Loader {
	l := &Loader{source: &FileSource{Path: path, Delimiter: ','}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the full table. The source is read on the first call only; later
// calls return the first result, including a failure.
func (l *Loader) Load() (*Table, error) {
	l.once.Do(func() {
		rows, err := l.source.Listings(context.Background())
		if err != nil {
			if !errors.Is(err, ErrDataUnavailable) {
				err = fmt.Errorf("%w: %w", ErrDataUnavailable, err)
			}
			l.err = err
			return
		}
		l.table = newTable(rows)
		logger.Log.Infof("Dataset loaded (%d records)", len(rows))
	})
	return l.table, l.err
}

// FileSource reads a delimited text file with a header row.
type FileSource struct {
	Path      string
	Delimiter rune
}

// Listings implements Source.
func (f *FileSource) Listings(_ context.Context) ([]types.Property, error) {
	var (
		rows    []types.Property
		skipped int
	)
	err := readFile(f.Path, f.Delimiter, func(line int, record map[string]string) error {
		p, skip, err := ParseRecord(record)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", f.Path, line, err)
		}
		if skip {
			skipped++
			return nil
		}
		rows = append(rows, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Log.Warnf("Skipped %d rows of %s without a state or county", skipped, f.Path)
	}
	return rows, nil
}

// readFile iterates through a delimited file with a header row, calling fn for
// each record keyed by header name. line is the 1-based line of the record.
func readFile(path string, delim rune, fn func(line int, record map[string]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if delim != 0 {
		r.Comma = delim
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return fmt.Errorf("%w: file %s is empty", ErrDataUnavailable, path)
	}
	if err != nil {
		return fmt.Errorf("%w: read header of %s: %w", ErrDataUnavailable, path, err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return fmt.Errorf("%w: %s is missing columns %s", ErrDataUnavailable, path, strings.Join(missing, ", "))
	}

	for {
		cols, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDataUnavailable, err)
		}
		line, _ := r.FieldPos(0)
		rec := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(cols) {
				rec[h] = strings.TrimSpace(cols[j])
			}
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}

func missingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, c := range Columns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// ParseRecord converts a header-keyed row into a Property. skip is true for rows
// without a region or subregion; an invalid eligibility flag is an error.
func ParseRecord(record map[string]string) (p types.Property, skip bool, err error) {
	region := strings.TrimSpace(record[ColRegion])
	subregion := strings.TrimSpace(record[ColSubregion])
	if region == "" || subregion == "" {
		return types.Property{}, true, nil
	}

	flag, ok := types.ParseFlag(record[ColSection8])
	if !ok {
		return types.Property{}, false, fmt.Errorf("%w: %s must be 0 or 1, got %q", ErrDataUnavailable, ColSection8, record[ColSection8])
	}

	return types.Property{
		ID:        types.NormalizeNumeric(record[ColID]),
		DetailURL: record[ColDetailURL],

		Region:    region,
		Subregion: subregion,
		Latitude:  record[ColLatitude],
		Longitude: record[ColLongitude],

		Bedrooms:   types.NormalizeNumeric(record[ColBedrooms]),
		LivingArea: record[ColLivingArea],
		YearBuilt:  types.NormalizeNumeric(record[ColYearBuilt]),
		HomeType:   record[ColHomeType],

		PricePerSqFt:     record[ColPricePerSqFt],
		FairMarketRent:   record[ColFairMarketRent],
		LastSoldPrice:    record[ColLastSoldPrice],
		RentToPriceRatio: record[ColRentToPriceRatio],

		Section8: flag,

		SchoolDistance: record[ColSchoolDistance],
		Description:    record[ColDescription],
	}, false, nil
}
