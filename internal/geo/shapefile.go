package geo

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dris-project/impact-engine/internal/db"
)

// FieldMapping names the shapefile attributes holding the division code
// and display name. Admin-boundary products name these differently
// (GID_1/NAME_1, ADM1_PCODE/ADM1_EN, ...), so the caller supplies them.
type FieldMapping struct {
	CodeField string
	NameField string
	Level     int
}

// DivisionRow is one parsed shapefile record ready for loading.
type DivisionRow struct {
	Code     string
	Name     string
	Level    int
	Boundary []byte
}

// ParseShapefile reads an admin-boundary shapefile into division rows.
// Records with no usable geometry or a blank code are skipped, not
// fatal; boundary products are noisy.
func ParseShapefile(path string, mapping FieldMapping) ([]DivisionRow, int, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(name string) string {
		idx, ok := fieldIdx[strings.ToLower(name)]
		if !ok {
			return ""
		}
		val := strings.TrimRight(reader.Attribute(idx), "\x00")
		return strings.TrimSpace(val)
	}

	var rows []DivisionRow
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		code := attr(mapping.CodeField)
		if code == "" {
			skipped++
			continue
		}

		boundary, err := encodeWKB(shape)
		if err != nil || boundary == nil {
			skipped++
			continue
		}

		rows = append(rows, DivisionRow{
			Code:     code,
			Name:     attr(mapping.NameField),
			Level:    mapping.Level,
			Boundary: boundary,
		})
	}

	return rows, skipped, nil
}

// Loader bulk-upserts parsed division rows, pacing batches so a large
// national boundary file does not monopolize the pool.
type Loader struct {
	pool      db.Pool
	limiter   *rate.Limiter
	batchSize int
	log       *zap.Logger
}

// NewLoader creates a Loader. batchesPerSecond <= 0 disables pacing.
func NewLoader(pool db.Pool, batchesPerSecond float64, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	var limiter *rate.Limiter
	if batchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(batchesPerSecond), 1)
	}
	return &Loader{pool: pool, limiter: limiter, batchSize: 500, log: log}
}

// Load upserts the rows into geographic_divisions keyed by code and
// returns the number of rows written.
func (l *Loader) Load(ctx context.Context, rows []DivisionRow) (int64, error) {
	cfg := db.UpsertConfig{
		Table:        "geographic_divisions",
		Columns:      []string{"code", "name", "level", "boundary"},
		ConflictKeys: []string{"code"},
	}

	var written int64
	for start := 0; start < len(rows); start += l.batchSize {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return written, eris.Wrap(err, "geo: load cancelled")
			}
		}

		end := start + l.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := make([][]any, 0, end-start)
		for _, r := range rows[start:end] {
			batch = append(batch, []any{r.Code, r.Name, r.Level, r.Boundary})
		}

		n, err := db.BulkUpsert(ctx, l.pool, cfg, batch)
		if err != nil {
			return written, eris.Wrapf(err, "geo: load batch at %d", start)
		}
		written += n
	}

	l.log.Info("geo: divisions loaded", zap.Int64("rows", written))
	return written, nil
}
