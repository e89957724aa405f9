// Package ingest confirms partner discount codes published across several
// gzip-compressed source files.
//
// Each file holds one "CODE,AMOUNT" pair per line. A code is confirmed when it
// appears in at least MinFiles distinct files. Files are scanned twice: the
// first pass builds one bloom filter per file, the second keeps only codes
// that some other file's filter may contain, so memory stays proportional to
// the shared codes rather than to the file sizes.
package ingest

import (
	"bufio"
	"context"
	"log/slog"
	"math/bits"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/discount"
)

// MaxFiles is the number of source files a single run can compare.
const MaxFiles = 64

const maxCodeLen = 32

// Config tunes the scan.
type Config struct {
	// MinFiles is how many files must list a code. Defaults to 2.
	MinFiles int
	// Capacity is the expected number of codes per file.
	Capacity uint
	// FalsePositiveRate of each bloom filter.
	FalsePositiveRate float64
	// Logger receives progress. Defaults to slog.Default.
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.MinFiles <= 0 {
		c.MinFiles = 2
	}
	if c.Capacity == 0 {
		c.Capacity = 1_000_000
	}
	if c.FalsePositiveRate <= 0 {
		c.FalsePositiveRate = 0.001
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats summarizes a run.
type Stats struct {
	Lines      int
	Malformed  int
	Conflicts  int
	Candidates int
	Confirmed  int
}

// distinct returns the cleaned paths in sorted order without repeats.
func distinct(files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.Clean(f)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// candidate is a code seen in the files of mask, priced by the first of them.
type candidate struct {
	mask   uint64
	amount decimal.Decimal
}

// Confirm returns the codes listed in at least cfg.MinFiles of files, sorted
// by code. A code whose amounts differ between files is dropped. Repeated
// paths count as one file.
func Confirm(ctx context.Context, files []string, cfg Config) ([]discount.Code, Stats, error) {
	cfg.setDefaults()
	var stats Stats
	files = distinct(files)

	if len(files) > MaxFiles {
		return nil, stats, errors.Errorf("at most %d files, got %d", MaxFiles, len(files))
	}
	if len(files) < cfg.MinFiles {
		return nil, stats, errors.Errorf("need at least %d files, got %d", cfg.MinFiles, len(files))
	}

	var filters []*bloom.BloomFilter
	if cfg.MinFiles > 1 {
		cfg.Logger.Info("Pass 1: building bloom filters", slog.Int("files", len(files)))
		var err error
		if filters, err = buildFilters(ctx, files, cfg); err != nil {
			return nil, stats, errors.Wrap(err, "build bloom filters")
		}
	}

	cfg.Logger.Info("Pass 2: collecting candidates")
	perFile, fileStats, err := collect(ctx, files, filters, cfg)
	if err != nil {
		return nil, stats, errors.Wrap(err, "collect candidates")
	}
	for _, s := range fileStats {
		stats.Lines += s.Lines
		stats.Malformed += s.Malformed
	}

	merged := make(map[string]*candidate)
	conflicted := make(map[string]bool)
	for idx, m := range perFile {
		for code, amount := range m {
			c, ok := merged[code]
			if !ok {
				merged[code] = &candidate{mask: 1 << uint(idx), amount: amount}
				continue
			}
			c.mask |= 1 << uint(idx)
			if !c.amount.Equal(amount) {
				conflicted[code] = true
			}
		}
	}
	stats.Candidates = len(merged)

	var out []discount.Code
	for code, c := range merged {
		if bits.OnesCount64(c.mask) < cfg.MinFiles {
			continue
		}
		if conflicted[code] {
			stats.Conflicts++
			cfg.Logger.Warn("Conflicting amounts, skipping", slog.String("code", code))
			continue
		}
		out = append(out, discount.Code{
			Code:        code,
			Amount:      c.amount,
			Description: "Partner code $" + c.amount.StringFixed(2) + " off",
		})
	}
	slices.SortFunc(out, func(a, b discount.Code) int { return strings.Compare(a.Code, b.Code) })
	stats.Confirmed = len(out)
	return out, stats, nil
}

func buildFilters(ctx context.Context, files []string, cfg Config) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(cfg.Capacity, cfg.FalsePositiveRate)
			var n int
			if _, err := scanFile(ctx, path, func(code string, _ decimal.Decimal) {
				filter.AddString(code)
				n++
			}); err != nil {
				return err
			}
			cfg.Logger.Info("Pass 1 file done", slog.String("file", path), slog.Int("codes", n))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// collect re-reads every file and keeps the codes another file may also
// contain. With no filters every code is kept.
func collect(ctx context.Context, files []string, filters []*bloom.BloomFilter, cfg Config) ([]map[string]decimal.Decimal, []Stats, error) {
	perFile := make([]map[string]decimal.Decimal, len(files))
	stats := make([]Stats, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			found := make(map[string]decimal.Decimal)
			s, err := scanFile(ctx, path, func(code string, amount decimal.Decimal) {
				if filters != nil && !inOther(filters, i, code) {
					return
				}
				if _, dup := found[code]; !dup {
					found[code] = amount
				}
			})
			if err != nil {
				return err
			}
			cfg.Logger.Info("Pass 2 file done",
				slog.String("file", path),
				slog.Int("lines", s.Lines),
				slog.Int("candidates", len(found)),
			)
			perFile[i] = found
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return perFile, stats, nil
}

func inOther(filters []*bloom.BloomFilter, self int, code string) bool {
	for j, f := range filters {
		if j != self && f.TestString(code) {
			return true
		}
	}
	return false
}

// scanFile streams a gzip file and calls fn for every well-formed line.
func scanFile(ctx context.Context, path string, fn func(code string, amount decimal.Decimal)) (Stats, error) {
	var s Stats

	f, err := os.Open(path)
	if err != nil {
		return s, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return s, errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if s.Lines%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return s, err
			}
		}
		s.Lines++
		code, amount, ok := ParseLine(scanner.Text())
		if !ok {
			s.Malformed++
			continue
		}
		fn(code, amount)
	}
	if err := scanner.Err(); err != nil {
		return s, errors.Wrapf(err, "scan %s", path)
	}
	return s, nil
}

// ParseLine parses "CODE,AMOUNT". The code is normalized; the amount must be
// positive with at most two decimals.
func ParseLine(line string) (string, decimal.Decimal, bool) {
	rawCode, rawAmount, ok := strings.Cut(line, ",")
	if !ok {
		return "", decimal.Zero, false
	}
	code := discount.Normalize(rawCode)
	if code == "" || len(code) > maxCodeLen || strings.ContainsAny(code, " \t") {
		return "", decimal.Zero, false
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
	if err != nil || !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return "", decimal.Zero, false
	}
	return code, amount, true
}
