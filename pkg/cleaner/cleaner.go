// pkg/cleaner/cleaner.go
package cleaner

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/David-Botos/catalog-ingress/pkg/model"
)

// Options controls how the transformer treats borderline values
type Options struct {
	// EmptyStringAsNull substitutes defaults for blank strings as well as
	// nulls. Off by default, so only missing or null fields are defaulted.
	EmptyStringAsNull bool

	// Clock supplies the extraction timestamp stamped on every record of a batch
	Clock func() time.Time
}

// DefaultOptions returns the options used by the pipeline
func DefaultOptions() Options {
	return Options{
		EmptyStringAsNull: false,
		Clock:             time.Now,
	}
}

// Transformer turns raw source products into clean, deduplicated records
type Transformer struct {
	logger *zap.Logger
	opts   Options
}

// NewTransformer creates a Transformer
func NewTransformer(logger *zap.Logger, opts Options) *Transformer {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Transformer{
		logger: logger.Named("transformer"),
		opts:   opts,
	}
}

// Transform cleans a batch of raw records. Records are deduplicated by code
// with the first occurrence winning, missing values are defaulted, text is
// normalized and each record gets a quality flag. Every change is reported
// as a CleaningOperation.
func (t *Transformer) Transform(raw []model.RawRecord) ([]model.CleanRecord, []model.CleaningOperation, error) {
	t.logger.Info("Starting transformation", zap.Int("input_rows", len(raw)))

	if len(raw) == 0 {
		t.logger.Warn("Empty batch received, skipping transformation")
		return []model.CleanRecord{}, nil, nil
	}

	if !anyHasCode(raw) {
		return nil, nil, model.MalformedInput("no record carries a code field", nil)
	}

	extractedAt := t.opts.Clock().UTC()
	caser := cases.Title(language.Und)

	records := make([]model.CleanRecord, 0, len(raw))
	var operations []model.CleaningOperation
	seen := make(map[string]struct{}, len(raw))
	duplicates, dropped := 0, 0

	for i, rec := range raw {
		code, ok := rec.String(model.FieldCode)
		if !ok || strings.TrimSpace(code) == "" {
			original, _ := rec.Value(model.FieldCode)
			operations = append(operations, dropRecord(original, "", reasonMissingCode))
			t.logger.Debug("Dropping record without code", zap.Int("index", i))
			dropped++
			continue
		}

		if _, dup := seen[code]; dup {
			operations = append(operations, dropRecord(code, code, reasonDuplicateCode))
			duplicates++
			continue
		}
		seen[code] = struct{}{}

		record, ops := t.cleanRecord(rec, code, caser)
		record.ExtractedAt = extractedAt
		records = append(records, record)
		operations = append(operations, ops...)
	}

	flags := make(map[string]int)
	for _, r := range records {
		flags[string(r.QualityFlag)]++
	}

	t.logger.Info("Transformation complete",
		zap.Int("input_rows", len(raw)),
		zap.Int("output_rows", len(records)),
		zap.Int("duplicates_removed", duplicates),
		zap.Int("dropped_without_code", dropped),
		zap.Int("cleaning_operations", len(operations)),
		zap.Any("quality_flags", flags))

	return records, operations, nil
}

// cleanRecord projects, defaults and normalizes a single record
func (t *Transformer) cleanRecord(
	rec model.RawRecord,
	code string,
	caser cases.Caser,
) (model.CleanRecord, []model.CleaningOperation) {
	var operations []model.CleaningOperation
	values := make(map[string]string, len(fieldDefaults))

	for _, fd := range fieldDefaults {
		value, op := fillDefault(rec, fd.field, fd.fallback, code, t.opts.EmptyStringAsNull)
		if op != nil {
			operations = append(operations, *op)
		}
		values[fd.field] = value
	}

	name, op := titleCase(caser, values[model.FieldProductName], code)
	if op != nil {
		operations = append(operations, *op)
	}

	grade, op := lowerCase(values[model.FieldNutriscoreGrade], code)
	if op != nil {
		operations = append(operations, *op)
	}

	lastModified, op := parseLastModified(rec, code)
	if op != nil {
		operations = append(operations, *op)
	}

	return model.CleanRecord{
		Code:             code,
		ProductName:      name,
		Categories:       values[model.FieldCategories],
		Quantity:         values[model.FieldQuantity],
		Stores:           values[model.FieldStores],
		Countries:        values[model.FieldCountries],
		NutriscoreGrade:  grade,
		LastModifiedDate: lastModified,
		PipelineVersion:  model.PipelineVersion,
		QualityFlag:      qualityFlag(name, grade),
	}, operations
}

// anyHasCode reports whether the batch carries a code field at all
func anyHasCode(raw []model.RawRecord) bool {
	for _, rec := range raw {
		if rec.Has(model.FieldCode) {
			return true
		}
	}
	return false
}
