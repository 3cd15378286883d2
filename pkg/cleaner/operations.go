// pkg/cleaner/operations.go
package cleaner

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/David-Botos/catalog-ingress/pkg/model"
)

// Defaults substituted for missing values
const (
	DefaultProductName = "Unknown Product"
	DefaultCategories  = "Uncategorized"
	DefaultStores      = "Unknown Store"
	DefaultCountries   = "Unknown Country"
	DefaultNutriscore  = "not_rated"
	DefaultQuantity    = "Unknown"
)

// Cleaning reasons
const (
	reasonNullValue     = "null_value"
	reasonEmptyValue    = "empty_value"
	reasonTitleCase     = "title_case"
	reasonLowerCase     = "lower_case"
	reasonUnparsable    = "unparsable_epoch"
	reasonOutOfRange    = "epoch_out_of_range"
	reasonMissingCode   = "missing_code"
	reasonDuplicateCode = "duplicate_code"
)

// Epoch seconds accepted for last_modified_t, matching the nanosecond
// timestamp range 1677-09-21 through 2262-04-11 UTC
const (
	minEpochSeconds int64 = -9223372036
	maxEpochSeconds int64 = 9223372036
)

// fieldDefaults pairs each defaulted source field with its substitute
var fieldDefaults = []struct {
	field    string
	fallback string
}{
	{model.FieldProductName, DefaultProductName},
	{model.FieldCategories, DefaultCategories},
	{model.FieldQuantity, DefaultQuantity},
	{model.FieldStores, DefaultStores},
	{model.FieldCountries, DefaultCountries},
	{model.FieldNutriscoreGrade, DefaultNutriscore},
}

// fillDefault returns the field as a string, substituting fallback when the
// value is missing or null. Blank strings count as missing when emptyAsNull is set.
func fillDefault(
	rec model.RawRecord,
	field, fallback, rowID string,
	emptyAsNull bool,
) (string, *model.CleaningOperation) {
	value, ok := rec.String(field)
	if !ok {
		return fallback, &model.CleaningOperation{
			ColumnName:        field,
			OriginalValue:     nil,
			NewValue:          fallback,
			RowIdentifier:     rowID,
			CleaningOperation: model.OpDefaultSubstitution,
			CleaningReason:    reasonNullValue,
		}
	}

	if emptyAsNull && strings.TrimSpace(value) == "" {
		return fallback, &model.CleaningOperation{
			ColumnName:        field,
			OriginalValue:     value,
			NewValue:          fallback,
			RowIdentifier:     rowID,
			CleaningOperation: model.OpDefaultSubstitution,
			CleaningReason:    reasonEmptyValue,
		}
	}

	return value, nil
}

// titleCase trims and title-cases a product name
func titleCase(
	caser cases.Caser,
	value, rowID string,
) (string, *model.CleaningOperation) {
	normalized := titleWords(caser, strings.TrimSpace(value))
	if normalized == value {
		return value, nil
	}
	return normalized, &model.CleaningOperation{
		ColumnName:        model.FieldProductName,
		OriginalValue:     value,
		NewValue:          normalized,
		RowIdentifier:     rowID,
		CleaningOperation: model.OpNormalization,
		CleaningReason:    reasonTitleCase,
	}
}

// titleWords cases every run of letters on its own, so a letter following
// an apostrophe, digit or hyphen starts a new word: "l'oreal" is "L'Oreal"
func titleWords(caser cases.Caser, value string) string {
	var b strings.Builder
	b.Grow(len(value))

	start := -1
	for i, r := range value {
		if unicode.IsLetter(r) || unicode.Is(unicode.Mn, r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(caser.String(value[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(caser.String(value[start:]))
	}
	return b.String()
}

// lowerCase trims and lower-cases a nutrition grade
func lowerCase(value, rowID string) (string, *model.CleaningOperation) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == value {
		return value, nil
	}
	return normalized, &model.CleaningOperation{
		ColumnName:        model.FieldNutriscoreGrade,
		OriginalValue:     value,
		NewValue:          normalized,
		RowIdentifier:     rowID,
		CleaningOperation: model.OpNormalization,
		CleaningReason:    reasonLowerCase,
	}
}

// parseLastModified converts epoch seconds into a UTC timestamp. Missing
// values yield nil silently; present but unparsable values yield nil and an operation.
func parseLastModified(rec model.RawRecord, rowID string) (*time.Time, *model.CleaningOperation) {
	raw, present := rec.Value(model.FieldLastModified)
	if !present {
		return nil, nil
	}

	secs, ok := rec.Int64(model.FieldLastModified)
	if !ok {
		return nil, timestampFailure(raw, rowID, reasonUnparsable)
	}
	if secs < minEpochSeconds || secs > maxEpochSeconds {
		return nil, timestampFailure(raw, rowID, reasonOutOfRange)
	}

	t := time.Unix(secs, 0).UTC()
	return &t, nil
}

func timestampFailure(raw interface{}, rowID, reason string) *model.CleaningOperation {
	return &model.CleaningOperation{
		ColumnName:        model.FieldLastModified,
		OriginalValue:     raw,
		NewValue:          "",
		RowIdentifier:     rowID,
		CleaningOperation: model.OpTimestampParse,
		CleaningReason:    reason,
	}
}

// qualityFlag applies the name check, then the nutriscore check, which wins
func qualityFlag(productName, nutriscore string) model.QualityFlag {
	flag := model.QualityOK
	if productName == DefaultProductName {
		flag = model.QualityMissingName
	}
	if nutriscore == DefaultNutriscore {
		flag = model.QualityMissingNutriscore
	}
	return flag
}

// dropRecord reports a record that was removed from the batch
func dropRecord(original interface{}, rowID, reason string) model.CleaningOperation {
	return model.CleaningOperation{
		ColumnName:        model.FieldCode,
		OriginalValue:     original,
		NewValue:          "",
		RowIdentifier:     rowID,
		CleaningOperation: model.OpDropRecord,
		CleaningReason:    reason,
	}
}
