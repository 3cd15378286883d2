// pkg/model/product.go
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// PipelineVersion is stamped on every clean record and audit entry
const PipelineVersion = "1.0"

// Source field names requested from the product search endpoint
const (
	FieldCode            = "code"
	FieldProductName     = "product_name"
	FieldCategories      = "categories"
	FieldQuantity        = "quantity"
	FieldStores          = "stores"
	FieldCountries       = "countries"
	FieldNutriscoreGrade = "nutriscore_grade"
	FieldLastModified    = "last_modified_t"
)

// SourceFields is the field projection sent to the source and kept by the transformer
var SourceFields = []string{
	FieldCode,
	FieldProductName,
	FieldCategories,
	FieldQuantity,
	FieldStores,
	FieldCountries,
	FieldNutriscoreGrade,
	FieldLastModified,
}

// RawRecord is one product as returned by the source. Any field may be
// missing or null; the accessors treat both the same way.
type RawRecord map[string]interface{}

// Has reports whether the field key is present, even when its value is null
func (r RawRecord) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Value returns the field value, or ok=false when the field is missing or null
func (r RawRecord) Value(field string) (interface{}, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the field rendered as a string. Numbers and booleans are
// formatted; nested arrays and objects are rendered as JSON.
func (r RawRecord) String(field string) (string, bool) {
	v, ok := r.Value(field)
	if !ok {
		return "", false
	}

	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	case []byte:
		return string(val), true
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(b), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}

// Int64 returns the field as an integer. Numeric strings are accepted and
// fractional parts are truncated; anything else reports ok=false.
func (r RawRecord) Int64(field string) (int64, bool) {
	v, ok := r.Value(field)
	if !ok {
		return 0, false
	}

	switch val := v.(type) {
	case json.Number:
		return parseInt64(val.String())
	case string:
		return parseInt64(val)
	case float64:
		return floatToInt64(val)
	case float32:
		return floatToInt64(float64(val))
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	default:
		return 0, false
	}
}

func parseInt64(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt64(f)
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// QualityFlag marks which default-substitution rule fired for a record
type QualityFlag string

const (
	QualityOK                QualityFlag = "ok"
	QualityMissingName       QualityFlag = "missing_name"
	QualityMissingNutriscore QualityFlag = "missing_nutriscore"
)

// CleanRecord is a transformed product ready for loading. Every string
// field is non-empty after transformation; only LastModifiedDate may be null.
type CleanRecord struct {
	Code             string      `db:"code" json:"code"`
	ProductName      string      `db:"product_name" json:"product_name"`
	Categories       string      `db:"categories" json:"categories"`
	Quantity         string      `db:"quantity" json:"quantity"`
	Stores           string      `db:"stores" json:"stores"`
	Countries        string      `db:"countries" json:"countries"`
	NutriscoreGrade  string      `db:"nutriscore_grade" json:"nutriscore_grade"`
	LastModifiedDate *time.Time  `db:"last_modified_date" json:"last_modified_date"`
	ExtractedAt      time.Time   `db:"extracted_at" json:"extracted_at"`
	PipelineVersion  string      `db:"pipeline_version" json:"pipeline_version"`
	QualityFlag      QualityFlag `db:"quality_flag" json:"quality_flag"`
}
