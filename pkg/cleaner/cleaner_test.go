package cleaner

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/David-Botos/catalog-ingress/pkg/model"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

func newTestTransformer(t *testing.T) *Transformer {
	opts := DefaultOptions()
	opts.Clock = func() time.Time { return fixedNow }
	return NewTransformer(zaptest.NewLogger(t), opts)
}

func TestTransformEmptyInput(t *testing.T) {
	records, ops, err := newTestTransformer(t).Transform(nil)
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Empty(t, records)
	require.Empty(t, ops)
}

func TestTransformRejectsBatchWithoutCode(t *testing.T) {
	_, _, err := newTestTransformer(t).Transform([]model.RawRecord{
		{model.FieldProductName: "Water"},
		{model.FieldProductName: "Juice"},
	})
	require.ErrorIs(t, err, model.ErrMalformedInput)
	require.False(t, model.IsRetryable(err))
}

func TestTransformDeduplicatesFirstWins(t *testing.T) {
	records, ops, err := newTestTransformer(t).Transform([]model.RawRecord{
		{model.FieldCode: "A1", model.FieldProductName: "first", model.FieldNutriscoreGrade: "a"},
		{model.FieldCode: "B2", model.FieldProductName: "other", model.FieldNutriscoreGrade: "b"},
		{model.FieldCode: "A1", model.FieldProductName: "second", model.FieldNutriscoreGrade: "c"},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "A1", records[0].Code)
	require.Equal(t, "First", records[0].ProductName)
	require.Equal(t, "B2", records[1].Code)

	var dupes int
	for _, op := range ops {
		if op.CleaningOperation == model.OpDropRecord && op.CleaningReason == "duplicate_code" {
			dupes++
			require.Equal(t, "A1", op.RowIdentifier)
		}
	}
	require.Equal(t, 1, dupes)
}

func TestTransformAppliesDefaults(t *testing.T) {
	records, ops, err := newTestTransformer(t).Transform([]model.RawRecord{
		{model.FieldCode: "123", model.FieldStores: nil},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	require.Equal(t, DefaultProductName, r.ProductName)
	require.Equal(t, DefaultCategories, r.Categories)
	require.Equal(t, DefaultQuantity, r.Quantity)
	require.Equal(t, DefaultStores, r.Stores)
	require.Equal(t, DefaultCountries, r.Countries)
	require.Equal(t, DefaultNutriscore, r.NutriscoreGrade)
	require.Nil(t, r.LastModifiedDate)
	require.Equal(t, model.PipelineVersion, r.PipelineVersion)
	require.Equal(t, fixedNow.UTC(), r.ExtractedAt)

	counts := model.CountByColumn(ops)
	require.Equal(t, 1, counts[model.FieldStores])
	for _, op := range ops {
		if op.CleaningOperation == model.OpDefaultSubstitution {
			require.Equal(t, "null_value", op.CleaningReason)
			require.Nil(t, op.OriginalValue)
		}
	}
}

func TestTransformKeepsBlankStringsByDefault(t *testing.T) {
	records, ops, err := newTestTransformer(t).Transform([]model.RawRecord{
		{model.FieldCode: "123", model.FieldProductName: "", model.FieldStores: "", model.FieldNutriscoreGrade: "b"},
	})
	require.NoError(t, err)
	require.Equal(t, "", records[0].ProductName)
	require.Equal(t, "", records[0].Stores)
	require.Equal(t, model.QualityOK, records[0].QualityFlag)

	counts := model.CountByColumn(ops)
	require.Zero(t, counts[model.FieldProductName])
	require.Zero(t, counts[model.FieldStores])
}

func TestTransformDefaultsBlankStringsWhenConfigured(t *testing.T) {
	opts := DefaultOptions()
	opts.EmptyStringAsNull = true
	tr := NewTransformer(zaptest.NewLogger(t), opts)

	records, ops, err := tr.Transform([]model.RawRecord{
		{model.FieldCode: "123", model.FieldProductName: " ", model.FieldCountries: "   ", model.FieldNutriscoreGrade: "b"},
	})
	require.NoError(t, err)
	require.Equal(t, DefaultProductName, records[0].ProductName)
	require.Equal(t, DefaultCountries, records[0].Countries)
	require.Equal(t, model.QualityMissingName, records[0].QualityFlag)

	for _, op := range ops {
		if op.ColumnName == model.FieldCountries {
			require.Equal(t, "empty_value", op.CleaningReason)
		}
	}
}

func TestTransformQualityFlags(t *testing.T) {
	records, _, err := newTestTransformer(t).Transform([]model.RawRecord{
		{model.FieldCode: "ok", model.FieldProductName: "Water", model.FieldNutriscoreGrade: "a"},
		{model.FieldCode: "noname", model.FieldNutriscoreGrade: "b"},
		{model.FieldCode: "nograde", model.FieldProductName: "Juice"},
		{model.FieldCode: "neither"},
	})
	require.NoError(t, err)
	require.Len(t, records, 4)

	require.Equal(t, model.QualityOK, records[0].QualityFlag)
	require.Equal(t, model.QualityMissingName, records[1].QualityFlag)
	require.Equal(t, model.QualityMissingNutriscore, records[2].QualityFlag)
	// The nutriscore check runs last and wins
	require.Equal(t, model.QualityMissingNutriscore, records[3].QualityFlag)
}

func TestTransformNormalizesText(t *testing.T) {
	records, ops, err := newTestTransformer(t).Transform([]model.RawRecord{
		{model.FieldCode: "1", model.FieldProductName: "  nutella BISCUITS ", model.FieldNutriscoreGrade: " E "},
		{model.FieldCode: "2", model.FieldProductName: "coca cola", model.FieldNutriscoreGrade: "a"},
		{model.FieldCode: "3", model.FieldProductName: "L'Oreal", model.FieldNutriscoreGrade: "b"},
	})
	require.NoError(t, err)

	require.Equal(t, "Nutella Biscuits", records[0].ProductName)
	require.Equal(t, "e", records[0].NutriscoreGrade)
	require.Equal(t, "Coca Cola", records[1].ProductName)
	require.Equal(t, "L'Oreal", records[2].ProductName)

	var normalizations int
	for _, op := range ops {
		if op.CleaningOperation == model.OpNormalization {
			normalizations++
		}
	}
	require.Equal(t, 3, normalizations)
}

func TestTitleWordsStartsWordsAfterNonLetters(t *testing.T) {
	caser := cases.Title(language.Und)

	for in, want := range map[string]string{
		"l'oreal":        "L'Oreal",
		"coca-cola zero": "Coca-Cola Zero",
		"7up LEMON":      "7Up Lemon",
		"évian":          "Évian",
		"":               "",
	} {
		require.Equal(t, want, titleWords(caser, in), in)
	}
}

func TestTransformParsesLastModified(t *testing.T) {
	records, ops, err := newTestTransformer(t).Transform([]model.RawRecord{
		{model.FieldCode: "num", model.FieldLastModified: json.Number("1700000000")},
		{model.FieldCode: "str", model.FieldLastModified: "1700000000"},
		{model.FieldCode: "float", model.FieldLastModified: float64(1700000000)},
		{model.FieldCode: "bad", model.FieldLastModified: "yesterday"},
		{model.FieldCode: "null", model.FieldLastModified: nil},
	})
	require.NoError(t, err)
	require.Len(t, records, 5)

	want := time.Unix(1700000000, 0).UTC()
	for _, r := range records[:3] {
		require.NotNil(t, r.LastModifiedDate, r.Code)
		require.Equal(t, want, *r.LastModifiedDate)
	}
	require.Nil(t, records[3].LastModifiedDate)
	require.Nil(t, records[4].LastModifiedDate)

	var parseFailures int
	for _, op := range ops {
		if op.CleaningOperation == model.OpTimestampParse {
			parseFailures++
			require.Equal(t, "bad", op.RowIdentifier)
		}
	}
	require.Equal(t, 1, parseFailures)
}

func TestTransformRejectsOutOfRangeEpochs(t *testing.T) {
	records, ops, err := newTestTransformer(t).Transform([]model.RawRecord{
		{model.FieldCode: "A1", model.FieldLastModified: json.Number("1e15")},
		{model.FieldCode: "A2", model.FieldLastModified: json.Number("9223372036854775807")},
		{model.FieldCode: "A3", model.FieldLastModified: json.Number("-9223372037")},
		{model.FieldCode: "A4", model.FieldLastModified: json.Number("9223372036")},
	})
	require.NoError(t, err)
	require.Len(t, records, 4)

	for _, r := range records[:3] {
		require.Nil(t, r.LastModifiedDate, r.Code)
	}
	require.NotNil(t, records[3].LastModifiedDate)
	require.Equal(t, 2262, records[3].LastModifiedDate.Year())

	rejected := map[string]string{}
	for _, op := range ops {
		if op.CleaningOperation == model.OpTimestampParse {
			rejected[op.RowIdentifier] = op.CleaningReason
		}
	}
	require.Equal(t, map[string]string{
		"A1": reasonOutOfRange,
		"A2": reasonOutOfRange,
		"A3": reasonOutOfRange,
	}, rejected)
}

func TestTransformDropsRecordsWithoutCode(t *testing.T) {
	records, ops, err := newTestTransformer(t).Transform([]model.RawRecord{
		{model.FieldCode: nil, model.FieldProductName: "Ghost"},
		{model.FieldProductName: "No code key"},
		{model.FieldCode: "  "},
		{model.FieldCode: json.Number("42"), model.FieldProductName: "Numeric code"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "42", records[0].Code)

	var drops int
	for _, op := range ops {
		if op.CleaningReason == "missing_code" {
			drops++
		}
	}
	require.Equal(t, 3, drops)
}

func TestTransformStampsOneInstantPerBatch(t *testing.T) {
	calls := 0
	opts := DefaultOptions()
	opts.Clock = func() time.Time {
		calls++
		return fixedNow.Add(time.Duration(calls) * time.Second)
	}
	tr := NewTransformer(zaptest.NewLogger(t), opts)

	records, _, err := tr.Transform([]model.RawRecord{
		{model.FieldCode: "1"},
		{model.FieldCode: "2"},
		{model.FieldCode: "3"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	for _, r := range records {
		require.Equal(t, records[0].ExtractedAt, r.ExtractedAt)
	}
}
