package declaration

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormSchema_Lookup(t *testing.T) {
	t.Run("finds a declared box", func(t *testing.T) {
		def, ok := Form303Schema.Lookup("accrued_vat_base_3")

		require.True(t, ok)
		assert.Equal(t, FieldAmount, def.Kind)
		assert.Equal(t, RecordDeclaration, def.Record)
	})

	t.Run("annual boxes are flagged", func(t *testing.T) {
		def, ok := Form303Schema.Lookup("special_info_rg_operations")

		require.True(t, ok)
		assert.True(t, def.Annual)
		assert.Equal(t, RecordAnnualResume, def.Record)
	})

	t.Run("rejects unknown boxes", func(t *testing.T) {
		_, ok := Form303Schema.Lookup("nonexistent_box")
		assert.False(t, ok)
	})
}

func TestFormSchema_Migrate(t *testing.T) {
	target := NewFormSchema("303-test", []FieldDef{
		amount("accrued_vat_base_1", RecordDeclaration),
	})

	fs := NewFieldSet()
	require.NoError(t, fs.SetAmount(Form303Schema, "accrued_vat_base_1", decimal.NewFromInt(100)))
	require.NoError(t, fs.SetAmount(Form303Schema, "accrued_vat_base_2", decimal.NewFromInt(200)))

	migrated := target.Migrate(fs)

	assert.True(t, migrated.Amount("accrued_vat_base_1").Equal(decimal.NewFromInt(100)))
	assert.False(t, migrated.Has("accrued_vat_base_2"))
}

func TestFieldSet_Amounts(t *testing.T) {
	t.Run("unset box reads as zero", func(t *testing.T) {
		fs := NewFieldSet()
		assert.True(t, fs.Amount("accrued_vat_base_1").IsZero())
	})

	t.Run("set and accumulate", func(t *testing.T) {
		fs := NewFieldSet()

		require.NoError(t, fs.SetAmount(Form303Schema, "accrued_vat_tax_3", decimal.RequireFromString("50.40")))
		require.NoError(t, fs.AddAmount(Form303Schema, "accrued_vat_tax_3", decimal.RequireFromString("10.10")))

		assert.True(t, fs.Amount("accrued_vat_tax_3").Equal(decimal.RequireFromString("60.50")))
	})

	t.Run("rejects unknown box", func(t *testing.T) {
		fs := NewFieldSet()
		err := fs.SetAmount(Form303Schema, "nonexistent_box", decimal.Zero)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not part of form")
	})

	t.Run("rejects amount written to a text box", func(t *testing.T) {
		fs := NewFieldSet()
		err := fs.SetAmount(Form303Schema, "cnae1", decimal.Zero)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "does not hold a numeric value")
	})
}

func TestFieldSet_Chars(t *testing.T) {
	fs := NewFieldSet()

	require.NoError(t, fs.SetChar(Form303Schema, "cnae1", "6201"))
	assert.Equal(t, "6201", fs.Char("cnae1"))

	err := fs.SetChar(Form303Schema, "accrued_vat_base_1", "abc")
	assert.Error(t, err)
}

func TestFieldSet_SQLRoundTrip(t *testing.T) {
	fs := NewFieldSet()
	require.NoError(t, fs.SetAmount(Form303Schema, "accrued_vat_base_3", decimal.RequireFromString("240.00")))
	require.NoError(t, fs.SetChar(Form303Schema, "cnae1", "6201"))

	value, err := fs.Value()
	require.NoError(t, err)

	var restored FieldSet
	require.NoError(t, restored.Scan(value))

	assert.True(t, restored.Amount("accrued_vat_base_3").Equal(decimal.RequireFromString("240.00")))
	assert.Equal(t, "6201", restored.Char("cnae1"))
}

func TestFieldSet_ScanNil(t *testing.T) {
	var fs FieldSet
	require.NoError(t, fs.Scan(nil))
	assert.False(t, fs.Has("accrued_vat_base_1"))
}
