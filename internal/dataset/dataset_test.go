package dataset

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Columns(t *testing.T) {
	tbl := New([]Row{
		{"decision": 1.0, "gender": "f"},
		{"decision": 0.0, "age_group": "18-30"},
	})

	assert.Equal(t, 2, tbl.Len())
	assert.True(t, tbl.HasColumn("gender"))
	assert.True(t, tbl.HasColumn("age_group"))
	assert.False(t, tbl.HasColumn("ethnicity"))
	assert.Equal(t, []string{"age_group", "decision", "gender"}, tbl.Columns())

	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
	assert.False(t, nilTable.HasColumn("decision"))
}

func TestTable_Ints(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{"float", 1.0, 1, false},
		{"int", 0, 0, false},
		{"bool true", true, 1, false},
		{"bool false", false, 0, false},
		{"numeric string", " 1 ", 1, false},
		{"hired", "Hired", 1, false},
		{"rejected", "rejected", 0, false},
		{"json number", json.Number("1"), 1, false},
		{"decimal string", "1.0", 1, false},
		{"fractional", 0.5, 0, true},
		{"huge float", 1e300, 0, true},
		{"huge numeric string", "1e300", 0, true},
		{"beyond exact integers", float64(1<<54), 0, true},
		{"infinite string", "inf", 0, true},
		{"nan string", "NaN", 0, true},
		{"unknown word", "maybe", 0, true},
		{"nil", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := New([]Row{{"decision": tt.value}})
			got, err := tbl.Ints("decision")
			if tt.wantErr {
				require.Error(t, err)
				var ve *ValueError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, "decision", ve.Column)
				assert.Equal(t, 0, ve.Row)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []int{tt.want}, got)
		})
	}
}

func TestTable_IntsMissingCell(t *testing.T) {
	tbl := New([]Row{{"decision": 1.0}, {"gender": "m"}})
	_, err := tbl.Ints("decision")

	var ve *ValueError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, ve.Row)
	assert.Contains(t, err.Error(), "missing value")
}

func TestStringify(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"female", "female"},
		{"", UnknownGroup},
		{"   ", UnknownGroup},
		{nil, UnknownGroup},
		{3.0, "3"},
		{float64(1 << 54), "18014398509481984"},
		{2.5, "2.5"},
		{true, "true"},
		{json.Number("7"), "7"},
		{int64(12), "12"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stringify(tt.value), "value %#v", tt.value)
	}
}

func TestLoadJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		rows    int
		wantErr bool
	}{
		{"array", `[{"decision":1,"gender":"f"},{"decision":0,"gender":"m"}]`, 2, false},
		{"applications object", `{"applications":[{"decision":1}]}`, 1, false},
		{"rows object", `{"rows":[{"decision":1},{"decision":0},{"decision":1}]}`, 3, false},
		{"empty array", `[]`, 0, false},
		{"null", `null`, 0, false},
		{"object without rows", `{"foo":1}`, 0, true},
		{"scalar", `42`, 0, true},
		{"non-object entry", `[1,2]`, 0, true},
		{"malformed", `[{`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := LoadJSON(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rows, tbl.Len())
		})
	}
}

func TestLoadCSV(t *testing.T) {
	input := "application_id, decision ,gender,ground_truth\n" +
		"1,1,female,1\n" +
		"2,0,,0\n" +
		"3,yes,male,1\n"

	tbl, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())

	assert.Equal(t, "1", tbl.Rows[0]["decision"])
	assert.Equal(t, "female", tbl.Rows[0]["gender"])
	_, hasGender := tbl.Rows[1]["gender"]
	assert.False(t, hasGender)

	decisions, err := tbl.Ints("decision")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, decisions)
	assert.Equal(t, []string{"female", UnknownGroup, "male"}, tbl.Strings("gender"))

	empty, err := LoadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestLoadCSV_KeepsCategoricalSpelling(t *testing.T) {
	input := "decision,region\n1,01\n0,1\n1,1e3\n0,inf\n"

	tbl, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "1", "1e3", "inf"}, tbl.Strings("region"))

	decisions, err := tbl.Ints("decision")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1, 0}, decisions)
}

func TestLoadCSV_OutOfRangeDecision(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader("decision,gender\n1e300,f\n"))
	require.NoError(t, err)

	_, err = tbl.Ints("decision")
	var ve *ValueError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "decision", ve.Column)
	assert.Contains(t, err.Error(), "out of range")
}

func TestLoadYAML(t *testing.T) {
	input := `
applications:
  - decision: 1
    gender: female
  - decision: 0
    gender: male
`
	tbl, err := LoadYAML(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	decisions, err := tbl.Ints("decision")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, decisions)

	empty, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "apps.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"decision":1}]`), 0o600))
	tbl, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	csvPath := filepath.Join(dir, "apps.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte("decision\n1\n0\n"), 0o600))
	tbl, err = LoadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	txtPath := filepath.Join(dir, "apps.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o600))
	_, err = LoadFile(txtPath)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
