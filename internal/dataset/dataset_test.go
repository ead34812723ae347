package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const obesity = "Percent of adults aged 18 years and older who have obesity"

const sampleCSV = `YearStart,LocationDesc,Question,Data_Value,StratificationCategory1,Stratification1
2011,Ohio,Percent of adults aged 18 years and older who have obesity,30.5,Age (years),18 - 24
2012,Ohio,Percent of adults aged 18 years and older who have obesity,,Sex,Male
2011,Texas,"Percent of adults aged 18 years and older who have obesity",28,Income,"$15,000 - $24,999"
2013,Texas,Percent of adults who engage in muscle-strengthening activities on 2 or more days a week,22.1,Total,Total
`

func TestReadParsesRows(t *testing.T) {
	d, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, d.Len())
	assert.Equal(t, 2, d.Questions())

	rows := d.Rows(obesity)
	require.Len(t, rows, 3)

	assert.Equal(t, "Ohio", rows[0].State)
	assert.True(t, rows[0].HasValue)
	assert.InDelta(t, 30.5, rows[0].Value, 1e-9)
	assert.Equal(t, "Age (years)", rows[0].Category)
	assert.Equal(t, "18 - 24", rows[0].Segment)

	assert.False(t, rows[1].HasValue, "blank Data_Value must not count as a value")
	assert.Equal(t, "$15,000 - $24,999", rows[2].Segment)
}

func TestReadStripsBOM(t *testing.T) {
	d, err := Read(strings.NewReader("\ufeff"+sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 4, d.Len())
}

func TestReadMissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("LocationDesc,Question\nOhio,q\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadEmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, d.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestRowsUnknownQuestion(t *testing.T) {
	d := New(nil)
	assert.Empty(t, d.Rows("nope"))
}

func TestPolicyFor(t *testing.T) {
	p, ok := PolicyFor(obesity)
	assert.True(t, ok)
	assert.Equal(t, BestIsMin, p)

	p, ok = PolicyFor(QuestionsBestIsMax[3])
	assert.True(t, ok)
	assert.Equal(t, BestIsMax, p)

	_, ok = PolicyFor("How tall are adults?")
	assert.False(t, ok)
}
