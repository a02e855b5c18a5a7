package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Period", "MONDAY", "TUESDAY"},
		Rows: []map[string]string{
			{"Period": "1", "MONDAY": "math*", "TUESDAY": ""},
			{"Period": "2", "MONDAY": "math*", "TUESDAY": "art"},
		},
		Notes: []string{"* double period"},
	}
}

func TestCSVExporterRendersNotes(t *testing.T) {
	payload, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	expected := "Period,MONDAY,TUESDAY\n1,math*,\n2,math*,art\n,,\n* double period,,\n"
	assert.Equal(t, expected, string(payload))
}

func TestCSVExporterCustomDelimiter(t *testing.T) {
	payload, err := (&CSVExporter{Comma: ';'}).Render(Dataset{Headers: []string{"a", "b"}, Rows: []map[string]string{{"a": "1", "b": "2"}}})
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2\n", string(payload))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "title")
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	payload, err := NewPDFExporter().Render(sampleDataset(), "Class 10A")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}
