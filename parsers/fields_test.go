package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyhub/models"
)

func TestExtractFields(t *testing.T) {
	raw := `TITLE:            GCN/LVC NOTICE
NOTICE_TYPE:      LVC Preliminary
SKYMAP_FITS_URL:  https://example.org/files/bayestar.fits.gz,0
COMMENTS:         First comment.
COMMENTS:         Second comment.`

	fields, ok := ExtractFields(raw)
	require.True(t, ok)
	assert.Equal(t, "GCN/LVC NOTICE", fields["title"])
	assert.Equal(t, "LVC Preliminary", fields["notice_type"])
	assert.Equal(t, "https://example.org/files/bayestar.fits.gz,0", fields["skymap_fits_url"])
	assert.Equal(t, "First comment.\nSecond comment.", fields["comments"])
}

func TestExtractFieldsContinuationLines(t *testing.T) {
	raw := `TITLE:            GCN/LVC COUNTERPART NOTICE
CNTRPART_RA:      299.8851d {+19h 59m 32.4s} (J2000),
                  300.0523d {+20h 00m 12.5s} (current),
                  299.4524d {+19h 57m 48.5s} (1950)`

	fields, ok := ExtractFields(raw)
	require.True(t, ok)
	assert.Equal(t,
		"299.8851d {+19h 59m 32.4s} (J2000), 300.0523d {+20h 00m 12.5s} (current), 299.4524d {+19h 57m 48.5s} (1950)",
		fields["cntrpart_ra"])
}

func TestExtractFieldsEmptyInput(t *testing.T) {
	_, ok := ExtractFields("")
	assert.False(t, ok)
}

func TestConvertNoticeType(t *testing.T) {
	cases := map[string]models.SequenceType{
		"LVC Early Warning":  models.SequenceTypeEarlyWarning,
		"LVC Initial":        models.SequenceTypeInitial,
		"LVC Preliminary":    models.SequenceTypePreliminary,
		"LVC Update":         models.SequenceTypeUpdate,
		"LVC Retraction":     models.SequenceTypeRetraction,
		"Other":              "",
		"initial UPDATE mix": models.SequenceTypeInitial,
	}
	for input, want := range cases {
		assert.Equal(t, want, ConvertNoticeType(input), input)
	}
}

func TestMOCURLFromSkymapURL(t *testing.T) {
	assert.Equal(t,
		"https://gracedb.ligo.org/api/superevents/S200316bj/files/bayestar.multiorder.fits,0",
		MOCURLFromSkymapURL("https://gracedb.ligo.org/api/superevents/S200316bj/files/bayestar.fits.gz,0"))
	assert.Equal(t,
		"https://example.org/files/LALInference.multiorder.fits,2",
		MOCURLFromSkymapURL("https://example.org/files/LALInference.fits.gz,2"))
	// Truncated mock-alert extension gets repaired.
	assert.Equal(t,
		"https://example.org/files/skymap.fits",
		MOCURLFromSkymapURL("https://example.org/files/skymap.fit"))
	// Unknown filenames pass through.
	assert.Equal(t,
		"https://example.org/files/custom.fits",
		MOCURLFromSkymapURL("https://example.org/files/custom.fits"))
}
