package tns

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func primedConverter(t *testing.T) *Converter {
	t.Helper()
	cache := NewVocabularyCache("https://registry.invalid", zap.NewNop())
	cache.Prime(map[string]json.RawMessage{
		"groups":      json.RawMessage(`{"4": "ZTF", "18": "ANU"}`),
		"at_types":    json.RawMessage(`{"1": "PSN", "5": "FRB"}`),
		"filters":     json.RawMessage(`["other", "g", "r", "i"]`),
		"instruments": json.RawMessage(`["other", "ZTF-Cam", "Sinistro"]`),
	})
	return NewConverter(cache)
}

func sampleSubmission() *SubmissionMessage {
	return &SubmissionMessage{
		Title:       "Candidate transient",
		Submitter:   "observer@example.org",
		MessageText: "We report the discovery of a new transient.",
		Data: SubmissionData{
			Targets: []TargetEntry{{
				Name: "2023abc",
				RA:   "26.75",
				Dec:  "76.43",
				DiscoveryInfo: DiscoveryInfo{
					ReportingGroup:  "ZTF",
					DiscoverySource: "ZTF",
					TransientType:   "PSN",
				},
			}},
			Photometry: []PhotometryEntry{
				{
					TargetName:     "2023abc",
					DateObs:        "2460100.5",
					Brightness:     18.2,
					BrightnessUnit: "AB mag",
					Bandpass:       "g",
					Instrument:     "ZTF-Cam",
				},
				{
					TargetName:             "2023abc",
					DateObs:                "2460099.5",
					LimitingBrightness:     20.5,
					LimitingBrightnessUnit: "AB mag",
					Bandpass:               "r",
					Instrument:             "ZTF-Cam",
				},
			},
		},
	}
}

func TestConvertDiscoveryBuildsReport(t *testing.T) {
	c := primedConverter(t)

	report, errs := c.ConvertDiscovery(sampleSubmission(), map[string]string{})
	require.Nil(t, errs)
	require.Contains(t, report, "0")

	entry := report["0"].(map[string]any)
	assert.Equal(t, "4", entry["reporting_group_id"])
	assert.Equal(t, "1", entry["at_type"])
	assert.Equal(t, "2023abc", entry["internal_name"])
	assert.Equal(t, "2460100.5", entry["discovery_datetime"])

	nondetection := entry["non_detection"].(map[string]any)
	assert.Equal(t, "2460099.5", nondetection["obsdate"])
	assert.Equal(t, "1", nondetection["flux_units"])
	assert.Equal(t, "2", nondetection["filter_value"])

	group := entry["photometry"].(map[string]any)["photometry_group"].(map[string]any)
	require.Contains(t, group, "0")
	detection := group["0"].(map[string]any)
	assert.Equal(t, 18.2, detection["flux"])
	assert.Equal(t, "1", detection["filter_value"])
	assert.Equal(t, "1", detection["instrument_value"])
}

func TestConvertDiscoveryTargetMismatch(t *testing.T) {
	c := primedConverter(t)
	msg := sampleSubmission()
	msg.Data.Photometry[0].TargetName = "2023xyz"

	report, errs := c.ConvertDiscovery(msg, nil)
	assert.Nil(t, report)
	require.NotNil(t, errs)
	require.Contains(t, errs, "photometry[0].target_name")
	assert.Contains(t, errs["photometry[0].target_name"][0], "must reference a name in your target table")
}

func TestConvertDiscoveryDuplicateTargetNames(t *testing.T) {
	c := primedConverter(t)
	msg := sampleSubmission()
	msg.Data.Targets = append(msg.Data.Targets, msg.Data.Targets[0])

	report, errs := c.ConvertDiscovery(msg, nil)
	assert.Nil(t, report)
	require.NotNil(t, errs)
	assert.Contains(t, errs, "targets[1].name")
}

func TestConvertDiscoveryUnknownVocabulary(t *testing.T) {
	c := primedConverter(t)
	msg := sampleSubmission()
	msg.Data.Targets[0].DiscoveryInfo.ReportingGroup = "Unknown Group"

	report, errs := c.ConvertDiscovery(msg, nil)
	assert.Nil(t, report)
	require.NotNil(t, errs)
	require.Contains(t, errs, "targets[0].discovery_info.reporting_group")
	assert.Contains(t, errs["targets[0].discovery_info.reporting_group"][0], "Unknown Group")
}

func TestConvertDiscoveryNoDetection(t *testing.T) {
	c := primedConverter(t)
	msg := sampleSubmission()
	msg.Data.Photometry = msg.Data.Photometry[1:]

	report, errs := c.ConvertDiscovery(msg, nil)
	assert.Nil(t, report)
	require.NotNil(t, errs)
	assert.Contains(t, errs, "targets[0].name")
}

func TestConvertDiscoveryRelatedFiles(t *testing.T) {
	c := primedConverter(t)
	msg := sampleSubmission()
	msg.Data.FileInfo = []FileEntry{{Name: "finder.png", Description: "finder chart"}}

	report, errs := c.ConvertDiscovery(msg, map[string]string{
		"finder.png": "https://files.example.org/finder.png",
	})
	require.Nil(t, errs)
	entry := report["0"].(map[string]any)
	related := entry["related_files"].(map[string]any)
	require.Contains(t, related, "0")
	file := related["0"].(map[string]any)
	assert.Equal(t, "https://files.example.org/finder.png", file["related_file_name"])
	assert.Equal(t, "finder chart", file["related_file_comments"])
}

func TestVocabularyRoundTrip(t *testing.T) {
	c := primedConverter(t)
	for _, category := range []string{"groups", "at_types", "filters", "instruments"} {
		for _, name := range c.Vocab.Names(category) {
			code, ok := c.Vocab.ToCode(category, name)
			require.True(t, ok, name)
			back, ok := c.Vocab.FromCode(category, code)
			require.True(t, ok, name)
			assert.Equal(t, name, back)
		}
	}
}
