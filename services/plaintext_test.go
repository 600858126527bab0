package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skyhub/models"
)

func TestRenderPlaintextWithTables(t *testing.T) {
	msg := &models.Message{
		Authors:     "A. Observer",
		MessageText: "We report new photometry.",
		Data: []byte(`{
			"targets": [{"name": "2023abc", "ra": 26.75, "dec": 76.43}],
			"photometry": [{"target_name": "2023abc", "date_obs": "2460100.5", "brightness": 18.2, "bandpass": "g"}]
		}`),
	}

	out := RenderPlaintext(msg)
	assert.Contains(t, out, "A. Observer")
	assert.Contains(t, out, "We report new photometry.")
	assert.Contains(t, out, "#### Targets:")
	assert.Contains(t, out, "| name | ra | dec |")
	assert.Contains(t, out, "| 2023abc | 26.75 | 76.43 |")
	assert.Contains(t, out, "#### Photometry:")
	assert.Contains(t, out, "| target_name | date_obs | brightness | bandpass |")
}

func TestRenderPlaintextWithoutData(t *testing.T) {
	msg := &models.Message{
		Authors:     "A. Observer",
		MessageText: "Plain chatter.",
	}

	out := RenderPlaintext(msg)
	assert.Contains(t, out, "Plain chatter.")
	assert.NotContains(t, out, "####")
}

func TestRenderPlaintextSkipsUnknownColumns(t *testing.T) {
	msg := &models.Message{
		Data: []byte(`{"targets": [{"name": "x", "ra": 1.0, "dec": 2.0, "secret_key": "hidden"}]}`),
	}

	out := RenderPlaintext(msg)
	assert.NotContains(t, out, "secret_key")
	assert.NotContains(t, out, "hidden")
}
