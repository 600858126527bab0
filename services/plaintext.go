package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"skyhub/models"
)

// Column orders for the rendered markdown tables. Keys outside these
// lists are left out of the table so it stays readable.
var (
	targetOrder = []string{
		"name", "ra", "dec", "pm_ra", "pm_dec", "epoch",
		"new_discovery", "redshift", "host_name", "host_redshift",
	}
	photometryOrder = []string{
		"target_name", "date_obs", "brightness", "brightness_error",
		"limiting_brightness", "limiting_brightness_error",
		"bandpass", "telescope", "instrument",
	}
	astrometryOrder = []string{
		"target_name", "date_obs", "ra", "ra_error", "dec", "dec_error",
		"telescope", "instrument",
	}
	referencesOrder = []string{"source", "citation", "url"}
)

// RenderPlaintext flattens a structured message into a human-readable
// text with markdown tables for the targets, photometry, astrometry
// and references sections.
func RenderPlaintext(msg *models.Message) string {
	var b strings.Builder
	b.WriteString(msg.Authors)
	b.WriteString("\n\n")
	b.WriteString(msg.MessageText)
	b.WriteString("\n\n")

	var data map[string]any
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return b.String()
		}
	}
	sections := []struct {
		key   string
		name  string
		order []string
	}{
		{"targets", "Targets", targetOrder},
		{"photometry", "Photometry", photometryOrder},
		{"astrometry", "Astrometry", astrometryOrder},
		{"references", "References", referencesOrder},
	}
	for _, section := range sections {
		rows := objectRows(data[section.key])
		if len(rows) == 0 {
			continue
		}
		b.WriteString(markdownTable(section.name, rows, section.order))
		b.WriteString("\n")
	}
	return b.String()
}

func objectRows(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var rows []map[string]any
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func markdownTable(name string, rows []map[string]any, order []string) string {
	position := make(map[string]int, len(order))
	for i, key := range order {
		position[key] = i
	}
	seen := make(map[string]bool)
	var keys []string
	for _, row := range rows {
		for key := range row {
			if _, known := position[key]; known && !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return position[keys[i]] < position[keys[j]] })

	var b strings.Builder
	fmt.Fprintf(&b, "#### %s:\n", name)
	b.WriteString("| " + strings.Join(keys, " | ") + " |\n")
	dashes := make([]string, len(keys))
	for i := range dashes {
		dashes[i] = "---"
	}
	b.WriteString("| " + strings.Join(dashes, " | ") + " |\n")
	for _, row := range rows {
		b.WriteString("|")
		for _, key := range keys {
			value := ""
			if v, ok := row[key]; ok && v != nil {
				value = fmt.Sprintf("%v", v)
			}
			fmt.Fprintf(&b, " %s |", value)
		}
		b.WriteString("\n")
	}
	return b.String()
}
