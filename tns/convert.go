package tns

import (
	"fmt"
	"time"
)

// SubmissionMessage is a canonical message in the shape the submission
// API accepts, with the structured science data broken out.
type SubmissionMessage struct {
	Title       string         `json:"title"`
	Topic       string         `json:"topic"`
	Submitter   string         `json:"submitter"`
	Authors     string         `json:"authors"`
	MessageText string         `json:"message_text"`
	Data        SubmissionData `json:"data"`
}

// SubmissionData carries the per-entity tables of one submission.
// Photometry, spectroscopy and astrometry rows point into the target
// table by name.
type SubmissionData struct {
	EventID      string              `json:"event_id,omitempty"`
	Targets      []TargetEntry       `json:"targets"`
	Photometry   []PhotometryEntry   `json:"photometry,omitempty"`
	Spectroscopy []SpectroscopyEntry `json:"spectroscopy,omitempty"`
	Astrometry   []AstrometryEntry   `json:"astrometry,omitempty"`
	FileInfo     []FileEntry         `json:"file_info,omitempty"`
}

type TargetEntry struct {
	Name         string  `json:"name"`
	RA           string  `json:"ra"`
	RAError      float64 `json:"ra_error,omitempty"`
	RAErrorUnits string  `json:"ra_error_units,omitempty"`

	Dec           string  `json:"dec"`
	DecError      float64 `json:"dec_error,omitempty"`
	DecErrorUnits string  `json:"dec_error_units,omitempty"`

	NewDiscovery bool    `json:"new_discovery,omitempty"`
	Redshift     float64 `json:"redshift,omitempty"`
	HostName     string  `json:"host_name,omitempty"`
	HostRedshift float64 `json:"host_redshift,omitempty"`

	DiscoveryInfo     DiscoveryInfo `json:"discovery_info"`
	GroupAssociations []string      `json:"group_associations,omitempty"`
}

type DiscoveryInfo struct {
	ReportingGroup         string `json:"reporting_group"`
	DiscoverySource        string `json:"discovery_source"`
	TransientType          string `json:"transient_type"`
	ProprietaryPeriod      int    `json:"proprietary_period,omitempty"`
	ProprietaryPeriodUnits string `json:"proprietary_period_units,omitempty"`
}

type PhotometryEntry struct {
	TargetName string `json:"target_name"`
	DateObs    string `json:"date_obs"`

	Brightness              float64 `json:"brightness,omitempty"`
	BrightnessError         float64 `json:"brightness_error,omitempty"`
	BrightnessUnit          string  `json:"brightness_unit,omitempty"`
	LimitingBrightness      float64 `json:"limiting_brightness,omitempty"`
	LimitingBrightnessUnit  string  `json:"limiting_brightness_unit,omitempty"`
	LimitingBrightnessError float64 `json:"limiting_brightness_error,omitempty"`

	Bandpass     string  `json:"bandpass"`
	Instrument   string  `json:"instrument,omitempty"`
	Telescope    string  `json:"telescope,omitempty"`
	ExposureTime float64 `json:"exposure_time,omitempty"`
	Observer     string  `json:"observer,omitempty"`
	Comments     string  `json:"comments,omitempty"`
}

type SpectroscopyEntry struct {
	TargetName string `json:"target_name"`
	DateObs    string `json:"date_obs"`
	Instrument string `json:"instrument,omitempty"`
	Telescope  string `json:"telescope,omitempty"`
	Observer   string `json:"observer,omitempty"`
	Reducer    string `json:"reducer,omitempty"`
	Classifier string `json:"classifier,omitempty"`
	SpecType   string `json:"spec_type,omitempty"`
	Comments   string `json:"comments,omitempty"`
}

type AstrometryEntry struct {
	TargetName string  `json:"target_name"`
	DateObs    string  `json:"date_obs"`
	RA         string  `json:"ra"`
	RAError    float64 `json:"ra_error,omitempty"`
	Dec        string  `json:"dec"`
	DecError   float64 `json:"dec_error,omitempty"`
	Telescope  string  `json:"telescope,omitempty"`
	Instrument string  `json:"instrument,omitempty"`
}

type FileEntry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// FieldErrors collects validation problems keyed by a dotted path into
// the submission, e.g. "photometry[1].target_name". All problems are
// gathered before the conversion gives up so one response fixes all of
// them.
type FieldErrors map[string][]string

func (e FieldErrors) Add(path, message string) {
	e[path] = append(e[path], message)
}

func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// Error summarizes the error map for logging; callers that need the
// detail use the map itself.
func (e FieldErrors) Error() string {
	return fmt.Sprintf("submission failed validation with %d field errors", len(e))
}

// Converter maps canonical submission messages into the registry's AT
// report schema. It only consults the cached vocabulary, never the
// network.
type Converter struct {
	Vocab *VocabularyCache
}

func NewConverter(vocab *VocabularyCache) *Converter {
	return &Converter{Vocab: vocab}
}

// ConvertDiscovery builds the registry's nested AT report from one
// submission message plus the public URLs of files already uploaded
// for it. It returns either a complete report or the full error set,
// never a partial report.
func (c *Converter) ConvertDiscovery(msg *SubmissionMessage, fileURLs map[string]string) (map[string]any, FieldErrors) {
	errs := make(FieldErrors)
	data := msg.Data

	names := make(map[string]int, len(data.Targets))
	for i, target := range data.Targets {
		if _, dup := names[target.Name]; dup {
			errs.Add(fmt.Sprintf("targets[%d].name", i),
				fmt.Sprintf("target name %q must be unique within one submission", target.Name))
			continue
		}
		names[target.Name] = i
	}
	for i, p := range data.Photometry {
		if _, ok := names[p.TargetName]; !ok {
			errs.Add(fmt.Sprintf("photometry[%d].target_name", i),
				"must reference a name in your target table")
		}
	}
	for i, s := range data.Spectroscopy {
		if _, ok := names[s.TargetName]; !ok {
			errs.Add(fmt.Sprintf("spectroscopy[%d].target_name", i),
				"must reference a name in your target table")
		}
	}
	for i, a := range data.Astrometry {
		if _, ok := names[a.TargetName]; !ok {
			errs.Add(fmt.Sprintf("astrometry[%d].target_name", i),
				"must reference a name in your target table")
		}
	}

	atReport := make(map[string]any, len(data.Targets))
	for i, target := range data.Targets {
		report := c.convertTarget(msg, i, target, errs)
		if report != nil {
			report["related_files"] = relatedFiles(data.FileInfo, fileURLs)
			atReport[fmt.Sprintf("%d", len(atReport))] = report
		}
	}

	if !errs.Empty() {
		return nil, errs
	}
	return atReport, nil
}

func (c *Converter) convertTarget(msg *SubmissionMessage, index int, target TargetEntry, errs FieldErrors) map[string]any {
	path := func(field string) string { return fmt.Sprintf("targets[%d].%s", index, field) }

	ra, err := ParseRA(target.RA)
	if err != nil {
		errs.Add(path("ra"), err.Error())
	}
	dec, err := ParseDec(target.Dec)
	if err != nil {
		errs.Add(path("dec"), err.Error())
	}

	photometry := c.targetPhotometry(msg.Data.Photometry, target.Name, errs)
	discovery := earliestDetection(photometry)
	if discovery == nil {
		errs.Add(path("name"),
			fmt.Sprintf("target %q has no photometry entry with a positive brightness", target.Name))
		return nil
	}

	report := map[string]any{
		"ra": map[string]any{
			"value": ra,
			"error": target.RAError,
			"units": target.RAErrorUnits,
		},
		"dec": map[string]any{
			"value": dec,
			"error": target.DecError,
			"units": target.DecErrorUnits,
		},
		"reporting_group_id":       c.lookup("groups", target.DiscoveryInfo.ReportingGroup, path("discovery_info.reporting_group"), errs),
		"discovery_data_source_id": c.lookup("groups", target.DiscoveryInfo.DiscoverySource, path("discovery_info.discovery_source"), errs),
		"at_type":                  c.lookup("at_types", target.DiscoveryInfo.TransientType, path("discovery_info.transient_type"), errs),
		"reporter":                 msg.Submitter,
		"discovery_datetime":       discovery.entry.DateObs,
		"internal_name":            target.Name,
		"host_name":                target.HostName,
		"host_redshift":            target.HostRedshift,
		"transient_redshift":       target.Redshift,
		"remarks":                  msg.MessageText,
		"proprietary_period": map[string]any{
			"proprietary_period_value": target.DiscoveryInfo.ProprietaryPeriod,
			"proprietary_period_units": target.DiscoveryInfo.ProprietaryPeriodUnits,
		},
	}

	groups := make([]string, 0, len(target.GroupAssociations))
	for _, group := range target.GroupAssociations {
		groups = append(groups, c.lookup("groups", group, path("group_associations"), errs))
	}
	report["proprietary_period_groups"] = groups

	if nondetection := earliestNondetection(photometry); nondetection != nil {
		p := nondetection.entry
		report["non_detection"] = map[string]any{
			"obsdate":          p.DateObs,
			"limiting_flux":    p.LimitingBrightness,
			"flux_units":       c.fluxUnits(p.LimitingBrightnessUnit, nondetection.path, errs),
			"filter_value":     c.lookup("filters", p.Bandpass, nondetection.path+".bandpass", errs),
			"instrument_value": c.lookup("instruments", p.Instrument, nondetection.path+".instrument", errs),
			"exptime":          p.ExposureTime,
			"observer":         p.Observer,
			"comments":         p.Comments,
			"archiveid":        "",
			"archival_remarks": "",
		}
	}

	group := make(map[string]any)
	for _, p := range photometry {
		if p.entry.Brightness <= 0 {
			continue
		}
		group[fmt.Sprintf("%d", len(group))] = map[string]any{
			"obsdate":          p.entry.DateObs,
			"flux":             p.entry.Brightness,
			"flux_error":       p.entry.BrightnessError,
			"limiting_flux":    p.entry.LimitingBrightness,
			"flux_units":       c.fluxUnits(p.entry.BrightnessUnit, p.path, errs),
			"filter_value":     c.lookup("filters", p.entry.Bandpass, p.path+".bandpass", errs),
			"instrument_value": c.lookup("instruments", p.entry.Instrument, p.path+".instrument", errs),
			"exptime":          p.entry.ExposureTime,
			"observer":         p.entry.Observer,
			"comments":         p.entry.Comments,
		}
	}
	report["photometry"] = map[string]any{"photometry_group": group}
	return report
}

// datedPhotometry is one photometry row with its parsed timestamp and
// its path in the submission for error reporting.
type datedPhotometry struct {
	entry PhotometryEntry
	date  time.Time
	path  string
}

// targetPhotometry gathers and date-parses the photometry rows
// belonging to one target. Rows whose date does not parse are reported
// and dropped.
func (c *Converter) targetPhotometry(all []PhotometryEntry, targetName string, errs FieldErrors) []datedPhotometry {
	var out []datedPhotometry
	for i, p := range all {
		if p.TargetName != targetName {
			continue
		}
		path := fmt.Sprintf("photometry[%d]", i)
		date, err := ParseObsDate(p.DateObs)
		if err != nil {
			errs.Add(path+".date_obs", err.Error())
			continue
		}
		out = append(out, datedPhotometry{entry: p, date: date, path: path})
	}
	return out
}

func earliestDetection(photometry []datedPhotometry) *datedPhotometry {
	var earliest *datedPhotometry
	for i := range photometry {
		p := &photometry[i]
		if p.entry.Brightness <= 0 {
			continue
		}
		if earliest == nil || p.date.Before(earliest.date) {
			earliest = p
		}
	}
	return earliest
}

func earliestNondetection(photometry []datedPhotometry) *datedPhotometry {
	var earliest *datedPhotometry
	for i := range photometry {
		p := &photometry[i]
		if p.entry.LimitingBrightness <= 0 {
			continue
		}
		if earliest == nil || p.date.Before(earliest.date) {
			earliest = p
		}
	}
	return earliest
}

// lookup resolves a vocabulary name to its registry code, recording a
// field error for names the registry does not know.
func (c *Converter) lookup(category, name, path string, errs FieldErrors) string {
	if name == "" {
		return ""
	}
	code, ok := c.Vocab.ToCode(category, name)
	if !ok {
		errs.Add(path, fmt.Sprintf("%q is not a recognized %s value", name, category))
		return ""
	}
	return code
}

// fluxUnits maps the canonical brightness units onto the registry's
// flux unit codes.
func (c *Converter) fluxUnits(units, path string, errs FieldErrors) string {
	if units == "" {
		units = "AB mag"
	}
	switch units {
	case "AB mag":
		return "1"
	case "Vega mag":
		return "3"
	case "erg / s / cm² / Å":
		return "6"
	case "mJy":
		return "9"
	}
	errs.Add(path, fmt.Sprintf("%q is not a supported brightness unit", units))
	return ""
}

// relatedFiles pairs the submission's file descriptions with the
// public URLs of the uploads.
func relatedFiles(files []FileEntry, fileURLs map[string]string) map[string]any {
	related := make(map[string]any)
	for _, file := range files {
		url, ok := fileURLs[file.Name]
		if !ok {
			continue
		}
		related[fmt.Sprintf("%d", len(related))] = map[string]any{
			"related_file_name":     url,
			"related_file_comments": file.Description,
		}
	}
	return related
}
