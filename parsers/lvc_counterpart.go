package parsers

import (
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"skyhub/linking"
	"skyhub/models"
)

// LVCCounterpartParser handles GCN/LVC counterpart notices, which
// report an electromagnetic candidate source for a gravitational-wave
// event. The notice carries the source position, so a target is
// created alongside the event reference.
type LVCCounterpartParser struct {
	DB    *gorm.DB
	Links *linking.Engine
	Log   *zap.Logger
}

func (p *LVCCounterpartParser) Name() string {
	return "GCN/LVC Counterpart Notice Parser v1"
}

func (p *LVCCounterpartParser) Parse(msg *models.Message) bool {
	fields, ok := ExtractFields(msg.MessageText)
	if !ok || !hasTitleMarkers(fields, "GCN", "LVC", "COUNTERPART", "NOTICE") {
		return false
	}

	data, err := json.Marshal(fields)
	if err != nil {
		p.Log.Warn("marshal of counterpart fields failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}
	msg.Data = data
	msg.Title = fields["title"]
	msg.MessageParser = p.Name()
	if ts, ok := ParseObsTimestamp(fields["obs_date"], fields["obs_time"]); ok {
		msg.Published = ts
	}
	if submitter := fields["submitter"]; submitter != "" {
		msg.Submitter = submitter
		if msg.Authors == "" {
			msg.Authors = submitter
		}
	}
	if err := p.DB.Save(msg).Error; err != nil {
		p.Log.Warn("saving parsed counterpart failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}

	p.link(msg, fields)
	return true
}

func (p *LVCCounterpartParser) link(msg *models.Message, fields map[string]string) {
	eventID, ok := fields["event_trig_num"]
	if !ok {
		return
	}
	if _, err := p.Links.EnsureEvent(eventID, models.EventTypeGravitationalWave); err != nil {
		p.Log.Warn("event creation failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return
	}
	if err := p.Links.LinkReference(eventID, msg.ID); err != nil {
		p.Log.Warn("event reference link failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
	}

	ra, dec, ok := counterpartCoordinates(fields)
	if !ok {
		p.Log.Warn("no usable counterpart coordinates",
			zap.Uint("message_id", msg.ID))
		return
	}
	name := counterpartTargetName(eventID, fields)
	if name == "" {
		return
	}
	target, err := p.Links.EnsureTarget(name, ra, dec)
	if err != nil {
		p.Log.Warn("target creation failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return
	}
	if err := p.Links.LinkTarget(target.ID, msg.ID); err != nil {
		p.Log.Warn("target link failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
	}
}

// counterpartTargetName builds the source name, e.g. S190426_X2. The
// wire format spells the serial number key both SOURCE_SERNUM and
// SOURSE_SERNUM depending on the emitting mission.
func counterpartTargetName(eventID string, fields map[string]string) string {
	sernum, ok := fields["source_sernum"]
	if !ok {
		sernum, ok = fields["sourse_sernum"]
	}
	if !ok {
		return ""
	}
	return eventID + "_X" + sernum
}

// counterpartCoordinates extracts the J2000 position in degrees. The
// RA/Dec values list three epochs separated by commas; only the first
// is taken, and the degree value ends at the "d" unit marker.
func counterpartCoordinates(fields map[string]string) (float64, float64, bool) {
	ra, ok := degreeField(fields["cntrpart_ra"])
	if !ok {
		return 0, 0, false
	}
	dec, ok := degreeField(fields["cntrpart_dec"])
	if !ok {
		return 0, 0, false
	}
	return ra, dec, true
}

func degreeField(raw string) (float64, bool) {
	first, _, _ := strings.Cut(raw, ",")
	value, _, _ := strings.Cut(first, "d")
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
