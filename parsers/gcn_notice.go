package parsers

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"skyhub/linking"
	"skyhub/models"
)

// GCNNoticeParser is the catch-all handler for plaintext GCN notices
// that the more specific parsers did not claim. It keeps the full
// field map and links an event and counterpart target when the notice
// carries them.
type GCNNoticeParser struct {
	DB    *gorm.DB
	Links *linking.Engine
	Log   *zap.Logger
}

func (p *GCNNoticeParser) Name() string {
	return "GCN Notice Plaintext Parser v1"
}

func (p *GCNNoticeParser) Parse(msg *models.Message) bool {
	fields, ok := p.fields(msg)
	if !ok || !hasTitleMarkers(fields, "GCN", "NOTICE") {
		return false
	}

	data, err := json.Marshal(fields)
	if err != nil {
		p.Log.Warn("marshal of notice fields failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}
	msg.Data = data
	msg.Title = fields["title"]
	msg.MessageParser = p.Name()
	if ts, ok := noticePublished(fields); ok {
		msg.Published = ts
	}
	if submitter := fields["submitter"]; submitter != "" {
		msg.Submitter = submitter
		if msg.Authors == "" {
			msg.Authors = submitter
		}
	}
	if err := p.DB.Save(msg).Error; err != nil {
		p.Log.Warn("saving parsed notice failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}

	p.link(msg, fields)
	return true
}

// fields prefers structured data a broker already attached over
// re-extracting from the plaintext body.
func (p *GCNNoticeParser) fields(msg *models.Message) (map[string]string, bool) {
	if len(msg.Data) > 0 {
		var fields map[string]string
		if err := json.Unmarshal(msg.Data, &fields); err == nil && len(fields) > 0 {
			return fields, true
		}
	}
	return ExtractFields(msg.MessageText)
}

// noticePublished prefers the observation timestamp and falls back on
// the notice date.
func noticePublished(fields map[string]string) (time.Time, bool) {
	if ts, ok := ParseObsTimestamp(fields["obs_date"], fields["obs_time"]); ok {
		return ts, true
	}
	return ParseNoticeDate(fields["notice_date"])
}

func (p *GCNNoticeParser) link(msg *models.Message, fields map[string]string) {
	eventID := fields["event_trig_num"]
	if eventID == "" {
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

	name := counterpartTargetName(eventID, fields)
	if name == "" {
		return
	}
	ra, dec, ok := counterpartCoordinates(fields)
	if !ok {
		p.Log.Warn("no usable coordinates in notice",
			zap.Uint("message_id", msg.ID))
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
