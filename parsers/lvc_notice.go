package parsers

import (
	"encoding/json"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"skyhub/linking"
	"skyhub/models"
)

// LVCNoticeParser handles classic GCN/LVC plaintext notices. Each
// notice announces one numbered sequence of a gravitational-wave
// superevent.
type LVCNoticeParser struct {
	DB    *gorm.DB
	Links *linking.Engine
	Log   *zap.Logger
}

func (p *LVCNoticeParser) Name() string {
	return "GCN/LVC Notice Parser v1"
}

func (p *LVCNoticeParser) Parse(msg *models.Message) bool {
	fields, ok := ExtractFields(msg.MessageText)
	if !ok || !hasTitleMarkers(fields, "GCN", "LVC", "NOTICE") {
		return false
	}

	if skymap, ok := fields["skymap_fits_url"]; ok {
		fields["skymap_fits_url"] = MOCURLFromSkymapURL(skymap)
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
	if published, ok := ParseNoticeDate(fields["notice_date"]); ok {
		msg.Published = published
	}
	if err := p.DB.Save(msg).Error; err != nil {
		p.Log.Warn("saving parsed notice failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}

	p.link(msg, fields)
	return true
}

func (p *LVCNoticeParser) link(msg *models.Message, fields map[string]string) {
	triggerNum, ok := fields["trigger_num"]
	if !ok {
		return
	}
	if _, err := p.Links.EnsureEvent(triggerNum, models.EventTypeGravitationalWave); err != nil {
		p.Log.Warn("event creation failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return
	}
	seqNum, err := strconv.Atoi(fields["sequence_num"])
	if err != nil {
		return
	}
	seqType := ConvertNoticeType(fields["notice_type"])
	if _, err := p.Links.EnsureSequence(triggerNum, seqNum, seqType, msg.ID, nil); err != nil {
		p.Log.Warn("sequence creation failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
	}
}
