package parsers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"skyhub/linking"
	"skyhub/models"
)

// IceCubeNoticeParser handles GCN/AMON plaintext notices for IceCube
// gold, bronze and cascade alerts. The event is identified by run and
// event number, each revision becomes a sequence, and the best-fit
// source position becomes a centre target.
type IceCubeNoticeParser struct {
	DB    *gorm.DB
	Links *linking.Engine
	Log   *zap.Logger
}

func (p *IceCubeNoticeParser) Name() string {
	return "Icecube Notice Plaintext Parser v1"
}

func (p *IceCubeNoticeParser) Parse(msg *models.Message) bool {
	fields, ok := ExtractFields(msg.MessageText)
	if !ok || !hasTitleMarkers(fields, "GCN", "NOTICE") {
		return false
	}
	runNum, hasRun := fields["run_num"]
	eventNum, hasEvent := fields["event_num"]
	if !hasRun || !hasEvent {
		return false
	}
	eventID := runNum + "_" + eventNum

	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data["urls"] = map[string]string{"gcn": icecubeNoticeURL(eventID, fields["notice_type"])}

	encoded, err := json.Marshal(data)
	if err != nil {
		p.Log.Warn("marshal of notice fields failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}
	msg.Data = encoded
	msg.Title = fields["title"]
	msg.MessageParser = p.Name()
	if ts, ok := noticePublished(fields); ok {
		msg.Published = ts
	}
	if err := p.DB.Save(msg).Error; err != nil {
		p.Log.Warn("saving parsed notice failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}

	p.link(msg, eventID, fields, encoded)
	return true
}

func (p *IceCubeNoticeParser) link(msg *models.Message, eventID string, fields map[string]string, data []byte) {
	if _, err := p.Links.EnsureEvent(eventID, models.EventTypeNeutrino); err != nil {
		p.Log.Warn("event creation failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return
	}
	if err := p.Links.LinkReference(eventID, msg.ID); err != nil {
		p.Log.Warn("event reference link failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
	}

	seqNum, _ := strconv.Atoi(fields["revision"])
	seqType := models.SequenceTypeInitial
	if seqNum > 0 {
		seqType = models.SequenceTypeUpdate
	}
	if _, err := p.Links.EnsureSequence(eventID, seqNum, seqType, msg.ID, data); err != nil {
		p.Log.Warn("sequence creation failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
	}

	ra, ok := degreeField(fields["src_ra"])
	if !ok {
		p.Log.Warn("no usable source coordinates in notice",
			zap.Uint("message_id", msg.ID))
		return
	}
	dec, ok := degreeField(fields["src_dec"])
	if !ok {
		p.Log.Warn("no usable source coordinates in notice",
			zap.Uint("message_id", msg.ID))
		return
	}
	target, err := p.Links.EnsureTarget("icecube_"+eventID+"_src", ra, dec)
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

// icecubeNoticeURL points at the archived AMON notice. Cascade alerts
// live under a different path than the gold/bronze track alerts.
func icecubeNoticeURL(eventID, noticeType string) string {
	kind := "notices_amon_g_b"
	if strings.Contains(strings.ToLower(noticeType), "cascade") {
		kind = "notices_amon_icecube_cascade"
	}
	return fmt.Sprintf("https://gcn.gsfc.nasa.gov/%s/%s.amon", kind, eventID)
}
