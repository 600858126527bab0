package parsers

import (
	"encoding/json"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"skyhub/linking"
	"skyhub/models"
)

// igwnRequiredKeys must all be present for a message to be claimed as
// an IGWN alert.
var igwnRequiredKeys = []string{"alert_type", "time_created", "superevent_id", "sequence_num"}

// IGWNAlertParser handles the structured gravitational-wave alerts
// from the IGWN broker. These arrive as decoded records in the data
// field rather than as plaintext.
type IGWNAlertParser struct {
	DB    *gorm.DB
	Links *linking.Engine
	Log   *zap.Logger
}

func (p *IGWNAlertParser) Name() string {
	return "IGWN Alert Avro Parser v1"
}

func (p *IGWNAlertParser) Parse(msg *models.Message) bool {
	if len(msg.Data) == 0 {
		return false
	}
	var alert map[string]any
	if err := json.Unmarshal(msg.Data, &alert); err != nil {
		return false
	}
	for _, key := range igwnRequiredKeys {
		if _, ok := alert[key]; !ok {
			return false
		}
	}

	msg.MessageParser = p.Name()
	if created, ok := alert["time_created"].(string); ok {
		if ts, ok := ParseNoticeDate(created); ok {
			msg.Published = ts
		}
	}
	if err := p.DB.Save(msg).Error; err != nil {
		p.Log.Warn("saving parsed alert failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}

	p.link(msg, alert)
	return true
}

func (p *IGWNAlertParser) link(msg *models.Message, alert map[string]any) {
	eventID, _ := alert["superevent_id"].(string)
	if eventID == "" {
		return
	}
	if _, err := p.Links.EnsureEvent(eventID, models.EventTypeGravitationalWave); err != nil {
		p.Log.Warn("event creation failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return
	}
	seqNum, ok := jsonInt(alert["sequence_num"])
	if !ok {
		return
	}
	alertType, _ := alert["alert_type"].(string)
	seqType := ConvertNoticeType(alertType)
	if _, err := p.Links.EnsureSequence(eventID, seqNum, seqType, msg.ID, msg.Data); err != nil {
		p.Log.Warn("sequence creation failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
	}
}

// jsonInt accepts the number representations that show up after a
// round trip through JSON.
func jsonInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	case int:
		return n, true
	}
	return 0, false
}
