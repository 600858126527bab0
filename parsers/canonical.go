package parsers

import (
	"encoding/json"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"skyhub/linking"
	"skyhub/models"
)

// CanonicalMessageParser handles messages submitted through our own
// API, which already arrive in the canonical structured form. It only
// links: an event when the data names one, and a target for every
// (target_name, ra, dec) triple found anywhere in the data tree.
type CanonicalMessageParser struct {
	DB    *gorm.DB
	Links *linking.Engine
	Log   *zap.Logger
}

func (p *CanonicalMessageParser) Name() string {
	return "Canonical Message Parser v1"
}

func (p *CanonicalMessageParser) Parse(msg *models.Message) bool {
	msg.MessageParser = p.Name()
	if err := p.DB.Save(msg).Error; err != nil {
		p.Log.Warn("saving canonical message failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}
	if len(msg.Data) == 0 {
		return true
	}
	var data map[string]any
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		p.Log.Warn("canonical message data is not an object",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return true
	}

	if eventID, ok := data["event_id"].(string); ok && eventID != "" {
		if _, err := p.Links.EnsureEvent(eventID, models.EventTypeGravitationalWave); err != nil {
			p.Log.Warn("event creation failed",
				zap.Uint("message_id", msg.ID), zap.Error(err))
		} else if err := p.Links.LinkReference(eventID, msg.ID); err != nil {
			p.Log.Warn("event reference link failed",
				zap.Uint("message_id", msg.ID), zap.Error(err))
		}
	}
	p.walkTargets(msg, data)
	return true
}

// walkTargets descends the whole data structure and links a target for
// every object that carries a name and both coordinates, so targets in
// photometry or astrometry sections are picked up too.
func (p *CanonicalMessageParser) walkTargets(msg *models.Message, node any) {
	switch value := node.(type) {
	case map[string]any:
		name, _ := value["target_name"].(string)
		ra, raOK := jsonFloat(value["ra"])
		dec, decOK := jsonFloat(value["dec"])
		if name != "" && raOK && decOK {
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
			return
		}
		for _, child := range value {
			p.walkTargets(msg, child)
		}
	case []any:
		for _, child := range value {
			p.walkTargets(msg, child)
		}
	}
}

func jsonFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
