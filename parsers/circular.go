package parsers

import (
	"encoding/json"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"skyhub/linking"
	"skyhub/models"
)

// superevent ids look like S190426 with an optional lowercase suffix.
var supereventRe = regexp.MustCompile(`S\d{6}[a-z]*`)

// CircularParser handles GCN circulars, the human-written follow-up
// reports. A circular can mention several superevents; the message is
// linked to every one found in its subject or event id.
type CircularParser struct {
	DB    *gorm.DB
	Links *linking.Engine
	Log   *zap.Logger
}

func (p *CircularParser) Name() string {
	return "GCN Circular Parser v2"
}

func (p *CircularParser) Parse(msg *models.Message) bool {
	if len(msg.Data) == 0 {
		return false
	}
	var data map[string]any
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return false
	}
	circularID, ok := jsonInt(data["circularId"])
	if !ok {
		return false
	}

	data["urls"] = map[string]string{
		"gcn_circular": fmt.Sprintf("https://gcn.nasa.gov/circulars/%d", circularID),
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		p.Log.Warn("marshal of circular data failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}
	msg.Data = encoded
	if subject, ok := data["subject"].(string); ok && subject != "" {
		msg.Title = subject
	}
	if submitter, ok := data["submitter"].(string); ok && submitter != "" {
		msg.Submitter = submitter
	}
	if body, ok := data["body"].(string); ok && msg.MessageText == "" {
		msg.MessageText = body
	}
	msg.MessageParser = p.Name()
	if err := p.DB.Save(msg).Error; err != nil {
		p.Log.Warn("saving parsed circular failed",
			zap.Uint("message_id", msg.ID), zap.Error(err))
		return false
	}

	p.link(msg, data)
	return true
}

func (p *CircularParser) link(msg *models.Message, data map[string]any) {
	eventField, _ := data["eventId"].(string)
	subject, _ := data["subject"].(string)

	seen := make(map[string]bool)
	for _, match := range supereventRe.FindAllString(eventField+" "+subject, -1) {
		if seen[match] {
			continue
		}
		seen[match] = true
		if _, err := p.Links.EnsureEvent(match, models.EventTypeGravitationalWave); err != nil {
			p.Log.Warn("event creation failed",
				zap.Uint("message_id", msg.ID), zap.Error(err))
			continue
		}
		if err := p.Links.LinkReference(match, msg.ID); err != nil {
			p.Log.Warn("event reference link failed",
				zap.Uint("message_id", msg.ID), zap.Error(err))
		}
	}
}
