package services

import (
	"strings"

	"github.com/faeln1/go-onebot-guard/internal/domain/message"
	"github.com/faeln1/go-onebot-guard/internal/domain/welcome"
)

const defaultGreeting = " welcome to the group!"

// RenderWelcome expands a template: every {user} becomes a mention and {group}
// is replaced in the text around it. Empty text segments are dropped.
func RenderWelcome(template, userID, groupID string) message.Chain {
	parts := strings.Split(template, welcome.PlaceholderUser)
	chain := make(message.Chain, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			chain = append(chain, message.At(userID))
		}
		text := strings.ReplaceAll(part, welcome.PlaceholderGroup, groupID)
		if text == "" {
			continue
		}
		chain = append(chain, message.Text(text))
	}
	if onlyWhitespace(chain) {
		return nil
	}
	return chain
}

// DefaultWelcome is sent when a group has no usable template.
func DefaultWelcome(userID string) message.Chain {
	return message.Chain{message.At(userID), message.Text(defaultGreeting)}
}

func onlyWhitespace(chain message.Chain) bool {
	for _, seg := range chain {
		if !seg.IsText() || strings.TrimSpace(seg.Data["text"]) != "" {
			return false
		}
	}
	return true
}
