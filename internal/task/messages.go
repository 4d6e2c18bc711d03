package task

import (
	"strings"

	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/generation"
)

// DefaultImagePrefix marks a user message as an image command.
const DefaultImagePrefix = "/img"

// ConversationMessages converts stored turns into the message list sent to an
// inference service. Image turns and user image commands are left out: they
// carry no conversational text the model should see.
func ConversationMessages(turns []domain.Turn, imagePrefix string) []generation.Message {
	messages := make([]generation.Message, 0, len(turns))
	for _, t := range turns {
		if t.IsImage() {
			continue
		}
		if t.Role == domain.RoleUser && imagePrefix != "" && strings.HasPrefix(t.Content, imagePrefix) {
			continue
		}
		messages = append(messages, generation.Message{Role: t.Role, Content: t.Content})
	}
	return messages
}
