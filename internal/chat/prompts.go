package chat

import (
	"fmt"
	"strings"

	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
)

const basePrompt = `You are a helpful assistant answering questions about %s.
Answer using only the provided context excerpts and the conversation so far.
If the context does not contain the answer, say so instead of guessing.`

// buildSystemPrompt assembles the grounding prompt from retrieved excerpts
// and any user-supplied attachments
func buildSystemPrompt(engineName string, references []models.QueryReference, attachments []models.SourceDocument) string {
	if engineName == "" {
		engineName = "this knowledge base"
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, basePrompt, engineName)

	if len(references) > 0 {
		builder.WriteString("\n\nContext excerpts:\n")
		for i, ref := range references {
			fmt.Fprintf(&builder, "\n[%d] (%s)\n%s\n", i+1, ref.DocumentURL, ref.Excerpt)
		}
	}

	for _, attachment := range attachments {
		var text strings.Builder
		for _, segment := range attachment.Segments {
			if segment.Modality == models.ModalityText {
				text.WriteString(segment.Text)
				text.WriteString("\n")
			}
		}
		if text.Len() == 0 {
			continue
		}
		name := attachment.Title
		if name == "" {
			name = attachment.URL
		}
		fmt.Fprintf(&builder, "\nAttached document %q:\n%s", name, text.String())
	}

	return builder.String()
}

// buildMessages converts the thread history into provider messages. Reference
// and error turns are bookkeeping, not conversation, so they are skipped.
func buildMessages(systemPrompt string, history []models.Turn) []interfaces.Message {
	messages := make([]interfaces.Message, 0, len(history)+1)
	messages = append(messages, interfaces.Message{Role: "system", Content: systemPrompt})

	for _, turn := range history {
		switch turn.Type {
		case models.TurnHumanInput:
			messages = append(messages, interfaces.Message{Role: "user", Content: turn.Content})
		case models.TurnAIOutput:
			messages = append(messages, interfaces.Message{Role: "assistant", Content: turn.Content})
		}
	}
	return messages
}
