package intent

import (
	"context"
	"log/slog"

	"github.com/gesin-frd/srat-assistant-go/internal/llm"
	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
)

// completer is the slice of the completion chain the classifier needs.
type completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// Classifier routes messages to a Label with one completion call.
type Classifier struct {
	completer          completer
	subjectKeywords    []string
	identifierKeywords []string
	metrics            *metrics.Metrics
}

// NewClassifier creates a classifier backed by the given completion
// service. The keyword lists feed the classifier prompt's signal tables.
func NewClassifier(c completer, subjectKeywords, identifierKeywords []string, m *metrics.Metrics) *Classifier {
	return &Classifier{
		completer:          c,
		subjectKeywords:    subjectKeywords,
		identifierKeywords: identifierKeywords,
		metrics:            m,
	}
}

// Classify determines the label for a message given the conversation's
// prior label. Classification fails open: any completion error or
// unparseable response yields LabelGeneral so the turn still gets a reply.
func (c *Classifier) Classify(ctx context.Context, message string, prior Label) Label {
	if c == nil || c.completer == nil {
		return LabelGeneral
	}

	resp, err := c.completer.Complete(ctx, llm.CompletionRequest{
		System: routerPrompt(prior, c.subjectKeywords, c.identifierKeywords),
		Messages: []llm.ChatMessage{
			{Role: llm.RoleUser, Content: message},
		},
		Temperature: 0, // Deterministic routing
		MaxTokens:   10,
	})
	if err != nil {
		slog.WarnContext(ctx, "classification failed, defaulting to general",
			"prior", prior,
			"error", err)
		c.record(LabelGeneral, "error")
		return LabelGeneral
	}

	label, ok := ParseLabel(resp)
	if !ok {
		slog.WarnContext(ctx, "unparseable classification response",
			"response", resp,
			"prior", prior)
		c.record(label, "defaulted")
		return label
	}

	c.record(label, "parsed")
	return label
}

func (c *Classifier) record(label Label, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordClassification(label.String(), outcome)
	}
}
