package tools

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

func defineCurrentTime(g *genkit.Genkit, kit *Kit, _ *slog.Logger) ai.Tool {
	return genkit.DefineTool(
		g,
		"current_time",
		"Get the current date and time. "+
			"Returns the current timestamp in human-readable form with date, time, day of week and timezone. "+
			"Use this whenever an answer depends on the present moment.",
		func(_ *ai.ToolContext, _ struct{}) (string, error) {
			return kit.CurrentTime(), nil
		},
	)
}
