package notifier

import (
	"log/slog"

	"github.com/gradfeed/ingest/internal/model"
)

var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes batches to the log. The default when no webhook is
// configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that only logs.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs each job in the batch.
func (n *LogNotifier) Send(jobs []model.NormalizedJob, recipient string) error {
	n.logger.Info("job batch", "recipient", recipient, "count", len(jobs))
	for _, j := range jobs {
		n.logger.Info("job",
			"title", j.Title,
			"company", j.Company,
			"location", j.Location,
			"source", j.Source,
			"url", j.URL,
		)
	}
	return nil
}
