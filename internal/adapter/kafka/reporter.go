// Package kafka publishes the post-run report. Publishing is optional and
// best-effort: a build whose report cannot be delivered is still a
// successful build.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-ml-dataset/internal/config"
	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
)

// RunReport summarizes one finished dataset build for downstream consumers
// (training schedulers, catalog indexers).
type RunReport struct {
	RunID       string         `json:"run_id"`
	DatasetName string         `json:"dataset_name"`
	DatasetPath string         `json:"dataset_path"`
	CreatedAt   time.Time      `json:"created_at"`
	Workers     int            `json:"workers"`
	Processed   int            `json:"units_processed"`
	Skipped     int            `json:"units_skipped"`
	RowsPerKey  map[string]int `json:"rows_per_key"`
	Params      domain.Params  `json:"params"`
}

// Reporter produces run reports to a Kafka topic.
type Reporter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewReporter creates a producer for the configured report topic.
func NewReporter(cfg *config.Config, logger *slog.Logger) *Reporter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Reporter{writer: w, logger: logger}
}

// Publish serializes and delivers one run report, keyed by run id.
func (r *Reporter) Publish(ctx context.Context, report RunReport) error {
	msg, err := serializeReport(report)
	if err != nil {
		return err
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish run report: %w", err)
	}
	r.logger.Info("run report published", "run_id", report.RunID, "dataset", report.DatasetName)
	return nil
}

func (r *Reporter) Close() error {
	return r.writer.Close()
}

// serializeReport marshals a run report into a Kafka message.
func serializeReport(report RunReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "dataset_name", Value: []byte(report.DatasetName)},
			{Key: "created_at", Value: []byte(report.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
