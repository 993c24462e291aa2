// Package publish creates the aggregate records in a knowledge base through
// a bulk REST endpoint, one request per batch.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/sheetpipe/core"
	"github.com/gaurav-prasanna/sheetpipe/core/batch"
)

const defaultTimeout = 60 * time.Second

// Record is the JSON body of one record, keyed like the import CSV.
type Record struct {
	RecordTypeID   string `json:"RecordTypeId"`
	Title          string `json:"Title"`
	URLName        string `json:"UrlName"`
	Summary        string `json:"Summary"`
	Answer         string `json:"Answer"`
	Category       string `json:"Categorie__c"`
	Classification string `json:"Category__c"`
}

type request struct {
	RunID   string   `json:"run_id"`
	Records []Record `json:"records"`
}

type response struct {
	IDs []string `json:"ids"`
}

// Config configures a Publisher.
type Config struct {
	Endpoint  string
	Token     string
	BatchSize int
	// Limiter paces requests. Nil means unlimited.
	Limiter *rate.Limiter
	Client  *http.Client
	Logger  *slog.Logger
}

// Publisher is a core.Sink that posts the aggregate view.
type Publisher struct {
	cfg     Config
	batcher *batch.Batcher
}

// New creates a Publisher.
func New(cfg Config) *Publisher {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Publisher{cfg: cfg, batcher: batch.New(cfg.BatchSize)}
}

// Report summarizes a publish.
type Report struct {
	Batches int
	Created []string
	Failed  int
}

// Write publishes result.All.
func (p *Publisher) Write(ctx context.Context, result *core.Result) error {
	_, err := p.Publish(ctx, result.RunID, result.All)
	return err
}

// Publish sends records in batches. A failing batch is logged and the
// remaining batches are still sent; the joined batch errors are returned.
func (p *Publisher) Publish(ctx context.Context, runID string, records []core.OutputRecord) (*Report, error) {
	batches := p.batcher.Split(records)
	report := &Report{Batches: len(batches)}

	var errs []error
	for i, b := range batches {
		log := p.cfg.Logger.With("batch", i+1, "of", len(batches), "records", len(b))
		if p.cfg.Limiter != nil {
			if err := p.cfg.Limiter.Wait(ctx); err != nil {
				return report, err
			}
		}
		ids, err := p.send(ctx, runID, b)
		if err != nil {
			log.Error("publishing batch failed", "error", err)
			report.Failed++
			errs = append(errs, fmt.Errorf("batch %d: %w", i+1, err))
			continue
		}
		report.Created = append(report.Created, ids...)
		log.Info("batch published", "created", len(ids))
	}
	return report, errors.Join(errs...)
}

func (p *Publisher) send(ctx context.Context, runID string, records []core.OutputRecord) ([]string, error) {
	body := request{RunID: runID, Records: make([]Record, 0, len(records))}
	for _, r := range records {
		body.Records = append(body.Records, Record{
			RecordTypeID:   r.RecordTypeID,
			Title:          r.Title,
			URLName:        r.URLName,
			Summary:        r.Summary,
			Answer:         r.Answer,
			Category:       r.Category,
			Classification: r.Classification,
		})
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	resp, err := p.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", p.cfg.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return out.IDs, nil
}
