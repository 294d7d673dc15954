package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/pipeline"
)

// loadTables builds the table store for the --tables directory. Store
// logging goes to stderr so stdout stays valid JSON.
func loadTables() (*config.Store, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	return config.NewStore(tablesDir, logger)
}

func newPipeline() (*pipeline.Pipeline, error) {
	store, err := loadTables()
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	return pipeline.New(store, pipeline.DefaultMaxWorkers, logger), nil
}

// readRequest decodes JSON from the file argument, or stdin when the
// argument is absent or "-".
func readRequest(args []string, into interface{}) error {
	var r io.Reader = os.Stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(into); err != nil {
		return fmt.Errorf("invalid JSON request: %w", err)
	}
	return nil
}

// buildContext validates the request and resolves it the way the API
// ingestion does. Offline runs have no history service, so an omitted
// velocity counts as zero.
func buildContext(req *domain.ScoreRequest) (*domain.TransactionContext, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	velocity := 0
	if req.Customer.Velocity24h != nil {
		velocity = *req.Customer.Velocity24h
	}
	return req.ToContext(requestID, velocity, time.Now()), nil
}

// writeOutput prints v as JSON on stdout, indented unless --compact.
func writeOutput(v interface{}) error {
	var (
		data []byte
		err  error
	)
	if compact {
		data, err = json.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
