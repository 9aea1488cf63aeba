// Command indexer builds the vector index and metadata snapshot from an
// employee data file. The artifacts it writes are what cmd/staffdex serves.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/staffdex/staffdex/internal/config"
	"github.com/staffdex/staffdex/internal/domain"
	"github.com/staffdex/staffdex/internal/index"
	logpkg "github.com/staffdex/staffdex/internal/logger"
	"github.com/staffdex/staffdex/internal/repository/snapshot"
	openaiEmb "github.com/staffdex/staffdex/internal/transport/openai"
)

// embedBatchSize bounds a single embedding API request; embedConcurrency
// bounds how many requests run at once.
const (
	embedBatchSize   = 64
	embedConcurrency = 4
)

type dataFile struct {
	Employees []domain.EmployeeRecord `json:"employees"`
}

func main() {
	dataPath := flag.String("data", "data/employee_data.json", "path to the employee data file")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall build timeout")
	flag.Parse()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *dataPath, *timeout, logger); err != nil {
		logger.Fatal("Index build failed", zap.Error(err))
	}
}

func run(cfg config.Config, dataPath string, timeout time.Duration, logger *zap.Logger) error {
	employees, err := loadEmployees(dataPath)
	if err != nil {
		return err
	}
	logger.Info("Loaded employee data",
		zap.String("path", dataPath),
		zap.Int("employees", len(employees)),
	)

	texts := make([]string, len(employees))
	for i := range employees {
		texts[i] = employees[i].CorpusRow()
	}

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	vectors, err := embedAll(ctx, embedder, texts, logger)
	if err != nil {
		return err
	}

	idx := index.New(cfg.Embedding.Dimensions)
	for i, vec := range vectors {
		if err := idx.Add(i, vec); err != nil {
			return fmt.Errorf("add row %d: %w", i, err)
		}
	}
	if err := idx.Save(cfg.Store.IndexPath); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	logger.Info("Vector index written",
		zap.String("path", cfg.Store.IndexPath),
		zap.Int("vectors", idx.Len()),
	)

	if err := snapshot.Write(cfg.Store.SnapshotPath, employees, texts); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	logger.Info("Metadata snapshot written", zap.String("path", cfg.Store.SnapshotPath))
	return nil
}

func loadEmployees(path string) ([]domain.EmployeeRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	var df dataFile
	if err := json.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("parse data file: %w", err)
	}
	if len(df.Employees) == 0 {
		return nil, fmt.Errorf("data file %s contains no employees", path)
	}

	seen := make(map[string]struct{}, len(df.Employees))
	for i := range df.Employees {
		if err := df.Employees[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		id := df.Employees[i].ID
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate employee id %s", id)
		}
		seen[id] = struct{}{}
	}
	return df.Employees, nil
}

// embedAll vectorizes the corpus in fixed-size batches, a few in flight at a
// time. Row order is preserved: vectors[i] belongs to texts[i].
func embedAll(ctx context.Context, embedder *openaiEmb.Embedder, texts []string, logger *zap.Logger) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			res, err := embedder.BatchEmbed(ctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed rows %d..%d: %w", start, end-1, err)
			}
			if len(res.Embeddings) != end-start {
				return fmt.Errorf("embed rows %d..%d: got %d vectors, want %d",
					start, end-1, len(res.Embeddings), end-start)
			}
			copy(vectors[start:end], res.Embeddings)

			logger.Info("Embedded batch",
				zap.Int("first_row", start),
				zap.Int("rows", end-start),
				zap.Int("total", len(texts)),
				zap.Int("tokens", res.TotalTokens),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
