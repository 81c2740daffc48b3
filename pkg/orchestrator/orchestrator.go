package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/genetrans/genetrans/pkg/config"
	"github.com/genetrans/genetrans/pkg/convert"
	"github.com/genetrans/genetrans/pkg/database"
	"github.com/genetrans/genetrans/pkg/elastic"

	"github.com/sirupsen/logrus"
)

// Orchestrator runs checkpoint conversions with the configured merger and
// records each run in the enabled ledger sinks.
type Orchestrator struct {
	config        *config.Config
	configManager *config.Manager
	logger        *logrus.Logger
	converter     *convert.Converter
	db            *database.DB
	es            *elastic.Client
}

type Options struct {
	ConfigPath string
	Verbose    bool

	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer

	// Merger overrides the Python merger built from the config.
	Merger convert.Merger
}

func NewOrchestrator(ctx context.Context, opts Options) (*Orchestrator, error) {
	configManager := config.NewManager(opts.ConfigPath)
	if err := configManager.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := configManager.GetConfig()

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := NewLogger(out, cfg.Logging.Level, opts.Verbose)

	if path := configManager.ConfigPath(); path != "" {
		logger.Debugf("using config %s", path)
	} else {
		logger.Debug("no config file found, using defaults")
	}

	merger := opts.Merger
	if merger == nil {
		merger = &convert.PythonMerger{
			Interpreter: cfg.Converter.Python,
			Env:         cfg.Converter.Env,
		}
	}

	o := &Orchestrator{
		config:        cfg,
		configManager: configManager,
		logger:        logger,
		converter:     convert.NewConverter(merger),
	}

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		logger.Warnf("Database initialization failed: %v", err)
	}
	o.db = db

	if cfg.Elastic.Enabled {
		es, err := elastic.New(ctx, elastic.Config{
			URL:      cfg.Elastic.URL,
			Username: cfg.Elastic.Username,
			Password: cfg.Elastic.Password,
			Index:    cfg.Elastic.Index,
		})
		if err != nil {
			logger.Warnf("Elasticsearch initialization failed: %v", err)
		} else {
			o.es = es
		}
	}

	return o, nil
}

func (o *Orchestrator) Logger() *logrus.Logger {
	return o.logger
}

func (o *Orchestrator) Config() *config.Config {
	return o.config
}

func (o *Orchestrator) Database() *database.DB {
	return o.db
}

func (o *Orchestrator) Close() error {
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}

// ConvertCheckpoint consolidates the sharded checkpoint at input. The run is
// recorded in the ledger sinks whatever the outcome; sink failures are only
// logged.
func (o *Orchestrator) ConvertCheckpoint(ctx context.Context, input string) (*convert.Result, error) {
	runCtx := ctx
	if timeout := o.config.Converter.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	o.logger.Infof("Converting %s", input)

	result, err := o.converter.Run(runCtx, input)
	o.record(ctx, result)

	if err != nil {
		return result, err
	}

	o.logger.Infof("Wrote %s in %v", result.OutputPath, result.Duration)
	return result, nil
}

func (o *Orchestrator) record(ctx context.Context, result *convert.Result) {
	if result == nil {
		return
	}

	if o.db != nil && o.db.IsEnabled() {
		if err := o.db.RecordConversion(ctx, result); err != nil {
			o.logger.Warnf("Failed to record conversion in database: %v", err)
		} else {
			o.logger.Debugf("recorded conversion %s in database", result.ID)
		}
	}

	if o.es != nil {
		if err := o.es.IndexConversion(ctx, result); err != nil {
			o.logger.Warnf("Failed to index conversion: %v", err)
		} else {
			o.logger.Debugf("indexed conversion %s into %s", result.ID, o.es.Index())
		}
	}
}
