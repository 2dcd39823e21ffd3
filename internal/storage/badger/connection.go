package badger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerDB manages the run ledger database connection
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
}

// NewBadgerDB opens the ledger at config.Path
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	// If reset_on_startup is enabled, delete the existing database
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing ledger (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete ledger directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Opening run ledger")
	return open(logger, config, badger.DefaultOptions(config.Path))
}

// NewInMemoryBadgerDB opens a ledger that lives only as long as the process
func NewInMemoryBadgerDB(logger arbor.ILogger) (*BadgerDB, error) {
	return open(logger, &common.BadgerConfig{Enabled: true}, badger.DefaultOptions("").WithInMemory(true))
}

func open(logger arbor.ILogger, config *common.BadgerConfig, opts badger.Options) (*BadgerDB, error) {
	options := badgerhold.DefaultOptions
	options.Options = opts.WithLogger(badgerLogger{logger: logger})

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
	}, nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database connection
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

// badgerLogger routes badger's internal logging through arbor. Badger's
// info chatter is demoted to debug.
type badgerLogger struct {
	logger arbor.ILogger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msg(badgerLine(format, args))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msg(badgerLine(format, args))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msg(badgerLine(format, args))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msg(badgerLine(format, args))
}

func badgerLine(format string, args []interface{}) string {
	return "badger: " + strings.TrimSpace(fmt.Sprintf(format, args...))
}
