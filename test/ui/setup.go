// Package ui holds the live grid suites. They run against the application at
// GRIDCHECK_BASE_URL and skip when it is unset.
package ui

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ternarybob/gridcheck/internal/browser/chrome"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/harness"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/storage/badger"
)

// newContext starts a browser session on the profile page. Configuration
// comes from GRIDCHECK_CONFIG (a TOML path) and GRIDCHECK_* variables.
func newContext(t *testing.T) *harness.Context {
	t.Helper()
	if os.Getenv("GRIDCHECK_BASE_URL") == "" {
		t.Skip("GRIDCHECK_BASE_URL not set")
	}

	var paths []string
	if path := os.Getenv("GRIDCHECK_CONFIG"); path != "" {
		paths = append(paths, path)
	}
	config, err := common.LoadFromFiles(paths...)
	require.NoError(t, err)
	logger := common.InitLogger(config)

	var runs interfaces.RunStorage
	if config.Storage.Badger.Enabled {
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		runs = badger.NewRunStorage(db, logger)
	}

	session, err := chrome.NewSession(chrome.OptionsFromConfig(config.Browser), logger)
	require.NoError(t, err)

	hc, err := harness.New(context.Background(), config, session, harness.Options{
		Runs:     runs,
		Reporter: t,
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(hc.Cleanup)

	require.NoError(t, hc.Open())
	return hc
}
