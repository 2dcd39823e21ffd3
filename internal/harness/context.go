// Package harness wires one verification session: a browser page, the
// engine services built over it, the two grids, and the run ledger entry
// that records how the session ended.
package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/fixtures"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/alerts"
	"github.com/ternarybob/gridcheck/internal/services/dispatch"
	"github.com/ternarybob/gridcheck/internal/services/feedback"
	"github.com/ternarybob/gridcheck/internal/services/grid"
	"github.com/ternarybob/gridcheck/internal/services/toast"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

// Session is the browser a harness context drives
type Session interface {
	Page() interfaces.Page
	Navigate(ctx context.Context, url string) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Reporter is the part of testing.TB the harness reads. It is optional.
type Reporter interface {
	Name() string
	Failed() bool
	Logf(format string, args ...interface{})
}

// Options configures New
type Options struct {
	Name     string                // Ledger name; defaults to Reporter.Name()
	Runs     interfaces.RunStorage // Optional run ledger
	Reporter Reporter
	Logger   arbor.ILogger
}

// Context holds everything one session needs. Create it with New and
// release it with a deferred Cleanup.
type Context struct {
	Ctx    context.Context
	Config *common.Config
	Logger arbor.ILogger
	RunID  string

	Session    Session
	Page       interfaces.Page
	Waiter     *waiter.Waiter
	Alerts     *alerts.Guard
	Toasts     *toast.Detector
	Dispatcher *dispatch.Dispatcher
	Feedback   *feedback.Observer
	Fixtures   *fixtures.Loader

	Education     *grid.Grid[models.EducationRecord]
	Certification *grid.Grid[models.CertificationRecord]

	runs     interfaces.RunStorage
	reporter Reporter
	run      *models.TestRun
	logs     *LogBuffer
	failure  error
	cleanup  []func()
}

// New builds a context over session. The session is closed by Cleanup. The
// session deadline is config.Waits.TestTimeout from now.
func New(parent context.Context, config *common.Config, session Session, opts Options) (*Context, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = common.GetLogger()
	}
	name := opts.Name
	if name == "" && opts.Reporter != nil {
		name = opts.Reporter.Name()
	}
	if name == "" {
		name = "session"
	}

	runID := common.NewRunID()
	logger = logger.WithCorrelationId(runID)

	ctx, cancel := context.WithTimeout(parent, common.MustDuration(config.Waits.TestTimeout, 3*time.Minute))

	waits := config.Waits
	page := session.Page()
	w := waiter.New(logger, common.MustDuration(waits.PollInterval, 250*time.Millisecond))
	actionTimeout := common.MustDuration(waits.DefaultTimeout, 5*time.Second)
	toasts := toast.NewDetector(page, w, toast.Locators{
		Success: config.Toast.Success,
		Error:   config.Toast.Error,
		Close:   config.Toast.Close,
		All:     config.Toast.All,
	}, common.MustDuration(waits.ToastTimeout, toast.DefaultTimeout), logger)
	guard := alerts.NewGuard(page, w, logger)
	dispatcher := dispatch.NewDispatcher(page, w, toasts, actionTimeout, logger)
	gridOpts := grid.Options{
		ActionTimeout: actionTimeout,
		SettleTimeout: common.MustDuration(waits.SettleTimeout, 2*time.Second),
		ShrinkTimeout: common.MustDuration(waits.DrainShrinkTimeout, 5*time.Second),
		MaxSkips:      waits.DrainMaxSkips,
	}

	c := &Context{
		Ctx:        ctx,
		Config:     config,
		Logger:     logger,
		RunID:      runID,
		Session:    session,
		Page:       page,
		Waiter:     w,
		Alerts:     guard,
		Toasts:     toasts,
		Dispatcher: dispatcher,
		Feedback:   feedback.NewObserver(guard, toasts, common.MustDuration(waits.AlertTimeout, 2*time.Second), logger),
		Fixtures:   fixtures.NewLoader(config.Fixtures.Dir),

		Education:     grid.New(grid.EducationSchema(), page, w, dispatcher, toasts, gridOpts, logger),
		Certification: grid.New(grid.CertificationSchema(), page, w, dispatcher, toasts, gridOpts, logger),

		runs:     opts.Runs,
		reporter: opts.Reporter,
		logs:     &LogBuffer{},
		run: &models.TestRun{
			ID:        runID,
			Name:      name,
			Status:    models.TestRunRunning,
			StartedAt: time.Now(),
		},
	}

	// Cleanup runs these in reverse order
	c.cleanup = append(c.cleanup, func() {
		if err := session.Close(); err != nil {
			c.Logger.Warn().Err(err).Msg("Failed to close browser session")
		}
	})
	c.cleanup = append(c.cleanup, cancel)

	c.saveRun()
	c.Log("=== RUN %s: %s ===", name, runID)

	if err := c.dismissStray("start"); err != nil {
		c.Fail(err)
		c.Cleanup()
		return nil, err
	}
	return c, nil
}

// Open loads the profile page, signing in first when [login] is enabled
func (c *Context) Open() error {
	if !c.Config.HasLiveTarget() {
		return fmt.Errorf("no base_url configured")
	}
	if c.Config.Login.Enabled {
		if err := c.login(); err != nil {
			return c.Fail(err)
		}
	}

	profileURL, err := c.Config.ProfileURL()
	if err != nil {
		return c.Fail(err)
	}
	if err := c.Session.Navigate(c.Ctx, profileURL); err != nil {
		return c.Fail(err)
	}
	c.Log("Opened %s", profileURL)
	return nil
}

// Log writes to the session logger and the run's log buffer
func (c *Context) Log(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.Logger.Info().Msg(msg)
	c.logs.Add("%s", msg)
	if c.reporter != nil {
		c.reporter.Logf("%s", msg)
	}
}

// Fail marks the session failed with err and returns err. Only the first
// failure is kept.
func (c *Context) Fail(err error) error {
	if err == nil {
		return nil
	}
	if c.failure == nil {
		c.failure = err
	}
	c.Logger.Error().Err(err).Msg("Session failed")
	c.logs.Add("FAIL: %v", err)
	return err
}

// Failed reports whether the session has failed
func (c *Context) Failed() bool {
	return c.failure != nil || (c.reporter != nil && c.reporter.Failed())
}

// Run returns a copy of the session's ledger entry as it stands
func (c *Context) Run() models.TestRun {
	run := *c.run
	run.Logs = c.logs.Lines()
	return run
}

// Cleanup confirms no dialog is left open, captures a screenshot when the
// session failed, finalizes the ledger entry and releases resources. Call
// it with defer.
func (c *Context) Cleanup() {
	if err := c.dismissStray("end"); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		c.Fail(err)
	}

	if c.Failed() {
		c.captureFailure()
	}

	c.finishRun()
	c.saveRun()

	for i := len(c.cleanup) - 1; i >= 0; i-- {
		c.cleanup[i]()
	}
	c.cleanup = nil
}

func (c *Context) dismissStray(phase string) error {
	// The stray check must run even when the session deadline is spent
	timeout := common.MustDuration(c.Config.Waits.StrayTimeout, 0)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Ctx), timeout+time.Second)
	defer cancel()

	text, err := c.Alerts.DismissStray(ctx, timeout)
	if err != nil {
		return fmt.Errorf("stray dialog check at %s failed: %w", phase, err)
	}
	if text != "" {
		c.run.StrayDialog = text
		c.Log("Dismissed stray dialog at %s: %s", phase, text)
	}
	return nil
}

func (c *Context) captureFailure() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Ctx), 10*time.Second)
	defer cancel()

	if texts, err := c.Toasts.ListAll(ctx); err == nil && len(texts) > 0 {
		c.Log("Notifications at failure: %v", texts)
	}

	dir := c.Config.Browser.ScreenshotDir
	if dir == "" {
		return
	}
	png, err := c.Session.Screenshot(ctx)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("Failed to capture failure screenshot")
		return
	}
	if len(png) == 0 {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.Logger.Warn().Err(err).Str("dir", dir).Msg("Failed to create screenshot directory")
		return
	}
	path := filepath.Join(dir, c.RunID+".png")
	if err := os.WriteFile(path, png, 0644); err != nil {
		c.Logger.Warn().Err(err).Str("path", path).Msg("Failed to save failure screenshot")
		return
	}
	c.run.Screenshot = path
	c.Log("Failure screenshot saved to %s", path)
}

func (c *Context) finishRun() {
	c.run.CompletedAt = time.Now()
	c.run.DurationMs = c.run.CompletedAt.Sub(c.run.StartedAt).Milliseconds()
	switch {
	case c.Failed():
		c.run.Status = models.TestRunFailed
		if c.failure != nil {
			c.run.Failure = c.failure.Error()
		} else {
			c.run.Failure = "test reported failure"
		}
		c.Log("=== RESULT: FAIL ===")
	default:
		c.run.Status = models.TestRunPassed
		c.Log("=== RESULT: PASS ===")
	}
}

func (c *Context) saveRun() {
	if c.runs == nil {
		return
	}
	run := c.Run()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.runs.SaveRun(ctx, &run); err != nil {
		c.Logger.Warn().Err(err).Str("run_id", c.RunID).Msg("Failed to save run to ledger")
	}
}
