package commands

import (
	"fmt"

	"github.com/bryanchriswhite/ScreenCaptureTool/internal/capture"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/config"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/history"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/logger"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/session"
	"github.com/bryanchriswhite/ScreenCaptureTool/internal/window"
)

// app holds everything a command needs; fields are nil when not requested
type app struct {
	config    *config.Manager
	session   *session.Session
	router    *capture.Router
	windows   window.Enumerator
	historyDB *history.DB
	history   *history.Repository
}

type appOptions struct {
	capture bool
	windows bool
}

// openApp wires the session. Missing display backends are logged, not fatal,
// so library commands work on headless machines.
func openApp(opts appOptions) (*app, error) {
	log := logger.WithComponent("cli")

	configMgr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{config: configMgr}

	if db, err := history.Open(configMgr.HistoryPath()); err != nil {
		log.Warn().Err(err).Msg("History journal unavailable")
	} else {
		a.historyDB = db
		a.history = history.NewRepository(db)
	}

	if opts.capture || opts.windows {
		enum, err := window.NewEnumerator()
		if err != nil {
			log.Warn().Err(err).Msg("Window enumeration not available")
		} else {
			a.windows = enum
		}
	}

	sessOpts := session.Options{Config: configMgr}
	if a.history != nil {
		sessOpts.Journal = a.history
	}
	if opts.capture {
		router, err := capture.NewRouter()
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := router.Start(); err != nil {
			a.Close()
			return nil, err
		}
		a.router = router
		sessOpts.Grabber = router
		sessOpts.Locator = window.Locator{Enumerator: a.windows}
	}

	a.session, err = session.New(sessOpts)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open image library: %w", err)
	}
	return a, nil
}

// Close releases every backend in reverse order of opening
func (a *app) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.router != nil {
		a.router.Stop()
	}
	if a.windows != nil {
		a.windows.Close()
	}
	if a.historyDB != nil {
		a.historyDB.Close()
	}
}
