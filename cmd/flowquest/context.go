package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"flowquest/internal/config"
	"flowquest/internal/logging"
	"flowquest/internal/quest"
	"flowquest/internal/queststore"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// openService wires the quest service for one command invocation. Logs go to
// the log file only so command output stays clean.
func (c *commandContext) openService() (*quest.Service, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.Paths.LogDir, "flowquest.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: logFile,
	})
	if err != nil {
		_ = logFile.Close()
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}

	store, err := queststore.Open(cfg)
	if err != nil {
		_ = logFile.Close()
		return nil, nil, err
	}

	svc := quest.NewService(cfg, store, logger)
	cleanup := func() {
		_ = store.Close()
		_ = logFile.Close()
	}
	return svc, cleanup, nil
}
