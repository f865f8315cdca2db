package main

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"packsmith/internal/config"
	"packsmith/internal/library"
	"packsmith/internal/search"
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
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
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

func (c *commandContext) withLibrary(fn func(*library.Library) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lib, err := library.Open(cfg.Library.Path)
	if err != nil {
		return err
	}
	defer lib.Close()
	return fn(lib)
}

func (c *commandContext) searchClient(logger *log.Logger) (*search.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return search.New(search.Config{
		ITunesURL:  cfg.Search.ITunesURL,
		AerionURL:  cfg.Search.AerionURL,
		Limit:      cfg.Search.Limit,
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.Search.TimeoutSec) * time.Second},
		Logger:     logger,
	})
}
