package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"opine/internal/config"
	"opine/internal/daemonctl"
	"opine/internal/respstore"
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
		if path == "" {
			path = strings.TrimSpace(os.Getenv("OPINE_CONFIG"))
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

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// withClient runs fn against the daemon control API, translating
// connection failures into actionable errors.
func (c *commandContext) withClient(fn func(*daemonctl.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	client, err := daemonctl.NewClient(cfg)
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("api_bind is not configured; set [paths] api_bind in the config")
	}
	if err := fn(client); err != nil {
		return wrapConnectError(err, cfg.Paths.APIBind)
	}
	return nil
}

// withStore opens the response store directly for commands that work
// without a running daemon.
func (c *commandContext) withStore(cmd *cobra.Command, fn func(respstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := respstore.Open(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open response store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func wrapConnectError(err error, bind string) error {
	if err == nil {
		return nil
	}
	if daemonctl.IsUnavailable(err) {
		return fmt.Errorf("connect to daemon at %s: %w; start the daemon with `opine start`", bind, err)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
