// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"strata/internal/config"
	"strata/internal/issue"
	"strata/internal/loader"
	"strata/internal/partition"
	"strata/internal/registry"
	"strata/internal/services"
	"strata/internal/staging"
)

// App wires the plugin pipeline for one CLI invocation: config, boot
// partition, staging area, registry, service directory, and loader.
type App struct {
	Config    *config.Config
	Boot      *partition.Partition
	Staging   *staging.Manager
	Registry  *registry.Registry
	Directory *services.Directory
	Loader    *loader.Loader
}

// newApp loads configuration and initializes the pipeline. Failure to create
// the staging working directory aborts initialization entirely: there is no
// plugin system without it.
func newApp(ctx context.Context) (*App, error) {
	cfg, cfgPath, err := config.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(cfgFile).
			WithSuggestion("Check the CUE syntax and schema of your config file").
			WithSuggestion("Run 'strata --help' for config file locations").
			Wrap(err).
			BuildError()
	}
	if cfgPath != "" {
		slog.Debug("loaded configuration", "path", cfgPath)
	}
	if len(cfg.Locations) == 0 {
		slog.Warn("no watched locations configured; only the boot partition will be active")
	}

	boot, err := partition.NewBoot(nil)
	if err != nil {
		return nil, issue.WrapWithOperation(err, "construct boot partition")
	}

	stagingMgr, err := staging.NewManager(slog.Default())
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("create staging working directory").
			WithSuggestion("Check free space and permissions on the system temp directory").
			Wrap(err).
			BuildError()
	}

	reg := registry.New(boot)
	dir := services.NewDirectory(slog.Default())

	ld := loader.New(loader.Options{
		Logger:    slog.Default(),
		Locations: cfg.Locations,
		Staging:   stagingMgr,
		Registry:  reg,
		Boot:      boot,
		Notifier:  dir,
	})

	return &App{
		Config:    cfg,
		Boot:      boot,
		Staging:   stagingMgr,
		Registry:  reg,
		Directory: dir,
		Loader:    ld,
	}, nil
}

// Close releases the staging working directory.
func (a *App) Close() {
	if err := a.Staging.Remove(); err != nil {
		slog.Warn("remove staging working directory", "error", err)
	}
}

// reportError prints a pipeline error to stderr, with suggestions when the
// error carries them and catalog guidance when one matches. Verbose mode
// adds the full error chain and renders the catalog entry's markdown.
func reportError(err error) {
	var actionable *issue.ActionableError
	if errors.As(err, &actionable) {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗")+" "+actionable.Format(verbose))
	} else {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗")+" "+err.Error())
	}

	if known := issue.For(err); known != nil && verbose {
		if rendered, renderErr := known.Render("auto"); renderErr == nil {
			fmt.Fprintln(os.Stderr, rendered)
		}
	}
}
