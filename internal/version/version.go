// Package version resolves the version a schema is published under.
//
// Providers are consulted in rank order; the first one returning a non-empty
// version wins. When none does, the version is Unknown.
package version

import (
	"context"
	"runtime/debug"
	"strings"

	"github.com/go-ini/ini"

	"github.com/koustreak/schemapub/internal/logger"
)

// Unknown is published when no provider knows the version.
const Unknown = "na"

// GitBuildVersionKey is the git.properties key holding the build version.
const GitBuildVersionKey = "git.build.version"

// Provider reports a version, or "" when it has none.
type Provider interface {
	Name() string
	Version(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context) (string, error)
}

func (p ProviderFunc) Name() string { return p.ProviderName }

func (p ProviderFunc) Version(ctx context.Context) (string, error) { return p.Fn(ctx) }

// Static always reports v. An empty v defers to the next provider.
func Static(v string) Provider {
	return ProviderFunc{ProviderName: "config", Fn: func(context.Context) (string, error) {
		return strings.TrimSpace(v), nil
	}}
}

// BuildInfo reports the main module version stamped by the Go toolchain.
// Development builds report "(devel)", which counts as no version.
func BuildInfo() Provider {
	return buildInfo(debug.ReadBuildInfo)
}

func buildInfo(read func() (*debug.BuildInfo, bool)) Provider {
	return ProviderFunc{ProviderName: "buildinfo", Fn: func(context.Context) (string, error) {
		info, ok := read()
		if !ok || info == nil {
			return "", nil
		}
		v := info.Main.Version
		if v == "(devel)" {
			return "", nil
		}
		return v, nil
	}}
}

// GitProperties reads git.build.version from a git.properties file as
// written by the git-commit-id plugin. A missing file is not an error.
func GitProperties(path string) Provider {
	return ProviderFunc{ProviderName: "git.properties", Fn: func(context.Context) (string, error) {
		if path == "" {
			return "", nil
		}
		f, err := ini.LoadSources(ini.LoadOptions{
			Loose:                   true,
			IgnoreInlineComment:     true,
			SkipUnrecognizableLines: true,
		}, path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(f.Section(ini.DefaultSection).Key(GitBuildVersionKey).String()), nil
	}}
}

// Resolver walks a ranked provider chain.
type Resolver struct {
	providers []Provider
	log       *logger.Logger
}

// NewResolver returns a Resolver consulting providers in the given order.
func NewResolver(log *logger.Logger, providers ...Provider) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{providers: providers, log: log.Component("version")}
}

// Default builds the standard chain: configured version, Go build info,
// git.properties, then Unknown.
func Default(log *logger.Logger, configured, gitPropertiesPath string) *Resolver {
	return NewResolver(log, Static(configured), BuildInfo(), GitProperties(gitPropertiesPath))
}

// Resolve returns the first non-empty version. A failing provider is logged
// and skipped so that a broken source never blocks publishing.
func (r *Resolver) Resolve(ctx context.Context) string {
	for _, p := range r.providers {
		v, err := p.Version(ctx)
		if err != nil {
			r.log.ErrorWith("version provider failed", err, map[string]any{"provider": p.Name()})
			continue
		}
		if v != "" {
			r.log.DebugWith("version resolved", map[string]any{"provider": p.Name(), "version": v})
			return v
		}
	}
	return Unknown
}
