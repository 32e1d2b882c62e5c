package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/haukened/psl-verify/internal/psl/common/log"
	"github.com/haukened/psl-verify/internal/psl/config"
	"github.com/haukened/psl-verify/internal/psl/gateways/dnsproof"
	"github.com/haukened/psl-verify/internal/psl/repos/proofcache"
	"github.com/haukened/psl-verify/internal/psl/repos/rules"
	"github.com/haukened/psl-verify/internal/psl/services/verifier"
)

const (
	version = "0.1.0-dev"
	appName = "psl-verify"

	usage = "usage: psl-verify <current_rules_file> <pull_request_rules_file> <pr_id>"

	exitOK     = 0
	exitFailed = 1
	exitFatal  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one verification pass and returns the process exit code:
// 0 when every changed rule verified, 1 when any rule failed, 2 on
// configuration, file or resolver errors.
func run(args []string, out io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n%s\n", err, usage)
		return exitFatal
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		return exitFatal
	}

	log.Info(map[string]any{
		"version":      version,
		"current":      cfg.CurrentFile,
		"pull_request": cfg.PullRequestFile,
		"pr_id":        cfg.PullRequestID,
	}, "Checking public suffix list changes")

	v, err := buildVerifier(cfg, out)
	if err != nil {
		log.Error(map[string]any{"error": err}, "Failed to build verifier")
		return exitFatal
	}

	report, err := verify(cfg, v)
	if err != nil {
		log.Error(map[string]any{"error": err}, "Verification aborted")
		return exitFatal
	}

	log.Info(map[string]any{
		"removed": report.Removed,
		"added":   report.Added,
		"failed":  report.Failed,
	}, "Verification finished")

	return exitCode(report)
}

// buildVerifier wires the DNS gateway, the answer cache and the
// verifier service from the loaded configuration.
func buildVerifier(cfg *config.AppConfig, out io.Writer) (*verifier.Verifier, error) {
	resolver := dnsproof.New(dnsproof.Options{
		Servers: cfg.Nameservers,
		Timeout: cfg.Timeout,
	})

	opts := verifier.Options{
		Resolver: resolver,
		Logger:   log.GetLogger(),
		Out:      out,
	}

	if !cfg.DisableCache {
		cache, err := proofcache.New(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to build answer cache: %w", err)
		}
		opts.Cache = cache
	}

	return verifier.New(opts)
}

// verify loads both rule sets and runs the proof checks under a
// signal-cancellable context.
func verify(cfg *config.AppConfig, v *verifier.Verifier) (verifier.Report, error) {
	logger := log.GetLogger()

	before, err := rules.Load(cfg.CurrentFile, logger)
	if err != nil {
		return verifier.Report{}, err
	}
	after, err := rules.Load(cfg.PullRequestFile, logger)
	if err != nil {
		return verifier.Report{}, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return v.Run(ctx, before, after, cfg.PullRequestID)
}

// exitCode maps a completed report to the process exit status.
func exitCode(report verifier.Report) int {
	if report.OK() {
		return exitOK
	}
	return exitFailed
}
