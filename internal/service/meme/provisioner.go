package meme

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"go.uber.org/zap"
)

// ProvisionResult reports how the engine was made available.
type ProvisionResult struct {
	Detected  bool
	Installed bool
	Started   bool
}

// Provisioner makes the external engine reachable: detect, then at most one
// install attempt, then detect again.
type Provisioner interface {
	Provision(ctx context.Context) (ProvisionResult, error)
}

// CommandRunner runs an external command. Tests replace it.
type CommandRunner interface {
	Run(ctx context.Context, env []string, name string, args ...string) error
	Start(env []string, name string, args ...string) (stop func() error, err error)
	LookPath(name string) (string, error)
}

type ProvisionerConfig struct {
	AutoInstall  bool
	StartServer  bool
	TemplatesDir string
	PythonBin    string
	StartupWait  time.Duration
}

// EngineProvisioner installs meme-generator with uv or pip and can start `meme run`.
type EngineProvisioner struct {
	engine Engine
	runner CommandRunner
	cfg    ProvisionerConfig
	logger *zap.Logger

	mu        sync.Mutex
	attempted bool
	stop      func() error
}

func NewEngineProvisioner(engine Engine, runner CommandRunner, cfg ProvisionerConfig, logger *zap.Logger) *EngineProvisioner {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.PythonBin == "" {
		cfg.PythonBin = "python3"
	}
	if cfg.StartupWait <= 0 {
		cfg.StartupWait = 15 * time.Second
	}
	return &EngineProvisioner{
		engine: engine,
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
}

func (p *EngineProvisioner) Provision(ctx context.Context) (ProvisionResult, error) {
	if err := p.engine.Ping(ctx); err == nil {
		return ProvisionResult{Detected: true}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.attempted {
		return ProvisionResult{}, fmt.Errorf("meme engine not reachable and provisioning was already attempted")
	}
	p.attempted = true

	var result ProvisionResult

	if !p.cfg.AutoInstall && !p.cfg.StartServer {
		p.logger.Warn("meme-generator is not reachable; install it with `pip install meme-generator` and run `meme run`, or set MEME_AUTO_INSTALL=true")
		return result, fmt.Errorf("meme engine not reachable")
	}

	if _, err := p.runner.LookPath("meme"); err != nil {
		if !p.cfg.AutoInstall {
			return result, fmt.Errorf("meme-generator is not installed: %w", err)
		}
		if err := p.install(ctx); err != nil {
			return result, err
		}
		result.Installed = true
	}

	if p.cfg.StartServer {
		if err := p.startServer(); err != nil {
			return result, err
		}
		result.Started = true
	}

	if err := p.waitReachable(ctx); err != nil {
		return result, err
	}
	result.Detected = true
	return result, nil
}

// Stop terminates a server started by Provision.
func (p *EngineProvisioner) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop == nil {
		return nil
	}
	err := p.stop()
	p.stop = nil
	return err
}

func (p *EngineProvisioner) install(ctx context.Context) error {
	installCtx, cancel := context.WithTimeout(ctx, constants.MemeConfig.InstallCommandTimeout)
	defer cancel()

	if _, err := p.runner.LookPath("uv"); err == nil {
		p.logger.Info("Installing meme-generator with uv pip")
		if err := p.runner.Run(installCtx, nil, "uv", "pip", "install", "meme-generator"); err != nil {
			p.logger.Error("meme-generator install failed", zap.String("installer", "uv"), zap.Error(err))
			return errors.NewServiceError("uv pip install meme-generator failed", "meme-provisioner", "install", err)
		}
	} else {
		p.logger.Info("Installing meme-generator with pip")
		if err := p.runner.Run(installCtx, nil, p.cfg.PythonBin, "-m", "pip", "install", "meme-generator"); err != nil {
			p.logger.Error("meme-generator install failed", zap.String("installer", "pip"), zap.Error(err))
			return errors.NewServiceError("pip install meme-generator failed", "meme-provisioner", "install", err)
		}
	}

	p.logger.Info("meme-generator installed")
	return nil
}

func (p *EngineProvisioner) startServer() error {
	var env []string
	if dir := p.cfg.TemplatesDir; dir != "" {
		env = append(env, "MEME_HOME="+dir)
	}

	stop, err := p.runner.Start(env, "meme", "run")
	if err != nil {
		p.logger.Error("Failed to start meme-generator server", zap.Error(err))
		return errors.NewServiceError("failed to start meme run", "meme-provisioner", "start", err)
	}
	p.stop = stop
	p.logger.Info("meme-generator server started", zap.String("templates_dir", p.cfg.TemplatesDir))
	return nil
}

func (p *EngineProvisioner) waitReachable(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.StartupWait)
	defer cancel()

	ticker := time.NewTicker(constants.MemeConfig.DetectionProbeInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = p.engine.Ping(waitCtx); lastErr == nil {
			return nil
		}
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("meme engine still not reachable after provisioning: %w", lastErr)
		case <-ticker.C:
		}
	}
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (ExecRunner) Start(env []string, name string, args ...string) (func() error, error) {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return func() error {
		if err := cmd.Process.Kill(); err != nil {
			return err
		}
		_ = cmd.Wait()
		return nil
	}, nil
}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
