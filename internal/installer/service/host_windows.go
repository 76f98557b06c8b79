//go:build windows

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/terassyi/fbinstall/internal/installer/command"
)

// ForHost returns the service control manager.
func ForHost(command.Runner) Manager {
	return NewSCM()
}

// SCM manages services through the Windows service control manager.
type SCM struct {
	pollInterval time.Duration
}

var _ Manager = (*SCM)(nil)

// NewSCM returns an SCM manager.
func NewSCM() *SCM {
	return &SCM{pollInterval: 300 * time.Millisecond}
}

// open connects and opens name. A missing service yields a nil service.
func (m *SCM) open(name string) (*mgr.Mgr, *mgr.Service, error) {
	conn, err := mgr.Connect()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to service manager: %w", err)
	}
	s, err := conn.OpenService(name)
	if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
		return conn, nil, nil
	}
	if err != nil {
		conn.Disconnect()
		return nil, nil, fmt.Errorf("failed to open service %s: %w", name, err)
	}
	return conn, s, nil
}

func (m *SCM) with(name string, missingOK bool, fn func(*mgr.Service) (bool, error)) (bool, error) {
	conn, s, err := m.open(name)
	if err != nil {
		return false, err
	}
	defer conn.Disconnect()
	if s == nil {
		if missingOK {
			return false, nil
		}
		return false, fmt.Errorf("service %s is not installed", name)
	}
	defer s.Close()
	return fn(s)
}

func (m *SCM) wait(ctx context.Context, s *mgr.Service, want svc.State) error {
	for {
		st, err := s.Query()
		if err != nil {
			return err
		}
		if st.State == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

// Start starts the service unless it is running.
func (m *SCM) Start(ctx context.Context, name string) (bool, error) {
	return m.with(name, false, func(s *mgr.Service) (bool, error) {
		st, err := s.Query()
		if err != nil {
			return false, err
		}
		if st.State == svc.Running {
			return false, nil
		}
		slog.Debug("starting service", "name", name)
		if err := s.Start(); err != nil {
			return false, fmt.Errorf("failed to start %s: %w", name, err)
		}
		return true, m.wait(ctx, s, svc.Running)
	})
}

// Stop stops the service if it is running.
func (m *SCM) Stop(ctx context.Context, name string) (bool, error) {
	return m.with(name, true, func(s *mgr.Service) (bool, error) {
		st, err := s.Query()
		if err != nil {
			return false, err
		}
		if st.State == svc.Stopped {
			return false, nil
		}
		slog.Debug("stopping service", "name", name)
		if _, err := s.Control(svc.Stop); err != nil {
			return false, fmt.Errorf("failed to stop %s: %w", name, err)
		}
		return true, m.wait(ctx, s, svc.Stopped)
	})
}

func (m *SCM) setStartType(name string, startType uint32, missingOK bool) (bool, error) {
	return m.with(name, missingOK, func(s *mgr.Service) (bool, error) {
		cfg, err := s.Config()
		if err != nil {
			return false, err
		}
		if cfg.StartType == startType {
			return false, nil
		}
		cfg.StartType = startType
		if err := s.UpdateConfig(cfg); err != nil {
			return false, fmt.Errorf("failed to configure %s: %w", name, err)
		}
		return true, nil
	})
}

// Enable sets the service to start automatically.
func (m *SCM) Enable(_ context.Context, name string) (bool, error) {
	return m.setStartType(name, mgr.StartAutomatic, false)
}

// Disable sets the service to disabled.
func (m *SCM) Disable(_ context.Context, name string) (bool, error) {
	return m.setStartType(name, mgr.StartDisabled, true)
}

// Restart stops the service if needed and starts it again.
func (m *SCM) Restart(ctx context.Context, name string) (bool, error) {
	if _, err := m.Stop(ctx, name); err != nil {
		return false, err
	}
	if _, err := m.Start(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}
