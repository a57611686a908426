package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"account-api/internal/service"
	"account-api/internal/storage"
)

// Manager exports the full account list to object storage, on demand and on a timer.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	SnapshotNow(ctx context.Context) (string, error)
	List(ctx context.Context) ([]storage.ObjectInfo, error)
}

type Config struct {
	Bucket    string
	KeyPrefix string
	// Interval between scheduled snapshots; zero disables the timer.
	Interval time.Duration
	Logger   *logrus.Logger
	Now      func() time.Time
}

type manager struct {
	cfg      Config
	accounts service.AccountService
	storage  storage.Service

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewManager(cfg Config, accounts service.AccountService, store storage.Service) Manager {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &manager{
		cfg:      cfg,
		accounts: accounts,
		storage:  store,
	}
}

func (m *manager) Start(ctx context.Context) error {
	if m.cfg.Bucket == "" {
		return fmt.Errorf("snapshot bucket is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return fmt.Errorf("snapshot manager already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.cfg.Interval <= 0 {
		m.cfg.Logger.Info("snapshot manager started, schedule disabled")
		return nil
	}

	m.wg.Add(1)
	go m.loop(runCtx)
	m.cfg.Logger.Infof("snapshot manager started, interval %s", m.cfg.Interval)
	return nil
}

func (m *manager) Shutdown() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("snapshot manager stopped")
}

func (m *manager) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			location, err := m.SnapshotNow(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.cfg.Logger.WithError(err).Warn("scheduled snapshot failed")
				continue
			}
			m.cfg.Logger.WithField("location", location).Info("scheduled snapshot stored")
		}
	}
}

func (m *manager) SnapshotNow(ctx context.Context) (string, error) {
	accounts, err := m.accounts.FindAll(ctx)
	if err != nil {
		return "", fmt.Errorf("collect accounts: %w", err)
	}

	data, err := json.Marshal(accounts)
	if err != nil {
		return "", fmt.Errorf("encode accounts: %w", err)
	}

	key := m.objectKey(m.cfg.Now().UTC())
	location, err := m.storage.Upload(ctx, m.cfg.Bucket, key, bytes.NewReader(data), "application/json")
	if err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}

	m.cfg.Logger.WithFields(logrus.Fields{
		"accounts": len(accounts),
		"location": location,
	}).Debug("snapshot uploaded")
	return location, nil
}

func (m *manager) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	prefix := ""
	if m.cfg.KeyPrefix != "" {
		prefix = m.cfg.KeyPrefix + "/"
	}
	return m.storage.ListObjects(ctx, m.cfg.Bucket, prefix)
}

func (m *manager) objectKey(at time.Time) string {
	name := fmt.Sprintf("accounts-%s.json", at.Format("20060102T150405Z"))
	if m.cfg.KeyPrefix == "" {
		return name
	}
	return path.Join(m.cfg.KeyPrefix, name)
}
