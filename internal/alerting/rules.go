package alerting

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platformbuilds/vigil-core/internal/models"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

// RulesFile is the on-disk definition of alert rules and notification
// channels.
type RulesFile struct {
	Rules    []models.AlertRule           `yaml:"rules"`
	Channels []models.NotificationChannel `yaml:"channels"`
}

// LoadRulesFile parses and validates a rules/channels YAML file.
func LoadRulesFile(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rf RulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(rf.Rules))
	for i, r := range rf.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rules file %s: rule %d has no id", path, i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("rules file %s: duplicate rule id %q", path, r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.Severity != "" && !models.ValidSeverity(r.Severity) {
			return nil, fmt.Errorf("rules file %s: rule %q has invalid severity %q", path, r.ID, r.Severity)
		}
	}
	return &rf, nil
}

// RulesWatcher hot-reloads the rules file into the manager whenever it
// changes on disk. A failed reload keeps the previous rule set.
type RulesWatcher struct {
	path    string
	manager *Manager
	logger  logger.Logger
}

func NewRulesWatcher(path string, manager *Manager, log logger.Logger) *RulesWatcher {
	return &RulesWatcher{path: path, manager: manager, logger: log}
}

// Start blocks watching the rules file until ctx is cancelled.
func (w *RulesWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch rules file: %w", err)
	}

	w.logger.Info("Rules watcher started", "path", w.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Info("Rules file changed, reloading", "file", event.Name)
			rf, err := LoadRulesFile(w.path)
			if err != nil {
				w.logger.Error("Failed to reload rules file; keeping previous rules", "error", err)
				continue
			}
			w.manager.ReplaceRules(rf.Rules)
			w.manager.ReplaceChannels(rf.Channels)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Rules watcher error", "error", err)

		case <-ctx.Done():
			w.logger.Info("Rules watcher stopping")
			return nil
		}
	}
}
