package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrCorrupt marks a stored record that exists but cannot be decoded. It is
// distinct from the absent case, which is not an error at all.
var ErrCorrupt = errors.New("stored project record is corrupt")

// Store is the persistence capability handed to the studio. Loading a name
// that was never saved returns (nil, nil).
type Store interface {
	Save(ctx context.Context, record *Record) error
	Load(ctx context.Context, name string) (*Record, error)
	List(ctx context.Context, filter string) ([]*Record, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Save(ctx context.Context, record *Record) error {
	if strings.TrimSpace(record.ProjectName) == "" {
		return fmt.Errorf("project name is required")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}

	if err := s.repo.SaveProject(ctx, record.ProjectName, string(data)); err != nil {
		return fmt.Errorf("save project %q: %w", record.ProjectName, err)
	}

	if s.logger != nil {
		s.logger.Info("project saved", "name", record.ProjectName, "scenes", len(record.Scenes))
	}
	return nil
}

func (s *Service) Load(ctx context.Context, name string) (*Record, error) {
	data, found, err := s.repo.GetProject(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load project %q: %w", name, err)
	}
	if !found {
		return nil, nil
	}

	var record Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCorrupt, name, err)
	}
	return &record, nil
}

// List returns saved projects whose name or tags contain the filter,
// case-insensitively. An empty filter matches everything. Corrupt rows are
// skipped rather than failing the listing.
func (s *Service) List(ctx context.Context, filter string) ([]*Record, error) {
	payloads, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	needle := strings.ToLower(filter)
	var records []*Record
	for _, data := range payloads {
		var record Record
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping corrupt project record", "error", err)
			}
			continue
		}
		if needle != "" && !matches(&record, needle) {
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

func matches(record *Record, needle string) bool {
	if strings.Contains(strings.ToLower(record.ProjectName), needle) {
		return true
	}
	for _, tag := range record.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
