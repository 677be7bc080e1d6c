package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"

	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/dao"
	"github.com/hexsim/hexsim/service/dao/criteria"
)

// Service implements a filesystem-backed process store. Records are JSON
// documents addressed by process id; the afs abstraction lets the base path
// point at local disk, memory or cloud storage alike.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ dao.Service[string, model.Process] = (*Service)(nil)

func (s *Service) Save(ctx context.Context, p *model.Process) error {
	if p == nil {
		return dao.ErrNilEntity
	}
	if p.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal process: %w", err)
	}
	location := s.processPath(p.ID)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save process to %s: %w", location, err)
	}
	return nil
}

func (s *Service) Load(ctx context.Context, id string) (*model.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	location := s.processPath(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check process %s: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read process %s: %w", id, err)
	}
	var p model.Process
	if err = json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal process %s: %w", id, err)
	}
	return &p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	location := s.processPath(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check process %s: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err = s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("failed to delete process %s: %w", id, err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var out []*model.Process
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.DownloadWithURL(ctx, object.URL())
		if err != nil {
			continue
		}
		var p model.Process
		if err = json.Unmarshal(data, &p); err != nil {
			continue
		}
		if criteria.MatchProcess(&p, parameters) {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (s *Service) processPath(id string) string {
	return path.Join(s.basePath, id+".json")
}

// New creates a filesystem-backed process store rooted at basePath.
func New(fs afs.Service, basePath string) *Service {
	return &Service{fs: fs, basePath: basePath}
}
