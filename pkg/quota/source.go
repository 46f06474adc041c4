package quota

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source loads the plan catalog. Plans are loaded once at service
// construction; deployments that change plans restart the process.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// StaticSource serves a fixed, copied plan map. Useful for tests and for
// deployments that configure plans in code.
type StaticSource struct {
	plans map[string]Plan
}

// NewStaticSource copies the given plans into a static source. Plan IDs
// missing from the structs are filled in from the map keys.
func NewStaticSource(plans map[string]Plan) *StaticSource {
	cp := make(map[string]Plan, len(plans))
	for id, plan := range plans {
		if plan.ID == "" {
			plan.ID = id
		}
		cp[id] = plan.clone()
	}
	return &StaticSource{plans: cp}
}

func (s *StaticSource) Load(context.Context) (map[string]Plan, error) {
	out := make(map[string]Plan, len(s.plans))
	for id, plan := range s.plans {
		out[id] = plan.clone()
	}
	return out, nil
}

// FileSource loads the plan catalog from a YAML file:
//
//	plans:
//	  - id: free
//	    limits:
//	      requests: 1000
//	      storage_bytes: 1073741824
//	      active_users: 5
//	  - id: pro
//	    request_burst: 200
//	    limits:
//	      requests: 100000
//	      storage_bytes: -1
type FileSource struct {
	path string
}

// NewFileSource returns a source reading plans from the given YAML file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Load(context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrSourceFailed, err)
	}

	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrSourceFailed, err)
	}

	plans := make(map[string]Plan, len(doc.Plans))
	for _, plan := range doc.Plans {
		if _, dup := plans[plan.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate plan %q in %s", ErrInvalidPlan, plan.ID, s.path)
		}
		plans[plan.ID] = plan
	}
	return plans, nil
}
