package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SyncResult tallies what SyncWorkflowFiles did across a directory.
type SyncResult struct {
	FilesProcessed int
	Synced         []string
	Errors         []SyncError
}

// SyncError names the file a sync failure happened against.
type SyncError struct {
	FilePath string
	Error    string
}

// authoringFile is the thin envelope a *.json workflow file carries
// around its authoring graph: name/description/owner/triggers live
// alongside the node/edge graph FromAuthoring canonicalises.
type authoringFile struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Owner       string          `json:"owner"`
	Triggers    []string        `json:"triggers"`
	Graph       json.RawMessage `json:"graph"`
}

// yamlAuthoringFile mirrors authoringFile for YAML sources: yaml.v3
// unmarshals a mapping node into interface{} as map[string]interface{},
// so Graph is decoded generically here and re-marshalled to JSON for
// FromAuthoring rather than read directly into json.RawMessage (which
// yaml.v3 cannot decode a mapping node into).
type yamlAuthoringFile struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Owner       string      `yaml:"owner"`
	Triggers    []string    `yaml:"triggers"`
	Graph       interface{} `yaml:"graph"`
}

// SyncWorkflowFiles loads every *.json/*.yaml workflow file under dir and
// upserts it into the catalog by name, so definitions can be seeded from
// source control rather than authored only through the API.
func (s *WorkflowStore) SyncWorkflowFiles(ctx context.Context, dir string) (*SyncResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read workflow directory %s: %w", dir, err)
	}

	result := &SyncResult{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		result.FilesProcessed++

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, SyncError{FilePath: path, Error: err.Error()})
			continue
		}

		var file authoringFile
		if ext == ".json" {
			err = json.Unmarshal(raw, &file)
		} else {
			var yf yamlAuthoringFile
			if err = yaml.Unmarshal(raw, &yf); err == nil {
				file.Name, file.Description, file.Owner, file.Triggers = yf.Name, yf.Description, yf.Owner, yf.Triggers
				file.Graph, err = json.Marshal(yf.Graph)
			}
		}
		if err != nil {
			result.Errors = append(result.Errors, SyncError{FilePath: path, Error: fmt.Sprintf("parse: %v", err)})
			continue
		}
		if file.Name == "" {
			file.Name = strings.TrimSuffix(entry.Name(), ext)
		}

		if _, err := s.SaveFromAuthoring(ctx, file.Name, file.Description, file.Owner, file.Triggers, file.Graph); err != nil {
			result.Errors = append(result.Errors, SyncError{FilePath: path, Error: err.Error()})
			continue
		}
		result.Synced = append(result.Synced, file.Name)
	}
	return result, nil
}
