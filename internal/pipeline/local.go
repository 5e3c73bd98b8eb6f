package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/rgwscan/internal/model"
)

// FileLoader reads logs from the local filesystem.
type FileLoader struct{}

// Fetch reads path into a LogFile.
func (FileLoader) Fetch(ctx context.Context, path string) (*model.LogFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	file := &model.LogFile{
		URL: path,
		Raw: data,
	}
	file.ComputeHash()
	return file, nil
}
