package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrNoDocuments is returned when no search path holds a catalog document.
var ErrNoDocuments = errors.New("no catalog documents found")

// Loader reads catalog documents (.json, .yaml, .yml, .toml) from a list of
// search paths. Paths may name directories or single files.
type Loader struct {
	validator   *SchemaValidator
	searchPaths []string
	logger      *zap.Logger
}

func NewLoader(searchPaths []string, logger *zap.Logger) (*Loader, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{
		validator:   validator,
		searchPaths: searchPaths,
		logger:      logger,
	}, nil
}

func (l *Loader) SearchPaths() []string {
	return append([]string(nil), l.searchPaths...)
}

// LoadProducts merges the products of every valid document. Documents that
// fail to parse or validate are skipped and logged.
func (l *Loader) LoadProducts() ([]ExternalProduct, error) {
	files := l.documentFiles()
	if len(files) == 0 {
		return nil, fmt.Errorf("%w (searched in: %v)", ErrNoDocuments, l.searchPaths)
	}

	products := make([]ExternalProduct, 0)
	loaded := 0
	for _, path := range files {
		doc, err := l.LoadFile(path)
		if err != nil {
			l.logger.Error("Skipping catalog document",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		loaded++
		products = append(products, doc.Products...)

		l.logger.Debug("Catalog document loaded",
			zap.String("path", path),
			zap.String("version", doc.Version),
			zap.Int("products", len(doc.Products)))
	}

	if loaded == 0 {
		return nil, fmt.Errorf("%w: all %d documents were rejected", ErrNoDocuments, len(files))
	}

	return products, nil
}

// LoadFile decodes and validates one catalog document.
func (l *Loader) LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	jsonData, err := DecodeDocument(path, data)
	if err != nil {
		return nil, err
	}

	if err := l.validator.ValidateDocument(jsonData); err != nil {
		return nil, fmt.Errorf("validation failed for %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return &doc, nil
}

func (l *Loader) documentFiles() []string {
	files := make([]string, 0)

	for _, searchPath := range l.searchPaths {
		info, err := os.Stat(searchPath)
		if err != nil {
			l.logger.Warn("Catalog search path not found", zap.String("path", searchPath))
			continue
		}

		if !info.IsDir() {
			if isDocument(searchPath) {
				files = append(files, searchPath)
			}
			continue
		}

		entries, err := os.ReadDir(searchPath)
		if err != nil {
			l.logger.Error("Failed to read catalog directory",
				zap.String("path", searchPath),
				zap.Error(err))
			continue
		}

		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if !entry.IsDir() && isDocument(entry.Name()) {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			files = append(files, filepath.Join(searchPath, name))
		}
	}

	return files
}

func isDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

// DecodeDocument converts a YAML, TOML or JSON document to JSON so every
// format goes through the same schema check and struct decoding.
func DecodeDocument(path string, data []byte) ([]byte, error) {
	var generic any

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return data, nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		var table map[string]any
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		generic = table
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", path)
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s to JSON: %w", path, err)
	}
	return out, nil
}
