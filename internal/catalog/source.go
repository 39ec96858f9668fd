package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
)

// Stats describe el catálogo cargado
type Stats struct {
	Location        string `json:"csv_file_path"`
	TotalReferences int    `json:"total_bike_references"`
	TotalRows       int    `json:"total_rows"`
	Exists          bool   `json:"file_exists"`
}

// tracker guarda las estadísticas de la última carga
type tracker struct {
	mu      sync.RWMutex
	current Stats
}

func (t *tracker) record(parsed Parsed) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.TotalReferences = len(parsed.References)
	t.current.TotalRows = parsed.Rows
}

func (t *tracker) snapshot() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// FileSource lee el catálogo de un archivo local.
type FileSource struct {
	Path   string
	logger *zap.Logger
	stats  tracker
}

func NewFileSource(path string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileSource{Path: path, logger: logger.With(zap.String("component", "catalog"))}
	s.stats.current.Location = path
	return s
}

func (s *FileSource) LoadReferences(ctx context.Context) ([]string, error) {
	s.logger.Info("loading bike references", zap.String("path", s.Path))

	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.ErrConfiguration("catalog file not found: "+s.Path, err)
		}
		return nil, apperrors.ErrConfiguration("cannot open catalog file "+s.Path, err)
	}
	defer f.Close()

	parsed, err := ParseCSV(f)
	if err != nil {
		s.logger.Error("failed to load bike references", zap.Error(err))
		return nil, apperrors.ErrDataQuality("catalog "+s.Path, err)
	}
	s.stats.record(parsed)
	logLoaded(s.logger, parsed)
	return parsed.References, nil
}

func (s *FileSource) Stats() Stats {
	stats := s.stats.snapshot()
	if _, err := os.Stat(s.Path); err == nil {
		stats.Exists = true
	}
	return stats
}

// RemoteSource descarga el catálogo por HTTP a un temporal en cada carga. El temporal
// se borra al terminar la carga; Close elimina el directorio de trabajo.
type RemoteSource struct {
	URL    string
	Token  string
	client *http.Client
	logger *zap.Logger
	stats  tracker

	mu      sync.Mutex
	workDir string
	loaded  bool
}

func NewRemoteSource(url, token string, timeout time.Duration, logger *zap.Logger) *RemoteSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RemoteSource{
		URL:    url,
		Token:  token,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "catalog")),
	}
	s.stats.current.Location = url
	return s
}

func (s *RemoteSource) LoadReferences(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.download(ctx)
	if err != nil {
		s.logger.Error("failed to download catalog", zap.String("url", s.URL), zap.Error(err))
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("could not remove temporary catalog file", zap.String("path", path), zap.Error(err))
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.ErrInternal("open downloaded catalog", err)
	}
	defer f.Close()

	parsed, err := ParseCSV(f)
	if err != nil {
		return nil, apperrors.ErrDataQuality("catalog "+s.URL, err)
	}
	s.stats.record(parsed)
	s.loaded = true
	logLoaded(s.logger, parsed)
	return parsed.References, nil
}

// download deja el cuerpo en un temporal dentro de workDir y devuelve su ruta.
func (s *RemoteSource) download(ctx context.Context) (string, error) {
	if s.workDir == "" {
		dir, err := os.MkdirTemp("", "holded-catalog-*")
		if err != nil {
			return "", apperrors.ErrInternal("create catalog work dir", err)
		}
		s.workDir = dir
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return "", apperrors.ErrConfiguration("invalid CATALOG_URL", err)
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	s.logger.Info("downloading catalog", zap.String("url", s.URL))
	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperrors.ErrTransport("catalog download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.ErrExternalAPI(resp.StatusCode, fmt.Sprintf("catalog download returned %d", resp.StatusCode), nil)
	}

	tmp, err := os.CreateTemp(s.workDir, "catalog-*.csv")
	if err != nil {
		return "", apperrors.ErrInternal("create temporary catalog file", err)
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if copyErr != nil {
			return "", apperrors.ErrTransport("catalog download body", copyErr)
		}
		return "", apperrors.ErrInternal("write temporary catalog file", closeErr)
	}

	s.logger.Debug("catalog downloaded", zap.String("path", tmp.Name()), zap.Int64("bytes", n))
	return tmp.Name(), nil
}

func (s *RemoteSource) Stats() Stats {
	stats := s.stats.snapshot()
	s.mu.Lock()
	stats.Exists = s.loaded
	s.mu.Unlock()
	return stats
}

// Close elimina el directorio de trabajo. Es idempotente.
func (s *RemoteSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workDir == "" {
		return nil
	}
	dir := s.workDir
	s.workDir = ""
	return os.RemoveAll(dir)
}

func logLoaded(logger *zap.Logger, parsed Parsed) {
	logger.Info("loaded bike references",
		zap.Int("references", len(parsed.References)),
		zap.Int("rows", parsed.Rows),
	)
	if parsed.Skipped > 0 {
		logger.Warn("skipped unreadable catalog rows", zap.Int("skipped", parsed.Skipped))
	}
	if len(parsed.References) > 0 {
		sample := parsed.References
		if len(sample) > 5 {
			sample = sample[:5]
		}
		logger.Debug("sample bike references", zap.Strings("sample", sample))
	}
}
