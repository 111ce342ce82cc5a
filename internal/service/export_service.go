package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rescuedash/shelter-dashboard/internal/audit"
	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/internal/repository"
	"github.com/rescuedash/shelter-dashboard/pkg/log"
	"github.com/rescuedash/shelter-dashboard/pkg/storage"
)

const (
	// ExportPrefix is the storage prefix of archived exports.
	ExportPrefix = "exports/"

	// exportSearchLimit bounds text-search exports; it matches the default
	// Elasticsearch result window.
	exportSearchLimit = 10000

	csvContentType = "text/csv"
)

type exportServiceImpl struct {
	repo      repository.RecordRepository
	search    repository.SearchRepository
	store     storage.Storage
	urlExpiry time.Duration
	now       func() time.Time
}

// NewExportService creates a new export service. Text-search exports go
// straight to the search provider and bypass the result cache.
func NewExportService(repo repository.RecordRepository, search repository.SearchRepository, store storage.Storage, urlExpiry time.Duration) ExportService {
	if urlExpiry <= 0 {
		urlExpiry = 15 * time.Minute
	}
	return &exportServiceImpl{
		repo:      repo,
		search:    search,
		store:     store,
		urlExpiry: urlExpiry,
		now:       time.Now,
	}
}

// ExportCSV renders the records of a text search, or of a rescue preset when
// search is blank, as CSV.
func (s *exportServiceImpl) ExportCSV(ctx context.Context, rescue domain.RescueType, search string) (*domain.CSVExport, error) {
	if rescue == "" {
		rescue = domain.RescueAll
	}

	var (
		records []domain.Record
		err     error
	)
	if q := strings.TrimSpace(search); q != "" {
		records, err = s.search.Search(ctx, q, exportSearchLimit)
	} else {
		records, err = s.repo.List(ctx, domain.FilterFor(rescue), 0)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	data, err := renderCSV(records)
	if err != nil {
		return nil, err
	}

	return &domain.CSVExport{
		Filename: ExportFilename(rescue),
		Data:     data,
		Rows:     len(records),
	}, nil
}

// Archive renders an export and stores it in the export archive.
func (s *exportServiceImpl) Archive(ctx context.Context, rescue domain.RescueType, search string) (*domain.ExportFile, error) {
	l := log.Ctx(ctx)

	export, err := s.ExportCSV(ctx, rescue, search)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s%s_%s", ExportPrefix, s.now().UTC().Format("20060102T150405Z"), export.Filename)
	size := int64(len(export.Data))

	if err := s.store.Write(ctx, key, bytes.NewReader(export.Data), size, csvContentType); err != nil {
		return nil, fmt.Errorf("failed to archive export: %w", err)
	}

	file := &domain.ExportFile{Name: strings.TrimPrefix(key, ExportPrefix), Key: key, Size: size, LastModified: s.now().UTC()}
	if url, err := s.store.GetURL(ctx, key, s.urlExpiry); err != nil {
		l.Warn().Err(err).Str("key", key).Msg("failed to build export url")
	} else {
		file.URL = url
	}

	audit.LogWithDetail(ctx, audit.ActionCreateExport, key, strconv.Itoa(export.Rows)+" rows", "export archived")
	return file, nil
}

// ListArchived lists archived exports, newest first.
func (s *exportServiceImpl) ListArchived(ctx context.Context) ([]domain.ExportFile, error) {
	files, err := s.store.List(ctx, ExportPrefix)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ExportFile, 0, len(files))
	for _, f := range files {
		out = append(out, domain.ExportFile{
			Name:         strings.TrimPrefix(f.Key, ExportPrefix),
			Key:          f.Key,
			Size:         f.Size,
			LastModified: f.LastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.After(out[j].LastModified)
		}
		return out[i].Key > out[j].Key
	})
	return out, nil
}

// OpenArchived opens an archived export by name for reading. The caller closes it.
func (s *exportServiceImpl) OpenArchived(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := exportKey(name)
	if err != nil {
		return nil, err
	}

	rc, err := s.store.Read(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}
	return rc, nil
}

// DeleteArchived removes an archived export by name.
func (s *exportServiceImpl) DeleteArchived(ctx context.Context, name string) error {
	key, err := exportKey(name)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrExportNotFound
		}
		return err
	}

	audit.Log(ctx, audit.ActionDeleteExport, key, "export deleted")
	return nil
}

// ExportFilename is the download name for a rescue preset export.
func ExportFilename(rescue domain.RescueType) string {
	return "animal_shelter_data_" + strings.ReplaceAll(string(rescue), " ", "_") + ".csv"
}

// exportKey maps an export name to its storage key. Names are single path
// segments ending in .csv.
func exportKey(name string) (string, error) {
	if name == "" || !strings.HasSuffix(name, ".csv") || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", ErrInvalidExport
	}
	return ExportPrefix + name, nil
}

// renderCSV writes records with a header made of the sorted union of their
// fields, id excluded. Missing and null values become empty cells.
func renderCSV(records []domain.Record) ([]byte, error) {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	delete(seen, domain.FieldID)

	headers := make([]string, 0, len(seen))
	for k := range seen {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, err
	}

	row := make([]string, len(headers))
	for _, rec := range records {
		for i, h := range headers {
			row[i] = cell(rec[h])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
