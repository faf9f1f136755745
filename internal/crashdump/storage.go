package crashdump

import (
	"cmp"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-runewidth"

	"github.com/smykla-skalski/launchkit/internal/xdg"
)

const (
	// FilePerm is the file permission for crash dump files.
	FilePerm fs.FileMode = 0o600

	// DirPerm is the directory permission for crash dump directories.
	DirPerm fs.FileMode = 0o700

	// FileExtension is the extension for crash dump files.
	FileExtension = ".json"

	// tempPattern names in-flight writes; they never end in FileExtension.
	tempPattern = ".crash-*.partial"

	// summaryPanicWidth is the display width of panic values in listings.
	summaryPanicWidth = 80
)

var (
	// ErrDumpNotFound is returned when a crash dump is not found.
	ErrDumpNotFound = errors.New("crash dump not found")

	// ErrWriteFailed is returned when writing a crash dump fails.
	ErrWriteFailed = errors.New("failed to write crash dump")

	// ErrInvalidDumpDir is returned when the dump directory is invalid.
	ErrInvalidDumpDir = errors.New("invalid dump directory")
)

// Storage reads and prunes recorded crash dumps.
type Storage interface {
	// List returns all crash dump summaries, newest first. Unreadable files
	// are skipped.
	List() ([]DumpSummary, error)

	// Get retrieves a crash dump by ID.
	Get(id string) (*CrashInfo, error)

	// Delete removes a crash dump by ID.
	Delete(id string) error

	// Prune removes the dumps selected by Expired and returns how many went.
	Prune(maxDumps int, maxAge time.Duration) (int, error)

	// Exists reports whether the dump directory exists.
	Exists() bool
}

// FilesystemStorage keeps one JSON file per dump in a directory.
type FilesystemStorage struct {
	dumpDir string
	now     func() time.Time
}

// NewFilesystemStorage returns storage rooted at dumpDir. "~" is expanded; the
// directory is created on the first Write.
func NewFilesystemStorage(dumpDir string) (*FilesystemStorage, error) {
	if dumpDir == "" {
		return nil, errors.Wrap(ErrInvalidDumpDir, "dump directory cannot be empty")
	}

	expandedDir, err := xdg.ExpandPath(dumpDir)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDumpDir, err.Error())
	}

	return &FilesystemStorage{dumpDir: expandedDir, now: time.Now}, nil
}

// Dir returns the dump directory.
func (s *FilesystemStorage) Dir() string {
	return s.dumpDir
}

// Write stores info as <id>.json and returns the file path. The file appears
// atomically: it is written under a temporary name and renamed into place.
func (s *FilesystemStorage) Write(info *CrashInfo) (string, error) {
	if info == nil {
		return "", errors.Wrap(ErrWriteFailed, "crash info is nil")
	}

	if !validID(info.ID) {
		return "", errors.Wrapf(ErrWriteFailed, "invalid dump ID %q", info.ID)
	}

	if err := os.MkdirAll(s.dumpDir, DirPerm); err != nil {
		return "", errors.Wrap(ErrInvalidDumpDir, err.Error())
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", errors.Wrap(ErrWriteFailed, err.Error())
	}

	tmp, err := os.CreateTemp(s.dumpDir, tempPattern)
	if err != nil {
		return "", errors.Wrap(ErrWriteFailed, err.Error())
	}

	committed := false

	defer func() {
		if !committed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := writeAndSync(tmp, data); err != nil {
		return "", errors.Wrap(ErrWriteFailed, err.Error())
	}

	path := s.path(info.ID)

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errors.Wrap(ErrWriteFailed, err.Error())
	}

	committed = true

	return path, nil
}

func writeAndSync(f *os.File, data []byte) error {
	if err := f.Chmod(FilePerm); err != nil {
		_ = f.Close()

		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()

		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

// List implements Storage.
func (s *FilesystemStorage) List() ([]DumpSummary, error) {
	entries, err := os.ReadDir(s.dumpDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []DumpSummary{}, nil
		}

		return nil, errors.Wrap(err, "failed to read dump directory")
	}

	summaries := make([]DumpSummary, 0, len(entries))

	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), FileExtension) {
			continue
		}

		if summary, err := s.summarize(entry); err == nil {
			summaries = append(summaries, summary)
		}
	}

	slices.SortFunc(summaries, func(a, b DumpSummary) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return summaries, nil
}

// summaryRecord decodes only the fields a listing needs.
type summaryRecord struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	PanicValue string    `json:"panic_value"`
	Context    *struct {
		Plugin string `json:"plugin"`
	} `json:"context"`
}

func (s *FilesystemStorage) summarize(entry fs.DirEntry) (DumpSummary, error) {
	path := filepath.Join(s.dumpDir, entry.Name())

	//nolint:gosec // path is a directory entry of the dump directory
	data, err := os.ReadFile(path)
	if err != nil {
		return DumpSummary{}, err
	}

	var rec summaryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return DumpSummary{}, err
	}

	if rec.ID == "" {
		rec.ID = strings.TrimSuffix(entry.Name(), FileExtension)
	}

	summary := DumpSummary{
		ID:         rec.ID,
		Timestamp:  rec.Timestamp,
		PanicValue: runewidth.Truncate(rec.PanicValue, summaryPanicWidth, "..."),
		FilePath:   path,
		Size:       int64(len(data)),
	}

	if rec.Context != nil {
		summary.Plugin = rec.Context.Plugin
	}

	return summary, nil
}

// validID rejects IDs that would escape the dump directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

func (s *FilesystemStorage) path(id string) string {
	return filepath.Join(s.dumpDir, id+FileExtension)
}

// Get implements Storage.
func (s *FilesystemStorage) Get(id string) (*CrashInfo, error) {
	if !validID(id) {
		return nil, errors.Wrapf(ErrDumpNotFound, "ID: %s", id)
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrDumpNotFound, "ID: %s", id)
		}

		return nil, errors.Wrap(err, "failed to read dump file")
	}

	var info CrashInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrapf(err, "failed to decode dump %s", id)
	}

	return &info, nil
}

// Delete implements Storage.
func (s *FilesystemStorage) Delete(id string) error {
	if !validID(id) {
		return errors.Wrapf(ErrDumpNotFound, "ID: %s", id)
	}

	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(ErrDumpNotFound, "ID: %s", id)
		}

		return errors.Wrap(err, "failed to delete dump file")
	}

	return nil
}

// Prune implements Storage. Deletion failures are skipped and reported
// joined after the remaining dumps were handled.
func (s *FilesystemStorage) Prune(maxDumps int, maxAge time.Duration) (int, error) {
	summaries, err := s.List()
	if err != nil {
		return 0, err
	}

	var (
		removed int
		errs    []error
	)

	for _, d := range Expired(summaries, maxDumps, maxAge, s.now()) {
		if err := s.Delete(d.ID); err != nil {
			errs = append(errs, err)

			continue
		}

		removed++
	}

	return removed, errors.Join(errs...)
}

// Exists implements Storage.
func (s *FilesystemStorage) Exists() bool {
	info, err := os.Stat(s.dumpDir)

	return err == nil && info.IsDir()
}

// Expired selects the dumps outside the retention limits from summaries,
// which must be ordered newest first. A dump goes when it is older than maxAge
// (ignored when zero) or when it falls past the newest maxDumps of the dumps
// that remain. A maxDumps of zero selects everything.
func Expired(summaries []DumpSummary, maxDumps int, maxAge time.Duration, now time.Time) []DumpSummary {
	var (
		expired []DumpSummary
		kept    int
	)

	for _, d := range summaries {
		if maxAge > 0 && now.Sub(d.Timestamp) > maxAge {
			expired = append(expired, d)

			continue
		}

		if kept >= max(maxDumps, 0) {
			expired = append(expired, d)

			continue
		}

		kept++
	}

	return expired
}
