package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"

	"spratt/internal/app/client/staging"
)

const (
	DefaultDebounce = 2 * time.Second
	SourceInbox     = "inbox"
)

// audioTypes расширения, которые принимаются из папки
var audioTypes = map[string]string{
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

// Stager кладет запись в локальную очередь
type Stager interface {
	Stage(ctx context.Context, audio staging.Blob, ownerID string, meta staging.Metadata) (string, error)
	Remove(ctx context.Context, id string) error
}

type Config struct {
	Dir      string
	OwnerID  string
	Debounce time.Duration
}

// Inbox следит за папкой и ставит в очередь появившиеся аудиофайлы
type Inbox struct {
	cfg     Config
	stager  Stager
	trigger func()
	log     *slog.Logger

	// путь -> время последнего изменения
	seen   map[string]time.Time
	remove func(path string) error
}

// New trigger вызывается после успешной постановки файла в очередь, может быть nil
func New(cfg Config, stager Stager, trigger func(), log *slog.Logger) *Inbox {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	return &Inbox{
		cfg:     cfg,
		stager:  stager,
		trigger: trigger,
		log:     log.With("component", "inbox", "dir", cfg.Dir),
		seen:    make(map[string]time.Time),
		remove:  os.Remove,
	}
}

// MimeType тип содержимого по расширению файла
func MimeType(path string) (string, bool) {
	mime, ok := audioTypes[strings.ToLower(filepath.Ext(path))]
	return mime, ok
}

// Run блокируется до отмены ctx
func (in *Inbox) Run(ctx context.Context) error {
	if err := os.MkdirAll(in.cfg.Dir, 0700); err != nil {
		return fmt.Errorf("create inbox dir: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(in.cfg.Dir); err != nil {
		return fmt.Errorf("watch inbox dir: %w", err)
	}

	// файлы, положенные пока клиент не работал
	entries, err := os.ReadDir(in.cfg.Dir)
	if err != nil {
		return fmt.Errorf("read inbox dir: %w", err)
	}
	now := time.Now()
	for _, entry := range entries {
		if !entry.IsDir() {
			in.track(filepath.Join(in.cfg.Dir, entry.Name()), now)
		}
	}

	ticker := time.NewTicker(in.cfg.Debounce / 2)
	defer ticker.Stop()

	in.log.Info("inbox watching")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			in.track(event.Name, time.Now())
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			in.log.Warn("fs watcher error", "error", err)
		case now := <-ticker.C:
			in.flush(ctx, now)
		}
	}
}

func (in *Inbox) track(path string, at time.Time) {
	if _, ok := MimeType(path); !ok {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	in.seen[path] = at
}

// flush ставит в очередь файлы, которые не менялись дольше Debounce
func (in *Inbox) flush(ctx context.Context, now time.Time) {
	staged := 0
	for path, changed := range in.seen {
		if now.Sub(changed) < in.cfg.Debounce {
			continue
		}
		delete(in.seen, path)

		if err := in.stageFile(ctx, path); err != nil {
			in.log.Error("failed to stage inbox file", "path", path, "error", err)
			continue
		}
		staged++
	}

	if staged > 0 && in.trigger != nil {
		in.trigger()
	}
}

func (in *Inbox) stageFile(ctx context.Context, path string) error {
	mime, _ := MimeType(path)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open: %w", err)
	}
	info, statErr := f.Stat()
	blob, err := staging.ReadBlob(f, mime)
	f.Close()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if blob.IsEmpty() {
		return nil
	}

	meta := staging.Metadata{
		staging.MetaSource:   SourceInbox,
		staging.MetaFileName: filepath.Base(path),
	}
	if statErr == nil {
		meta[staging.MetaCapturedAt] = strconv.FormatInt(info.ModTime().UnixMilli(), 10)
	}

	id, err := in.stager.Stage(ctx, blob, in.cfg.OwnerID, meta)
	if err != nil {
		return err
	}

	// файл удаляется только после записи в очередь; оставшийся файл
	// будет поставлен повторно, поэтому запись откатывается
	if err := in.remove(path); err != nil {
		if rbErr := in.stager.Remove(ctx, id); rbErr != nil {
			return fmt.Errorf("remove staged file: %w (rollback %s: %v)", err, id, rbErr)
		}
		return fmt.Errorf("remove staged file: %w", err)
	}

	in.log.Info("inbox file staged", "path", path, "id", id, "bytes", blob.Size())
	return nil
}
