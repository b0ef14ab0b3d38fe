package camera

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultWarmup is the number of Size calls a Dir stream answers with zero
// before reporting its first frame.
const DefaultWarmup = 1

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Dir replays still images from a directory as camera frames, cycling
// through them in name order. When the directory has a front or back
// subdirectory the one matching the requested facing is used.
type Dir struct {
	Path   string
	Warmup int
}

func NewDir(path string) *Dir {
	return &Dir{Path: path, Warmup: DefaultWarmup}
}

func (d *Dir) Open(ctx context.Context, c Constraints) (Stream, error) {
	dir := d.Path
	if sub := filepath.Join(d.Path, string(c.Facing)); isDir(sub) {
		dir = sub
	}

	frames, err := loadFrames(dir)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("dir", dir).Int("frames", len(frames)).Str("facing", string(c.Facing)).Msg("opened directory source")

	return &dirStream{frames: frames, warmup: d.Warmup}, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func loadFrames(dir string) ([]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	frames := make([]image.Image, 0, len(names))
	for _, name := range names {
		img, err := decodeFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable frame")
			continue
		}
		frames = append(frames, img)
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}

	return frames, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

type dirStream struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
	warmup int
	closed bool
}

func (s *dirStream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, 0
	}
	if s.warmup > 0 {
		s.warmup--
		return 0, 0
	}

	b := s.frames[s.next].Bounds()
	return b.Dx(), b.Dy()
}

func (s *dirStream) Capture(dst *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}

	frame := s.frames[s.next]
	if dst.Bounds().Size() != frame.Bounds().Size() {
		return ErrSizeMismatch
	}

	draw.Draw(dst, dst.Bounds(), frame, frame.Bounds().Min, draw.Src)
	s.next = (s.next + 1) % len(s.frames)

	return nil
}

func (s *dirStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.frames = nil
	return nil
}
