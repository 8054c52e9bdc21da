package docsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/prepforge/exam-pipeline/constants"
	"github.com/prepforge/exam-pipeline/internal/common"
)

var pdfMagic = []byte("%PDF-")

// Document is a validated local copy of the input payload. Origin records
// where it came from (URL or original path) for the artifact's
// source_reference.
type Document struct {
	Path   string
	Origin string
	Size   int64
}

// Config bounds document acquisition.
type Config struct {
	MaxBytes   int64         // reject remote payloads whose declared size exceeds this
	Timeout    time.Duration // transfer deadline for remote fetches
	HTTPClient *http.Client  // optional override, e.g. for tests
}

// Source resolves a filesystem path or a remote URL into a validated,
// bounded-size document payload.
type Source struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewSource(cfg Config, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = int64(constants.MaxDownloadMBDefault) * 1024 * 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Source{cfg: cfg, client: client, logger: logger}
}

// Resolve turns input into a Document plus a release func. The release func
// removes any temporary file and is safe to call on every exit path,
// including cancellation; callers must defer it immediately.
func (s *Source) Resolve(ctx context.Context, input string) (Document, func(), error) {
	if isRemote(input) {
		return s.download(ctx, input)
	}
	return s.local(input)
}

func isRemote(input string) bool {
	u, err := url.Parse(input)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func (s *Source) local(path string) (Document, func(), error) {
	noop := func() {}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, noop, fmt.Errorf("%w: resolve path: %v", common.ErrInvalidDocument, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return Document{}, noop, fmt.Errorf("%w: stat %q: %v", common.ErrInvalidDocument, abs, err)
	}
	if st.IsDir() || st.Size() == 0 {
		return Document{}, noop, fmt.Errorf("%w: empty or non-regular file %q", common.ErrInvalidDocument, abs)
	}
	if !constants.AllowedExt(filepath.Ext(abs)) {
		return Document{}, noop, fmt.Errorf("%w: unsupported extension %q", common.ErrInvalidDocument, filepath.Ext(abs))
	}
	if err := sniffPDF(abs); err != nil {
		return Document{}, noop, err
	}

	s.logger.Info("docsource.local.ok", "path", abs, "bytes", st.Size())
	return Document{Path: abs, Origin: abs, Size: st.Size()}, noop, nil
}

func (s *Source) download(ctx context.Context, rawURL string) (Document, func(), error) {
	noop := func() {}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, noop, fmt.Errorf("%w: build request: %v", common.ErrDownload, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("docsource.download.send_error", "url", rawURL, "error", err)
		return Document{}, noop, fmt.Errorf("%w: %v", common.ErrDownload, err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			s.logger.Warn("docsource.download.body_close_error", "error", cerr)
		}
	}(resp.Body)

	if resp.StatusCode/100 != 2 {
		return Document{}, noop, fmt.Errorf("%w: status %d", common.ErrDownload, resp.StatusCode)
	}
	// Declared size gate, checked before reading the body.
	if resp.ContentLength > s.cfg.MaxBytes {
		s.logger.Error("docsource.download.too_large",
			"url", rawURL, "content_length", resp.ContentLength, "max_bytes", s.cfg.MaxBytes)
		return Document{}, noop, fmt.Errorf("%w: declared size %d exceeds limit %d",
			common.ErrDownload, resp.ContentLength, s.cfg.MaxBytes)
	}

	tmp, err := os.CreateTemp("", "exam-*.pdf")
	if err != nil {
		return Document{}, noop, fmt.Errorf("%w: create temp: %v", common.ErrDownload, err)
	}
	release := func() {
		if rerr := os.Remove(tmp.Name()); rerr != nil && !os.IsNotExist(rerr) {
			s.logger.Warn("docsource.release.remove_error", "path", tmp.Name(), "error", rerr)
		}
	}

	// Servers can lie about Content-Length; enforce the cap on the wire too.
	n, err := io.Copy(tmp, io.LimitReader(resp.Body, s.cfg.MaxBytes+1))
	if cerr := tmp.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		release()
		return Document{}, noop, fmt.Errorf("%w: transfer: %v", common.ErrDownload, err)
	}
	if n > s.cfg.MaxBytes {
		release()
		return Document{}, noop, fmt.Errorf("%w: payload exceeds limit %d", common.ErrDownload, s.cfg.MaxBytes)
	}
	if n == 0 {
		release()
		return Document{}, noop, fmt.Errorf("%w: empty payload", common.ErrInvalidDocument)
	}
	if err := sniffPDF(tmp.Name()); err != nil {
		release()
		return Document{}, noop, err
	}

	s.logger.Info("docsource.download.ok",
		"url", rawURL, "bytes", n, "elapsed_ms", time.Since(start).Milliseconds())
	return Document{Path: tmp.Name(), Origin: rawURL, Size: n}, release, nil
}

// sniffPDF checks the payload header so we fail before rasterization on
// obviously wrong content types.
func sniffPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open: %v", common.ErrInvalidDocument, err)
	}
	defer f.Close()

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return fmt.Errorf("%w: short read: %v", common.ErrInvalidDocument, err)
	}
	if !bytes.Equal(head, pdfMagic) {
		return fmt.Errorf("%w: not a PDF document", common.ErrInvalidDocument)
	}
	return nil
}
