package dictionary

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Published corpus locations.
const (
	JMdictURL    = "http://ftp.edrdg.org/pub/Nihongo/JMdict_e.gz"
	Kanjidic2URL = "http://www.edrdg.org/kanjidic/kanjidic2.xml.gz"
)

var gzipMagic = []byte{0x1f, 0x8b}

// EnsureCorpus checks if the corpus exists at path.
// If not, it downloads it from url and decompresses it when it is gzipped.
func EnsureCorpus(ctx context.Context, path, url string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := os.Stat(path); err == nil {
		// File exists
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "stat corpus %s", path)
	}
	if url == "" {
		return errors.Errorf("corpus not found at %s and no download url configured", path)
	}

	log.Info("corpus not found, downloading", zap.String("path", path), zap.String("url", url))
	return download(ctx, url, path)
}

func download(ctx context.Context, url, destPath string) error {
	client := &http.Client{Timeout: 10 * time.Minute}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", "jisho-cli")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "download corpus")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("download failed: %s", resp.Status)
	}

	body := bufio.NewReader(resp.Body)
	var src io.Reader = body
	if magic, err := body.Peek(2); err == nil && bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return errors.Wrap(err, "failed to create gzip reader")
		}
		defer gz.Close()
		src = gz
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return errors.Wrapf(err, "create directory %s", filepath.Dir(destPath))
	}
	// Write next to the destination and rename, so an interrupted download
	// never leaves a truncated corpus behind.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".*.part")
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write corpus")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close output file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), destPath), "move corpus into place")
}
