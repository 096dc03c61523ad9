package dataset

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
)

// DefaultHousingURL is the public location of the housing archive.
const DefaultHousingURL = "https://raw.githubusercontent.com/ageron/handson-ml/master/datasets/housing/housing.tgz"

// Fetcher downloads a compressed tar archive and extracts it.
type Fetcher struct {
	Client *http.Client
	logger log.Logger
}

// NewFetcher creates a Fetcher. A nil client uses a client with a five
// minute timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Fetcher{
		Client: client,
		logger: log.GetLoggerWithName("dataset.fetch"),
	}
}

// Fetch downloads rawURL into dir/<basename> and extracts its members into
// dir. Gzip (.tgz, .tar.gz) and xz (.txz, .tar.xz) archives are supported.
// It returns the path of the saved archive.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", herrors.NewConfigurationError("url", err.Error(), rawURL)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", herrors.NewConfigurationError("url", "has no file name", rawURL)
	}
	if _, err := archiveCodec(name); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", herrors.NewIOError("mkdir", dir, err)
	}
	archivePath := filepath.Join(dir, name)

	start := time.Now()
	n, err := f.download(ctx, rawURL, archivePath)
	if err != nil {
		return "", err
	}
	f.logger.Info("archive downloaded",
		log.PathKey, archivePath,
		"bytes", n,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	members, err := ExtractArchive(archivePath, dir)
	if err != nil {
		return "", err
	}
	f.logger.Info("archive extracted", log.PathKey, dir, "members", members)
	return archivePath, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, dst string) (_ int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, herrors.NewIOError("request", rawURL, err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, herrors.NewIOError("get", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, herrors.NewIOError("get", rawURL, herrors.Newf("unexpected status %s", resp.Status))
	}

	file, err := os.Create(dst)
	if err != nil {
		return 0, herrors.NewIOError("create", dst, err)
	}
	// a partial archive is removed so it is never mistaken for a download
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = herrors.NewIOError("close", dst, cerr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	n, err := io.Copy(file, resp.Body)
	if err != nil {
		return n, herrors.NewIOError("download", rawURL, err)
	}
	return n, nil
}

type codec int

const (
	codecGzip codec = iota
	codecXZ
)

func archiveCodec(name string) (codec, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tgz"), strings.HasSuffix(lower, ".tar.gz"):
		return codecGzip, nil
	case strings.HasSuffix(lower, ".txz"), strings.HasSuffix(lower, ".tar.xz"):
		return codecXZ, nil
	default:
		return 0, herrors.NewConfigurationError("archive", "unsupported archive type; want .tgz, .tar.gz, .txz or .tar.xz", name)
	}
}

// ExtractArchive extracts a compressed tar archive into dir and returns the
// number of regular files written. Members that would land outside dir are
// rejected with an IOError.
func ExtractArchive(archivePath, dir string) (_ int, err error) {
	kind, err := archiveCodec(filepath.Base(archivePath))
	if err != nil {
		return 0, err
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return 0, herrors.NewIOError("open", archivePath, err)
	}
	defer func() { _ = file.Close() }()

	var r io.Reader
	switch kind {
	case codecXZ:
		xr, err := xz.NewReader(bufio.NewReader(file))
		if err != nil {
			return 0, herrors.NewIOError("decompress", archivePath, err)
		}
		r = xr
	default:
		gr, err := gzip.NewReader(file)
		if err != nil {
			return 0, herrors.NewIOError("decompress", archivePath, err)
		}
		defer func() { _ = gr.Close() }()
		r = gr
	}
	return extractTar(r, archivePath, dir)
}

func extractTar(r io.Reader, archivePath, dir string) (int, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return 0, herrors.NewIOError("abs", dir, err)
	}

	tr := tar.NewReader(r)
	files := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return files, herrors.NewIOError("untar", archivePath, err)
		}

		target, err := memberPath(root, hdr.Name)
		if err != nil {
			return files, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, herrors.NewIOError("mkdir", target, err)
			}
		case tar.TypeReg:
			if err := writeMember(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return files, err
			}
			files++
		default:
			// links and devices are skipped
		}
	}
}

// memberPath resolves a tar member name under root.
func memberPath(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", herrors.NewIOError("untar", name, herrors.New("absolute member path"))
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", herrors.NewIOError("untar", name, herrors.New("member escapes destination directory"))
	}
	return target, nil
}

func writeMember(r io.Reader, target string, perm os.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return herrors.NewIOError("mkdir", filepath.Dir(target), err)
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return herrors.NewIOError("create", target, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = herrors.NewIOError("close", target, cerr)
		}
	}()
	if _, err := io.Copy(out, r); err != nil {
		return herrors.NewIOError("write", target, err)
	}
	return nil
}
