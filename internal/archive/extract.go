package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extract inspects the file's suffix and, when it is a supported archive
// (zip, tar, tar.gz/tgz, or a bare gzip file), unpacks its full contents into
// outDir. It returns (true, nil) after a successful extraction, (false, nil)
// when the suffix marks the file as not an archive, and (false, err) when the
// archive is corrupt or unpacking fails. Callers treat extraction failures as
// non-fatal and move on to the next artifact.
func Extract(path, outDir string) (bool, error) {
	lower := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lower, ".zip"):
		return true, extractZip(path, outDir)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return true, extractTar(path, outDir, true)
	case strings.HasSuffix(lower, ".tar"):
		return true, extractTar(path, outDir, false)
	case strings.HasSuffix(lower, ".gz"):
		return true, extractGzip(path, outDir)
	default:
		return false, nil
	}
}

func extractZip(path, outDir string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open zip %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := safeJoin(outDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		src, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to read zip entry %s: %w", f.Name, err)
		}
		if err := writeFile(target, src); err != nil {
			src.Close()
			return err
		}
		src.Close()
	}

	return nil
}

func extractTar(path, outDir string, gzipped bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tar %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to read gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry in %s: %w", path, err)
		}

		target, err := safeJoin(outDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := writeFile(target, tr); err != nil {
				return err
			}
		}
	}
}

// extractGzip decompresses a single gzipped file, naming the output after the
// source with exactly the .gz suffix stripped.
func extractGzip(path, outDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open gzip %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read gzip stream %s: %w", path, err)
	}
	defer gz.Close()

	base := filepath.Base(path)
	target := filepath.Join(outDir, base[:len(base)-len(".gz")])

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	return writeFile(target, gz)
}

// safeJoin rejects archive entries that would escape the output directory.
func safeJoin(outDir, name string) (string, error) {
	target := filepath.Join(outDir, filepath.Clean(name))
	if !strings.HasPrefix(target, filepath.Clean(outDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes output directory: %s", name)
	}
	return target, nil
}

func writeFile(target string, src io.Reader) error {
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
