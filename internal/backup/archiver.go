// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backup

import (
	"archive/tar"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/tombee/minecontrol/internal/log"
)

// Format is an archive format.
type Format string

const (
	FormatZip    Format = "zip"
	FormatTarZst Format = "tar.zst"
)

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ArchiveRequest describes one archive job.
type ArchiveRequest struct {
	// Root is the directory entries are made relative to.
	Root string
	// Dir is the directory under Root to archive.
	Dir string
	// Dest is the final archive path.
	Dest string
}

// ArchiveResult describes a written archive.
type ArchiveResult struct {
	Path      string
	SizeBytes int64
	Checksum  string
}

type archiveJob struct {
	ctx    context.Context
	req    ArchiveRequest
	result chan archiveOutcome
}

type archiveOutcome struct {
	res ArchiveResult
	err error
}

// Archiver compresses directories on a dedicated worker goroutine so the
// caller's goroutine only waits.
type Archiver struct {
	format Format
	jobs   chan archiveJob
	logger *slog.Logger
}

// NewArchiver starts a worker that lives until root is cancelled.
func NewArchiver(root context.Context, format Format, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = log.Discard()
	}
	if format == "" {
		format = FormatZip
	}
	a := &Archiver{
		format: format,
		jobs:   make(chan archiveJob, 1),
		logger: log.WithComponent(logger, "archiver"),
	}
	go a.work(root)
	return a
}

// Format returns the archive format the worker writes.
func (a *Archiver) Format() Format {
	return a.format
}

func (a *Archiver) work(root context.Context) {
	for {
		select {
		case <-root.Done():
			return
		case job := <-a.jobs:
			res, err := a.write(job.ctx, job.req)
			job.result <- archiveOutcome{res: res, err: err}
		}
	}
}

// Archive hands req to the worker and waits for the result or ctx.
func (a *Archiver) Archive(ctx context.Context, req ArchiveRequest) (ArchiveResult, error) {
	job := archiveJob{ctx: ctx, req: req, result: make(chan archiveOutcome, 1)}

	select {
	case a.jobs <- job:
	case <-ctx.Done():
		return ArchiveResult{}, ctx.Err()
	}

	select {
	case out := <-job.result:
		return out.res, out.err
	case <-ctx.Done():
		return ArchiveResult{}, ctx.Err()
	}
}

// write produces the archive under a temporary name and renames it into
// place, so a failed job never leaves a truncated archive behind.
func (a *Archiver) write(ctx context.Context, req ArchiveRequest) (ArchiveResult, error) {
	start := time.Now()
	partial := req.Dest + ".partial"

	f, err := os.Create(partial)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("creating archive: %w", err)
	}
	defer func() { _ = os.Remove(partial) }()

	hasher := blake3.New()
	counter := &countingWriter{}
	out := io.MultiWriter(f, hasher, counter)

	switch a.format {
	case FormatTarZst:
		err = writeTarZst(ctx, out, req)
	default:
		err = writeZip(ctx, out, req)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return ArchiveResult{}, err
	}

	if err := os.Rename(partial, req.Dest); err != nil {
		return ArchiveResult{}, fmt.Errorf("finalizing archive: %w", err)
	}

	res := ArchiveResult{
		Path:      req.Dest,
		SizeBytes: counter.n,
		Checksum:  hex.EncodeToString(hasher.Sum(nil)),
	}
	a.logger.Debug("archive written",
		slog.String(log.ArchiveKey, filepath.Base(req.Dest)),
		slog.Int64("size_bytes", res.SizeBytes),
		slog.Int64(log.DurationKey, time.Since(start).Milliseconds()))
	return res, nil
}

type countingWriter struct{ n int64 }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// walk visits every entry under req.Dir with its slash-separated name
// relative to req.Root.
func walk(ctx context.Context, req ArchiveRequest, fn func(path, name string, info fs.FileInfo) error) error {
	base := filepath.Join(req.Root, req.Dir)
	return filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(req.Root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(path, filepath.ToSlash(rel), info)
	})
}

func writeZip(ctx context.Context, w io.Writer, req ArchiveRequest) error {
	zw := zip.NewWriter(w)

	err := walk(ctx, req, func(path, name string, info fs.FileInfo) error {
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
			_, err := zw.CreateHeader(hdr)
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		hdr.Method = zip.Deflate

		dst, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		return copyFile(dst, path)
	})
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("writing zip: %w", err)
	}
	return zw.Close()
}

func writeTarZst(ctx context.Context, w io.Writer, req ArchiveRequest) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	tw := tar.NewWriter(enc)

	err = walk(ctx, req, func(path, name string, info fs.FileInfo) error {
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() && !strings.HasSuffix(hdr.Name, "/") {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return copyFile(tw, path)
	})
	if err != nil {
		_ = tw.Close()
		_ = enc.Close()
		return fmt.Errorf("writing tar.zst: %w", err)
	}
	if err := tw.Close(); err != nil {
		_ = enc.Close()
		return fmt.Errorf("writing tar.zst: %w", err)
	}
	return enc.Close()
}

func copyFile(dst io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}
