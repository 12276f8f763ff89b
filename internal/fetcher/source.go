package fetcher

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SourceOptions configures Open.
type SourceOptions struct {
	Encoding  string  // charset of CSV files; default UTF-8
	SheetName string  // XLSX worksheet; default first sheet
	Fetcher   Fetcher // used for http(s) paths; default NewHTTPFetcher
}

// Open streams the rows of a tabular file. The first row is the header.
//
// path may be a local file or an http(s) URL, and may name a .zip archive
// holding the data file. The reader is chosen by extension: .xlsx, .shp, or
// anything else as CSV. Downloaded and extracted copies are removed once the
// stream ends.
func Open(ctx context.Context, path string, opts SourceOptions) (<-chan Row, <-chan error) {
	local, cleanup, err := resolve(ctx, path, opts)
	if err != nil {
		return failed(err)
	}

	switch strings.ToLower(filepath.Ext(local)) {
	case ".xlsx":
		rowCh, errCh := StreamXLSX(ctx, local, XLSXOptions{SheetName: opts.SheetName})
		return forward(ctx, rowCh, errCh, cleanup)
	case ".shp":
		rowCh, errCh := StreamShapefile(ctx, local)
		return forward(ctx, rowCh, errCh, cleanup)
	}

	f, err := os.Open(local)
	if err != nil {
		cleanup()
		return failed(eris.Wrapf(err, "fetcher: open %s", path))
	}
	r, err := Decode(f, opts.Encoding)
	if err != nil {
		_ = f.Close()
		cleanup()
		return failed(err)
	}

	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{TrimSpace: true, LazyQuotes: true})
	return forward(ctx, rowCh, errCh, func() {
		_ = f.Close()
		cleanup()
	})
}

// resolve turns path into a readable local file, downloading and
// extracting into a temporary directory as needed.
func resolve(ctx context.Context, p string, opts SourceOptions) (string, func(), error) {
	cleanup := func() {}
	local := p
	var tmp string

	mkTemp := func() error {
		if tmp != "" {
			return nil
		}
		dir, err := os.MkdirTemp("", "catchment-*")
		if err != nil {
			return eris.Wrap(err, "fetcher: create temp dir")
		}
		tmp = dir
		cleanup = func() { _ = os.RemoveAll(dir) }
		return nil
	}

	if u, ok := remoteURL(p); ok {
		if err := mkTemp(); err != nil {
			return "", nil, err
		}
		name := path.Base(u.Path)
		if name == "" || name == "/" || name == "." {
			name = "download.csv"
		}
		local = filepath.Join(tmp, name)

		f := opts.Fetcher
		if f == nil {
			f = NewHTTPFetcher(HTTPOptions{})
		}
		zap.L().Info("fetcher: downloading input", zap.String("url", p))
		if _, err := f.DownloadToFile(ctx, p, local); err != nil {
			cleanup()
			return "", nil, eris.Wrapf(err, "fetcher: download %s", p)
		}
	}

	if strings.EqualFold(filepath.Ext(local), ".zip") {
		if err := mkTemp(); err != nil {
			return "", nil, err
		}
		extracted, err := ExtractTabular(local, filepath.Join(tmp, "extracted"))
		if err != nil {
			cleanup()
			return "", nil, eris.Wrapf(err, "fetcher: extract %s", p)
		}
		local = extracted
	}

	return local, cleanup, nil
}

func remoteURL(p string) (*url.URL, bool) {
	u, err := url.Parse(p)
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

// forward relays a stream and runs done once the source is drained.
func forward(ctx context.Context, rowCh <-chan Row, errCh <-chan error, done func()) (<-chan Row, <-chan error) {
	outRows := make(chan Row)
	outErrs := make(chan error, 1)
	go func() {
		defer close(outErrs)
		defer done()
		defer close(outRows)
		for row := range rowCh {
			select {
			case outRows <- row:
			case <-ctx.Done():
			}
		}
		for err := range errCh {
			outErrs <- err
		}
	}()
	return outRows, outErrs
}

func failed(err error) (<-chan Row, <-chan error) {
	rowCh := make(chan Row)
	errCh := make(chan error, 1)
	close(rowCh)
	errCh <- err
	close(errCh)
	return rowCh, errCh
}
