// ABOUTME: Inspection tool for timeshift store files
// ABOUTME: Prints the params header, a frame table and recorded metadata
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
	"github.com/Resonate-Protocol/timeshift-go/pkg/store"
	log "github.com/sirupsen/logrus"
)

var (
	showFrames = flag.Bool("frames", false, "Print one line per frame")
	showMeta   = flag.Bool("meta", false, "Print textual metadata recorded next to the store")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <store file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := dump(os.Stdout, flag.Arg(0), *showFrames, *showMeta); err != nil {
		log.Fatalf("%v", err)
	}
}

type summary struct {
	params   store.Params
	frames   int64
	payload  int64
	minSize  int
	maxSize  int
	durMs    int64
	resyncs  int
	skipped  int64
	trailing int64
}

func dump(w io.Writer, path string, frames, meta bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	end := st.Size()
	if end < store.HeaderSize {
		return fmt.Errorf("%s: empty store", path)
	}

	var header [store.HeaderSize]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	s := summary{params: store.ParseParams(header[0])}
	fmt.Fprintf(w, "header:  %#02x (%s)\n", header[0], s.params)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	if frames {
		fmt.Fprintln(tw, "au\toffset\tsize\t")
	}

	pos := int64(store.HeaderSize)
	for pos < end {
		payload, next, err := store.ReadFrame(f, pos, end, s.params.MinPayload())
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotYetAvailable):
			s.trailing = end - pos
			pos = end
			continue
		case errors.Is(err, store.ErrSyncLost):
			off, found, ferr := store.FindSync(f, pos+1, end)
			if ferr != nil {
				return ferr
			}
			if !found {
				off = end
			}
			s.resyncs++
			s.skipped += off - pos
			pos = off
			continue
		default:
			return err
		}

		if frames {
			fmt.Fprintf(tw, "%d\t%d\t%d\t\n", s.frames, pos, len(payload))
		}
		if s.frames == 0 || len(payload) < s.minSize {
			s.minSize = len(payload)
		}
		s.maxSize = max(s.maxSize, len(payload))
		s.durMs += s.params.AUDurationMs(len(payload))
		s.payload += int64(len(payload))
		s.frames++
		pos = next
	}
	tw.Flush()

	fmt.Fprintf(w, "frames:  %d (%d payload bytes, sizes %d..%d)\n", s.frames, s.payload, s.minSize, s.maxSize)
	fmt.Fprintf(w, "length:  %dms\n", s.durMs)
	if s.resyncs > 0 {
		fmt.Fprintf(w, "resync:  %d times, %d bytes skipped\n", s.resyncs, s.skipped)
	}
	if s.trailing > 0 {
		fmt.Fprintf(w, "partial: %d trailing bytes\n", s.trailing)
	}

	if meta {
		var auMs int64
		if s.frames > 0 {
			auMs = s.durMs / s.frames
		}
		return dumpTextuals(w, filepath.Join(filepath.Dir(path), string(metadata.AreaTextual)), auMs)
	}
	return nil
}

// dumpTextuals prints every label blob in AU order
func dumpTextuals(w io.Writer, dir string, auMs int64) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list metadata: %w", err)
	}

	type blob struct {
		au, seq int64
		path    string
	}
	var blobs []blob
	for _, e := range entries {
		au, seq, ok := parseBlobName(e.Name())
		if !ok {
			continue
		}
		blobs = append(blobs, blob{au, seq, filepath.Join(dir, e.Name())})
	}
	sort.Slice(blobs, func(i, j int) bool {
		if blobs[i].au != blobs[j].au {
			return blobs[i].au < blobs[j].au
		}
		return blobs[i].seq < blobs[j].seq
	})

	var fs metadata.FileStore
	for _, b := range blobs {
		t, err := metadata.LoadTextual(&fs, b.path)
		if err != nil {
			fmt.Fprintf(w, "au %d: %v\n", b.au, err)
			continue
		}
		toggle := 0
		if t.ItemToggle {
			toggle = 1
		}
		fmt.Fprintf(w, "au %d (%dms) toggle=%d %q\n", b.au, b.au*auMs, toggle, t.Text)
	}
	return nil
}

// parseBlobName splits "<au>-<seq>"
func parseBlobName(name string) (au, seq int64, ok bool) {
	a, b, found := strings.Cut(name, "-")
	if !found {
		return 0, 0, false
	}
	au, err1 := strconv.ParseInt(a, 10, 64)
	seq, err2 := strconv.ParseInt(b, 10, 64)
	return au, seq, err1 == nil && err2 == nil
}
