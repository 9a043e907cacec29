// Package osmsource wraps the low-level details of streaming an OSM
// extract: picking a decoder for PBF or XML input, driving the
// relations-only / full / ways-only passes the orchestrator needs, keeping
// a location store for node coordinates, and assembling multipolygon
// areas from their member ways.
//
// It is grounded on the paulmach/osm ecosystem's multi-pass scanning idiom
// (github.com/paulmach/osm, github.com/paulmach/osm/osmpbf,
// github.com/paulmach/osm/osmxml), the same library three independent
// repos in the retrieval pack reach for.
package osmsource

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
)

// FullHandler receives every object seen during a full scan, in stream
// order, with nodes seen before the ways/relations that reference them
// within a single properly-sorted extract.
type FullHandler struct {
	Node     func(*osm.Node)
	Way      func(*osm.Way)
	Relation func(*osm.Relation)
}

// Reader drives the passes the orchestrator needs over a single OSM
// extract. Every method opens its own decoder and scans the file exactly
// once; the concrete implementation supports re-opening the same path
// repeatedly except when reading from "-" (stdin), which is spilled to a
// temp file on first open so later passes can still seek back to it.
type Reader interface {
	// ScanRelations streams only relations, for pass 1's registration step.
	ScanRelations(ctx context.Context, fn func(*osm.Relation) error) error
	// ScanFull streams nodes, ways and relations in whatever order the
	// extract stores them, for pass 2.
	ScanFull(ctx context.Context, h FullHandler) error
	// ScanWays streams only ways, for pass 3's false-positive sub-phase.
	ScanWays(ctx context.Context, fn func(*osm.Way) error) error
	// Close releases any spilled temp file backing a stdin read.
	Close() error
}

type fileReader struct {
	path     string
	pbf      bool
	tempFile string
}

// Open inspects path (or, for "-", spills stdin to a temp file so it can
// be scanned multiple times) and returns a Reader backed by the detected
// format. Format is chosen by sniffing the file's first bytes for the PBF
// block markers (see sniffPBF), falling back to XML; the file name suffix
// is not consulted.
func Open(path string) (Reader, error) {
	if path == "-" {
		tmp, err := spillStdin()
		if err != nil {
			return nil, fmt.Errorf("osmsource: spilling stdin: %w", err)
		}
		return &fileReader{path: tmp, pbf: sniffPBF(tmp), tempFile: tmp}, nil
	}
	return &fileReader{path: path, pbf: sniffPBF(path)}, nil
}

func spillStdin() (string, error) {
	f, err := os.CreateTemp("", "osmwaterqa-stdin-*.osm")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, os.Stdin); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// sniffPBF checks for the PBF magic: a 4-byte big-endian header length
// followed by a BlobHeader whose first bytes spell "OSMHeader" or
// "OSMData". Any read failure is treated as "not PBF" — ScanFull will then
// surface the real XML-decode error if the file is neither.
func sniffPBF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	header := make([]byte, 64)
	n, _ := f.Read(header)
	return bytes.Contains(header[:n], []byte("OSMHeader")) || bytes.Contains(header[:n], []byte("OSMData"))
}

func (r *fileReader) open() (*os.File, error) {
	return os.Open(r.path)
}

func (r *fileReader) newScanner(ctx context.Context, f io.Reader, skipNodes, skipWays, skipRelations bool) (osmScanner, error) {
	if r.pbf {
		s := osmpbf.New(ctx, f.(io.ReadSeeker), 1)
		s.SkipNodes = skipNodes
		s.SkipWays = skipWays
		s.SkipRelations = skipRelations
		return s, nil
	}
	return osmxml.New(ctx, bufio.NewReader(f)), nil
}

// osmScanner is the shared surface of osmpbf.Scanner and osmxml.Scanner.
type osmScanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

func (r *fileReader) ScanRelations(ctx context.Context, fn func(*osm.Relation) error) error {
	f, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()
	scanner, err := r.newScanner(ctx, f, true, true, false)
	if err != nil {
		return err
	}
	defer scanner.Close()
	for scanner.Scan() {
		rel, ok := scanner.Object().(*osm.Relation)
		if !ok {
			continue
		}
		if err := fn(rel); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (r *fileReader) ScanFull(ctx context.Context, h FullHandler) error {
	f, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()
	scanner, err := r.newScanner(ctx, f, false, false, false)
	if err != nil {
		return err
	}
	defer scanner.Close()
	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Node:
			if h.Node != nil {
				h.Node(obj)
			}
		case *osm.Way:
			if h.Way != nil {
				h.Way(obj)
			}
		case *osm.Relation:
			if h.Relation != nil {
				h.Relation(obj)
			}
		}
	}
	return scanner.Err()
}

func (r *fileReader) ScanWays(ctx context.Context, fn func(*osm.Way) error) error {
	f, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()
	scanner, err := r.newScanner(ctx, f, true, false, true)
	if err != nil {
		return err
	}
	defer scanner.Close()
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if err := fn(way); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (r *fileReader) Close() error {
	if r.tempFile != "" {
		return os.Remove(r.tempFile)
	}
	return nil
}
