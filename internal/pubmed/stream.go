// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed streams articles out of PubMed XML dump files. A dump
// partition holds one <PubmedArticleSet> with many <PubmedArticle>
// records; partitions can be arbitrarily large, so decoding is
// token-level and never builds a whole-file tree.
package pubmed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// RecordParseError reports a single malformed record. The stream stays
// usable after one: callers either skip and keep calling Next, or abort
// the partition. Skip-and-continue is the default policy.
type RecordParseError struct {
	// Record is the 1-based position of the record in the partition.
	Record int

	// PMID is the record's identifier when it could be read.
	PMID string

	// Err is the underlying cause.
	Err error
}

func (e *RecordParseError) Error() string {
	if e.PMID != "" {
		return fmt.Sprintf("record %d (PMID %s): %v", e.Record, e.PMID, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Record, e.Err)
}

func (e *RecordParseError) Unwrap() error { return e.Err }

// IsRecordError reports whether err is a recoverable single-record
// failure, as opposed to a stream-level one.
func IsRecordError(err error) bool {
	var rpe *RecordParseError
	return errors.As(err, &rpe)
}

// Stream is a pull iterator over one partition's articles. It is
// restartable only from the start of the partition: re-open the source
// and build a new Stream.
type Stream struct {
	dec     *xml.Decoder
	cfg     types.ParserConfig
	now     time.Time
	record  int
	skipped int
	dropped int
}

// NewStream wraps a raw (already decompressed) partition byte stream.
func NewStream(r io.Reader, cfg types.ParserConfig) *Stream {
	return &Stream{
		dec: xml.NewDecoder(r),
		cfg: cfg,
		now: time.Now().UTC(),
	}
}

// Next returns the next article. It returns io.EOF at the end of the
// partition, a *RecordParseError for a malformed record (the stream
// remains usable; Skipped counts it), and other errors for stream-level
// failures that end the partition.
func (s *Stream) Next() (*types.Article, error) {
	for {
		tok, err := s.dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("reading partition: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "PubmedArticle" {
			continue
		}

		s.record++
		var raw xmlArticle
		if err := s.dec.DecodeElement(&raw, &start); err != nil {
			// A decode failure here means the XML itself is broken;
			// the decoder cannot recover past it.
			return nil, fmt.Errorf("record %d: %w", s.record, err)
		}

		article, err := toArticle(&raw)
		if err != nil {
			s.skipped++
			return nil, &RecordParseError{Record: s.record, PMID: raw.Citation.PMID, Err: err}
		}

		if s.cfg.MinYear > 0 && !article.Date.IsZero() && article.Date.Year() < s.cfg.MinYear {
			s.dropped++
			continue
		}

		return article, nil
	}
}

// Skipped returns the number of malformed records seen so far.
func (s *Stream) Skipped() int { return s.skipped }

// Dropped returns the number of records filtered out by MinYear.
func (s *Stream) Dropped() int { return s.dropped }

// Records returns the number of records consumed so far, including
// skipped and dropped ones. Usable as a resume offset within the
// partition.
func (s *Stream) Records() int { return s.record }
