// Copyright 2025 The tricklestat authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataimport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

const (
	readBufferSize = 64 * 1024

	// MaxLineLength limits a single log line. Message lines with large
	// want lists can be long, longer lines are counted as failed.
	MaxLineLength = 4 * 1024 * 1024
)

// ErrLineTooLong reports a line exceeding MaxLineLength
var ErrLineTooLong = errors.New("log line too long")

// ErrIgnoredLine tells the reader a line is valid but irrelevant
// (e.g. an info line of an unsupported type).
var ErrIgnoredLine = errors.New("line ignored")

// LineProcessor consumes raw lines of a single log file
type LineProcessor interface {
	ProcessLine(line []byte, experimentID string) error
}

// FileStats counts lines of a single log file by their outcome
type FileStats struct {
	NumProcessed int `msgpack:"numProcessed" json:"numProcessed"`
	NumFailed    int `msgpack:"numFailed" json:"numFailed"`
	NumIgnored   int `msgpack:"numIgnored" json:"numIgnored"`
}

func (st FileStats) add(other FileStats) FileStats {
	return FileStats{
		NumProcessed: st.NumProcessed + other.NumProcessed,
		NumFailed:    st.NumFailed + other.NumFailed,
		NumIgnored:   st.NumIgnored + other.NumIgnored,
	}
}

// readLine reads one line without its line terminator into buf.
// Content of a line longer than limit is discarded up to the next
// newline and ErrLineTooLong is returned, so reading can continue.
// At the end of input, io.EOF is returned together with the last line.
func readLine(rd *bufio.Reader, buf []byte, limit int) ([]byte, error) {
	var tooLong bool
	for {
		chunk, err := rd.ReadSlice('\n')
		if !tooLong {
			buf = append(buf, chunk...)
			if len(bytes.TrimRight(buf, "\r\n")) > limit {
				tooLong = true
				buf = buf[:0]
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if tooLong && (err == nil || err == io.EOF) {
			// with io.EOF, the next call returns an empty last line
			return buf, ErrLineTooLong
		}
		return bytes.TrimRight(buf, "\r\n"), err
	}
}

// ReadLogFile reads a JSONL capture log and passes each line to the processor.
// Lines the processor rejects are logged and skipped, only I/O
// errors terminate reading.
func ReadLogFile(ctx context.Context, file LogFile, processor LineProcessor) (FileStats, error) {
	var ans FileStats
	fr, err := os.Open(file.Path)
	if err != nil {
		return ans, fmt.Errorf("failed to open file: %w", err)
	}
	defer fr.Close()

	rd := bufio.NewReaderSize(fr, readBufferSize)
	buf := make([]byte, 0, readBufferSize)
	lineNum := 0
	for {
		select {
		case <-ctx.Done():
			log.Warn().Str("file", file.Path).Msg("interrupting log file processing")
			return ans, ctx.Err()
		default:
		}
		line, readErr := readLine(rd, buf[:0], MaxLineLength)
		if readErr != nil && readErr != io.EOF && readErr != ErrLineTooLong {
			return ans, fmt.Errorf("failed to read file %s: %w", file.Path, readErr)
		}
		buf = line[:0]
		lineNum++

		if readErr == ErrLineTooLong {
			log.Warn().
				Err(readErr).
				Str("file", file.Path).
				Int("line", lineNum).
				Msg("failed to process log line, skipping")
			ans.NumFailed++
			continue
		}

		// Skip empty lines
		if len(line) > 0 {
			if err := processor.ProcessLine(line, file.ExperimentID); err != nil {
				if errors.Is(err, ErrIgnoredLine) {
					ans.NumIgnored++

				} else {
					log.Warn().
						Err(err).
						Str("file", file.Path).
						Int("line", lineNum).
						Msg("failed to process log line, skipping")
					ans.NumFailed++
				}

			} else {
				ans.NumProcessed++
			}
		}
		if readErr == io.EOF {
			break
		}
	}
	log.Debug().
		Str("file", file.Path).
		Str("category", file.Category.String()).
		Int("processed", ans.NumProcessed).
		Int("failed", ans.NumFailed).
		Int("ignored", ans.NumIgnored).
		Msg("log file processed")
	return ans, nil
}
