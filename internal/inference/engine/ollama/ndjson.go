package ollama

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/yungbote/localai-backend/internal/inference/engine"
)

const maxLineBytes = 4 << 20

// readStream decodes newline-delimited JSON chat chunks. Lines that do not
// parse are skipped; a stream that closes before a done line is truncated.
func readStream(r io.Reader, onChunk func(engine.Chunk) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg chatResponse
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		if msg.Error != "" {
			return fmt.Errorf("ollama: stream error: %s", msg.Error)
		}
		if delta := msg.content(); delta != "" && onChunk != nil {
			if err := onChunk(engine.Chunk{Delta: delta}); err != nil {
				return err
			}
		}
		if msg.Done {
			if onChunk != nil {
				return onChunk(engine.Chunk{Done: true, TokenCount: msg.EvalCount})
			}
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return engine.ErrStreamTruncated
}
