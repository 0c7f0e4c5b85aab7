package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// StreamResult carries either one decoded event or the error that ended
// the stream.
type StreamResult[T any] struct {
	Chunk *T
	Err   error
}

// Stream sends req and decodes each server-sent "data:" payload into a T.
// Validation, connection and HTTP status errors are returned directly; once
// the channel is handed out, it is closed after the end-of-stream sentinel,
// EOF, a decode error (delivered as the last result) or ctx cancellation.
func Stream[T any](ctx context.Context, c *Client, req Request) (<-chan StreamResult[T], error) {
	p, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	resp, err := c.send(ctx, p, "text/event-stream")
	if err != nil {
		cancel()
		return nil, err
	}

	results := make(chan StreamResult[T], 16)

	go func() {
		defer close(results)
		defer cancel()
		defer resp.Body.Close()

		emit := func(r StreamResult[T]) bool {
			select {
			case <-ctx.Done():
				return false
			case results <- r:
				return true
			}
		}

		reader := bufio.NewReader(resp.Body)
		chunkCount := 0

		for {
			line, err := reader.ReadBytes('\n')
			if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
				switch {
				case ctx.Err() != nil:
					c.logger.Info("stream cancelled",
						zap.String("path", p.req.Path),
						zap.Int("chunks", chunkCount),
						zap.Error(ctx.Err()),
					)
				case errors.Is(err, io.EOF):
					// Normal end of stream without explicit sentinel
					c.logger.Debug("stream completed (EOF)",
						zap.String("path", p.req.Path),
						zap.Int("chunks", chunkCount),
					)
				default:
					emit(StreamResult[T]{Err: fmt.Errorf("transport: read stream line: %w", err)})
				}
				return
			}

			payload, ok := dataPayload(line)
			if !ok {
				continue
			}

			if string(payload) == c.cfg.EndOfStream {
				c.logger.Debug("stream received end marker",
					zap.String("path", p.req.Path),
					zap.Int("chunks", chunkCount),
				)
				return
			}

			chunk := new(T)
			if err := c.cfg.Codec.Unmarshal(payload, chunk); err != nil {
				emit(StreamResult[T]{Err: fmt.Errorf("transport: unmarshal stream chunk: %w", err)})
				return
			}
			chunkCount++

			if !emit(StreamResult[T]{Chunk: chunk}) {
				c.logger.Info("stream cancelled while sending chunk",
					zap.String("path", p.req.Path),
					zap.Int("chunks", chunkCount),
				)
				return
			}
		}
	}()

	return results, nil
}

// dataPayload extracts the value of an SSE "data:" line. Other fields,
// comments and blank lines are skipped.
func dataPayload(line []byte) ([]byte, bool) {
	line = bytes.TrimSpace(line)
	rest, ok := bytes.CutPrefix(line, []byte("data:"))
	if !ok {
		return nil, false
	}
	rest = bytes.TrimSpace(rest)
	return rest, len(rest) > 0
}
