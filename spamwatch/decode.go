package spamwatch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// The decoders below turn a successful response into the caller's expected
// shape. They only run after classify reported success.

var errEmptyBody = errors.New("empty response body")

// decodeEntity parses a single JSON object
func decodeEntity[T any](status int, body []byte) (T, error) {
	var v T
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return v, errEmptyBody
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, err
	}
	return v, nil
}

// decodeList parses a JSON array; an empty body is an empty list
func decodeList[T any](status int, body []byte) ([]T, error) {
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return []T{}, nil
	}
	var v []T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	if v == nil {
		v = []T{}
	}
	return v, nil
}

// decodeNothing skips decoding for operations without a result
func decodeNothing(int, []byte) (struct{}, error) {
	return struct{}{}, nil
}

// decodeIDs parses a newline-delimited list of user IDs
func decodeIDs(status int, body []byte) ([]int64, error) {
	ids := []int64{}
	if status == http.StatusNoContent {
		return ids, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Split(scanAnyLines)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// scanAnyLines splits on \n, \r\n or a lone \r
func scanAnyLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// a \n may follow
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
