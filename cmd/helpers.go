package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// parseUserIDs parses Telegram user IDs given as arguments
func parseUserIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for part := range strings.SplitSeq(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid user ID '%s': must be a positive integer", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// readUserIDs reads one user ID per line. Blank lines and lines starting
// with # are skipped.
func readUserIDs(r io.Reader) ([]int64, error) {
	var args []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args = append(args, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user IDs: %w", err)
	}
	return parseUserIDs(args)
}

// collectUserIDs merges IDs from arguments and an optional file ("-" is stdin)
func collectUserIDs(args []string, path string) ([]int64, error) {
	ids, err := parseUserIDs(args)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return ids, nil
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	fromFile, err := readUserIDs(r)
	if err != nil {
		return nil, err
	}
	return append(ids, fromFile...), nil
}

// confirm asks a yes/no question on stdin
func confirm(r io.Reader, prompt string) (bool, error) {
	fmt.Printf("%s [y/N]: ", prompt)

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, fmt.Errorf("failed to read input: %w", err)
		}
		return false, nil
	}
	return strings.ToLower(strings.TrimSpace(scanner.Text())) == "y", nil
}
