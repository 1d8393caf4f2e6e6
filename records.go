package psproc

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// These are swapped out in tests.
var (
	openFile = func(name string) (io.ReadCloser, error) { return os.Open(name) }
	readDir  = os.ReadDir
	readlink = os.Readlink
)

// readFirstLine returns the first line of the named file with the trailing newline removed.
func readFirstLine(name string) (string, error) {
	f, err := openFile(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\n"), nil
}

// scanKeyValues calls fn for each "Key: v1 v2 ..." line of a file such as /proc/<pid>/status. key has the
// trailing ':' removed. Scanning stops early if fn returns false.
func scanKeyValues(name string, fn func(key string, values []string) bool) error {
	f, err := openFile(name)
	if err != nil {
		return err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		i := strings.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		if !fn(line[:i], strings.Fields(line[i+1:])) {
			return nil
		}
	}
	return scanner.Err()
}

// lookupKeys finds the values of each of keys in a key-value file. It is an ErrMalformed error for any of
// the keys to be absent.
func lookupKeys(name string, keys ...string) (map[string][]string, error) {
	result := make(map[string][]string, len(keys))
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	err := scanKeyValues(name, func(key string, values []string) bool {
		if _, ok := want[key]; ok {
			if _, seen := result[key]; !seen {
				result[key] = values
			}
		}
		return len(result) < len(keys)
	})
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if _, ok := result[k]; !ok {
			return nil, malformedf("%s: no %q line", name, k)
		}
	}
	return result, nil
}

// lookupUints is lookupKeys for keys whose first value is an unsigned integer.
func lookupUints(name string, keys ...string) (map[string]uint64, error) {
	found, err := lookupKeys(name, keys...)
	if err != nil {
		return nil, err
	}
	result := make(map[string]uint64, len(found))
	for k, values := range found {
		if len(values) == 0 {
			return nil, malformedf("%s: %q has no value", name, k)
		}
		v, err := strconv.ParseUint(values[0], 10, 64)
		if err != nil {
			return nil, malformedf("%s: %q: %s", name, k, err)
		}
		result[k] = v
	}
	return result, nil
}

// scanTable calls fn with the whitespace-separated fields of every row of a columnar file such as
// /proc/net/tcp, skipping the header row. Any error from fn stops the scan and is returned.
func scanTable(name string, fn func(fields []string) error) error {
	return scanTableLines(name, func(line string) error {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil
		}
		return fn(fields)
	})
}

// scanTableLines is scanTable for callers that need the raw row, such as when the last column may contain
// spaces.
func scanTableLines(name string, fn func(line string) error) error {
	f, err := openFile(name)
	if err != nil {
		return err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Scan() // header
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// parseUints parses each of fields as a base-10 unsigned integer.
func parseUints(fields []string) ([]uint64, error) {
	values := make([]uint64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
