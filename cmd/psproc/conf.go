package main

import (
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Conf is the configuration of `psproc report`.
type Conf struct {
	GraphiteAddr string   `toml:"graphite_addr"`
	Namespace    string   `toml:"namespace"`
	IntervalMS   int      `toml:"interval_ms"`
	Processes    []string `toml:"processes"` // process names (as in /proc/<pid>/stat) to sample
	Debug        bool     `toml:"debug,omitempty"`
}

// emptyFields takes a pointer to a struct type and returns a slice of toml tags of its empty fields. Fields
// tagged omitempty are optional and never reported.
// NOTE: This function panics if s is not a pointer to a struct type.
func emptyFields(s interface{}) []string {
	empty := []string{}
	v := reflect.ValueOf(s).Elem()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		name, opts, _ := strings.Cut(v.Type().Field(i).Tag.Get("toml"), ",")
		if opts == "omitempty" {
			continue
		}
		if field.IsZero() || (field.Kind() == reflect.Slice && field.Len() == 0) {
			empty = append(empty, name)
		}
	}
	return empty
}

func loadConf(path string) (*Conf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseConf(f, path)
}

func parseConf(r io.Reader, name string) (*Conf, error) {
	conf := &Conf{}
	if _, err := toml.NewDecoder(r).Decode(conf); err != nil {
		return nil, errors.Wrapf(err, "error decoding %s", name)
	}
	if empty := emptyFields(conf); len(empty) > 0 {
		return nil, errors.Errorf("missing fields in %s: %v", name, empty)
	}
	if conf.IntervalMS < 0 {
		return nil, errors.Errorf("%s: interval_ms must be positive", name)
	}
	return conf, nil
}

// namespaceParts splits a dotted Graphite namespace into sanitized components.
func namespaceParts(namespace string) []string {
	parts := strings.Split(namespace, ".")
	for i, part := range parts {
		parts[i] = sanitizeKey(part)
	}
	return parts
}

// sanitizeKey makes s safe to use as one component of a Graphite key: non-printable bytes and any of
// <>*[]{} are removed, spaces become _, slashes become - and dots (which would start a new component)
// become _.
func sanitizeKey(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < ' ' || c > '~' { // Remove any byte that isn't a printable ascii char
			continue
		}
		switch c {
		case ' ', '.':
			c = '_'
		case '/':
			c = '-'
		case '<', '>', '*', '[', ']', '{', '}':
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
