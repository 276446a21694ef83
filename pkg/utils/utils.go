package utils

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Clone returns a copy of s, or nil if s is nil.
func Clone[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

func Contains[T comparable](s []T, v T) bool {
	return slices.Contains(s, v)
}

// AppendBounded appends v and drops the oldest entries so that at most limit remain.
func AppendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if limit > 0 && len(s) > limit {
		s = slices.Delete(s, 0, len(s)-limit)
	}
	return s
}

func Map[T any, O any](items []T, f func(T) O) []O {
	result := make([]O, len(items))
	for i, item := range items {
		result[i] = f(item)
	}
	return result
}

func Filter[T any](items []T, condition func(T) bool) []T {
	filtered := make([]T, 0, len(items))
	for _, v := range items {
		if condition(v) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

func Compress(data []byte) (bytes.Buffer, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return buf, errors.Wrap(err, "failed to write gzip data")
	}
	if err := gz.Close(); err != nil {
		return buf, errors.Wrap(err, "failed to close gzip writer")
	}
	return buf, nil
}

func Decompress(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gzip reader")
	}
	defer gz.Close()
	if data, err := io.ReadAll(gz); err != nil {
		return nil, errors.Wrap(err, "failed to read gzip content")
	} else {
		return data, nil
	}
}
