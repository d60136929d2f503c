package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func String(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func Duration(key string, def time.Duration) (time.Duration, error) {
	if v, ok := lookupNonEmpty(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", key, err)
		}
		return d, nil
	}
	return def, nil
}

func Int(key string, def int) (int, error) {
	if v, ok := lookupNonEmpty(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", key, err)
		}
		return i, nil
	}
	return def, nil
}

func lookupNonEmpty(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Reader collects parse failures so a whole config block can be read before
// reporting. Err joins every failure seen.
type Reader struct {
	errs []error
}

func (r *Reader) String(key string, def string) string {
	return String(key, def)
}

func (r *Reader) Duration(key string, def time.Duration) time.Duration {
	d, err := Duration(key, def)
	if err != nil {
		r.errs = append(r.errs, err)
		return def
	}
	return d
}

func (r *Reader) Int(key string, def int) int {
	i, err := Int(key, def)
	if err != nil {
		r.errs = append(r.errs, err)
		return def
	}
	return i
}

func (r *Reader) Err() error {
	return errors.Join(r.errs...)
}
