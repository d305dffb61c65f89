package repos

import (
	"errors"
	"strings"
	"time"
)

// ErrConstraint wraps sqlite UNIQUE/FOREIGN KEY/CHECK failures so services can
// map them without depending on driver error types.
var ErrConstraint = errors.New("constraint violation")

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// translate maps driver constraint errors onto ErrConstraint.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "constraint failed") {
		return errors.Join(ErrConstraint, err)
	}
	return err
}

// nullable stores "" as SQL NULL for optional foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
