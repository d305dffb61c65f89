package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"synergyfoods/internal/cache"
	"synergyfoods/internal/events"
	applog "synergyfoods/internal/log"
	"synergyfoods/internal/repos"
	"synergyfoods/internal/validate"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrInvalid    = errors.New("invalid input")
	ErrEmptyCart  = errors.New("cart is empty")
	ErrStepOrder  = errors.New("checkout step out of order")
	ErrForbidden  = errors.New("forbidden")
	ErrBadCreds   = errors.New("invalid email or password")
	ErrOutOfStock = errors.New("not enough stock")
)

// ValidationError carries per-field messages. errors.Is(err, ErrInvalid) holds.
type ValidationError struct {
	Fields []validate.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

func invalid(field, msg string) error {
	return &ValidationError{Fields: []validate.FieldError{{Field: field, Message: msg}}}
}

// check runs struct-tag validation on in.
func check(in any) error {
	if fe := validate.Struct(in); fe != nil {
		return &ValidationError{Fields: fe}
	}
	return nil
}

// lookup maps sql.ErrNoRows to ErrNotFound.
func lookup(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// store maps constraint failures to ErrConflict.
func store(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repos.ErrConstraint) {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// slugOrName returns the given slug, or one derived from name.
func slugOrName(slug, name string) (string, error) {
	if slug != "" {
		return slug, nil
	}
	s := validate.MakeSlug(name)
	if s == "" {
		return "", invalid("slug", "could not be derived from name")
	}
	return s, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

const catalogPrefix = "catalog:"

// invalidate drops cached catalog reads. Failures are logged, never returned.
func invalidate(ctx context.Context, c cache.Store) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 500*time.Millisecond)
	defer cancel()
	if err := c.DeleteByPrefix(ctx, catalogPrefix); err != nil {
		applog.L().Warn("cache.invalidate", zap.Error(err))
	}
}

func remember(ctx context.Context, c cache.Store, key string, v any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 500*time.Millisecond)
	defer cancel()
	if err := c.Set(ctx, key, v); err != nil {
		applog.L().Warn("cache.set", zap.String("key", key), zap.Error(err))
	}
}

// publish sends an order event. Failures are logged, never returned.
func publish(ctx context.Context, p events.Publisher, ev events.OrderEvent) {
	if err := p.Publish(context.WithoutCancel(ctx), ev); err != nil {
		applog.L().Warn("events.publish", zap.String("type", ev.EventType), zap.String("order_id", ev.OrderID), zap.Error(err))
	}
}

func isNotFound(err error) bool { return errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound) }
