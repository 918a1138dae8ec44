package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redactyl/scangate/internal/scanner"
	"github.com/redactyl/scangate/internal/session"
	"github.com/redactyl/scangate/internal/types"
)

// UnknownPolicyError is returned when a category name is not registered.
type UnknownPolicyError struct {
	Name string
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("no matching policy found for: %s", e.Name)
}

// PolicyNotSelectedError is returned when strength or threshold is set before
// any category was selected.
type PolicyNotSelectedError struct {
	Op string
}

func (e *PolicyNotSelectedError) Error() string {
	return fmt.Sprintf("cannot set %s: select a scanning policy first", e.Op)
}

// Selector applies policy configuration to the scanner on behalf of one
// session.
type Selector struct {
	client   scanner.Client
	registry *Registry
	sess     *session.Session
	logger   *slog.Logger
}

// NewSelector binds a registry to a session and scanner. A nil registry means
// DefaultRegistry; a nil logger means slog.Default().
func NewSelector(client scanner.Client, registry *Registry, sess *session.Session, logger *slog.Logger) *Selector {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{client: client, registry: registry, sess: sess, logger: logger}
}

// SelectCategory enables the rules of name on the scanner and, once the
// scanner has accepted them, makes name the session's selected category. A
// failed enable leaves the previous selection in place.
func (s *Selector) SelectCategory(ctx context.Context, name string) error {
	ids, ok := s.registry.Lookup(name)
	if !ok {
		return &UnknownPolicyError{Name: name}
	}
	if err := s.client.SetRulesEnabled(ctx, ids, true); err != nil {
		return scanner.Infra("enable rules", name, err)
	}
	s.sess.Select(normalize(name), ids)
	s.logger.Info("policy enabled", slog.String("category", normalize(name)), slog.Any("rules", ids))
	return nil
}

// DisableAll turns off every rule on the scanner. The session's selection is
// left untouched.
func (s *Selector) DisableAll(ctx context.Context) error {
	if err := s.client.DisableAllRules(ctx); err != nil {
		return scanner.Infra("disable all rules", "", err)
	}
	return nil
}

// SetAttackStrength applies level to every selected rule.
func (s *Selector) SetAttackStrength(ctx context.Context, level string) error {
	return s.apply(ctx, "attack strength", level, s.client.SetRuleStrength)
}

// SetAlertThreshold applies level to every selected rule.
func (s *Selector) SetAlertThreshold(ctx context.Context, level string) error {
	return s.apply(ctx, "alert threshold", level, s.client.SetRuleAlertThreshold)
}

// apply calls set for each selected rule id. A failing id does not stop the
// remaining ids; all failures are returned together.
func (s *Selector) apply(ctx context.Context, op, raw string, set func(context.Context, int, types.Level) error) error {
	ids, ok := s.sess.Selected()
	if !ok {
		return &PolicyNotSelectedError{Op: op}
	}
	level, err := types.ParseLevel(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	var errs []error
	for _, id := range ids {
		if err := set(ctx, id, level); err != nil {
			errs = append(errs, scanner.Infra("set "+op, "rule "+strconv.Itoa(id), err))
		}
	}
	s.logger.Debug("policy level applied", slog.String("op", op), slog.String("level", string(level)),
		slog.Int("rules", len(ids)), slog.Int("failed", len(errs)))
	return errors.Join(errs...)
}
