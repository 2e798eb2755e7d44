// Package services holds the application use cases. Every write checks the
// actor's capability before touching storage.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"potencialize/internal/apperr"
	"potencialize/internal/authz"
	"potencialize/internal/lock"
	"potencialize/internal/models"
	"potencialize/internal/repositories"
)

const lockTTL = 30 * time.Second

// Publisher fans committed events out to the notification sinks.
type Publisher interface {
	Publish(ctx context.Context, events ...models.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...models.Event) {}

// Deps is shared by every service.
type Deps struct {
	Store     repositories.Store
	Registry  *authz.Registry
	Locker    lock.Locker
	Publisher Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Locker == nil {
		d.Locker = lock.NewLocal()
	}
	if d.Publisher == nil {
		d.Publisher = nopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) authorize(actor *models.User, key authz.Capability) error {
	return d.Registry.Authorize(actor, key)
}

// locked serializes read-modify-write cycles on one aggregate.
func (d Deps) locked(ctx context.Context, kind string, id any, fn func() error) error {
	release, err := d.Locker.Acquire(ctx, fmt.Sprintf("%s:%v", kind, id), lockTTL)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// checkVersion rejects a write based on a stale read. Zero skips the check.
func checkVersion(kind string, id int64, expected, current int) error {
	if expected != 0 && expected != current {
		return apperr.Conflict("%s %d is at version %d, not %d", kind, id, current, expected)
	}
	return nil
}

// canSeeProject limits client accounts to their own company's projects.
func (d Deps) canSeeProject(actor *models.User, p models.Project) bool {
	if !d.Registry.IsClient(actor) {
		return true
	}
	return normalizeName(p.ClientName) == normalizeName(actor.CompanyName)
}

// requireProject checks the project exists and is visible to the actor.
func (d Deps) requireProject(ctx context.Context, actor *models.User, id int64) error {
	p, err := d.Store.Repos().Projects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !d.canSeeProject(actor, *p) {
		return apperr.NotFound("project", id)
	}
	return nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func actorID(u *models.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

func actorName(u *models.User) string {
	if u == nil {
		return "Sistema"
	}
	return u.Name
}
