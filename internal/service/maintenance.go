package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"little-stars/internal/domain"
	"little-stars/internal/repository"
)

// SeedStudents inserts the given profiles that are not stored yet, typically
// the demo student on a fresh database.
func SeedStudents(ctx context.Context, students repository.StudentRepository, profiles ...domain.User) error {
	for i := range profiles {
		p := profiles[i]
		if _, err := students.GetByID(ctx, p.ID); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := students.Upsert(ctx, &p); err != nil {
			return fmt.Errorf("seed student %s: %w", p.ID, err)
		}
	}
	return nil
}

// RunSessionJanitor deletes expired session records every interval until ctx
// is done. Records are kept for grace after expiry.
func RunSessionJanitor(ctx context.Context, sessions repository.SessionRepository, interval, grace time.Duration, logger logrus.FieldLogger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx, time.Now().UTC().Add(-grace))
			if err != nil {
				if ctx.Err() == nil {
					logger.WithError(err).Warn("purge expired sessions")
				}
				continue
			}
			if n > 0 {
				logger.Infof("purged %d expired sessions", n)
			}
		}
	}
}
