// Package digest emails each manager the clients their team has neglected.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/aws"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/dashboard"
	"fieldsales-workers/internal/models"
)

// Source is the slice of the store the digest reads.
type Source interface {
	ListManagers(ctx context.Context) ([]models.User, error)
	TeamMemberIDs(ctx context.Context, managerID string) ([]string, error)
	ListClients(ctx context.Context, p access.Principal) ([]models.Client, error)
	LastCompletedVisits(ctx context.Context, p access.Principal) ([]models.Visit, error)
}

type Mailer interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

type Digest struct {
	source    Source
	mailer    Mailer
	threshold int
	logger    logger.Logger
	now       func() time.Time
}

func New(source Source, mailer Mailer, thresholdDays int, log logger.Logger) *Digest {
	return &Digest{
		source:    source,
		mailer:    mailer,
		threshold: thresholdDays,
		logger:    log.WithFields(map[string]interface{}{"component": "digest"}),
		now:       time.Now,
	}
}

type Report struct {
	Managers int
	Sent     int
	Skipped  int
	Failed   int
}

// Run sends one digest per manager. A failure for one manager is logged and
// does not stop the others; only failing to list managers is returned.
func (d *Digest) Run(ctx context.Context) (Report, error) {
	var rep Report
	managers, err := d.source.ListManagers(ctx)
	if err != nil {
		return rep, fmt.Errorf("list managers: %w", err)
	}
	rep.Managers = len(managers)

	now := d.now()
	for _, m := range managers {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		sent, err := d.runFor(ctx, m, now)
		switch {
		case err != nil:
			rep.Failed++
			d.logger.Warn("digest failed for manager", map[string]interface{}{
				"managerId": m.ID,
				"error":     err,
			})
		case sent:
			rep.Sent++
		default:
			rep.Skipped++
		}
	}

	d.logger.Info("digest run finished", map[string]interface{}{
		"managers": rep.Managers,
		"sent":     rep.Sent,
		"skipped":  rep.Skipped,
		"failed":   rep.Failed,
	})
	return rep, nil
}

func (d *Digest) runFor(ctx context.Context, m models.User, now time.Time) (bool, error) {
	if m.Email == "" {
		return false, nil
	}
	team, err := d.source.TeamMemberIDs(ctx, m.ID)
	if err != nil {
		return false, err
	}
	p := access.Principal{UserID: m.ID, Email: m.Email, Role: access.RoleManager, TeamIDs: team}

	clients, err := d.source.ListClients(ctx, p)
	if err != nil {
		return false, err
	}
	visits, err := d.source.LastCompletedVisits(ctx, p)
	if err != nil {
		return false, err
	}

	neglected := dashboard.NeglectedClients(clients, visits, now, d.threshold)
	if len(neglected) == 0 {
		return false, nil
	}

	subject, body := Compose(m, neglected, now)
	if _, err := d.mailer.SendText(ctx, []string{m.Email}, subject, body); err != nil {
		if errors.Is(err, aws.ErrMailerDisabled) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Compose renders the plain-text digest.
func Compose(m models.User, neglected []dashboard.NeglectedClient, now time.Time) (string, string) {
	subject := fmt.Sprintf("%d neglected clients on your team (%s)", len(neglected), now.Format(dashboard.DateLayout))

	var b strings.Builder
	name := m.FullName
	if name == "" {
		name = m.Email
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "These clients have had no completed visit for %d days or more:\n\n", neglectThreshold(neglected))
	for _, n := range neglected {
		last := "never visited"
		if n.LastVisitAt != nil {
			last = fmt.Sprintf("%d days (last %s)", n.DaysSince, n.LastVisitAt.Format(dashboard.DateLayout))
		}
		zone := n.Zone
		if zone == "" {
			zone = dashboard.UnassignedZone
		}
		fmt.Fprintf(&b, "- %s [%s] owner %s: %s\n", n.Name, zone, n.OwnerID, last)
	}
	return subject, b.String()
}

// neglectThreshold reports the smallest staleness in the list, which is at
// least the configured threshold.
func neglectThreshold(neglected []dashboard.NeglectedClient) int {
	min := neglected[len(neglected)-1].DaysSince
	for _, n := range neglected {
		if n.DaysSince < min {
			min = n.DaysSince
		}
	}
	return min
}
