package period

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/batasku/periodgate/internal/authz"
	"github.com/batasku/periodgate/internal/erpnext"
)

// CheckRestrictionInput asks whether a transaction dated PostingDate may be
// created or modified for the company.
type CheckRestrictionInput struct {
	Company     string `json:"company" validate:"required"`
	PostingDate string `json:"posting_date" validate:"required,datetime=2006-01-02"`
	Doctype     string `json:"doctype" validate:"required"`
	Docname     string `json:"docname,omitempty"`
}

// RestrictionPeriod is the slim period payload returned by a restriction
// check. Nil when no closed period covers the posting date.
type RestrictionPeriod struct {
	Name       string `json:"name"`
	PeriodName string `json:"period_name"`
	Status     string `json:"status"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// RestrictionResult is the verdict of a restriction check. CanOverride and
// RequiresLogging travel together: an override is possible exactly when the
// caller must log it.
type RestrictionResult struct {
	Allowed         bool               `json:"allowed"`
	Restricted      bool               `json:"restricted"`
	Period          *RestrictionPeriod `json:"period"`
	Reason          string             `json:"reason,omitempty"`
	RequiresLogging bool               `json:"requiresLogging"`
	CanOverride     bool               `json:"canOverride"`
}

func allowedResult(reason string) RestrictionResult {
	return RestrictionResult{Allowed: true, Reason: reason}
}

// CheckRestriction reports whether the actor may post a transaction dated
// inside a closed period. Permanently closed periods block everyone. Closed
// periods admit System Managers and holders of the reopen role, flagged for
// audit logging by the caller. An upstream failure fails open so ledger
// work is never blocked by this service being unable to answer.
func (s *Service) CheckRestriction(ctx context.Context, actor authz.Actor, in CheckRestrictionInput) (RestrictionResult, error) {
	var periods []AccountingPeriod
	err := s.client.GetList(ctx, erpnext.DoctypeAccountingPeriod, erpnext.Query{
		Filters: erpnext.Filters{}.
			Eq("company", in.Company).
			In("status", string(StatusClosed), string(StatusPermanentlyClosed)).
			Lte("start_date", in.PostingDate).
			Gte("end_date", in.PostingDate),
		Fields:          periodFields,
		LimitPageLength: 1,
	}, &periods)
	if err != nil {
		s.log.WarnContext(ctx, "restriction check failed open",
			slog.String("company", in.Company),
			slog.String("posting_date", in.PostingDate),
			slog.Any("error", err),
		)
		return allowedResult(fmt.Sprintf("Validation error: %v", err)), nil
	}
	if len(periods) == 0 {
		return allowedResult(""), nil
	}

	p := periods[0]
	ref := &RestrictionPeriod{
		Name:       p.Name,
		PeriodName: p.PeriodName,
		Status:     p.Status,
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
	}
	if Status(p.Status) == StatusPermanentlyClosed {
		return RestrictionResult{
			Restricted: true,
			Period:     ref,
			Reason:     fmt.Sprintf("Cannot modify transaction: Period %s is permanently closed. No modifications are allowed.", p.PeriodName),
		}, nil
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "restriction check failed open", slog.Any("error", err))
		return allowedResult(fmt.Sprintf("Validation error: %v", err)), nil
	}
	reopenRole := cfg.ReopenRole
	if reopenRole == "" {
		reopenRole = authz.RoleAccountsManager
	}
	if actor.SystemManager() || actor.HasRole(reopenRole) {
		return RestrictionResult{
			Allowed:         true,
			Period:          ref,
			Reason:          fmt.Sprintf("Transaction allowed in closed period %s with administrator override", p.PeriodName),
			RequiresLogging: true,
			CanOverride:     true,
		}, nil
	}
	return RestrictionResult{
		Restricted: true,
		Period:     ref,
		Reason:     fmt.Sprintf("Cannot modify transaction: Period %s is closed. Contact administrator to reopen the period.", p.PeriodName),
	}, nil
}
