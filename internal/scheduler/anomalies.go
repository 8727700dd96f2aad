package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/store"
	"github.com/mamadbah2/lineplan/pkg/clients/alerts"
)

// Anomaly kinds, also used as metric labels.
const (
	KindUnderutilized = "underutilized"
	KindOverutilized  = "overutilized"
	KindOverdue       = "overdue_order"
)

// Anomaly is one finding of a scan.
type Anomaly struct {
	Kind    string         `json:"kind"`
	LineID  models.LineID  `json:"line_id,omitempty"`
	OrderID models.OrderID `json:"order_id,omitempty"`
	Value   float64        `json:"value"`
}

// Subject names the line or order the anomaly concerns.
func (a Anomaly) Subject() string {
	if a.LineID != "" {
		return string(a.LineID)
	}
	return string(a.OrderID)
}

func (r *Reconciler) detect(state store.State, now time.Time) []Anomaly {
	var out []Anomaly
	for _, l := range state.Lines {
		if !l.IsActive() {
			continue
		}
		util := r.deps.Utilization.LineUtilization(l, state.Schedule, now)
		r.deps.Collector.ObserveLineUtilization(l.ID, util)
		switch {
		case util < r.cfg.UnderThreshold:
			out = append(out, Anomaly{Kind: KindUnderutilized, LineID: l.ID, Value: util})
		case util > r.cfg.OverThreshold:
			out = append(out, Anomaly{Kind: KindOverutilized, LineID: l.ID, Value: util})
		}
	}
	for _, o := range state.Orders {
		if o.Overdue(now) {
			out = append(out, Anomaly{Kind: KindOverdue, OrderID: o.ID, Value: now.Sub(o.DueDate).Hours()})
		}
	}
	return out
}

func (r *Reconciler) correct(ctx context.Context, anomalies []Anomaly, now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			r.deps.Collector.RecordCorrectionFailure()
			r.logger.Error("corrective action panicked", zap.Any("panic", rec))
		}
	}()

	for _, a := range anomalies {
		if err := r.deps.Alerts.Notify(ctx, toAlert(a, now)); err != nil {
			r.deps.Collector.RecordCorrectionFailure()
			r.logger.Warn("alert delivery failed", zap.String("kind", a.Kind), zap.String("subject", a.Subject()), zap.Error(err))
		}
	}

	if r.cfg.EscalateOverdue {
		escalated, err := r.escalateOverdue(anomalies)
		if err != nil {
			r.deps.Collector.RecordCorrectionFailure()
			r.logger.Warn("overdue escalation failed", zap.Error(err))
			return
		}
		if escalated > 0 {
			r.logger.Info("overdue orders escalated", zap.Int("count", escalated))
		}
	}
}

// escalateOverdue marks overdue orders that hold no booking as Critical Delay.
func (r *Reconciler) escalateOverdue(anomalies []Anomaly) (int, error) {
	escalated := 0
	err := r.deps.Store.Update(func(tx *store.Tx) error {
		escalated = 0
		for _, a := range anomalies {
			if a.Kind != KindOverdue {
				continue
			}
			order, err := tx.Order(a.OrderID)
			if err != nil {
				return err
			}
			if order.Status != models.StatusPlanned && order.Status != models.StatusQueued {
				continue
			}
			if _, live := tx.LiveEntryForOrder(order.ID); live {
				continue
			}
			order.Status = models.StatusCriticalDelay
			escalated++
		}
		return nil
	})
	return escalated, err
}

func toAlert(a Anomaly, now time.Time) alerts.Alert {
	alert := alerts.Alert{
		Kind:     a.Kind,
		Severity: alerts.SeverityWarning,
		Subject:  a.Subject(),
		RaisedAt: now,
	}
	switch a.Kind {
	case KindUnderutilized:
		alert.Message = fmt.Sprintf("line %s is underutilized at %.1f%%", a.LineID, a.Value)
	case KindOverutilized:
		alert.Message = fmt.Sprintf("line %s is overutilized at %.1f%%", a.LineID, a.Value)
	case KindOverdue:
		alert.Severity = alerts.SeverityCritical
		alert.Message = fmt.Sprintf("order %s is %.0fh past its due date", a.OrderID, a.Value)
	}
	return alert
}
