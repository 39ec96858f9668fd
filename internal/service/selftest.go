package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/models/serviceresponse"
	"github.com/juancollazo-ch/holded-order-monitor/internal/window"
)

// SelfTest prueba catálogo, Holded y notificador por separado. No toca el ledger.
func (o *Orchestrator) SelfTest(ctx context.Context) serviceresponse.SelfTestReport {
	o.logger.Info("testing all workflow components")
	report := serviceresponse.SelfTestReport{}

	stats := o.refSource.Stats()
	report.Catalog = serviceresponse.ComponentCheck{
		Success: stats.Exists && stats.TotalReferences > 0,
		Stats: map[string]interface{}{
			"location":         stats.Location,
			"total_references": stats.TotalReferences,
			"total_rows":       stats.TotalRows,
		},
	}
	if !report.Catalog.Success {
		report.Catalog.Error = fmt.Sprintf("catalog unavailable or empty (exists=%t, references=%d)", stats.Exists, stats.TotalReferences)
	}

	report.OrderSource = check(o.source.TestConnection(ctx))
	report.Notifier = check(o.notifier.Test(ctx))

	report.OverallSuccess = report.Catalog.Success && report.OrderSource.Success && report.Notifier.Success
	if report.OverallSuccess {
		o.logger.Info("all component tests passed successfully")
	} else {
		o.logger.Warn("some component tests failed",
			zap.Bool("catalog", report.Catalog.Success),
			zap.Bool("order_source", report.OrderSource.Success),
			zap.Bool("notifier", report.Notifier.Success),
		)
	}
	return report
}

func check(err error) serviceresponse.ComponentCheck {
	if err != nil {
		return serviceresponse.ComponentCheck{Success: false, Error: err.Error()}
	}
	return serviceresponse.ComponentCheck{Success: true}
}

// Status describe configuración, ventana horaria y estado del catálogo y del ledger.
func (o *Orchestrator) Status(now time.Time) serviceresponse.SystemStatus {
	loc := o.cfg.Location()
	local := window.Localize(now, loc)
	start, end := o.cfg.Operation.StartHour, o.cfg.Operation.EndHour

	return serviceresponse.SystemStatus{
		Timestamp: local,
		Timezone:  o.cfg.Timezone,
		Schedule: serviceresponse.ScheduleInfo{
			Hour:                 o.cfg.Schedule.Hour,
			Minute:               o.cfg.Schedule.Minute,
			Description:          fmt.Sprintf("Daily at %02d:%02d %s time", o.cfg.Schedule.Hour, o.cfg.Schedule.Minute, o.cfg.Timezone),
			CheckIntervalMinutes: o.cfg.CheckIntervalMinutes,
		},
		OperationHours:       serviceresponse.OperationHoursInfo{StartHour: start, EndHour: end},
		CurrentlyOperational: window.IsOpen(local, start, end),
		NextOpening:          window.NextOpening(local, loc, start, end),
		Catalog:              o.refSource.Stats(),
		Ledger:               o.ledger.Stats(),
		Configuration:        o.cfg.Summary(),
		Errors:               []string{},
	}
}
