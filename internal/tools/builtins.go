package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CurrentTime reports the wall-clock time, optionally in params["zone"].
func CurrentTime(now func() time.Time) Tool {
	if now == nil {
		now = time.Now
	}
	return Func{
		Name: "current_time",
		Desc: "Report the current time",
		Fn: func(_ context.Context, params map[string]any) (string, error) {
			t := now()
			if zone, _ := params["zone"].(string); zone != "" {
				loc, err := time.LoadLocation(zone)
				if err != nil {
					return "", fmt.Errorf("unknown zone %q", zone)
				}
				t = t.In(loc)
			}
			return "The time is " + t.Format("15:04 MST") + ".", nil
		},
	}
}

// UnitStatus reads the officer's unit status from a lookup function supplied
// by the caller, typically backed by session situational data.
func UnitStatus(lookup func(ctx context.Context, unit string) (string, bool)) Tool {
	return Func{
		Name: "unit_status",
		Desc: "Report the status of a unit",
		Fn: func(ctx context.Context, params map[string]any) (string, error) {
			unit, _ := params["unit"].(string)
			unit = strings.TrimSpace(unit)
			if unit == "" {
				return "", errors.New("unit is required")
			}
			status, ok := lookup(ctx, unit)
			if !ok {
				return fmt.Sprintf("No status on record for unit %s.", unit), nil
			}
			return fmt.Sprintf("Unit %s is %s.", unit, status), nil
		},
	}
}
