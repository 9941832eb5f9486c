package cron

import (
	"testing"

	"github.com/robfig/cron/v3"
)

// FuzzScheduleExpr checks that arbitrary schedule strings never panic the
// parser the scheduler uses; they may only error.
func FuzzScheduleExpr(f *testing.F) {
	f.Add("*/5 * * * *")
	f.Add("0 * * * *")
	f.Add("30 3 * * 1")
	f.Add("* * * * *")
	f.Add("61 * * * *")
	f.Add("not-cron")
	f.Add("")

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	f.Fuzz(func(_ *testing.T, expr string) {
		_, _ = parser.Parse(expr)
	})
}
