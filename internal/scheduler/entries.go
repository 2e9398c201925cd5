package scheduler

import (
	"context"

	"github.com/sc-pool/payout-rpc-client/internal/engine"
)

// Job names, matching spec.md §4.6's table exactly.
const (
	JobIngest        = "ingest"
	JobSettle        = "settle"
	JobAssociateAll  = "associate-all"
	JobConfirm       = "confirm"
)

// DefaultEntries builds the four scheduler entries spec.md §4.6 requires
// for one currency's Engine: ingest every minute, settle (send then
// associate) once daily at settleHour, associate-all once daily at
// associateHour, confirm once daily at confirmHour.
func DefaultEntries(currency string, eng *engine.Engine, settleHour, associateHour, confirmHour int) []Entry {
	return []Entry{
		{
			Currency: currency,
			Job:      JobIngest,
			Schedule: EveryMinute{},
			Run: func(ctx context.Context) error {
				_, err := eng.Pull(ctx, false)
				return err
			},
		},
		{
			Currency: currency,
			Job:      JobSettle,
			Schedule: DailyAt{Hour: settleHour},
			Run: func(ctx context.Context) error {
				if _, err := eng.Send(ctx, false); err != nil {
					return err
				}
				_, err := eng.Associate(ctx, false)
				return err
			},
		},
		{
			Currency: currency,
			Job:      JobAssociateAll,
			Schedule: DailyAt{Hour: associateHour},
			Run: func(ctx context.Context) error {
				_, err := eng.Associate(ctx, false)
				return err
			},
		},
		{
			Currency: currency,
			Job:      JobConfirm,
			Schedule: DailyAt{Hour: confirmHour},
			Run: func(ctx context.Context) error {
				_, err := eng.Confirm(ctx, false)
				return err
			},
		},
	}
}
