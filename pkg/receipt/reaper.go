package receipt

import (
	"context"
	"log"
	"strconv"
	"time"

	"Pantry-Pipeline-Backend/internal/utils"

	"github.com/robfig/cron/v3"
)

// Reaper fails receipts stuck in processing past a deadline, covering
// process restarts that orphan an in-flight poll.
type Reaper struct {
	receiptRepository ReceiptRepository
	cron              *cron.Cron
	staleAfter        time.Duration
	schedule          string
}

func NewReaper(receiptRepository ReceiptRepository) *Reaper {
	staleMinutes, _ := strconv.Atoi(utils.GetConfig("STALE_SCAN_MINUTES"))
	if staleMinutes <= 0 {
		staleMinutes = 10
	}
	schedule := utils.GetConfig("REAPER_SCHEDULE")
	if schedule == "" {
		schedule = "*/5 * * * *"
	}

	return &Reaper{
		receiptRepository: receiptRepository,
		cron:              cron.New(),
		staleAfter:        time.Duration(staleMinutes) * time.Minute,
		schedule:          schedule,
	}
}

func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.reap); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *Reaper) Stop() {
	r.cron.Stop()
}

func (r *Reaper) reap() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stale, err := r.receiptRepository.GetStaleProcessing(ctx, time.Now().Add(-r.staleAfter))
	if err != nil {
		log.Printf("Error listing stale receipt scans: %v", err)
		return
	}

	for _, receipt := range stale {
		if err := r.receiptRepository.FailProcessing(ctx, receipt.ID.String(), "recognition timed out"); err != nil {
			log.Printf("Error failing stale receipt %s: %v", receipt.ID, err)
		}
	}
}
