// file: internals/helpers/oss/oss_trans_reaper.go
package helper

import (
	"context"
	"log"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/robfig/cron/v3"
)

type ReaperConfig struct {
	Prefix        string // archive prefix scanned by the OSS pass
	RetentionDays int
	CronSchedule  string
	DryRun        bool
}

// Purger drops expired in-process state (e.g. import previews) and reports
// how many entries went.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// StartReaperCron schedules the cleanup job: expired previews every run, and
// archived objects older than the retention when archive is not nil.
func StartReaperCron(cfg ReaperConfig, archive *ArchiveService, purgers ...Purger) (*cron.Cron, error) {
	if cfg.CronSchedule == "" {
		cfg.CronSchedule = "*/15 * * * *"
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(cfg.CronSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()

		runPurgers(ctx, purgers)

		if archive != nil {
			retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
			if err := runOSSReaper(ctx, archive.Bucket, cfg.Prefix, retention, cfg.DryRun); err != nil {
				log.Printf("[REAPER] OSS error: %v", err)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[REAPER] started schedule=%q prefix=%q retention=%dd dryRun=%v archive=%v",
		cfg.CronSchedule, cfg.Prefix, cfg.RetentionDays, cfg.DryRun, archive != nil)
	c.Start()
	return c, nil
}

func runPurgers(ctx context.Context, purgers []Purger) int {
	total := 0
	for _, p := range purgers {
		if p == nil {
			continue
		}
		n, err := p.Purge(ctx)
		if err != nil {
			log.Printf("[REAPER] purge error: %v", err)
			continue
		}
		total += n
	}
	if total > 0 {
		log.Printf("[REAPER] purged %d expired entries", total)
	}
	return total
}

func runOSSReaper(ctx context.Context, bucket *oss.Bucket, prefix string, retention time.Duration, dryRun bool) error {
	threshold := time.Now().Add(-retention)
	log.Printf("[OSS-REAPER] scanning prefix=%q threshold=%s dry=%v", prefix, threshold.Format(time.RFC3339), dryRun)

	marker := oss.Marker("")
	var keysToDelete []string
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		lor, err := bucket.ListObjects(oss.Prefix(prefix), marker, oss.MaxKeys(1000))
		if err != nil {
			return err
		}
		for _, obj := range lor.Objects {
			total++
			if obj.Key == "" {
				continue
			}
			if obj.LastModified.Before(threshold) {
				keysToDelete = append(keysToDelete, obj.Key)
			}
		}
		if !lor.IsTruncated {
			break
		}
		marker = oss.Marker(lor.NextMarker)
	}

	if len(keysToDelete) == 0 {
		log.Printf("[OSS-REAPER] nothing to delete; scanned=%d under %q", total, prefix)
		return nil
	}
	if dryRun {
		log.Printf("[OSS-REAPER] DRY-RUN would delete %d/%d objects under %q", len(keysToDelete), total, prefix)
		return nil
	}

	deleted := 0
	for i := 0; i < len(keysToDelete); i += 1000 {
		end := i + 1000
		if end > len(keysToDelete) {
			end = len(keysToDelete)
		}
		batch := keysToDelete[i:end]
		if _, err := bucket.DeleteObjects(batch, oss.DeleteObjectsQuiet(true), oss.WithContext(ctx)); err != nil {
			log.Printf("[OSS-REAPER] delete batch %d-%d failed: %v", i, end, err)
			continue
		}
		deleted += len(batch)
	}
	log.Printf("[OSS-REAPER] deleted %d objects (scanned=%d) under %q", deleted, total, prefix)
	return nil
}
