package room

import (
	"context"
	"fmt"
	"time"

	"github.com/sharetube/synctube/internal/metrics"
)

// runSweep advances every loaded playing room whose video has run out, whether or
// not anyone is connected to it.
func (s *service) runSweep(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, lr := range s.registry.All() {
				if !lr.snapshot().Player.IsPlaying {
					continue
				}
				if _, err := s.checkVideoEnded(ctx, lr); err != nil {
					s.logger.ErrorContext(ctx, "failed to check video end", "room_id", lr.id, "error", err)
				}
			}
		}
	}
}

func (s *service) checkVideoEnded(ctx context.Context, lr *liveRoom) (advanced bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while checking video end: %v", r)
		}
	}()

	state := lr.snapshot()
	entry, ok := state.CurrentVideo()
	if !ok || !state.Player.IsPlaying {
		return false, nil
	}

	info, err := s.videoInfo.Get(ctx, entry.VideoID)
	if err != nil {
		return false, fmt.Errorf("failed to get video duration: %w", err)
	}

	if !state.CheckVideoEnded(info.Duration, s.clock()) {
		return false, nil
	}

	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return false, err
	}
	defer unlock()

	// another action or worker may have moved the room since the snapshot
	next := lr.state.Clone()
	if current, ok := next.CurrentVideo(); !ok || current.VideoID != entry.VideoID {
		return false, nil
	}
	if !next.CheckVideoEnded(info.Duration, s.clock()) {
		return false, nil
	}

	if err := s.commit(ctx, lr, next); err != nil {
		return false, fmt.Errorf("failed to commit ended video: %w", err)
	}

	metrics.VideosEnded.Inc()
	s.logger.DebugContext(ctx, "video ended", "room_id", lr.id, "video_id", entry.VideoID, "position", next.Position)
	s.broadcast(ctx, lr, emission{kind: eventVideoChanged})
	return true, nil
}
