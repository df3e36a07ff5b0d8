package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/result-portal-api/internal/grading"
	"github.com/noah-isme/result-portal-api/internal/models"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
	"github.com/noah-isme/result-portal-api/pkg/jobs"
)

// TaskInvalidateTranscript is the background task kind that retries a failed
// cache invalidation.
const TaskInvalidateTranscript = "transcript.invalidate"

const transcriptLoadTimeout = 10 * time.Second

type slateReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ApprovedResult, error)
	ListByClass(ctx context.Context, classID string) ([]models.ApprovedResult, error)
	ListByClassPeriod(ctx context.Context, classID, session, semester string, level int) ([]models.ApprovedResult, error)
	ListClassPrior(ctx context.Context, classID, session, semester string, level int) ([]models.ApprovedResult, error)
}

type taskSubmitter interface {
	Submit(task jobs.Task) (bool, error)
}

// TranscriptService reads students' approved records. Transcripts are cached
// per student and concurrent misses for the same student share one load.
type TranscriptService struct {
	slates  slateReader
	cache   *CacheService
	metrics *MetricsService
	ttl     time.Duration
	group   singleflight.Group
	retries taskSubmitter
	logger  *zap.Logger
}

// NewTranscriptService constructs a TranscriptService. cache may be nil.
func NewTranscriptService(slates slateReader, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{slates: slates, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// UseRetryQueue routes failed invalidations to q. The queue's handler should
// be HandleTask.
func (s *TranscriptService) UseRetryQueue(q taskSubmitter) {
	s.retries = q
}

func transcriptCacheKey(studentID string) string {
	return fmt.Sprintf("results:student:%s:transcript", studentID)
}

// Transcript returns the student's history grouped by session. A student
// without approved records gets an empty transcript with a CGPA of zero.
func (s *TranscriptService) Transcript(ctx context.Context, studentID string) (*models.Transcript, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	key := transcriptCacheKey(studentID)

	var cached models.Transcript
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	// waiters share one load; it is detached from any single caller's
	// cancellation and bounded by its own deadline
	ch := s.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), transcriptLoadTimeout)
		defer cancel()
		start := time.Now()
		slates, err := s.slates.ListByStudent(loadCtx, studentID)
		s.metrics.ObserveDBQuery("approved_results_by_student", time.Since(start))
		if err != nil {
			return nil, storageError(err, "failed to load approved results")
		}
		transcript := BuildTranscript(studentID, slates)
		_ = s.cache.Set(loadCtx, key, transcript, s.ttl)
		return &transcript, nil
	})
	select {
	case <-ctx.Done():
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrTransientStorage.Code, appErrors.ErrTransientStorage.Status, "transcript load interrupted")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Transcript), nil
	}
}

// CGPA returns the student's cumulative GPA rounded to two decimals.
func (s *TranscriptService) CGPA(ctx context.Context, studentID string) (float64, error) {
	transcript, err := s.Transcript(ctx, studentID)
	if err != nil {
		return 0, err
	}
	return transcript.CGPA, nil
}

// Summary returns totals, honours class and outstanding courses.
func (s *TranscriptService) Summary(ctx context.Context, studentID string) (*models.StudentSummary, error) {
	transcript, err := s.Transcript(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &models.StudentSummary{
		StudentID:   transcript.StudentID,
		TNU:         transcript.TNU,
		TGP:         transcript.TGP,
		CGPA:        transcript.CGPA,
		Honours:     grading.Honours(transcript.CGPA),
		Outstanding: OutstandingCourses(*transcript),
	}, nil
}

// ClassStandings ranks the students of a class by CGPA.
func (s *TranscriptService) ClassStandings(ctx context.Context, classID string) ([]models.ClassStanding, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	start := time.Now()
	slates, err := s.slates.ListByClass(ctx, classID)
	s.metrics.ObserveDBQuery("approved_results_by_class", time.Since(start))
	if err != nil {
		return nil, storageError(err, "failed to load class results")
	}
	return RankStudents(slates), nil
}

// ClassBroadsheet returns every approved slate of a class for one period,
// the courses they cover and each student's totals from earlier periods.
func (s *TranscriptService) ClassBroadsheet(ctx context.Context, classID, session, semester string, level int) (*models.Broadsheet, error) {
	classID = strings.TrimSpace(classID)
	session = strings.TrimSpace(session)
	semester = strings.TrimSpace(semester)
	if classID == "" || session == "" || semester == "" || level <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id, session, semester and level are required")
	}

	start := time.Now()
	current, err := s.slates.ListByClassPeriod(ctx, classID, session, semester, level)
	s.metrics.ObserveDBQuery("approved_results_by_class_period", time.Since(start))
	if err != nil {
		return nil, storageError(err, "failed to load class results")
	}
	if len(current) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no approved results found for the class and period")
	}

	start = time.Now()
	prior, err := s.slates.ListClassPrior(ctx, classID, session, semester, level)
	s.metrics.ObserveDBQuery("approved_results_class_prior", time.Since(start))
	if err != nil {
		return nil, storageError(err, "failed to load previous class results")
	}

	sheet := BuildBroadsheet(classID, session, semester, level, current, prior)
	return &sheet, nil
}

// InvalidateStudents drops cached transcripts. A failed invalidation is
// handed to the retry queue when one is configured and logged otherwise.
func (s *TranscriptService) InvalidateStudents(ctx context.Context, studentIDs []string) {
	seen := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		err := s.invalidate(ctx, id)
		if err == nil {
			continue
		}
		if s.retries != nil {
			_, qErr := s.retries.Submit(jobs.Task{Key: id, Kind: TaskInvalidateTranscript})
			if qErr == nil {
				continue
			}
			err = errors.Join(err, qErr)
		}
		s.logger.Warn("failed to invalidate transcript cache", zap.String("student_id", id), zap.Error(err))
	}
}

// HandleTask processes a queued invalidation retry.
func (s *TranscriptService) HandleTask(ctx context.Context, task jobs.Task) error {
	if task.Kind != TaskInvalidateTranscript {
		return nil
	}
	return s.invalidate(ctx, task.Key)
}

func (s *TranscriptService) invalidate(ctx context.Context, studentID string) error {
	return s.cache.Invalidate(ctx, fmt.Sprintf("results:student:%s:*", studentID))
}
