package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/result-portal-api/internal/models"
	appErrors "github.com/noah-isme/result-portal-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func floatPtr(v float64) *float64 {
	return &v
}

type auditRecorder struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, *log)
	return nil
}

func (a *auditRecorder) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

// resultStoreStub keeps records in memory and mirrors the guarded updates of
// the SQL repository.
type resultStoreStub struct {
	records   map[string]*models.ResultRecord
	createErr error
	findErr   error
	lockErrs  []error
	created   int
	lastQuery models.ResultFilter
}

func newResultStoreStub(records ...*models.ResultRecord) *resultStoreStub {
	s := &resultStoreStub{records: map[string]*models.ResultRecord{}}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *resultStoreStub) Create(ctx context.Context, record *models.ResultRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created++
	if record.ID == "" {
		record.ID = fmt.Sprintf("res-%d", s.created)
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *resultStoreStub) FindByID(ctx context.Context, id string) (*models.ResultRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	r, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *r
	return &clone, nil
}

func (s *resultStoreStub) FindByIdentity(ctx context.Context, staffID, session, semester string, level int, courseCode string) (*models.ResultRecord, error) {
	for _, r := range s.records {
		if r.StaffID == staffID && r.Session == session && r.Semester == semester && r.Level == level && r.CourseCode == courseCode {
			clone := *r
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *resultStoreStub) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultRecord, int, error) {
	s.lastQuery = filter
	var out []models.ResultRecord
	for _, r := range s.records {
		if filter.StaffID != "" && r.StaffID != filter.StaffID {
			continue
		}
		switch filter.Queue {
		case models.ResultQueueHODPending:
			if r.IsDeanApproved {
				continue
			}
		case models.ResultQueueDeanPending:
			if !r.IsHODApproved || r.IsDeanApproved {
				continue
			}
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *resultStoreStub) ReplaceEntries(ctx context.Context, id string, entries models.ScoreEntries) error {
	r, ok := s.records[id]
	if !ok || r.IsHODApproved || r.IsDeanApproved {
		return sql.ErrNoRows
	}
	r.Entries = entries
	return nil
}

func (s *resultStoreStub) SetHODDecision(ctx context.Context, id string, approved bool, reason *string) error {
	r, ok := s.records[id]
	if !ok || r.IsDeanApproved {
		return sql.ErrNoRows
	}
	r.IsHODApproved = approved
	r.HODDisapproved = !approved
	r.HODDisapprovalReason = reason
	return nil
}

func (s *resultStoreStub) SetDeanDisapproval(ctx context.Context, id string, reason string) error {
	r, ok := s.records[id]
	if !ok || r.IsDeanApproved {
		return sql.ErrNoRows
	}
	r.DeanDisapproved = true
	r.DeanDisapprovalReason = &reason
	return nil
}

func (s *resultStoreStub) FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.ResultRecord, error) {
	if len(s.lockErrs) > 0 {
		err := s.lockErrs[0]
		s.lockErrs = s.lockErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.FindByID(ctx, id)
}

func (s *resultStoreStub) MarkDeanApproved(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) error {
	r, ok := s.records[id]
	if !ok || r.IsDeanApproved {
		return sql.ErrNoRows
	}
	r.IsDeanApproved = true
	r.ApprovedAt = &at
	r.DeanDisapproved = false
	r.DeanDisapprovalReason = nil
	return nil
}

func (s *resultStoreStub) MarkDeanRetracted(ctx context.Context, tx *sqlx.Tx, id string, reason string) error {
	r, ok := s.records[id]
	if !ok || !r.IsDeanApproved {
		return sql.ErrNoRows
	}
	r.IsDeanApproved = false
	r.ApprovedAt = nil
	r.DeanDisapproved = true
	r.DeanDisapprovalReason = &reason
	return nil
}

// slateStoreStub is an in-memory slate table. Writes are applied
// immediately; tests assert on rollback through sqlmock expectations.
type slateStoreStub struct {
	slates    map[models.SlateKey]*models.ApprovedResult
	insertErr func(snapshot *models.CourseGradeSnapshot) error
	inserts   int
}

func newSlateStoreStub() *slateStoreStub {
	return &slateStoreStub{slates: map[models.SlateKey]*models.ApprovedResult{}}
}

func (s *slateStoreStub) LockSlate(ctx context.Context, tx *sqlx.Tx, seed *models.ApprovedResult) (*models.ApprovedResult, error) {
	key := seed.Key()
	stored, ok := s.slates[key]
	if !ok {
		clone := *seed
		clone.ID = fmt.Sprintf("slate-%s-%s-%s-%d", key.StudentID, key.Session, key.Semester, key.Level)
		clone.CreatedAt = time.Now()
		stored = &clone
		s.slates[key] = stored
	}
	copied := *stored
	copied.Courses = append([]models.CourseGradeSnapshot(nil), stored.Courses...)
	return &copied, nil
}

func (s *slateStoreStub) FindByResultForUpdate(ctx context.Context, tx *sqlx.Tx, resultID string) ([]models.ApprovedResult, error) {
	var out []models.ApprovedResult
	for _, slate := range s.slates {
		for _, c := range slate.Courses {
			if c.ResultID == resultID {
				copied := *slate
				copied.Courses = append([]models.CourseGradeSnapshot(nil), slate.Courses...)
				out = append(out, copied)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *slateStoreStub) byID(id string) *models.ApprovedResult {
	for _, slate := range s.slates {
		if slate.ID == id {
			return slate
		}
	}
	return nil
}

func (s *slateStoreStub) InsertCourse(ctx context.Context, tx *sqlx.Tx, snapshot *models.CourseGradeSnapshot) error {
	if s.insertErr != nil {
		if err := s.insertErr(snapshot); err != nil {
			return err
		}
	}
	slate := s.byID(snapshot.ApprovedResultID)
	if slate == nil {
		return fmt.Errorf("unknown slate %s", snapshot.ApprovedResultID)
	}
	slate.Courses = append(slate.Courses, *snapshot)
	s.inserts++
	return nil
}

func (s *slateStoreStub) DeleteCourse(ctx context.Context, tx *sqlx.Tx, slateID, code string) error {
	if slate := s.byID(slateID); slate != nil {
		slate.Remove(code)
	}
	return nil
}

func (s *slateStoreStub) SaveTotals(ctx context.Context, tx *sqlx.Tx, slate *models.ApprovedResult) error {
	stored := s.byID(slate.ID)
	if stored == nil {
		return fmt.Errorf("unknown slate %s", slate.ID)
	}
	stored.TotalUnits = slate.TotalUnits
	stored.TotalGradePoints = slate.TotalGradePoints
	stored.GPA = slate.GPA
	return nil
}

func (s *slateStoreStub) Delete(ctx context.Context, tx *sqlx.Tx, slateID string) error {
	for key, slate := range s.slates {
		if slate.ID == slateID {
			delete(s.slates, key)
		}
	}
	return nil
}

func (s *slateStoreStub) ListByStudent(ctx context.Context, studentID string) ([]models.ApprovedResult, error) {
	var out []models.ApprovedResult
	for _, slate := range s.slates {
		if slate.StudentID == studentID {
			out = append(out, *slate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *slateStoreStub) ListByClass(ctx context.Context, classID string) ([]models.ApprovedResult, error) {
	var out []models.ApprovedResult
	for _, slate := range s.slates {
		if slate.StudentClassID == classID {
			out = append(out, *slate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (s *slateStoreStub) slate(studentID, session, semester string, level int) *models.ApprovedResult {
	return s.slates[models.SlateKey{StudentID: studentID, Session: session, Semester: semester, Level: level}]
}

// memoryCache is a CacheRepository backed by a map of JSON payloads.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	gets  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}
