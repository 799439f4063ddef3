package service

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clubconnect-api/internal/dto"
	"github.com/noah-isme/clubconnect-api/internal/models"
	"github.com/noah-isme/clubconnect-api/pkg/email"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
	"github.com/noah-isme/clubconnect-api/pkg/jobs"
)

// BroadcastJobType identifies queued broadcast sends.
const BroadcastJobType = "broadcast.send"

const defaultBroadcastConcurrency = 5

type broadcastStore interface {
	List(ctx context.Context, filter models.BroadcastFilter) ([]models.Broadcast, int, error)
	FindByID(ctx context.Context, id string) (*models.Broadcast, error)
	Create(ctx context.Context, broadcast *models.Broadcast) error
	Update(ctx context.Context, broadcast *models.Broadcast) error
	TransitionStatus(ctx context.Context, id string, from []models.BroadcastStatus, to models.BroadcastStatus) (bool, error)
	SaveResult(ctx context.Context, broadcast *models.Broadcast) error
	ReleaseScheduled(ctx context.Context, before time.Time) (int, error)
	Delete(ctx context.Context, id string) error
}

type messageLog interface {
	Create(ctx context.Context, message *models.Message) error
	ListByBroadcast(ctx context.Context, broadcastID string) ([]models.Message, error)
}

type recipientDirectory interface {
	ListAll(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error)
}

type coverSchedule interface {
	ListAll(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// BroadcastDeps bundles the collaborators of BroadcastService.
type BroadcastDeps struct {
	Broadcasts broadcastStore
	Messages   messageLog
	Teachers   recipientDirectory
	Covers     coverSchedule
	Sender     email.Sender
	Metrics    *MetricsService
}

// BroadcastOptions tunes delivery.
type BroadcastOptions struct {
	// Concurrency bounds simultaneous sends of one broadcast.
	Concurrency int
	// CoverWindow is how far ahead {{cover_details}} looks.
	CoverWindow time.Duration
	Location    *time.Location
}

// BroadcastRequest is the create/update payload of a draft.
type BroadcastRequest struct {
	Subject      string            `json:"subject" validate:"required,max=255"`
	Body         string            `json:"body" validate:"required"`
	BodyFormat   models.BodyFormat `json:"body_format" validate:"omitempty,oneof=html markdown"`
	RecipientIDs []string          `json:"recipient_ids"`
}

// BroadcastService manages broadcast drafts and delivers them to teachers.
type BroadcastService struct {
	broadcasts broadcastStore
	messages   messageLog
	teachers   recipientDirectory
	covers     coverSchedule
	sender     email.Sender
	metrics    *MetricsService
	queue      jobEnqueuer
	opts       BroadcastOptions
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewBroadcastService constructs a BroadcastService.
func NewBroadcastService(deps BroadcastDeps, opts BroadcastOptions, validate *validator.Validate, logger *zap.Logger) *BroadcastService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultBroadcastConcurrency
	}
	if opts.CoverWindow <= 0 {
		opts.CoverWindow = 14 * 24 * time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &BroadcastService{
		broadcasts: deps.Broadcasts,
		messages:   deps.Messages,
		teachers:   deps.Teachers,
		covers:     deps.Covers,
		sender:     deps.Sender,
		metrics:    deps.Metrics,
		opts:       opts,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// SetQueue attaches the queue used by SendAsync.
func (s *BroadcastService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// List returns broadcasts, newest first.
func (s *BroadcastService) List(ctx context.Context, filter models.BroadcastFilter) ([]models.Broadcast, *models.Pagination, error) {
	items, total, err := s.broadcasts.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list broadcasts")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a broadcast by id.
func (s *BroadcastService) Get(ctx context.Context, id string) (*models.Broadcast, error) {
	b, err := s.broadcasts.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "broadcast")
	}
	return b, nil
}

// Messages returns the per-recipient send log.
func (s *BroadcastService) Messages(ctx context.Context, id string) ([]models.Message, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByBroadcast(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load broadcast messages")
	}
	return messages, nil
}

// Create stores a new draft. An empty recipient list means every
// teacher who is not blocked.
func (s *BroadcastService) Create(ctx context.Context, req BroadcastRequest, createdBy string) (*models.Broadcast, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid broadcast payload")
	}
	b := &models.Broadcast{Status: models.BroadcastDraft}
	applyBroadcastRequest(b, req)
	if createdBy != "" {
		b.CreatedBy = &createdBy
	}
	if err := s.broadcasts.Create(ctx, b); err != nil {
		return nil, appErrors.Internal(err, "failed to create broadcast")
	}
	return b, nil
}

// Update rewrites a draft.
func (s *BroadcastService) Update(ctx context.Context, id string, req BroadcastRequest) (*models.Broadcast, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid broadcast payload")
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.Editable() {
		return nil, appErrors.Clone(appErrors.ErrBroadcastState, "only draft broadcasts can be edited")
	}
	applyBroadcastRequest(b, req)
	if err := s.broadcasts.Update(ctx, b); err != nil {
		return nil, appErrors.Internal(err, "failed to update broadcast")
	}
	return b, nil
}

// Delete removes a broadcast and its send log unless a send is in flight.
func (s *BroadcastService) Delete(ctx context.Context, id string) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == models.BroadcastScheduled {
		return appErrors.Clone(appErrors.ErrBroadcastState, "broadcast is being sent")
	}
	if err := s.broadcasts.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete broadcast")
	}
	return nil
}

func applyBroadcastRequest(b *models.Broadcast, req BroadcastRequest) {
	b.Subject = req.Subject
	b.Body = req.Body
	b.BodyFormat = req.BodyFormat
	if b.BodyFormat == "" {
		b.BodyFormat = models.BodyFormatHTML
	}
	b.RecipientIDs = dedupeStrings(req.RecipientIDs)
	b.RecipientsCount = len(b.RecipientIDs)
}

// Preview renders the broadcast for one recipient without sending it. An
// empty teacherID picks the first recipient.
func (s *BroadcastService) Preview(ctx context.Context, id, teacherID string) (*dto.BroadcastPreview, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	recipients, err := s.resolveRecipients(ctx, b)
	if err != nil {
		return nil, err
	}
	target := recipients[0]
	if teacherID != "" {
		found := false
		for _, r := range recipients {
			if r.ID == teacherID {
				target, found = r, true
				break
			}
		}
		if !found {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher is not a recipient of this broadcast")
		}
	}
	msg, err := s.compose(ctx, b, target)
	if err != nil {
		return nil, err
	}
	return &dto.BroadcastPreview{TeacherID: target.ID, To: msg.To.String(), Subject: msg.Subject, HTML: msg.HTML}, nil
}

// Send delivers a draft synchronously and returns the delivery report.
func (s *BroadcastService) Send(ctx context.Context, id string) (*dto.BroadcastReport, error) {
	b, err := s.claim(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, b)
}

// SendAsync marks a draft scheduled and hands it to the job queue.
func (s *BroadcastService) SendAsync(ctx context.Context, id string) (*models.Broadcast, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "async broadcast dispatch is not configured")
	}
	b, err := s.claim(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(jobs.Job{Type: BroadcastJobType, Payload: id}); err != nil {
		if _, rerr := s.broadcasts.TransitionStatus(ctx, id, []models.BroadcastStatus{models.BroadcastScheduled}, models.BroadcastDraft); rerr != nil {
			s.logger.Error("failed to release broadcast after enqueue error", zap.String("broadcast_id", id), zap.Error(rerr))
		}
		return nil, appErrors.Internal(err, "failed to queue broadcast")
	}
	s.logger.Info("broadcast queued", zap.String("broadcast_id", id))
	return b, nil
}

// Release returns a scheduled broadcast to draft so it can be edited, sent
// or deleted again. Used when a queued send was lost.
func (s *BroadcastService) Release(ctx context.Context, id string) (*models.Broadcast, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BroadcastScheduled {
		return nil, appErrors.Clone(appErrors.ErrBroadcastState, "only scheduled broadcasts can be released")
	}
	moved, err := s.broadcasts.TransitionStatus(ctx, id, []models.BroadcastStatus{models.BroadcastScheduled}, models.BroadcastDraft)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to release broadcast")
	}
	if !moved {
		return nil, appErrors.Clone(appErrors.ErrBroadcastState, "broadcast is no longer scheduled")
	}
	s.logger.Info("broadcast released", zap.String("broadcast_id", id))
	b.Status = models.BroadcastDraft
	return b, nil
}

// ReleaseStalled puts every broadcast still scheduled at startup back to
// draft. The job queue is in memory, so those sends can never complete.
func (s *BroadcastService) ReleaseStalled(ctx context.Context) (int, error) {
	released, err := s.broadcasts.ReleaseScheduled(ctx, s.now().UTC())
	if err != nil {
		return 0, appErrors.Internal(err, "failed to release stalled broadcasts")
	}
	if released > 0 {
		s.logger.Warn("released stalled broadcasts", zap.Int("count", released))
	}
	return released, nil
}

// HandleJob is the queue handler for BroadcastJobType jobs.
func (s *BroadcastService) HandleJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok || job.Type != BroadcastJobType {
		return fmt.Errorf("unexpected job %s of type %s", job.ID, job.Type)
	}
	b, err := s.broadcasts.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load broadcast %s: %w", id, err)
	}
	if b.Status != models.BroadcastScheduled {
		s.logger.Warn("skipping broadcast job", zap.String("broadcast_id", id), zap.String("status", string(b.Status)))
		return nil
	}
	_, err = s.deliver(ctx, b)
	return err
}

// claim moves a draft to scheduled so concurrent sends cannot both run.
func (s *BroadcastService) claim(ctx context.Context, id string) (*models.Broadcast, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.Editable() {
		return nil, appErrors.Clone(appErrors.ErrBroadcastState, "broadcast has already been sent")
	}
	moved, err := s.broadcasts.TransitionStatus(ctx, id, []models.BroadcastStatus{models.BroadcastDraft}, models.BroadcastScheduled)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to claim broadcast")
	}
	if !moved {
		return nil, appErrors.Clone(appErrors.ErrBroadcastState, "broadcast has already been sent")
	}
	b.Status = models.BroadcastScheduled
	return b, nil
}

func (s *BroadcastService) resolveRecipients(ctx context.Context, b *models.Broadcast) ([]models.Teacher, error) {
	filter := models.TeacherFilter{IDs: b.RecipientIDs}
	if len(b.RecipientIDs) == 0 {
		notBlocked := false
		filter = models.TeacherFilter{Blocked: &notBlocked}
	}
	teachers, err := s.teachers.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load recipients")
	}
	if len(teachers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "broadcast has no recipients")
	}
	return teachers, nil
}

// deliver fans out one send per recipient, bounded by the configured
// concurrency. Every attempt is logged; failures are counted, never retried.
func (s *BroadcastService) deliver(ctx context.Context, b *models.Broadcast) (*dto.BroadcastReport, error) {
	started := s.now()
	// The outcome is recorded even when the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)
	recipients, err := s.resolveRecipients(ctx, b)
	if err != nil {
		b.Status = models.BroadcastFailed
		if serr := s.broadcasts.SaveResult(persistCtx, b); serr != nil {
			s.logger.Error("failed to persist broadcast failure", zap.String("broadcast_id", b.ID), zap.Error(serr))
		}
		return nil, err
	}

	report := &dto.BroadcastReport{BroadcastID: b.ID, Total: len(recipients)}
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.opts.Concurrency)
	)
	for _, teacher := range recipients {
		wg.Add(1)
		sem <- struct{}{}
		go func(teacher models.Teacher) {
			defer wg.Done()
			defer func() { <-sem }()

			err := s.sendOne(ctx, persistCtx, b, teacher)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Failures = append(report.Failures, dto.RecipientFailure{TeacherID: teacher.ID, Email: teacher.Email, Error: err.Error()})
				return
			}
			report.Sent++
		}(teacher)
	}
	wg.Wait()
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].TeacherID < report.Failures[j].TeacherID })

	switch {
	case report.Failed == 0:
		report.Outcome = dto.OutcomeSent
	case report.Sent == 0:
		report.Outcome = dto.OutcomeFailed
	default:
		report.Outcome = dto.OutcomePartial
	}

	sentAt := s.now().UTC()
	b.RecipientsCount = report.Total
	b.SentCount = report.Sent
	b.FailedCount = report.Failed
	b.SentAt = &sentAt
	b.Status = models.BroadcastCompleted
	if report.Sent == 0 {
		b.Status = models.BroadcastFailed
	}
	report.Status = string(b.Status)
	if err := s.broadcasts.SaveResult(persistCtx, b); err != nil {
		return report, appErrors.Internal(err, "failed to save broadcast result")
	}

	s.metrics.RecordBroadcast(string(report.Outcome), report.Sent, report.Failed, s.now().Sub(started))
	s.logger.Info("broadcast delivered",
		zap.String("broadcast_id", b.ID),
		zap.Int("total", report.Total),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.String("outcome", string(report.Outcome)))
	return report, nil
}

func (s *BroadcastService) sendOne(ctx, logCtx context.Context, b *models.Broadcast, teacher models.Teacher) error {
	msg, err := s.compose(ctx, b, teacher)
	if err == nil {
		err = s.sender.Send(ctx, msg)
	}

	entry := &models.Message{
		BroadcastID:    b.ID,
		TeacherID:      teacher.ID,
		RecipientEmail: teacher.Email,
		Subject:        msg.Subject,
		Body:           msg.HTML,
		Status:         models.MessageSent,
	}
	if err != nil {
		reason := err.Error()
		entry.Status = models.MessageFailed
		entry.Error = &reason
		s.logger.Warn("broadcast email failed", zap.String("broadcast_id", b.ID), zap.String("teacher_id", teacher.ID), zap.Error(err))
	}
	if logErr := s.messages.Create(logCtx, entry); logErr != nil {
		s.logger.Warn("failed to log broadcast message", zap.String("broadcast_id", b.ID), zap.String("teacher_id", teacher.ID), zap.Error(logErr))
	}
	return err
}

// compose renders subject and body for one teacher.
func (s *BroadcastService) compose(ctx context.Context, b *models.Broadcast, teacher models.Teacher) (email.Message, error) {
	msg := email.Message{To: mail.Address{Name: teacher.FullName(), Address: teacher.Email}}
	body, err := renderBodyHTML(b.Body, b.BodyFormat)
	if err != nil {
		return msg, err
	}
	p := personalization{FirstName: teacher.FirstName, LastName: teacher.LastName, Today: s.now().In(s.opts.Location)}
	if usesCoverDetails(b) && s.covers != nil {
		covers, err := s.upcomingCovers(ctx, teacher.ID, p.Today)
		if err != nil {
			return msg, err
		}
		p.Covers = covers
	}
	msg.Subject = p.text(b.Subject)
	msg.HTML = p.html(body)
	return msg, nil
}

func (s *BroadcastService) upcomingCovers(ctx context.Context, teacherID string, today time.Time) ([]models.CoverOccurrenceDetail, error) {
	from := models.DateOnly(today)
	to := models.DateOnly(today.Add(s.opts.CoverWindow))
	items, err := s.covers.ListAll(ctx, models.CoverOccurrenceFilter{From: &from, To: &to, TeacherID: teacherID})
	if err != nil {
		return nil, fmt.Errorf("load upcoming covers: %w", err)
	}
	out := make([]models.CoverOccurrenceDetail, 0, len(items))
	for _, item := range items {
		for _, a := range item.Assignments {
			if a.TeacherID == teacherID && a.Status.Occupies() {
				out = append(out, item)
				break
			}
		}
	}
	return out, nil
}
