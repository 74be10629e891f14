package penalty

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/penalty"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Config tunes the violation engine.
type Config struct {
	// Concurrency caps the number of users evaluated in parallel for one day.
	Concurrency int
	Now         func() time.Time
}

type PenaltyServiceImpl struct {
	company.SettingsProvider
	penalty.PenaltyRepository
	attendance.AttendanceRepository
	notificationService notification.Service
	auditService        audit.Service
	metrics             *metrics.Metrics
	config              Config
}

// CalculateDailyViolations implements penalty.PenaltyService.
func (p *PenaltyServiceImpl) CalculateDailyViolations(ctx context.Context, req penalty.CalculateDailyRequest) (penalty.DailyViolationResult, error) {
	if err := req.Validate(); err != nil {
		return penalty.DailyViolationResult{}, err
	}

	settings, err := p.SettingsProvider.GetCompanySettings(ctx)
	if err != nil {
		return penalty.DailyViolationResult{}, fmt.Errorf("failed to load company settings: %w", err)
	}
	return p.calculateDaily(ctx, settings, req.Date, req.UserID)
}

func (p *PenaltyServiceImpl) calculateDaily(ctx context.Context, settings company.Settings, dateKey string, userID *string) (penalty.DailyViolationResult, error) {
	result := penalty.DailyViolationResult{Date: dateKey}
	loc, err := settings.Location()
	if err != nil {
		return penalty.DailyViolationResult{}, err
	}
	today := p.config.Now().In(loc).Format(validator.DateLayout)
	if dateKey > today {
		return penalty.DailyViolationResult{}, validator.ValidationErrors{
			{Field: "date", Message: "date must not be in the future"},
		}
	}
	if settings.IsHoliday(dateKey) {
		result.Skipped = true
		result.SkipReason = "holiday"
		return result, nil
	}

	records, err := p.AttendanceRepository.ListByDate(ctx, dateKey, userID)
	if err != nil {
		return penalty.DailyViolationResult{}, fmt.Errorf("failed to list attendance records: %w", err)
	}
	result.RecordsScanned = len(records)

	byUser := make(map[string][]penalty.Violation)
	var users []string
	for _, record := range records {
		// Today's records count only once every slot has been resolved.
		if dateKey == today && !record.IsClosed() {
			result.RecordsOpen++
			continue
		}
		violations := DetectViolations(record)
		if len(violations) == 0 {
			continue
		}
		if _, seen := byUser[record.UserID]; !seen {
			users = append(users, record.UserID)
		}
		byUser[record.UserID] = append(byUser[record.UserID], violations...)
		result.ViolationsDetected += len(violations)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for _, uid := range users {
		uid := uid
		g.Go(func() error {
			// A user's violations run in order so each sees the previous one's count.
			for _, v := range byUser[uid] {
				outcome, err := p.applyViolation(gctx, settings, v)
				if err != nil {
					return fmt.Errorf("penalty %s: %w", v.PenaltyID(), err)
				}
				mu.Lock()
				switch outcome {
				case outcomeExisting:
					result.AlreadyRecorded++
				case outcomeWarning:
					result.PenaltiesCreated++
					result.Warnings++
				case outcomeFine:
					result.PenaltiesCreated++
					result.Fines++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return penalty.DailyViolationResult{}, fmt.Errorf("failed to calculate violations for %s: %w", dateKey, err)
	}

	slog.Info("daily violations calculated",
		"date", dateKey,
		"records", result.RecordsScanned,
		"violations", result.ViolationsDetected,
		"created", result.PenaltiesCreated,
		"already_recorded", result.AlreadyRecorded,
	)
	return result, nil
}

// DetectViolations lists the infractions on a closed record: the daily status
// first, then late morning and midday check-ins, then an early check-out.
// Leave days produce nothing.
func DetectViolations(record attendance.Attendance) []penalty.Violation {
	if record.Status == attendance.StatusOnLeave {
		return nil
	}

	var violations []penalty.Violation
	add := func(t penalty.ViolationType, field string) {
		violations = append(violations, penalty.Violation{
			UserID:   record.UserID,
			DateKey:  record.DateKey,
			Type:     t,
			Field:    field,
			RecordID: record.ID,
		})
	}

	switch record.Status {
	case attendance.StatusAbsent:
		add(penalty.ViolationAbsent, penalty.FieldStatus)
	case attendance.StatusHalfDayAbsent:
		add(penalty.ViolationHalfDayAbsent, penalty.FieldStatus)
	}
	if record.Check1.Status == attendance.SlotStatusLate {
		add(penalty.ViolationLate, string(attendance.SlotCheck1))
	}
	if record.Check2.Status == attendance.SlotStatusLate {
		add(penalty.ViolationLate, string(attendance.SlotCheck2))
	}
	if record.Check3.Status == attendance.SlotStatusEarlyLeave {
		add(penalty.ViolationEarlyLeave, string(attendance.SlotCheck3))
	}
	return violations
}

type applyOutcome int

const (
	outcomeExisting applyOutcome = iota
	outcomeWarning
	outcomeFine
)

// applyViolation writes the penalty for v unless it already exists. The
// monthly count covers same-type penalties from the first of the month up to
// and including the violation day.
func (p *PenaltyServiceImpl) applyViolation(ctx context.Context, settings company.Settings, v penalty.Violation) (applyOutcome, error) {
	id := v.PenaltyID()
	exists, err := p.PenaltyRepository.Exists(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to check penalty: %w", err)
	}
	if exists {
		return outcomeExisting, nil
	}

	dateIncurred, ok := validator.IsValidDate(v.DateKey)
	if !ok {
		return 0, fmt.Errorf("invalid date key %q", v.DateKey)
	}
	monthStart := time.Date(dateIncurred.Year(), dateIncurred.Month(), 1, 0, 0, 0, 0, time.UTC)

	existingCount, err := p.PenaltyRepository.CountByUserTypeBetween(ctx, v.UserID, v.Type, monthStart, dateIncurred)
	if err != nil {
		return 0, fmt.Errorf("failed to count penalties: %w", err)
	}

	threshold := settings.PenaltyRules.ThresholdFor(string(v.Type))
	fined := existingCount >= threshold
	amount := decimal.Zero
	if fined {
		amount = settings.PenaltyRules.AmountFor(string(v.Type))
	}

	record := penalty.Penalty{
		ID:             id,
		UserID:         v.UserID,
		ViolationType:  v.Type,
		ViolationField: v.Field,
		DateKey:        v.DateKey,
		DateIncurred:   dateIncurred,
		Amount:         amount,
		IsWarning:      !fined,
		ViolationCount: existingCount + 1,
		Threshold:      threshold,
		Status:         penalty.StatusActive,
	}
	inserted, err := p.PenaltyRepository.CreateIfAbsent(ctx, record)
	if err != nil {
		return 0, fmt.Errorf("failed to create penalty: %w", err)
	}
	if !inserted {
		return outcomeExisting, nil
	}

	p.metrics.ObservePenalty(string(v.Type), record.IsWarning)
	p.notifyPenalty(ctx, record)
	if fined {
		return outcomeFine, nil
	}
	return outcomeWarning, nil
}

func (p *PenaltyServiceImpl) notifyPenalty(ctx context.Context, record penalty.Penalty) {
	req := notification.CreateNotificationRequest{
		RecipientID: record.UserID,
		Category:    notification.CategoryPenalty,
		RelatedID:   &record.ID,
		Data: map[string]interface{}{
			"violation_type":  string(record.ViolationType),
			"violation_field": record.ViolationField,
			"date_key":        record.DateKey,
			"violation_count": record.ViolationCount,
			"threshold":       record.Threshold,
			"amount":          record.Amount.String(),
		},
	}
	if record.IsWarning {
		req.Type = notification.TypeViolationWarning
		req.Title = "Attendance Violation Warning"
		req.Message = fmt.Sprintf("Warning: %s on %s (occurrence %d this month, %d allowed before fines).",
			violationLabel(record.ViolationType), record.DateKey, record.ViolationCount, record.Threshold)
	} else {
		req.Type = notification.TypePenaltyIssued
		req.Title = "Penalty Issued"
		req.Message = fmt.Sprintf("A fine of Rp %s was issued for %s on %s (occurrence %d this month).",
			record.Amount.StringFixed(0), violationLabel(record.ViolationType), record.DateKey, record.ViolationCount)
	}

	if err := p.notificationService.QueueNotification(ctx, req); err != nil {
		slog.Warn("failed to queue penalty notification", "penalty_id", record.ID, "error", err)
	}
}

func violationLabel(t penalty.ViolationType) string {
	switch t {
	case penalty.ViolationLate:
		return "late check-in"
	case penalty.ViolationEarlyLeave:
		return "early check-out"
	case penalty.ViolationAbsent:
		return "absence"
	case penalty.ViolationHalfDayAbsent:
		return "half-day absence"
	}
	return string(t)
}

// CalculateMonthlyViolations implements penalty.PenaltyService.
func (p *PenaltyServiceImpl) CalculateMonthlyViolations(ctx context.Context, req penalty.CalculateMonthlyRequest) (penalty.MonthlyViolationResult, error) {
	if err := req.Validate(); err != nil {
		return penalty.MonthlyViolationResult{}, err
	}
	monthStart, _ := validator.IsValidMonth(req.Month)
	monthEnd := monthStart.AddDate(0, 1, -1)

	settings, err := p.SettingsProvider.GetCompanySettings(ctx)
	if err != nil {
		return penalty.MonthlyViolationResult{}, fmt.Errorf("failed to load company settings: %w", err)
	}
	loc, err := settings.Location()
	if err != nil {
		return penalty.MonthlyViolationResult{}, err
	}

	// Only days that have fully ended in company time are evaluated.
	today := p.config.Now().In(loc)
	yesterday := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	last := monthEnd
	if yesterday.Before(last) {
		last = yesterday
	}

	result := penalty.MonthlyViolationResult{Month: req.Month}
	for day := monthStart; !day.After(last); day = day.AddDate(0, 0, 1) {
		daily, err := p.calculateDaily(ctx, settings, day.Format(validator.DateLayout), req.UserID)
		if err != nil {
			return penalty.MonthlyViolationResult{}, err
		}
		if daily.Skipped {
			result.DaysSkipped++
			continue
		}
		result.DaysProcessed++
		result.PenaltiesCreated += daily.PenaltiesCreated
	}

	penalties, err := p.PenaltyRepository.ListBetween(ctx, monthStart, monthEnd, req.UserID)
	if err != nil {
		return penalty.MonthlyViolationResult{}, fmt.Errorf("failed to list penalties: %w", err)
	}
	result.Summaries = Summarize(penalties)
	return result, nil
}

// Summarize groups penalties per user. Waived penalties are counted but do
// not contribute to the total amount.
func Summarize(penalties []penalty.Penalty) []penalty.UserViolationSummary {
	byUser := make(map[string]*penalty.UserViolationSummary)
	for _, pen := range penalties {
		s, ok := byUser[pen.UserID]
		if !ok {
			s = &penalty.UserViolationSummary{
				UserID:      pen.UserID,
				Counts:      make(map[penalty.ViolationType]int),
				TotalAmount: decimal.Zero,
			}
			byUser[pen.UserID] = s
		}
		s.Counts[pen.ViolationType]++
		switch {
		case pen.Status == penalty.StatusWaived:
			s.Waived++
		case pen.IsWarning:
			s.Warnings++
		default:
			s.Fines++
			s.TotalAmount = s.TotalAmount.Add(pen.Amount)
		}
	}

	summaries := make([]penalty.UserViolationSummary, 0, len(byUser))
	for _, s := range byUser {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].UserID < summaries[j].UserID })
	return summaries
}

// WaivePenalty implements penalty.PenaltyService.
func (p *PenaltyServiceImpl) WaivePenalty(ctx context.Context, req penalty.WaivePenaltyRequest) (penalty.PenaltyResponse, error) {
	if err := req.Validate(); err != nil {
		return penalty.PenaltyResponse{}, err
	}

	record, err := p.PenaltyRepository.GetByID(ctx, req.PenaltyID)
	if err != nil {
		return penalty.PenaltyResponse{}, fmt.Errorf("failed to get penalty: %w", err)
	}
	if record.Status != penalty.StatusActive {
		return penalty.PenaltyResponse{}, penalty.ErrPenaltyNotActive
	}

	now := p.config.Now()
	reason := req.Reason
	waivedBy := req.WaivedBy
	record.Status = penalty.StatusWaived
	record.WaivedReason = &reason
	record.WaivedBy = &waivedBy
	record.WaivedAt = &now
	if err := p.PenaltyRepository.Update(ctx, record); err != nil {
		return penalty.PenaltyResponse{}, fmt.Errorf("failed to update penalty: %w", err)
	}

	if err := p.auditService.Record(ctx, audit.Entry{
		Action:      audit.ActionPenaltyWaived,
		Resource:    audit.ResourcePenalty,
		ResourceID:  record.ID,
		PerformedBy: req.WaivedBy,
		OldValues:   map[string]interface{}{"status": string(penalty.StatusActive)},
		NewValues: map[string]interface{}{
			"status":        string(penalty.StatusWaived),
			"waived_reason": reason,
		},
	}); err != nil {
		slog.Warn("failed to record waive audit entry", "penalty_id", record.ID, "error", err)
	}

	if err := p.notificationService.QueueNotification(ctx, notification.CreateNotificationRequest{
		RecipientID: record.UserID,
		Type:        notification.TypePenaltyWaived,
		Category:    notification.CategoryPenalty,
		Title:       "Penalty Waived",
		Message:     fmt.Sprintf("Your %s penalty for %s was waived: %s", violationLabel(record.ViolationType), record.DateKey, reason),
		RelatedID:   &record.ID,
	}); err != nil {
		slog.Warn("failed to queue waive notification", "penalty_id", record.ID, "error", err)
	}

	return penalty.NewPenaltyResponse(record), nil
}

// ListMyPenalties implements penalty.PenaltyService.
func (p *PenaltyServiceImpl) ListMyPenalties(ctx context.Context, userID, month string) ([]penalty.PenaltyResponse, error) {
	req := penalty.CalculateMonthlyRequest{Month: month}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	monthStart, _ := validator.IsValidMonth(month)

	penalties, err := p.PenaltyRepository.ListBetween(ctx, monthStart, monthStart.AddDate(0, 1, -1), &userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list penalties: %w", err)
	}

	responses := make([]penalty.PenaltyResponse, 0, len(penalties))
	for _, pen := range penalties {
		responses = append(responses, penalty.NewPenaltyResponse(pen))
	}
	return responses, nil
}

func NewPenaltyService(
	settings company.SettingsProvider,
	penaltyRepo penalty.PenaltyRepository,
	attendanceRepo attendance.AttendanceRepository,
	notificationService notification.Service,
	auditService audit.Service,
	m *metrics.Metrics,
	cfg Config,
) penalty.PenaltyService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &PenaltyServiceImpl{
		SettingsProvider:     settings,
		PenaltyRepository:    penaltyRepo,
		AttendanceRepository: attendanceRepo,
		notificationService:  notificationService,
		auditService:         auditService,
		metrics:              m,
		config:               cfg,
	}
}
