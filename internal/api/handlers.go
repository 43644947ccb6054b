package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hydromate/internal/metrics"
	"hydromate/internal/model"
	"hydromate/internal/service"
)

// ProfileRequest is the request body for PUT /api/profile. The goal
// fields are only honored on the first PUT (onboarding); afterwards
// goal changes go through PUT /api/goal.
type ProfileRequest struct {
	Gender        string `json:"gender,omitempty"`
	HeightCm      int    `json:"height_cm,omitempty"`
	WeightKg      int    `json:"weight_kg,omitempty"`
	Age           int    `json:"age,omitempty"`
	WakeTime      string `json:"wake_time"`
	SleepTime     string `json:"sleep_time"`
	ActivityLevel string `json:"activity_level,omitempty"`
	Climate       string `json:"climate,omitempty"`
	GoalChoice    string `json:"goal_choice,omitempty"`
	CustomGoal    string `json:"custom_goal,omitempty"`
}

func (req *ProfileRequest) toProfile() (model.UserProfile, error) {
	wake, err := model.ParseTimeOfDay(req.WakeTime)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("invalid wake_time; expected HH:MM")
	}
	sleep, err := model.ParseTimeOfDay(req.SleepTime)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("invalid sleep_time; expected HH:MM")
	}
	return model.UserProfile{
		Gender:        model.Gender(req.Gender),
		HeightCm:      req.HeightCm,
		WeightKg:      req.WeightKg,
		Age:           req.Age,
		WakeTime:      wake,
		SleepTime:     sleep,
		ActivityLevel: model.ActivityLevel(req.ActivityLevel),
		Climate:       model.Climate(req.Climate),
	}, nil
}

// handleProfile reads or replaces the user profile.
// GET/PUT /api/profile
func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("profile")
	switch r.Method {
	case http.MethodGet:
		profile, err := s.svc.Profile(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)

	case http.MethodPut:
		var req ProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		profile, err := req.toProfile()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		_, err = s.svc.Profile(r.Context())
		switch {
		case errors.Is(err, service.ErrProfileMissing):
			// First profile write runs the full onboarding flow.
			choice := model.GoalChoice(req.GoalChoice)
			if choice == "" {
				choice = model.GoalChoiceMin
			}
			info, reminders, err := s.svc.CompleteOnboarding(r.Context(), profile, choice, req.CustomGoal)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{
				"goal":      info,
				"reminders": reminders,
			})
		case err != nil:
			s.writeServiceError(w, err)
		default:
			info, err := s.svc.UpdateProfile(r.Context(), profile)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"goal": info})
		}

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GoalUpdateRequest is the request body for PUT /api/goal.
type GoalUpdateRequest struct {
	Choice     string `json:"choice"`
	CustomGoal string `json:"custom_goal,omitempty"`
}

// handleGoal reads or selects the daily goal.
// GET/PUT /api/goal
func (s *HTTPServer) handleGoal(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("goal")
	switch r.Method {
	case http.MethodGet:
		info, err := s.svc.Goal(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)

	case http.MethodPut:
		var req GoalUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		info, err := s.svc.SelectGoal(r.Context(), model.GoalChoice(req.Choice), req.CustomGoal)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// ReminderCreateRequest is the request body for POST /api/reminders.
type ReminderCreateRequest struct {
	Time string `json:"time"` // Format: HH:MM or HH:MM:SS
}

// handleReminders lists or appends reminders.
// GET/POST /api/reminders
func (s *HTTPServer) handleReminders(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reminders")
	switch r.Method {
	case http.MethodGet:
		list, err := s.svc.Reminders(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reminders": list})

	case http.MethodPost:
		var req ReminderCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		t, err := model.ParseTimeOfDay(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid time; expected HH:MM")
			return
		}
		list, err := s.svc.AddReminder(r.Context(), t)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"reminders": list})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// ReminderPatchRequest is the request body for PATCH /api/reminders/{id}.
type ReminderPatchRequest struct {
	Time    *string `json:"time,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

// handleReminderByID patches or deletes one reminder, and serves the
// regenerate action.
// PATCH/DELETE /api/reminders/{id}, POST /api/reminders/regenerate
func (s *HTTPServer) handleReminderByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reminder_by_id")
	id := strings.TrimPrefix(r.URL.Path, "/api/reminders/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "reminder id is required")
		return
	}

	if id == "regenerate" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
			return
		}
		list, err := s.svc.RegenerateReminders(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reminders": list})
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req ReminderPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		var patch model.ReminderPatch
		if req.Time != nil {
			t, err := model.ParseTimeOfDay(*req.Time)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid time; expected HH:MM")
				return
			}
			patch.Time = &t
		}
		patch.Enabled = req.Enabled

		list, err := s.svc.UpdateReminder(r.Context(), id, patch)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reminders": list})

	case http.MethodDelete:
		list, err := s.svc.DeleteReminder(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reminders": list})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// IntakeRequest is the request body for POST /api/intake.
type IntakeRequest struct {
	AmountML int `json:"amount_ml"`
}

// handleIntake appends a water log.
// POST /api/intake
func (s *HTTPServer) handleIntake(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("intake")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req IntakeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	logs, err := s.svc.LogIntake(r.Context(), req.AmountML)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	total, err := s.svc.TodayTotal(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"logs":        logs,
		"today_total": total,
	})
}

// handleIntakeToday returns today's logs and running total.
// GET /api/intake/today
func (s *HTTPServer) handleIntakeToday(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("intake_today")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	logs, err := s.svc.TodayLogs(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	total, err := s.svc.TodayTotal(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":        logs,
		"today_total": total,
	})
}

// handleIntakeByID deletes one water log.
// DELETE /api/intake/{id}
func (s *HTTPServer) handleIntakeByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("intake_by_id")
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use DELETE")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/intake/")
	if id == "" || id == "today" {
		writeError(w, http.StatusBadRequest, "log id is required")
		return
	}

	logs, err := s.svc.DeleteIntake(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

// handleHistoryDaily returns per-day totals.
// GET /api/history/daily
func (s *HTTPServer) handleHistoryDaily(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("history_daily")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	totals, err := s.history.DailyTotals(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"daily": totals})
}

// handleHistoryWeekly returns per-week totals.
// GET /api/history/weekly
func (s *HTTPServer) handleHistoryWeekly(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("history_weekly")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	totals, err := s.history.WeeklyTotals(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weekly": totals})
}

// handleHistoryMonthly returns per-month totals.
// GET /api/history/monthly
func (s *HTTPServer) handleHistoryMonthly(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("history_monthly")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	totals, err := s.history.MonthlyTotals(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"monthly": totals})
}

// handleReportStats returns the drinking report summary.
// GET /api/report/stats
func (s *HTTPServer) handleReportStats(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("report_stats")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.reports.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleReportExport streams the report as an XLSX workbook.
// GET /api/report/export
func (s *HTTPServer) handleReportExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("report_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filename := fmt.Sprintf("hydration-report-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := s.reports.Export(r.Context(), w); err != nil {
		s.logger.Error().Err(err).Msg("report export failed")
	}
}

// handleReconcile forces a reconcile pass, the same one the periodic
// loop runs.
// POST /api/reconcile
func (s *HTTPServer) handleReconcile(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reconcile")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if err := s.scheduler.Reconcile(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scheduled_ids": s.scheduler.ScheduledIDs(),
	})
}

// handleNotificationStatus reports permission grants and armed triggers.
// GET /api/notifications/status
func (s *HTTPServer) handleNotificationStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("notification_status")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"permissions":   s.scheduler.PermissionStatus(r.Context()),
		"scheduled_ids": s.scheduler.ScheduledIDs(),
	})
}

// handleNotificationTest fires an instant test notification.
// POST /api/notifications/test
func (s *HTTPServer) handleNotificationTest(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("notification_test")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if err := s.svc.SendTestNotification(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
