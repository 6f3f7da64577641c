package handler

import (
	"net/http"

	"github.com/msomdec/engagement/internal/service"
)

// EngagementHandler exposes the engagement operations as a JSON API.
type EngagementHandler struct {
	engage *service.EngagementService
}

// NewEngagementHandler creates a new EngagementHandler.
func NewEngagementHandler(engage *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{engage: engage}
}

type createSubspaceRequest struct {
	SubjectID string `json:"subjectId"`
	Name      string `json:"name"`
}

// HandleCreateSubspace registers a subspace for the caller.
func (h *EngagementHandler) HandleCreateSubspace(w http.ResponseWriter, r *http.Request) {
	var req createSubspaceRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, "decode create subspace", err)
		return
	}

	sp, err := h.engage.CreateSubspace(r.Context(), UserIDFromContext(r.Context()), req.SubjectID, req.Name)
	if err != nil {
		writeServiceError(w, "create subspace", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubspaceDTO(sp))
}

// HandleListSubspaces lists the caller's subspaces.
func (h *EngagementHandler) HandleListSubspaces(w http.ResponseWriter, r *http.Request) {
	subspaces, err := h.engage.ListSubspaces(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, "list subspaces", err)
		return
	}
	writeJSON(w, http.StatusOK, toSubspaceDTOs(subspaces))
}

type enterSubspaceRequest struct {
	SubjectID  string `json:"subjectId"`
	SubspaceID string `json:"subspaceId"`
}

// HandleEnter starts or resumes the caller's session on a subspace.
func (h *EngagementHandler) HandleEnter(w http.ResponseWriter, r *http.Request) {
	var req enterSubspaceRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, "decode enter subspace", err)
		return
	}

	session, err := h.engage.EnterSubspace(r.Context(), UserIDFromContext(r.Context()), req.SubjectID, req.SubspaceID)
	if err != nil {
		writeServiceError(w, "enter subspace", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(session))
}

// HandleLeave ends a session the caller owns.
func (h *EngagementHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	session, err := h.engage.LeaveSubspace(r.Context(), r.PathValue("id"), UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, "leave subspace", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(session))
}

// HandleSummary reports the time spent on a subspace.
func (h *EngagementHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	subspaceID := r.PathValue("id")
	summary, err := h.engage.Summary(r.Context(), UserIDFromContext(r.Context()), subspaceID)
	if err != nil {
		writeServiceError(w, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		SubspaceID:        subspaceID,
		TotalMinutes:      summary.TotalMinutes,
		IsCurrentlyActive: summary.IsCurrentlyActive,
		ActiveSessionID:   summary.ActiveSessionID,
	})
}

// HandleSessions lists the caller's sessions on a subspace.
func (h *EngagementHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.engage.Sessions(r.Context(), UserIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "list sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTOs(sessions))
}

// HandleContinue returns the caller's "continue learning" target, or 204.
func (h *EngagementHandler) HandleContinue(w http.ResponseWriter, r *http.Request) {
	target, err := h.engage.ContinueLearningTarget(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, "continue learning target", err)
		return
	}
	if target == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toContinueTargetDTO(target))
}

// HandleRecordActivity counts a qualifying interaction toward the streak. The
// request body is ignored; the day is always taken from the server clock.
func (h *EngagementHandler) HandleRecordActivity(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	if _, err := h.engage.RecordActivity(r.Context(), userID); err != nil {
		writeServiceError(w, "record activity", err)
		return
	}

	view, err := h.engage.Streak(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "get streak", err)
		return
	}
	writeJSON(w, http.StatusOK, toStreakViewDTO(view))
}

// HandleStreak returns the caller's streak.
func (h *EngagementHandler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	view, err := h.engage.Streak(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, "get streak", err)
		return
	}
	writeJSON(w, http.StatusOK, toStreakViewDTO(view))
}

type setTimezoneRequest struct {
	Timezone string `json:"timezone"`
}

// HandleSetTimezone stores the caller's IANA timezone.
func (h *EngagementHandler) HandleSetTimezone(w http.ResponseWriter, r *http.Request) {
	var req setTimezoneRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, "decode set timezone", err)
		return
	}

	userID := UserIDFromContext(r.Context())
	if _, err := h.engage.SetTimezone(r.Context(), userID, req.Timezone); err != nil {
		writeServiceError(w, "set timezone", err)
		return
	}

	view, err := h.engage.Streak(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "get streak", err)
		return
	}
	writeJSON(w, http.StatusOK, toStreakViewDTO(view))
}
