package handler

import (
	"time"

	"github.com/msomdec/engagement/internal/domain"
	"github.com/msomdec/engagement/internal/service"
)

// SessionDTO is the JSON representation of a study session.
type SessionDTO struct {
	ID              string  `json:"id"`
	UserID          string  `json:"userId"`
	SubjectID       string  `json:"subjectId"`
	SubspaceID      string  `json:"subspaceId"`
	StartTime       string  `json:"startTime"`
	EndTime         *string `json:"endTime"`
	DurationMinutes float64 `json:"durationMinutes"`
	IsActive        bool    `json:"isActive"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

func toSessionDTO(s *domain.Session) SessionDTO {
	dto := SessionDTO{
		ID:              s.ID,
		UserID:          s.UserID,
		SubjectID:       s.SubjectID,
		SubspaceID:      s.SubspaceID,
		StartTime:       s.StartTime.Format(time.RFC3339Nano),
		DurationMinutes: s.DurationMinutes,
		IsActive:        s.IsActive,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339Nano),
	}
	if s.EndTime != nil {
		end := s.EndTime.Format(time.RFC3339Nano)
		dto.EndTime = &end
	}
	return dto
}

func toSessionDTOs(sessions []domain.Session) []SessionDTO {
	dtos := make([]SessionDTO, len(sessions))
	for i := range sessions {
		dtos[i] = toSessionDTO(&sessions[i])
	}
	return dtos
}

// SubspaceDTO is the JSON representation of a subspace.
type SubspaceDTO struct {
	ID        string `json:"id"`
	SubjectID string `json:"subjectId"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

func toSubspaceDTO(sp *domain.Subspace) SubspaceDTO {
	return SubspaceDTO{
		ID:        sp.ID,
		SubjectID: sp.SubjectID,
		Name:      sp.Name,
		CreatedAt: sp.CreatedAt.Format(time.RFC3339),
	}
}

func toSubspaceDTOs(subspaces []domain.Subspace) []SubspaceDTO {
	dtos := make([]SubspaceDTO, len(subspaces))
	for i := range subspaces {
		dtos[i] = toSubspaceDTO(&subspaces[i])
	}
	return dtos
}

// SummaryDTO is the time spent on a subspace.
type SummaryDTO struct {
	SubspaceID        string  `json:"subspaceId"`
	TotalMinutes      float64 `json:"totalMinutes"`
	IsCurrentlyActive bool    `json:"isCurrentlyActive"`
	ActiveSessionID   string  `json:"activeSessionId,omitempty"`
}

// ContinueTargetDTO is the "continue learning" target.
type ContinueTargetDTO struct {
	SubspaceID       string  `json:"subspaceId"`
	SubjectID        string  `json:"subjectId"`
	LastSessionStart *string `json:"lastSessionStart"`
}

func toContinueTargetDTO(t *domain.ContinueTarget) ContinueTargetDTO {
	dto := ContinueTargetDTO{SubspaceID: t.SubspaceID, SubjectID: t.SubjectID}
	if t.LastSessionStart != nil {
		start := t.LastSessionStart.Format(time.RFC3339Nano)
		dto.LastSessionStart = &start
	}
	return dto
}

// StreakDTO is the JSON representation of a user's streak.
type StreakDTO struct {
	StreakCount      int     `json:"streakCount"`
	CurrentCount     int     `json:"currentCount"`
	LastActivityDate *string `json:"lastActivityDate"`
	Timezone         string  `json:"timezone"`
}

func toStreakDTO(state *domain.StreakState, current int) StreakDTO {
	dto := StreakDTO{
		StreakCount:  state.StreakCount,
		CurrentCount: current,
		Timezone:     state.Timezone,
	}
	if state.LastActivityDate != nil {
		d := state.LastActivityDate.String()
		dto.LastActivityDate = &d
	}
	return dto
}

func toStreakViewDTO(v *service.StreakView) StreakDTO {
	return toStreakDTO(&v.State, v.CurrentCount)
}
