package api

import (
	"net/http"
	"time"

	"github.com/merako/storefront/internal/domain/achievement"
)

type achievementView struct {
	ID            int64  `json:"id"`
	ConditionCode string `json:"condition_code"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Reward        string `json:"reward,omitempty"`
}

type userAchievementView struct {
	AchievementID int64     `json:"achievement_id"`
	ConditionCode string    `json:"condition_code"`
	EarnedAt      time.Time `json:"earned_at"`
	BonusUsed     bool      `json:"bonus_used"`
}

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	as, err := s.achievements.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]achievementView, len(as))
	for i, a := range as {
		views[i] = achievementView{
			ID:            a.ID,
			ConditionCode: string(a.ConditionCode),
			Title:         a.Title,
			Description:   a.Description,
			Reward:        a.Reward,
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleMyAchievements(w http.ResponseWriter, r *http.Request) {
	uas, err := s.achievements.UserAchievements(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserAchievementViews(uas))
}

func toUserAchievementViews(uas []achievement.UserAchievement) []userAchievementView {
	views := make([]userAchievementView, len(uas))
	for i, ua := range uas {
		views[i] = userAchievementView{
			AchievementID: ua.AchievementID,
			ConditionCode: string(ua.ConditionCode),
			EarnedAt:      ua.EarnedAt,
			BonusUsed:     ua.BonusUsed,
		}
	}
	return views
}
